package xmodem

import (
	"context"

	"github.com/kagelabs/xfer/xferio"
)

// packetSize128 and packetSize1024 are the two frame sizes the XMODEM
// family uses; XMODEM-1K prefers the larger one whenever a remainder
// allows it, falling back to 128-byte packets for the final short chunk.
const (
	packetSize128  = 128
	packetSize1024 = 1024
)

// Protocol is a configured XMODEM-family endpoint: plain XMODEM,
// XMODEM-CRC, or XMODEM-1K, selected at construction time via New, NewCRC,
// or New1K. ymodem builds its per-file body transfer directly on Engine
// instead of this wrapper, since it needs to interleave its own packet-0
// framing.
type Protocol struct {
	engine *Engine
}

// New constructs a plain XMODEM endpoint (checksum or CRC-16 as
// negotiated, 128-byte packets).
func New(ch xferio.Channel, cfg *Config) *Protocol {
	return &Protocol{engine: NewEngine(ch, Capability{}, cfg)}
}

// NewCRC constructs an XMODEM-CRC endpoint (CRC-16 only, 128-byte
// packets).
func NewCRC(ch xferio.Channel, cfg *Config) *Protocol {
	return &Protocol{engine: NewEngine(ch, Capability{RequiresCRC: true}, cfg)}
}

// New1K constructs an XMODEM-1K endpoint (checksum or CRC-16 as
// negotiated, 1024-byte packets with 128-byte packets for the final short
// chunk).
func New1K(ch xferio.Channel, cfg *Config) *Protocol {
	return &Protocol{engine: NewEngine(ch, Capability{Allows1K: true}, cfg)}
}

// Send transmits data as a sequence of XMODEM packets and an EOT
// handshake. Sequence numbers wrap modulo 256, starting at 1.
func (p *Protocol) Send(ctx context.Context, data []byte) error {
	crcMode, err := p.engine.NegotiateSend(ctx)
	if err != nil {
		return err
	}

	seq := byte(1)
	offset := 0
	for offset < len(data) {
		size := packetSize128
		if p.engine.cap.Allows1K && len(data)-offset >= packetSize1024 {
			size = packetSize1024
		}
		end := offset + size
		if end > len(data) {
			end = len(data)
		}
		chunk := data[offset:end]

		transferred := int64(end)
		if err := p.engine.SendPacket(ctx, seq, chunk, size, crcMode); err != nil {
			return err
		}
		if cb := p.engine.cfg.OnProgress; cb != nil {
			cb(transferred)
		}

		seq++
		offset = end
	}

	return p.engine.SendEOT(ctx)
}

// Recv receives a full XMODEM transfer and returns the reassembled
// payload. Per the protocol, XMODEM pads the final packet to its fixed
// size with zero bytes (0x00); callers that need the exact original
// length must know it out of band (YMODEM supplies it via packet 0).
func (p *Protocol) Recv(ctx context.Context) ([]byte, error) {
	crcMode, err := p.engine.NegotiateRecv(ctx)
	if err != nil {
		return nil, err
	}

	var out []byte
	seq := byte(1)
	for {
		result, err := p.engine.RecvPacket(ctx, seq, crcMode)
		if err != nil {
			return nil, err
		}
		if result.EOT {
			return out, nil
		}
		out = append(out, result.Payload...)
		if cb := p.engine.cfg.OnProgress; cb != nil {
			cb(int64(len(out)))
		}
		seq++
	}
}
