package ymodem

import (
	"context"
	"io"

	"github.com/kagelabs/xfer/internal/control"
	"github.com/kagelabs/xfer/xfererr"
	"github.com/kagelabs/xfer/xferio"
	"github.com/kagelabs/xfer/xmodem"
)

const (
	metaPacketSize = 128
	bodyPacketSize = 1024
)

// Protocol is a configured YMODEM batch endpoint, built directly on
// xmodem.Engine rather than xmodem.Protocol since YMODEM interleaves its
// own packet-0 framing and per-file reinitialization between the shared
// engine's negotiate/send/recv primitives.
type Protocol struct {
	ch     xferio.Channel
	engine *xmodem.Engine
	cfg    *xmodem.Config
}

// New constructs a YMODEM endpoint. A nil cfg uses xmodem.DefaultConfig().
func New(ch xferio.Channel, cfg *xmodem.Config) *Protocol {
	if cfg == nil {
		cfg = xmodem.DefaultConfig()
	}
	cap := xmodem.Capability{Allows1K: true, RequiresCRC: true}
	return &Protocol{
		ch:     ch,
		engine: xmodem.NewEngine(ch, cap, cfg),
		cfg:    cfg,
	}
}

// Send transmits files as a YMODEM batch: for each file, a packet-0
// metadata frame, a reinitialization handshake, the file body via the
// shared XMODEM-1K engine, EOT, then a fresh reinitialization before the
// next file. An all-zero packet 0 terminates the batch.
func (p *Protocol) Send(ctx context.Context, files []FileEntry) error {
	crcMode, err := p.engine.NegotiateSend(ctx)
	if err != nil {
		return err
	}

	for _, f := range files {
		meta := buildMetadata(f.Name, f.Size, metaPacketSize)
		if err := p.engine.SendPacket(ctx, 0, meta, metaPacketSize, crcMode); err != nil {
			return err
		}

		crcMode, err = p.waitForReinit(ctx)
		if err != nil {
			return err
		}

		if err := p.sendBody(ctx, f, crcMode); err != nil {
			return err
		}
		if err := p.engine.SendEOT(ctx); err != nil {
			return err
		}

		crcMode, err = p.waitForReinit(ctx)
		if err != nil {
			return err
		}
	}

	terminator := make([]byte, metaPacketSize)
	return p.engine.SendPacket(ctx, 0, terminator, metaPacketSize, crcMode)
}

func (p *Protocol) sendBody(ctx context.Context, f FileEntry, crcMode bool) error {
	reader := io.LimitReader(f.Reader, f.Size)
	seq := byte(1)
	var transferred int64
	buf := make([]byte, bodyPacketSize)

	for {
		n, err := io.ReadFull(reader, buf)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return xfererr.New(xfererr.ChannelFailure, "read file body: %v", err)
		}
		if n == 0 {
			return nil
		}

		size := bodyPacketSize
		if n <= metaPacketSize {
			size = metaPacketSize
		}

		if sendErr := p.engine.SendPacket(ctx, seq, buf[:n], size, crcMode); sendErr != nil {
			return sendErr
		}
		transferred += int64(n)
		if cb := p.cfg.OnProgress; cb != nil {
			cb(transferred)
		}
		seq++

		if n < bodyPacketSize {
			return nil
		}
	}
}

// waitForReinit reads the peer's post-packet reinitialization byte
// (CRC or NAK), sent after a file body's EOT and after packet 0.
func (p *Protocol) waitForReinit(ctx context.Context) (crcMode bool, err error) {
	for attempt := 0; attempt < p.cfg.Retry; attempt++ {
		data, ok := p.ch.Get(1, p.cfg.Timeout)
		if !ok {
			continue
		}
		switch data[0] {
		case control.CRC:
			return true, nil
		case control.NAK:
			return false, nil
		case control.CAN:
			return false, xfererr.New(xfererr.PeerCancelled, "peer cancelled during reinitialization")
		}
	}
	return false, xfererr.New(xfererr.NegotiationFailed, "no reinitialization byte after %d attempts", p.cfg.Retry)
}

// sendReinit emits the reinitialization byte that starts the next
// packet-0 (or the next file body) receive mirror.
func (p *Protocol) sendReinit(crcMode bool) {
	b := byte(control.NAK)
	if crcMode {
		b = control.CRC
	}
	p.ch.Put([]byte{b}, p.cfg.Timeout)
}

// Recv receives a YMODEM batch, invoking sink once per file as it
// completes, and returns the number of files received.
func (p *Protocol) Recv(ctx context.Context, sink Sink) (int, error) {
	crcMode, err := p.engine.NegotiateRecv(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for {
		result, err := p.engine.RecvPacket(ctx, 0, crcMode)
		if err != nil {
			return count, err
		}
		name, size, ok := parseMetadata(result.Payload)
		if !ok {
			return count, nil
		}

		p.sendReinit(crcMode)

		data, err := p.recvBody(ctx, crcMode, size)
		if err != nil {
			return count, err
		}
		if err := sink(ReceivedFile{Name: name, Data: data}); err != nil {
			return count, err
		}
		count++

		p.sendReinit(crcMode)
	}
}

func (p *Protocol) recvBody(ctx context.Context, crcMode bool, size int64) ([]byte, error) {
	var data []byte
	seq := byte(1)
	var transferred int64
	for {
		result, err := p.engine.RecvPacket(ctx, seq, crcMode)
		if err != nil {
			return nil, err
		}
		if result.EOT {
			if int64(len(data)) > size {
				data = data[:size]
			}
			return data, nil
		}
		data = append(data, result.Payload...)
		transferred += int64(len(result.Payload))
		if cb := p.cfg.OnProgress; cb != nil {
			cb(transferred)
		}
		seq++
	}
}
