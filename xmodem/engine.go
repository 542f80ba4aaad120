// Package xmodem implements the shared XMODEM engine and its three thin
// variants (XMODEM, XMODEM-CRC, XMODEM-1K). Grounded on the classic rz/sz
// zmodem.Sender/Receiver negotiation-then-frame-loop shape, adapted to the
// XMODEM (not ZMODEM) wire format and to the Channel abstraction from
// the protocol rather than an io.Reader/Writer pair.
package xmodem

import (
	"context"

	"github.com/kagelabs/xfer/internal/control"
	"github.com/kagelabs/xfer/internal/crc"
	"github.com/kagelabs/xfer/xfererr"
	"github.com/kagelabs/xfer/xferio"
	"github.com/kagelabs/xfer/xferlog"
)

// Capability tags which of the three variants (XMODEM, XMODEM-CRC,
// XMODEM-1K) an Engine implements, per the polymorphic-protocol-family
// design note in the protocol: one engine, a capability tag, no deep
// inheritance.
type Capability struct {
	// Allows1K permits STX (1024-byte) packets in addition to SOH
	// (128-byte) ones. Only XMODEM-1K (and YMODEM, built on it) sets
	// this.
	Allows1K bool

	// RequiresCRC rejects a peer's NAK as a valid negotiation start byte
	// on send, so the checksum-mode fallback never happens. XMODEM-CRC
	// (and the ymodem package) set this; plain XMODEM and XMODEM-1K
	// accept either.
	RequiresCRC bool
}

// Engine is the shared sender/receiver state machine underlying every
// XMODEM-family variant. It is exported so the ymodem package can drive it
// directly for YMODEM's per-file body transfer.
type Engine struct {
	ch     xferio.Channel
	cap    Capability
	cfg    *Config
	logger xferlog.Logger

	// pendingHeader holds the start byte NegotiateRecv consumed to end
	// negotiation, carried forward so the first RecvPacket call dispatches
	// on it instead of reading a fresh byte that was never sent.
	pendingHeader *byte
}

// NewEngine constructs an Engine over ch with the given capability and
// configuration. A nil cfg uses DefaultConfig().
func NewEngine(ch xferio.Channel, cap Capability, cfg *Config) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = xferlog.Noop{}
	}
	return &Engine{ch: ch, cap: cap, cfg: cfg, logger: logger}
}

// NegotiateSend reads the peer's negotiation byte (the protocol): the
// first non-CAN of {NAK, CRC} picks checksum-vs-CRC mode. Two consecutive
// CAN bytes cancel. After Retry unexpected bytes the abort sequence is
// emitted and NegotiationFailed is returned.
func (e *Engine) NegotiateSend(ctx context.Context) (crcMode bool, err error) {
	consecutiveCAN := 0
	for attempt := 0; attempt < e.cfg.Retry; attempt++ {
		if err := ctxDone(ctx); err != nil {
			return false, err
		}
		data, ok := e.ch.Get(1, e.cfg.Timeout)
		if !ok {
			continue
		}
		b := data[0]
		switch b {
		case control.CAN:
			consecutiveCAN++
			if consecutiveCAN >= 2 {
				return false, xfererr.New(xfererr.PeerCancelled, "peer sent CAN CAN during negotiation")
			}
			continue
		case control.NAK:
			consecutiveCAN = 0
			if e.cap.RequiresCRC {
				// XMODEM-CRC rejects NAK as a start signal; keep waiting.
				continue
			}
			return false, nil
		case control.CRC:
			consecutiveCAN = 0
			return true, nil
		default:
			consecutiveCAN = 0
			continue
		}
	}
	e.Abort(ctx)
	return false, xfererr.New(xfererr.NegotiationFailed, "no valid start byte after %d attempts", e.cfg.Retry)
}

// NegotiateRecv drives the receiver side of negotiation (the protocol):
// emit CRC repeatedly while the error count is below Retry/2, then fall
// back to NAK. Accepts SOH, STX (only when Allows1K), or CAN to end
// negotiation. The accepted start byte is itself the first packet's
// header byte, not a separate negotiation-only signal, so it is stashed
// on the Engine and consumed by the next RecvPacket call rather than
// discarded.
func (e *Engine) NegotiateRecv(ctx context.Context) (crcMode bool, err error) {
	errorCount := 0
	useCRC := true
	for attempt := 0; attempt < e.cfg.Retry; attempt++ {
		if err := ctxDone(ctx); err != nil {
			return false, err
		}
		if errorCount >= e.cfg.Retry/2 {
			useCRC = false
		}
		startByte := byte(control.NAK)
		if useCRC {
			startByte = control.CRC
		}
		e.ch.Put([]byte{startByte}, e.cfg.Timeout)

		data, ok := e.ch.Get(1, e.cfg.Delay)
		if !ok {
			errorCount++
			continue
		}
		cb := control.Classify(data[0])
		switch cb.Kind {
		case control.KindHeader:
			if cb.PacketSize == 1024 && !e.cap.Allows1K {
				errorCount++
				continue
			}
			b := data[0]
			e.pendingHeader = &b
			return useCRC, nil
		case control.KindCancel:
			return false, xfererr.New(xfererr.PeerCancelled, "peer sent CAN during negotiation")
		default:
			errorCount++
		}
	}
	return false, xfererr.New(xfererr.NegotiationFailed, "no start byte accepted after %d attempts", e.cfg.Retry)
}

// SendPacket transmits one data packet (seq, payload padded to
// packetSize, trailer) and retries on NAK/timeout/garbage up to
// cfg.Retry times.
func (e *Engine) SendPacket(ctx context.Context, seq byte, payload []byte, packetSize int, crcMode bool) error {
	padded := make([]byte, packetSize)
	copy(padded, payload)

	start := byte(control.SOH)
	if packetSize == 1024 {
		start = control.STX
	}

	withTrailer := crc.AppendTrailer(padded, crcMode)
	full := make([]byte, 0, 3+len(withTrailer))
	full = append(full, start, seq, 255-seq)
	full = append(full, withTrailer...)

	for attempt := 0; attempt < e.cfg.Retry; attempt++ {
		if err := ctxDone(ctx); err != nil {
			return err
		}
		if _, ok := e.ch.Put(full, e.cfg.Timeout); !ok {
			return xfererr.New(xfererr.ChannelFailure, "put packet seq=%d failed", seq)
		}

		data, ok := e.ch.Get(1, e.cfg.Timeout)
		if !ok {
			e.logger.Debug("xmodem: timeout waiting for ack on seq=%d", seq)
			continue
		}
		switch data[0] {
		case control.ACK:
			return nil
		case control.NAK:
			e.logger.Debug("xmodem: NAK on seq=%d, retrying", seq)
			continue
		case control.CAN:
			if second, ok := e.ch.Get(1, e.cfg.Timeout); ok && second[0] == control.CAN {
				return xfererr.New(xfererr.PeerCancelled, "peer cancelled during packet seq=%d", seq)
			}
			continue
		default:
			e.logger.Debug("xmodem: unexpected byte 0x%02x after seq=%d", data[0], seq)
			continue
		}
	}
	e.Abort(ctx)
	return xfererr.New(xfererr.ProtocolUnexpectedByte, "packet seq=%d not acknowledged after %d attempts", seq, e.cfg.Retry)
}

// SendEOT sends EOT and requires ACK before cfg.Retry attempts are spent,
// retransmitting EOT on NAK or timeout.
func (e *Engine) SendEOT(ctx context.Context) error {
	for attempt := 0; attempt < e.cfg.Retry; attempt++ {
		if err := ctxDone(ctx); err != nil {
			return err
		}
		if _, ok := e.ch.Put([]byte{control.EOT}, e.cfg.Timeout); !ok {
			return xfererr.New(xfererr.ChannelFailure, "put EOT failed")
		}
		data, ok := e.ch.Get(1, e.cfg.Timeout)
		if ok && data[0] == control.ACK {
			return nil
		}
	}
	e.Abort(ctx)
	return xfererr.New(xfererr.ProtocolUnexpectedByte, "EOT not acknowledged after %d attempts", e.cfg.Retry)
}

// RecvResult is the outcome of one RecvPacket call.
type RecvResult struct {
	Payload []byte
	EOT     bool
}

// RecvPacket reads one packet, dispatching on the leading control byte per
// the protocol receive frame loop: SOH/STX select packet size, EOT
// completes the transfer, CAN (twice) cancels, anything else is a
// protocol error recovered with NAK. On success the payload is ACKed; on a
// bad sequence or trailer the packet is drained and NAKed. If
// NegotiateRecv stashed a start byte, the first attempt dispatches on
// that instead of reading a fresh byte off the wire.
func (e *Engine) RecvPacket(ctx context.Context, expectedSeq byte, crcMode bool) (RecvResult, error) {
	cancelLatched := false
	for attempt := 0; attempt < e.cfg.Retry; attempt++ {
		if err := ctxDone(ctx); err != nil {
			return RecvResult{}, err
		}
		var b byte
		var ok bool
		if e.pendingHeader != nil {
			b, ok = *e.pendingHeader, true
			e.pendingHeader = nil
		} else {
			data, gok := e.ch.Get(1, e.cfg.Timeout)
			ok = gok
			if gok {
				b = data[0]
			}
		}
		if !ok {
			e.sendNAK()
			continue
		}
		cb := control.Classify(b)
		switch cb.Kind {
		case control.KindEOT:
			e.ch.Put([]byte{control.ACK}, e.cfg.Timeout)
			return RecvResult{EOT: true}, nil
		case control.KindCancel:
			if cancelLatched {
				return RecvResult{}, xfererr.New(xfererr.PeerCancelled, "peer sent CAN CAN")
			}
			cancelLatched = true
			continue
		case control.KindHeader:
			if cb.PacketSize == 1024 && !e.cap.Allows1K {
				e.drainAndNAK(cb.PacketSize, crcMode)
				continue
			}
			cancelLatched = false
			payload, err := e.readPacketBody(expectedSeq, cb.PacketSize, crcMode)
			if err != nil {
				if _, nacked := err.(*xfererr.Error); nacked {
					continue // NAK already sent inside readPacketBody
				}
				return RecvResult{}, err
			}
			return RecvResult{Payload: payload}, nil
		default:
			cancelLatched = false
			e.sendNAK()
			continue
		}
	}
	return RecvResult{}, xfererr.New(xfererr.ProtocolUnexpectedByte, "no valid packet after %d attempts", e.cfg.Retry)
}

// readPacketBody reads the sequence bytes, payload, and trailer for a
// packet whose header byte has already been consumed. On sequence or
// trailer failure it drains the remainder of the packet and sends NAK,
// then returns a non-fatal *xfererr.Error the caller retries on.
func (e *Engine) readPacketBody(expectedSeq byte, packetSize int, crcMode bool) ([]byte, error) {
	seqBytes, ok := e.ch.Get(2, e.cfg.Timeout)
	if !ok {
		e.sendNAK()
		return nil, xfererr.New(xfererr.ChannelFailure, "timeout reading sequence bytes")
	}
	seq1, seq2 := seqBytes[0], seqBytes[1]

	trailerLen := 1
	if crcMode {
		trailerLen = 2
	}
	body, ok := e.ch.Get(packetSize+trailerLen, e.cfg.Timeout)
	if !ok {
		e.sendNAK()
		return nil, xfererr.New(xfererr.ChannelFailure, "timeout reading packet body")
	}

	if seq1 != expectedSeq || seq2 != 255-expectedSeq {
		e.sendNAK()
		return nil, xfererr.New(xfererr.SequenceMismatch, "expected seq=%d, got seq1=%d seq2=%d", expectedSeq, seq1, seq2)
	}

	payload, valid := crc.VerifyTrailer(body, crcMode)
	if !valid {
		e.sendNAK()
		return nil, xfererr.New(xfererr.TrailerInvalid, "trailer check failed for seq=%d", expectedSeq)
	}

	e.ch.Put([]byte{control.ACK}, e.cfg.Timeout)
	return payload, nil
}

func (e *Engine) drainAndNAK(packetSize int, crcMode bool) {
	trailerLen := 1
	if crcMode {
		trailerLen = 2
	}
	e.ch.Get(2+packetSize+trailerLen, e.cfg.Timeout)
	e.sendNAK()
}

func (e *Engine) sendNAK() {
	e.ch.Put([]byte{control.NAK}, e.cfg.Timeout)
}

// Abort emits the two-byte cancel sequence (CAN CAN).
func (e *Engine) Abort(ctx context.Context) {
	e.ch.Put([]byte{control.CAN, control.CAN}, e.cfg.Timeout)
}

func ctxDone(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
