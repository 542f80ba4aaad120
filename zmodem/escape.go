package zmodem

import (
	"time"

	"github.com/kagelabs/xfer/xfererr"
	"github.com/kagelabs/xfer/xferio"
)

// needsEscape reports whether b must be ZDLE-escaped when transmitted:
// ZDLE itself, and the DLE, XON and XOFF control bytes and their
// parity-set forms.
func needsEscape(b byte) bool {
	switch b {
	case 0x10, 0x90, 0x11, 0x91, 0x13, 0x93, ZDLE:
		return true
	default:
		return false
	}
}

// escapeByte returns the wire encoding of b: itself, or ZDLE followed by
// b^0x40 when escaping is required.
func escapeByte(b byte) []byte {
	if needsEscape(b) {
		return []byte{ZDLE, b ^ 0x40}
	}
	return []byte{b}
}

// escape encodes data for transmission inside a ZDLE-escaped frame.
func escape(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for _, b := range data {
		out = append(out, escapeByte(b)...)
	}
	return out
}

// TokenKind tags what a Decoder's Next call produced.
type TokenKind int

const (
	// TokenData is a single decoded data byte.
	TokenData TokenKind = iota
	// TokenTerminator is a subframe terminator (ZCRCE/G/Q/W).
	TokenTerminator
	// TokenCancel is the CAN*5 cancellation sequence.
	TokenCancel
)

// Token is one decoded unit from the ZDLE stream: a data byte or a
// tagged control indication. Modeled as a tagged union rather than a
// sentinel integer per the polymorphic-design note in the protocol, mirroring
// internal/control.Byte's approach for the XMODEM family.
type Token struct {
	Kind TokenKind
	Byte byte // the data byte (TokenData) or terminator code (TokenTerminator)
}

// Decoder reads ZDLE-escaped bytes off a Channel one token at a time.
// Grounded on the classic rz/sz zdlreadUnescaper, adapted from an io.Reader to
// xferio.Channel's Get/timeout contract.
type Decoder struct {
	ch      xferio.Channel
	timeout time.Duration
}

// NewDecoder wraps ch for ZDLE-aware reads bounded by timeout.
func NewDecoder(ch xferio.Channel, timeout time.Duration) *Decoder {
	return &Decoder{ch: ch, timeout: timeout}
}

func (d *Decoder) readRaw() (byte, bool) {
	data, ok := d.ch.Get(1, d.timeout)
	if !ok {
		return 0, false
	}
	return data[0], true
}

// Next returns the next decoded token. It returns an error only on a
// channel failure or a malformed escape sequence.
func (d *Decoder) Next() (Token, error) {
	b, ok := d.readRaw()
	if !ok {
		return Token{}, xfererr.New(xfererr.ChannelFailure, "zdle: channel read failed")
	}
	if b != ZDLE {
		return Token{Kind: TokenData, Byte: b}, nil
	}
	return d.afterZDLE()
}

func (d *Decoder) afterZDLE() (Token, error) {
	b, ok := d.readRaw()
	if !ok {
		return Token{}, xfererr.New(xfererr.ChannelFailure, "zdle: channel read failed after ZDLE")
	}

	switch b {
	case CAN:
		for i := 0; i < 4; i++ {
			next, ok := d.readRaw()
			if !ok || next != CAN {
				// Not a genuine CAN*5 run; treat the lone CAN as data.
				return Token{Kind: TokenData, Byte: CAN}, nil
			}
		}
		return Token{Kind: TokenCancel}, nil
	case ZCRCE, ZCRCG, ZCRCQ, ZCRCW:
		return Token{Kind: TokenTerminator, Byte: b}, nil
	case ZRUB0:
		return Token{Kind: TokenData, Byte: 0x7F}, nil
	case ZRUB1:
		return Token{Kind: TokenData, Byte: 0xFF}, nil
	case 0x11, 0x91, 0x13, 0x93:
		// Flow-control byte inside an escape sequence: drop and continue.
		return d.Next()
	default:
		if b&0x60 == 0x40 {
			return Token{Kind: TokenData, Byte: b ^ 0x40}, nil
		}
		return Token{}, xfererr.New(xfererr.ProtocolUnexpectedByte, "zdle: invalid escape sequence 0x%02x", b)
	}
}
