// Package xfererr defines the error taxonomy shared by xmodem, ymodem, and
// zmodem: one Kind per failure mode named in the protocol, wrapped in a
// single Error type so callers can use errors.As across every protocol
// package in this module. Grounded on the classic rz/sz zmodem.Error /
// zmodem.ErrorType, generalized from a single package to the whole module.
package xfererr

import "fmt"

// Kind categorizes a transfer failure.
type Kind int

const (
	// NegotiationFailed means the initial CRC/NAK (or ZRINIT) negotiation
	// exceeded its retry budget.
	NegotiationFailed Kind = iota
	// SequenceMismatch means a packet's sequence byte pair didn't match
	// the expected sequence; recovered locally with NAK.
	SequenceMismatch
	// TrailerInvalid means a checksum or CRC-16 trailer didn't verify;
	// recovered locally with NAK.
	TrailerInvalid
	// ProtocolUnexpectedByte means a byte outside the expected alphabet
	// was seen where a control byte was required.
	ProtocolUnexpectedByte
	// PeerCancelled means the remote end cancelled (two CAN bytes for the
	// XMODEM family, one ZCAN indication for ZMODEM).
	PeerCancelled
	// ChannelFailure means Channel.Get or Channel.Put returned ok=false
	// beyond the operation's retry budget.
	ChannelFailure
	// OpenFailure means the receiver could not open its destination file.
	OpenFailure
	// InvalidHeader means a ZMODEM header's CRC did not verify.
	InvalidHeader
)

func (k Kind) String() string {
	switch k {
	case NegotiationFailed:
		return "negotiation failed"
	case SequenceMismatch:
		return "sequence mismatch"
	case TrailerInvalid:
		return "trailer invalid"
	case ProtocolUnexpectedByte:
		return "unexpected byte"
	case PeerCancelled:
		return "peer cancelled"
	case ChannelFailure:
		return "channel failure"
	case OpenFailure:
		return "open failure"
	case InvalidHeader:
		return "invalid header"
	default:
		return "unknown error"
	}
}

// Error is the error type returned by every Send/Recv operation in this
// module. It never wraps a panic — engines translate every failure path
// into one of these before returning.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("xfer: %s: %s", e.Kind, e.Message)
}

// New constructs an Error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Is reports whether err is an *Error of kind.
func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
