package xmodem

import (
	"time"

	"github.com/kagelabs/xfer/xferlog"
)

// Config holds the tunables the protocol exposes per operation (retry,
// timeout, negotiation delay) plus an optional progress callback. Grounded
// on the classic rz/sz SenderConfig/ReceiverConfig split, collapsed into one
// struct since the XMODEM engine is symmetric enough not to need two.
type Config struct {
	// Retry is the number of retransmission/negotiation attempts before
	// an operation fails. default: 16.
	Retry int

	// Timeout bounds every Channel.Get/Put call. default: 60s.
	Timeout time.Duration

	// Delay is the cooperative back-off between receiver negotiation
	// attempts. default: 1s.
	Delay time.Duration

	// OnProgress, if set, is called after each packet is sent or
	// received with the running byte count.
	OnProgress func(transferred int64)

	// Logger receives protocol-level diagnostics. Defaults to a no-op.
	Logger xferlog.Logger
}

// DefaultConfig returns the protocol defaults: retry=16, timeout=60s,
// delay=1s.
func DefaultConfig() *Config {
	return &Config{
		Retry:   16,
		Timeout: 60 * time.Second,
		Delay:   1 * time.Second,
		Logger:  xferlog.Noop{},
	}
}
