package zmodem

import (
	"context"

	"github.com/kagelabs/xfer/xferio"
)

// Protocol is the public ZMODEM receive-only endpoint: recv(base_directory,
// retry=16, timeout=60, delay=1) → file_count | none. Persisting received
// files under a base directory is the caller's responsibility via the
// Config.Open callback — the filesystem is an external collaborator, not
// something this package touches directly.
type Protocol struct {
	receiver *Receiver
}

// New constructs a ZMODEM receive endpoint. A nil cfg uses
// DefaultConfig().
func New(ch xferio.Channel, cfg *Config) *Protocol {
	return &Protocol{receiver: NewReceiver(ch, cfg)}
}

// Recv runs a full ZMODEM receive session and returns the number of
// files received.
func (p *Protocol) Recv(ctx context.Context) (int, error) {
	return p.receiver.Recv(ctx)
}
