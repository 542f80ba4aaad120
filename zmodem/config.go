package zmodem

import (
	"io"
	"time"

	"github.com/kagelabs/xfer/xferlog"
)

// Config holds the tunables for a receive session, mirroring
// xmodem.Config's shape (retry/timeout/delay plus progress and logging)
// but scoped to ZMODEM's recv(base_directory, retry, timeout, delay)
// operation signature.
type Config struct {
	// Retry bounds negotiation attempts and the header error budget.
	// default: 16.
	Retry int

	// Timeout bounds every Channel.Get/Put call. default: 60s.
	Timeout time.Duration

	// Delay bounds the wait for a reply to each ZRINIT while awaiting
	// connection, i.e. the back-off between ZRINIT retransmissions; zero
	// uses Timeout instead. default: 1s.
	Delay time.Duration

	// OnProgress, if set, is called with the running byte count for the
	// file currently being received.
	OnProgress func(transferred int64)

	// OnFileOffer, if set, is consulted before accepting an incoming
	// file; returning false causes the file to be skipped via ZSKIP.
	// Defaults to accepting every file.
	OnFileOffer func(name string, size int64) bool

	// Open is called once per accepted file, before the first data
	// subpacket arrives, to obtain the destination for that file's bytes.
	// Each subpacket is written to it as it is decoded, so the receiver
	// never buffers a whole file in memory; the returned writer is closed
	// once the file completes or the receive fails partway through. Open
	// must be set for Recv to accept any file.
	Open func(name string, size int64, mtime time.Time) (io.WriteCloser, error)

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
