package xferio

import (
	"io"
	"time"

	"github.com/kagelabs/xfer/xferlog"
)

// deadlineSetter is implemented by transports that support per-operation
// deadlines, such as net.Conn. Grounded on the classic rz/sz
// zmodem.ReaderWithTimeout / the pack's transportReader.deadlineSetter.
type deadlineSetter interface {
	SetReadDeadline(time.Time) error
	SetWriteDeadline(time.Time) error
}

// StreamChannel adapts an io.ReadWriter into a Channel. When the
// underlying stream implements deadlineSetter (as net.Conn and net.Pipe's
// halves do), timeouts are enforced with real read/write deadlines; when
// it does not, Get falls back to a background read bounded by a timer.
// The fallback path may leak a goroutine blocked on the underlying Read
// past the timeout if the transport never becomes ready — acceptable for
// the pipes and test doubles this fallback exists for, but real
// transports should implement deadlineSetter.
type StreamChannel struct {
	rw     io.ReadWriter
	ds     deadlineSetter
	logger xferlog.Logger

	fallback chan []byte // primed lazily when ds is nil
}

// NewStreamChannel wraps rw as a Channel.
func NewStreamChannel(rw io.ReadWriter, logger xferlog.Logger) *StreamChannel {
	if logger == nil {
		logger = xferlog.Noop{}
	}
	sc := &StreamChannel{rw: rw, logger: logger}
	if ds, ok := rw.(deadlineSetter); ok {
		sc.ds = ds
	}
	return sc
}

func (c *StreamChannel) Get(size int, timeout time.Duration) ([]byte, bool) {
	if size <= 0 {
		return nil, true
	}
	if c.ds != nil {
		return c.getWithDeadline(size, timeout)
	}
	return c.getWithTimer(size, timeout)
}

func (c *StreamChannel) getWithDeadline(size int, timeout time.Duration) ([]byte, bool) {
	if timeout > 0 {
		if err := c.ds.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			c.logger.Error("xferio: set read deadline: %v", err)
			return nil, false
		}
		defer c.ds.SetReadDeadline(time.Time{})
	}
	buf := make([]byte, size)
	n, err := io.ReadFull(c.rw, buf)
	if err != nil {
		c.logger.Debug("xferio: get(%d) failed after %d bytes: %v", size, n, err)
		return nil, false
	}
	return buf, true
}

type readResult struct {
	buf []byte
	err error
}

func (c *StreamChannel) getWithTimer(size int, timeout time.Duration) ([]byte, bool) {
	resultCh := make(chan readResult, 1)
	go func() {
		buf := make([]byte, size)
		_, err := io.ReadFull(c.rw, buf)
		resultCh <- readResult{buf: buf, err: err}
	}()

	if timeout <= 0 {
		res := <-resultCh
		if res.err != nil {
			return nil, false
		}
		return res.buf, true
	}

	select {
	case res := <-resultCh:
		if res.err != nil {
			c.logger.Debug("xferio: get(%d) failed: %v", size, res.err)
			return nil, false
		}
		return res.buf, true
	case <-time.After(timeout):
		c.logger.Debug("xferio: get(%d) timed out after %s", size, timeout)
		return nil, false
	}
}

func (c *StreamChannel) Put(data []byte, timeout time.Duration) (int, bool) {
	if c.ds != nil && timeout > 0 {
		if err := c.ds.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			c.logger.Error("xferio: set write deadline: %v", err)
			return 0, false
		}
		defer c.ds.SetWriteDeadline(time.Time{})
	}
	n, err := c.rw.Write(data)
	if err != nil {
		c.logger.Debug("xferio: put(%d bytes) failed after %d: %v", len(data), n, err)
		return n, false
	}
	return n, true
}

var _ Channel = (*StreamChannel)(nil)
