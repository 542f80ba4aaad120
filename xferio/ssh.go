package xferio

import (
	"io"

	"github.com/kagelabs/xfer/xferlog"
	"golang.org/x/crypto/ssh"
)

// sshReadWriter joins an SSH session's stdout/stdin pipes into a single
// io.ReadWriter. Grounded on the classic rz/sz zmodem/ssh.go SSHSession, which
// wraps the same pair of pipes; ssh.Session's pipes implement neither
// SetReadDeadline nor SetWriteDeadline, so a StreamChannel built over this
// always takes the goroutine-timer fallback path rather than real
// deadlines.
type sshReadWriter struct {
	r io.Reader
	w io.WriteCloser
}

func (s *sshReadWriter) Read(p []byte) (int, error)  { return s.r.Read(p) }
func (s *sshReadWriter) Write(p []byte) (int, error) { return s.w.Write(p) }

// NewSSHChannel attaches to sess (which must not yet have been started;
// the caller starts it afterwards) and returns a Channel backed by its
// stdin/stdout pipes, plus the session's stderr for diagnostic output,
// and a close function that closes the session's stdin pipe. Callers are expected to have already dialed and
// authenticated the underlying *ssh.Client; this adapter only owns the
// session's I/O plumbing, matching the library's "transport is an
// external collaborator" scope.
func NewSSHChannel(sess *ssh.Session, logger xferlog.Logger) (ch Channel, stderr io.Reader, closeFn func() error, err error) {
	stdin, err := sess.StdinPipe()
	if err != nil {
		return nil, nil, nil, err
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		return nil, nil, nil, err
	}
	stderrPipe, err := sess.StderrPipe()
	if err != nil {
		return nil, nil, nil, err
	}

	rw := &sshReadWriter{r: stdout, w: stdin}
	channel := NewStreamChannel(rw, logger)

	return channel, stderrPipe, func() error {
		return stdin.Close()
	}, nil
}
