package main

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kagelabs/xfer/xferio"
	"github.com/kagelabs/xfer/xferlog"
)

// stdioReadWriter joins stdin/stdout into one io.ReadWriter, the same
// join pattern xferio.sshReadWriter uses for an SSH session's pipes.
type stdioReadWriter struct{}

func (stdioReadWriter) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdioReadWriter) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

func stdioChannel(log xferlog.Logger) xferio.Channel {
	return xferio.NewStreamChannel(stdioReadWriter{}, log)
}

// addRetryTimeoutFlags registers the retry/timeout/delay flags the protocol
// exposes per operation, with its documented defaults.
func addRetryTimeoutFlags(cmd *cobra.Command, retry *int, timeout, delay *time.Duration) {
	cmd.Flags().IntVar(retry, "retry", 16, "negotiation/packet retry budget")
	cmd.Flags().DurationVar(timeout, "timeout", 60*time.Second, "channel read/write timeout")
	cmd.Flags().DurationVar(delay, "delay", time.Second, "receiver negotiation back-off")
}

func logrusLogger(log *logrus.Logger) xferlog.Logger {
	return xferlog.NewLogrus(log)
}

var _ io.ReadWriter = stdioReadWriter{}
