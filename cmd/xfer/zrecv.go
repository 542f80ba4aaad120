package main

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kagelabs/xfer/zmodem"
)

// chtimesOnClose closes the underlying file and then applies mtime, so a
// caller doesn't need a second round trip through the filesystem once
// zmodem.Receiver finishes writing.
type chtimesOnClose struct {
	*os.File
	path  string
	mtime time.Time
}

func (c *chtimesOnClose) Close() error {
	if err := c.File.Close(); err != nil {
		return err
	}
	if c.mtime.IsZero() {
		return nil
	}
	return os.Chtimes(c.path, c.mtime, c.mtime)
}

func newZRecvCommand(log *logrus.Logger) *cobra.Command {
	var retry int
	var timeout, delay time.Duration
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "zrecv <directory>",
		Short: "Receive a ZMODEM batch into a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			baseDir := args[0]
			if err := os.MkdirAll(baseDir, 0o755); err != nil {
				return err
			}

			cfg := zmodem.DefaultConfig()
			cfg.Retry, cfg.Timeout, cfg.Delay = retry, timeout, delay
			cfg.Logger = logrusLogger(log)
			cfg.OnProgress = func(n int64) {
				log.Debugf("zrecv: %d bytes so far", n)
			}
			cfg.OnFileOffer = func(name string, size int64) bool {
				dest := filepath.Join(baseDir, filepath.Base(name))
				if !overwrite {
					if _, err := os.Stat(dest); err == nil {
						log.Infof("zrecv: skipping existing file %s", name)
						return false
					}
				}
				log.Infof("zrecv: receiving %s (%d bytes)", name, size)
				return true
			}
			cfg.Open = func(name string, size int64, mtime time.Time) (io.WriteCloser, error) {
				dest := filepath.Join(baseDir, filepath.Base(name))
				f, err := os.Create(dest)
				if err != nil {
					return nil, err
				}
				return &chtimesOnClose{File: f, path: dest, mtime: mtime}, nil
			}

			ch := stdioChannel(cfg.Logger)
			count, err := zmodem.New(ch, cfg).Recv(cmd.Context())
			if err != nil {
				return err
			}
			log.Infof("zrecv: received %d file(s)", count)
			return nil
		},
	}

	addRetryTimeoutFlags(cmd, &retry, &timeout, &delay)
	cmd.Flags().BoolVarP(&overwrite, "overwrite", "y", false, "overwrite existing files")
	return cmd
}
