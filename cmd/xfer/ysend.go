package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kagelabs/xfer/xmodem"
	"github.com/kagelabs/xfer/ymodem"
)

func newYSendCommand(log *logrus.Logger) *cobra.Command {
	var retry int
	var timeout, delay time.Duration

	cmd := &cobra.Command{
		Use:   "ysend <pattern>",
		Short: "Send a batch of files matching a glob pattern with YMODEM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Filesystem discovery is the CLI's job, not the library's:
			// ymodem.Send takes an already-iterated list.
			matches, err := filepath.Glob(args[0])
			if err != nil {
				return err
			}

			files := make([]ymodem.FileEntry, 0, len(matches))
			var closers []*os.File
			defer func() {
				for _, f := range closers {
					f.Close()
				}
			}()
			for _, path := range matches {
				info, err := os.Stat(path)
				if err != nil {
					return err
				}
				if info.IsDir() {
					continue
				}
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				closers = append(closers, f)
				files = append(files, ymodem.FileEntry{
					Name:   filepath.Base(path),
					Size:   info.Size(),
					Reader: f,
				})
			}

			cfg := xmodem.DefaultConfig()
			cfg.Retry, cfg.Timeout, cfg.Delay = retry, timeout, delay
			cfg.Logger = logrusLogger(log)
			cfg.OnProgress = func(n int64) {
				log.Debugf("ysend: %d bytes so far", n)
			}

			ch := stdioChannel(cfg.Logger)
			return ymodem.New(ch, cfg).Send(cmd.Context(), files)
		},
	}

	addRetryTimeoutFlags(cmd, &retry, &timeout, &delay)
	return cmd
}
