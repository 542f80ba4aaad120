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

func newYRecvCommand(log *logrus.Logger) *cobra.Command {
	var retry int
	var timeout, delay time.Duration

	cmd := &cobra.Command{
		Use:   "yrecv <directory>",
		Short: "Receive a YMODEM batch into a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			baseDir := args[0]
			if err := os.MkdirAll(baseDir, 0o755); err != nil {
				return err
			}

			cfg := xmodem.DefaultConfig()
			cfg.Retry, cfg.Timeout, cfg.Delay = retry, timeout, delay
			cfg.Logger = logrusLogger(log)
			cfg.OnProgress = func(n int64) {
				log.Debugf("yrecv: %d bytes so far", n)
			}

			ch := stdioChannel(cfg.Logger)
			count, err := ymodem.New(ch, cfg).Recv(cmd.Context(), func(f ymodem.ReceivedFile) error {
				dest := filepath.Join(baseDir, filepath.Base(f.Name))
				return os.WriteFile(dest, f.Data, 0o644)
			})
			if err != nil {
				return err
			}
			log.Infof("yrecv: received %d file(s)", count)
			return nil
		},
	}

	addRetryTimeoutFlags(cmd, &retry, &timeout, &delay)
	return cmd
}
