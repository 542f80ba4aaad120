package main

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kagelabs/xfer/xmodem"
)

func newXRecvCommand(log *logrus.Logger) *cobra.Command {
	var retry int
	var timeout, delay time.Duration
	var variant string

	cmd := &cobra.Command{
		Use:   "xrecv <file>",
		Short: "Receive a file with XMODEM, XMODEM-CRC, or XMODEM-1K",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := xmodem.DefaultConfig()
			cfg.Retry, cfg.Timeout, cfg.Delay = retry, timeout, delay
			cfg.Logger = logrusLogger(log)
			cfg.OnProgress = func(n int64) {
				log.Debugf("xrecv: %d bytes so far", n)
			}

			ch := stdioChannel(cfg.Logger)
			proto, err := newXModemProtocol(variant, ch, cfg)
			if err != nil {
				return err
			}

			data, err := proto.Recv(cmd.Context())
			if err != nil {
				return err
			}
			return os.WriteFile(args[0], data, 0o644)
		},
	}

	addRetryTimeoutFlags(cmd, &retry, &timeout, &delay)
	cmd.Flags().StringVar(&variant, "variant", "crc", "protocol variant: plain, crc, or 1k")
	return cmd
}
