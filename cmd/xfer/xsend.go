package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kagelabs/xfer/xferio"
	"github.com/kagelabs/xfer/xmodem"
)

// newXModemProtocol picks the XMODEM variant constructor by name. All
// three return *xmodem.Protocol, so the CLI can treat them uniformly.
func newXModemProtocol(variant string, ch xferio.Channel, cfg *xmodem.Config) (*xmodem.Protocol, error) {
	switch variant {
	case "plain":
		return xmodem.New(ch, cfg), nil
	case "crc":
		return xmodem.NewCRC(ch, cfg), nil
	case "1k":
		return xmodem.New1K(ch, cfg), nil
	default:
		return nil, fmt.Errorf("unknown xmodem variant %q (want plain, crc, or 1k)", variant)
	}
}

func newXSendCommand(log *logrus.Logger) *cobra.Command {
	var retry int
	var timeout, delay time.Duration
	var variant string

	cmd := &cobra.Command{
		Use:   "xsend <file>",
		Short: "Send a file with XMODEM, XMODEM-CRC, or XMODEM-1K",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			cfg := xmodem.DefaultConfig()
			cfg.Retry, cfg.Timeout, cfg.Delay = retry, timeout, delay
			cfg.Logger = logrusLogger(log)
			cfg.OnProgress = func(n int64) {
				log.Debugf("xsend: %d/%d bytes", n, len(data))
			}

			ch := stdioChannel(cfg.Logger)
			proto, err := newXModemProtocol(variant, ch, cfg)
			if err != nil {
				return err
			}
			return proto.Send(cmd.Context(), data)
		},
	}

	addRetryTimeoutFlags(cmd, &retry, &timeout, &delay)
	cmd.Flags().StringVar(&variant, "variant", "crc", "protocol variant: plain, crc, or 1k")
	return cmd
}
