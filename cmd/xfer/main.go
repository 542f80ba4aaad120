// Command xfer drives the xmodem/ymodem/zmodem packages over a local
// serial-style pipe (stdin/stdout) or an SSH session. Grounded on the
// classic rz/sz-style CLIs, rebuilt on cobra for subcommand dispatch
// instead of one flag.Bool-laden binary per direction.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	root := newRootCommand(log)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand(log *logrus.Logger) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "xfer",
		Short: "Send and receive files with XMODEM, YMODEM, and ZMODEM",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newXSendCommand(log),
		newXRecvCommand(log),
		newYSendCommand(log),
		newYRecvCommand(log),
		newZRecvCommand(log),
		newSSHCommand(log),
	)
	return root
}
