package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"
	"golang.org/x/term"

	"github.com/kagelabs/xfer/xferio"
	"github.com/kagelabs/xfer/zmodem"
)

// newSSHCommand dials an SSH host, starts the remote sender command (e.g.
// "sz file.bin"), and drives a ZMODEM receive over the session's
// stdin/stdout pipes via xferio.NewSSHChannel.
func newSSHCommand(log *logrus.Logger) *cobra.Command {
	var host, user, password, remoteCommand, baseDir string
	var retry int
	var timeout, delay time.Duration

	cmd := &cobra.Command{
		Use:   "ssh",
		Short: "Receive a ZMODEM batch over an SSH session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if host == "" || user == "" {
				return fmt.Errorf("--host and --user are required")
			}
			pass := password
			if pass == "" {
				pass = os.Getenv("XFER_SSH_PASSWORD")
			}
			if pass == "" && term.IsTerminal(int(os.Stdin.Fd())) {
				fmt.Fprintf(os.Stderr, "password for %s@%s: ", user, host)
				bytes, err := term.ReadPassword(int(os.Stdin.Fd()))
				fmt.Fprintln(os.Stderr)
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				pass = string(bytes)
			}

			client, err := ssh.Dial("tcp", host, &ssh.ClientConfig{
				User:            user,
				Auth:            []ssh.AuthMethod{ssh.Password(pass)},
				HostKeyCallback: ssh.InsecureIgnoreHostKey(),
				Timeout:         10 * time.Second,
			})
			if err != nil {
				return fmt.Errorf("dial %s: %w", host, err)
			}
			defer client.Close()

			sess, err := client.NewSession()
			if err != nil {
				return fmt.Errorf("new session: %w", err)
			}
			defer sess.Close()

			logger := logrusLogger(log)
			ch, stderr, closeFn, err := xferio.NewSSHChannel(sess, logger)
			if err != nil {
				return fmt.Errorf("ssh channel: %w", err)
			}
			defer closeFn()
			go io.Copy(os.Stderr, stderr)

			if err := sess.Start(remoteCommand); err != nil {
				return fmt.Errorf("start %q: %w", remoteCommand, err)
			}

			if err := os.MkdirAll(baseDir, 0o755); err != nil {
				return err
			}

			cfg := zmodem.DefaultConfig()
			cfg.Retry, cfg.Timeout, cfg.Delay = retry, timeout, delay
			cfg.Logger = logger
			cfg.Open = func(name string, size int64, mtime time.Time) (io.WriteCloser, error) {
				dest := filepath.Join(baseDir, filepath.Base(name))
				f, err := os.Create(dest)
				if err != nil {
					return nil, err
				}
				return &chtimesOnClose{File: f, path: dest, mtime: mtime}, nil
			}

			count, err := zmodem.New(ch, cfg).Recv(cmd.Context())
			if err != nil {
				return err
			}
			log.Infof("ssh: received %d file(s)", count)
			return sess.Wait()
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "SSH host (hostname:port)")
	cmd.Flags().StringVar(&user, "user", "", "SSH username")
	cmd.Flags().StringVar(&password, "password", "", "SSH password (or XFER_SSH_PASSWORD)")
	cmd.Flags().StringVar(&remoteCommand, "remote-command", "sz -", "remote command that starts a ZMODEM sender")
	cmd.Flags().StringVar(&baseDir, "dir", ".", "directory to write received files into")
	addRetryTimeoutFlags(cmd, &retry, &timeout, &delay)
	return cmd
}
