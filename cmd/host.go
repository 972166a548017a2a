package cmd

import (
	"context"
	stderrors "errors"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/grovetools/sessionlink/cli"
	"github.com/grovetools/sessionlink/internal/pidfile"
	"github.com/grovetools/sessionlink/pkg/host"
	"github.com/grovetools/sessionlink/pkg/paths"
	"github.com/grovetools/sessionlink/pkg/protocol"
	"github.com/grovetools/sessionlink/state"
	"github.com/grovetools/sessionlink/util/pathutil"
	"github.com/grovetools/sessionlink/version"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func NewHostCmd() *cobra.Command {
	var (
		socket  string
		listen  bool
		archive string
		noSave  bool
	)

	cmd := &cobra.Command{
		Use:   "host",
		Short: "Serve the host side of the protocol",
		Long: `Serve the host side of the protocol.

By default the host speaks length-prefixed frames on stdin and stdout, which
is how the native transport launches it. With --socket it listens on a unix
domain socket and serves each connection concurrently.

Every SESSION_SAVED record received is archived; see 'sessionlink sessions'.

Examples:
  sessionlink host
  sessionlink host --listen
  sessionlink host --socket /run/user/1000/sessionlink/host.sock`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := cli.GetLogger(cmd, "host")
			srv := host.NewServer(version.Name, version.Version)
			var store *state.Store
			if !noSave {
				dir, err := pathutil.Expand(archive)
				if err != nil {
					return err
				}
				store = state.NewStore(dir)
			}
			srv.OnMessage = func(m protocol.Message) {
				log.WithField("type", m.MessageType()).Info("Session message")
				rec, ok := m.(protocol.SessionSaved)
				if !ok || store == nil {
					return
				}
				if err := store.Save(rec); err != nil {
					log.WithError(err).WithField("session", rec.SessionID).Warn("Could not archive session")
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if socket == "" && !listen {
				return srv.Serve(ctx, os.Stdin, os.Stdout)
			}
			if socket == "" {
				socket = paths.SocketPath()
			}
			path, err := pathutil.Expand(socket)
			if err != nil {
				return err
			}
			return serveSocket(ctx, srv, path, log)
		},
	}

	cmd.Flags().StringVar(&socket, "socket", "", "Listen on this unix socket")
	cmd.Flags().BoolVar(&listen, "listen", false, "Listen on the default socket in the runtime dir")
	cmd.Flags().StringVar(&archive, "archive", state.DefaultDir(), "Directory where saved sessions are archived")
	cmd.Flags().BoolVar(&noSave, "no-archive", false, "Do not archive saved sessions")
	return cmd
}

func serveSocket(ctx context.Context, srv *host.Server, socket string, log *logrus.Entry) error {
	socket = filepath.Clean(socket)
	if err := os.MkdirAll(filepath.Dir(socket), 0o700); err != nil {
		return err
	}
	pid := socket + ".pid"
	if err := pidfile.Acquire(pid); err != nil {
		return err
	}
	defer pidfile.Release(pid)
	// A stale socket from a previous run blocks Listen.
	_ = os.Remove(socket)

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "unix", socket)
	if err != nil {
		return err
	}
	defer os.Remove(socket)
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	log.WithField("socket", socket).Info("Listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || stderrors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go func() {
			defer conn.Close()
			if err := srv.Serve(ctx, conn, conn); err != nil && ctx.Err() == nil {
				log.WithError(err).Warn("Connection ended")
			}
		}()
	}
}
