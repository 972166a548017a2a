package transport

import (
	"context"

	"github.com/grovetools/sessionlink/command"
	lerrors "github.com/grovetools/sessionlink/errors"
	"github.com/grovetools/sessionlink/logging"
	"github.com/sirupsen/logrus"
)

// NativeHost launches the host executable and exchanges frames over its
// stdin and stdout. Its stderr is forwarded to the debug log.
type NativeHost struct {
	Command string
	Args    []string

	builder *command.SafeBuilder
	log     *logrus.Entry
}

// NewNativeHost creates a transport for the given host command line.
func NewNativeHost(cmd string, args ...string) *NativeHost {
	return &NativeHost{
		Command: cmd,
		Args:    args,
		builder: command.NewSafeBuilder(),
		log:     logging.NewLogger("transport.native"),
	}
}

// WithExecutor swaps the process launcher, mostly for tests.
func (n *NativeHost) WithExecutor(exec command.Executor) *NativeHost {
	n.builder = command.NewSafeBuilderWithExecutor(exec)
	return n
}

func (n *NativeHost) Name() string { return "native:" + n.Command }

func (n *NativeHost) Open(ctx context.Context, h Handler) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, classifyOpenError(n.Command, err)
	}
	built, err := n.builder.Build(n.Command, n.Args...)
	if err != nil {
		return nil, lerrors.Wrap(err, lerrors.ErrCodeInvalidInput, "invalid native host command")
	}

	// The process outlives the Open call; Close cancels procCtx.
	procCtx, cancel := context.WithCancel(context.Background())
	cmd := built.Exec(procCtx)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, lerrors.ConnectionFailed("stdin pipe", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, lerrors.ConnectionFailed("stdout pipe", err)
	}
	stderr := n.log.WriterLevel(logrus.DebugLevel)
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		cancel()
		stderr.Close()
		return nil, classifyOpenError(n.Command, err)
	}
	log := n.log.WithField("pid", cmd.Process.Pid)
	log.Debug("Native host started")

	closer := func() error {
		err := stdin.Close()
		cancel()
		return err
	}
	conn := newStreamConn(stdout, stdin, closer, h, log)
	conn.start()

	go func() {
		conn.wait()
		if err := cmd.Wait(); err != nil && procCtx.Err() == nil {
			log.WithError(lerrors.HostExited(n.Command, err)).Warn("Native host exited")
		} else {
			log.Debugf("Native host exited (%v)", cmd.ProcessState)
		}
		stderr.Close()
	}()

	return conn, nil
}
