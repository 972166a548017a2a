// Package transport provides the byte-level channels a bridge talks over:
// a native host subprocess on stdio, a unix socket, or a websocket.
package transport

import (
	"context"
	stderrors "errors"
	"io/fs"
	"net"
	"os"
	"os/exec"
	"syscall"

	lerrors "github.com/grovetools/sessionlink/errors"
)

// Handler receives inbound frames and the close notification of a Conn.
// OnClose fires at most once, and only when the peer or the channel failed;
// a local Close does not notify.
type Handler struct {
	OnMessage func(data []byte)
	OnClose   func(err error)
}

// Conn is an open channel. Send never blocks: it hands the frame to a writer
// goroutine and fails when the channel is closed or its buffer is full.
type Conn interface {
	Send(data []byte) error
	Close() error
}

// Transport opens Conns.
type Transport interface {
	Name() string
	Open(ctx context.Context, h Handler) (Conn, error)
}

var (
	// ErrClosed is returned by Send after the Conn shut down.
	ErrClosed = stderrors.New("transport: connection closed")
	// ErrBufferFull is returned by Send when the writer is too far behind.
	ErrBufferFull = stderrors.New("transport: send buffer full")
)

// DefaultSendBuffer is the number of frames a Conn buffers for its writer.
const DefaultSendBuffer = 64

// classifyOpenError maps a dial or spawn failure onto the link error codes.
func classifyOpenError(target string, err error) error {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, context.DeadlineExceeded), stderrors.Is(err, context.Canceled):
		return lerrors.ConnectionFailed("open "+target+" cancelled", err)
	case stderrors.Is(err, exec.ErrNotFound),
		stderrors.Is(err, fs.ErrNotExist),
		stderrors.Is(err, syscall.ECONNREFUSED):
		return lerrors.HostNotFound(target, err)
	case stderrors.Is(err, fs.ErrPermission), stderrors.Is(err, os.ErrPermission):
		return lerrors.PermissionDenied(target, err)
	}
	var opErr *net.OpError
	if stderrors.As(err, &opErr) && opErr.Timeout() {
		return lerrors.Wrap(err, lerrors.ErrCodeTimeout, "open "+target+" timed out")
	}
	return lerrors.ConnectionFailed("open "+target, err)
}
