package transport

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os/exec"
	"sync"
	"syscall"
	"testing"
	"time"

	lerrors "github.com/grovetools/sessionlink/errors"
	"github.com/grovetools/sessionlink/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyOpenError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code lerrors.ErrorCode
	}{
		{"missing binary", &exec.Error{Name: "host", Err: exec.ErrNotFound}, lerrors.ErrCodeNativeHostNotFound},
		{"missing socket", &net.OpError{Op: "dial", Err: &fs.PathError{Op: "connect", Err: syscall.ENOENT}}, lerrors.ErrCodeNativeHostNotFound},
		{"refused", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, lerrors.ErrCodeNativeHostNotFound},
		{"permission", &fs.PathError{Op: "fork/exec", Err: syscall.EACCES}, lerrors.ErrCodePermissionDenied},
		{"cancelled", context.Canceled, lerrors.ErrCodeConnectionFailed},
		{"other", fmt.Errorf("boom"), lerrors.ErrCodeConnectionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, lerrors.GetCode(classifyOpenError("target", tt.err)))
		})
	}
	assert.NoError(t, classifyOpenError("target", nil))
}

func TestStreamConnExchangesFrames(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()

	var mu sync.Mutex
	var got []string
	closed := make(chan error, 1)
	conn := newStreamConn(local, local, local.Close, Handler{
		OnMessage: func(data []byte) {
			mu.Lock()
			got = append(got, string(data))
			mu.Unlock()
		},
		OnClose: func(err error) { closed <- err },
	}, logging.NewLogger("test"))
	conn.start()

	require.NoError(t, conn.Send([]byte(`{"n":1}`)))
	frame, err := ReadFrame(remote)
	require.NoError(t, err)
	assert.Equal(t, `{"n":1}`, string(frame))

	require.NoError(t, WriteFrame(remote, []byte(`{"n":2}`)))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && got[0] == `{"n":2}`
	}, time.Second, 5*time.Millisecond)

	remote.Close()
	select {
	case err := <-closed:
		assert.ErrorIs(t, err, io.EOF)
	case <-time.After(time.Second):
		t.Fatal("expected close notification")
	}
	assert.ErrorIs(t, conn.Send([]byte("x")), ErrClosed)
}

func TestLocalCloseDoesNotNotify(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()

	notified := make(chan struct{}, 1)
	conn := newStreamConn(local, local, local.Close, Handler{
		OnClose: func(error) { notified <- struct{}{} },
	}, logging.NewLogger("test"))
	conn.start()

	require.NoError(t, conn.Close())
	conn.wait()

	select {
	case <-notified:
		t.Fatal("local close must not notify")
	default:
	}
	assert.ErrorIs(t, conn.Send([]byte("x")), ErrClosed)
}

func TestLocalCloseWritesBufferedFrames(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()

	conn := newStreamConn(local, local, local.Close, Handler{}, logging.NewLogger("test"))
	conn.start()

	require.NoError(t, conn.Send([]byte(`{"n":1}`)))
	require.NoError(t, conn.Send([]byte(`{"n":2}`)))
	require.NoError(t, conn.Close())

	for _, want := range []string{`{"n":1}`, `{"n":2}`} {
		frame, err := ReadFrame(remote)
		require.NoError(t, err)
		assert.Equal(t, want, string(frame))
	}
	_, err := ReadFrame(remote)
	assert.Error(t, err)
	conn.wait()
}

func TestSendBufferFull(t *testing.T) {
	block := make(chan struct{})
	conn := newPumpConn(
		func() ([]byte, error) { <-block; return nil, io.EOF },
		func([]byte) error { <-block; return nil },
		func() error { return nil },
		Handler{}, logging.NewLogger("test"))
	conn.start()
	defer func() {
		close(block)
		conn.Close()
	}()

	var err error
	for i := 0; i < DefaultSendBuffer+2 && err == nil; i++ {
		err = conn.Send([]byte("x"))
	}
	assert.ErrorIs(t, err, ErrBufferFull)
}
