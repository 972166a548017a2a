package transport_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	lerrors "github.com/grovetools/sessionlink/errors"
	"github.com/grovetools/sessionlink/pkg/host"
	"github.com/grovetools/sessionlink/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inbox struct {
	mu     sync.Mutex
	frames []string
}

func (i *inbox) add(data []byte) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.frames = append(i.frames, string(data))
}

func (i *inbox) get() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]string(nil), i.frames...)
}

func pingRoundTrip(t *testing.T, tr transport.Transport) {
	t.Helper()
	box := &inbox{}
	conn, err := tr.Open(context.Background(), transport.Handler{OnMessage: box.add})
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.Send([]byte(`{"type":"PING","action":"ping","id":"p1","timestamp":1}`)))
	require.Eventually(t, func() bool { return len(box.get()) == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.JSONEq(t, `{"id":"p1","success":true,"data":"pong"}`, box.get()[0])
}

func TestUnixSocket(t *testing.T) {
	dir, err := os.MkdirTemp("", "sl")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	sock := filepath.Join(dir, "host.sock")

	ln, err := net.Listen("unix", sock)
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer c.Close()
				_ = host.NewServer("h", "1").Serve(context.Background(), c, c)
			}()
		}
	}()

	pingRoundTrip(t, transport.NewUnixSocket(sock))
}

func TestUnixSocketMissing(t *testing.T) {
	_, err := transport.NewUnixSocket(filepath.Join(t.TempDir(), "absent.sock")).
		Open(context.Background(), transport.Handler{})
	assert.True(t, lerrors.Is(err, lerrors.ErrCodeNativeHostNotFound), "got %v", err)
}

func TestWebSocket(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		s := host.NewServer("h", "1")
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			reply, err := s.Process(data)
			if err != nil || reply == nil {
				continue
			}
			if err := ws.WriteMessage(websocket.TextMessage, reply); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	pingRoundTrip(t, transport.NewWebSocket("ws"+strings.TrimPrefix(srv.URL, "http")))
}

func TestWebSocketForbidden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := transport.NewWebSocket("ws"+strings.TrimPrefix(srv.URL, "http")).
		Open(context.Background(), transport.Handler{})
	assert.True(t, lerrors.Is(err, lerrors.ErrCodePermissionDenied), "got %v", err)
}

// helperExecutor re-runs the test binary as a native host.
type helperExecutor struct{}

func (helperExecutor) CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperNativeHost")
	cmd.Env = append(os.Environ(), "SESSIONLINK_HELPER_HOST=1")
	return cmd
}

func TestHelperNativeHost(t *testing.T) {
	if os.Getenv("SESSIONLINK_HELPER_HOST") != "1" {
		return
	}
	_ = host.NewServer("helper", "1").Serve(context.Background(), os.Stdin, os.Stdout)
	os.Exit(0)
}

func TestNativeHost(t *testing.T) {
	pingRoundTrip(t, transport.NewNativeHost("helper-host").WithExecutor(helperExecutor{}))
}

func TestNativeHostNotFound(t *testing.T) {
	_, err := transport.NewNativeHost("/nonexistent/sessionlink-host").Open(context.Background(), transport.Handler{})
	assert.True(t, lerrors.Is(err, lerrors.ErrCodeNativeHostNotFound), "got %v", err)

	_, err = transport.NewNativeHost("relative/host").Open(context.Background(), transport.Handler{})
	assert.True(t, lerrors.Is(err, lerrors.ErrCodeInvalidInput), "got %v", err)
}
