package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	lerrors "github.com/grovetools/sessionlink/errors"
	"github.com/grovetools/sessionlink/logging"
	"github.com/sirupsen/logrus"
)

const wsWriteTimeout = 5 * time.Second

// WebSocket connects to a host over a websocket, one text message per frame.
type WebSocket struct {
	URL    string
	Header http.Header
	Dialer *websocket.Dialer

	log *logrus.Entry
}

func NewWebSocket(url string) *WebSocket {
	return &WebSocket{
		URL:    url,
		Dialer: websocket.DefaultDialer,
		log:    logging.NewLogger("transport.websocket"),
	}
}

func (w *WebSocket) Name() string { return "websocket:" + w.URL }

func (w *WebSocket) Open(ctx context.Context, h Handler) (Conn, error) {
	ws, resp, err := w.Dialer.DialContext(ctx, w.URL, w.Header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, lerrors.PermissionDenied(w.URL, err).WithDetail("status", resp.StatusCode)
		}
		return nil, classifyOpenError(w.URL, err)
	}
	ws.SetReadLimit(MaxFrameSize)

	read := func() ([]byte, error) {
		_, data, err := ws.ReadMessage()
		return data, err
	}
	write := func(data []byte) error {
		if err := ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
			return err
		}
		return ws.WriteMessage(websocket.TextMessage, data)
	}
	closer := func() error {
		deadline := time.Now().Add(time.Second)
		_ = ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		return ws.Close()
	}

	conn := newPumpConn(read, write, closer, h, w.log.WithField("url", w.URL))
	conn.start()
	return conn, nil
}
