package transport

import (
	"context"
	"net"
	"time"

	"github.com/grovetools/sessionlink/logging"
	"github.com/sirupsen/logrus"
)

// UnixSocket connects to a host that listens on a unix domain socket.
type UnixSocket struct {
	Path        string
	DialTimeout time.Duration

	log *logrus.Entry
}

func NewUnixSocket(path string) *UnixSocket {
	return &UnixSocket{
		Path:        path,
		DialTimeout: 5 * time.Second,
		log:         logging.NewLogger("transport.unix"),
	}
}

func (u *UnixSocket) Name() string { return "unix:" + u.Path }

func (u *UnixSocket) Open(ctx context.Context, h Handler) (Conn, error) {
	d := net.Dialer{Timeout: u.DialTimeout}
	nc, err := d.DialContext(ctx, "unix", u.Path)
	if err != nil {
		return nil, classifyOpenError(u.Path, err)
	}

	conn := newStreamConn(nc, nc, nc.Close, h, u.log.WithField("socket", u.Path))
	conn.start()
	return conn, nil
}
