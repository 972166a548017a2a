package session

import (
	"context"
	"time"

	lerrors "github.com/grovetools/sessionlink/errors"
	"github.com/grovetools/sessionlink/pkg/protocol"
	"github.com/grovetools/sessionlink/pkg/transport"
)

// Probe opens a channel on t, sends one liveness probe and waits for its
// acknowledgement. It returns the round trip time including the open.
func Probe(ctx context.Context, t transport.Transport) (time.Duration, error) {
	acks := make(chan struct{}, 1)
	closed := make(chan error, 1)
	h := transport.Handler{
		OnMessage: func(data []byte) {
			m, err := protocol.Decode(data)
			if err == nil && protocol.IsPong(m) {
				select {
				case acks <- struct{}{}:
				default:
				}
			}
		},
		OnClose: func(err error) {
			select {
			case closed <- err:
			default:
			}
		},
	}

	start := time.Now()
	conn, err := t.Open(ctx, h)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	frame, err := protocol.Encode(protocol.Ping{ID: "probe", Action: "ping", Timestamp: protocol.Now(start)})
	if err != nil {
		return 0, err
	}
	if err := conn.Send(frame); err != nil {
		return 0, lerrors.ConnectionFailed("send probe", err)
	}

	select {
	case <-acks:
		return time.Since(start), nil
	case err := <-closed:
		return 0, lerrors.ConnectionFailed("host closed the channel", err)
	case <-ctx.Done():
		return 0, lerrors.Timeout("ping", time.Since(start))
	}
}
