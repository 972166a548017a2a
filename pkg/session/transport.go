package session

import (
	"net/http"
	"time"

	"github.com/grovetools/sessionlink/config"
	"github.com/grovetools/sessionlink/errors"
	"github.com/grovetools/sessionlink/pkg/paths"
	"github.com/grovetools/sessionlink/pkg/transport"
)

// NewTransport builds the transport described by the transport config.
func NewTransport(c config.TransportConfig) (transport.Transport, error) {
	switch c.Kind {
	case "", config.TransportNative:
		command := c.Command
		args := c.Args
		if command == "" {
			command = config.DefaultHostCommand
			args = []string{"host"}
		}
		return transport.NewNativeHost(command, args...), nil

	case config.TransportUnix:
		socket := c.Socket
		if socket == "" {
			socket = paths.SocketPath()
		}
		t := transport.NewUnixSocket(socket)
		if c.DialTimeoutMs > 0 {
			t.DialTimeout = time.Duration(c.DialTimeoutMs) * time.Millisecond
		}
		return t, nil

	case config.TransportWebSocket:
		t := transport.NewWebSocket(c.URL)
		if len(c.Headers) > 0 {
			t.Header = http.Header{}
			for k, v := range c.Headers {
				t.Header.Set(k, v)
			}
		}
		return t, nil
	}
	return nil, errors.ConfigInvalid("unknown transport kind: "+c.Kind).WithDetail("field", "transport.kind")
}
