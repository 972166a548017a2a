// Package host implements the native host side of the link: it answers
// action requests and collects the typed session messages a client streams.
package host

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"

	lerrors "github.com/grovetools/sessionlink/errors"
	"github.com/grovetools/sessionlink/logging"
	"github.com/grovetools/sessionlink/pkg/protocol"
	"github.com/grovetools/sessionlink/pkg/transport"
	"github.com/sirupsen/logrus"
)

// Request is an action request, e.g. {"id":"1","action":"ping"}.
type Request struct {
	ID      string          `json:"id,omitempty"`
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Server answers requests read from one stream.
type Server struct {
	Name    string
	Version string
	// OnMessage receives every typed session message (DOM_CHANGED, ...).
	OnMessage func(protocol.Message)

	log *logrus.Entry
}

func NewServer(name, version string) *Server {
	return &Server{
		Name:    name,
		Version: version,
		log:     logging.NewLogger("host"),
	}
}

// Handle answers a single request.
func (s *Server) Handle(req Request) protocol.Response {
	s.log.WithFields(logrus.Fields{"action": req.Action, "id": req.ID}).Debug("Handling request")

	switch req.Action {
	case "ping":
		return success(req.ID, "pong")
	case "version":
		return success(req.ID, map[string]string{"name": s.Name, "version": s.Version})
	case "echo":
		return protocol.Response{ID: req.ID, Success: true, Data: req.Payload}
	case "scrape", "search", "navigate", "store":
		s.log.WithField("action", req.Action).Warn("Action not yet implemented")
		return failure(req.ID, fmt.Sprintf("Action '%s' is not yet implemented", req.Action))
	default:
		s.log.WithField("action", req.Action).Warn("Unknown action")
		return failure(req.ID, fmt.Sprintf("Unknown action: %s", req.Action))
	}
}

// Process turns one inbound frame into an optional reply frame. Typed
// session messages without an action are delivered to OnMessage and get no
// reply.
func (s *Server) Process(frame []byte) ([]byte, error) {
	var probe struct {
		Type   protocol.Type `json:"type"`
		Action *string       `json:"action"`
	}
	if err := json.Unmarshal(frame, &probe); err != nil {
		return nil, lerrors.InvalidMessage("malformed request", err)
	}

	if probe.Type != "" && probe.Action == nil {
		msg, err := protocol.Decode(frame)
		if err != nil {
			return nil, err
		}
		if s.OnMessage != nil {
			s.OnMessage(msg)
		}
		return nil, nil
	}
	if probe.Action == nil {
		return nil, lerrors.InvalidMessage("missing action", nil)
	}

	var req Request
	if err := json.Unmarshal(frame, &req); err != nil {
		return nil, lerrors.InvalidMessage("malformed request", err)
	}
	return protocol.Encode(s.Handle(req))
}

// Serve reads frames from r and writes replies to w until r ends or ctx is
// cancelled. A clean end of input returns nil.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	s.log.Info("Native host serving")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame, err := transport.ReadFrame(r)
		if stderrors.Is(err, io.EOF) {
			s.log.Info("Input closed, shutting down")
			return nil
		}
		if err != nil {
			return err
		}

		reply, err := s.Process(frame)
		if err != nil {
			s.log.WithError(err).Warn("Dropping frame")
			reply, _ = protocol.Encode(failure("", err.Error()))
		}
		if reply == nil {
			continue
		}
		if err := transport.WriteFrame(w, reply); err != nil {
			return err
		}
	}
}

func success(id string, data interface{}) protocol.Response {
	raw, _ := json.Marshal(data)
	return protocol.Response{ID: id, Success: true, Data: raw}
}

func failure(id, msg string) protocol.Response {
	return protocol.Response{ID: id, Success: false, Error: msg}
}
