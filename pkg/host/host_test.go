package host

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/grovetools/sessionlink/pkg/protocol"
	"github.com/grovetools/sessionlink/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandle(t *testing.T) {
	s := NewServer("synmem-host", "0.1.0")

	tests := []struct {
		name    string
		req     Request
		success bool
		data    string
		errMsg  string
	}{
		{"ping", Request{ID: "1", Action: "ping"}, true, `"pong"`, ""},
		{"version", Request{Action: "version"}, true, `{"name":"synmem-host","version":"0.1.0"}`, ""},
		{"echo", Request{Action: "echo", Payload: json.RawMessage(`{"a":1}`)}, true, `{"a":1}`, ""},
		{"placeholder", Request{Action: "scrape"}, false, "", "Action 'scrape' is not yet implemented"},
		{"unknown", Request{Action: "fly"}, false, "", "Unknown action: fly"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := s.Handle(tt.req)
			assert.Equal(t, tt.req.ID, resp.ID)
			assert.Equal(t, tt.success, resp.Success)
			if tt.data != "" {
				assert.JSONEq(t, tt.data, string(resp.Data))
			}
			assert.Equal(t, tt.errMsg, resp.Error)
		})
	}
}

func TestProcessTypedMessage(t *testing.T) {
	s := NewServer("h", "1")
	var got []protocol.Message
	s.OnMessage = func(m protocol.Message) { got = append(got, m) }

	reply, err := s.Process([]byte(`{"type":"DOM_CHANGED","url":"u","changes":[],"timestamp":1}`))
	require.NoError(t, err)
	assert.Nil(t, reply)
	require.Len(t, got, 1)
	assert.Equal(t, protocol.TypeDomChanged, got[0].MessageType())

	// A typed ping carries an action and is answered.
	reply, err = s.Process([]byte(`{"type":"PING","action":"ping","id":"p1","timestamp":1}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"p1","success":true,"data":"pong"}`, string(reply))

	_, err = s.Process([]byte(`{"url":"x"}`))
	assert.Error(t, err)
}

func TestServe(t *testing.T) {
	var in bytes.Buffer
	require.NoError(t, transport.WriteFrame(&in, []byte(`{"id":"1","action":"ping"}`)))
	require.NoError(t, transport.WriteFrame(&in, []byte(`not json`)))
	require.NoError(t, transport.WriteFrame(&in, []byte(`{"type":"PONG","timestamp":1}`)))
	require.NoError(t, transport.WriteFrame(&in, []byte(`{"action":"echo","payload":"hi"}`)))

	var out bytes.Buffer
	require.NoError(t, NewServer("h", "1").Serve(context.Background(), &in, &out))

	var replies []string
	for out.Len() > 0 {
		frame, err := transport.ReadFrame(&out)
		require.NoError(t, err)
		replies = append(replies, string(frame))
	}
	require.Len(t, replies, 3)
	assert.JSONEq(t, `{"id":"1","success":true,"data":"pong"}`, replies[0])
	assert.Contains(t, replies[1], `"success":false`)
	assert.JSONEq(t, `{"success":true,"data":"hi"}`, replies[2])
}
