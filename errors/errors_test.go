package errors

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkError(t *testing.T) {
	err := New(ErrCodeInvalidMessage, "bad frame")
	assert.Equal(t, ErrCodeInvalidMessage, err.Code)
	assert.Equal(t, "INVALID_MESSAGE: bad frame", err.Error())

	cause := fmt.Errorf("underlying error")
	wrapped := Wrap(cause, ErrCodeConnectionFailed, "dial failed")
	assert.Equal(t, cause, wrapped.Unwrap())
	assert.Contains(t, wrapped.Error(), "caused by: underlying error")

	assert.True(t, Is(wrapped, ErrCodeConnectionFailed))
	assert.False(t, Is(wrapped, ErrCodeTimeout))
	assert.False(t, Is(nil, ErrCodeTimeout))

	detailed := err.WithDetail("size", 12).WithDetail("kind", "frame")
	assert.Equal(t, 12, detailed.Details["size"])
	assert.Equal(t, "frame", detailed.Details["kind"])
}

func TestIsThroughWrapping(t *testing.T) {
	inner := Timeout("connect", 10*time.Second)
	outer := Wrap(inner, ErrCodeConnectionFailed, "attempt failed")
	foreign := fmt.Errorf("context: %w", outer)

	assert.True(t, Is(foreign, ErrCodeConnectionFailed))
	assert.True(t, Is(foreign, ErrCodeTimeout))
	assert.Equal(t, ErrCodeConnectionFailed, GetCode(foreign))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrCodeUnknown, CodeOf(fmt.Errorf("plain")))
	assert.Equal(t, ErrCodeTimeout, CodeOf(Timeout("x", time.Second)))
	assert.Equal(t, ErrorCode(""), GetCode(nil))
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *LinkError
		code ErrorCode
		key  string
		want interface{}
	}{
		{"host not found", HostNotFound("/usr/bin/host", fmt.Errorf("enoent")), ErrCodeNativeHostNotFound, "target", "/usr/bin/host"},
		{"permission", PermissionDenied("/tmp/s.sock", fmt.Errorf("eacces")), ErrCodePermissionDenied, "target", "/tmp/s.sock"},
		{"timeout", Timeout("connect", 2*time.Second), ErrCodeTimeout, "timeout", "2s"},
		{"config not found", ConfigNotFound("/x/sessionlink.yml"), ErrCodeConfigNotFound, "path", "/x/sessionlink.yml"},
		{"host exited", HostExited("host", fmt.Errorf("boom")), ErrCodeConnectionFailed, "command", "host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotNil(t, tt.err)
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.want, tt.err.Details[tt.key])
		})
	}

	assert.Nil(t, ConnectionFailed("no cause", nil).Cause)
	assert.Contains(t, ConfigInvalid("bad").Error(), "invalid configuration: bad")
	assert.Contains(t, InvalidMessage("not json", nil).ToJSON(), `"code": "INVALID_MESSAGE"`)
}
