package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"uuid unchanged", "3f2b8c1e-9a4d-4e0b-8f6a-2c1d7e5b9a10", "3f2b8c1e-9a4d-4e0b-8f6a-2c1d7e5b9a10"},
		{"uppercase", "Session-ABC", "session-abc"},
		{"path traversal", "../../etc/passwd", "etc-passwd"},
		{"spaces and dots", "my session.v2", "my-session-v2"},
		{"only symbols", "///", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ForFilename(tt.input))
		})
	}
}

func TestForFilenameTruncates(t *testing.T) {
	got := ForFilename(strings.Repeat("a", 100))
	assert.Len(t, got, maxFilenameLen)
}
