package command

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateHostPath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"bare name", "synmem-host", false},
		{"absolute path", "/usr/local/bin/synmem-host", false},
		{"empty", "", true},
		{"relative with dir", "bin/host", true},
		{"traversal", "/usr/bin/../../etc/host", true},
		{"shell metachar", "host;rm -rf /", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateHostPath(tt.input)
			assert.Equal(t, tt.wantErr, err != nil, "validateHostPath(%q) = %v", tt.input, err)
		})
	}
}

func TestValidateOrigin(t *testing.T) {
	assert.NoError(t, validateOrigin("chrome-extension://abcdefghijklmnop/"))
	assert.NoError(t, validateOrigin("moz-extension://4b3e-11aa"))
	assert.Error(t, validateOrigin("not an origin"))
	assert.Error(t, validateOrigin("chrome-extension://id/path/extra"))
}

func TestSafeBuilderValidate(t *testing.T) {
	sb := NewSafeBuilder()
	assert.NoError(t, sb.Validate("hostArg", "--stdio"))
	assert.Error(t, sb.Validate("hostArg", "bad`arg"))
	assert.Error(t, sb.Validate("unknown", "x"))
}

type recordingExecutor struct {
	name string
	args []string
}

func (r *recordingExecutor) CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	r.name, r.args = name, args
	return exec.CommandContext(ctx, name, args...)
}

func TestBuildUsesExecutor(t *testing.T) {
	rec := &recordingExecutor{}
	sb := NewSafeBuilderWithExecutor(rec)

	cmd, err := sb.Build("/opt/host", "chrome-extension://abc/")
	require.NoError(t, err)
	assert.Equal(t, "/opt/host", cmd.Name())

	c := cmd.Exec(context.Background())
	require.NotNil(t, c)
	assert.Equal(t, "/opt/host", rec.name)
	assert.Equal(t, []string{"chrome-extension://abc/"}, rec.args)

	_, err = sb.Build("/opt/host", "ok", "bad\x00")
	assert.Error(t, err)
}
