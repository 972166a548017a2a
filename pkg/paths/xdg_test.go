package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortableHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("SESSIONLINK_HOME", home)

	assert.Equal(t, filepath.Join(home, "config", "sessionlink"), ConfigDir())
	assert.Equal(t, filepath.Join(home, "state", "sessionlink"), StateDir())
	assert.Equal(t, filepath.Join(home, "state", "sessionlink", "logs"), LogDir())
	assert.Equal(t, filepath.Join(home, "run", "host.sock"), SocketPath())

	require.NoError(t, EnsureDirs())
	info, err := os.Stat(RuntimeDir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestXDG(t *testing.T) {
	t.Setenv("SESSIONLINK_HOME", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	t.Setenv("XDG_STATE_HOME", "/xdg/state")
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")

	assert.Equal(t, "/xdg/config/sessionlink", ConfigDir())
	assert.Equal(t, "/xdg/state/sessionlink", StateDir())
	assert.Equal(t, "/run/user/1000/sessionlink/host.sock", SocketPath())
}
