package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grovetools/sessionlink/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindLatestLogFile(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "run-2026-01-01.log")
	newer := filepath.Join(dir, "run-2026-01-02.log")
	empty := filepath.Join(dir, "run-2026-01-03.log")
	require.NoError(t, os.WriteFile(old, []byte("a\n"), 0o644))
	require.NoError(t, os.WriteFile(newer, []byte("b\n"), 0o644))
	require.NoError(t, os.WriteFile(empty, nil, 0o644))

	now := time.Now()
	require.NoError(t, os.Chtimes(old, now.Add(-2*time.Hour), now.Add(-2*time.Hour)))
	require.NoError(t, os.Chtimes(newer, now.Add(-time.Hour), now.Add(-time.Hour)))
	require.NoError(t, os.Chtimes(empty, now, now))

	got, err := FindLatestLogFile(dir)
	require.NoError(t, err)
	assert.Equal(t, newer, got)

	_, err = FindLatestLogFile(t.TempDir())
	assert.Error(t, err)
}

func TestFindLogFileExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom", "host.log")
	cfg, err := config.LoadFromBytes([]byte("logging:\n  file:\n    enabled: true\n    path: "+path+"\n"), config.FormatYAML)
	require.NoError(t, err)

	file, dir, err := FindLogFile(cfg)
	require.NoError(t, err)
	assert.Equal(t, path, file)
	assert.Equal(t, filepath.Dir(path), dir)
}

func TestFindLogFileDefaultDir(t *testing.T) {
	t.Setenv("SESSIONLINK_HOME", t.TempDir())
	_, _, err := FindLogFile(nil)
	assert.Error(t, err)
}
