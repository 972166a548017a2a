package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	lerrors "github.com/grovetools/sessionlink/errors"
	"github.com/grovetools/sessionlink/logging"
	"github.com/grovetools/sessionlink/pkg/host"
	"github.com/grovetools/sessionlink/pkg/protocol"
	"github.com/grovetools/sessionlink/pkg/session"
	"github.com/grovetools/sessionlink/pkg/transport"
	"github.com/grovetools/sessionlink/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("SESSIONLINK_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSchemaCmd(t *testing.T) {
	out, err := execute(t, "schema")
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Contains(t, doc, "properties")

	out, err = execute(t, "schema", "--inbound")
	require.NoError(t, err)
	assert.Contains(t, out, "PAGE_SCRAPED")
}

func TestPathsCmd(t *testing.T) {
	out, err := execute(t, "paths")
	require.NoError(t, err)
	var p PathsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, "host.sock", filepath.Base(p.Socket))
	assert.NotEmpty(t, p.ConfigDir)
}

func TestVersionCmdJSON(t *testing.T) {
	out, err := execute(t, "version", "--json")
	require.NoError(t, err)
	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "sessionlink", info["name"])
}

func TestConfigCmd(t *testing.T) {
	file := filepath.Join(t.TempDir(), "sessionlink.yml")
	require.NoError(t, os.WriteFile(file, []byte("version: \"1.0\"\nconnection:\n  max_pending: 7\n"), 0o644))

	out, err := execute(t, "config", "--config", file)
	require.NoError(t, err)
	assert.Contains(t, out, "max_pending: 7")
	assert.Contains(t, out, "debounce_ms: 500")
}

func TestRunRequiresPage(t *testing.T) {
	_, err := execute(t, "run")
	require.Error(t, err)
	assert.True(t, lerrors.Is(err, lerrors.ErrCodeInvalidInput))
}

func TestServeSocketAnswersProbe(t *testing.T) {
	dir, err := os.MkdirTemp("", "sl")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	socket := filepath.Join(dir, "host.sock")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	log := logging.NewLogger("host-test")
	go func() { done <- serveSocket(ctx, host.NewServer("sessionlink", "test"), socket, log) }()

	require.Eventually(t, func() bool {
		_, err := os.Stat(socket)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	probeCtx, probeCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer probeCancel()
	_, err = session.Probe(probeCtx, transport.NewUnixSocket(socket))
	require.NoError(t, err)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("socket server did not stop")
	}
	_, err = os.Stat(socket)
	assert.True(t, os.IsNotExist(err))
}

func TestSessionsCmd(t *testing.T) {
	dir := t.TempDir()
	store := state.NewStore(dir)
	require.NoError(t, store.Save(protocol.SessionSaved{
		SessionID:    "s-1",
		URL:          "https://example.com",
		LastActivity: 42,
		Pages:        []protocol.PageScraped{{URL: "https://example.com", Title: "Example"}},
	}))

	out, err := execute(t, "sessions", "--archive", dir, "--json")
	require.NoError(t, err)
	var recs []protocol.SessionSaved
	require.NoError(t, json.Unmarshal([]byte(out), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "s-1", recs[0].SessionID)

	out, err = execute(t, "sessions", "show", "s-1", "--archive", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "title: Example")

	_, err = execute(t, "sessions", "rm", "s-1", "--archive", dir)
	require.NoError(t, err)
	_, err = execute(t, "sessions", "show", "s-1", "--archive", dir)
	assert.True(t, lerrors.Is(err, lerrors.ErrCodeSessionNotFound))
}

func TestLogsCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessionlink.log")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\nthree\n"), 0o644))
	cfgFile := filepath.Join(t.TempDir(), "sessionlink.yml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("logging:\n  file:\n    enabled: true\n    path: "+path+"\n"), 0o644))

	out, err := execute(t, "logs", "-n", "2", "--config", cfgFile)
	require.NoError(t, err)
	assert.Equal(t, "two\nthree\n", out)

	out, err = execute(t, "logs", "--path", "--config", cfgFile)
	require.NoError(t, err)
	assert.Equal(t, path+"\n", out)
}
