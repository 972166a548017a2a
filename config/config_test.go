package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/grovetools/sessionlink/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := LoadFromBytes(nil, FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, "1.0", cfg.Version)
	require.NotNil(t, cfg.Connection.MaxReconnectAttempts)
	assert.Equal(t, 5, *cfg.Connection.MaxReconnectAttempts)
	assert.Equal(t, 1000, cfg.Connection.BaseReconnectDelayMs)
	assert.Equal(t, 30000, cfg.Connection.MaxReconnectDelayMs)
	assert.Equal(t, 30000, cfg.Connection.HeartbeatIntervalMs)
	assert.Equal(t, 10000, cfg.Connection.ConnectTimeoutMs)
	assert.Equal(t, 100, cfg.Connection.ConfirmWindowMs)
	require.NotNil(t, cfg.Connection.MaxPending)
	assert.Equal(t, 1000, *cfg.Connection.MaxPending)
	assert.Equal(t, 500, cfg.Aggregator.DebounceMs)
	assert.Equal(t, 100, cfg.Aggregator.MaxRecords)
	assert.Equal(t, 10, cfg.Aggregator.MaxNodePaths)
	assert.Equal(t, TransportNative, cfg.Transport.Kind)
	assert.Equal(t, DefaultHostCommand, cfg.Transport.Command)
	assert.Equal(t, []string{"host"}, cfg.Transport.Args)
	assert.Equal(t, 50, cfg.Session.MaxPages)
}

func TestLoadYAML(t *testing.T) {
	t.Setenv("SESSIONLINK_TEST_URL", "ws://127.0.0.1:9000/link")
	data := []byte(`
version: "1.0"
connection:
  max_reconnect_attempts: 0
  heartbeat_interval_ms: 5000
aggregator:
  debounce_ms: 250
  ignore_paths: ["html/body/aside"]
transport:
  kind: websocket
  url: ${SESSIONLINK_TEST_URL}
  headers:
    Authorization: Bearer ${SESSIONLINK_TEST_TOKEN:-dev}
logging:
  level: debug
  report_caller: true
`)
	cfg, err := LoadFromBytes(data, FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, 0, *cfg.Connection.MaxReconnectAttempts)
	assert.Equal(t, 5000, cfg.Connection.HeartbeatIntervalMs)
	assert.Equal(t, 1000, cfg.Connection.BaseReconnectDelayMs)
	assert.Equal(t, 250, cfg.Aggregator.DebounceMs)
	assert.Equal(t, []string{"html/body/aside"}, cfg.Aggregator.IgnorePaths)
	assert.Equal(t, "ws://127.0.0.1:9000/link", cfg.Transport.URL)
	assert.Equal(t, "Bearer dev", cfg.Transport.Headers["Authorization"])

	var logCfg struct {
		Level        string `yaml:"level"`
		ReportCaller bool   `yaml:"report_caller"`
	}
	require.NoError(t, cfg.UnmarshalExtension("logging", &logCfg))
	assert.Equal(t, "debug", logCfg.Level)
	assert.True(t, logCfg.ReportCaller)
}

func TestExplicitZeroMaxPendingKept(t *testing.T) {
	cfg, err := LoadFromBytes([]byte("connection:\n  max_pending: 0\n"), FormatYAML)
	require.NoError(t, err)
	require.NotNil(t, cfg.Connection.MaxPending)
	assert.Equal(t, 0, *cfg.Connection.MaxPending)
}

func TestLoadTOML(t *testing.T) {
	data := []byte(`
version = "1.0"

[transport]
kind = "unix"
socket = "/tmp/sessionlink-test.sock"

[session]
max_pages = 10

[logging]
level = "warn"
`)
	cfg, err := LoadFromBytes(data, FormatTOML)
	require.NoError(t, err)
	assert.Equal(t, TransportUnix, cfg.Transport.Kind)
	assert.Equal(t, "/tmp/sessionlink-test.sock", cfg.Transport.Socket)
	assert.Equal(t, 10, cfg.Session.MaxPages)
	assert.NotContains(t, cfg.Extensions, "transport")

	var logCfg struct {
		Level string `yaml:"level"`
	}
	require.NoError(t, cfg.UnmarshalExtension("logging", &logCfg))
	assert.Equal(t, "warn", logCfg.Level)
}

func TestUnmarshalMissingExtension(t *testing.T) {
	cfg := Default()
	target := struct {
		Level string `yaml:"level"`
	}{Level: "info"}
	require.NoError(t, cfg.UnmarshalExtension("logging", &target))
	assert.Equal(t, "info", target.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{"negative attempts", "connection: {max_reconnect_attempts: -1}", "connection.max_reconnect_attempts"},
		{"negative debounce", "aggregator: {debounce_ms: -5}", "aggregator.debounce_ms"},
		{"max below base", "connection: {base_reconnect_delay_ms: 5000, max_reconnect_delay_ms: 2000}", "connection.max_reconnect_delay_ms"},
		{"bad pattern", `aggregator: {ignore_paths: ["html/[body"]}`, "aggregator.ignore_paths"},
		{"unknown transport", "transport: {kind: carrier-pigeon}", "transport.kind"},
		{"websocket without url", "transport: {kind: websocket}", "transport.url"},
		{"websocket with http url", "transport: {kind: websocket, url: 'http://x'}", "transport.url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromBytes([]byte(tt.yaml), FormatYAML)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeConfigInvalid))
			var le *errors.LinkError
			require.ErrorAs(t, err, &le)
			assert.Equal(t, tt.field, le.Details["field"])
		})
	}
}

func TestParseErrors(t *testing.T) {
	_, err := LoadFromBytes([]byte("connection: [unclosed"), FormatYAML)
	assert.True(t, errors.Is(err, errors.ErrCodeConfigInvalid))

	_, err = LoadFromBytes([]byte("[transport\nkind="), FormatTOML)
	assert.True(t, errors.Is(err, errors.ErrCodeConfigInvalid))
}

func TestFindConfigFile(t *testing.T) {
	t.Setenv("SESSIONLINK_HOME", t.TempDir())
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	_, err := FindConfigFile(nested)
	assert.True(t, errors.Is(err, errors.ErrCodeConfigNotFound))

	path := filepath.Join(root, "sessionlink.toml")
	require.NoError(t, os.WriteFile(path, []byte("[session]\nmax_pages = 3\n"), 0o644))

	found, err := FindConfigFile(nested)
	require.NoError(t, err)
	assert.Equal(t, path, found)

	cfg, err := LoadFrom(nested)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Session.MaxPages)
}

func TestFindConfigFileUserDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("SESSIONLINK_HOME", home)
	dir := filepath.Join(home, "config", "sessionlink")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "sessionlink.yml")
	require.NoError(t, os.WriteFile(path, []byte("version: '1.0'\n"), 0o644))

	found, err := FindConfigFile(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, path, found)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "sessionlink.yml"))
	assert.True(t, errors.Is(err, errors.ErrCodeConfigNotFound))
}

func TestGenerateSchema(t *testing.T) {
	data, err := GenerateSchema()
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, `"connection"`)
	assert.Contains(t, s, `"heartbeat_interval_ms"`)
	assert.Contains(t, s, `"websocket"`)
	assert.NotContains(t, s, "Extensions")
}
