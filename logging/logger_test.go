package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerIsCachedPerComponent(t *testing.T) {
	a := NewLogger("test-component")
	b := NewLogger("test-component")
	assert.Same(t, a, b)
	assert.Equal(t, "test-component", a.Data["component"])
	assert.NotSame(t, a, NewLogger("other-component"))
}

func TestTextFormatter(t *testing.T) {
	tests := []struct {
		name    string
		config  FormatConfig
		entry   *logrus.Entry
		want    []string
		notWant []string
	}{
		{
			name:   "default format",
			config: FormatConfig{DisableTimestamp: true},
			entry: &logrus.Entry{
				Level:   logrus.InfoLevel,
				Message: "connected",
				Data:    logrus.Fields{"component": "bridge", "transport": "native"},
			},
			want: []string{"[INFO]", "bridge", "connected", "transport=native"},
		},
		{
			name:   "warning is shortened",
			config: FormatConfig{DisableTimestamp: true, DisableComponent: true},
			entry: &logrus.Entry{
				Level:   logrus.WarnLevel,
				Message: "queue full",
				Data:    logrus.Fields{"component": "bridge"},
			},
			want:    []string{"[WARN] queue full"},
			notWant: []string{"WARNING", "bridge"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := (&TextFormatter{Config: tt.config}).Format(tt.entry)
			require.NoError(t, err)
			for _, s := range tt.want {
				assert.Contains(t, string(out), s)
			}
			for _, s := range tt.notWant {
				assert.NotContains(t, string(out), s)
			}
		})
	}
}

func TestTextFormatterSortsFields(t *testing.T) {
	out, err := (&TextFormatter{Config: FormatConfig{DisableTimestamp: true}}).Format(&logrus.Entry{
		Level:   logrus.InfoLevel,
		Message: "m",
		Data:    logrus.Fields{"b": 2, "a": 1, "c": 3},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(out), " m a=1 b=2 c=3\n"), string(out))
}

func TestNewLoggerFromConfig(t *testing.T) {
	var buf bytes.Buffer
	SetGlobalOutput(&buf)
	defer SetGlobalOutput(os.Stderr)
	t.Setenv("SESSIONLINK_LOG_LEVEL", "")

	entry := newLogger("json-test", Config{
		Level:  "debug",
		Format: FormatConfig{Preset: "json"},
	}, true)
	assert.Equal(t, logrus.DebugLevel, entry.Logger.GetLevel())

	entry.WithField("attempt", 2).Debug("reconnecting")
	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "reconnecting", line["msg"])
	assert.Equal(t, "json-test", line["component"])
	assert.EqualValues(t, 2, line["attempt"])
}

func TestEnvLevelWins(t *testing.T) {
	t.Setenv("SESSIONLINK_LOG_LEVEL", "error")
	entry := newLogger("env-test", Config{Level: "debug"}, false)
	assert.Equal(t, logrus.ErrorLevel, entry.Logger.GetLevel())
}

func TestStderrModes(t *testing.T) {
	t.Setenv("SESSIONLINK_DEBUG", "")
	assert.True(t, logToStderr("always", logrus.InfoLevel, true))
	assert.False(t, logToStderr("never", logrus.DebugLevel, false))
	assert.True(t, logToStderr("auto", logrus.InfoLevel, false))
	assert.False(t, logToStderr("auto", logrus.InfoLevel, true))
	assert.True(t, logToStderr("auto", logrus.DebugLevel, true))
	assert.True(t, logToStderr("", logrus.WarnLevel, true))

	entry := newLogger("quiet-test", Config{Format: FormatConfig{StructuredToStderr: "never"}}, false)
	assert.Equal(t, io.Discard, entry.Logger.Out)
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run.log")
	entry := newLogger("file-test", Config{
		File:   FileSinkConfig{Enabled: true, Path: path},
		Format: FormatConfig{StructuredToStderr: "never", DisableTimestamp: true},
	}, true)

	entry.Warn("disk log")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[WARN]")
	assert.Contains(t, string(data), "disk log")
}

func TestPrettyLogger(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrettyLogger().WithWriter(&buf)
	p.Success("connected")
	p.Field("state", "connected")
	p.ErrorPretty("ping failed", errors.New("timeout"))

	out := buf.String()
	assert.Contains(t, out, "connected")
	assert.Contains(t, out, "state:")
	assert.Contains(t, out, "ping failed")
	assert.Contains(t, out, "timeout")
}
