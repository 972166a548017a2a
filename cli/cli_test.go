package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/grovetools/sessionlink/errors"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapText(t *testing.T) {
	wrapped := wrapText("one two three four five", 9)
	assert.Equal(t, "one two\nthree\nfour five", wrapped)
	assert.Equal(t, "a\nb", wrapText("a\nb", 10))
}

func TestParseDescription(t *testing.T) {
	desc, ex := parseDescription("Does a thing.\n\nExamples:\n  tool run\n")
	assert.Equal(t, "Does a thing.", desc)
	assert.Equal(t, "tool run", ex)

	desc, ex = parseDescription("No examples here.")
	assert.Equal(t, "No examples here.", desc)
	assert.Empty(t, ex)
}

func TestStyledHelp(t *testing.T) {
	root := NewStandardCommand("tool", "Does things")
	sub := &cobra.Command{Use: "sub", Short: "A subcommand", Run: func(*cobra.Command, []string) {}}
	sub.Flags().String("target", "here", "Where to go")
	root.AddCommand(sub)
	ApplyStyledHelpRecursive(root)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"sub", "--help"})
	require.NoError(t, root.Execute())

	help := out.String()
	assert.Contains(t, help, "USAGE")
	assert.Contains(t, help, "FLAGS")
	assert.Contains(t, help, "--target")
	assert.Contains(t, help, "default: here")
}

func TestGetOptions(t *testing.T) {
	cmd := NewStandardCommand("tool", "Does things")
	require.NoError(t, cmd.ParseFlags([]string{"--verbose", "--json", "-c", "x.yml"}))
	opts := GetOptions(cmd)
	assert.True(t, opts.Verbose)
	assert.True(t, opts.JSONOutput)
	assert.Equal(t, "x.yml", opts.ConfigFile)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("SESSIONLINK_HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)

	t.Run("defaults without a file", func(t *testing.T) {
		cfg, err := LoadConfig(NewStandardCommand("tool", ""))
		require.NoError(t, err)
		assert.Equal(t, 500, cfg.Aggregator.DebounceMs)
	})

	t.Run("explicit file", func(t *testing.T) {
		file := filepath.Join(dir, "custom.yml")
		require.NoError(t, os.WriteFile(file, []byte("aggregator:\n  debounce_ms: 50\n"), 0o644))
		cmd := NewStandardCommand("tool", "")
		require.NoError(t, cmd.ParseFlags([]string{"--config", file}))

		cfg, err := LoadConfig(cmd)
		require.NoError(t, err)
		assert.Equal(t, 50, cfg.Aggregator.DebounceMs)
	})

	t.Run("explicit file missing", func(t *testing.T) {
		cmd := NewStandardCommand("tool", "")
		require.NoError(t, cmd.ParseFlags([]string{"--config", filepath.Join(dir, "nope.yml")}))
		_, err := LoadConfig(cmd)
		assert.True(t, errors.Is(err, errors.ErrCodeConfigNotFound))
	})
}

func TestErrorHandler(t *testing.T) {
	var out bytes.Buffer
	h := &ErrorHandler{Out: &out}

	err := errors.HostNotFound("sessionlink", os.ErrNotExist)
	assert.Equal(t, err, h.Handle(err))
	assert.Contains(t, out.String(), "native host not found")
	assert.Contains(t, out.String(), "transport.command")

	assert.NoError(t, h.Handle(nil))
}

func TestErrorHandlerVerbose(t *testing.T) {
	var out bytes.Buffer
	h := &ErrorHandler{Out: &out, Verbose: true}
	h.Handle(errors.Timeout("connect", 0))
	assert.Contains(t, out.String(), `"code": "TIMEOUT"`)
}
