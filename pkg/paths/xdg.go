// Package paths provides XDG-compliant path resolution for sessionlink.
//
// Resolution order:
// 1. SESSIONLINK_HOME (portable root) → $SESSIONLINK_HOME/{config,state,run}
// 2. XDG env vars → $XDG_*_HOME/sessionlink
// 3. Platform defaults → ~/.config/sessionlink, ~/.local/state/sessionlink
package paths

import (
	"os"
	"path/filepath"
)

const appName = "sessionlink"

func getConfigHome() string {
	if home := os.Getenv("SESSIONLINK_HOME"); home != "" {
		return filepath.Join(home, "config")
	}
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return xdgConfigHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config")
	}
	return ""
}

func getStateHome() string {
	if home := os.Getenv("SESSIONLINK_HOME"); home != "" {
		return filepath.Join(home, "state")
	}
	if xdgStateHome := os.Getenv("XDG_STATE_HOME"); xdgStateHome != "" {
		return xdgStateHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".local", "state")
	}
	return ""
}

// ConfigDir holds the user-level sessionlink.yml.
func ConfigDir() string {
	base := getConfigHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, appName)
}

// StateDir holds logs and other runtime state.
func StateDir() string {
	base := getStateHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, appName)
}

// LogDir is where file logging goes when no path is configured.
func LogDir() string {
	state := StateDir()
	if state == "" {
		return ""
	}
	return filepath.Join(state, "logs")
}

// RuntimeDir returns the directory for sockets.
// Uses XDG_RUNTIME_DIR when available (Linux), falls back to StateDir (macOS).
func RuntimeDir() string {
	if home := os.Getenv("SESSIONLINK_HOME"); home != "" {
		return filepath.Join(home, "run")
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, appName)
	}
	return StateDir()
}

// SocketPath is the default unix socket of a native host.
func SocketPath() string {
	return filepath.Join(RuntimeDir(), "host.sock")
}

// EnsureDirs creates the state and runtime directories.
func EnsureDirs() error {
	for _, dir := range []string{StateDir(), RuntimeDir()} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
