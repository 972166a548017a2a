// Package pidfile guards a listening host against a second instance on the
// same socket.
package pidfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/grovetools/sessionlink/errors"
)

// Acquire records the current process in path. It fails when the file names
// another live process; a stale file is replaced.
func Acquire(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create pid directory: %w", err)
	}

	if running, pid, err := IsRunning(path); err == nil && running && pid != os.Getpid() {
		return errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("host already running with PID %d", pid)).
			WithDetail("pidfile", path)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return fmt.Errorf("failed to write pid file: %w", err)
	}
	return nil
}

// Release removes path if it still names the current process.
func Release(path string) error {
	pid, err := Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if pid != os.Getpid() {
		return nil
	}
	return os.Remove(path)
}

// Read returns the PID recorded in path.
func Read(path string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(content)))
}

// IsRunning reports whether the process recorded in path is alive.
func IsRunning(path string) (bool, int, error) {
	pid, err := Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	return alive(pid), pid, nil
}

// alive probes pid with signal 0. EPERM still means the process exists.
func alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = p.Signal(syscall.Signal(0))
	return err == nil || os.IsPermission(err)
}
