package errors

import (
	"fmt"
	"os/exec"
	"time"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *LinkError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *LinkError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// ConnectionFailed creates a connection failure error
func ConnectionFailed(reason string, cause error) *LinkError {
	if cause == nil {
		return New(ErrCodeConnectionFailed, reason)
	}
	return Wrap(cause, ErrCodeConnectionFailed, reason)
}

// HostNotFound reports that the native host could not be launched or reached.
func HostNotFound(target string, cause error) *LinkError {
	return Wrap(cause, ErrCodeNativeHostNotFound, fmt.Sprintf("native host not found: %s", target)).
		WithDetail("target", target)
}

// PermissionDenied creates a permission error for the given target.
func PermissionDenied(target string, cause error) *LinkError {
	return Wrap(cause, ErrCodePermissionDenied, fmt.Sprintf("permission denied: %s", target)).
		WithDetail("target", target)
}

// InvalidMessage creates an error for an inbound frame that failed decoding.
func InvalidMessage(reason string, cause error) *LinkError {
	return Wrap(cause, ErrCodeInvalidMessage, fmt.Sprintf("invalid message: %s", reason))
}

// Timeout creates a timeout error
func Timeout(op string, after time.Duration) *LinkError {
	return New(ErrCodeTimeout, fmt.Sprintf("%s timed out after %s", op, after)).
		WithDetail("operation", op).
		WithDetail("timeout", after.String())
}

// HostExited wraps a native host process exit, carrying its exit code when known.
func HostExited(cmd string, err error) *LinkError {
	linkErr := Wrap(err, ErrCodeConnectionFailed, fmt.Sprintf("native host exited: %s", cmd)).
		WithDetail("command", cmd)

	if exitErr, ok := err.(*exec.ExitError); ok {
		linkErr = linkErr.WithDetail("exitCode", exitErr.ExitCode())
	}

	return linkErr
}

// SessionNotFound reports a session id with no archived record.
func SessionNotFound(id string) *LinkError {
	return New(ErrCodeSessionNotFound, fmt.Sprintf("session not found: %s", id)).
		WithDetail("session", id)
}
