package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
)

// ErrorCode identifies the failure class of a LinkError. The transport codes
// are also carried verbatim in ERROR messages exchanged with the host.
type ErrorCode string

const (
	// Transport errors
	ErrCodeConnectionFailed   ErrorCode = "CONNECTION_FAILED"
	ErrCodeNativeHostNotFound ErrorCode = "NATIVE_HOST_NOT_FOUND"
	ErrCodeInvalidMessage     ErrorCode = "INVALID_MESSAGE"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
	ErrCodePermissionDenied   ErrorCode = "PERMISSION_DENIED"
	ErrCodeUnknown            ErrorCode = "UNKNOWN"

	// Configuration errors
	ErrCodeConfigNotFound ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  ErrorCode = "CONFIG_INVALID"

	// General errors
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
)

// LinkError is a structured error with a stable code and optional context.
type LinkError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

func (e *LinkError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LinkError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error and returns it for chaining.
func (e *LinkError) WithDetail(key string, value interface{}) *LinkError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON renders the error as indented JSON.
func (e *LinkError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new LinkError
func New(code ErrorCode, message string) *LinkError {
	return &LinkError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a LinkError
func Wrap(err error, code ErrorCode, message string) *LinkError {
	return &LinkError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is reports whether any LinkError in err's chain carries code.
func Is(err error, code ErrorCode) bool {
	for err != nil {
		var linkErr *LinkError
		if !stderrors.As(err, &linkErr) {
			return false
		}
		if linkErr.Code == code {
			return true
		}
		err = linkErr.Cause
	}
	return false
}

// GetCode extracts the outermost error code from an error
func GetCode(err error) ErrorCode {
	var linkErr *LinkError
	if stderrors.As(err, &linkErr) {
		return linkErr.Code
	}
	return ""
}

// CodeOf is GetCode with a fallback of ErrCodeUnknown for foreign errors.
func CodeOf(err error) ErrorCode {
	if code := GetCode(err); code != "" {
		return code
	}
	return ErrCodeUnknown
}
