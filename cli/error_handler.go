package cli

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/grovetools/sessionlink/errors"
)

// ErrorHandler turns errors into user-facing messages with a hint.
type ErrorHandler struct {
	Verbose bool
	Out     io.Writer
}

func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{Verbose: verbose, Out: os.Stderr}
}

// Handle prints err and returns it unchanged.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}
	w := h.Out
	if w == nil {
		w = os.Stderr
	}

	fmt.Fprintf(w, "%s %v\n", errorStyle.Render("✗"), err)
	if hint := hintFor(errors.GetCode(err)); hint != "" {
		fmt.Fprintln(w, mutedStyle.Render(hint))
	}

	if h.Verbose {
		var le *errors.LinkError
		if stderrors.As(err, &le) {
			fmt.Fprintf(w, "\nError details:\n%s\n", le.ToJSON())
		}
	}
	return err
}

func hintFor(code errors.ErrorCode) string {
	switch code {
	case errors.ErrCodeNativeHostNotFound:
		return "Check transport.command (or transport.socket) in sessionlink.yml and that the host is installed."
	case errors.ErrCodePermissionDenied:
		return "The host refused the connection. Check credentials and file permissions."
	case errors.ErrCodeTimeout:
		return "The host did not answer in time. Raise connection.connect_timeout_ms if it is slow to start."
	case errors.ErrCodeConnectionFailed:
		return "Run with --verbose to see each connection attempt."
	case errors.ErrCodeInvalidMessage:
		return "The host sent a message that does not match the protocol."
	case errors.ErrCodeConfigNotFound:
		return "Create sessionlink.yml or pass --config."
	case errors.ErrCodeConfigInvalid:
		return "Run 'sessionlink schema' to see the configuration format."
	}
	return ""
}
