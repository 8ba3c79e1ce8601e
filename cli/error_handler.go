package cli

import (
	"fmt"
	"io"

	"github.com/grovetools/inbox/errors"
)

// ErrorHandler turns errors into actionable messages.
type ErrorHandler struct {
	Verbose bool
	Out     io.Writer
}

func NewErrorHandler(out io.Writer, verbose bool) *ErrorHandler {
	return &ErrorHandler{Out: out, Verbose: verbose}
}

// Handle prints err and returns it unchanged.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}
	ie, _ := errors.As(err)

	switch errors.GetCode(err) {
	case errors.ErrCodeConfigNotFound:
		fmt.Fprintln(h.Out, "✗ Configuration not found. Create inbox.yml with at least an 'instance' key.")

	case errors.ErrCodeConfigValidation:
		fmt.Fprintf(h.Out, "✗ Invalid configuration for '%v': %s\n", ie.Details["field"], ie.Message)

	case errors.ErrCodeDaemonNotRunning:
		fmt.Fprintln(h.Out, "✗ inboxd is not running. Start it with 'inboxd start'.")

	case errors.ErrCodeNotLoggedIn, errors.ErrCodeTokenInvalid:
		fmt.Fprintf(h.Out, "✗ %s\n", ie.Message)
		fmt.Fprintln(h.Out, "Log in again with 'inboxd login --token <jwt>'.")

	case errors.ErrCodeTransport:
		fmt.Fprintf(h.Out, "✗ Could not reach the instance: %v\n", ie.Cause)

	default:
		fmt.Fprintf(h.Out, "✗ Error: %v\n", err)
	}

	if h.Verbose && ie != nil {
		fmt.Fprintf(h.Out, "\nError details:\n%s\n", ie.ToJSON())
	}
	return err
}
