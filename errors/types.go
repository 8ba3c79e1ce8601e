package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Configuration errors
	ErrCodeConfigNotFound   ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid    ErrorCode = "CONFIG_INVALID"
	ErrCodeConfigValidation ErrorCode = "CONFIG_VALIDATION"

	// Remote instance errors
	ErrCodeTransport  ErrorCode = "TRANSPORT"
	ErrCodeDecode     ErrorCode = "DECODE"
	ErrCodeAPI        ErrorCode = "API_ERROR"
	ErrCodeHTTPStatus ErrorCode = "HTTP_STATUS"

	// Session errors
	ErrCodeNotLoggedIn  ErrorCode = "NOT_LOGGED_IN"
	ErrCodeTokenInvalid ErrorCode = "TOKEN_INVALID"

	// Daemon errors
	ErrCodeDaemonNotRunning ErrorCode = "DAEMON_NOT_RUNNING"

	// General errors
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// InboxError represents a structured error with context
type InboxError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *InboxError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *InboxError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *InboxError) WithDetail(key string, value interface{}) *InboxError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON converts the error to JSON
func (e *InboxError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new InboxError
func New(code ErrorCode, message string) *InboxError {
	return &InboxError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an InboxError
func Wrap(err error, code ErrorCode, message string) *InboxError {
	return &InboxError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is checks if an error is a specific InboxError code
func Is(err error, code ErrorCode) bool {
	return GetCode(err) == code && code != ""
}

// As returns the first InboxError in err's chain.
func As(err error) (*InboxError, bool) {
	for err != nil {
		if inboxErr, ok := err.(*InboxError); ok {
			return inboxErr, true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = unwrapper.Unwrap()
	}
	return nil, false
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if inboxErr, ok := As(err); ok {
		return inboxErr.Code
	}
	return ""
}
