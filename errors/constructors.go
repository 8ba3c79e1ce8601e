package errors

import (
	"fmt"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *InboxError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *InboxError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// ConfigValidation creates a validation error for a single config field
func ConfigValidation(field, reason string) *InboxError {
	return New(ErrCodeConfigValidation, fmt.Sprintf("%s: %s", field, reason)).
		WithDetail("field", field)
}

// Transport creates an error for a request that never produced a response
func Transport(endpoint string, err error) *InboxError {
	return Wrap(err, ErrCodeTransport, fmt.Sprintf("request to %s failed", endpoint)).
		WithDetail("endpoint", endpoint)
}

// Decode creates an error for a response body that could not be parsed
func Decode(endpoint string, err error) *InboxError {
	return Wrap(err, ErrCodeDecode, fmt.Sprintf("failed to decode response from %s", endpoint)).
		WithDetail("endpoint", endpoint)
}

// HTTPStatus creates an error for a non-2xx response without an error envelope
func HTTPStatus(endpoint string, status int) *InboxError {
	return New(ErrCodeHTTPStatus, fmt.Sprintf("%s returned status %d", endpoint, status)).
		WithDetail("endpoint", endpoint).
		WithDetail("status", status)
}

// API creates an error from the instance's {"error": reason} envelope.
// Authentication reasons are reported as NOT_LOGGED_IN.
func API(endpoint string, status int, reason string) *InboxError {
	code := ErrCodeAPI
	switch reason {
	case "not_logged_in", "incorrect_login":
		code = ErrCodeNotLoggedIn
	}
	return New(code, fmt.Sprintf("%s: %s", endpoint, reason)).
		WithDetail("endpoint", endpoint).
		WithDetail("status", status).
		WithDetail("reason", reason)
}

// TokenInvalid creates an error for an auth token that cannot be used
func TokenInvalid(reason string) *InboxError {
	return New(ErrCodeTokenInvalid, fmt.Sprintf("invalid auth token: %s", reason))
}

// DaemonNotRunning creates an error for a missing daemon socket
func DaemonNotRunning(socketPath string) *InboxError {
	return New(ErrCodeDaemonNotRunning, "inboxd is not running; start it with 'inboxd start'").
		WithDetail("socket", socketPath)
}
