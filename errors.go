package dispatch

import (
	"errors"
	"fmt"
)

// ErrorType identifies the failure classification of an Error.
type ErrorType string

const (
	ErrorTypeOffline        ErrorType = "Offline"
	ErrorTypeNetwork        ErrorType = "Network"
	ErrorTypeTimeout        ErrorType = "Timeout"
	ErrorTypeAuthentication ErrorType = "Authentication"
	ErrorTypeAuthorization  ErrorType = "Authorization"
	ErrorTypeValidation     ErrorType = "Validation"
	ErrorTypeNotFound       ErrorType = "NotFound"
	ErrorTypeServer         ErrorType = "Server"
	ErrorTypeUnknown        ErrorType = "Unknown"
)

// Sentinel errors for failures originating inside the client rather than
// from the server.
var (
	// ErrOffline is the raw failure used when the connectivity check
	// reports no network.
	ErrOffline = errors.New("dispatch: no connectivity")

	// ErrCircuitOpen is returned (wrapped) when the circuit breaker is open.
	ErrCircuitOpen = errors.New("dispatch: circuit open")

	// ErrRateLimited is returned (wrapped) when the client-side throttle
	// denies a request.
	ErrRateLimited = errors.New("dispatch: rate limited")
)

// Error is a classified failure. Message carries diagnostic detail for
// logging; UserMessage is safe to render to a user and never contains
// internal identifiers or raw error text. StatusCode is 0 for the
// offline/network/timeout family.
type Error struct {
	Type        ErrorType
	Message     string
	UserMessage string
	StatusCode  int
	Retryable   bool

	Method   string
	Endpoint string
	Attempt  int

	// Cause is the original failure, retained for logging only.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Attempt > 0 {
		msg = fmt.Sprintf("%s (attempt %d)", msg, e.Attempt)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches errors by classification, so
// errors.Is(err, &Error{Type: ErrorTypeServer}) works.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	if t, ok := target.(*Error); ok {
		return e.Type == t.Type
	}
	return false
}

// DebugInfo renders a multi-line string with diagnostic context. Intended
// for logs, never for display.
func (e *Error) DebugInfo() string {
	if e == nil {
		return "Error: <nil>"
	}
	info := fmt.Sprintf("Error Type: %s\n", e.Type)
	info += fmt.Sprintf("Message: %s\n", e.Message)
	if e.Method != "" {
		info += fmt.Sprintf("Method: %s\n", e.Method)
	}
	if e.Endpoint != "" {
		info += fmt.Sprintf("Endpoint: %s\n", e.Endpoint)
	}
	if e.StatusCode > 0 {
		info += fmt.Sprintf("Status Code: %d\n", e.StatusCode)
	}
	if e.Attempt > 0 {
		info += fmt.Sprintf("Attempt: %d\n", e.Attempt)
	}
	info += fmt.Sprintf("Retryable: %t\n", e.Retryable)
	if e.Cause != nil {
		info += fmt.Sprintf("Cause: %v\n", e.Cause)
	}
	return info
}

// AsError extracts a *Error from err, or nil if err is not one.
func AsError(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsTransient reports whether err represents a transient failure that might
// succeed on retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if appErr := AsError(err); appErr != nil {
		return appErr.Retryable
	}
	return errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrRateLimited)
}
