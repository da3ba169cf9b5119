package dispatch

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/tidwall/gjson"
)

// User-facing messages per classification. These are intentionally generic:
// diagnostic detail stays in Error.Message and Error.Cause.
const (
	userMsgOffline        = "You appear to be offline. Check your connection and try again."
	userMsgNetwork        = "We couldn't reach the server. Please try again."
	userMsgTimeout        = "The request took too long. Please try again."
	userMsgSessionExpired = "Your session has expired. Please sign in again."
	userMsgForbidden      = "You don't have permission to do that."
	userMsgValidation     = "Some of the information provided is invalid."
	userMsgNotFound       = "The requested resource could not be found."
	userMsgServer         = "Something went wrong on our side. Please try again shortly."
	userMsgUnknown        = "Something went wrong. Please try again."
)

// transportFailurePatterns flag connection-level failures in error text for
// errors that do not implement net.Error.
var transportFailurePatterns = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"broken pipe",
	"network is unreachable",
}

// Classify maps a raw failure to a typed Error. Exactly one of rawErr and
// resp is consulted: rawErr covers transport-level outcomes, resp covers
// non-success HTTP responses. The result always carries a UserMessage safe
// for display.
func Classify(rawErr error, resp *Response) *Error {
	if rawErr != nil {
		return classifyTransport(rawErr)
	}
	if resp != nil {
		return classifyStatus(resp)
	}
	return &Error{
		Type:        ErrorTypeUnknown,
		Message:     "no failure to classify",
		UserMessage: userMsgUnknown,
		Retryable:   true,
	}
}

func classifyTransport(err error) *Error {
	switch {
	case errors.Is(err, ErrOffline):
		return &Error{
			Type:        ErrorTypeOffline,
			Message:     "no network connectivity",
			UserMessage: userMsgOffline,
			Retryable:   true,
			Cause:       err,
		}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{
			Type:        ErrorTypeTimeout,
			Message:     "request deadline exceeded",
			UserMessage: userMsgTimeout,
			Retryable:   true,
			Cause:       err,
		}
	case errors.Is(err, context.Canceled):
		return &Error{
			Type:        ErrorTypeUnknown,
			Message:     "request canceled",
			UserMessage: userMsgUnknown,
			Retryable:   false,
			Cause:       err,
		}
	case isTransportFailure(err):
		return &Error{
			Type:        ErrorTypeNetwork,
			Message:     "network request failed",
			UserMessage: userMsgNetwork,
			Retryable:   true,
			Cause:       err,
		}
	default:
		return &Error{
			Type:        ErrorTypeUnknown,
			Message:     "request failed",
			UserMessage: userMsgUnknown,
			Retryable:   true,
			Cause:       err,
		}
	}
}

func classifyStatus(resp *Response) *Error {
	status := resp.StatusCode
	serverMsg := serverMessage(resp.Body)

	switch {
	case status == 401:
		// Not retryable by the generic loop; the dispatcher resolves a 401
		// through renew-and-replay instead.
		return &Error{
			Type:        ErrorTypeAuthentication,
			Message:     messageOr(serverMsg, "authentication required"),
			UserMessage: userMsgSessionExpired,
			StatusCode:  status,
			Retryable:   false,
		}
	case status == 403:
		return &Error{
			Type:        ErrorTypeAuthorization,
			Message:     messageOr(serverMsg, "access denied"),
			UserMessage: userMsgForbidden,
			StatusCode:  status,
			Retryable:   false,
		}
	case status == 404:
		return &Error{
			Type:        ErrorTypeNotFound,
			Message:     messageOr(serverMsg, "resource not found"),
			UserMessage: userMsgNotFound,
			StatusCode:  status,
			Retryable:   false,
		}
	case status == 400 || status == 422:
		// The server-provided message doubles as the user message here: it
		// describes the caller's own input.
		msg := messageOr(serverMsg, "request validation failed")
		return &Error{
			Type:        ErrorTypeValidation,
			Message:     msg,
			UserMessage: messageOr(serverMsg, userMsgValidation),
			StatusCode:  status,
			Retryable:   false,
		}
	case status >= 500:
		return &Error{
			Type:        ErrorTypeServer,
			Message:     messageOr(serverMsg, "server error"),
			UserMessage: userMsgServer,
			StatusCode:  status,
			Retryable:   true,
		}
	default:
		return &Error{
			Type:        ErrorTypeUnknown,
			Message:     messageOr(serverMsg, "unexpected response"),
			UserMessage: userMsgUnknown,
			StatusCode:  status,
			Retryable:   true,
		}
	}
}

func isTransportFailure(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	lower := strings.ToLower(err.Error())
	for _, p := range transportFailurePatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// serverMessage pulls a human-readable message out of a JSON error payload.
// Backends in the wild disagree on the field name, so a few shapes are
// tolerated.
func serverMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	for _, path := range []string{"message", "error.message", "error", "detail"} {
		if v := gjson.GetBytes(body, path); v.Type == gjson.String && v.Str != "" {
			return v.Str
		}
	}
	return ""
}

func messageOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
