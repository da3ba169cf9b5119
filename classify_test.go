package dispatch

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyTransportFailures(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantType  ErrorType
		retryable bool
	}{
		{"offline sentinel", ErrOffline, ErrorTypeOffline, true},
		{"deadline exceeded", context.DeadlineExceeded, ErrorTypeTimeout, true},
		{"canceled", context.Canceled, ErrorTypeUnknown, false},
		{"connection refused", errors.New("dial tcp 127.0.0.1:9999: connect: connection refused"), ErrorTypeNetwork, true},
		{"connection reset", errors.New("read tcp: connection reset by peer"), ErrorTypeNetwork, true},
		{"dns failure", errors.New("dial tcp: lookup api.invalid: no such host"), ErrorTypeNetwork, true},
		{"unrecognized", errors.New("something odd"), ErrorTypeUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := Classify(tt.err, nil)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.wantType, appErr.Type)
			assert.Equal(t, tt.retryable, appErr.Retryable)
			assert.Zero(t, appErr.StatusCode)
			assert.NotEmpty(t, appErr.UserMessage)
		})
	}
}

func TestClassifyStatusCodes(t *testing.T) {
	tests := []struct {
		status    int
		wantType  ErrorType
		retryable bool
	}{
		{400, ErrorTypeValidation, false},
		{401, ErrorTypeAuthentication, false},
		{403, ErrorTypeAuthorization, false},
		{404, ErrorTypeNotFound, false},
		{408, ErrorTypeUnknown, true},
		{422, ErrorTypeValidation, false},
		{429, ErrorTypeUnknown, true},
		{500, ErrorTypeServer, true},
		{502, ErrorTypeServer, true},
		{503, ErrorTypeServer, true},
		{418, ErrorTypeUnknown, true},
	}

	for _, tt := range tests {
		appErr := Classify(nil, &Response{StatusCode: tt.status})
		require.NotNil(t, appErr, "status %d", tt.status)
		assert.Equal(t, tt.wantType, appErr.Type, "status %d", tt.status)
		assert.Equal(t, tt.retryable, appErr.Retryable, "status %d", tt.status)
		assert.Equal(t, tt.status, appErr.StatusCode)
	}
}

func TestClassifyValidationPassesServerMessageThrough(t *testing.T) {
	resp := &Response{
		StatusCode: 422,
		Body:       []byte(`{"message":"date of birth must be in the past"}`),
	}
	appErr := Classify(nil, resp)
	assert.Equal(t, ErrorTypeValidation, appErr.Type)
	assert.Equal(t, "date of birth must be in the past", appErr.Message)
	assert.Equal(t, "date of birth must be in the past", appErr.UserMessage)
}

func TestClassifyUserMessageOmitsDiagnostics(t *testing.T) {
	raw := errors.New("dial tcp 10.0.0.5:443: connect: connection refused")
	appErr := Classify(raw, nil)
	assert.NotContains(t, appErr.UserMessage, "10.0.0.5")
	assert.NotContains(t, appErr.UserMessage, "connection refused")
	assert.NotEqual(t, appErr.Message, appErr.UserMessage)
}

func TestClassifyServerMessageShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"message field", `{"message":"boom"}`, "boom"},
		{"nested error", `{"error":{"message":"nested boom"}}`, "nested boom"},
		{"error string", `{"error":"flat boom"}`, "flat boom"},
		{"detail field", `{"detail":"detailed boom"}`, "detailed boom"},
		{"no message", `{"code":500}`, ""},
		{"not json", `<html>502</html>`, ""},
		{"empty", ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, serverMessage([]byte(tt.body)))
		})
	}
}

func TestClassifyAuthenticationNotGenericallyRetryable(t *testing.T) {
	appErr := Classify(nil, &Response{StatusCode: http.StatusUnauthorized})
	assert.Equal(t, ErrorTypeAuthentication, appErr.Type)
	assert.False(t, appErr.Retryable)
	assert.False(t, shouldRetry(appErr))
}
