package dispatch

import (
	"encoding/json"
	"net/http"
	"time"
)

// Request describes one logical API call before it is handed to the
// dispatcher. A Request is owned by its caller until the call settles;
// request interceptors may mutate it in place.
type Request struct {
	// Method is the HTTP method. Defaults to GET when empty.
	Method string

	// Path is the endpoint path, resolved against the client's base URL.
	// Absolute URLs are passed through unchanged.
	Path string

	// Headers are merged over the client's default headers.
	Headers map[string]string

	// Body is JSON-encoded when non-nil.
	Body any

	// Timeout overrides the client's per-call timeout when positive.
	Timeout time.Duration

	// SkipAuth disables access-token injection and expired-session renewal
	// for this call. The renewal round trip itself always skips auth.
	SkipAuth bool

	// SkipDedup disables in-flight coalescing for this call.
	SkipDedup bool

	// MaxRetries and RetryDelay override the client's retry settings when
	// positive. Consumed by DoWithRetry only.
	MaxRetries int
	RetryDelay time.Duration
}

// Response is the settled outcome of a successful dispatch. Response
// interceptors may reshape Body before the caller sees it.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

// DedupKeyFunc builds the key used to coalesce concurrent identical calls.
type DedupKeyFunc func(method, url string, body []byte) string

// ConnectivityFunc reports whether the environment currently has network
// connectivity. Returning false fails calls with an Offline error before
// any transport activity.
type ConnectivityFunc func() bool

// Option configures a Client.
type Option func(*Client)
