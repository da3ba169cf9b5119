package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client orchestrates every network call of the application: interceptors,
// in-flight deduplication, connectivity gating, credential injection,
// transport with per-call timeout, failure classification and exactly-once
// session renewal. It is safe for concurrent use.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	defaultHeaders map[string]string
	timeout        time.Duration

	maxRetries int
	retryDelay time.Duration
	backoff    backoffCalculator
	sleep      func(ctx context.Context, d time.Duration) error

	online       ConnectivityFunc
	interceptors *interceptorChain
	inflight     *inflightRegistry
	dedupKeyFunc DedupKeyFunc
	guard        *credentialGuard

	circuitBreaker *CircuitBreaker
	rateLimiter    *RateLimiter

	metrics *MetricsCollector
	logger  Logger
	debug   *DebugConfig

	validationError error
}

// New constructs a Client from functional options. Validation is best
// effort; call IsValid / ValidationError to inspect the result.
func New(options ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{},
		timeout:    30 * time.Second,
		maxRetries: 3,
		retryDelay: time.Second,
		backoff:    defaultBackoff(),
		sleep:      sleepContext,

		interceptors: newInterceptorChain(),
		inflight:     newInflightRegistry(),
		dedupKeyFunc: defaultDedupKey,
		guard: &credentialGuard{
			renewalTimeout: 10 * time.Second,
		},
		debug: DefaultDebugConfig(),
	}

	for _, option := range options {
		option(client)
	}

	if client.guard.httpClient == nil {
		client.guard.httpClient = client.httpClient
	}
	client.guard.logger = client.logger

	if err := client.ValidateConfiguration(); err != nil {
		client.validationError = err
	}

	return client
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool { return c.validationError == nil }

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error { return c.validationError }

// Get dispatches a GET request for path.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path})
}

// Post dispatches a POST request with a JSON-encoded body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put dispatches a PUT request with a JSON-encoded body.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body})
}

// Patch dispatches a PATCH request with a JSON-encoded body.
func (c *Client) Patch(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPatch, Path: path, Body: body})
}

// Delete dispatches a DELETE request for path.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path})
}

// Do dispatches a single logical call. Read-only calls already in flight
// for the same dedup key are coalesced: later callers receive the owner's
// settled outcome without a second round trip. Failures are always a
// classified *Error.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, &Error{
			Type:        ErrorTypeUnknown,
			Message:     "nil request",
			UserMessage: userMsgUnknown,
		}
	}
	if err := c.interceptors.runRequest(ctx, req); err != nil {
		return nil, asDispatchError(err)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	url := c.resolveURL(req.Path)

	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, &Error{
			Type:        ErrorTypeUnknown,
			Message:     "encode request body",
			UserMessage: userMsgUnknown,
			Method:      method,
			Endpoint:    req.Path,
			Cause:       err,
		}
	}

	start := time.Now()
	var requestID string
	if c.debug != nil && c.debug.Enabled && c.debug.RequestIDGen != nil {
		requestID = c.debug.RequestIDGen()
	}
	if c.metrics != nil {
		c.metrics.RecordRequestStart(method, req.Path)
		defer c.metrics.RecordRequestEnd(method, req.Path)
	}

	if !isDeduplicable(method) || req.SkipDedup {
		resp, err := c.finish(ctx, req, method, url, body, requestID)
		c.record(method, req.Path, resp, err, start)
		return resp, err
	}

	key := c.dedupKeyFunc(method, url, body)
	entry, owner := c.inflight.getOrCreate(key)
	if !owner {
		if c.metrics != nil {
			c.metrics.RecordDedupHit(method, req.Path)
		}
		if c.debugEnabled(debugDedup) {
			c.logger.Debug("coalesced onto in-flight call", "requestID", requestID, "dedupKey", key)
		}
		resp, err := entry.wait(ctx)
		c.record(method, req.Path, resp, err, start)
		return resp, err
	}

	resp, err := c.finish(ctx, req, method, url, body, requestID)
	// The entry must never outlive its call: remove it on every settlement
	// path, success or failure.
	c.inflight.complete(key, resp, err)
	c.record(method, req.Path, resp, err, start)
	return resp, err
}

// finish executes the transport round trip and, on success, runs the
// response interceptors over the decoded response.
func (c *Client) finish(ctx context.Context, req *Request, method, url string, body []byte, requestID string) (*Response, error) {
	resp, err := c.execute(ctx, req, method, url, body, requestID, false)
	if err != nil {
		return nil, err
	}
	if err := c.interceptors.runResponse(ctx, req, resp); err != nil {
		return nil, asDispatchError(err)
	}
	return resp, nil
}

// execute performs one transport attempt. replayed marks the single
// permitted re-issue after a successful session renewal; a 401 on a
// replayed call propagates instead of triggering another renewal.
func (c *Client) execute(ctx context.Context, req *Request, method, url string, body []byte, requestID string, replayed bool) (*Response, error) {
	if c.online != nil && !c.online() {
		if c.debugEnabled(debugRequests) {
			c.logger.Debug("offline, skipping transport", "requestID", requestID, "endpoint", req.Path)
		}
		return nil, c.finalize(Classify(ErrOffline, nil), method, req.Path)
	}

	if c.rateLimiter != nil && !c.rateLimiter.Allow() {
		return nil, c.finalize(&Error{
			Type:        ErrorTypeUnknown,
			Message:     "client rate limit exceeded",
			UserMessage: userMsgUnknown,
			Retryable:   true,
			Cause:       ErrRateLimited,
		}, method, req.Path)
	}

	if c.circuitBreaker != nil && !c.circuitBreaker.Allow() {
		return nil, c.finalize(&Error{
			Type:        ErrorTypeUnknown,
			Message:     "circuit breaker is open",
			UserMessage: userMsgUnknown,
			Retryable:   true,
			Cause:       ErrCircuitOpen,
		}, method, req.Path)
	}

	timeout := c.timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, method, url, bodyReader(body))
	if err != nil {
		return nil, c.finalize(&Error{
			Type:        ErrorTypeUnknown,
			Message:     "build request",
			UserMessage: userMsgUnknown,
			Cause:       err,
		}, method, req.Path)
	}
	c.applyHeaders(httpReq, req, body)
	if !req.SkipAuth {
		c.guard.inject(httpReq)
	}

	if c.debugEnabled(debugRequests) {
		c.logger.Debug("issuing request", "requestID", requestID, "method", method, "endpoint", req.Path, "replayed", replayed)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if c.circuitBreaker != nil {
			c.circuitBreaker.RecordFailure()
		}
		return nil, c.finalize(Classify(err, nil), method, req.Path)
	}

	raw, readErr := io.ReadAll(httpResp.Body)
	httpResp.Body.Close()
	if readErr != nil {
		if c.circuitBreaker != nil {
			c.circuitBreaker.RecordFailure()
		}
		return nil, c.finalize(Classify(readErr, nil), method, req.Path)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header.Clone(),
		Body:       raw,
	}

	if resp.StatusCode == http.StatusUnauthorized && !req.SkipAuth && !replayed {
		if c.debugEnabled(debugAuth) {
			c.logger.Debug("session expired, renewing", "requestID", requestID, "endpoint", req.Path)
		}
		if err := c.guard.renew(ctx); err != nil {
			if c.metrics != nil {
				c.metrics.RecordRenewal("failure")
			}
			return nil, c.finalize(asDispatchError(err), method, req.Path)
		}
		if c.metrics != nil {
			c.metrics.RecordRenewal("success")
		}
		return c.execute(ctx, req, method, url, body, requestID, true)
	}

	if resp.StatusCode >= 400 {
		if c.circuitBreaker != nil {
			if resp.StatusCode >= 500 {
				c.circuitBreaker.RecordFailure()
			} else {
				c.circuitBreaker.RecordSuccess()
			}
		}
		return nil, c.finalize(Classify(nil, resp), method, req.Path)
	}

	if c.circuitBreaker != nil {
		c.circuitBreaker.RecordSuccess()
	}
	return resp, nil
}

// finalize stamps request context onto a classified error and records it.
func (c *Client) finalize(appErr *Error, method, endpoint string) *Error {
	if appErr.Method == "" {
		appErr.Method = method
	}
	if appErr.Endpoint == "" {
		appErr.Endpoint = endpoint
	}
	if c.metrics != nil {
		c.metrics.RecordError(string(appErr.Type), method, endpoint)
	}
	if c.logger != nil {
		c.logger.Warn("request failed", "method", method, "endpoint", endpoint, "type", string(appErr.Type), "status", appErr.StatusCode)
	}
	return appErr
}

func (c *Client) record(method, endpoint string, resp *Response, err error, start time.Time) {
	if c.metrics == nil {
		return
	}
	status := 0
	if resp != nil {
		status = resp.StatusCode
	} else if appErr := AsError(err); appErr != nil {
		status = appErr.StatusCode
	}
	c.metrics.RecordRequest(method, endpoint, status, time.Since(start))
}

func (c *Client) applyHeaders(httpReq *http.Request, req *Request, body []byte) {
	for k, v := range c.defaultHeaders {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", UserAgent)
	}
	if len(body) > 0 && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
}

func (c *Client) resolveURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	base := strings.TrimSuffix(c.baseURL, "/")
	if path == "" {
		return base
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

func (c *Client) debugEnabled(category debugCategory) bool {
	if c.debug == nil || !c.debug.Enabled || c.logger == nil {
		return false
	}
	switch category {
	case debugRequests:
		return c.debug.LogRequests
	case debugRetries:
		return c.debug.LogRetries
	case debugDedup:
		return c.debug.LogDedup
	case debugAuth:
		return c.debug.LogAuth
	default:
		return false
	}
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	if raw, ok := body.([]byte); ok {
		return raw, nil
	}
	return json.Marshal(body)
}

func bodyReader(body []byte) io.Reader {
	if len(body) == 0 {
		return nil
	}
	return bytes.NewReader(body)
}

// asDispatchError coerces arbitrary errors (interceptor failures, guard
// failures) into the classified error contract.
func asDispatchError(err error) *Error {
	if appErr := AsError(err); appErr != nil {
		return appErr
	}
	return &Error{
		Type:        ErrorTypeUnknown,
		Message:     err.Error(),
		UserMessage: userMsgUnknown,
		Cause:       err,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
