package dispatch

import (
	"context"
	"net/http"
	"time"

	"github.com/9046balaji/Heart-sub002/internal/backoff"
)

// retryableStatusCodes is the set of status codes the retry wrapper will
// retry. 0 covers the offline/network/timeout family.
var retryableStatusCodes = map[int]bool{
	0:   true,
	408: true,
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// backoffCalculator computes the delay before retry attempt n (0-based
// index of the failed attempt).
type backoffCalculator interface {
	Delay(attempt int, base time.Duration) time.Duration
}

func defaultBackoff() backoffCalculator {
	return backoff.NewCalculator(backoff.Exponential{
		Multiplier: 2.0,
		MaxJitter:  100 * time.Millisecond,
		MaxDelay:   30 * time.Second,
	})
}

// DoWithRetry wraps Do in a bounded exponential-backoff retry loop. Only
// failures whose status code is in the transient set (408, 429, 5xx gateway
// family, or 0 for network/offline/timeout) and whose classification is
// retryable are re-attempted; everything else fails fast. The final
// attempt's error propagates unchanged.
func (c *Client) DoWithRetry(ctx context.Context, req *Request) (*Response, error) {
	maxRetries := c.maxRetries
	if req != nil && req.MaxRetries > 0 {
		maxRetries = req.MaxRetries
	}
	if maxRetries < 1 {
		maxRetries = 1
	}
	baseDelay := c.retryDelay
	if req != nil && req.RetryDelay > 0 {
		baseDelay = req.RetryDelay
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		resp, err := c.Do(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if attempt == maxRetries-1 || !shouldRetry(err) {
			return nil, err
		}

		delay := c.backoff.Delay(attempt, baseDelay)
		if c.debugEnabled(debugRetries) {
			c.logger.Info("scheduling retry", "attempt", attempt+1, "maxRetries", maxRetries, "backoff", delay, "endpoint", req.Path)
		}
		if c.metrics != nil {
			c.metrics.RecordRetry(reqMethod(req), req.Path, attempt+1)
		}
		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			return nil, c.finalize(Classify(sleepErr, nil), reqMethod(req), req.Path)
		}
	}
	return nil, lastErr
}

// GetWithRetry dispatches a GET through the retry wrapper.
func (c *Client) GetWithRetry(ctx context.Context, path string) (*Response, error) {
	return c.DoWithRetry(ctx, &Request{Method: http.MethodGet, Path: path})
}

// PostWithRetry dispatches a POST through the retry wrapper.
func (c *Client) PostWithRetry(ctx context.Context, path string, body any) (*Response, error) {
	return c.DoWithRetry(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// shouldRetry consults both the classification's retryable flag and the
// transient status-code set. Authentication, authorization, validation and
// not-found failures never qualify.
func shouldRetry(err error) bool {
	appErr := AsError(err)
	if appErr == nil || !appErr.Retryable {
		return false
	}
	return retryableStatusCodes[appErr.StatusCode]
}

func reqMethod(req *Request) string {
	if req == nil || req.Method == "" {
		return http.MethodGet
	}
	return req.Method
}
