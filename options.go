package dispatch

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// WithBaseURL sets the base URL that relative request paths resolve
// against.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the default per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithDefaultHeader adds a header sent on every request unless overridden
// per call.
func WithDefaultHeader(key, value string) Option {
	return func(c *Client) {
		if c.defaultHeaders == nil {
			c.defaultHeaders = make(map[string]string)
		}
		c.defaultHeaders[key] = value
	}
}

// WithMaxRetries sets the default total attempt budget for DoWithRetry.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets the base delay for the exponential backoff schedule.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithConnectivityCheck sets the environment connectivity signal. When the
// check reports false, dispatch fails with an Offline error without
// touching the network.
func WithConnectivityCheck(fn ConnectivityFunc) Option {
	return func(c *Client) {
		c.online = fn
	}
}

// WithCredentialStore sets the store holding the access/refresh token pair.
func WithCredentialStore(store CredentialStore) Option {
	return func(c *Client) {
		c.guard.store = store
	}
}

// WithTokenRenewal sets the endpoint used to exchange the refresh token for
// a new pair when a call reports an expired session.
func WithTokenRenewal(renewalURL string) Option {
	return func(c *Client) {
		c.guard.renewalURL = renewalURL
	}
}

// WithRenewalTimeout sets the timeout for the renewal round trip itself.
func WithRenewalTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.guard.renewalTimeout = d
	}
}

// WithSessionExpiredHandler registers the navigation side-channel invoked
// when a session cannot be renewed.
func WithSessionExpiredHandler(fn func()) Option {
	return func(c *Client) {
		c.guard.onSessionExpired = fn
	}
}

// WithDedupKeyFunc replaces the default method+URL+body dedup key.
func WithDedupKeyFunc(fn DedupKeyFunc) Option {
	return func(c *Client) {
		c.dedupKeyFunc = fn
	}
}

// WithRequestInterceptor registers request interceptors at construction.
func WithRequestInterceptor(interceptors ...RequestInterceptor) Option {
	return func(c *Client) {
		for _, i := range interceptors {
			c.interceptors.appendRequest(i)
		}
	}
}

// WithResponseInterceptor registers response interceptors at construction.
func WithResponseInterceptor(interceptors ...ResponseInterceptor) Option {
	return func(c *Client) {
		for _, i := range interceptors {
			c.interceptors.appendResponse(i)
		}
	}
}

// WithCircuitBreaker enables the circuit breaker in front of the transport.
func WithCircuitBreaker(config CircuitBreakerConfig) Option {
	return func(c *Client) {
		c.circuitBreaker = NewCircuitBreaker(config)
	}
}

// WithRateLimiter enables a client-side token-bucket throttle.
func WithRateLimiter(maxTokens int, refillRate time.Duration) Option {
	return func(c *Client) {
		c.rateLimiter = NewRateLimiter(maxTokens, refillRate)
	}
}

// WithMetrics enables Prometheus metrics on the default registerer.
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector.
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithLogger sets the logger used for debug and warning output.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables debug logging with all categories on.
func WithDebug() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
	}
}

// WithDebugConfig sets a custom debug configuration.
func WithDebugConfig(config *DebugConfig) Option {
	return func(c *Client) {
		c.debug = config
	}
}

// ValidateConfiguration checks the assembled configuration and returns a
// Validation error aggregating every problem found.
func (c *Client) ValidateConfiguration() error {
	var problems []string

	if c.timeout <= 0 {
		problems = append(problems, "timeout must be positive")
	}
	if c.maxRetries < 1 {
		problems = append(problems, "maxRetries must be at least 1")
	}
	if c.retryDelay <= 0 {
		problems = append(problems, "retryDelay must be positive")
	}
	if c.baseURL != "" {
		if _, err := url.Parse(c.baseURL); err != nil {
			problems = append(problems, fmt.Sprintf("baseURL is not a valid URL: %v", err))
		}
	}
	if c.guard.renewalURL != "" {
		if _, err := url.Parse(c.guard.renewalURL); err != nil {
			problems = append(problems, fmt.Sprintf("renewal URL is not a valid URL: %v", err))
		}
	}
	if c.guard.renewalTimeout <= 0 {
		problems = append(problems, "renewalTimeout must be positive")
	}
	if c.httpClient == nil {
		problems = append(problems, "httpClient must not be nil")
	}
	if c.dedupKeyFunc == nil {
		problems = append(problems, "dedupKeyFunc must not be nil")
	}
	if c.debug != nil && c.debug.Enabled && c.logger == nil {
		problems = append(problems, "debug logging requires a logger")
	}

	if len(problems) > 0 {
		return &Error{
			Type:        ErrorTypeValidation,
			Message:     fmt.Sprintf("configuration validation failed: %v", problems),
			UserMessage: userMsgUnknown,
		}
	}
	return nil
}
