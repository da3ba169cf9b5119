// Package dispatch is the HTTP request-orchestration core underlying every
// network call in the application:
//
//   - In-flight deduplication (concurrent identical read-only calls share
//     one round trip and one settled outcome)
//   - Failure classification into a typed, retryable-aware error with a
//     user-safe message split from the diagnostic one
//   - Bounded exponential-backoff retries with jitter for transient
//     failures
//   - Transparent, exactly-once session renewal and replay on an expired
//     session, serialized across concurrently expiring calls
//   - An ordered request/response interceptor pipeline
//   - Offline gating, per-call timeouts, optional circuit breaking and
//     client-side rate limiting, Prometheus metrics
//
// All state (dedup registry, interceptor lists, credentials) is owned by an
// explicitly constructed Client, so tests run isolated instances:
//
//	store := dispatch.NewMemoryCredentialStore(accessToken, refreshToken)
//	client := dispatch.New(
//	    dispatch.WithBaseURL("https://api.example.com"),
//	    dispatch.WithCredentialStore(store),
//	    dispatch.WithTokenRenewal("https://api.example.com/auth/refresh"),
//	    dispatch.WithMaxRetries(3),
//	)
//	resp, err := client.DoWithRetry(ctx, &dispatch.Request{Path: "/assessments"})
//
// Callers branch on failures via the classified error:
//
//	if appErr := dispatch.AsError(err); appErr != nil {
//	    show(appErr.UserMessage) // never the diagnostic Message
//	}
package dispatch
