package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"
)

// CredentialStore holds the access/refresh token pair. Implementations must
// be safe for concurrent use; the credential guard is the sole mutator
// during a client's lifetime.
type CredentialStore interface {
	// AuthHeader returns the value for the Authorization header, or ""
	// when no session is active.
	AuthHeader() string
	// RefreshToken returns the current refresh token, or "".
	RefreshToken() string
	SetToken(token string)
	SetRefreshToken(token string)
	// ClearAuth drops both tokens.
	ClearAuth()
}

// MemoryCredentialStore is an in-process CredentialStore.
type MemoryCredentialStore struct {
	mu      sync.RWMutex
	token   string
	refresh string
}

// NewMemoryCredentialStore returns a store seeded with the given pair.
// Either value may be empty.
func NewMemoryCredentialStore(token, refresh string) *MemoryCredentialStore {
	return &MemoryCredentialStore{token: token, refresh: refresh}
}

func (s *MemoryCredentialStore) AuthHeader() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return ""
	}
	return "Bearer " + s.token
}

func (s *MemoryCredentialStore) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh
}

func (s *MemoryCredentialStore) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func (s *MemoryCredentialStore) SetRefreshToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh = token
}

func (s *MemoryCredentialStore) ClearAuth() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.refresh = ""
}

// credentialGuard owns session renewal. It injects the access token into
// outgoing requests and renews an expired session at most once per logical
// call; concurrent 401s share a single renewal round trip.
type credentialGuard struct {
	store            CredentialStore
	renewalURL       string
	renewalTimeout   time.Duration
	httpClient       *http.Client
	onSessionExpired func()
	logger           Logger

	group singleflight.Group
}

// inject sets the Authorization header from the store. An explicit header
// already present on the request wins.
func (g *credentialGuard) inject(req *http.Request) {
	if g == nil || g.store == nil {
		return
	}
	if req.Header.Get("Authorization") != "" {
		return
	}
	if header := g.store.AuthHeader(); header != "" {
		req.Header.Set("Authorization", header)
	}
}

// renew exchanges the refresh token for a fresh pair. Concurrent callers
// collapse onto one round trip and share its outcome. On any failure the
// credentials are cleared and the session-expired hook fires; the returned
// error is always an Authentication *Error.
func (g *credentialGuard) renew(ctx context.Context) error {
	_, err, _ := g.group.Do("renew", func() (any, error) {
		return nil, g.renewOnce(ctx)
	})
	return err
}

func (g *credentialGuard) renewOnce(ctx context.Context) error {
	if g.store == nil || g.renewalURL == "" {
		g.expire()
		return authError("session renewal unavailable", nil)
	}

	refresh := g.store.RefreshToken()
	if refresh == "" {
		g.expire()
		return authError("no refresh token", nil)
	}

	payload, err := json.Marshal(map[string]string{"refreshToken": refresh})
	if err != nil {
		g.expire()
		return authError("encode renewal payload", err)
	}

	// The renewal call goes straight to the transport: routing it through
	// the dispatcher would re-enter the 401 handling it exists to resolve.
	renewCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.renewalTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(renewCtx, http.MethodPost, g.renewalURL, bytes.NewReader(payload))
	if err != nil {
		g.expire()
		return authError("build renewal request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		g.expire()
		return authError("session renewal failed", err)
	}
	body, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		g.expire()
		return authError("read renewal response", readErr)
	}

	if resp.StatusCode != http.StatusOK {
		g.expire()
		return authError(fmt.Sprintf("session renewal rejected with status %d", resp.StatusCode), nil)
	}

	token := gjson.GetBytes(body, "token").String()
	if token == "" {
		token = gjson.GetBytes(body, "accessToken").String()
	}
	if token == "" {
		g.expire()
		return authError("renewal response missing token", nil)
	}

	g.store.SetToken(token)
	if next := gjson.GetBytes(body, "refreshToken").String(); next != "" {
		g.store.SetRefreshToken(next)
	}

	if g.logger != nil {
		g.logger.Debug("session renewed")
	}
	return nil
}

// expire clears the credential pair and signals the navigation side-channel.
func (g *credentialGuard) expire() {
	if g.store != nil {
		g.store.ClearAuth()
	}
	if g.onSessionExpired != nil {
		g.onSessionExpired()
	}
}

func authError(msg string, cause error) *Error {
	return &Error{
		Type:        ErrorTypeAuthentication,
		Message:     msg,
		UserMessage: userMsgSessionExpired,
		StatusCode:  401,
		Retryable:   false,
		Cause:       cause,
	}
}
