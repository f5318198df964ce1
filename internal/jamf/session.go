package jamf

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	tokenPath      = "/api/v1/auth/token"
	invalidatePath = "/api/v1/auth/invalidate-token"

	// acquireAttempts is the total number of token requests before
	// acquisition fails. Credential failure is fatal to the run.
	acquireAttempts = 3

	// acquireBackoff is the pause between failed token requests.
	acquireBackoff = 1 * time.Second
)

// Session holds a short-lived bearer token obtained from the Jamf Pro
// token endpoint via basic auth. It implements TokenSource. A Session
// holds at most one live token; acquiring a new one supersedes the old
// token server-side without an explicit revocation.
type Session struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	logger     *slog.Logger

	// sleepFunc pauses between acquisition attempts. Tests override it.
	sleepFunc func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	token   string
	expires time.Time

	// refresh serializes mid-run re-acquisition so that concurrent
	// callers share a single token request instead of churning tokens.
	refresh singleflight.Group
}

// NewSession creates a Session for the given instance URL and
// credentials. No network call is made until Acquire or Token.
func NewSession(baseURL, username, password string, httpClient *http.Client, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Session{
		baseURL:    baseURL,
		username:   username,
		password:   password,
		httpClient: httpClient,
		logger:     logger,
		sleepFunc:  timeSleep,
	}
}

// tokenResponse mirrors the Jamf Pro token endpoint JSON response.
type tokenResponse struct {
	Token   string `json:"token"`
	Expires string `json:"expires"`
}

// Acquire exchanges the username/password pair for a bearer token.
// Up to acquireAttempts requests are made; exhausting them returns an
// error, which callers must treat as fatal — nothing works without a
// credential.
func (s *Session) Acquire(ctx context.Context) error {
	var lastErr error

	for attempt := 0; attempt < acquireAttempts; attempt++ {
		if attempt > 0 {
			s.logger.Warn("token acquisition failed, retrying",
				slog.Int("attempt", attempt+1),
				slog.String("error", lastErr.Error()),
			)

			if err := s.sleepFunc(ctx, acquireBackoff); err != nil {
				return fmt.Errorf("jamf: token acquisition canceled: %w", err)
			}
		}

		tok, expires, err := s.requestToken(ctx)
		if err == nil {
			s.mu.Lock()
			s.token = tok
			s.expires = expires
			s.mu.Unlock()

			s.logger.Info("acquired API token",
				slog.Time("expires", expires),
			)

			return nil
		}

		if ctx.Err() != nil {
			return fmt.Errorf("jamf: token acquisition canceled: %w", ctx.Err())
		}

		lastErr = err
	}

	return fmt.Errorf("jamf: acquiring token failed after %d attempts: %w", acquireAttempts, lastErr)
}

// requestToken performs a single token request.
func (s *Session) requestToken(ctx context.Context) (string, time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+tokenPath, nil)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("creating token request: %w", err)
	}

	req.SetBasicAuth(s.username, s.password)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("reading token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, newAPIError(resp.StatusCode, body)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", time.Time{}, fmt.Errorf("decoding token response: %w", err)
	}

	if tr.Token == "" {
		return "", time.Time{}, fmt.Errorf("token response missing token field")
	}

	// The expiry is informational; a stale value only means the server
	// rejects the token a little earlier than expected.
	expires, err := time.Parse(time.RFC3339, tr.Expires)
	if err != nil {
		expires = time.Time{}
	}

	return tr.Token, expires, nil
}

// Token returns the current bearer token, acquiring one on first use.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	tok := s.token
	s.mu.Unlock()

	if tok != "" {
		return tok, nil
	}

	if err := s.Refresh(ctx); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.token, nil
}

// Refresh re-acquires the token after the server rejected it. Only one
// refresh is in flight at a time; concurrent callers wait for and share
// its result.
func (s *Session) Refresh(ctx context.Context) error {
	_, err, shared := s.refresh.Do("token", func() (any, error) {
		return nil, s.Acquire(ctx)
	})

	if shared {
		s.logger.Debug("token refresh shared with concurrent caller")
	}

	return err
}

// Invalidate revokes the current token, best-effort. It runs during
// shutdown, including on interrupted runs, so failures are logged and
// swallowed. The local token is cleared regardless.
func (s *Session) Invalidate(ctx context.Context) {
	s.mu.Lock()
	tok := s.token
	s.token = ""
	s.mu.Unlock()

	if tok == "" {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+invalidatePath, nil)
	if err != nil {
		s.logger.Warn("building token invalidation request failed",
			slog.String("error", err.Error()),
		)

		return
	}

	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warn("token invalidation failed",
			slog.String("error", err.Error()),
		)

		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		s.logger.Warn("token invalidation rejected",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)),
		)

		return
	}

	s.logger.Info("API token invalidated")
}
