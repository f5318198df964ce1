package jamf

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestSession creates a Session against the given server with
// instant retry sleeps.
func newTestSession(t *testing.T, url string) *Session {
	t.Helper()

	s := NewSession(url, "admin", "hunter2", http.DefaultClient, slog.Default())
	s.sleepFunc = noopSleep

	return s
}

func TestSessionAcquire_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, tokenPath, r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "admin", user)
		assert.Equal(t, "hunter2", pass)

		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, `{"token":"tok-1","expires":"2026-08-25T12:00:00Z"}`)
	}))
	defer srv.Close()

	s := newTestSession(t, srv.URL)
	require.NoError(t, s.Acquire(context.Background()))

	tok, err := s.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)
}

func TestSessionAcquire_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = fmt.Fprint(w, `{"httpStatus":401,"errors":[]}`)

			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, `{"token":"tok-1","expires":"2026-08-25T12:00:00Z"}`)
	}))
	defer srv.Close()

	s := newTestSession(t, srv.URL)
	require.NoError(t, s.Acquire(context.Background()))
	assert.Equal(t, int32(3), calls.Load())
}

func TestSessionAcquire_ExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := newTestSession(t, srv.URL)
	err := s.Acquire(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, int32(acquireAttempts), calls.Load())
}

func TestSessionAcquire_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, `{"nope":true}`)
	}))
	defer srv.Close()

	s := newTestSession(t, srv.URL)
	err := s.Acquire(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing token")
}

func TestSessionToken_AcquiresLazily(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, `{"token":"tok-lazy","expires":"2026-08-25T12:00:00Z"}`)
	}))
	defer srv.Close()

	s := newTestSession(t, srv.URL)

	tok, err := s.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-lazy", tok)

	// Second call reuses the cached token.
	_, err = s.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSessionRefresh_SupersedesToken(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := calls.Add(1)
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"token":"tok-%d","expires":"2026-08-25T12:00:00Z"}`, n)
	}))
	defer srv.Close()

	s := newTestSession(t, srv.URL)
	require.NoError(t, s.Acquire(context.Background()))
	require.NoError(t, s.Refresh(context.Background()))

	tok, err := s.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)
}

func TestSessionRefresh_Serialized(t *testing.T) {
	var calls atomic.Int32

	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		<-release

		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, `{"token":"tok-shared","expires":"2026-08-25T12:00:00Z"}`)
	}))
	defer srv.Close()

	s := newTestSession(t, srv.URL)

	const waiters = 5

	var wg sync.WaitGroup

	for range waiters {
		wg.Add(1)

		go func() {
			defer wg.Done()
			assert.NoError(t, s.Refresh(context.Background()))
		}()
	}

	// Give the goroutines time to pile onto the in-flight refresh, then
	// let the single token request complete.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "all waiters should share one token request")
}

func TestSessionInvalidate_Success(t *testing.T) {
	var invalidated atomic.Bool

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case tokenPath:
			w.WriteHeader(http.StatusOK)
			_, _ = fmt.Fprint(w, `{"token":"tok-1","expires":"2026-08-25T12:00:00Z"}`)
		case invalidatePath:
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			invalidated.Store(true)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	s := newTestSession(t, srv.URL)
	require.NoError(t, s.Acquire(context.Background()))

	s.Invalidate(context.Background())
	assert.True(t, invalidated.Load())
}

func TestSessionInvalidate_NoToken(t *testing.T) {
	// No server: Invalidate without a token must not make any request.
	s := NewSession("http://127.0.0.1:1", "admin", "pw", http.DefaultClient, slog.Default())
	s.Invalidate(context.Background())
}

func TestSessionInvalidate_SwallowsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == tokenPath {
			w.WriteHeader(http.StatusOK)
			_, _ = fmt.Fprint(w, `{"token":"tok-1","expires":"2026-08-25T12:00:00Z"}`)

			return
		}

		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := newTestSession(t, srv.URL)
	require.NoError(t, s.Acquire(context.Background()))

	// Must not panic or propagate; shutdown paths depend on that.
	s.Invalidate(context.Background())
}

func TestSessionAcquire_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newTestSession(t, srv.URL)
	err := s.Acquire(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
