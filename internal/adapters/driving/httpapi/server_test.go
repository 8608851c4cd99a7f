package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, config Config) (*Server, *mockIngestService, *mockQueryService) {
	t.Helper()
	ingest := &mockIngestService{}
	query := &mockQueryService{}
	s, err := NewServer(ingest, query, config)
	require.NoError(t, err)
	return s, ingest, query
}

func TestNewServer_RequiresServices(t *testing.T) {
	_, err := NewServer(nil, &mockQueryService{}, Config{})
	assert.ErrorIs(t, err, ErrMissingService)

	_, err = NewServer(&mockIngestService{}, nil, Config{})
	assert.ErrorIs(t, err, ErrMissingService)
}

func TestNewServer_DefaultQueryTimeout(t *testing.T) {
	s, _, _ := newTestServer(t, Config{})
	assert.Equal(t, DefaultQueryTimeout, s.config.QueryTimeout)
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t, Config{})

	for _, path := range []string{"/healthz", "/health"} {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String(), path)
	}
}

func TestRequestID_GeneratedAndEchoed(t *testing.T) {
	s, _, _ := newTestServer(t, Config{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.NotEmpty(t, rec.Header().Get(headerRequestID))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(headerRequestID, "abc-123")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(headerRequestID))
}

func TestRateLimit_RejectsOverBudget(t *testing.T) {
	s, _, _ := newTestServer(t, Config{RateLimitPerMinute: 2})

	codes := make([]int, 3)
	for i := range codes {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		s.Handler().ServeHTTP(rec, req)
		codes[i] = rec.Code
		if rec.Code == http.StatusTooManyRequests {
			assert.JSONEq(t, `{"detail":"Rate limit exceeded"}`, rec.Body.String())
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// Other clients have their own budget.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_Disabled(t *testing.T) {
	s, _, _ := newTestServer(t, Config{})

	for range 100 {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimiter_Refills(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := newRateLimiter(60)
	l.now = func() time.Time { return now }

	for range 60 {
		require.True(t, l.allow("a"))
	}
	assert.False(t, l.allow("a"))

	now = now.Add(time.Second)
	assert.True(t, l.allow("a"))
}

func TestRateLimiter_EvictsIdleClients(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := newRateLimiter(1)
	l.now = func() time.Time { return now }
	l.lastSweep = now

	require.True(t, l.allow("a"))
	require.Len(t, l.clients, 1)

	now = now.Add(2 * clientIdleTTL)
	require.True(t, l.allow("b"))
	assert.NotContains(t, l.clients, "a")
	assert.Contains(t, l.clients, "b")
}

func TestRun_StopsOnCancel(t *testing.T) {
	s, _, _ := newTestServer(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
