package security

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMemoryCounter_Window(t *testing.T) {
	c := NewMemoryCounter()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	n, ttl, err := c.Incr(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, time.Minute, ttl)

	now = now.Add(20 * time.Second)
	n, ttl, _ = c.Incr(ctx, "k", time.Minute)
	assert.EqualValues(t, 2, n)
	assert.Equal(t, 40*time.Second, ttl)

	now = now.Add(41 * time.Second)
	n, _, _ = c.Incr(ctx, "k", time.Minute)
	assert.EqualValues(t, 1, n, "window should reset")
}

func TestMemoryCounter_Sweep(t *testing.T) {
	c := NewMemoryCounter()
	now := time.Now()
	c.now = func() time.Time { return now }
	ctx := context.Background()
	c.Incr(ctx, "a", time.Second)
	c.Incr(ctx, "b", time.Hour)

	now = now.Add(2 * time.Second)
	assert.Equal(t, 1, c.Sweep())
	assert.Len(t, c.windows, 1)
}

func TestRateLimit(t *testing.T) {
	mon := NewMonitor(10, nil, zap.NewNop())
	cfg := RateLimitConfig{Name: "api", Limit: 2, Window: time.Minute}
	h := RateLimit(cfg, NewMemoryCounter(), mon, zap.NewNop())(okHandler())

	do := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/api/news", nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1").Code)
	rec := do("10.0.0.1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = do("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	do("10.0.0.1")

	// Another client is unaffected.
	assert.Equal(t, http.StatusOK, do("10.0.0.2").Code)

	events := mon.Filter(Filter{Type: EventRateLimited})
	assert.Len(t, events, 1, "only the first rejection in a window is recorded")
	assert.Equal(t, "10.0.0.1", events[0].IP)
}

type failingCounter struct{}

func (failingCounter) Incr(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("redis down")
}

func TestRateLimit_FailsOpen(t *testing.T) {
	cfg := RateLimitConfig{Name: "api", Limit: 1, Window: time.Minute}
	h := RateLimit(cfg, failingCounter{}, nil, zap.NewNop())(okHandler())
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 1, retryAfterSeconds(0))
	assert.Equal(t, 2, retryAfterSeconds(1500*time.Millisecond))
	assert.Equal(t, 60, retryAfterSeconds(time.Minute))
}
