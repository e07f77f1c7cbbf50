package security

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dalemusser/stratasite/internal/app/system/jsonutil"
	"github.com/dalemusser/stratasite/internal/app/system/network"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Counter counts hits per key in fixed windows.
type Counter interface {
	// Incr adds one hit to key and returns the count in the current window
	// and the time left until the window resets.
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RedisCounter keeps windows in Redis with INCR and EXPIRE so limits are
// shared between instances.
type RedisCounter struct {
	client *redis.Client
	prefix string
}

// NewRedisCounter creates a Redis-backed counter. Keys are namespaced by prefix.
func NewRedisCounter(client *redis.Client, prefix string) *RedisCounter {
	return &RedisCounter{client: client, prefix: prefix}
}

// Incr implements Counter.
func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	k := c.prefix + key
	n, err := c.client.Incr(ctx, k).Result()
	if err != nil {
		return 0, 0, err
	}
	if n == 1 {
		if err := c.client.Expire(ctx, k, window).Err(); err != nil {
			return n, window, err
		}
		return n, window, nil
	}
	ttl, err := c.client.TTL(ctx, k).Result()
	if err != nil {
		return n, window, err
	}
	if ttl < 0 {
		// Key lost its expiry (e.g. a crash between INCR and EXPIRE).
		_ = c.client.Expire(ctx, k, window).Err()
		ttl = window
	}
	return n, ttl, nil
}

// MemoryCounter is a single-process Counter.
type MemoryCounter struct {
	mu      sync.Mutex
	windows map[string]*memWindow
	now     func() time.Time
}

type memWindow struct {
	count int64
	reset time.Time
}

// NewMemoryCounter creates an in-memory counter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{windows: map[string]*memWindow{}, now: time.Now}
}

// Incr implements Counter.
func (c *MemoryCounter) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	w, ok := c.windows[key]
	if !ok || !now.Before(w.reset) {
		w = &memWindow{reset: now.Add(window)}
		c.windows[key] = w
	}
	w.count++
	return w.count, w.reset.Sub(now), nil
}

// Sweep removes expired windows and returns how many were dropped.
func (c *MemoryCounter) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for k, w := range c.windows {
		if !now.Before(w.reset) {
			delete(c.windows, k)
			n++
		}
	}
	return n
}

// RateLimitConfig configures RateLimit.
type RateLimitConfig struct {
	Name   string // key namespace, e.g. "api" or "contact"
	Limit  int64
	Window time.Duration
}

// RateLimit limits requests per client IP. Counter errors fail open.
func RateLimit(cfg RateLimitConfig, counter Counter, mon *Monitor, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			ip := network.GetClientIP(r)
			n, ttl, err := counter.Incr(r.Context(), cfg.Name+":"+ip, cfg.Window)
			if err != nil {
				logger.Warn("rate limit counter failed",
					zap.String("limiter", cfg.Name), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			remaining := cfg.Limit - n
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(cfg.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if n > cfg.Limit {
				// Only the first rejected request in a window is recorded.
				if n == cfg.Limit+1 && mon != nil {
					mon.Record(r.Context(), RequestEvent(r, EventRateLimited, SeverityMedium,
						"rate limit exceeded",
						map[string]string{"limiter": cfg.Name}))
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(ttl)))
				jsonutil.Error(w, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func retryAfterSeconds(ttl time.Duration) int {
	s := int(math.Ceil(ttl.Seconds()))
	if s < 1 {
		s = 1
	}
	return s
}
