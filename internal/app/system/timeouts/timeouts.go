// Package timeouts holds the per-operation time budgets shared by handlers,
// stores and outbound clients. Bootstrap sets them once from config; the
// zero Config leaves the defaults in place.
package timeouts

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultPing     = 5 * time.Second
	DefaultDB       = 5 * time.Second
	DefaultOutbound = 15 * time.Second
)

var (
	ping     atomic.Int64
	db       atomic.Int64
	outbound atomic.Int64
)

func init() {
	Reset()
}

// Ping bounds health checks against MongoDB and Redis.
func Ping() time.Duration { return time.Duration(ping.Load()) }

// DB bounds single-document lookups made on the request path, such as
// loading the session user.
func DB() time.Duration { return time.Duration(db.Load()) }

// Outbound bounds calls to third-party HTTP APIs (Google, Pexels).
func Outbound() time.Duration { return time.Duration(outbound.Load()) }

// Config carries overrides. Zero fields keep the current value.
type Config struct {
	Ping     time.Duration
	DB       time.Duration
	Outbound time.Duration
}

// Configure applies the non-zero fields of cfg.
func Configure(cfg Config) {
	set(&ping, cfg.Ping)
	set(&db, cfg.DB)
	set(&outbound, cfg.Outbound)
}

func set(v *atomic.Int64, d time.Duration) {
	if d > 0 {
		v.Store(int64(d))
	}
}

// Reset restores the defaults. Used by tests.
func Reset() {
	ping.Store(int64(DefaultPing))
	db.Store(int64(DefaultDB))
	outbound.Store(int64(DefaultOutbound))
}

// Current returns the values in effect.
func Current() Config {
	return Config{Ping: Ping(), DB: DB(), Outbound: Outbound()}
}

// WithTimeout derives a context bounded by d and logs when the deadline,
// rather than the caller, ends it.
func WithTimeout(parent context.Context, d time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, d)
	return ctx, func() {
		if log != nil && ctx.Err() == context.DeadlineExceeded && parent.Err() == nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", d))
		}
		cancel()
	}
}
