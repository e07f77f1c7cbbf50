package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Loader produces a value to cache.
type Loader[T any] func(ctx context.Context) (T, error)

// JSON returns the JSON encoding of the value under key, calling load on a
// miss. Cache failures are logged and fall through to load, so a broken
// cache only costs latency.
func JSON[T any](ctx context.Context, c Cache, log *zap.Logger, key string, ttl time.Duration, load Loader[T]) ([]byte, error) {
	if c != nil && ttl > 0 {
		b, err := c.Get(ctx, key)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, ErrMiss) {
			log.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
	}

	v, err := load(ctx)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	if c != nil && ttl > 0 {
		if err := c.Set(ctx, key, b, ttl); err != nil {
			log.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		}
	}
	return b, nil
}
