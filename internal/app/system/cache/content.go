package cache

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Content kinds used as key namespaces by the public read API.
const (
	KindSliders   = "sliders"
	KindPortfolio = "portfolio"
	KindProducts  = "products"
	KindServices  = "services"
	KindNews      = "news"
	KindModels    = "models"
	KindAbout     = "about"
	KindTheme     = "theme"
	KindSettings  = "settings"
)

const contentPrefix = "content:"

// Content is the response cache shared by the public read endpoints. A nil
// *Content, or one with a zero TTL, disables caching.
//
// Every kind carries a generation that is part of the stored key. Invalidate
// bumps it, so a read that loaded before an admin write stores its result
// under a key no later read asks for. Generations are per process; with a
// shared Redis another instance's late write can still land until the TTL.
type Content struct {
	c   Cache
	ttl time.Duration
	log *zap.Logger

	mu  sync.Mutex
	gen map[string]uint64
}

// NewContent wraps c with the given TTL.
func NewContent(c Cache, ttl time.Duration, log *zap.Logger) *Content {
	if log == nil {
		log = zap.NewNop()
	}
	return &Content{c: c, ttl: ttl, log: log, gen: map[string]uint64{}}
}

func (cc *Content) generation(kind string) uint64 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.gen[kind]
}

func (cc *Content) bump(kind string) {
	cc.mu.Lock()
	cc.gen[kind]++
	cc.mu.Unlock()
}

// storedKey appends the current generation of key's kind.
func (cc *Content) storedKey(key string) string {
	kind, _, _ := strings.Cut(strings.TrimPrefix(key, contentPrefix), ":")
	return key + "@" + strconv.FormatUint(cc.generation(kind), 10)
}

// Key builds the cache key for one public payload of kind.
func Key(kind string, parts ...string) string {
	return contentPrefix + kind + ":" + strings.Join(parts, ":")
}

// Load returns the cached JSON for key, calling load on a miss.
func Load[T any](ctx context.Context, cc *Content, key string, load Loader[T]) ([]byte, error) {
	if cc == nil {
		return JSON(ctx, nil, zap.NewNop(), key, 0, load)
	}
	return JSON(ctx, cc.c, cc.log, cc.storedKey(key), cc.ttl, load)
}

// Invalidate moves the given kinds to a new generation and drops their
// cached payloads. Delete failures are logged; entries of old generations
// are never read again and expire with the TTL.
func (cc *Content) Invalidate(ctx context.Context, kinds ...string) {
	if cc == nil || cc.c == nil {
		return
	}
	for _, k := range kinds {
		cc.bump(k)
		if err := cc.c.DeletePrefix(ctx, contentPrefix+k+":"); err != nil {
			cc.log.Warn("cache invalidate failed", zap.String("kind", k), zap.Error(err))
		}
	}
}
