// Package health serves liveness and readiness probes and a detailed
// /health report of the backing services.
package health

import (
	"context"
	"net/http"
	"sync"

	"github.com/dalemusser/stratasite/internal/app/system/jsonutil"
	"github.com/dalemusser/stratasite/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Overall and per-service states.
const (
	StatusOK          = "ok"
	StatusDegraded    = "degraded"
	StatusUnavailable = "unavailable"
)

// probe is one backing service. A failing required probe makes the site
// unavailable; an optional one (Redis: cache and rate limits fail open)
// only degrades it.
type probe struct {
	name     string
	required bool
	ping     func(context.Context) error
}

type Handler struct {
	mongo  *mongo.Client
	probes []probe
	logger *zap.Logger
}

// NewHandler builds the probes. redisClient is nil when Redis is not
// configured and then is not reported.
func NewHandler(mongoClient *mongo.Client, redisClient *redis.Client, logger *zap.Logger) *Handler {
	h := &Handler{mongo: mongoClient, logger: logger}
	if mongoClient != nil {
		h.probes = append(h.probes, probe{name: "mongodb", required: true, ping: h.pingMongo})
	}
	if redisClient != nil {
		h.probes = append(h.probes, probe{name: "redis", ping: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}
	return h
}

func (h *Handler) pingMongo(ctx context.Context) error {
	return h.mongo.Ping(ctx, readpref.Primary())
}

type Response struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services,omitempty"`
}

// Routes serves /, /ready and /live under the mount point (normally /health).
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Check)
	r.Get("/ready", h.Ready)
	r.Get("/live", h.Live)
	return r
}

// MountRootEndpoints adds the probe paths orchestrators expect at the root.
func MountRootEndpoints(r chi.Router, h *Handler) {
	r.Get("/ready", h.Ready)
	r.Get("/readyz", h.Ready)
	r.Get("/livez", h.Live)
}

// Check pings every service concurrently. It answers 503 only when a
// required service is down.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	errs := make([]error, len(h.probes))
	var wg sync.WaitGroup
	for i, p := range h.probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = p.ping(ctx)
		}()
	}
	wg.Wait()

	resp := Response{Status: StatusOK, Services: make(map[string]string, len(h.probes))}
	code := http.StatusOK
	for i, p := range h.probes {
		if errs[i] == nil {
			resp.Services[p.name] = StatusOK
			continue
		}
		resp.Services[p.name] = StatusUnavailable
		h.logger.Warn("health check failed", zap.String("service", p.name), zap.Error(errs[i]))
		switch {
		case p.required:
			resp.Status, code = StatusUnavailable, http.StatusServiceUnavailable
		case resp.Status == StatusOK:
			resp.Status = StatusDegraded
		}
	}
	jsonutil.JSON(w, code, resp)
}

// Ready reports whether MongoDB answers; nothing is served without it.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	if err := h.pingMongo(ctx); err != nil {
		h.logger.Warn("readiness check failed", zap.Error(err))
		jsonutil.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	jsonutil.OK(w, map[string]string{"status": "ready"})
}

func (h *Handler) Live(w http.ResponseWriter, _ *http.Request) {
	jsonutil.OK(w, map[string]string{"status": "alive"})
}
