// internal/app/features/securityevents/securityevents.go
package securityevents

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/stratasite/internal/app/system/authz"
	"github.com/dalemusser/stratasite/internal/app/system/jsonutil"
	"github.com/dalemusser/stratasite/internal/app/system/security"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// Handler exposes the in-memory security monitor to admins.
type Handler struct {
	monitor *security.Monitor
	logger  *zap.Logger
}

func NewHandler(mon *security.Monitor, logger *zap.Logger) *Handler {
	return &Handler{monitor: mon, logger: logger}
}

// Routes mounts at /admin/api/security.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/events", h.events)
	r.Delete("/events", h.clear)
	r.Get("/stats", h.stats)
	return r
}

// events lists held events newest first.
//
//	?type=rate_limited  ?severity=high  ?ip=203.0.113.9
//	?since=24h or an RFC 3339 time  ?limit=100
func (h *Handler) events(w http.ResponseWriter, r *http.Request) {
	f := security.Filter{
		Type:     security.EventType(query.Get(r, "type")),
		Severity: security.Severity(query.Get(r, "severity")),
		IP:       query.Get(r, "ip"),
		Limit:    defaultLimit,
	}
	if f.Severity != "" && !security.ValidSeverity(f.Severity) {
		jsonutil.BadRequest(w, "invalid severity")
		return
	}
	if v := query.Get(r, "since"); v != "" {
		since, ok := parseSince(v, time.Now())
		if !ok {
			jsonutil.BadRequest(w, "since must be a duration like 24h or an RFC 3339 time")
			return
		}
		f.Since = since
	}
	if v := query.Get(r, "limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			jsonutil.BadRequest(w, "invalid limit")
			return
		}
		f.Limit = min(n, maxLimit)
	}

	events := h.monitor.Filter(f)
	if events == nil {
		events = []security.Event{}
	}
	jsonutil.OK(w, map[string]any{"events": events, "count": len(events)})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	jsonutil.OK(w, h.monitor.Stats())
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	n := h.monitor.Clear()
	h.logger.Info("security events cleared",
		zap.Int("removed", n),
		zap.String("actor_id", authz.ActorID(r).Hex()))
	jsonutil.OK(w, map[string]int{"removed": n})
}

func parseSince(v string, now time.Time) (time.Time, bool) {
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return now.Add(-d), true
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, true
	}
	return time.Time{}, false
}
