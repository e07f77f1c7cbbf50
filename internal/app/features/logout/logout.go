// Package logout ends admin sessions. POST /auth/logout always answers 204,
// with or without a session.
package logout

import (
	"net/http"

	"github.com/dalemusser/stratasite/internal/app/system/auditlog"
	"github.com/dalemusser/stratasite/internal/app/system/auth"
	"github.com/dalemusser/stratasite/internal/app/system/jsonutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	sessions *auth.SessionManager
	audit    *auditlog.Logger // nil-safe
	logger   *zap.Logger
}

func NewHandler(sessions *auth.SessionManager, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{sessions: sessions, audit: audit, logger: logger}
}

func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/", h.logout)
	return r
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if u, ok := auth.CurrentUser(r); ok {
		h.audit.Logout(r.Context(), r, u.ID)
		h.logger.Debug("signed out", zap.String("user_id", u.ID))
	}
	h.sessions.DestroySession(w, r)
	jsonutil.NoContent(w)
}
