// internal/app/features/login/login.go
package login

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	errorsfeature "github.com/dalemusser/stratasite/internal/app/features/errors"
	"github.com/dalemusser/stratasite/internal/app/store/ratelimit"
	userstore "github.com/dalemusser/stratasite/internal/app/store/users"
	"github.com/dalemusser/stratasite/internal/app/system/auditlog"
	"github.com/dalemusser/stratasite/internal/app/system/auth"
	"github.com/dalemusser/stratasite/internal/app/system/authutil"
	"github.com/dalemusser/stratasite/internal/app/system/jsonutil"
	"github.com/dalemusser/stratasite/internal/app/system/normalize"
	"github.com/dalemusser/stratasite/internal/app/system/security"
	"github.com/dalemusser/stratasite/internal/app/system/status"
	"github.com/dalemusser/stratasite/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler provides the session sign-in endpoints.
type Handler struct {
	userStore      *userstore.Store
	rateLimitStore *ratelimit.Store // nil if rate limiting disabled
	sessionMgr     *auth.SessionManager
	errLog         *errorsfeature.ErrorLogger
	auditLogger    *auditlog.Logger
	monitor        *security.Monitor
	logger         *zap.Logger
}

// NewHandler creates a new login Handler.
// rateLimitStore can be nil to disable rate limiting.
func NewHandler(
	db *mongo.Database,
	sessionMgr *auth.SessionManager,
	errLog *errorsfeature.ErrorLogger,
	auditLogger *auditlog.Logger,
	rateLimitStore *ratelimit.Store,
	monitor *security.Monitor,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		userStore:      userstore.New(db),
		rateLimitStore: rateLimitStore,
		sessionMgr:     sessionMgr,
		errLog:         errLog,
		auditLogger:    auditLogger,
		monitor:        monitor,
		logger:         logger,
	}
}

// Routes returns the router mounted at /auth.
//
//   - POST /login  email + password sign-in
//   - GET  /me     the signed-in user
//   - GET  /csrf   a CSRF token for the admin client
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/login", h.handleLogin)
	r.Get("/csrf", h.handleCSRF)
	r.With(h.sessionMgr.RequireSignedIn).Get("/me", h.handleMe)
	return r
}

type loginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserJSON is the user shape returned by /auth endpoints.
type UserJSON struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	AuthMethod   string `json:"auth_method,omitempty"`
	PasswordTemp bool   `json:"password_temp"`
}

type loginResponse struct {
	User         UserJSON `json:"user"`
	PasswordTemp bool     `json:"password_temp"`
}

var errInvalidCredentials = errors.New("invalid credentials")

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return
	}
	email := normalize.Email(in.Email)
	fields := map[string]string{}
	if email == "" {
		fields["email"] = "Email is required."
	}
	if in.Password == "" {
		fields["password"] = "Password is required."
	}
	if len(fields) > 0 {
		jsonutil.ValidationError(w, fields)
		return
	}

	// Check rate limit before processing
	if h.rateLimitStore != nil {
		if d := h.rateLimitStore.Check(r.Context(), email); !d.Allowed {
			h.auditLogger.LoginLockedOut(r.Context(), r, email)
			tooManyAttempts(w, d.LockedUntil)
			return
		}
	}

	user, err := h.userStore.GetByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Record failure for rate limiting (even though user doesn't exist)
			h.recordFailure(r, email)
			h.auditLogger.LoginFailedUserNotFound(r.Context(), r, email)
			jsonutil.Unauthorized(w, errInvalidCredentials.Error())
			return
		}
		h.errLog.Log(r, "database error during login lookup", err)
		jsonutil.ServiceUnavailable(w, "service temporarily unavailable")
		return
	}

	if user.AuthMethod != models.AuthPassword || user.PasswordHash == nil ||
		!authutil.CheckPassword(in.Password, *user.PasswordHash) {
		if d := h.recordFailure(r, email); !d.Allowed {
			h.auditLogger.LoginLockedOut(r.Context(), r, email)
			h.monitor.Record(r.Context(), security.RequestEvent(r, security.EventAccountLocked, security.SeverityHigh,
				"account locked after repeated failures", map[string]string{"email": email}))
			tooManyAttempts(w, d.LockedUntil)
			return
		}
		h.auditLogger.LoginFailedWrongPassword(r.Context(), r, user.ID, email)
		h.monitor.Record(r.Context(), security.RequestEvent(r, security.EventLoginFailure, security.SeverityLow,
			"wrong password", map[string]string{"email": email}))
		jsonutil.Unauthorized(w, errInvalidCredentials.Error())
		return
	}

	// Status is only revealed to someone who knows the password.
	if !status.CanSignIn(user.Status) {
		h.recordFailure(r, email)
		h.auditLogger.LoginFailedUserDisabled(r.Context(), r, user.ID, email)
		jsonutil.Forbidden(w, "account is disabled")
		return
	}

	// Clear rate limit on successful login
	if h.rateLimitStore != nil {
		if err := h.rateLimitStore.Clear(r.Context(), email); err != nil {
			h.logger.Warn("failed to clear login attempts", zap.Error(err))
		}
	}

	su := auth.SessionUser{
		ID:           user.ID.Hex(),
		Name:         user.FullName,
		Email:        user.Email,
		Role:         normalize.Role(user.Role),
		AuthMethod:   user.AuthMethod,
		MustChangePW: user.MustChangePassword(),
	}
	if err := h.sessionMgr.CreateSession(w, r, su); err != nil {
		h.errLog.Log(r, "failed to create session", err)
		jsonutil.InternalError(w, "failed to create session")
		return
	}
	if err := h.userStore.TouchLogin(r.Context(), user.ID); err != nil {
		h.logger.Warn("failed to record last login", zap.Error(err))
	}

	h.auditLogger.LoginSuccess(r.Context(), r, user.ID, user.AuthMethod, user.Email)

	jsonutil.OK(w, loginResponse{User: toJSON(&su), PasswordTemp: su.MustChangePW})
}

// recordFailure counts a failed attempt. It is a no-op without a store.
func (h *Handler) recordFailure(r *http.Request, email string) ratelimit.Decision {
	if h.rateLimitStore == nil {
		return ratelimit.Decision{Allowed: true}
	}
	return h.rateLimitStore.RecordFailure(r.Context(), email)
}

func tooManyAttempts(w http.ResponseWriter, lockedUntil *time.Time) {
	if lockedUntil != nil {
		secs := int(time.Until(*lockedUntil).Seconds()) + 1
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
	jsonutil.Error(w, http.StatusTooManyRequests, "too many failed login attempts, try again later")
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	jsonutil.OK(w, map[string]any{"user": toJSON(u)})
}

// handleCSRF returns a token for the X-CSRF-Token header of unsafe requests.
func (h *Handler) handleCSRF(w http.ResponseWriter, r *http.Request) {
	token := csrf.Token(r)
	w.Header().Set("X-CSRF-Token", token)
	jsonutil.OK(w, map[string]string{"csrf_token": token})
}

func toJSON(u *auth.SessionUser) UserJSON {
	return UserJSON{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Role:         u.Role,
		AuthMethod:   u.AuthMethod,
		PasswordTemp: u.MustChangePW,
	}
}
