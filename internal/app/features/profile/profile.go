// internal/app/features/profile/profile.go
package profile

import (
	"errors"
	"net/http"

	errorsfeature "github.com/dalemusser/stratasite/internal/app/features/errors"
	userstore "github.com/dalemusser/stratasite/internal/app/store/users"
	"github.com/dalemusser/stratasite/internal/app/system/auditlog"
	"github.com/dalemusser/stratasite/internal/app/system/auth"
	"github.com/dalemusser/stratasite/internal/app/system/authutil"
	"github.com/dalemusser/stratasite/internal/app/system/inputval"
	"github.com/dalemusser/stratasite/internal/app/system/jsonutil"
	"github.com/dalemusser/stratasite/internal/app/system/mailer"
	"github.com/dalemusser/stratasite/internal/app/system/security"
	"github.com/dalemusser/stratasite/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the signed-in user's own account.
type Handler struct {
	userStore   *userstore.Store
	errLog      *errorsfeature.ErrorLogger
	auditLogger *auditlog.Logger
	mail        mailer.Sender // nil disables notifications
	siteName    string
	loginURL    string
	logger      *zap.Logger
}

// NewHandler creates a new profile Handler.
func NewHandler(db *mongo.Database, errLog *errorsfeature.ErrorLogger, auditLogger *auditlog.Logger, mail mailer.Sender, siteName, loginURL string, logger *zap.Logger) *Handler {
	return &Handler{
		userStore:   userstore.New(db),
		errLog:      errLog,
		auditLogger: auditLogger,
		mail:        mail,
		siteName:    siteName,
		loginURL:    loginURL,
		logger:      logger,
	}
}

// Routes mounts at /admin/api/profile. Users holding a temporary password
// may reach these routes; everything else in the admin API refuses them.
func Routes(h *Handler, sessionMgr *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sessionMgr.RequireSignedIn)
	r.Get("/", h.showProfile)
	r.Put("/", h.updateProfile)
	r.Put("/password", h.handleChangePassword)
	r.Post("/password/strength", h.passwordStrength)
	return r
}

type profileResponse struct {
	User          *models.User `json:"user"`
	PasswordRules string       `json:"password_rules"`
}

func (h *Handler) showProfile(w http.ResponseWriter, r *http.Request) {
	su, _ := auth.CurrentUser(r)
	user, err := h.userStore.GetByID(r.Context(), su.UserID())
	if err != nil {
		h.errLog.StoreError(w, r, "failed to load profile", err)
		return
	}
	jsonutil.OK(w, profileResponse{User: user, PasswordRules: authutil.StrongPasswordRules()})
}

type profileInput struct {
	FullName string `json:"full_name" validate:"required,max=200" label:"Name"`
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	su, _ := auth.CurrentUser(r)

	var in profileInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		jsonutil.ValidationError(w, res.Fields())
		return
	}
	if err := h.userStore.Update(r.Context(), su.UserID(), userstore.UpdateInput{FullName: &in.FullName}); err != nil {
		h.errLog.StoreError(w, r, "failed to update profile", err)
		return
	}
	h.showProfile(w, r)
}

type passwordInput struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// handleChangePassword sets a new password. The current password is not
// asked for when the user signed in with a temporary one.
func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	su, _ := auth.CurrentUser(r)

	var in passwordInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return
	}

	user, err := h.userStore.GetByID(r.Context(), su.UserID())
	if err != nil {
		h.errLog.StoreError(w, r, "failed to get user", err)
		return
	}

	// Only allow password change for password auth users
	if user.AuthMethod != models.AuthPassword {
		jsonutil.BadRequest(w, "password change is only available for password accounts")
		return
	}

	wasTemp := user.MustChangePassword()
	if user.PasswordHash != nil && !wasTemp {
		if !authutil.CheckPassword(in.CurrentPassword, *user.PasswordHash) {
			jsonutil.ValidationError(w, map[string]string{"current_password": "Current password is incorrect."})
			return
		}
	}

	if err := authutil.ValidateStrongPassword(in.NewPassword); err != nil {
		jsonutil.ValidationError(w, map[string]string{"new_password": err.Error()})
		return
	}
	if in.NewPassword != in.ConfirmPassword {
		jsonutil.ValidationError(w, map[string]string{"confirm_password": "New passwords do not match."})
		return
	}
	// Don't allow reusing the current password
	if user.PasswordHash != nil && authutil.CheckPassword(in.NewPassword, *user.PasswordHash) {
		jsonutil.ValidationError(w, map[string]string{"new_password": "New password cannot be the same as your current password."})
		return
	}

	hash, err := authutil.HashPassword(in.NewPassword)
	if err != nil {
		h.errLog.Log(r, "failed to hash password", err)
		jsonutil.InternalError(w, "internal error")
		return
	}
	if err := h.userStore.UpdatePassword(r.Context(), user.ID, hash, false); err != nil {
		h.errLog.StoreError(w, r, "failed to update password", err)
		return
	}

	h.auditLogger.PasswordChanged(r.Context(), r, user.ID, wasTemp)
	h.notifyPasswordChanged(user.Email)

	jsonutil.NoContent(w)
}

func (h *Handler) notifyPasswordChanged(to string) {
	if h.mail == nil || !h.mail.Enabled() {
		return
	}
	text, html := mailer.PasswordChangedEmail(mailer.PasswordChangedEmailData{SiteName: h.siteName, LoginURL: h.loginURL})
	err := h.mail.Send(mailer.Email{To: to, Subject: "Your password was changed", TextBody: text, HTMLBody: html})
	if err != nil && !errors.Is(err, mailer.ErrNotConfigured) {
		h.logger.Warn("password change notification failed", zap.Error(err))
	}
}

// passwordStrength scores a candidate password for the admin UI meter.
func (h *Handler) passwordStrength(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Password string `json:"password"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return
	}
	st := security.CheckPasswordStrength(in.Password)
	resp := map[string]any{"strength": st, "acceptable": true}
	if err := authutil.ValidateStrongPassword(in.Password); err != nil {
		resp["acceptable"] = false
		resp["error"] = err.Error()
	}
	jsonutil.OK(w, resp)
}
