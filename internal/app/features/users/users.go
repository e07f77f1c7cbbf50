// internal/app/features/users/users.go
package users

import (
	"errors"
	"net/http"
	"strings"

	errorsfeature "github.com/dalemusser/stratasite/internal/app/features/errors"
	userstore "github.com/dalemusser/stratasite/internal/app/store/users"
	"github.com/dalemusser/stratasite/internal/app/system/auditlog"
	"github.com/dalemusser/stratasite/internal/app/system/authutil"
	"github.com/dalemusser/stratasite/internal/app/system/authz"
	"github.com/dalemusser/stratasite/internal/app/system/formutil"
	"github.com/dalemusser/stratasite/internal/app/system/inputval"
	"github.com/dalemusser/stratasite/internal/app/system/jsonutil"
	"github.com/dalemusser/stratasite/internal/app/system/mailer"
	"github.com/dalemusser/stratasite/internal/app/system/normalize"
	"github.com/dalemusser/stratasite/internal/app/system/security"
	"github.com/dalemusser/stratasite/internal/app/system/status"
	"github.com/dalemusser/stratasite/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler manages admin panel accounts. Every route is admin only.
type Handler struct {
	userStore   *userstore.Store
	mail        mailer.Sender // nil disables welcome emails
	siteName    string
	loginURL    string
	errLog      *errorsfeature.ErrorLogger
	auditLogger *auditlog.Logger
	logger      *zap.Logger
}

// NewHandler creates a users Handler.
func NewHandler(
	db *mongo.Database,
	mail mailer.Sender,
	siteName, loginURL string,
	errLog *errorsfeature.ErrorLogger,
	auditLogger *auditlog.Logger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		userStore:   userstore.New(db),
		mail:        mail,
		siteName:    siteName,
		loginURL:    loginURL,
		errLog:      errLog,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// Routes mounts at /admin/api/users.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Put("/{id}", h.update)
	r.Put("/{id}/status", h.setStatus)
	r.Post("/{id}/reset-password", h.resetPassword)
	r.Delete("/{id}", h.delete)
	return r
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	pg := formutil.Page(r)
	role := normalize.Role(query.Get(r, "role"))
	if role != "" && !models.IsValidRole(role) {
		jsonutil.BadRequest(w, "invalid role")
		return
	}
	st := normalize.Status(query.Get(r, "status"))
	if st != "" && !status.IsValid(st) {
		jsonutil.BadRequest(w, "invalid status")
		return
	}
	items, total, err := h.userStore.List(r.Context(), userstore.ListFilter{
		Search: query.Get(r, "q"),
		Role:   role,
		Status: st,
		Page:   pg.Page,
		Limit:  pg.Limit,
	})
	if err != nil {
		h.errLog.StoreError(w, r, "failed to list users", err)
		return
	}
	jsonutil.List(w, items, total, pg.Page, pg.Limit)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.ID(w, r)
	if !ok {
		return
	}
	u, err := h.userStore.GetByID(r.Context(), id)
	if err != nil {
		h.errLog.StoreError(w, r, "failed to get user", err)
		return
	}
	jsonutil.OK(w, u)
}

type userInput struct {
	FullName     string `json:"full_name" validate:"required,max=200" label:"Name"`
	Email        string `json:"email" validate:"required,email,max=254" label:"Email"`
	Role         string `json:"role" validate:"required,role" label:"Role"`
	AuthMethod   string `json:"auth_method" validate:"required,authmethod" label:"Sign-in method"`
	TempPassword string `json:"temp_password" label:"Temporary password"`
}

// decode reads and validates a userInput. The bool is false when a
// response has already been written.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, isEdit bool) (userInput, *authutil.AuthResult, bool) {
	var in userInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return in, nil, false
	}
	in.FullName = security.SanitizeText(in.FullName)
	in.Email = normalize.Email(in.Email)
	in.Role = normalize.Role(in.Role)
	in.AuthMethod = normalize.AuthMethod(in.AuthMethod)

	res := inputval.Validate(in)
	fields := res.Fields()
	var ar *authutil.AuthResult
	if _, bad := fields["auth_method"]; !bad {
		var err error
		ar, err = authutil.ResolveAuth(authutil.AuthInput{Method: in.AuthMethod, TempPassword: in.TempPassword, IsEdit: isEdit})
		if err != nil {
			fields["temp_password"] = err.Error()
		}
	}
	if len(fields) > 0 {
		jsonutil.ValidationError(w, fields)
		return in, nil, false
	}
	return in, ar, true
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	in, ar, ok := h.decode(w, r, false)
	if !ok {
		return
	}
	ctx := r.Context()
	u, err := h.userStore.Create(ctx, userstore.CreateInput{
		FullName:     in.FullName,
		Email:        in.Email,
		AuthMethod:   ar.Method,
		Role:         in.Role,
		Status:       status.Active,
		PasswordHash: ar.PasswordHash,
		PasswordTemp: ar.PasswordTemp,
	})
	if err != nil {
		h.writeStoreError(w, r, "failed to create user", err)
		return
	}

	h.logger.Info("user created",
		zap.String("user_id", u.ID.Hex()),
		zap.String("role", u.Role),
		zap.String("auth_method", u.AuthMethod))
	h.auditLogger.UserCreated(ctx, r, authz.ActorID(r), u.ID, u.Role, u.AuthMethod)
	h.sendWelcome(&u, in.TempPassword)
	jsonutil.Created(w, u)
}

// update replaces the editable fields. A blank temp_password keeps the
// current password.
func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.ID(w, r)
	if !ok {
		return
	}
	in, ar, ok := h.decode(w, r, true)
	if !ok {
		return
	}
	ctx := r.Context()
	current, err := h.userStore.GetByID(ctx, id)
	if err != nil {
		h.errLog.StoreError(w, r, "failed to get user", err)
		return
	}
	if current.Role == models.RoleAdmin && in.Role != models.RoleAdmin {
		if h.refuseLastAdmin(w, r, current) {
			return
		}
	}

	upd := userstore.UpdateInput{
		FullName:      &in.FullName,
		Email:         &in.Email,
		AuthMethod:    &ar.Method,
		Role:          &in.Role,
		PasswordHash:  ar.PasswordHash,
		PasswordTemp:  ar.PasswordTemp,
		ClearPassword: ar.ClearPassword,
	}
	if err := h.userStore.Update(ctx, id, upd); err != nil {
		h.writeStoreError(w, r, "failed to update user", err)
		return
	}

	h.auditLogger.UserUpdated(ctx, r, authz.ActorID(r), id, changedFields(current, in, ar))
	h.show(w, r)
}

type statusInput struct {
	Status string `json:"status"`
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.ID(w, r)
	if !ok {
		return
	}
	var in statusInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return
	}
	st := normalize.Status(in.Status)
	if !status.IsValid(st) {
		jsonutil.ValidationError(w, map[string]string{"status": userstore.ErrBadStatus.Error()})
		return
	}
	if st == status.Disabled && id == authz.ActorID(r) {
		jsonutil.BadRequest(w, "you cannot disable your own account")
		return
	}

	ctx := r.Context()
	u, err := h.userStore.GetByID(ctx, id)
	if err != nil {
		h.errLog.StoreError(w, r, "failed to get user", err)
		return
	}
	if st == status.Disabled && h.refuseLastAdmin(w, r, u) {
		return
	}
	if err := h.userStore.SetStatus(ctx, id, st); err != nil {
		h.errLog.StoreError(w, r, "failed to update status", err)
		return
	}
	if u.Status != st {
		h.auditLogger.UserStatusChanged(ctx, r, authz.ActorID(r), id, st == status.Disabled)
	}
	h.show(w, r)
}

type resetInput struct {
	TempPassword string `json:"temp_password"`
}

// resetPassword issues a temporary password the user must change at the
// next sign-in.
func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.ID(w, r)
	if !ok {
		return
	}
	var in resetInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return
	}
	ctx := r.Context()
	u, err := h.userStore.GetByID(ctx, id)
	if err != nil {
		h.errLog.StoreError(w, r, "failed to get user", err)
		return
	}
	if u.AuthMethod != models.AuthPassword {
		jsonutil.BadRequest(w, "only password accounts have a password to reset")
		return
	}
	ar, err := authutil.ResolveAuth(authutil.AuthInput{Method: models.AuthPassword, TempPassword: in.TempPassword})
	if err != nil {
		jsonutil.ValidationError(w, map[string]string{"temp_password": err.Error()})
		return
	}
	if err := h.userStore.UpdatePassword(ctx, id, *ar.PasswordHash, true); err != nil {
		h.errLog.StoreError(w, r, "failed to reset password", err)
		return
	}
	h.auditLogger.UserPasswordReset(ctx, r, authz.ActorID(r), id)
	jsonutil.NoContent(w)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.ID(w, r)
	if !ok {
		return
	}
	if id == authz.ActorID(r) {
		jsonutil.BadRequest(w, "you cannot delete your own account")
		return
	}
	ctx := r.Context()
	u, err := h.userStore.GetByID(ctx, id)
	if err != nil {
		h.errLog.StoreError(w, r, "failed to get user", err)
		return
	}
	if h.refuseLastAdmin(w, r, u) {
		return
	}
	if _, err := h.userStore.Delete(ctx, id); err != nil {
		h.errLog.StoreError(w, r, "failed to delete user", err)
		return
	}
	h.auditLogger.UserDeleted(ctx, r, authz.ActorID(r), id, u.Role)
	jsonutil.NoContent(w)
}

// refuseLastAdmin writes a 409 and returns true when u is the only active
// admin left.
func (h *Handler) refuseLastAdmin(w http.ResponseWriter, r *http.Request, u *models.User) bool {
	last, err := h.userStore.IsLastActiveAdmin(r.Context(), u)
	if err != nil {
		h.errLog.Log(r, "failed to count admins", err)
		jsonutil.InternalError(w, "internal error")
		return true
	}
	if last {
		jsonutil.Conflict(w, userstore.ErrLastAdmin.Error())
		return true
	}
	return false
}

func (h *Handler) writeStoreError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, userstore.ErrDuplicateEmail):
		jsonutil.Conflict(w, err.Error())
	case errors.Is(err, userstore.ErrBadRole):
		jsonutil.ValidationError(w, map[string]string{"role": err.Error()})
	case errors.Is(err, userstore.ErrBadAuthMethod):
		jsonutil.ValidationError(w, map[string]string{"auth_method": err.Error()})
	case errors.Is(err, userstore.ErrEmailRequired):
		jsonutil.ValidationError(w, map[string]string{"email": err.Error()})
	default:
		h.errLog.StoreError(w, r, msg, err)
	}
}

func (h *Handler) sendWelcome(u *models.User, tempPassword string) {
	if h.mail == nil || !h.mail.Enabled() {
		return
	}
	data := mailer.WelcomeEmailData{
		SiteName: h.siteName,
		UserName: u.FullName,
		Role:     u.Role,
		LoginURL: h.loginURL,
	}
	if u.AuthMethod == models.AuthPassword {
		data.TempPassword = tempPassword
	}
	text, html := mailer.WelcomeEmail(data)
	err := h.mail.Send(mailer.Email{To: u.Email, Subject: "Welcome to " + h.siteName, TextBody: text, HTMLBody: html})
	if err != nil && !errors.Is(err, mailer.ErrNotConfigured) {
		h.logger.Warn("welcome email failed", zap.String("user_id", u.ID.Hex()), zap.Error(err))
	}
}

func changedFields(cur *models.User, in userInput, ar *authutil.AuthResult) string {
	var f []string
	if cur.FullName != in.FullName {
		f = append(f, "full_name")
	}
	if cur.Email != in.Email {
		f = append(f, "email")
	}
	if cur.Role != in.Role {
		f = append(f, "role")
	}
	if cur.AuthMethod != ar.Method {
		f = append(f, "auth_method")
	}
	if ar.PasswordHash != nil || ar.ClearPassword {
		f = append(f, "password")
	}
	return strings.Join(f, ",")
}
