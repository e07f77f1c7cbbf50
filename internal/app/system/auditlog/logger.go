// Package auditlog records auth, admin and security events. Each category
// is routed independently to MongoDB (audit.Store), zap, both or neither.
package auditlog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/stratasite/internal/app/store/audit"
	"github.com/dalemusser/stratasite/internal/app/system/network"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Routes for a category.
const (
	RouteAll = "all" // MongoDB and zap
	RouteDB  = "db"
	RouteLog = "log"
	RouteOff = "off"
)

func ValidRoute(v string) bool {
	switch v {
	case RouteAll, RouteDB, RouteLog, RouteOff:
		return true
	}
	return false
}

// Config routes each category. Empty means RouteAll.
type Config struct {
	Auth     string
	Admin    string
	Security string
}

func (c Config) route(category string) string {
	var r string
	switch category {
	case audit.CategoryAuth:
		r = c.Auth
	case audit.CategoryAdmin:
		r = c.Admin
	case audit.CategorySecurity:
		r = c.Security
	}
	if r == "" {
		return RouteAll
	}
	return r
}

// Logger is safe to use as a nil pointer, which drops every event.
type Logger struct {
	store  *audit.Store // nil: zap only
	zapLog *zap.Logger
	config Config
}

func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

// Log routes event by its category. Store failures are logged, never
// returned: auditing must not fail the request it describes.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}
	route := l.config.route(event.Category)
	if route == RouteAll || route == RouteLog {
		l.write(event)
	}
	if (route == RouteAll || route == RouteDB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("store audit event", zap.String("event_type", event.EventType), zap.Error(err))
		}
	}
}

// write emits event to zap; failures and security events log at warn.
func (l *Logger) write(e audit.Event) {
	fields := make([]zap.Field, 0, 8+len(e.Details))
	fields = append(fields,
		zap.Bool("audit", true),
		zap.String("category", e.Category),
		zap.String("event_type", e.EventType),
		zap.Bool("success", e.Success),
		zap.String("ip", e.IP),
	)
	if e.UserID != nil {
		fields = append(fields, zap.String("user_id", e.UserID.Hex()))
	}
	if e.ActorID != nil {
		fields = append(fields, zap.String("actor_id", e.ActorID.Hex()))
	}
	if e.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", e.FailureReason))
	}
	for k, v := range e.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if e.Success {
		l.zapLog.Info("audit event", fields...)
		return
	}
	l.zapLog.Warn("audit event", fields...)
}

// event starts an Event carrying the request's client IP and user agent.
func event(r *http.Request, category, eventType string) audit.Event {
	return audit.Event{
		Category:  category,
		EventType: eventType,
		IP:        network.GetClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

func failed(r *http.Request, eventType, reason string, userID *primitive.ObjectID, details map[string]string) audit.Event {
	e := event(r, audit.CategoryAuth, eventType)
	e.UserID = userID
	e.FailureReason = reason
	e.Details = details
	return e
}

// admin builds a successful admin event. target may be nil.
func admin(r *http.Request, eventType string, actor primitive.ObjectID, target *primitive.ObjectID, details map[string]string) audit.Event {
	e := event(r, audit.CategoryAdmin, eventType)
	e.ActorID = &actor
	e.UserID = target
	e.Success = true
	e.Details = details
	return e
}

// Authentication

func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, authMethod, email string) {
	e := event(r, audit.CategoryAuth, audit.EventLoginSuccess)
	e.UserID = &userID
	e.Success = true
	e.Details = map[string]string{"auth_method": authMethod, "email": email}
	l.Log(ctx, e)
}

func (l *Logger) LoginFailedUserNotFound(ctx context.Context, r *http.Request, attemptedEmail string) {
	l.Log(ctx, failed(r, audit.EventLoginFailedUserNotFound, "user not found", nil,
		map[string]string{"attempted_email": attemptedEmail}))
}

func (l *Logger) LoginFailedWrongPassword(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	l.Log(ctx, failed(r, audit.EventLoginFailedWrongPassword, "wrong password", &userID,
		map[string]string{"email": email}))
}

func (l *Logger) LoginFailedUserDisabled(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	l.Log(ctx, failed(r, audit.EventLoginFailedUserDisabled, "user disabled", &userID,
		map[string]string{"email": email}))
}

// LoginLockedOut records an attempt refused by the login rate limiter.
func (l *Logger) LoginLockedOut(ctx context.Context, r *http.Request, email string) {
	l.Log(ctx, failed(r, audit.EventLoginLockedOut, "too many failed attempts", nil,
		map[string]string{"email": email}))
}

// Logout takes the session's string ID; a malformed one is recorded
// without a user.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userID string) {
	e := event(r, audit.CategoryAuth, audit.EventLogout)
	if oid, err := primitive.ObjectIDFromHex(userID); err == nil {
		e.UserID = &oid
	}
	e.Success = true
	l.Log(ctx, e)
}

func (l *Logger) PasswordChanged(ctx context.Context, r *http.Request, userID primitive.ObjectID, wasTemporary bool) {
	e := event(r, audit.CategoryAuth, audit.EventPasswordChanged)
	e.UserID = &userID
	e.Success = true
	e.Details = map[string]string{"was_temporary": strconv.FormatBool(wasTemporary)}
	l.Log(ctx, e)
}

// LogAuthEvent covers auth outcomes without a dedicated method, such as
// the Google sign-in results.
func (l *Logger) LogAuthEvent(r *http.Request, userID *primitive.ObjectID, eventType string, success bool, failureReason string) {
	e := event(r, audit.CategoryAuth, eventType)
	e.UserID = userID
	e.Success = success
	e.FailureReason = failureReason
	l.Log(r.Context(), e)
}

// Administration

func (l *Logger) UserCreated(ctx context.Context, r *http.Request, actorID, targetUserID primitive.ObjectID, role, authMethod string) {
	l.Log(ctx, admin(r, audit.EventUserCreated, actorID, &targetUserID,
		map[string]string{"role": role, "auth_method": authMethod}))
}

// UserUpdated records which fields changed (comma-separated names).
func (l *Logger) UserUpdated(ctx context.Context, r *http.Request, actorID, targetUserID primitive.ObjectID, fieldsChanged string) {
	l.Log(ctx, admin(r, audit.EventUserUpdated, actorID, &targetUserID,
		map[string]string{"fields_changed": fieldsChanged}))
}

func (l *Logger) UserStatusChanged(ctx context.Context, r *http.Request, actorID, targetUserID primitive.ObjectID, disabled bool) {
	eventType := audit.EventUserEnabled
	if disabled {
		eventType = audit.EventUserDisabled
	}
	l.Log(ctx, admin(r, eventType, actorID, &targetUserID, nil))
}

func (l *Logger) UserDeleted(ctx context.Context, r *http.Request, actorID, targetUserID primitive.ObjectID, role string) {
	l.Log(ctx, admin(r, audit.EventUserDeleted, actorID, &targetUserID, map[string]string{"role": role}))
}

// UserPasswordReset records an admin issuing a temporary password.
func (l *Logger) UserPasswordReset(ctx context.Context, r *http.Request, actorID, targetUserID primitive.ObjectID) {
	l.Log(ctx, admin(r, audit.EventUserPasswordReset, actorID, &targetUserID, nil))
}

func (l *Logger) SettingsUpdated(ctx context.Context, r *http.Request, actorID primitive.ObjectID, fieldsChanged string) {
	l.Log(ctx, admin(r, audit.EventSettingsUpdated, actorID, nil, map[string]string{"fields_changed": fieldsChanged}))
}

// ThemeUpdated records a theme save; preset is empty for manual edits.
func (l *Logger) ThemeUpdated(ctx context.Context, r *http.Request, actorID primitive.ObjectID, preset string) {
	l.Log(ctx, admin(r, audit.EventThemeUpdated, actorID, nil, map[string]string{"preset": preset}))
}

// Content records a create, update, delete or publish of a content
// document or media item. kind names the collection ("portfolio", "news").
func (l *Logger) Content(ctx context.Context, r *http.Request, actorID primitive.ObjectID, eventType, kind, id, title string) {
	l.Log(ctx, admin(r, eventType, actorID, nil, map[string]string{"kind": kind, "id": id, "title": title}))
}

// LogSecurityEvent implements security.Sink. Security events are never
// successful, so they always log at warn.
func (l *Logger) LogSecurityEvent(ctx context.Context, eventType, ip, userAgent, reason string, details map[string]string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategorySecurity,
		EventType:     eventType,
		IP:            ip,
		UserAgent:     userAgent,
		FailureReason: reason,
		Details:       details,
	})
}
