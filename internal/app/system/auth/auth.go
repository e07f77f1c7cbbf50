// Package auth manages admin sessions: signed cookies issued at sign-in,
// the per-request user lookup, and the guards that protect /admin/api.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/stratasite/internal/app/system/jsonutil"
	"github.com/dalemusser/stratasite/internal/app/system/network"
	"github.com/dalemusser/stratasite/internal/app/system/normalize"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// DefaultSessionName is the cookie name used when none is configured.
const DefaultSessionName = "stratasite-session"

// Cookie values. Only the user ID is trusted; everything else about the
// user is reloaded through the UserFetcher on each request.
const (
	keyUserID   = "uid"
	keyIssuedAt = "iat"
)

// weakKeyMarkers flag placeholder secrets copied from sample configs.
var weakKeyMarkers = []string{"dev-only", "change-me", "changeme", "placeholder", "example", "insecure", "secret123"}

// SessionConfigError is returned by NewSessionManager for unusable keys.
type SessionConfigError struct {
	Message string
}

func (e *SessionConfigError) Error() string { return e.Message }

// UserFetcher loads the current state of a signed-in user. It returns nil
// when the account no longer exists or may not sign in, which ends the
// session.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *SessionUser
}

// SessionUser is the signed-in user attached to the request context.
type SessionUser struct {
	ID           string
	Name         string
	Email        string
	Role         string
	AuthMethod   string
	MustChangePW bool // signed in with a temporary password
}

// UserID parses ID, returning NilObjectID when it is malformed.
func (u *SessionUser) UserID() primitive.ObjectID {
	oid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return primitive.NilObjectID
	}
	return oid
}

// SessionManager issues and reads session cookies.
type SessionManager struct {
	store       *sessions.CookieStore
	name        string
	userFetcher UserFetcher
	logger      *zap.Logger
}

// NewSessionManager builds a cookie-backed manager. With secure set (any
// non-dev environment) a short or placeholder key is an error; in dev it
// only logs a warning. Cookies are HttpOnly and SameSite=Lax.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, &SessionConfigError{Message: "session key is empty; provide at least 32 random characters"}
	}
	if isWeakKey(sessionKey) {
		if secure {
			return nil, &SessionConfigError{Message: "session key is too weak for production; provide at least 32 random characters"}
		}
		logger.Warn("session key is weak; a strong key is required in production",
			zap.Int("length", len(sessionKey)))
	}
	if name == "" {
		name = DefaultSessionName
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	store.MaxAge(store.Options.MaxAge)

	return &SessionManager{store: store, name: name, logger: logger}, nil
}

func isWeakKey(key string) bool {
	if len(key) < 32 {
		return true
	}
	lower := strings.ToLower(key)
	for _, m := range weakKeyMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// SessionName is the cookie name.
func (sm *SessionManager) SessionName() string { return sm.name }

// SetUserFetcher wires the user lookup. Without one no session resolves
// to a user.
func (sm *SessionManager) SetUserFetcher(uf UserFetcher) { sm.userFetcher = uf }

// CreateSession signs u in. Any existing session values are discarded so
// a pre-login cookie cannot carry over.
func (sm *SessionManager) CreateSession(w http.ResponseWriter, r *http.Request, u SessionUser) error {
	sess, err := sm.store.New(r, sm.name)
	if err != nil {
		sm.logSessionError(r, err)
	}
	sess.Values = map[interface{}]interface{}{
		keyUserID:   u.ID,
		keyIssuedAt: time.Now().Unix(),
	}
	return sess.Save(r, w)
}

// DestroySession expires the session cookie.
func (sm *SessionManager) DestroySession(w http.ResponseWriter, r *http.Request) {
	sess, _ := sm.store.New(r, sm.name)
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		sm.logger.Warn("failed to clear session cookie", zap.Error(err))
	}
}

// LoadSessionUser resolves the session cookie to a user on every request.
// Accounts that were disabled or deleted since sign-in lose their session
// immediately. Requests without a valid session pass through anonymously.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := sm.store.Get(r, sm.name)
		if err != nil {
			sm.logSessionError(r, err)
			next.ServeHTTP(w, r)
			return
		}

		userID, _ := sess.Values[keyUserID].(string)
		if userID == "" || sm.userFetcher == nil {
			next.ServeHTTP(w, r)
			return
		}

		u := sm.userFetcher.FetchUser(r.Context(), userID)
		if u == nil {
			sm.logger.Info("session ended: user missing or disabled", zap.String("user_id", userID))
			sm.DestroySession(w, r)
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, withUser(r, u))
	})
}

// logSessionError logs cookie failures by cause. Expiry is routine; any
// other decode failure means a bad signature, a rotated key, or tampering.
func (sm *SessionManager) logSessionError(r *http.Request, err error) {
	var scErr securecookie.Error
	switch {
	case !errors.As(err, &scErr) || !scErr.IsDecode():
		sm.logger.Error("session store error", zap.Error(err))
	case strings.Contains(err.Error(), "expired"):
		sm.logger.Debug("session cookie expired", zap.String("path", r.URL.Path))
	default:
		sm.logger.Warn("session cookie rejected",
			zap.Error(err),
			zap.String("path", r.URL.Path),
			zap.String("ip", network.GetClientIP(r)),
			zap.String("user_agent", r.UserAgent()))
	}
}

// RequireSignedIn answers 401 when no user is attached to the request.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			jsonutil.Unauthorized(w, "sign in required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole answers 401 without a user and 403 when the user's role is
// not among allowed.
func (sm *SessionManager) RequireRole(allowed ...string) func(http.Handler) http.Handler {
	roles := make(map[string]bool, len(allowed))
	for _, role := range allowed {
		roles[normalize.Role(role)] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				jsonutil.Unauthorized(w, "sign in required")
				return
			}
			if !roles[normalize.Role(u.Role)] {
				sm.logger.Info("role check failed",
					zap.String("user_id", u.ID),
					zap.String("role", u.Role),
					zap.String("path", r.URL.Path))
				jsonutil.Forbidden(w, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePasswordChanged keeps users holding a temporary password out of
// everything except the profile routes that let them replace it.
func (sm *SessionManager) RequirePasswordChanged(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u, ok := CurrentUser(r); ok && u.MustChangePW {
			jsonutil.Forbidden(w, "password change required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type ctxKey struct{}

// CurrentUser returns the signed-in user, if any.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(ctxKey{}).(*SessionUser)
	return u, ok && u != nil
}

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), ctxKey{}, u))
}

// WithTestUser attaches u to r, bypassing the cookie. For handler tests.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}
