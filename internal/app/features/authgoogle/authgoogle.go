// Package authgoogle signs existing admin accounts in with Google.
// Accounts are never created here; an admin must add the user first with
// auth method "google".
package authgoogle

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	errorsfeature "github.com/dalemusser/stratasite/internal/app/features/errors"
	"github.com/dalemusser/stratasite/internal/app/store/audit"
	"github.com/dalemusser/stratasite/internal/app/store/oauthstate"
	userstore "github.com/dalemusser/stratasite/internal/app/store/users"
	"github.com/dalemusser/stratasite/internal/app/system/auditlog"
	"github.com/dalemusser/stratasite/internal/app/system/auth"
	"github.com/dalemusser/stratasite/internal/app/system/normalize"
	"github.com/dalemusser/stratasite/internal/app/system/status"
	"github.com/dalemusser/stratasite/internal/app/system/timeouts"
	"github.com/dalemusser/stratasite/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	defaultReturn = "/admin/"
	loginPage     = "/admin/login"
	userInfoURL   = "https://www.googleapis.com/oauth2/v2/userinfo"
)

type Handler struct {
	users       *userstore.Store
	sessions    *auth.SessionManager
	errLog      *errorsfeature.ErrorLogger
	auditLog    *auditlog.Logger
	states      *oauthstate.Store
	oauthConfig *oauth2.Config
	userInfoURL string
	logger      *zap.Logger
}

func NewHandler(
	db *mongo.Database,
	sessions *auth.SessionManager,
	errLog *errorsfeature.ErrorLogger,
	auditLogger *auditlog.Logger,
	states *oauthstate.Store,
	clientID, clientSecret, baseURL string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		users:    userstore.New(db),
		sessions: sessions,
		errLog:   errLog,
		auditLog: auditLogger,
		states:   states,
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  baseURL + "/auth/google/callback",
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: userInfoURL,
		logger:      logger,
	}
}

// Routes mounts GET / (start) and GET /callback.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.startAuth)
	r.Get("/callback", h.handleCallback)
	return r
}

// startAuth redirects to Google. The optional ?return= admin path travels
// with the stored state so the callback can land there.
func (h *Handler) startAuth(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err == nil {
		returnTo := urlutil.SafeReturn(r.URL.Query().Get("return"), "", defaultReturn)
		err = h.states.Create(r.Context(), state, returnTo)
	}
	if err != nil {
		h.errLog.Log(r, "could not start google sign-in", err)
		failRedirect(w, r, "oauth_error")
		return
	}
	http.Redirect(w, r, h.oauthConfig.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// rejection is a callback that must not sign anyone in. code is shown on
// the login page.
type rejection struct {
	code   string
	reason string
	user   *models.User
	err    error // unexpected failures only
}

func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	returnTo, user, rej := h.authenticate(r)
	if rej != nil {
		h.reject(r, rej)
		failRedirect(w, r, rej.code)
		return
	}

	su := auth.SessionUser{
		ID:         user.ID.Hex(),
		Name:       user.FullName,
		Email:      user.Email,
		Role:       normalize.Role(user.Role),
		AuthMethod: user.AuthMethod,
	}
	if err := h.sessions.CreateSession(w, r, su); err != nil {
		h.reject(r, &rejection{code: "session_error", reason: "failed to create session", err: err})
		failRedirect(w, r, "session_error")
		return
	}
	if err := h.users.TouchLogin(r.Context(), user.ID); err != nil {
		h.logger.Warn("failed to record last login", zap.Error(err))
	}
	h.auditLog.LogAuthEvent(r, &user.ID, audit.EventOAuthLogin, true, "")

	http.Redirect(w, r, urlutil.SafeReturn(returnTo, "", defaultReturn), http.StatusSeeOther)
}

// authenticate checks the state, trades the code for a token and finds the
// matching active google account.
func (h *Handler) authenticate(r *http.Request) (string, *models.User, *rejection) {
	ctx := r.Context()
	q := r.URL.Query()

	returnTo, ok := h.states.Verify(ctx, q.Get("state"))
	if !ok {
		return "", nil, &rejection{code: "invalid_state", reason: "invalid state"}
	}
	if e := q.Get("error"); e != "" {
		return "", nil, &rejection{code: "oauth_denied", reason: "provider error: " + e}
	}

	token, err := h.oauthConfig.Exchange(ctx, q.Get("code"))
	if err != nil {
		return "", nil, &rejection{code: "token_exchange_failed", reason: "token exchange failed", err: err}
	}
	info, err := h.fetchProfile(ctx, h.oauthConfig.Client(ctx, token))
	if err != nil {
		return "", nil, &rejection{code: "userinfo_failed", reason: "userinfo failed", err: err}
	}
	if !info.VerifiedEmail {
		return "", nil, &rejection{code: "email_unverified", reason: "email not verified"}
	}

	user, err := h.users.GetByEmail(ctx, normalize.Email(info.Email))
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return "", nil, &rejection{code: "user_not_found", reason: info.Email}
	case err != nil:
		return "", nil, &rejection{code: "database_error", reason: "user lookup failed", err: err}
	case !status.CanSignIn(user.Status):
		return "", nil, &rejection{code: "account_disabled", user: user}
	case user.AuthMethod != models.AuthGoogle:
		return "", nil, &rejection{code: "wrong_auth_method", reason: "account does not use google sign-in", user: user}
	}
	return returnTo, user, nil
}

func (h *Handler) reject(r *http.Request, rej *rejection) {
	if rej.err != nil {
		h.errLog.Log(r, rej.reason, rej.err)
	} else {
		h.logger.Info("google sign-in rejected", zap.String("code", rej.code))
	}

	switch rej.code {
	case "user_not_found":
		h.auditLog.LoginFailedUserNotFound(r.Context(), r, rej.reason)
	case "account_disabled":
		h.auditLog.LoginFailedUserDisabled(r.Context(), r, rej.user.ID, rej.user.Email)
	case "database_error", "session_error":
	default:
		var uid *primitive.ObjectID
		if rej.user != nil {
			uid = &rej.user.ID
		}
		h.auditLog.LogAuthEvent(r, uid, audit.EventOAuthFailed, false, rej.reason)
	}
}

func failRedirect(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, loginPage+"?error="+url.QueryEscape(code), http.StatusSeeOther)
}

// GoogleUserInfo is the subset of the v2 userinfo response we read.
type GoogleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (h *Handler) fetchProfile(ctx context.Context, client *http.Client) (*GoogleUserInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Outbound())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo: unexpected status %d", resp.StatusCode)
	}

	var info GoogleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("userinfo: %w", err)
	}
	return &info, nil
}

// generateState returns 32 random bytes, base64url encoded.
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
