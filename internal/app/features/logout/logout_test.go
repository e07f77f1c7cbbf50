package logout

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/stratasite/internal/app/store/audit"
	"github.com/dalemusser/stratasite/internal/app/system/auditlog"
	"github.com/dalemusser/stratasite/internal/app/system/auth"
	"github.com/dalemusser/stratasite/internal/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fixture struct {
	router   http.Handler
	sessions *auth.SessionManager
	audits   *observer.ObservedLogs
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	sm, err := auth.NewSessionManager("session-key-for-logout-handler-1234567890", "test-session", "", 24*time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager() error = %v", err)
	}
	core, logs := observer.New(zapcore.InfoLevel)
	al := auditlog.New(nil, zap.New(core), auditlog.Config{Auth: auditlog.RouteLog})
	return fixture{router: Routes(NewHandler(sm, al, zap.NewNop())), sessions: sm, audits: logs}
}

func (f fixture) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestLogout(t *testing.T) {
	tests := []struct {
		name      string
		req       *http.Request
		wantAudit int
	}{
		{"signed in", testutil.NewAuthenticatedRequest(http.MethodPost, "/", testutil.AdminUser()), 1},
		{"anonymous", httptest.NewRequest(http.MethodPost, "/", nil), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rec := f.serve(tt.req)

			if rec.Code != http.StatusNoContent {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
			}
			got := f.audits.FilterField(zap.String("event_type", audit.EventLogout)).Len()
			if got != tt.wantAudit {
				t.Errorf("logout audit events = %d, want %d", got, tt.wantAudit)
			}
		})
	}
}

func TestLogout_ExpiresCookie(t *testing.T) {
	f := newFixture(t)

	signIn := httptest.NewRecorder()
	err := f.sessions.CreateSession(signIn, httptest.NewRequest(http.MethodPost, "/login", nil),
		auth.SessionUser{ID: "507f1f77bcf86cd799439011", Name: "A", Email: "a@example.com", Role: "admin"})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	for _, c := range signIn.Result().Cookies() {
		req.AddCookie(c)
	}
	setCookie := f.serve(req).Header().Get("Set-Cookie")
	if !strings.Contains(setCookie, "test-session=") || !strings.Contains(setCookie, "Max-Age=0") {
		t.Errorf("Set-Cookie = %q, want an expired test-session cookie", setCookie)
	}
}

func TestLogout_PostOnly(t *testing.T) {
	f := newFixture(t)
	if rec := f.serve(httptest.NewRequest(http.MethodGet, "/", nil)); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}
