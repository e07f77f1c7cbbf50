package theme

import (
	"net/http"
	"strings"
	"testing"
	"time"

	errorsfeature "github.com/dalemusser/stratasite/internal/app/features/errors"
	"github.com/dalemusser/stratasite/internal/app/system/cache"
	"github.com/dalemusser/stratasite/internal/testutil"
	"go.uber.org/zap"
)

const customTheme = `{
	"colors": {"primary":"#0af","secondary":"#222222","accent":"#ff6600","background":"#ffffff",
	           "surface":"#f5f5f5","text":"#111111","muted":"#666666","border":"#dddddd"},
	"fonts": {"heading":"Georgia, serif","body":"system-ui, sans-serif"},
	"radius": "12",
	"mode": "light"
}`

func newHandler(t *testing.T) *Handler {
	t.Helper()
	db := testutil.SetupTestDB(t)
	cc := cache.NewContent(cache.NewMemory(), time.Minute, nil)
	return NewHandler(db, cc, errorsfeature.NewErrorLogger(zap.NewNop()), nil, zap.NewNop())
}

func TestPublic_DefaultsWhenUnsaved(t *testing.T) {
	h := newHandler(t)
	var v View
	rec := testutil.NewRecorder()
	PublicRoutes(h).ServeHTTP(rec, testutil.NewRequest(http.MethodGet, "/"))
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &v)
	if v.Config.Preset != "default" {
		t.Errorf("Preset = %q, want default", v.Config.Preset)
	}
	if len(v.Variables) == 0 || v.Variables[0].Name != "--color-primary" {
		t.Errorf("Variables = %v, want --color-primary first", v.Variables)
	}
}

func TestServeCSS_ETag(t *testing.T) {
	h := newHandler(t)

	rec := testutil.NewRecorder()
	h.ServeCSS(rec, testutil.NewRequest(http.MethodGet, "/theme.css"))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, ":root {")
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/css") {
		t.Errorf("Content-Type = %q, want text/css", ct)
	}
	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}

	req := testutil.NewRequest(http.MethodGet, "/theme.css")
	req.Header.Set("If-None-Match", etag)
	rec = testutil.NewRecorder()
	h.ServeCSS(rec, req)
	rec.AssertStatus(t, http.StatusNotModified)
	if rec.Body.Len() != 0 {
		t.Errorf("304 body = %q, want empty", rec.Body.String())
	}
}

func TestAdmin_SaveInvalidatesStylesheet(t *testing.T) {
	h := newHandler(t)

	rec := testutil.NewRecorder()
	h.ServeCSS(rec, testutil.NewRequest(http.MethodGet, "/theme.css"))
	before := rec.Header().Get("ETag")

	rec = testutil.NewRecorder()
	AdminRoutes(h).ServeHTTP(rec, testutil.NewAuthenticatedJSONRequest(http.MethodPut, "/", customTheme, testutil.AdminUser()))
	rec.AssertStatus(t, http.StatusOK)
	var v View
	rec.DecodeJSON(t, &v)
	if v.Config.Colors.Primary != "#00aaff" || v.Config.Radius != "12px" {
		t.Errorf("saved config not normalized: %+v", v.Config)
	}
	if v.Config.Preset != "" {
		t.Errorf("Preset = %q, want empty after custom save", v.Config.Preset)
	}
	if v.Config.UpdatedByName != testutil.AdminUser().Name {
		t.Errorf("UpdatedByName = %q", v.Config.UpdatedByName)
	}

	rec = testutil.NewRecorder()
	h.ServeCSS(rec, testutil.NewRequest(http.MethodGet, "/theme.css"))
	rec.AssertContains(t, "--color-primary: #00aaff;")
	if rec.Header().Get("ETag") == before {
		t.Error("ETag should change after save")
	}

	rec = testutil.NewRecorder()
	PublicRoutes(h).ServeHTTP(rec, testutil.NewRequest(http.MethodGet, "/"))
	if strings.Contains(rec.Body.String(), "updated_by_name") {
		t.Error("public theme should not expose the editor")
	}
}

func TestAdmin_ValidationErrors(t *testing.T) {
	h := newHandler(t)
	body := strings.Replace(customTheme, `"#0af"`, `"blue"`, 1)
	body = strings.Replace(body, `"12"`, `"99px"`, 1)

	rec := testutil.NewRecorder()
	AdminRoutes(h).ServeHTTP(rec, testutil.NewAuthenticatedJSONRequest(http.MethodPut, "/", body, testutil.AdminUser()))
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "colors.primary")
	rec.AssertContains(t, "radius")
}

func TestAdmin_Presets(t *testing.T) {
	h := newHandler(t)
	router := AdminRoutes(h)

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/presets", testutil.AdminUser()))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"name":"midnight"`)

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest(http.MethodPost, "/preset/midnight", testutil.AdminUser()))
	rec.AssertStatus(t, http.StatusOK)
	var v View
	rec.DecodeJSON(t, &v)
	if v.Config.Preset != "midnight" || v.Config.Mode != "dark" {
		t.Errorf("config = %+v, want midnight dark", v.Config)
	}

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest(http.MethodPost, "/preset/neon", testutil.AdminUser()))
	rec.AssertStatus(t, http.StatusNotFound)
}
