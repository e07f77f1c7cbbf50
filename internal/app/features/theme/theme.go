// internal/app/features/theme/theme.go
package theme

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	errorsfeature "github.com/dalemusser/stratasite/internal/app/features/errors"
	themestore "github.com/dalemusser/stratasite/internal/app/store/theme"
	"github.com/dalemusser/stratasite/internal/app/system/auditlog"
	"github.com/dalemusser/stratasite/internal/app/system/authz"
	"github.com/dalemusser/stratasite/internal/app/system/cache"
	"github.com/dalemusser/stratasite/internal/app/system/jsonutil"
	"github.com/dalemusser/stratasite/internal/app/system/theme"
	"github.com/dalemusser/stratasite/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the site theme as JSON and as a stylesheet.
type Handler struct {
	store       *themestore.Store
	cache       *cache.Content
	errLog      *errorsfeature.ErrorLogger
	auditLogger *auditlog.Logger
	logger      *zap.Logger
}

// NewHandler creates a theme Handler. cc may be nil.
func NewHandler(db *mongo.Database, cc *cache.Content, errLog *errorsfeature.ErrorLogger, auditLogger *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		store:       themestore.New(db),
		cache:       cc,
		errLog:      errLog,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// View is the theme as returned by the API: the stored config plus the
// CSS custom properties it renders to.
type View struct {
	Config    models.ThemeConfig `json:"config"`
	Variables []theme.Var        `json:"variables"`
}

func newView(cfg models.ThemeConfig) View {
	return View{Config: cfg, Variables: theme.Variables(cfg)}
}

// PublicRoutes mounts at /api/theme.
func PublicRoutes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.publicShow)
	return r
}

// AdminRoutes mounts at /admin/api/theme.
func AdminRoutes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.show)
	r.Put("/", h.update)
	r.Get("/presets", h.presets)
	r.Post("/preset/{name}", h.applyPreset)
	return r
}

// config returns the current theme through the content cache.
func (h *Handler) config(ctx context.Context) (models.ThemeConfig, error) {
	var cfg models.ThemeConfig
	b, err := cache.Load(ctx, h.cache, cache.Key(cache.KindTheme, "config"), h.store.Get)
	if err != nil {
		return cfg, err
	}
	err = json.Unmarshal(b, &cfg)
	return cfg, err
}

func (h *Handler) publicShow(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.config(r.Context())
	if err != nil {
		h.errLog.StoreError(w, r, "failed to load theme", err)
		return
	}
	// Editor identity is admin-only.
	cfg.UpdatedByID = nil
	cfg.UpdatedByName = ""
	jsonutil.OK(w, newView(cfg))
}

// ServeCSS handles GET /theme.css. The ETag is derived from the rendered
// stylesheet, so a matching If-None-Match gets 304.
func (h *Handler) ServeCSS(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.config(r.Context())
	if err != nil {
		h.logger.Error("failed to load theme for stylesheet", zap.Error(err))
		cfg = theme.Default()
	}
	css := theme.CSS(cfg)
	etag := theme.ETag(css)

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, max-age=60, must-revalidate")
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(css))
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.store.Get(r.Context())
	if err != nil {
		h.errLog.StoreError(w, r, "failed to load theme", err)
		return
	}
	jsonutil.OK(w, newView(cfg))
}

type themeInput struct {
	Colors models.ThemeColors `json:"colors"`
	Fonts  models.ThemeFonts  `json:"fonts"`
	Radius string             `json:"radius"`
	Mode   string             `json:"mode"`
}

// update replaces the theme. A custom save clears the preset name.
func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var in themeInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return
	}
	cfg := models.ThemeConfig{
		Colors: in.Colors,
		Fonts:  in.Fonts,
		Radius: in.Radius,
		Mode:   in.Mode,
	}
	if errs := theme.Validate(cfg); errs != nil {
		jsonutil.ValidationError(w, errs)
		return
	}
	saved, err := h.store.Save(r.Context(), cfg, editor(r))
	if err != nil {
		h.errLog.StoreError(w, r, "failed to save theme", err)
		return
	}
	h.changed(r, "")
	jsonutil.OK(w, newView(saved))
}

func (h *Handler) presets(w http.ResponseWriter, r *http.Request) {
	list, err := theme.Presets()
	if err != nil {
		h.errLog.Log(r, "failed to load theme presets", err)
		jsonutil.InternalError(w, "failed to load theme presets")
		return
	}
	jsonutil.OK(w, list)
}

func (h *Handler) applyPreset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	saved, err := h.store.ApplyPreset(r.Context(), name, editor(r))
	if errors.Is(err, themestore.ErrUnknownPreset) {
		jsonutil.NotFound(w, "unknown preset")
		return
	}
	if err != nil {
		h.errLog.StoreError(w, r, "failed to apply theme preset", err)
		return
	}
	h.changed(r, name)
	jsonutil.OK(w, newView(saved))
}

func editor(r *http.Request) themestore.Editor {
	name := authz.ActorName(r)
	return themestore.Editor{ID: authz.ActorPtr(r), Name: name}
}

func (h *Handler) changed(r *http.Request, preset string) {
	h.auditLogger.ThemeUpdated(r.Context(), r, authz.ActorID(r), preset)
	h.cache.Invalidate(r.Context(), cache.KindTheme)
}
