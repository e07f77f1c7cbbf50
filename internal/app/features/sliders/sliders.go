// internal/app/features/sliders/sliders.go
package sliders

import (
	"context"
	"net/http"

	errorsfeature "github.com/dalemusser/stratasite/internal/app/features/errors"
	"github.com/dalemusser/stratasite/internal/app/store/audit"
	sliderstore "github.com/dalemusser/stratasite/internal/app/store/sliders"
	"github.com/dalemusser/stratasite/internal/app/system/auditlog"
	"github.com/dalemusser/stratasite/internal/app/system/authz"
	"github.com/dalemusser/stratasite/internal/app/system/cache"
	"github.com/dalemusser/stratasite/internal/app/system/formutil"
	"github.com/dalemusser/stratasite/internal/app/system/inputval"
	"github.com/dalemusser/stratasite/internal/app/system/jsonutil"
	"github.com/dalemusser/stratasite/internal/app/system/security"
	"github.com/dalemusser/stratasite/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the home page slider, publicly and in the admin API.
type Handler struct {
	store       *sliderstore.Store
	cache       *cache.Content
	errLog      *errorsfeature.ErrorLogger
	auditLogger *auditlog.Logger
	logger      *zap.Logger
}

// NewHandler creates a sliders Handler. cc may be nil.
func NewHandler(db *mongo.Database, cc *cache.Content, errLog *errorsfeature.ErrorLogger, auditLogger *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		store:       sliderstore.New(db),
		cache:       cc,
		errLog:      errLog,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// PublicRoutes mounts at /api/sliders.
func PublicRoutes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.publicList)
	return r
}

// AdminRoutes mounts at /admin/api/sliders behind the editor guard.
func AdminRoutes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Post("/reorder", h.reorder)
	r.Get("/{id}", h.show)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	return r
}

func (h *Handler) publicList(w http.ResponseWriter, r *http.Request) {
	b, err := cache.Load(r.Context(), h.cache, cache.Key(cache.KindSliders, "active"),
		func(ctx context.Context) ([]models.Slider, error) {
			items, _, err := h.store.List(ctx, sliderstore.ListFilter{ActiveOnly: true, Limit: formutil.MaxLimit})
			if items == nil {
				items = []models.Slider{}
			}
			return items, err
		})
	if err != nil {
		h.errLog.StoreError(w, r, "failed to list sliders", err)
		return
	}
	jsonutil.Raw(w, http.StatusOK, b)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	pg := formutil.Page(r)
	items, total, err := h.store.List(r.Context(), sliderstore.ListFilter{
		ActiveOnly: formutil.Bool(r, "active"),
		Page:       pg.Page,
		Limit:      pg.Limit,
	})
	if err != nil {
		h.errLog.StoreError(w, r, "failed to list sliders", err)
		return
	}
	jsonutil.List(w, items, total, pg.Page, pg.Limit)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.ID(w, r)
	if !ok {
		return
	}
	s, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.errLog.StoreError(w, r, "failed to load slider", err)
		return
	}
	jsonutil.OK(w, s)
}

type sliderInput struct {
	Title      string          `json:"title" validate:"required,max=200" label:"Title"`
	Subtitle   string          `json:"subtitle" validate:"max=500" label:"Subtitle"`
	Image      models.MediaRef `json:"image"`
	ButtonText string          `json:"button_text" validate:"max=60" label:"Button text"`
	ButtonLink string          `json:"button_link" validate:"max=500" label:"Button link"`
	Active     bool            `json:"active"`
}

// decode reads and validates a sliderInput. It writes the error response
// itself and reports false when the handler should return.
func decode(w http.ResponseWriter, r *http.Request) (sliderInput, bool) {
	var in sliderInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return in, false
	}
	in.Title = security.SanitizeText(in.Title)
	in.Subtitle = security.SanitizeText(in.Subtitle)
	in.ButtonText = security.SanitizeText(in.ButtonText)
	in.Image = security.SanitizeMediaRef(in.Image)

	res := inputval.Validate(in)
	fields := res.Fields()
	// Button links may be site-relative ("/contact") or absolute.
	if in.ButtonLink != "" && !validLink(in.ButtonLink) {
		if _, dup := fields["button_link"]; !dup {
			fields["button_link"] = "Button link must be a path or an http(s) URL."
		}
	}
	if len(fields) > 0 {
		jsonutil.ValidationError(w, fields)
		return in, false
	}
	return in, true
}

func validLink(s string) bool {
	if len(s) > 1 && s[0] == '/' && s[1] != '/' {
		return true
	}
	return s == "/" || inputval.IsValidHTTPURL(s)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	in, ok := decode(w, r)
	if !ok {
		return
	}
	s, err := h.store.Create(r.Context(), sliderstore.CreateInput{
		Title:      in.Title,
		Subtitle:   in.Subtitle,
		Image:      in.Image,
		ButtonText: in.ButtonText,
		ButtonLink: in.ButtonLink,
		Active:     in.Active,
	})
	if err != nil {
		h.errLog.StoreError(w, r, "failed to create slider", err)
		return
	}
	h.changed(r, audit.EventContentCreated, s.ID.Hex(), s.Title)
	jsonutil.Created(w, s)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.ID(w, r)
	if !ok {
		return
	}
	in, ok := decode(w, r)
	if !ok {
		return
	}
	err := h.store.Update(r.Context(), id, sliderstore.UpdateInput{
		Title:      &in.Title,
		Subtitle:   &in.Subtitle,
		Image:      &in.Image,
		ButtonText: &in.ButtonText,
		ButtonLink: &in.ButtonLink,
		Active:     &in.Active,
	})
	if err != nil {
		h.errLog.StoreError(w, r, "failed to update slider", err)
		return
	}
	h.changed(r, audit.EventContentUpdated, id.Hex(), in.Title)
	h.show(w, r)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.ID(w, r)
	if !ok {
		return
	}
	s, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.errLog.StoreError(w, r, "failed to load slider", err)
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		h.errLog.StoreError(w, r, "failed to delete slider", err)
		return
	}
	h.changed(r, audit.EventContentDeleted, id.Hex(), s.Title)
	jsonutil.NoContent(w)
}

func (h *Handler) reorder(w http.ResponseWriter, r *http.Request) {
	ids, ok := formutil.DecodeReorder(w, r)
	if !ok {
		return
	}
	if err := h.store.Reorder(r.Context(), ids); err != nil {
		h.errLog.StoreError(w, r, "failed to reorder sliders", err)
		return
	}
	h.cache.Invalidate(r.Context(), cache.KindSliders)
	jsonutil.NoContent(w)
}

// changed records the audit event and drops the public cache.
func (h *Handler) changed(r *http.Request, event, id, title string) {
	h.auditLogger.Content(r.Context(), r, authz.ActorID(r), event, cache.KindSliders, id, title)
	h.cache.Invalidate(r.Context(), cache.KindSliders)
}
