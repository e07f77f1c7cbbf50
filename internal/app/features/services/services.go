// internal/app/features/services/services.go
package services

import (
	"context"
	"net/http"
	"strconv"

	errorsfeature "github.com/dalemusser/stratasite/internal/app/features/errors"
	"github.com/dalemusser/stratasite/internal/app/store/audit"
	servicestore "github.com/dalemusser/stratasite/internal/app/store/services"
	"github.com/dalemusser/stratasite/internal/app/system/auditlog"
	"github.com/dalemusser/stratasite/internal/app/system/authz"
	"github.com/dalemusser/stratasite/internal/app/system/cache"
	"github.com/dalemusser/stratasite/internal/app/system/formutil"
	"github.com/dalemusser/stratasite/internal/app/system/inputval"
	"github.com/dalemusser/stratasite/internal/app/system/jsonutil"
	"github.com/dalemusser/stratasite/internal/app/system/security"
	"github.com/dalemusser/stratasite/internal/app/system/slug"
	"github.com/dalemusser/stratasite/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the services offered by the studio.
type Handler struct {
	store       *servicestore.Store
	cache       *cache.Content
	errLog      *errorsfeature.ErrorLogger
	auditLogger *auditlog.Logger
	logger      *zap.Logger
}

// NewHandler creates a services Handler. cc may be nil.
func NewHandler(db *mongo.Database, cc *cache.Content, errLog *errorsfeature.ErrorLogger, auditLogger *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		store:       servicestore.New(db),
		cache:       cc,
		errLog:      errLog,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// PublicRoutes mounts at /api/services.
func PublicRoutes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.publicList)
	r.Get("/{slug}", h.publicShow)
	return r
}

// AdminRoutes mounts at /admin/api/services.
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
	pg := formutil.Page(r)
	key := cache.Key(cache.KindServices, "list", strconv.FormatInt(pg.Page, 10), strconv.FormatInt(pg.Limit, 10))

	b, err := cache.Load(r.Context(), h.cache, key, func(ctx context.Context) (jsonutil.Page[models.Service], error) {
		items, total, err := h.store.List(ctx, servicestore.ListFilter{PublishedOnly: true, Page: pg.Page, Limit: pg.Limit})
		if items == nil {
			items = []models.Service{}
		}
		return jsonutil.Page[models.Service]{Items: items, Total: total, Page: pg.Page, Limit: pg.Limit}, err
	})
	if err != nil {
		h.errLog.StoreError(w, r, "failed to list services", err)
		return
	}
	jsonutil.Raw(w, http.StatusOK, b)
}

func (h *Handler) publicShow(w http.ResponseWriter, r *http.Request) {
	sl := chi.URLParam(r, "slug")
	if !slug.Valid(sl) {
		jsonutil.NotFound(w, "not found")
		return
	}
	b, err := cache.Load(r.Context(), h.cache, cache.Key(cache.KindServices, "slug", sl),
		func(ctx context.Context) (*models.Service, error) {
			return h.store.GetBySlug(ctx, sl, true)
		})
	if err != nil {
		h.errLog.StoreError(w, r, "failed to load service", err)
		return
	}
	jsonutil.Raw(w, http.StatusOK, b)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	pg := formutil.Page(r)
	items, total, err := h.store.List(r.Context(), servicestore.ListFilter{
		PublishedOnly: formutil.Bool(r, "published"),
		Search:        query.Get(r, "q"),
		Page:          pg.Page,
		Limit:         pg.Limit,
	})
	if err != nil {
		h.errLog.StoreError(w, r, "failed to list services", err)
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
		h.errLog.StoreError(w, r, "failed to load service", err)
		return
	}
	jsonutil.OK(w, s)
}

type serviceInput struct {
	Title     string          `json:"title" validate:"required,max=200" label:"Title"`
	Slug      string          `json:"slug" validate:"max=80" label:"Slug"`
	Summary   string          `json:"summary" validate:"max=1000" label:"Summary"`
	Content   string          `json:"content" validate:"max=100000" label:"Content"`
	Icon      string          `json:"icon" validate:"max=60" label:"Icon"`
	Features  []string        `json:"features"`
	Image     models.MediaRef `json:"image"`
	Published bool            `json:"published"`
}

func decode(w http.ResponseWriter, r *http.Request) (serviceInput, bool) {
	var in serviceInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return in, false
	}
	in.Title = security.SanitizeText(in.Title)
	in.Summary = security.SanitizeText(in.Summary)
	in.Content = security.SanitizeRich(in.Content)
	in.Icon = slug.Make(in.Icon)
	in.Features = security.SanitizeStrings(in.Features)
	in.Image = security.SanitizeMediaRef(in.Image)

	if res := inputval.Validate(in); res.HasErrors() {
		jsonutil.ValidationError(w, res.Fields())
		return in, false
	}
	return in, true
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	in, ok := decode(w, r)
	if !ok {
		return
	}
	s, err := h.store.Create(r.Context(), servicestore.CreateInput{
		Title:     in.Title,
		Slug:      in.Slug,
		Summary:   in.Summary,
		Content:   in.Content,
		Icon:      in.Icon,
		Features:  in.Features,
		Image:     in.Image,
		Published: in.Published,
	})
	if err != nil {
		h.errLog.StoreError(w, r, "failed to create service", err)
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
	upd := servicestore.UpdateInput{
		Title:     &in.Title,
		Summary:   &in.Summary,
		Content:   &in.Content,
		Icon:      &in.Icon,
		Features:  &in.Features,
		Image:     &in.Image,
		Published: &in.Published,
	}
	if in.Slug != "" {
		upd.Slug = &in.Slug
	}
	if err := h.store.Update(r.Context(), id, upd); err != nil {
		h.errLog.StoreError(w, r, "failed to update service", err)
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
		h.errLog.StoreError(w, r, "failed to load service", err)
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		h.errLog.StoreError(w, r, "failed to delete service", err)
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
		h.errLog.StoreError(w, r, "failed to reorder services", err)
		return
	}
	h.cache.Invalidate(r.Context(), cache.KindServices)
	jsonutil.NoContent(w)
}

func (h *Handler) changed(r *http.Request, event, id, title string) {
	h.auditLogger.Content(r.Context(), r, authz.ActorID(r), event, cache.KindServices, id, title)
	h.cache.Invalidate(r.Context(), cache.KindServices)
}
