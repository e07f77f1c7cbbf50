// internal/app/features/models3d/models3d.go
package models3d

import (
	"context"
	"net/http"
	"strconv"

	errorsfeature "github.com/dalemusser/stratasite/internal/app/features/errors"
	"github.com/dalemusser/stratasite/internal/app/store/audit"
	modelstore "github.com/dalemusser/stratasite/internal/app/store/models3d"
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

// Handler serves the 3D model gallery (glTF/USDZ files shown with a
// model viewer on the site).
type Handler struct {
	store       *modelstore.Store
	cache       *cache.Content
	errLog      *errorsfeature.ErrorLogger
	auditLogger *auditlog.Logger
	logger      *zap.Logger
}

// NewHandler creates a 3D models Handler. cc may be nil.
func NewHandler(db *mongo.Database, cc *cache.Content, errLog *errorsfeature.ErrorLogger, auditLogger *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		store:       modelstore.New(db),
		cache:       cc,
		errLog:      errLog,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// PublicRoutes mounts at /api/models.
func PublicRoutes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.publicList)
	r.Get("/categories", h.publicCategories)
	r.Get("/{slug}", h.publicShow)
	return r
}

// AdminRoutes mounts at /admin/api/models.
func AdminRoutes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/categories", h.categories)
	r.Post("/reorder", h.reorder)
	r.Get("/{id}", h.show)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	return r
}

func (h *Handler) publicList(w http.ResponseWriter, r *http.Request) {
	pg := formutil.Page(r)
	category := query.Get(r, "category")
	key := cache.Key(cache.KindModels, "list", category, strconv.FormatInt(pg.Page, 10), strconv.FormatInt(pg.Limit, 10))

	b, err := cache.Load(r.Context(), h.cache, key, func(ctx context.Context) (jsonutil.Page[models.Model3D], error) {
		items, total, err := h.store.List(ctx, modelstore.ListFilter{
			PublishedOnly: true,
			Category:      category,
			Page:          pg.Page,
			Limit:         pg.Limit,
		})
		if items == nil {
			items = []models.Model3D{}
		}
		return jsonutil.Page[models.Model3D]{Items: items, Total: total, Page: pg.Page, Limit: pg.Limit}, err
	})
	if err != nil {
		h.errLog.StoreError(w, r, "failed to list models", err)
		return
	}
	jsonutil.Raw(w, http.StatusOK, b)
}

func (h *Handler) publicCategories(w http.ResponseWriter, r *http.Request) {
	b, err := cache.Load(r.Context(), h.cache, cache.Key(cache.KindModels, "categories"),
		func(ctx context.Context) ([]string, error) {
			return h.store.Categories(ctx, true)
		})
	if err != nil {
		h.errLog.StoreError(w, r, "failed to list model categories", err)
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
	b, err := cache.Load(r.Context(), h.cache, cache.Key(cache.KindModels, "slug", sl),
		func(ctx context.Context) (*models.Model3D, error) {
			return h.store.GetBySlug(ctx, sl, true)
		})
	if err != nil {
		h.errLog.StoreError(w, r, "failed to load model", err)
		return
	}
	jsonutil.Raw(w, http.StatusOK, b)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	pg := formutil.Page(r)
	items, total, err := h.store.List(r.Context(), modelstore.ListFilter{
		PublishedOnly: formutil.Bool(r, "published"),
		Category:      query.Get(r, "category"),
		Search:        query.Get(r, "q"),
		Page:          pg.Page,
		Limit:         pg.Limit,
	})
	if err != nil {
		h.errLog.StoreError(w, r, "failed to list models", err)
		return
	}
	jsonutil.List(w, items, total, pg.Page, pg.Limit)
}

func (h *Handler) categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.store.Categories(r.Context(), false)
	if err != nil {
		h.errLog.StoreError(w, r, "failed to list model categories", err)
		return
	}
	if cats == nil {
		cats = []string{}
	}
	jsonutil.OK(w, cats)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.ID(w, r)
	if !ok {
		return
	}
	m, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.errLog.StoreError(w, r, "failed to load model", err)
		return
	}
	jsonutil.OK(w, m)
}

type modelInput struct {
	Title       string          `json:"title" validate:"required,max=200" label:"Title"`
	Slug        string          `json:"slug" validate:"max=80" label:"Slug"`
	Description string          `json:"description" validate:"max=5000" label:"Description"`
	Category    string          `json:"category" validate:"max=80" label:"Category"`
	Model       models.MediaRef `json:"model"`
	Poster      models.MediaRef `json:"poster"`
	AutoRotate  bool            `json:"auto_rotate"`
	CameraOrbit string          `json:"camera_orbit" validate:"max=60" label:"Camera orbit"`
	Published   bool            `json:"published"`
}

func decode(w http.ResponseWriter, r *http.Request) (modelInput, bool) {
	var in modelInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return in, false
	}
	in.Title = security.SanitizeText(in.Title)
	in.Description = security.SanitizeRich(in.Description)
	in.Category = security.SanitizeText(in.Category)
	in.CameraOrbit = security.SanitizeText(in.CameraOrbit)
	in.Model = security.SanitizeMediaRef(in.Model)
	in.Poster = security.SanitizeMediaRef(in.Poster)

	res := inputval.Validate(in)
	fields := res.Fields()
	if in.Model.IsZero() {
		if _, dup := fields["model"]; !dup {
			fields["model"] = "A model file is required."
		}
	}
	if len(fields) > 0 {
		jsonutil.ValidationError(w, fields)
		return in, false
	}
	return in, true
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	in, ok := decode(w, r)
	if !ok {
		return
	}
	m, err := h.store.Create(r.Context(), modelstore.CreateInput{
		Title:       in.Title,
		Slug:        in.Slug,
		Description: in.Description,
		Category:    in.Category,
		Model:       in.Model,
		Poster:      in.Poster,
		AutoRotate:  in.AutoRotate,
		CameraOrbit: in.CameraOrbit,
		Published:   in.Published,
	})
	if err != nil {
		h.errLog.StoreError(w, r, "failed to create model", err)
		return
	}
	h.changed(r, audit.EventContentCreated, m.ID.Hex(), m.Title)
	jsonutil.Created(w, m)
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
	upd := modelstore.UpdateInput{
		Title:       &in.Title,
		Description: &in.Description,
		Category:    &in.Category,
		Model:       &in.Model,
		Poster:      &in.Poster,
		AutoRotate:  &in.AutoRotate,
		CameraOrbit: &in.CameraOrbit,
		Published:   &in.Published,
	}
	if in.Slug != "" {
		upd.Slug = &in.Slug
	}
	if err := h.store.Update(r.Context(), id, upd); err != nil {
		h.errLog.StoreError(w, r, "failed to update model", err)
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
	m, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.errLog.StoreError(w, r, "failed to load model", err)
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		h.errLog.StoreError(w, r, "failed to delete model", err)
		return
	}
	h.changed(r, audit.EventContentDeleted, id.Hex(), m.Title)
	jsonutil.NoContent(w)
}

func (h *Handler) reorder(w http.ResponseWriter, r *http.Request) {
	ids, ok := formutil.DecodeReorder(w, r)
	if !ok {
		return
	}
	if err := h.store.Reorder(r.Context(), ids); err != nil {
		h.errLog.StoreError(w, r, "failed to reorder models", err)
		return
	}
	h.cache.Invalidate(r.Context(), cache.KindModels)
	jsonutil.NoContent(w)
}

func (h *Handler) changed(r *http.Request, event, id, title string) {
	h.auditLogger.Content(r.Context(), r, authz.ActorID(r), event, cache.KindModels, id, title)
	h.cache.Invalidate(r.Context(), cache.KindModels)
}
