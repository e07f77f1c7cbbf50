// internal/app/features/products/products.go
package products

import (
	"context"
	"net/http"
	"strconv"

	errorsfeature "github.com/dalemusser/stratasite/internal/app/features/errors"
	"github.com/dalemusser/stratasite/internal/app/store/audit"
	productstore "github.com/dalemusser/stratasite/internal/app/store/products"
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

// Handler serves the product catalogue.
type Handler struct {
	store       *productstore.Store
	cache       *cache.Content
	errLog      *errorsfeature.ErrorLogger
	auditLogger *auditlog.Logger
	logger      *zap.Logger
}

// NewHandler creates a products Handler. cc may be nil.
func NewHandler(db *mongo.Database, cc *cache.Content, errLog *errorsfeature.ErrorLogger, auditLogger *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		store:       productstore.New(db),
		cache:       cc,
		errLog:      errLog,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// PublicRoutes mounts at /api/products.
func PublicRoutes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.publicList)
	r.Get("/{slug}", h.publicShow)
	return r
}

// AdminRoutes mounts at /admin/api/products.
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
	featured := formutil.Bool(r, "featured")
	key := cache.Key(cache.KindProducts, "list", strconv.FormatBool(featured),
		strconv.FormatInt(pg.Page, 10), strconv.FormatInt(pg.Limit, 10))

	b, err := cache.Load(r.Context(), h.cache, key, func(ctx context.Context) (jsonutil.Page[models.Product], error) {
		items, total, err := h.store.List(ctx, productstore.ListFilter{
			PublishedOnly: true,
			FeaturedOnly:  featured,
			Page:          pg.Page,
			Limit:         pg.Limit,
		})
		if items == nil {
			items = []models.Product{}
		}
		return jsonutil.Page[models.Product]{Items: items, Total: total, Page: pg.Page, Limit: pg.Limit}, err
	})
	if err != nil {
		h.errLog.StoreError(w, r, "failed to list products", err)
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
	b, err := cache.Load(r.Context(), h.cache, cache.Key(cache.KindProducts, "slug", sl),
		func(ctx context.Context) (*models.Product, error) {
			return h.store.GetBySlug(ctx, sl, true)
		})
	if err != nil {
		h.errLog.StoreError(w, r, "failed to load product", err)
		return
	}
	jsonutil.Raw(w, http.StatusOK, b)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	pg := formutil.Page(r)
	items, total, err := h.store.List(r.Context(), productstore.ListFilter{
		PublishedOnly: formutil.Bool(r, "published"),
		FeaturedOnly:  formutil.Bool(r, "featured"),
		Search:        query.Get(r, "q"),
		Page:          pg.Page,
		Limit:         pg.Limit,
	})
	if err != nil {
		h.errLog.StoreError(w, r, "failed to list products", err)
		return
	}
	jsonutil.List(w, items, total, pg.Page, pg.Limit)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.ID(w, r)
	if !ok {
		return
	}
	p, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.errLog.StoreError(w, r, "failed to load product", err)
		return
	}
	jsonutil.OK(w, p)
}

type productInput struct {
	Name      string          `json:"name" validate:"required,max=200" label:"Name"`
	Slug      string          `json:"slug" validate:"max=80" label:"Slug"`
	Summary   string          `json:"summary" validate:"max=1000" label:"Summary"`
	Content   string          `json:"content" validate:"max=100000" label:"Content"`
	Price     int64           `json:"price" validate:"min=0" label:"Price"`
	Currency  string          `json:"currency" validate:"max=3" label:"Currency"`
	Features  []string        `json:"features"`
	Image     models.MediaRef `json:"image"`
	Featured  bool            `json:"featured"`
	Published bool            `json:"published"`
}

func decode(w http.ResponseWriter, r *http.Request) (productInput, bool) {
	var in productInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return in, false
	}
	in.Name = security.SanitizeText(in.Name)
	in.Summary = security.SanitizeText(in.Summary)
	in.Content = security.SanitizeRich(in.Content)
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
	p, err := h.store.Create(r.Context(), productstore.CreateInput{
		Name:      in.Name,
		Slug:      in.Slug,
		Summary:   in.Summary,
		Content:   in.Content,
		Price:     in.Price,
		Currency:  in.Currency,
		Features:  in.Features,
		Image:     in.Image,
		Featured:  in.Featured,
		Published: in.Published,
	})
	if err != nil {
		h.errLog.StoreError(w, r, "failed to create product", err)
		return
	}
	h.changed(r, audit.EventContentCreated, p.ID.Hex(), p.Name)
	jsonutil.Created(w, p)
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
	upd := productstore.UpdateInput{
		Name:      &in.Name,
		Summary:   &in.Summary,
		Content:   &in.Content,
		Price:     &in.Price,
		Currency:  &in.Currency,
		Features:  &in.Features,
		Image:     &in.Image,
		Featured:  &in.Featured,
		Published: &in.Published,
	}
	// A blank slug keeps the current one.
	if in.Slug != "" {
		upd.Slug = &in.Slug
	}
	if err := h.store.Update(r.Context(), id, upd); err != nil {
		h.errLog.StoreError(w, r, "failed to update product", err)
		return
	}
	h.changed(r, audit.EventContentUpdated, id.Hex(), in.Name)
	h.show(w, r)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.ID(w, r)
	if !ok {
		return
	}
	p, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.errLog.StoreError(w, r, "failed to load product", err)
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		h.errLog.StoreError(w, r, "failed to delete product", err)
		return
	}
	h.changed(r, audit.EventContentDeleted, id.Hex(), p.Name)
	jsonutil.NoContent(w)
}

func (h *Handler) reorder(w http.ResponseWriter, r *http.Request) {
	ids, ok := formutil.DecodeReorder(w, r)
	if !ok {
		return
	}
	if err := h.store.Reorder(r.Context(), ids); err != nil {
		h.errLog.StoreError(w, r, "failed to reorder products", err)
		return
	}
	h.cache.Invalidate(r.Context(), cache.KindProducts)
	jsonutil.NoContent(w)
}

func (h *Handler) changed(r *http.Request, event, id, title string) {
	h.auditLogger.Content(r.Context(), r, authz.ActorID(r), event, cache.KindProducts, id, title)
	h.cache.Invalidate(r.Context(), cache.KindProducts)
}
