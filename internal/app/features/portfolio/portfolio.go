// internal/app/features/portfolio/portfolio.go
package portfolio

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	errorsfeature "github.com/dalemusser/stratasite/internal/app/features/errors"
	portfoliostore "github.com/dalemusser/stratasite/internal/app/store/portfolio"
	"github.com/dalemusser/stratasite/internal/app/system/auditlog"
	"github.com/dalemusser/stratasite/internal/app/system/authz"
	"github.com/dalemusser/stratasite/internal/app/system/cache"
	"github.com/dalemusser/stratasite/internal/app/system/formutil"
	"github.com/dalemusser/stratasite/internal/app/system/jsonutil"
	"github.com/dalemusser/stratasite/internal/app/system/slug"
	"github.com/dalemusser/stratasite/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves portfolio items and their categories.
type Handler struct {
	store       *portfoliostore.Store
	cache       *cache.Content
	errLog      *errorsfeature.ErrorLogger
	auditLogger *auditlog.Logger
	logger      *zap.Logger
}

// NewHandler creates a portfolio Handler. cc may be nil.
func NewHandler(db *mongo.Database, cc *cache.Content, errLog *errorsfeature.ErrorLogger, auditLogger *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		store:       portfoliostore.New(db).WithLogger(logger),
		cache:       cc,
		errLog:      errLog,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// PublicRoutes mounts at /api/portfolio.
//
//   - GET /             published items; ?category=<slug>, ?tag=, ?featured=true
//   - GET /categories   active categories with published item counts
//   - GET /{slug}       one published item
func PublicRoutes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.publicList)
	r.Get("/categories", h.publicCategories)
	r.Get("/{slug}", h.publicShow)
	return r
}

// AdminRoutes mounts at /admin/api/portfolio.
func AdminRoutes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.listItems)
	r.Post("/", h.createItem)
	r.Post("/reorder", h.reorderItems)

	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.listCategories)
		r.Post("/", h.createCategory)
		r.Post("/reorder", h.reorderCategories)
		r.Get("/{id}", h.showCategory)
		r.Put("/{id}", h.updateCategory)
		r.Delete("/{id}", h.deleteCategory)
	})

	r.Get("/{id}", h.showItem)
	r.Put("/{id}", h.updateItem)
	r.Delete("/{id}", h.deleteItem)
	return r
}

// CategoryWithCount is a category plus its number of published items.
type CategoryWithCount struct {
	models.PortfolioCategory
	Count int64 `json:"count"`
}

func (h *Handler) publicList(w http.ResponseWriter, r *http.Request) {
	pg := formutil.Page(r)
	catSlug := query.Get(r, "category")
	tag := query.Get(r, "tag")
	featured := formutil.Bool(r, "featured")
	if catSlug != "" && !slug.Valid(catSlug) {
		jsonutil.List(w, []models.PortfolioItem{}, 0, pg.Page, pg.Limit)
		return
	}

	key := cache.Key(cache.KindPortfolio, "list", catSlug, tag, strconv.FormatBool(featured),
		strconv.FormatInt(pg.Page, 10), strconv.FormatInt(pg.Limit, 10))
	b, err := cache.Load(r.Context(), h.cache, key, func(ctx context.Context) (jsonutil.Page[models.PortfolioItem], error) {
		out := jsonutil.Page[models.PortfolioItem]{Items: []models.PortfolioItem{}, Page: pg.Page, Limit: pg.Limit}
		f := portfoliostore.ListFilter{
			PublishedOnly: true,
			FeaturedOnly:  featured,
			Tag:           tag,
			Page:          pg.Page,
			Limit:         pg.Limit,
		}
		if catSlug != "" {
			cat, err := h.store.GetCategoryBySlug(ctx, catSlug)
			if errors.Is(err, mongo.ErrNoDocuments) || (err == nil && !cat.Active) {
				return out, nil
			}
			if err != nil {
				return out, err
			}
			f.CategoryID = &cat.ID
		}
		items, total, err := h.store.List(ctx, f)
		if err != nil {
			return out, err
		}
		if items != nil {
			out.Items = items
		}
		out.Total = total
		return out, nil
	})
	if err != nil {
		h.errLog.StoreError(w, r, "failed to list portfolio", err)
		return
	}
	jsonutil.Raw(w, http.StatusOK, b)
}

func (h *Handler) publicCategories(w http.ResponseWriter, r *http.Request) {
	b, err := cache.Load(r.Context(), h.cache, cache.Key(cache.KindPortfolio, "categories"),
		func(ctx context.Context) ([]CategoryWithCount, error) {
			return h.categoriesWithCounts(ctx, true)
		})
	if err != nil {
		h.errLog.StoreError(w, r, "failed to list portfolio categories", err)
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
	b, err := cache.Load(r.Context(), h.cache, cache.Key(cache.KindPortfolio, "slug", sl),
		func(ctx context.Context) (*models.PortfolioItem, error) {
			return h.store.GetBySlug(ctx, sl, true)
		})
	if err != nil {
		h.errLog.StoreError(w, r, "failed to load portfolio item", err)
		return
	}
	jsonutil.Raw(w, http.StatusOK, b)
}

// categoriesWithCounts lists categories in display order with item counts.
// public restricts both to what visitors can see.
func (h *Handler) categoriesWithCounts(ctx context.Context, public bool) ([]CategoryWithCount, error) {
	cats, err := h.store.ListCategories(ctx, public)
	if err != nil {
		return nil, err
	}
	counts, err := h.store.CountByCategory(ctx, public)
	if err != nil {
		return nil, err
	}
	out := make([]CategoryWithCount, 0, len(cats))
	for _, c := range cats {
		out = append(out, CategoryWithCount{PortfolioCategory: c, Count: counts[c.ID]})
	}
	return out, nil
}

func (h *Handler) changed(r *http.Request, event, id, title string) {
	h.auditLogger.Content(r.Context(), r, authz.ActorID(r), event, cache.KindPortfolio, id, title)
	h.cache.Invalidate(r.Context(), cache.KindPortfolio)
}
