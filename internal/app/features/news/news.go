// internal/app/features/news/news.go
package news

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	errorsfeature "github.com/dalemusser/stratasite/internal/app/features/errors"
	"github.com/dalemusser/stratasite/internal/app/store/audit"
	newsstore "github.com/dalemusser/stratasite/internal/app/store/news"
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

// Handler serves news articles.
type Handler struct {
	store       *newsstore.Store
	cache       *cache.Content
	errLog      *errorsfeature.ErrorLogger
	auditLogger *auditlog.Logger
	logger      *zap.Logger
}

// NewHandler creates a news Handler. cc may be nil.
func NewHandler(db *mongo.Database, cc *cache.Content, errLog *errorsfeature.ErrorLogger, auditLogger *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		store:       newsstore.New(db),
		cache:       cc,
		errLog:      errLog,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// PublicRoutes mounts at /api/news.
func PublicRoutes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.publicList)
	r.Get("/tags", h.publicTags)
	r.Get("/{slug}", h.publicShow)
	return r
}

// AdminRoutes mounts at /admin/api/news.
func AdminRoutes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/publish", h.publish)
	r.Post("/{id}/unpublish", h.unpublish)
	return r
}

// ArticleSummary is the list shape: everything but the body.
type ArticleSummary struct {
	*models.NewsArticle
	Content string `json:"content,omitempty"`
}

func summaries(items []models.NewsArticle) []ArticleSummary {
	out := make([]ArticleSummary, len(items))
	for i := range items {
		out[i] = ArticleSummary{NewsArticle: &items[i]}
	}
	return out
}

func (h *Handler) publicList(w http.ResponseWriter, r *http.Request) {
	pg := formutil.Page(r)
	tag := query.Get(r, "tag")
	key := cache.Key(cache.KindNews, "list", tag, strconv.FormatInt(pg.Page, 10), strconv.FormatInt(pg.Limit, 10))

	b, err := cache.Load(r.Context(), h.cache, key, func(ctx context.Context) (jsonutil.Page[ArticleSummary], error) {
		items, total, err := h.store.List(ctx, newsstore.ListFilter{
			PublishedOnly: true,
			Tag:           tag,
			Page:          pg.Page,
			Limit:         pg.Limit,
		})
		return jsonutil.Page[ArticleSummary]{Items: summaries(items), Total: total, Page: pg.Page, Limit: pg.Limit}, err
	})
	if err != nil {
		h.errLog.StoreError(w, r, "failed to list news", err)
		return
	}
	jsonutil.Raw(w, http.StatusOK, b)
}

func (h *Handler) publicTags(w http.ResponseWriter, r *http.Request) {
	b, err := cache.Load(r.Context(), h.cache, cache.Key(cache.KindNews, "tags"), h.store.Tags)
	if err != nil {
		h.errLog.StoreError(w, r, "failed to list news tags", err)
		return
	}
	jsonutil.Raw(w, http.StatusOK, b)
}

// publicShow returns a published article and counts the view. Articles
// are not cached so the counter stays live.
func (h *Handler) publicShow(w http.ResponseWriter, r *http.Request) {
	sl := chi.URLParam(r, "slug")
	if !slug.Valid(sl) {
		jsonutil.NotFound(w, "not found")
		return
	}
	a, err := h.store.GetBySlug(r.Context(), sl, true)
	if err != nil {
		h.errLog.StoreError(w, r, "failed to load article", err)
		return
	}
	if err := h.store.IncrementViews(r.Context(), a.ID); err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			h.logger.Warn("failed to count article view", zap.String("slug", sl), zap.Error(err))
		}
	} else {
		a.Views++
	}
	jsonutil.OK(w, a)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	pg := formutil.Page(r)
	st := query.Get(r, "status")
	if st != "" && !models.IsValidNewsStatus(st) {
		jsonutil.BadRequest(w, "invalid status")
		return
	}
	items, total, err := h.store.List(r.Context(), newsstore.ListFilter{
		Status: st,
		Tag:    query.Get(r, "tag"),
		Search: query.Get(r, "q"),
		Page:   pg.Page,
		Limit:  pg.Limit,
	})
	if err != nil {
		h.errLog.StoreError(w, r, "failed to list news", err)
		return
	}
	jsonutil.List(w, summaries(items), total, pg.Page, pg.Limit)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.ID(w, r)
	if !ok {
		return
	}
	a, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.errLog.StoreError(w, r, "failed to load article", err)
		return
	}
	jsonutil.OK(w, a)
}

type articleInput struct {
	Title   string          `json:"title" validate:"required,max=200" label:"Title"`
	Slug    string          `json:"slug" validate:"max=80" label:"Slug"`
	Excerpt string          `json:"excerpt" validate:"max=2000" label:"Excerpt"`
	Content string          `json:"content" validate:"required,max=200000" label:"Content"`
	Cover   models.MediaRef `json:"cover"`
	Author  string          `json:"author" validate:"max=200" label:"Author"`
	Tags    []string        `json:"tags"`
	// Status applies on create only; use publish/unpublish afterwards.
	Status string `json:"status" validate:"oneof=draft published" label:"Status"`
}

func decode(w http.ResponseWriter, r *http.Request) (articleInput, bool) {
	var in articleInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return in, false
	}
	if in.Status == "" {
		in.Status = models.NewsStatusDraft
	}
	in.Title = security.SanitizeText(in.Title)
	in.Excerpt = security.SanitizeRich(in.Excerpt)
	in.Content = security.SanitizeRich(in.Content)
	in.Author = security.SanitizeText(in.Author)
	in.Tags = security.SanitizeStrings(in.Tags)
	in.Cover = security.SanitizeMediaRef(in.Cover)

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
	name := authz.ActorName(r)
	if in.Author == "" {
		in.Author = name
	}
	a, err := h.store.Create(r.Context(), newsstore.CreateInput{
		Title:    in.Title,
		Slug:     in.Slug,
		Excerpt:  in.Excerpt,
		Content:  in.Content,
		Cover:    in.Cover,
		Author:   in.Author,
		AuthorID: authz.ActorPtr(r),
		Tags:     in.Tags,
		Status:   in.Status,
	})
	if err != nil {
		h.errLog.StoreError(w, r, "failed to create article", err)
		return
	}
	event := audit.EventContentCreated
	if a.Status == models.NewsStatusPublished {
		event = audit.EventContentPublished
	}
	h.changed(r, event, a.ID.Hex(), a.Title)
	jsonutil.Created(w, a)
}

// update replaces the editable fields. A blank excerpt is regenerated
// from the content.
func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.ID(w, r)
	if !ok {
		return
	}
	in, ok := decode(w, r)
	if !ok {
		return
	}
	upd := newsstore.UpdateInput{
		Title:   &in.Title,
		Excerpt: &in.Excerpt,
		Content: &in.Content,
		Cover:   &in.Cover,
		Author:  &in.Author,
		Tags:    &in.Tags,
	}
	if in.Slug != "" {
		upd.Slug = &in.Slug
	}
	if err := h.store.Update(r.Context(), id, upd); err != nil {
		h.errLog.StoreError(w, r, "failed to update article", err)
		return
	}
	h.changed(r, audit.EventContentUpdated, id.Hex(), in.Title)
	h.show(w, r)
}

func (h *Handler) publish(w http.ResponseWriter, r *http.Request) {
	h.setPublished(w, r, true)
}

func (h *Handler) unpublish(w http.ResponseWriter, r *http.Request) {
	h.setPublished(w, r, false)
}

func (h *Handler) setPublished(w http.ResponseWriter, r *http.Request, publish bool) {
	id, ok := formutil.ID(w, r)
	if !ok {
		return
	}
	var err error
	event := audit.EventContentUpdated
	if publish {
		err = h.store.Publish(r.Context(), id)
		event = audit.EventContentPublished
	} else {
		err = h.store.Unpublish(r.Context(), id)
	}
	if err != nil {
		h.errLog.StoreError(w, r, "failed to change article status", err)
		return
	}
	a, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.errLog.StoreError(w, r, "failed to load article", err)
		return
	}
	h.changed(r, event, id.Hex(), a.Title)
	jsonutil.OK(w, a)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.ID(w, r)
	if !ok {
		return
	}
	a, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.errLog.StoreError(w, r, "failed to load article", err)
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		h.errLog.StoreError(w, r, "failed to delete article", err)
		return
	}
	h.changed(r, audit.EventContentDeleted, id.Hex(), a.Title)
	jsonutil.NoContent(w)
}

func (h *Handler) changed(r *http.Request, event, id, title string) {
	h.auditLogger.Content(r.Context(), r, authz.ActorID(r), event, cache.KindNews, id, title)
	h.cache.Invalidate(r.Context(), cache.KindNews)
}
