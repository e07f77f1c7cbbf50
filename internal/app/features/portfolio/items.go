// internal/app/features/portfolio/items.go
package portfolio

import (
	"errors"
	"net/http"

	"github.com/dalemusser/stratasite/internal/app/store/audit"
	portfoliostore "github.com/dalemusser/stratasite/internal/app/store/portfolio"
	"github.com/dalemusser/stratasite/internal/app/system/cache"
	"github.com/dalemusser/stratasite/internal/app/system/formutil"
	"github.com/dalemusser/stratasite/internal/app/system/inputval"
	"github.com/dalemusser/stratasite/internal/app/system/jsonutil"
	"github.com/dalemusser/stratasite/internal/app/system/security"
	"github.com/dalemusser/stratasite/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	pg := formutil.Page(r)
	catID, err := formutil.OptionalID(r, "category_id")
	if err != nil {
		jsonutil.BadRequest(w, "invalid category_id")
		return
	}
	items, total, err := h.store.List(r.Context(), portfoliostore.ListFilter{
		PublishedOnly: formutil.Bool(r, "published"),
		FeaturedOnly:  formutil.Bool(r, "featured"),
		CategoryID:    catID,
		Tag:           query.Get(r, "tag"),
		Search:        query.Get(r, "q"),
		Page:          pg.Page,
		Limit:         pg.Limit,
	})
	if err != nil {
		h.errLog.StoreError(w, r, "failed to list portfolio items", err)
		return
	}
	jsonutil.List(w, items, total, pg.Page, pg.Limit)
}

func (h *Handler) showItem(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.ID(w, r)
	if !ok {
		return
	}
	it, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.errLog.StoreError(w, r, "failed to load portfolio item", err)
		return
	}
	jsonutil.OK(w, it)
}

type itemInput struct {
	Title      string            `json:"title" validate:"required,max=200" label:"Title"`
	Slug       string            `json:"slug" validate:"max=80" label:"Slug"`
	CategoryID string            `json:"category_id"`
	Summary    string            `json:"summary" validate:"max=1000" label:"Summary"`
	Content    string            `json:"content" validate:"max=100000" label:"Content"`
	Client     string            `json:"client" validate:"max=200" label:"Client"`
	ProjectURL string            `json:"project_url" validate:"optionalurl,max=500" label:"Project URL"`
	Tags       []string          `json:"tags"`
	Cover      models.MediaRef   `json:"cover"`
	Gallery    []models.MediaRef `json:"gallery"`
	Featured   bool              `json:"featured"`
	Published  bool              `json:"published"`
}

// decodeItem reads and validates an itemInput and parses its category id,
// which is nil when the item has no category.
func decodeItem(w http.ResponseWriter, r *http.Request) (itemInput, *primitive.ObjectID, bool) {
	var in itemInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return in, nil, false
	}
	in.Title = security.SanitizeText(in.Title)
	in.Summary = security.SanitizeText(in.Summary)
	in.Content = security.SanitizeRich(in.Content)
	in.Client = security.SanitizeText(in.Client)
	in.Tags = security.SanitizeStrings(in.Tags)
	in.Cover = security.SanitizeMediaRef(in.Cover)
	for i := range in.Gallery {
		in.Gallery[i] = security.SanitizeMediaRef(in.Gallery[i])
	}

	res := inputval.Validate(in)
	fields := res.Fields()
	var catID *primitive.ObjectID
	if in.CategoryID != "" {
		oid, err := primitive.ObjectIDFromHex(in.CategoryID)
		if err != nil {
			fields["category_id"] = "Category is invalid."
		} else {
			catID = &oid
		}
	}
	if len(fields) > 0 {
		jsonutil.ValidationError(w, fields)
		return in, nil, false
	}
	return in, catID, true
}

// itemStoreError adds the unknown-category case to StoreError.
func (h *Handler) itemStoreError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if errors.Is(err, portfoliostore.ErrCategoryNotFound) {
		jsonutil.ValidationError(w, map[string]string{"category_id": "Category does not exist."})
		return
	}
	h.errLog.StoreError(w, r, msg, err)
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	in, catID, ok := decodeItem(w, r)
	if !ok {
		return
	}
	it, err := h.store.Create(r.Context(), portfoliostore.CreateInput{
		Title:      in.Title,
		Slug:       in.Slug,
		CategoryID: catID,
		Summary:    in.Summary,
		Content:    in.Content,
		Client:     in.Client,
		ProjectURL: in.ProjectURL,
		Tags:       in.Tags,
		Cover:      in.Cover,
		Gallery:    in.Gallery,
		Featured:   in.Featured,
		Published:  in.Published,
	})
	if err != nil {
		h.itemStoreError(w, r, "failed to create portfolio item", err)
		return
	}
	h.changed(r, audit.EventContentCreated, it.ID.Hex(), it.Title)
	jsonutil.Created(w, it)
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.ID(w, r)
	if !ok {
		return
	}
	in, catID, ok := decodeItem(w, r)
	if !ok {
		return
	}
	upd := portfoliostore.UpdateInput{
		Title:         &in.Title,
		CategoryID:    catID,
		ClearCategory: catID == nil,
		Summary:       &in.Summary,
		Content:       &in.Content,
		Client:        &in.Client,
		ProjectURL:    &in.ProjectURL,
		Tags:          &in.Tags,
		Cover:         &in.Cover,
		Gallery:       &in.Gallery,
		Featured:      &in.Featured,
		Published:     &in.Published,
	}
	if in.Slug != "" {
		upd.Slug = &in.Slug
	}
	if err := h.store.Update(r.Context(), id, upd); err != nil {
		h.itemStoreError(w, r, "failed to update portfolio item", err)
		return
	}
	h.changed(r, audit.EventContentUpdated, id.Hex(), in.Title)
	h.showItem(w, r)
}

func (h *Handler) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.ID(w, r)
	if !ok {
		return
	}
	it, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.errLog.StoreError(w, r, "failed to load portfolio item", err)
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		h.errLog.StoreError(w, r, "failed to delete portfolio item", err)
		return
	}
	h.changed(r, audit.EventContentDeleted, id.Hex(), it.Title)
	jsonutil.NoContent(w)
}

func (h *Handler) reorderItems(w http.ResponseWriter, r *http.Request) {
	ids, ok := formutil.DecodeReorder(w, r)
	if !ok {
		return
	}
	if err := h.store.Reorder(r.Context(), ids); err != nil {
		h.errLog.StoreError(w, r, "failed to reorder portfolio items", err)
		return
	}
	h.cache.Invalidate(r.Context(), cache.KindPortfolio)
	jsonutil.NoContent(w)
}
