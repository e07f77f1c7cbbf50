// internal/app/features/portfolio/categories.go
package portfolio

import (
	"net/http"

	"github.com/dalemusser/stratasite/internal/app/store/audit"
	portfoliostore "github.com/dalemusser/stratasite/internal/app/store/portfolio"
	"github.com/dalemusser/stratasite/internal/app/system/cache"
	"github.com/dalemusser/stratasite/internal/app/system/formutil"
	"github.com/dalemusser/stratasite/internal/app/system/inputval"
	"github.com/dalemusser/stratasite/internal/app/system/jsonutil"
	"github.com/dalemusser/stratasite/internal/app/system/security"
	"go.uber.org/zap"
)

// listCategories returns every category with its total item count.
func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.categoriesWithCounts(r.Context(), false)
	if err != nil {
		h.errLog.StoreError(w, r, "failed to list portfolio categories", err)
		return
	}
	jsonutil.OK(w, cats)
}

func (h *Handler) showCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.ID(w, r)
	if !ok {
		return
	}
	c, err := h.store.GetCategory(r.Context(), id)
	if err != nil {
		h.errLog.StoreError(w, r, "failed to load portfolio category", err)
		return
	}
	jsonutil.OK(w, c)
}

type categoryInput struct {
	Name        string `json:"name" validate:"required,max=100" label:"Name"`
	Slug        string `json:"slug" validate:"max=80" label:"Slug"`
	Description string `json:"description" validate:"max=1000" label:"Description"`
	Active      bool   `json:"active"`
}

func decodeCategory(w http.ResponseWriter, r *http.Request) (categoryInput, bool) {
	var in categoryInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return in, false
	}
	in.Name = security.SanitizeText(in.Name)
	in.Description = security.SanitizeText(in.Description)
	if res := inputval.Validate(in); res.HasErrors() {
		jsonutil.ValidationError(w, res.Fields())
		return in, false
	}
	return in, true
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeCategory(w, r)
	if !ok {
		return
	}
	c, err := h.store.CreateCategory(r.Context(), portfoliostore.CategoryInput{
		Name:        in.Name,
		Slug:        in.Slug,
		Description: in.Description,
		Active:      in.Active,
	})
	if err != nil {
		h.errLog.StoreError(w, r, "failed to create portfolio category", err)
		return
	}
	h.changed(r, audit.EventContentCreated, c.ID.Hex(), c.Name)
	jsonutil.Created(w, c)
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.ID(w, r)
	if !ok {
		return
	}
	in, ok := decodeCategory(w, r)
	if !ok {
		return
	}
	upd := portfoliostore.CategoryUpdate{
		Name:        &in.Name,
		Description: &in.Description,
		Active:      &in.Active,
	}
	if in.Slug != "" {
		upd.Slug = &in.Slug
	}
	if err := h.store.UpdateCategory(r.Context(), id, upd); err != nil {
		h.errLog.StoreError(w, r, "failed to update portfolio category", err)
		return
	}
	h.changed(r, audit.EventContentUpdated, id.Hex(), in.Name)
	h.showCategory(w, r)
}

// deleteCategory removes the category and detaches its items. The items
// themselves are kept.
func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.ID(w, r)
	if !ok {
		return
	}
	c, err := h.store.GetCategory(r.Context(), id)
	if err != nil {
		h.errLog.StoreError(w, r, "failed to load portfolio category", err)
		return
	}
	detached, err := h.store.DeleteCategory(r.Context(), id)
	if err != nil {
		h.errLog.StoreError(w, r, "failed to delete portfolio category", err)
		return
	}
	h.logger.Info("portfolio category deleted",
		zap.String("category_id", id.Hex()),
		zap.Int64("items_detached", detached))
	h.changed(r, audit.EventContentDeleted, id.Hex(), c.Name)
	jsonutil.OK(w, map[string]int64{"items_detached": detached})
}

func (h *Handler) reorderCategories(w http.ResponseWriter, r *http.Request) {
	ids, ok := formutil.DecodeReorder(w, r)
	if !ok {
		return
	}
	if err := h.store.ReorderCategories(r.Context(), ids); err != nil {
		h.errLog.StoreError(w, r, "failed to reorder portfolio categories", err)
		return
	}
	h.cache.Invalidate(r.Context(), cache.KindPortfolio)
	jsonutil.NoContent(w)
}
