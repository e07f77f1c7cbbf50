// internal/app/features/stock/stock.go
package stock

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	errorsfeature "github.com/dalemusser/stratasite/internal/app/features/errors"
	"github.com/dalemusser/stratasite/internal/app/system/jsonutil"
	"github.com/dalemusser/stratasite/internal/app/system/pexels"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxQueryLength = 100

// Handler proxies stock photo search so the API key stays on the server.
type Handler struct {
	client *pexels.Client
	errLog *errorsfeature.ErrorLogger
	logger *zap.Logger
}

func NewHandler(client *pexels.Client, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{client: client, errLog: errLog, logger: logger}
}

// Routes mounts at /admin/api/stock.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/search", h.search)
	return r
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	if !h.client.Enabled() {
		jsonutil.ServiceUnavailable(w, "stock photo search is not configured")
		return
	}
	q := strings.TrimSpace(query.Get(r, "q"))
	if q == "" {
		jsonutil.ValidationError(w, map[string]string{"q": "Search terms are required."})
		return
	}
	if len(q) > maxQueryLength {
		jsonutil.ValidationError(w, map[string]string{"q": "Search terms are too long."})
		return
	}
	page, _ := strconv.Atoi(query.Get(r, "page"))
	perPage, _ := strconv.Atoi(query.Get(r, "per_page"))

	res, err := h.client.Search(r.Context(), q, page, perPage)
	if err != nil {
		if errors.Is(err, pexels.ErrDisabled) {
			jsonutil.ServiceUnavailable(w, "stock photo search is not configured")
			return
		}
		h.errLog.LogWithFields(r, "stock search failed", err, zap.String("query", q))
		jsonutil.Error(w, http.StatusBadGateway, "stock photo search failed")
		return
	}
	jsonutil.OK(w, res)
}
