package export

import (
	"net/http"

	"github.com/dalemusser/stratasite/internal/app/system/apicors"
	"github.com/dalemusser/stratasite/internal/app/system/apistats"
	"github.com/dalemusser/stratasite/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Routes returns the export API.
//
// When mounted at /api/export:
//   - GET /api/export            list exportable collections
//   - GET /api/export/{collection} every document in the collection
//
// Authentication is via API key (Bearer token in Authorization header).
// CORS is permissive (allows any origin) since API key auth is used.
func Routes(h *Handler, recorder *apistats.Recorder, apiKey string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(apicors.New(nil))
	r.Use(auth.APIKeyAuth(apiKey, logger))
	r.Use(apistats.Middleware(recorder, endpointName))

	r.Get("/", h.ListCollections)
	r.Get("/{collection}", h.Export)
	return r
}

// AdminRoutes mounts at /admin/api/export and reports export usage.
func AdminRoutes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/stats", h.Stats)
	return r
}

func endpointName(r *http.Request) string {
	if c := chi.URLParam(r, "collection"); c != "" {
		return "export:" + c
	}
	return "export"
}
