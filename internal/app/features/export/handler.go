// Package export serves whole content collections to API key holders for
// backups and headless front ends.
package export

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"time"

	errorsfeature "github.com/dalemusser/stratasite/internal/app/features/errors"
	apistatsstore "github.com/dalemusser/stratasite/internal/app/store/apistats"
	"github.com/dalemusser/stratasite/internal/app/system/jsonutil"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// collections maps the public name to the MongoDB collection. Users, audit
// records and sessions are never exported.
var collections = map[string]string{
	"portfolio":            "portfolio_items",
	"portfolio-categories": "portfolio_categories",
	"products":             "products",
	"services":             "services",
	"sliders":              "sliders",
	"news":                 "news",
	"models":               "models3d",
	"about":                "about",
	"media":                "media",
	"theme":                "theme",
	"settings":             "site_settings",
}

// Names returns the exportable collection names, sorted.
func Names() []string {
	out := make([]string, 0, len(collections))
	for k := range collections {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// statsWindow is how far back Stats looks by default.
const statsWindow = 7 * 24 * time.Hour

// Handler serves the export API.
type Handler struct {
	db     *mongo.Database
	stats  *apistatsstore.Store
	errLog *errorsfeature.ErrorLogger
	logger *zap.Logger
}

func NewHandler(db *mongo.Database, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{db: db, stats: apistatsstore.New(db), errLog: errLog, logger: logger}
}

// ListCollections writes the exportable collection names.
func (h *Handler) ListCollections(w http.ResponseWriter, r *http.Request) {
	jsonutil.OK(w, map[string][]string{"collections": Names()})
}

// Export streams {"collection": name, "exported_at": t, "items": [...],
// "complete": bool}. Documents are written one at a time so large
// collections are never held in memory. When the cursor fails partway the
// body still parses, with complete=false and an "error" field.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "collection")
	coll, ok := collections[name]
	if !ok {
		jsonutil.NotFound(w, "unknown collection")
		return
	}

	ctx := r.Context()
	cur, err := h.db.Collection(coll).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		h.errLog.Log(r, "export query failed", err)
		jsonutil.InternalError(w, "export failed")
		return
	}
	defer cur.Close(ctx)

	w.Header().Set("Content-Type", "application/json")
	if query.Get(r, "download") == "1" {
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`.json"`)
	}

	head, _ := json.Marshal(map[string]any{"collection": name, "exported_at": time.Now().UTC()})
	// Reopen the header object so items can be appended.
	_, _ = w.Write(head[:len(head)-1])
	_, _ = w.Write([]byte(`,"items":[`))

	n := 0
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			h.logger.Warn("export: skipping undecodable document", zap.String("collection", coll), zap.Error(err))
			continue
		}
		b, err := json.Marshal(doc)
		if err != nil {
			h.logger.Warn("export: skipping unencodable document", zap.String("collection", coll), zap.Error(err))
			continue
		}
		if n > 0 {
			_, _ = w.Write([]byte{','})
		}
		_, _ = w.Write(b)
		n++
	}

	// The status line is already sent, so a failed cursor is reported in
	// the trailer. Consumers must check "complete" before trusting items.
	if err := cur.Err(); err != nil {
		_, _ = w.Write([]byte(`],"complete":false,"error":"export interrupted"}`))
		h.logger.Error("export: cursor failed mid-stream", zap.String("collection", coll), zap.Int("documents", n), zap.Error(err))
		return
	}
	_, _ = w.Write([]byte(`],"complete":true}`))
	h.logger.Info("collection exported", zap.String("collection", name), zap.Int("documents", n))
}

// Stats reports export usage per collection. ?days= widens the window.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	window := statsWindow
	if v := query.Get(r, "days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days < 1 || days > 366 {
			jsonutil.BadRequest(w, "invalid days")
			return
		}
		window = time.Duration(days) * 24 * time.Hour
	}
	end := time.Now()
	sum, err := h.stats.GetSummary(r.Context(), end.Add(-window), end)
	if err != nil {
		h.errLog.Log(r, "failed to load export stats", err)
		jsonutil.InternalError(w, "failed to load stats")
		return
	}
	jsonutil.OK(w, sum)
}
