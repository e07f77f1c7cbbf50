// internal/app/features/auditlog/auditlog.go
package auditlog

import (
	"net/http"
	"slices"
	"time"

	errorsfeature "github.com/dalemusser/stratasite/internal/app/features/errors"
	"github.com/dalemusser/stratasite/internal/app/store/audit"
	userstore "github.com/dalemusser/stratasite/internal/app/store/users"
	"github.com/dalemusser/stratasite/internal/app/system/formutil"
	"github.com/dalemusser/stratasite/internal/app/system/jsonutil"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler provides the audit log query API.
type Handler struct {
	auditStore *audit.Store
	userStore  *userstore.Store
	errLog     *errorsfeature.ErrorLogger
	logger     *zap.Logger
}

// NewHandler creates a new audit log Handler.
func NewHandler(db *mongo.Database, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		auditStore: audit.New(db),
		userStore:  userstore.New(db),
		errLog:     errLog,
		logger:     logger,
	}
}

// Item is one audit event with the actor's name resolved.
type Item struct {
	audit.Event
	ActorName string `json:"actor_name,omitempty"`
}

// Routes mounts at /admin/api/audit.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/categories", h.listCategories)
	return r
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	jsonutil.OK(w, audit.Categories)
}

// list queries the audit log.
//
//	?category=auth|admin|security  ?event_type=  ?user_id=  ?actor_id=
//	?start_date=2006-01-02  ?end_date=2006-01-02  ?tz=America/Chicago
//	?page=  ?limit=
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	pg := formutil.Page(r)
	f := audit.Filter{
		Category:  query.Get(r, "category"),
		EventType: query.Get(r, "event_type"),
		Limit:     pg.Limit,
		Offset:    (pg.Page - 1) * pg.Limit,
	}
	if f.Category != "" && !validCategory(f.Category) {
		jsonutil.BadRequest(w, "invalid category")
		return
	}

	var err error
	if f.UserID, err = formutil.OptionalID(r, "user_id"); err != nil {
		jsonutil.BadRequest(w, "invalid user_id")
		return
	}
	if f.ActorID, err = formutil.OptionalID(r, "actor_id"); err != nil {
		jsonutil.BadRequest(w, "invalid actor_id")
		return
	}

	// Dates are read in the caller's time zone, falling back to UTC.
	loc := time.UTC
	if tz := query.Get(r, "tz"); tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}
	if v := query.Get(r, "start_date"); v != "" {
		t, err := time.ParseInLocation(time.DateOnly, v, loc)
		if err != nil {
			jsonutil.BadRequest(w, "start_date must be YYYY-MM-DD")
			return
		}
		f.Since = &t
	}
	if v := query.Get(r, "end_date"); v != "" {
		t, err := time.ParseInLocation(time.DateOnly, v, loc)
		if err != nil {
			jsonutil.BadRequest(w, "end_date must be YYYY-MM-DD")
			return
		}
		end := t.Add(24*time.Hour - time.Nanosecond)
		f.Until = &end
	}

	events, total, err := h.auditStore.List(r.Context(), f)
	if err != nil {
		h.errLog.Log(r, "failed to query audit events", err)
		jsonutil.InternalError(w, "failed to query audit log")
		return
	}

	names := h.actorNames(r, events)
	items := make([]Item, 0, len(events))
	for _, e := range events {
		it := Item{Event: e}
		switch {
		case e.ActorID != nil:
			it.ActorName = names[*e.ActorID]
		case e.UserID != nil && e.Category == audit.CategoryAuth:
			// the user acted on their own session
			it.ActorName = names[*e.UserID]
		}
		items = append(items, it)
	}
	jsonutil.List(w, items, total, pg.Page, pg.Limit)
}

// actorNames resolves the users referenced by events. Deleted users are
// left out so no raw id is shown as a name.
func (h *Handler) actorNames(r *http.Request, events []audit.Event) map[primitive.ObjectID]string {
	seen := map[primitive.ObjectID]struct{}{}
	var ids []primitive.ObjectID
	add := func(id *primitive.ObjectID) {
		if id == nil {
			return
		}
		if _, ok := seen[*id]; !ok {
			seen[*id] = struct{}{}
			ids = append(ids, *id)
		}
	}
	for _, e := range events {
		add(e.ActorID)
		add(e.UserID)
	}

	names := make(map[primitive.ObjectID]string, len(ids))
	users, err := h.userStore.GetByIDs(r.Context(), ids)
	if err != nil {
		h.logger.Warn("failed to resolve audit actor names", zap.Error(err))
		return names
	}
	for _, u := range users {
		names[u.ID] = u.FullName
	}
	return names
}

func validCategory(c string) bool {
	return slices.Contains(audit.Categories, c)
}
