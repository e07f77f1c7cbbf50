// internal/app/features/about/about.go
package about

import (
	"fmt"
	"net/http"

	errorsfeature "github.com/dalemusser/stratasite/internal/app/features/errors"
	aboutstore "github.com/dalemusser/stratasite/internal/app/store/about"
	"github.com/dalemusser/stratasite/internal/app/store/audit"
	"github.com/dalemusser/stratasite/internal/app/system/auditlog"
	"github.com/dalemusser/stratasite/internal/app/system/authz"
	"github.com/dalemusser/stratasite/internal/app/system/cache"
	"github.com/dalemusser/stratasite/internal/app/system/formutil"
	"github.com/dalemusser/stratasite/internal/app/system/inputval"
	"github.com/dalemusser/stratasite/internal/app/system/jsonutil"
	"github.com/dalemusser/stratasite/internal/app/system/security"
	"github.com/dalemusser/stratasite/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	maxTeam  = 50
	maxStats = 12
)

// Handler serves the About page and its stored versions.
type Handler struct {
	store       *aboutstore.Store
	cache       *cache.Content
	errLog      *errorsfeature.ErrorLogger
	auditLogger *auditlog.Logger
	logger      *zap.Logger
}

// NewHandler creates an about Handler. cc may be nil.
func NewHandler(db *mongo.Database, cc *cache.Content, errLog *errorsfeature.ErrorLogger, auditLogger *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		store:       aboutstore.New(db).WithLogger(logger),
		cache:       cc,
		errLog:      errLog,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// PublicRoutes mounts at /api/about. GET / returns the active version or
// 404 when none is active.
func PublicRoutes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.publicShow)
	return r
}

// AdminRoutes mounts at /admin/api/about.
func AdminRoutes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/activate", h.activate)
	return r
}

func (h *Handler) publicShow(w http.ResponseWriter, r *http.Request) {
	b, err := cache.Load(r.Context(), h.cache, cache.Key(cache.KindAbout, "active"), h.store.GetActive)
	if err != nil {
		h.errLog.StoreError(w, r, "failed to load about page", err)
		return
	}
	jsonutil.Raw(w, http.StatusOK, b)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.List(r.Context())
	if err != nil {
		h.errLog.StoreError(w, r, "failed to list about versions", err)
		return
	}
	if items == nil {
		items = []models.About{}
	}
	jsonutil.OK(w, items)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.ID(w, r)
	if !ok {
		return
	}
	a, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.errLog.StoreError(w, r, "failed to load about version", err)
		return
	}
	jsonutil.OK(w, a)
}

type aboutInput struct {
	Title    string              `json:"title" validate:"required,max=200" label:"Title"`
	Subtitle string              `json:"subtitle" validate:"max=300" label:"Subtitle"`
	Content  string              `json:"content" validate:"required,max=100000" label:"Content"`
	Mission  string              `json:"mission" validate:"max=2000" label:"Mission"`
	Vision   string              `json:"vision" validate:"max=2000" label:"Vision"`
	Values   []string            `json:"values"`
	Stats    []models.AboutStat  `json:"stats"`
	Team     []models.TeamMember `json:"team"`
	Image    models.MediaRef     `json:"image"`
	Active   bool                `json:"active"`
}

func (in aboutInput) storeInput() aboutstore.Input {
	return aboutstore.Input{
		Title:    in.Title,
		Subtitle: in.Subtitle,
		Content:  in.Content,
		Mission:  in.Mission,
		Vision:   in.Vision,
		Values:   in.Values,
		Stats:    in.Stats,
		Team:     in.Team,
		Image:    in.Image,
		Active:   in.Active,
	}
}

func decode(w http.ResponseWriter, r *http.Request) (aboutInput, bool) {
	var in aboutInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return in, false
	}
	in.Title = security.SanitizeText(in.Title)
	in.Subtitle = security.SanitizeText(in.Subtitle)
	in.Content = security.SanitizeRich(in.Content)
	in.Mission = security.SanitizeText(in.Mission)
	in.Vision = security.SanitizeText(in.Vision)
	in.Values = security.SanitizeStrings(in.Values)
	in.Image = security.SanitizeMediaRef(in.Image)
	for i := range in.Stats {
		in.Stats[i].Label = security.SanitizeText(in.Stats[i].Label)
		in.Stats[i].Value = security.SanitizeText(in.Stats[i].Value)
	}
	for i := range in.Team {
		m := &in.Team[i]
		m.Name = security.SanitizeText(m.Name)
		m.Position = security.SanitizeText(m.Position)
		m.Bio = security.SanitizeText(m.Bio)
		m.Photo = security.SanitizeMediaRef(m.Photo)
	}

	res := inputval.Validate(in)
	fields := res.Fields()
	if len(in.Stats) > maxStats {
		fields["stats"] = fmt.Sprintf("At most %d stats are allowed.", maxStats)
	}
	for i, s := range in.Stats {
		if s.Label == "" || s.Value == "" {
			fields[fmt.Sprintf("stats[%d]", i)] = "Stat needs a label and a value."
		}
	}
	if len(in.Team) > maxTeam {
		fields["team"] = fmt.Sprintf("At most %d team members are allowed.", maxTeam)
	}
	for i, m := range in.Team {
		if m.Name == "" {
			fields[fmt.Sprintf("team[%d].name", i)] = "Team member name is required."
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
	a, err := h.store.Create(r.Context(), in.storeInput())
	if err != nil {
		h.errLog.StoreError(w, r, "failed to create about version", err)
		return
	}
	h.changed(r, audit.EventContentCreated, a.ID.Hex(), a.Title)
	jsonutil.Created(w, a)
}

// update replaces the content of a version. The active flag in the body is
// ignored; use activate.
func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.ID(w, r)
	if !ok {
		return
	}
	in, ok := decode(w, r)
	if !ok {
		return
	}
	if err := h.store.Update(r.Context(), id, in.storeInput()); err != nil {
		h.errLog.StoreError(w, r, "failed to update about version", err)
		return
	}
	h.changed(r, audit.EventContentUpdated, id.Hex(), in.Title)
	h.show(w, r)
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.ID(w, r)
	if !ok {
		return
	}
	if err := h.store.Activate(r.Context(), id); err != nil {
		h.errLog.StoreError(w, r, "failed to activate about version", err)
		return
	}
	a, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.errLog.StoreError(w, r, "failed to load about version", err)
		return
	}
	h.changed(r, audit.EventContentPublished, id.Hex(), a.Title)
	jsonutil.OK(w, a)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.ID(w, r)
	if !ok {
		return
	}
	a, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.errLog.StoreError(w, r, "failed to load about version", err)
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		h.errLog.StoreError(w, r, "failed to delete about version", err)
		return
	}
	if a.Active {
		h.logger.Warn("active about version deleted; public about page is now empty",
			zap.String("about_id", id.Hex()))
	}
	h.changed(r, audit.EventContentDeleted, id.Hex(), a.Title)
	jsonutil.NoContent(w)
}

func (h *Handler) changed(r *http.Request, event, id, title string) {
	h.auditLogger.Content(r.Context(), r, authz.ActorID(r), event, cache.KindAbout, id, title)
	h.cache.Invalidate(r.Context(), cache.KindAbout)
}
