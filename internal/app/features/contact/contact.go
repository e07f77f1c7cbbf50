// internal/app/features/contact/contact.go
package contact

import (
	"errors"
	"net/http"
	"time"

	errorsfeature "github.com/dalemusser/stratasite/internal/app/features/errors"
	contactstore "github.com/dalemusser/stratasite/internal/app/store/contact"
	settingsstore "github.com/dalemusser/stratasite/internal/app/store/settings"
	"github.com/dalemusser/stratasite/internal/app/system/formutil"
	"github.com/dalemusser/stratasite/internal/app/system/inputval"
	"github.com/dalemusser/stratasite/internal/app/system/jsonutil"
	"github.com/dalemusser/stratasite/internal/app/system/mailer"
	"github.com/dalemusser/stratasite/internal/app/system/network"
	"github.com/dalemusser/stratasite/internal/app/system/security"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Per-IP limit on stored submissions. The route-level rate limiter bounds
// request bursts; this bounds what one address can put in the inbox.
const (
	maxPerWindow = 5
	window       = time.Hour
)

// Config holds the contact handler settings that come from app config.
type Config struct {
	// Recipient receives notifications when the site settings have no
	// contact email. Blank disables notifications in that case.
	Recipient string
	// AdminURL is the base of admin links in notification emails.
	AdminURL string
}

// Handler serves the public contact form and the admin inbox.
type Handler struct {
	store    *contactstore.Store
	settings *settingsstore.Store
	monitor  *security.Monitor
	mail     mailer.Sender // nil disables notifications
	cfg      Config
	errLog   *errorsfeature.ErrorLogger
	logger   *zap.Logger
	now      func() time.Time
}

// NewHandler creates a contact Handler.
func NewHandler(db *mongo.Database, mon *security.Monitor, mail mailer.Sender, cfg Config, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		store:    contactstore.New(db),
		settings: settingsstore.New(db),
		monitor:  mon,
		mail:     mail,
		cfg:      cfg,
		errLog:   errLog,
		logger:   logger,
		now:      time.Now,
	}
}

// PublicRoutes mounts at /api/contact.
func PublicRoutes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/", h.submit)
	return r
}

// AdminRoutes mounts at /admin/api/contact.
func AdminRoutes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/{id}", h.show)
	r.Put("/{id}/read", h.setRead)
	r.Delete("/{id}", h.delete)
	return r
}

type submission struct {
	Name    string `json:"name" validate:"required,max=120" label:"Name"`
	Email   string `json:"email" validate:"required,email,max=254" label:"Email"`
	Subject string `json:"subject" validate:"max=200" label:"Subject"`
	Message string `json:"message" validate:"required,min=10,max=5000" label:"Message"`
	// Website is a honeypot. The form hides it; bots fill it in.
	Website string `json:"website"`
}

type receipt struct {
	Status string `json:"status"`
}

func accepted(w http.ResponseWriter) {
	jsonutil.JSON(w, http.StatusAccepted, receipt{Status: "received"})
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var in submission
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return
	}
	ctx := r.Context()
	ip := network.GetClientIP(r)

	// Bots get the normal response so they do not learn they were caught.
	if in.Website != "" {
		h.monitor.Record(ctx, security.RequestEvent(r, security.EventSpam, security.SeverityLow,
			"contact form honeypot filled", map[string]string{"email": in.Email}))
		accepted(w)
		return
	}

	in.Name = security.SanitizeText(in.Name)
	in.Subject = security.SanitizeText(in.Subject)
	in.Message = security.SanitizeText(in.Message)
	if res := inputval.Validate(in); res.HasErrors() {
		jsonutil.ValidationError(w, res.Fields())
		return
	}

	n, err := h.store.CountSince(ctx, ip, h.now().Add(-window))
	if err != nil {
		h.logger.Warn("contact throttle check failed", zap.String("ip", ip), zap.Error(err))
	} else if n >= maxPerWindow {
		h.monitor.Record(ctx, security.RequestEvent(r, security.EventSpam, security.SeverityMedium,
			"contact form flood", nil))
		jsonutil.Error(w, http.StatusTooManyRequests, "too many messages, please try again later")
		return
	}

	msg, err := h.store.Create(ctx, contactstore.CreateInput{
		Name:    in.Name,
		Email:   in.Email,
		Subject: in.Subject,
		Message: in.Message,
		IP:      ip,
	})
	if err != nil {
		h.errLog.StoreError(w, r, "failed to store contact message", err)
		return
	}
	h.logger.Info("contact message received",
		zap.String("message_id", msg.ID.Hex()),
		zap.String("ip", ip))

	h.notify(r, msg.ID.Hex(), in)
	accepted(w)
}

// notify emails the site owner. Delivery failures are logged and do not
// fail the submission.
func (h *Handler) notify(r *http.Request, id string, in submission) {
	if h.mail == nil || !h.mail.Enabled() {
		return
	}
	s, err := h.settings.Get(r.Context())
	if err != nil {
		h.logger.Warn("contact notify: failed to load settings", zap.Error(err))
		return
	}
	to := s.ContactEmail
	if to == "" {
		to = h.cfg.Recipient
	}
	if to == "" {
		return
	}

	var adminURL string
	if h.cfg.AdminURL != "" {
		adminURL = h.cfg.AdminURL + "/contact/" + id
	}
	subject, text, html := mailer.ContactNotificationEmail(mailer.ContactNotificationEmailData{
		SiteName: s.SiteName,
		Name:     in.Name,
		Email:    in.Email,
		Subject:  in.Subject,
		Message:  in.Message,
		IP:       network.GetClientIP(r),
		AdminURL: adminURL,
	})
	err = h.mail.Send(mailer.Email{
		To:       to,
		ReplyTo:  in.Email,
		Subject:  subject,
		TextBody: text,
		HTMLBody: html,
	})
	if err != nil && !errors.Is(err, mailer.ErrNotConfigured) {
		h.logger.Warn("contact notify: send failed", zap.String("message_id", id), zap.Error(err))
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	pg := formutil.Page(r)
	items, total, err := h.store.List(r.Context(), contactstore.ListFilter{
		UnreadOnly: formutil.Bool(r, "unread"),
		Page:       pg.Page,
		Limit:      pg.Limit,
	})
	if err != nil {
		h.errLog.StoreError(w, r, "failed to list contact messages", err)
		return
	}
	jsonutil.List(w, items, total, pg.Page, pg.Limit)
}

// show returns a message and marks it read.
func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.ID(w, r)
	if !ok {
		return
	}
	m, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.errLog.StoreError(w, r, "failed to load contact message", err)
		return
	}
	if !m.Read {
		if err := h.store.SetRead(r.Context(), id, true); err != nil {
			h.logger.Warn("failed to mark message read", zap.String("message_id", id.Hex()), zap.Error(err))
		} else {
			m.Read = true
		}
	}
	jsonutil.OK(w, m)
}

func (h *Handler) setRead(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.ID(w, r)
	if !ok {
		return
	}
	var in struct {
		Read bool `json:"read"`
	}
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return
	}
	if err := h.store.SetRead(r.Context(), id, in.Read); err != nil {
		h.errLog.StoreError(w, r, "failed to update contact message", err)
		return
	}
	jsonutil.NoContent(w)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.ID(w, r)
	if !ok {
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		h.errLog.StoreError(w, r, "failed to delete contact message", err)
		return
	}
	jsonutil.NoContent(w)
}
