// internal/app/features/settings/settings.go
package settings

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	errorsfeature "github.com/dalemusser/stratasite/internal/app/features/errors"
	settingsstore "github.com/dalemusser/stratasite/internal/app/store/settings"
	"github.com/dalemusser/stratasite/internal/app/system/auditlog"
	"github.com/dalemusser/stratasite/internal/app/system/authz"
	"github.com/dalemusser/stratasite/internal/app/system/cache"
	"github.com/dalemusser/stratasite/internal/app/system/inputval"
	"github.com/dalemusser/stratasite/internal/app/system/jsonutil"
	"github.com/dalemusser/stratasite/internal/app/system/mediaupload"
	"github.com/dalemusser/stratasite/internal/app/system/security"
	"github.com/dalemusser/stratasite/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// MaxFooterLength is the maximum allowed length for footer HTML (10KB).
const MaxFooterLength = 10000

// maxSocialLinks caps the footer icon row.
const maxSocialLinks = 12

var socialNetworks = map[string]bool{
	"facebook":  true,
	"instagram": true,
	"linkedin":  true,
	"x":         true,
	"youtube":   true,
	"github":    true,
	"tiktok":    true,
	"behance":   true,
	"dribbble":  true,
}

// Handler provides settings handlers.
type Handler struct {
	settingsStore *settingsstore.Store
	fileStorage   storage.Store
	cache         *cache.Content
	errLog        *errorsfeature.ErrorLogger
	auditLogger   *auditlog.Logger
	logger        *zap.Logger
}

// NewHandler creates a new settings Handler. fileStorage may be nil, in
// which case logo uploads return 503.
func NewHandler(
	db *mongo.Database,
	fileStorage storage.Store,
	cc *cache.Content,
	errLog *errorsfeature.ErrorLogger,
	auditLogger *auditlog.Logger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		settingsStore: settingsstore.New(db),
		fileStorage:   fileStorage,
		cache:         cc,
		errLog:        errLog,
		auditLogger:   auditLogger,
		logger:        logger,
	}
}

// PublicSettings is the subset of site settings visitors may read.
type PublicSettings struct {
	SiteName    string              `json:"site_name"`
	Tagline     string              `json:"tagline,omitempty"`
	Logo        models.MediaRef     `json:"logo"`
	SocialLinks []models.SocialLink `json:"social_links"`
	FooterHTML  string              `json:"footer_html,omitempty"`
}

func publicView(s *models.SiteSettings) PublicSettings {
	links := s.SocialLinks
	if links == nil {
		links = []models.SocialLink{}
	}
	return PublicSettings{
		SiteName:    s.SiteName,
		Tagline:     s.Tagline,
		Logo:        s.Logo,
		SocialLinks: links,
		FooterHTML:  s.FooterHTML,
	}
}

// PublicRoutes mounts at /api/settings.
func PublicRoutes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.publicShow)
	return r
}

// AdminRoutes mounts at /admin/api/settings.
func AdminRoutes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.show)
	r.Put("/", h.update)
	r.Post("/logo", h.uploadLogo)
	r.Delete("/logo", h.removeLogo)
	return r
}

func (h *Handler) publicShow(w http.ResponseWriter, r *http.Request) {
	b, err := cache.Load(r.Context(), h.cache, cache.Key(cache.KindSettings, "public"),
		func(ctx context.Context) (PublicSettings, error) {
			s, err := h.settingsStore.Get(ctx)
			if err != nil {
				return PublicSettings{}, err
			}
			return publicView(s), nil
		})
	if err != nil {
		h.errLog.StoreError(w, r, "failed to load settings", err)
		return
	}
	jsonutil.Raw(w, http.StatusOK, b)
}

// show returns the full settings document.
func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	s, err := h.settingsStore.Get(r.Context())
	if err != nil {
		h.errLog.StoreError(w, r, "failed to get settings", err)
		return
	}
	jsonutil.OK(w, s)
}

type settingsInput struct {
	SiteName     string              `json:"site_name" validate:"required,max=120" label:"Site name"`
	Tagline      string              `json:"tagline" validate:"max=300" label:"Tagline"`
	ContactEmail string              `json:"contact_email" validate:"max=254" label:"Contact email"`
	SocialLinks  []models.SocialLink `json:"social_links"`
	FooterHTML   string              `json:"footer_html" label:"Footer"`
}

// update saves everything except the logo, which has its own endpoints.
func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var in settingsInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return
	}
	in.SiteName = security.SanitizeText(in.SiteName)
	in.Tagline = security.SanitizeText(in.Tagline)
	in.ContactEmail = strings.ToLower(strings.TrimSpace(in.ContactEmail))

	res := inputval.Validate(in)
	fields := res.Fields()
	if in.ContactEmail != "" && !inputval.IsValidEmail(in.ContactEmail) {
		fields["contact_email"] = "Contact email is not a valid email address."
	}
	if len(in.FooterHTML) > MaxFooterLength {
		fields["footer_html"] = "Footer HTML is too long. Maximum length is 10,000 characters."
	}
	if len(in.SocialLinks) > maxSocialLinks {
		fields["social_links"] = fmt.Sprintf("At most %d social links are allowed.", maxSocialLinks)
	}
	links := make([]models.SocialLink, 0, len(in.SocialLinks))
	for i, l := range in.SocialLinks {
		l.Network = strings.ToLower(strings.TrimSpace(l.Network))
		l.URL = strings.TrimSpace(l.URL)
		if !socialNetworks[l.Network] {
			fields[fmt.Sprintf("social_links[%d].network", i)] = "Unknown network."
		}
		if !inputval.IsValidHTTPURL(l.URL) {
			fields[fmt.Sprintf("social_links[%d].url", i)] = "Must be an http or https URL."
		}
		links = append(links, l)
	}
	if len(fields) > 0 {
		jsonutil.ValidationError(w, fields)
		return
	}

	ctx := r.Context()
	current, err := h.settingsStore.Get(ctx)
	if err != nil {
		h.errLog.StoreError(w, r, "failed to get settings", err)
		return
	}
	name := authz.ActorName(r)
	next := models.SiteSettings{
		SiteName:      in.SiteName,
		Tagline:       in.Tagline,
		Logo:          current.Logo,
		ContactEmail:  in.ContactEmail,
		SocialLinks:   links,
		FooterHTML:    security.SanitizeRich(in.FooterHTML),
		UpdatedByID:   authz.ActorPtr(r),
		UpdatedByName: name,
	}
	if err := h.settingsStore.Save(ctx, next); err != nil {
		h.errLog.StoreError(w, r, "failed to update settings", err)
		return
	}
	h.changed(r, changedFields(current, &next))
	h.show(w, r)
}

// uploadLogo replaces the logo with an image from the multipart field
// "file". The previous object is removed from storage.
func (h *Handler) uploadLogo(w http.ResponseWriter, r *http.Request) {
	if h.fileStorage == nil {
		jsonutil.ServiceUnavailable(w, "file storage is not configured")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, mediaupload.MaxImageSize+1<<20)
	if err := r.ParseMultipartForm(mediaupload.MaxImageSize); err != nil {
		jsonutil.BadRequest(w, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()
	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		jsonutil.ValidationError(w, map[string]string{"file": "Please select a file to upload."})
		return
	}

	ctx := r.Context()
	ref, kind, err := mediaupload.Save(ctx, h.fileStorage, files[0])
	if err == nil && kind.Folder != models.MediaFolderImages {
		_ = h.fileStorage.Delete(ctx, ref.Path)
		err = mediaupload.ErrUnsupportedType
	}
	if err != nil {
		h.uploadError(w, r, err)
		return
	}

	current, err := h.settingsStore.Get(ctx)
	if err != nil {
		_ = h.fileStorage.Delete(ctx, ref.Path)
		h.errLog.StoreError(w, r, "failed to get settings", err)
		return
	}
	if err := h.settingsStore.SetLogo(ctx, ref); err != nil {
		_ = h.fileStorage.Delete(ctx, ref.Path)
		h.errLog.StoreError(w, r, "failed to save logo", err)
		return
	}
	h.deleteObject(r, current.Logo)
	h.changed(r, "logo")
	jsonutil.OK(w, ref)
}

func (h *Handler) removeLogo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	current, err := h.settingsStore.Get(ctx)
	if err != nil {
		h.errLog.StoreError(w, r, "failed to get settings", err)
		return
	}
	if !current.HasLogo() {
		jsonutil.NoContent(w)
		return
	}
	if err := h.settingsStore.SetLogo(ctx, models.MediaRef{}); err != nil {
		h.errLog.StoreError(w, r, "failed to remove logo", err)
		return
	}
	h.deleteObject(r, current.Logo)
	h.changed(r, "logo")
	jsonutil.NoContent(w)
}

func (h *Handler) uploadError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, mediaupload.ErrTooLarge):
		jsonutil.Error(w, http.StatusRequestEntityTooLarge, "logo exceeds 10 MiB")
	case errors.Is(err, mediaupload.ErrUnsupportedType),
		errors.Is(err, mediaupload.ErrSuspicious),
		errors.Is(err, mediaupload.ErrEmpty):
		jsonutil.ValidationError(w, map[string]string{"file": "Logo must be a JPEG, PNG, GIF, WebP or SVG image."})
	default:
		h.errLog.Log(r, "logo upload failed", err)
		jsonutil.InternalError(w, "failed to upload logo")
	}
}

// deleteObject removes a replaced logo from storage. Failures are logged.
func (h *Handler) deleteObject(r *http.Request, ref models.MediaRef) {
	if h.fileStorage == nil || ref.Path == "" {
		return
	}
	if err := h.fileStorage.Delete(r.Context(), ref.Path); err != nil {
		h.logger.Warn("failed to delete old logo", zap.String("path", ref.Path), zap.Error(err))
	}
}

func (h *Handler) changed(r *http.Request, fields string) {
	h.auditLogger.SettingsUpdated(r.Context(), r, authz.ActorID(r), fields)
	h.cache.Invalidate(r.Context(), cache.KindSettings)
}

// changedFields lists the settings that differ, for the audit record.
func changedFields(a, b *models.SiteSettings) string {
	var out []string
	if a.SiteName != b.SiteName {
		out = append(out, "site_name")
	}
	if a.Tagline != b.Tagline {
		out = append(out, "tagline")
	}
	if a.ContactEmail != b.ContactEmail {
		out = append(out, "contact_email")
	}
	if fmt.Sprint(a.SocialLinks) != fmt.Sprint(b.SocialLinks) {
		out = append(out, "social_links")
	}
	if a.FooterHTML != b.FooterHTML {
		out = append(out, "footer_html")
	}
	return strings.Join(out, ",")
}
