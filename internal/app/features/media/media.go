// internal/app/features/media/media.go
package media

import (
	"errors"
	"net/http"

	errorsfeature "github.com/dalemusser/stratasite/internal/app/features/errors"
	"github.com/dalemusser/stratasite/internal/app/store/audit"
	mediastore "github.com/dalemusser/stratasite/internal/app/store/media"
	"github.com/dalemusser/stratasite/internal/app/system/auditlog"
	"github.com/dalemusser/stratasite/internal/app/system/authz"
	"github.com/dalemusser/stratasite/internal/app/system/formutil"
	"github.com/dalemusser/stratasite/internal/app/system/inputval"
	"github.com/dalemusser/stratasite/internal/app/system/jsonutil"
	"github.com/dalemusser/stratasite/internal/app/system/mediaupload"
	"github.com/dalemusser/stratasite/internal/app/system/security"
	"github.com/dalemusser/stratasite/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// kind is the audit content kind for media records.
const kind = "media"

// maxMemory is how much of a multipart body is held in memory before
// spilling to temp files.
const maxMemory = 32 << 20

// Handler serves the media library.
type Handler struct {
	store       *mediastore.Store
	fileStorage storage.Store
	monitor     *security.Monitor
	errLog      *errorsfeature.ErrorLogger
	auditLogger *auditlog.Logger
	logger      *zap.Logger
}

// NewHandler creates a media Handler.
func NewHandler(db *mongo.Database, fileStorage storage.Store, mon *security.Monitor, errLog *errorsfeature.ErrorLogger, auditLogger *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		store:       mediastore.New(db),
		fileStorage: fileStorage,
		monitor:     mon,
		errLog:      errLog,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// Routes mounts at /admin/api/media.
//
//   - GET /        list; ?folder=images|models, ?type=<content-type prefix>, ?q=
//   - POST /       upload (multipart field "file")
//   - GET /{id}    one record
//   - PUT /{id}    rename or set alt text
//   - DELETE /{id} remove the record and its stored object
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/", h.upload)
	r.Get("/{id}", h.show)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	return r
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	pg := formutil.Page(r)
	folder := query.Get(r, "folder")
	if folder != "" && folder != models.MediaFolderImages && folder != models.MediaFolderModels {
		jsonutil.BadRequest(w, "invalid folder")
		return
	}
	items, total, err := h.store.List(r.Context(), mediastore.ListFilter{
		Folder:      folder,
		ContentType: query.Get(r, "type"),
		Search:      query.Get(r, "q"),
		Page:        pg.Page,
		Limit:       pg.Limit,
	})
	if err != nil {
		h.errLog.StoreError(w, r, "failed to list media", err)
		return
	}
	jsonutil.List(w, items, total, pg.Page, pg.Limit)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.ID(w, r)
	if !ok {
		return
	}
	m, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.errLog.StoreError(w, r, "failed to load media", err)
		return
	}
	jsonutil.OK(w, m)
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	if h.fileStorage == nil {
		jsonutil.ServiceUnavailable(w, "file storage is not configured")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, mediaupload.MaxModelSize+1<<20)
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			jsonutil.Error(w, http.StatusRequestEntityTooLarge, "upload exceeds 50 MiB")
			return
		}
		jsonutil.BadRequest(w, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		jsonutil.ValidationError(w, map[string]string{"file": "Please select a file to upload."})
		return
	}
	fh := files[0]

	ctx := r.Context()
	ref, k, err := mediaupload.Save(ctx, h.fileStorage, fh)
	if err != nil {
		h.uploadError(w, r, fh.Filename, err)
		return
	}
	ref.Alt = security.SanitizeText(r.FormValue("alt"))
	ref.Name = security.SanitizeText(ref.Name)
	if ref.Name == "" {
		ref.Name = ref.Path
	}

	m, err := h.store.Create(ctx, mediastore.CreateInput{
		Ref:         ref,
		Folder:      k.Folder,
		CreatedByID: authz.ActorID(r),
	})
	if err != nil {
		// Clean up the stored object on DB error.
		_ = h.fileStorage.Delete(ctx, ref.Path)
		h.errLog.StoreError(w, r, "failed to record upload", err)
		return
	}

	h.logger.Info("media uploaded",
		zap.String("media_id", m.ID.Hex()),
		zap.String("path", m.Path),
		zap.String("content_type", m.ContentType),
		zap.Int64("size", m.Size))
	h.auditLogger.Content(ctx, r, authz.ActorID(r), audit.EventMediaUploaded, kind, m.ID.Hex(), m.Name)
	jsonutil.Created(w, m)
}

func (h *Handler) uploadError(w http.ResponseWriter, r *http.Request, filename string, err error) {
	switch {
	case errors.Is(err, mediaupload.ErrSuspicious):
		h.monitor.Record(r.Context(), security.RequestEvent(r, security.EventSuspiciousUpload, security.SeverityHigh,
			"upload content does not match its type", map[string]string{"filename": filename}))
		jsonutil.ValidationError(w, map[string]string{"file": "File content does not match its type."})
	case errors.Is(err, mediaupload.ErrUnsupportedType):
		jsonutil.Error(w, http.StatusUnsupportedMediaType,
			"allowed types: JPEG, PNG, GIF, WebP, SVG, GLB, glTF, USDZ")
	case errors.Is(err, mediaupload.ErrTooLarge):
		jsonutil.Error(w, http.StatusRequestEntityTooLarge, "images are limited to 10 MiB and models to 50 MiB")
	case errors.Is(err, mediaupload.ErrEmpty):
		jsonutil.ValidationError(w, map[string]string{"file": "File is empty."})
	default:
		h.errLog.Log(r, "failed to upload media", err)
		jsonutil.InternalError(w, "failed to upload file")
	}
}

type updateInput struct {
	Name string `json:"name" validate:"required,max=255" label:"Name"`
	Alt  string `json:"alt" validate:"max=500" label:"Alt text"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.ID(w, r)
	if !ok {
		return
	}
	var in updateInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return
	}
	in.Name = security.SanitizeText(in.Name)
	in.Alt = security.SanitizeText(in.Alt)
	if res := inputval.Validate(in); res.HasErrors() {
		jsonutil.ValidationError(w, res.Fields())
		return
	}
	if err := h.store.Update(r.Context(), id, mediastore.UpdateInput{Name: &in.Name, Alt: &in.Alt}); err != nil {
		h.errLog.StoreError(w, r, "failed to update media", err)
		return
	}
	h.show(w, r)
}

// delete removes the record and then the object. A missing object is
// logged; the record is removed either way.
func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := formutil.ID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	m, err := h.store.GetByID(ctx, id)
	if err != nil {
		h.errLog.StoreError(w, r, "failed to load media", err)
		return
	}
	if err := h.store.Delete(ctx, id); err != nil {
		h.errLog.StoreError(w, r, "failed to delete media", err)
		return
	}
	if h.fileStorage != nil {
		if err := h.fileStorage.Delete(ctx, m.Path); err != nil {
			h.logger.Warn("failed to delete media object",
				zap.String("media_id", id.Hex()),
				zap.String("path", m.Path),
				zap.Error(err))
		}
	}
	h.auditLogger.Content(ctx, r, authz.ActorID(r), audit.EventMediaDeleted, kind, id.Hex(), m.Name)
	jsonutil.NoContent(w)
}
