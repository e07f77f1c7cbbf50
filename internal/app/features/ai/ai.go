// internal/app/features/ai/ai.go
package ai

import (
	"errors"
	"net/http"

	errorsfeature "github.com/dalemusser/stratasite/internal/app/features/errors"
	"github.com/dalemusser/stratasite/internal/app/system/aiwriter"
	"github.com/dalemusser/stratasite/internal/app/system/inputval"
	"github.com/dalemusser/stratasite/internal/app/system/jsonutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler exposes the drafting assistant to editors.
type Handler struct {
	writer *aiwriter.Writer
	errLog *errorsfeature.ErrorLogger
	logger *zap.Logger
}

// NewHandler creates an ai Handler. A nil or disabled writer makes every
// route answer 503.
func NewHandler(w *aiwriter.Writer, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{writer: w, errLog: errLog, logger: logger}
}

// Routes mounts at /admin/api/ai.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(h.requireEnabled)
	r.Get("/options", h.options)
	r.Post("/draft", h.draft)
	r.Post("/alt-text", h.altText)
	return r
}

func (h *Handler) requireEnabled(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.writer.Enabled() {
			jsonutil.ServiceUnavailable(w, "AI drafting is not configured")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) options(w http.ResponseWriter, r *http.Request) {
	jsonutil.OK(w, map[string][]string{
		"kinds": aiwriter.Kinds,
		"tones": aiwriter.Tones,
	})
}

func (h *Handler) draft(w http.ResponseWriter, r *http.Request) {
	var req aiwriter.DraftRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return
	}
	res := inputval.Validate(req)
	fields := res.Fields()
	if req.Kind != "" && !aiwriter.ValidKind(req.Kind) {
		fields["kind"] = "Kind is not supported."
	}
	if req.Tone != "" && !aiwriter.ValidTone(req.Tone) {
		fields["tone"] = "Tone is not supported."
	}
	if req.Words < 0 {
		fields["words"] = "Length must be positive."
	}
	if len(fields) > 0 {
		jsonutil.ValidationError(w, fields)
		return
	}

	d, err := h.writer.Draft(r.Context(), req)
	if err != nil {
		h.generateError(w, r, err)
		return
	}
	jsonutil.OK(w, d)
}

type altTextInput struct {
	Description string `json:"description" validate:"required,max=1000" label:"Description"`
}

func (h *Handler) altText(w http.ResponseWriter, r *http.Request) {
	var in altTextInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		jsonutil.ValidationError(w, res.Fields())
		return
	}
	alt, err := h.writer.AltText(r.Context(), in.Description)
	if err != nil {
		h.generateError(w, r, err)
		return
	}
	jsonutil.OK(w, map[string]string{"alt": alt})
}

func (h *Handler) generateError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, aiwriter.ErrDisabled):
		jsonutil.ServiceUnavailable(w, "AI drafting is not configured")
	case errors.Is(err, aiwriter.ErrEmpty):
		jsonutil.Error(w, http.StatusBadGateway, "the model returned no usable text")
	default:
		h.errLog.Log(r, "ai generation failed", err)
		jsonutil.Error(w, http.StatusBadGateway, "AI service request failed")
	}
}
