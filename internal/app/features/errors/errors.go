// Package errors logs handler failures and maps store errors to JSON
// responses.
package errors

import (
	stderrors "errors"
	"net/http"

	"github.com/dalemusser/stratasite/internal/app/store/storeutil"
	"github.com/dalemusser/stratasite/internal/app/system/jsonutil"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ErrorLogger logs unexpected errors with the request that hit them.
type ErrorLogger struct {
	logger *zap.Logger
}

func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorLogger{logger: logger}
}

func (e *ErrorLogger) Log(r *http.Request, msg string, err error) {
	e.LogWithFields(r, msg, err)
}

// LogWithFields is Log plus caller-supplied fields.
func (e *ErrorLogger) LogWithFields(r *http.Request, msg string, err error, extra ...zap.Field) {
	fields := make([]zap.Field, 0, 4+len(extra))
	fields = append(fields,
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)
	if id := chimw.GetReqID(r.Context()); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	e.logger.Error(msg, append(fields, extra...)...)
}

// StoreError answers for an error returned by a store:
//
//	mongo.ErrNoDocuments       404
//	storeutil.ErrDuplicateSlug 409
//	storeutil.ErrInvalidSlug   400 with a "slug" field
//
// Anything else is logged under msg and written as a bare 500.
func (e *ErrorLogger) StoreError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case stderrors.Is(err, mongo.ErrNoDocuments):
		jsonutil.NotFound(w, "not found")
	case stderrors.Is(err, storeutil.ErrDuplicateSlug):
		jsonutil.Conflict(w, err.Error())
	case stderrors.Is(err, storeutil.ErrInvalidSlug):
		jsonutil.ValidationError(w, map[string]string{"slug": err.Error()})
	default:
		e.Log(r, msg, err)
		jsonutil.InternalError(w, "internal error")
	}
}

// Handler supplies the router's fallback handlers so unmatched routes get
// JSON rather than chi's plain text.
type Handler struct{}

func NewHandler() *Handler { return &Handler{} }

func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	jsonutil.NotFound(w, "not found")
}

func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	jsonutil.Error(w, http.StatusMethodNotAllowed, "method not allowed")
}
