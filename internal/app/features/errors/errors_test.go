package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/stratasite/internal/app/store/storeutil"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestHandler_RouterFallbacks(t *testing.T) {
	h := NewHandler()
	r := chi.NewRouter()
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)
	r.Get("/api/news", func(w http.ResponseWriter, r *http.Request) {})

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/api/nope", http.StatusNotFound},
		{http.MethodDelete, "/api/news", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

		if rec.Code != tt.want {
			t.Errorf("%s %s status = %d, want %d", tt.method, tt.path, rec.Code, tt.want)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("%s %s Content-Type = %q, want application/json", tt.method, tt.path, ct)
		}
	}
}

func TestErrorLogger_StoreError(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	errLog := NewErrorLogger(zap.New(core))

	tests := []struct {
		name    string
		err     error
		want    int
		wantLog bool
	}{
		{"missing", mongo.ErrNoDocuments, http.StatusNotFound, false},
		{"wrapped missing", fmt.Errorf("load: %w", mongo.ErrNoDocuments), http.StatusNotFound, false},
		{"duplicate slug", storeutil.ErrDuplicateSlug, http.StatusConflict, false},
		{"invalid slug", storeutil.ErrInvalidSlug, http.StatusBadRequest, false},
		{"other", stderrors.New("connection reset"), http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := logs.Len()
			rec := httptest.NewRecorder()
			errLog.StoreError(rec, httptest.NewRequest(http.MethodGet, "/admin/api/news", nil), "load failed", tt.err)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if logged := logs.Len() > before; logged != tt.wantLog {
				t.Errorf("logged = %v, want %v", logged, tt.wantLog)
			}
			if strings.Contains(rec.Body.String(), "connection reset") {
				t.Error("internal error details leaked to the client")
			}
		})
	}
}

func TestErrorLogger_Fields(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	errLog := NewErrorLogger(zap.New(core))

	var inner http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errLog.LogWithFields(r, "save failed", stderrors.New("boom"), zap.String("collection", "news"))
	})
	chimw.RequestID(inner).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/admin/api/news", nil))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["path"] != "/admin/api/news" || fields["method"] != "POST" || fields["collection"] != "news" {
		t.Errorf("fields = %v", fields)
	}
	if id, _ := fields["request_id"].(string); id == "" {
		t.Errorf("request_id missing from %v", fields)
	}

	// A nil logger is replaced with a no-op one.
	NewErrorLogger(nil).Log(httptest.NewRequest(http.MethodGet, "/", nil), "ignored", nil)
}
