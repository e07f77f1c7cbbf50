// Package apistats records request counts and latencies for the
// API-key endpoints.
package apistats

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dalemusser/stratasite/internal/app/store/apistats"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const recordTimeout = 5 * time.Second

// Recorder saves samples off the request path. Wait drains it on shutdown.
type Recorder struct {
	store   *apistats.Store
	logger  *zap.Logger
	pending sync.WaitGroup
	now     func() time.Time
}

func NewRecorder(store *apistats.Store, logger *zap.Logger) *Recorder {
	return &Recorder{store: store, logger: logger, now: time.Now}
}

// Record saves one sample in the background.
func (r *Recorder) Record(endpoint string, took time.Duration, failed bool) {
	at := r.now()
	r.pending.Add(1)
	go func() {
		defer r.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := r.store.Record(ctx, endpoint, at, took.Milliseconds(), failed); err != nil {
			r.logger.Warn("api stats not recorded", zap.String("endpoint", endpoint), zap.Error(err))
		}
	}()
}

// Wait blocks until every pending sample is written.
func (r *Recorder) Wait() {
	r.pending.Wait()
}

// Middleware records each request under endpoint(r). endpoint runs after
// the handler so chi route parameters are resolved. A nil recorder
// disables recording. Responses with status 400 and above count as errors.
func Middleware(recorder *Recorder, endpoint func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if recorder == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			recorder.Record(endpoint(r), time.Since(start), status >= http.StatusBadRequest)
		})
	}
}
