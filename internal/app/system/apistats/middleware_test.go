package apistats

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/stratasite/internal/app/store/apistats"
	"github.com/dalemusser/stratasite/internal/testutil"
	"go.uber.org/zap"
)

func TestMiddleware_RecordsStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := apistats.New(db)
	rec := NewRecorder(store, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	handler := func(status int) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if status != 0 {
				w.WriteHeader(status)
			}
			_, _ = w.Write([]byte("{}"))
		})
	}
	named := func(name string) func(*http.Request) string {
		return func(*http.Request) string { return name }
	}

	for _, tc := range []struct {
		name   string
		status int
	}{
		{"export.list", 0},
		{"export.list", http.StatusOK},
		{"export.list", http.StatusNotFound},
		{"export.get", http.StatusInternalServerError},
	} {
		h := Middleware(rec, named(tc.name))(handler(tc.status))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/export", nil))
	}
	rec.Wait()

	now := time.Now()
	got, err := store.GetSummary(ctx, now.Add(-2*time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("GetSummary() error = %v", err)
	}
	want := map[string][2]int64{"export.get": {1, 1}, "export.list": {3, 1}}
	if len(got) != len(want) {
		t.Fatalf("GetSummary() = %+v, want %d endpoints", got, len(want))
	}
	for _, s := range got {
		w := want[s.Endpoint]
		if s.Requests != w[0] || s.Errors != w[1] {
			t.Errorf("%s: requests/errors = %d/%d, want %d/%d", s.Endpoint, s.Requests, s.Errors, w[0], w[1])
		}
	}
}

func TestMiddleware_NilRecorder(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })
	h := Middleware(nil, func(*http.Request) string { t.Error("endpoint called with nil recorder"); return "" })(next)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Error("next handler not called")
	}
}
