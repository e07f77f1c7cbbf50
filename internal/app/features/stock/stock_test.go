package stock

import (
	"net/http"
	"net/http/httptest"
	"testing"

	errorsfeature "github.com/dalemusser/stratasite/internal/app/features/errors"
	"github.com/dalemusser/stratasite/internal/app/system/pexels"
	"github.com/dalemusser/stratasite/internal/testutil"
	"go.uber.org/zap"
)

func newRouter(c *pexels.Client) http.Handler {
	return Routes(NewHandler(c, errorsfeature.NewErrorLogger(zap.NewNop()), zap.NewNop()))
}

func TestSearch(t *testing.T) {
	var gotQuery, gotAuth, gotPerPage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		gotPerPage = r.URL.Query().Get("per_page")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"page":2,"per_page":5,"total_results":1,"photos":[{"id":7,"photographer":"Ana","alt":"desk","src":{"medium":"https://img.test/7.jpg"}}]}`))
	}))
	defer srv.Close()

	router := newRouter(pexels.New("key-123").WithBaseURL(srv.URL))
	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/search?q=office+desk&page=2&per_page=5", testutil.EditorUser()))
	rec.AssertStatus(t, http.StatusOK)

	var res pexels.SearchResult
	rec.DecodeJSON(t, &res)
	if len(res.Photos) != 1 || res.Photos[0].Src.Medium != "https://img.test/7.jpg" {
		t.Errorf("photos = %+v", res.Photos)
	}
	if gotQuery != "office desk" || gotAuth != "key-123" || gotPerPage != "5" {
		t.Errorf("upstream query=%q auth=%q per_page=%q", gotQuery, gotAuth, gotPerPage)
	}
}

func TestSearch_Errors(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer failing.Close()

	tests := []struct {
		name   string
		client *pexels.Client
		path   string
		want   int
	}{
		{"disabled", pexels.New(""), "/search?q=desk", http.StatusServiceUnavailable},
		{"nil client", nil, "/search?q=desk", http.StatusServiceUnavailable},
		{"blank query", pexels.New("k").WithBaseURL(failing.URL), "/search?q=+", http.StatusBadRequest},
		{"upstream failure", pexels.New("k").WithBaseURL(failing.URL), "/search?q=desk", http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			newRouter(tt.client).ServeHTTP(rec, testutil.NewAuthenticatedRequest(http.MethodGet, tt.path, testutil.EditorUser()))
			rec.AssertStatus(t, tt.want)
		})
	}
}
