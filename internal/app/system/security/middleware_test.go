package security

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// echoHandler writes back the request body so tests can check it was restored.
func echoHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
	})
}

func TestMiddleware(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		target      string
		contentType string
		body        string
		wantStatus  int
	}{
		{"clean get", "GET", "/api/news?page=2", "", "", http.StatusOK},
		{"query injection", "GET", "/api/news?q=1%20UNION%20SELECT%20x", "", "", http.StatusBadRequest},
		{"query operator key", "GET", "/api/news?slug[$ne]=x", "", "", http.StatusBadRequest},
		{"clean json", "POST", "/api/contact", "application/json", `{"name":"Ann","message":"Hi there"}`, http.StatusOK},
		{"json xss", "POST", "/api/contact", "application/json", `{"name":"<script>x</script>"}`, http.StatusBadRequest},
		{"json operator", "POST", "/auth/login", "application/json; charset=utf-8", `{"email":"a@b.c","password":{"$gt":""}}`, http.StatusBadRequest},
		{"form sqli", "POST", "/auth/login", "application/x-www-form-urlencoded", "email=admin'--&password=x", http.StatusBadRequest},
		{"multipart skipped", "POST", "/admin/api/media", "multipart/form-data; boundary=x", "<script>", http.StatusOK},
		{"malformed json passes", "POST", "/api/contact", "application/json", `{"name":`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mon := NewMonitor(10, nil, zap.NewNop())
			h := Middleware(mon, zap.NewNop())(echoHandler())

			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, tt.target, body)
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusBadRequest {
				events := mon.Recent(0)
				require.Len(t, events, 1)
				assert.Equal(t, EventInjectionAttempt, events[0].Type)
				assert.Equal(t, SeverityHigh, events[0].Severity)
			} else {
				assert.Empty(t, mon.Recent(0))
				assert.Equal(t, tt.body, rec.Body.String(), "body should reach handler intact")
			}
		})
	}
}

func TestMiddleware_LargeBodyPassesThroughIntact(t *testing.T) {
	mon := NewMonitor(10, nil, zap.NewNop())
	h := Middleware(mon, zap.NewNop())(echoHandler())

	big := `{"content":"` + strings.Repeat("x", MaxPeekBytes) + `<script>"}`
	req := httptest.NewRequest("POST", "/api/contact", strings.NewReader(big))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, len(big), rec.Body.Len())
}
