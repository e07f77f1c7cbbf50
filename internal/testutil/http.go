package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/dalemusser/stratasite/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TestUser is the signed-in user injected by the request builders.
type TestUser struct {
	ID    string
	Name  string
	Email string
	Role  string
}

func AdminUser() TestUser {
	return TestUser{ID: primitive.NewObjectID().Hex(), Name: "Test Admin", Email: "admin@test.com", Role: "admin"}
}

func EditorUser() TestUser {
	return TestUser{ID: primitive.NewObjectID().Hex(), Name: "Test Editor", Email: "editor@test.com", Role: "editor"}
}

// WithUser puts u in the request context the way the session middleware
// would, without a cookie.
func WithUser(r *http.Request, u TestUser) *http.Request {
	return auth.WithTestUser(r, &auth.SessionUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role})
}

func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

func NewJSONRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func NewAuthenticatedRequest(method, target string, u TestUser) *http.Request {
	return WithUser(NewRequest(method, target), u)
}

func NewAuthenticatedJSONRequest(method, target, body string, u TestUser) *http.Request {
	return WithUser(NewJSONRequest(method, target, body), u)
}

type errorfer interface {
	Errorf(format string, args ...any)
}

type fatalfer interface {
	Fatalf(format string, args ...any)
}

// ResponseRecorder adds assertions to httptest.ResponseRecorder.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

func (r *ResponseRecorder) AssertStatus(t errorfer, want int) {
	if r.Code != want {
		t.Errorf("status = %d, want %d (body: %s)", r.Code, want, strings.TrimSpace(r.Body.String()))
	}
}

func (r *ResponseRecorder) AssertContains(t errorfer, want string) {
	if !strings.Contains(r.Body.String(), want) {
		t.Errorf("body does not contain %q: %s", want, r.Body.String())
	}
}

// DecodeJSON fails the test if the body is not JSON decodable into v.
func (r *ResponseRecorder) DecodeJSON(t fatalfer, v any) {
	if err := json.Unmarshal(r.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response: %v\nbody: %s", err, r.Body.String())
	}
}
