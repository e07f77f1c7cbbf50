package testutil

import (
	"context"
	"net/http"
)

// TestCSRFToken is what csrf.Token(r) returns for requests passed through
// WithCSRFToken.
const TestCSRFToken = "test-csrf-token"

// gorilla/csrf stores the masked token under this plain string key, so a
// handler calling csrf.Token(r) outside the middleware sees our value.
const gorillaTokenKey = "gorilla.csrf.Token"

func WithCSRFToken(r *http.Request) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), gorillaTokenKey, TestCSRFToken))
}
