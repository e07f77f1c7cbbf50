// Package apicors is the CORS policy for the cookie-less endpoints: the
// public read API, the contact form and the API-key export API.
//
// None of them authorize with the session cookie, so credentials are never
// allowed and a wildcard origin is safe. Sites that want to restrict which
// front ends may call them configure an origin list.
package apicors

import (
	"net/http"

	"github.com/go-chi/cors"
)

const maxAge = 86400 // seconds

// New allows every origin when origins is empty, otherwise only the listed
// ones. Requests from other origins are still served; the browser blocks
// the response.
//
//	r.Route("/api/export", func(r chi.Router) {
//	    r.Use(apicors.New(nil))
//	    ...
//	})
func New(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           maxAge,
	})
}
