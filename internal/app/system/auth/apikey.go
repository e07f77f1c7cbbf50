package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/dalemusser/stratasite/internal/app/system/jsonutil"
	"github.com/dalemusser/stratasite/internal/app/system/network"
	"go.uber.org/zap"
)

// APIKeyAuth guards machine-to-machine endpoints with a shared key sent as
// "Authorization: Bearer <key>". With no key configured every request gets
// 503, so the endpoints stay off until an operator opts in.
func APIKeyAuth(validKey string, logger *zap.Logger) func(http.Handler) http.Handler {
	if validKey == "" {
		logger.Info("API key not configured; key-protected endpoints are disabled")
	}
	want := []byte(validKey)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(want) == 0 {
				jsonutil.ServiceUnavailable(w, "API access is not enabled")
				return
			}

			key, ok := bearerToken(r)
			if !ok {
				jsonutil.Unauthorized(w, "expected Authorization: Bearer <api-key>")
				return
			}
			if subtle.ConstantTimeCompare([]byte(key), want) != 1 {
				logger.Warn("API request rejected: invalid API key",
					zap.String("path", r.URL.Path),
					zap.String("ip", network.GetClientIP(r)))
				jsonutil.Unauthorized(w, "invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the credential from a Bearer Authorization header.
// The scheme is matched case-insensitively.
func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
