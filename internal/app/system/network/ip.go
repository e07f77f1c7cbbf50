// Package network extracts client addresses for rate limiting, audit
// entries and contact submissions.
package network

import (
	"net"
	"net/http"
	"strings"
)

// GetClientIP returns the originating client address. The first valid
// entry of X-Forwarded-For wins, then X-Real-IP, then the connection's
// RemoteAddr without its port. Proxy headers are trusted as-is; the
// service is expected to run behind a proxy that overwrites them.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := parseIP(first); ip != "" {
			return ip
		}
	}
	if ip := parseIP(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// parseIP returns the canonical form of s, or "" when s is not an address.
func parseIP(s string) string {
	ip := net.ParseIP(strings.Trim(strings.TrimSpace(s), "[]"))
	if ip == nil {
		return ""
	}
	return ip.String()
}
