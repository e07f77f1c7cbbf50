package security

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/dalemusser/stratasite/internal/app/system/jsonutil"
	"github.com/dalemusser/stratasite/internal/app/system/network"
	"go.uber.org/zap"
)

// MaxPeekBytes is how much of a request body the guard inspects. Larger
// bodies pass through unscanned and are left to the handler's own limits.
const MaxPeekBytes = 1 << 20

// Middleware rejects requests whose query string or JSON/form body carries
// an injection pattern. Multipart bodies are not inspected.
func Middleware(mon *Monitor, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			threat, found := ScanQuery(r.URL.Query())
			if !found && hasBody(r) {
				var err error
				threat, found, err = scanBody(r)
				if err != nil {
					logger.Warn("security: body read failed", zap.Error(err))
					jsonutil.BadRequest(w, "invalid request body")
					return
				}
			}
			if found {
				mon.Record(r.Context(), RequestEvent(r, EventInjectionAttempt, SeverityHigh,
					"blocked "+string(threat.Kind),
					map[string]string{
						"kind":    string(threat.Kind),
						"pattern": threat.Pattern,
						"field":   threat.Field,
					}))
				jsonutil.BadRequest(w, "request rejected")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestEvent builds an Event populated from the request.
func RequestEvent(r *http.Request, typ EventType, sev Severity, msg string, details map[string]string) Event {
	return Event{
		Type:      typ,
		Severity:  sev,
		IP:        network.GetClientIP(r),
		UserAgent: r.UserAgent(),
		Path:      r.URL.Path,
		Method:    r.Method,
		Message:   msg,
		Details:   details,
	}
}

func hasBody(r *http.Request) bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return r.Body != nil && r.Body != http.NoBody
}

// scanBody peeks at the body and restores it for the next handler.
func scanBody(r *http.Request) (Threat, bool, error) {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt != "application/json" && mt != "application/x-www-form-urlencoded" {
		return Threat{}, false, nil
	}

	peek, err := io.ReadAll(io.LimitReader(r.Body, MaxPeekBytes+1))
	if err != nil {
		return Threat{}, false, err
	}
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(peek), r.Body), r.Body}

	if len(peek) > MaxPeekBytes {
		return Threat{}, false, nil
	}

	if mt == "application/x-www-form-urlencoded" {
		vals, err := url.ParseQuery(string(peek))
		if err != nil {
			return Threat{}, false, nil
		}
		th, ok := ScanQuery(vals)
		return th, ok, nil
	}

	var v any
	if err := json.Unmarshal(peek, &v); err != nil {
		// Malformed JSON is the handler's to report.
		return Threat{}, false, nil
	}
	th, ok := ScanValue(v)
	return th, ok, nil
}
