// Package jsonutil writes the JSON envelopes every API handler uses and
// decodes request bodies.
//
// Successful responses carry the resource itself (or a Page for lists).
// Errors are {"error": "..."}, plus "fields" for validation failures.
package jsonutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// MaxBodyBytes caps JSON request bodies read by Decode. Media uploads use
// multipart and are limited separately.
const MaxBodyBytes = 2 << 20

var (
	ErrEmptyBody    = errors.New("request body is empty")
	ErrBodyTooLarge = fmt.Errorf("request body exceeds %d bytes", MaxBodyBytes)
	ErrTrailingData = errors.New("request body has data after the JSON value")
)

// JSON writes data with the given status. A nil data writes headers only.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Raw writes already-encoded JSON, such as a cached payload.
func Raw(w http.ResponseWriter, status int, b []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func OK(w http.ResponseWriter, data any)      { JSON(w, http.StatusOK, data) }
func Created(w http.ResponseWriter, data any) { JSON(w, http.StatusCreated, data) }

// NoContent writes 204 with no body.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error writes {"error": message} with status.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func BadRequest(w http.ResponseWriter, message string)   { Error(w, http.StatusBadRequest, message) }
func Unauthorized(w http.ResponseWriter, message string) { Error(w, http.StatusUnauthorized, message) }
func Forbidden(w http.ResponseWriter, message string)    { Error(w, http.StatusForbidden, message) }
func NotFound(w http.ResponseWriter, message string)     { Error(w, http.StatusNotFound, message) }
func Conflict(w http.ResponseWriter, message string)     { Error(w, http.StatusConflict, message) }

// ServiceUnavailable is used when an optional integration (AI drafting,
// stock photos, the export API) is not configured.
func ServiceUnavailable(w http.ResponseWriter, message string) {
	Error(w, http.StatusServiceUnavailable, message)
}

// InternalError writes a 500. Log the cause separately; message is shown
// to the client.
func InternalError(w http.ResponseWriter, message string) {
	Error(w, http.StatusInternalServerError, message)
}

// ValidationError writes a 400 with per-field messages keyed by JSON name.
func ValidationError(w http.ResponseWriter, fields map[string]string) {
	JSON(w, http.StatusBadRequest, map[string]any{
		"error":  "validation failed",
		"fields": fields,
	})
}

// Decode reads exactly one JSON value from the request body into v.
// Bodies over MaxBodyBytes, empty bodies and trailing data are errors.
func Decode(r *http.Request, v any) error {
	lr := &io.LimitedReader{R: r.Body, N: MaxBodyBytes + 1}
	dec := json.NewDecoder(lr)

	err := dec.Decode(v)
	switch {
	case lr.N <= 0:
		return ErrBodyTooLarge
	case errors.Is(err, io.EOF):
		return ErrEmptyBody
	case err != nil:
		return err
	}
	if dec.More() {
		return ErrTrailingData
	}
	return nil
}

// Page is the envelope for paginated lists.
type Page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int64 `json:"page"`
	Limit int64 `json:"limit"`
}

// List writes a Page. A nil slice is written as [] so clients never see null.
func List[T any](w http.ResponseWriter, items []T, total, page, limit int64) {
	if items == nil {
		items = []T{}
	}
	OK(w, Page[T]{Items: items, Total: total, Page: page, Limit: limit})
}
