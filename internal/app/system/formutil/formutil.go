// Package formutil parses the request parameters shared by the JSON handlers:
// ObjectID path segments, paging, boolean flags and reorder bodies.
package formutil

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/dalemusser/stratasite/internal/app/system/jsonutil"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// DefaultLimit is the page size when none is requested.
	DefaultLimit = 20
	// MaxLimit caps the page size a client may request.
	MaxLimit = 100
	// MaxPage keeps the skip derived from any page and limit inside int64.
	MaxPage = math.MaxInt64 / MaxLimit
	// MaxReorderIDs caps the number of ids in one reorder request.
	MaxReorderIDs = 1000
)

// ErrBadID is returned when a path or body id is not an ObjectID.
var ErrBadID = errors.New("invalid id")

// PathID parses the chi URL parameter name as an ObjectID.
func PathID(r *http.Request, name string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		return primitive.NilObjectID, ErrBadID
	}
	return oid, nil
}

// ID parses the "id" path parameter and writes a 400 when it is malformed.
// The boolean is false when the handler should return.
func ID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	oid, err := PathID(r, "id")
	if err != nil {
		jsonutil.BadRequest(w, "invalid id")
		return primitive.NilObjectID, false
	}
	return oid, true
}

// Paging is the page/limit pair read from the query string.
type Paging struct {
	Page  int64
	Limit int64
}

// Page reads ?page= and ?limit=. Missing or bad values fall back to page 1
// and DefaultLimit; limit is capped at MaxLimit and page at MaxPage.
func Page(r *http.Request) Paging {
	p := Paging{Page: 1, Limit: DefaultLimit}
	if n, err := strconv.ParseInt(query.Get(r, "page"), 10, 64); err == nil && n > 0 {
		p.Page = n
	}
	if n, err := strconv.ParseInt(query.Get(r, "limit"), 10, 64); err == nil && n > 0 {
		p.Limit = n
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	return p
}

// Bool reads a boolean query flag. Absent or unparsable values are false.
func Bool(r *http.Request, name string) bool {
	b, _ := strconv.ParseBool(query.Get(r, name))
	return b
}

// OptionalID reads an ObjectID query parameter. A blank value yields nil;
// a malformed one yields ErrBadID.
func OptionalID(r *http.Request, name string) (*primitive.ObjectID, error) {
	v := query.Get(r, name)
	if v == "" {
		return nil, nil
	}
	oid, err := primitive.ObjectIDFromHex(v)
	if err != nil {
		return nil, ErrBadID
	}
	return &oid, nil
}

// ReorderInput is the body of every reorder endpoint.
type ReorderInput struct {
	IDs []string `json:"ids"`
}

// DecodeReorder reads a ReorderInput and converts it to ObjectIDs. It writes
// the 400 response itself; the boolean is false when the handler should
// return.
func DecodeReorder(w http.ResponseWriter, r *http.Request) ([]primitive.ObjectID, bool) {
	var in ReorderInput
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return nil, false
	}
	if len(in.IDs) == 0 {
		jsonutil.ValidationError(w, map[string]string{"ids": "at least one id is required"})
		return nil, false
	}
	if len(in.IDs) > MaxReorderIDs {
		jsonutil.ValidationError(w, map[string]string{"ids": "too many ids"})
		return nil, false
	}
	ids, err := ObjectIDs(in.IDs)
	if err != nil {
		jsonutil.ValidationError(w, map[string]string{"ids": err.Error()})
		return nil, false
	}
	return ids, true
}

// ObjectIDs converts hex strings, rejecting duplicates and malformed ids.
func ObjectIDs(hex []string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(hex))
	seen := make(map[primitive.ObjectID]struct{}, len(hex))
	for _, h := range hex {
		oid, err := primitive.ObjectIDFromHex(h)
		if err != nil {
			return nil, ErrBadID
		}
		if _, dup := seen[oid]; dup {
			return nil, errors.New("duplicate id " + h)
		}
		seen[oid] = struct{}{}
		out = append(out, oid)
	}
	return out, nil
}
