// Package authz answers "who is acting" for handlers behind the auth
// guards. A session whose user ID is not a valid ObjectID is treated as
// anonymous.
package authz

import (
	"net/http"
	"strings"

	"github.com/dalemusser/stratasite/internal/app/system/auth"
	"github.com/dalemusser/stratasite/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Actor is the signed-in user as seen by audit and authorship code.
type Actor struct {
	ID   primitive.ObjectID
	Name string
	Role string // lowercased
}

// Current returns the acting user, or false for anonymous requests.
func Current(r *http.Request) (Actor, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return Actor{}, false
	}
	id, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return Actor{}, false
	}
	return Actor{ID: id, Name: u.Name, Role: strings.ToLower(u.Role)}, true
}

// ActorID is the acting user's ID, NilObjectID when anonymous.
func ActorID(r *http.Request) primitive.ObjectID {
	a, _ := Current(r)
	return a.ID
}

// ActorPtr is ActorID as a pointer, nil when anonymous.
func ActorPtr(r *http.Request) *primitive.ObjectID {
	a, ok := Current(r)
	if !ok {
		return nil
	}
	return &a.ID
}

func ActorName(r *http.Request) string {
	a, _ := Current(r)
	return a.Name
}

func IsAdmin(r *http.Request) bool {
	a, ok := Current(r)
	return ok && a.Role == models.RoleAdmin
}
