package userstore

import (
	"context"
	"errors"

	"github.com/dalemusser/stratasite/internal/app/system/auth"
	"github.com/dalemusser/stratasite/internal/app/system/normalize"
	"github.com/dalemusser/stratasite/internal/app/system/status"
	"github.com/dalemusser/stratasite/internal/app/system/timeouts"
	"github.com/dalemusser/stratasite/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// sessionFields is everything a SessionUser is built from; the password
// hash never leaves the database on this path.
var sessionFields = bson.M{
	"full_name":     1,
	"email":         1,
	"auth_method":   1,
	"role":          1,
	"status":        1,
	"password_temp": 1,
}

// Fetcher resolves session cookies to current user records, so role
// changes and disables take effect on the next request.
type Fetcher struct {
	store  *Store
	logger *zap.Logger
}

var _ auth.UserFetcher = (*Fetcher)(nil)

func NewFetcher(db *mongo.Database, logger *zap.Logger) *Fetcher {
	return &Fetcher{store: New(db), logger: logger}
}

// FetchUser returns nil when the ID is malformed, the user is gone or
// disabled, or the lookup fails. The session is then treated as signed out.
func (f *Fetcher) FetchUser(ctx context.Context, userID string) *auth.SessionUser {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.DB())
	defer cancel()

	var u models.User
	err = f.store.c.FindOne(ctx, bson.M{"_id": oid}, options.FindOne().SetProjection(sessionFields)).Decode(&u)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil
	case err != nil:
		f.logger.Warn("session user lookup failed", zap.String("user_id", userID), zap.Error(err))
		return nil
	case !status.CanSignIn(u.Status):
		return nil
	}

	return &auth.SessionUser{
		ID:           u.ID.Hex(),
		Name:         u.FullName,
		Email:        u.Email,
		Role:         normalize.Role(u.Role),
		AuthMethod:   u.AuthMethod,
		MustChangePW: u.MustChangePassword(),
	}
}
