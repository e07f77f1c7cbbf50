// Package oauthstate keeps the anti-forgery state of in-flight Google
// sign-ins. Each state is single use and expires after TTL.
package oauthstate

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Collection holds one document per pending sign-in. A TTL index on
// expires_at removes stale ones.
const Collection = "oauth_states"

// TTL is how long a Google sign-in may take before its state expires.
const TTL = 10 * time.Minute

// Pending is a sign-in that has been redirected to Google but has not come
// back yet.
type Pending struct {
	State     string    `bson:"state"`
	ReturnTo  string    `bson:"return_to,omitempty"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

type Store struct {
	c   *mongo.Collection
	now func() time.Time
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection), now: time.Now}
}

// Create records state. ReturnTo is the admin path to land on after the
// callback. Reusing a state fails on the unique index.
func (s *Store) Create(ctx context.Context, state, returnTo string) error {
	now := s.now()
	_, err := s.c.InsertOne(ctx, Pending{
		State:     state,
		ReturnTo:  returnTo,
		ExpiresAt: now.Add(TTL),
		CreatedAt: now,
	})
	return err
}

// Verify consumes state and returns its ReturnTo. ok is false for unknown,
// expired or already used states.
func (s *Store) Verify(ctx context.Context, state string) (returnTo string, ok bool) {
	if state == "" {
		return "", false
	}
	var p Pending
	err := s.c.FindOneAndDelete(ctx, bson.M{
		"state":      state,
		"expires_at": bson.M{"$gt": s.now()},
	}).Decode(&p)
	if err != nil {
		return "", false
	}
	return p.ReturnTo, true
}

// DeleteExpired removes expired states and reports how many went. The
// cleanup job calls it because TTL monitoring only runs once a minute.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": s.now()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
