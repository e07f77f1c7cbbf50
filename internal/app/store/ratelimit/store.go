// Package ratelimit counts failed admin sign-ins per email and locks an
// address out after too many failures in a window.
//
// Every method fails open: a database error never blocks a sign-in.
package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/stratasite/internal/app/system/normalize"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection; system/indexes adds a unique key index and a one-day TTL on
// last_attempt.
const Collection = "login_attempts"

// Attempt is the counter for one normalized email.
type Attempt struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Key          string             `bson:"key"`
	AttemptCount int                `bson:"attempt_count"`
	WindowStart  time.Time          `bson:"window_start"`
	LockedUntil  *time.Time         `bson:"locked_until"`
	LastAttempt  time.Time          `bson:"last_attempt"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

func (a *Attempt) lockedAt(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}

// Decision is the limiter's answer for one key.
type Decision struct {
	Allowed     bool
	Remaining   int        // failures left before lockout; 0 when locked
	LockedUntil *time.Time // set while locked
}

type Store struct {
	c       *mongo.Collection
	max     int
	window  time.Duration
	lockout time.Duration
	now     func() time.Time
}

// New locks a key for lockout after max failures within window.
func New(db *mongo.Database, max int, window, lockout time.Duration) *Store {
	return &Store{
		c:       db.Collection(Collection),
		max:     max,
		window:  window,
		lockout: lockout,
		now:     time.Now,
	}
}

func (s *Store) open() Decision { return Decision{Allowed: true, Remaining: s.max} }

// Check reports whether key may attempt a sign-in now.
func (s *Store) Check(ctx context.Context, key string) Decision {
	a, err := s.Get(ctx, key)
	if err != nil || a == nil {
		return s.open()
	}
	now := s.now()
	switch {
	case a.lockedAt(now):
		return Decision{LockedUntil: a.LockedUntil}
	case now.After(a.WindowStart.Add(s.window)):
		return s.open()
	}
	// A lockout that expired inside the window leaves one more try.
	return Decision{Allowed: true, Remaining: max(s.max-a.AttemptCount, 1)}
}

// RecordFailure counts one failure. The returned Decision is not Allowed
// when this failure started a lockout.
func (s *Store) RecordFailure(ctx context.Context, key string) Decision {
	key = normalize.Email(key)
	now := s.now()

	a, err := s.Get(ctx, key)
	if err != nil {
		return s.open()
	}
	if a == nil || now.After(a.WindowStart.Add(s.window)) {
		a = &Attempt{Key: key, WindowStart: now}
	}
	a.AttemptCount++

	d := Decision{Allowed: true, Remaining: s.max - a.AttemptCount}
	if a.AttemptCount >= s.max {
		until := now.Add(s.lockout)
		a.LockedUntil = &until
		d = Decision{LockedUntil: &until}
	}

	_, _ = s.c.UpdateOne(ctx,
		bson.M{"key": key},
		bson.M{
			"$set": bson.M{
				"attempt_count": a.AttemptCount,
				"window_start":  a.WindowStart,
				"locked_until":  a.LockedUntil,
				"last_attempt":  now,
				"updated_at":    now,
			},
			"$setOnInsert": bson.M{"created_at": now},
		},
		options.Update().SetUpsert(true),
	)
	return d
}

// Clear forgets key after a successful sign-in.
func (s *Store) Clear(ctx context.Context, key string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"key": normalize.Email(key)})
	return err
}

// Get returns the counter for key, or nil if there is none.
func (s *Store) Get(ctx context.Context, key string) (*Attempt, error) {
	var a Attempt
	err := s.c.FindOne(ctx, bson.M{"key": normalize.Email(key)}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Cleanup deletes unlocked counters idle since before cutoff. The TTL
// index does the same lazily; this keeps the collection small between
// TTL passes.
func (s *Store) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{
		"last_attempt": bson.M{"$lt": cutoff},
		"$or": bson.A{
			bson.M{"locked_until": nil},
			bson.M{"locked_until": bson.M{"$lte": s.now()}},
		},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
