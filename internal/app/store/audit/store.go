// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

// Collection holds the audit trail. Indexes are created by system/indexes.
const Collection = "audit_logs"

// Categories; each is routed separately by auditlog.Config.
const (
	CategoryAuth     = "auth"
	CategoryAdmin    = "admin"
	CategorySecurity = "security"
)

// Categories lists every category in display order.
var Categories = []string{CategoryAuth, CategoryAdmin, CategorySecurity}

// Auth events.
const (
	EventLoginSuccess             = "login_success"
	EventLoginFailedUserNotFound  = "login_failed_user_not_found"
	EventLoginFailedWrongPassword = "login_failed_wrong_password"
	EventLoginFailedUserDisabled  = "login_failed_user_disabled"
	EventLoginLockedOut           = "login_locked_out"
	EventLogout                   = "logout"
	EventPasswordChanged          = "password_changed"
	EventOAuthLogin               = "oauth_login"
	EventOAuthFailed              = "oauth_failed"
)

// Admin events. Content events carry the collection and document ID in
// Details ("collection", "id", "title").
const (
	EventUserCreated       = "user_created"
	EventUserUpdated       = "user_updated"
	EventUserDisabled      = "user_disabled"
	EventUserEnabled       = "user_enabled"
	EventUserDeleted       = "user_deleted"
	EventUserPasswordReset = "user_password_reset"
	EventSettingsUpdated   = "settings_updated"
	EventThemeUpdated      = "theme_updated"
	EventContentCreated    = "content_created"
	EventContentUpdated    = "content_updated"
	EventContentDeleted    = "content_deleted"
	EventContentPublished  = "content_published"
	EventMediaUploaded     = "media_uploaded"
	EventMediaDeleted      = "media_deleted"
)

// Event is one audit entry.
type Event struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	Category  string             `bson:"category" json:"category"`
	EventType string             `bson:"event_type" json:"event_type"`

	// UserID is the account the event is about; ActorID is who acted,
	// set only when that differs (an admin editing someone else).
	UserID  *primitive.ObjectID `bson:"user_id,omitempty" json:"user_id,omitempty"`
	ActorID *primitive.ObjectID `bson:"actor_id,omitempty" json:"actor_id,omitempty"`

	IP            string            `bson:"ip" json:"ip"`
	UserAgent     string            `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
	Success       bool              `bson:"success" json:"success"`
	FailureReason string            `bson:"failure_reason,omitempty" json:"failure_reason,omitempty"`
	Details       map[string]string `bson:"details,omitempty" json:"details,omitempty"`
}

// Filter narrows List. Zero fields match everything; the time bounds are
// inclusive.
type Filter struct {
	UserID    *primitive.ObjectID
	ActorID   *primitive.ObjectID
	Category  string
	EventType string
	Since     *time.Time
	Until     *time.Time
	Limit     int64 // default 100
	Offset    int64
}

func (f Filter) query() bson.M {
	q := bson.M{}
	if f.UserID != nil {
		q["user_id"] = *f.UserID
	}
	if f.ActorID != nil {
		q["actor_id"] = *f.ActorID
	}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.EventType != "" {
		q["event_type"] = f.EventType
	}
	created := bson.M{}
	if f.Since != nil {
		created["$gte"] = *f.Since
	}
	if f.Until != nil {
		created["$lte"] = *f.Until
	}
	if len(created) > 0 {
		q["created_at"] = created
	}
	return q
}

// Store reads and writes audit events.
type Store struct {
	c *mongo.Collection
}

// New returns a Store on db.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Log inserts event, filling ID and CreatedAt when unset.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

// List returns one page of matching events, newest first, and the total
// number of matches.
func (s *Store) List(ctx context.Context, f Filter) ([]Event, int64, error) {
	if f.Limit <= 0 {
		f.Limit = 100
	}
	q := f.query()

	var (
		events []Event
		total  int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		opts := options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
			SetSkip(f.Offset).
			SetLimit(f.Limit)
		cur, err := s.c.Find(gctx, q, opts)
		if err != nil {
			return err
		}
		events = []Event{}
		return cur.All(gctx, &events)
	})
	g.Go(func() error {
		var err error
		total, err = s.c.CountDocuments(gctx, q)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// DeleteBefore removes events older than cutoff and returns the number removed.
func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"created_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
