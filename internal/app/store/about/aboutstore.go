// internal/app/store/about/aboutstore.go
package aboutstore

import (
	"context"
	"time"

	"github.com/dalemusser/stratasite/internal/app/system/txn"
	"github.com/dalemusser/stratasite/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Store provides access to About page versions. At most one version is
// active; a partial unique index on {active: true} enforces it.
type Store struct {
	db  *mongo.Database
	c   *mongo.Collection
	log *zap.Logger
}

func New(db *mongo.Database) *Store {
	return &Store{db: db, c: db.Collection("about"), log: zap.NewNop()}
}

// WithLogger sets the logger used for transaction fallback warnings.
func (s *Store) WithLogger(l *zap.Logger) *Store {
	if l != nil {
		s.log = l
	}
	return s
}

// Input holds the editable fields of an About version.
type Input struct {
	Title    string
	Subtitle string
	Content  string
	Mission  string
	Vision   string
	Values   []string
	Stats    []models.AboutStat
	Team     []models.TeamMember
	Image    models.MediaRef
	Active   bool
}

// Create inserts a new version. When in.Active is set the previously active
// version is deactivated in the same transaction.
func (s *Store) Create(ctx context.Context, in Input) (models.About, error) {
	now := time.Now().UTC()
	a := models.About{
		ID:        primitive.NewObjectID(),
		Title:     in.Title,
		Subtitle:  in.Subtitle,
		Content:   in.Content,
		Mission:   in.Mission,
		Vision:    in.Vision,
		Values:    in.Values,
		Stats:     in.Stats,
		Team:      in.Team,
		Image:     in.Image,
		Active:    in.Active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		if a.Active {
			if err := s.deactivateAll(ctx, now); err != nil {
				return err
			}
		}
		_, err := s.c.InsertOne(ctx, a)
		return err
	})
	if err != nil {
		return models.About{}, err
	}
	return a, nil
}

func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (*models.About, error) {
	var a models.About
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetActive returns the version shown on the public site, or
// mongo.ErrNoDocuments when none is active.
func (s *Store) GetActive(ctx context.Context) (*models.About, error) {
	var a models.About
	if err := s.c.FindOne(ctx, bson.M{"active": true}).Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// List returns every version, the active one first, then newest first.
func (s *Store) List(ctx context.Context) ([]models.About, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "active", Value: -1},
		{Key: "created_at", Value: -1},
	})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.About
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update replaces the content fields of a version. The active flag is not
// touched; use Activate.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, in Input) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"title":      in.Title,
		"subtitle":   in.Subtitle,
		"content":    in.Content,
		"mission":    in.Mission,
		"vision":     in.Vision,
		"values":     in.Values,
		"stats":      in.Stats,
		"team":       in.Team,
		"image":      in.Image,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Activate makes id the only active version.
func (s *Store) Activate(ctx context.Context, id primitive.ObjectID) error {
	return txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		if err := s.c.FindOne(ctx, bson.M{"_id": id}).Err(); err != nil {
			return err
		}
		now := time.Now().UTC()
		if err := s.deactivateAll(ctx, now); err != nil {
			return err
		}
		_, err := s.c.UpdateOne(ctx, bson.M{"_id": id},
			bson.M{"$set": bson.M{"active": true, "updated_at": now}})
		return err
	})
}

// Delete removes a version. Deleting the active version leaves none active.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Count returns the number of stored versions.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}

func (s *Store) deactivateAll(ctx context.Context, now time.Time) error {
	_, err := s.c.UpdateMany(ctx, bson.M{"active": true},
		bson.M{"$set": bson.M{"active": false, "updated_at": now}})
	return err
}
