// internal/app/store/sliders/sliderstore.go
package sliderstore

import (
	"context"
	"time"

	"github.com/dalemusser/stratasite/internal/app/store/storeutil"
	"github.com/dalemusser/stratasite/internal/app/system/normalize"
	"github.com/dalemusser/stratasite/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Store provides access to the home page slides.
type Store struct {
	c *mongo.Collection
}

// New creates a slider store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("sliders")}
}

// CreateInput holds the fields for creating a slide.
type CreateInput struct {
	Title      string
	Subtitle   string
	Image      models.MediaRef
	ButtonText string
	ButtonLink string
	Active     bool
}

// Create appends a slide to the carousel.
func (s *Store) Create(ctx context.Context, in CreateInput) (models.Slider, error) {
	order, err := storeutil.NextOrder(ctx, s.c, nil)
	if err != nil {
		return models.Slider{}, err
	}
	now := time.Now().UTC()
	sl := models.Slider{
		ID:         primitive.NewObjectID(),
		Title:      normalize.Name(in.Title),
		Subtitle:   in.Subtitle,
		Image:      in.Image,
		ButtonText: in.ButtonText,
		ButtonLink: in.ButtonLink,
		Active:     in.Active,
		Order:      order,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := s.c.InsertOne(ctx, sl); err != nil {
		return models.Slider{}, err
	}
	return sl, nil
}

// GetByID loads a slide.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Slider, error) {
	var sl models.Slider
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&sl); err != nil {
		return nil, err
	}
	return &sl, nil
}

// ListFilter narrows List.
type ListFilter struct {
	ActiveOnly bool
	Page       int64
	Limit      int64
}

func (f ListFilter) query() bson.M {
	q := bson.M{}
	if f.ActiveOnly {
		q["active"] = true
	}
	return q
}

// List returns slides in carousel order.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Slider, int64, error) {
	q := f.query()
	total, err := s.c.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	cur, err := s.c.Find(ctx, q, storeutil.Paginate(f.Limit, f.Page).SetSort(storeutil.OrderSort()))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var out []models.Slider
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Count returns the number of slides matching f.
func (s *Store) Count(ctx context.Context, f ListFilter) (int64, error) {
	return s.c.CountDocuments(ctx, f.query())
}

// UpdateInput holds optional slide fields; nil means unchanged.
type UpdateInput struct {
	Title      *string
	Subtitle   *string
	Image      *models.MediaRef
	ButtonText *string
	ButtonLink *string
	Active     *bool
}

// Update applies the non-nil fields.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, in UpdateInput) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if in.Title != nil {
		set["title"] = normalize.Name(*in.Title)
	}
	if in.Subtitle != nil {
		set["subtitle"] = *in.Subtitle
	}
	if in.Image != nil {
		set["image"] = *in.Image
	}
	if in.ButtonText != nil {
		set["button_text"] = *in.ButtonText
	}
	if in.ButtonLink != nil {
		set["button_link"] = *in.ButtonLink
	}
	if in.Active != nil {
		set["active"] = *in.Active
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes a slide.
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

// Reorder sets each slide's order to its index in ids.
func (s *Store) Reorder(ctx context.Context, ids []primitive.ObjectID) error {
	_, err := storeutil.Reorder(ctx, s.c, ids)
	return err
}
