// internal/app/store/models3d/modelstore.go
package modelstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/dalemusser/stratasite/internal/app/store/storeutil"
	"github.com/dalemusser/stratasite/internal/app/system/normalize"
	"github.com/dalemusser/stratasite/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrDuplicateSlug = storeutil.ErrDuplicateSlug

// Store provides access to the 3D model gallery.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("models3d")}
}

type CreateInput struct {
	Title       string
	Slug        string
	Description string
	Category    string
	Model       models.MediaRef
	Poster      models.MediaRef
	AutoRotate  bool
	CameraOrbit string
	Published   bool
}

func (s *Store) Create(ctx context.Context, in CreateInput) (models.Model3D, error) {
	title := normalize.Name(in.Title)
	sl, err := storeutil.ResolveSlug(ctx, s.c, in.Slug, title, primitive.NilObjectID)
	if err != nil {
		return models.Model3D{}, err
	}
	order, err := storeutil.NextOrder(ctx, s.c, nil)
	if err != nil {
		return models.Model3D{}, err
	}

	now := time.Now().UTC()
	m := models.Model3D{
		ID:          primitive.NewObjectID(),
		Title:       title,
		TitleCI:     text.Fold(title),
		Slug:        sl,
		Description: in.Description,
		Category:    strings.TrimSpace(in.Category),
		Model:       in.Model,
		Poster:      in.Poster,
		AutoRotate:  in.AutoRotate,
		CameraOrbit: in.CameraOrbit,
		Published:   in.Published,
		Order:       order,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Model3D{}, ErrDuplicateSlug
		}
		return models.Model3D{}, err
	}
	return m, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Model3D, error) {
	var m models.Model3D
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) GetBySlug(ctx context.Context, slug string, publishedOnly bool) (*models.Model3D, error) {
	filter := bson.M{"slug": slug}
	if publishedOnly {
		filter["published"] = true
	}
	var m models.Model3D
	if err := s.c.FindOne(ctx, filter).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

type ListFilter struct {
	PublishedOnly bool
	Category      string
	Search        string
	Page          int64
	Limit         int64
}

func (f ListFilter) query() bson.M {
	q := bson.M{}
	if f.PublishedOnly {
		q["published"] = true
	}
	if f.Category != "" {
		q["category"] = strings.TrimSpace(f.Category)
	}
	if f.Search != "" {
		q["title_ci"] = storeutil.FoldedContains(f.Search)
	}
	return q
}

func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Model3D, int64, error) {
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

	var out []models.Model3D
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Store) Count(ctx context.Context, f ListFilter) (int64, error) {
	return s.c.CountDocuments(ctx, f.query())
}

// Categories returns the distinct non-empty categories, sorted.
func (s *Store) Categories(ctx context.Context, publishedOnly bool) ([]string, error) {
	filter := bson.M{"category": bson.M{"$nin": bson.A{"", nil}}}
	if publishedOnly {
		filter["published"] = true
	}
	vals, err := s.c.Distinct(ctx, "category", filter)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if str, ok := v.(string); ok {
			out = append(out, str)
		}
	}
	sort.Strings(out)
	return out, nil
}

type UpdateInput struct {
	Title       *string
	Slug        *string
	Description *string
	Category    *string
	Model       *models.MediaRef
	Poster      *models.MediaRef
	AutoRotate  *bool
	CameraOrbit *string
	Published   *bool
}

func (s *Store) Update(ctx context.Context, id primitive.ObjectID, in UpdateInput) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if in.Title != nil {
		title := normalize.Name(*in.Title)
		set["title"] = title
		set["title_ci"] = text.Fold(title)
	}
	if in.Slug != nil {
		sl, err := storeutil.ResolveSlug(ctx, s.c, *in.Slug, "", id)
		if err != nil {
			return err
		}
		set["slug"] = sl
	}
	if in.Description != nil {
		set["description"] = *in.Description
	}
	if in.Category != nil {
		set["category"] = strings.TrimSpace(*in.Category)
	}
	if in.Model != nil {
		set["model"] = *in.Model
	}
	if in.Poster != nil {
		set["poster"] = *in.Poster
	}
	if in.AutoRotate != nil {
		set["auto_rotate"] = *in.AutoRotate
	}
	if in.CameraOrbit != nil {
		set["camera_orbit"] = *in.CameraOrbit
	}
	if in.Published != nil {
		set["published"] = *in.Published
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateSlug
		}
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

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

func (s *Store) Reorder(ctx context.Context, ids []primitive.ObjectID) error {
	_, err := storeutil.Reorder(ctx, s.c, ids)
	return err
}
