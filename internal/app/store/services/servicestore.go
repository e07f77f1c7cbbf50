// internal/app/store/services/servicestore.go
package servicestore

import (
	"context"
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

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("services")}
}

type CreateInput struct {
	Title     string
	Slug      string
	Summary   string
	Content   string
	Icon      string
	Features  []string
	Image     models.MediaRef
	Published bool
}

func (s *Store) Create(ctx context.Context, in CreateInput) (models.Service, error) {
	title := normalize.Name(in.Title)
	sl, err := storeutil.ResolveSlug(ctx, s.c, in.Slug, title, primitive.NilObjectID)
	if err != nil {
		return models.Service{}, err
	}
	order, err := storeutil.NextOrder(ctx, s.c, nil)
	if err != nil {
		return models.Service{}, err
	}

	now := time.Now().UTC()
	svc := models.Service{
		ID:        primitive.NewObjectID(),
		Title:     title,
		TitleCI:   text.Fold(title),
		Slug:      sl,
		Summary:   in.Summary,
		Content:   in.Content,
		Icon:      in.Icon,
		Features:  in.Features,
		Image:     in.Image,
		Published: in.Published,
		Order:     order,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, svc); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Service{}, ErrDuplicateSlug
		}
		return models.Service{}, err
	}
	return svc, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Service, error) {
	var svc models.Service
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&svc); err != nil {
		return nil, err
	}
	return &svc, nil
}

func (s *Store) GetBySlug(ctx context.Context, slug string, publishedOnly bool) (*models.Service, error) {
	filter := bson.M{"slug": slug}
	if publishedOnly {
		filter["published"] = true
	}
	var svc models.Service
	if err := s.c.FindOne(ctx, filter).Decode(&svc); err != nil {
		return nil, err
	}
	return &svc, nil
}

type ListFilter struct {
	PublishedOnly bool
	Search        string
	Page          int64
	Limit         int64
}

func (f ListFilter) query() bson.M {
	q := bson.M{}
	if f.PublishedOnly {
		q["published"] = true
	}
	if f.Search != "" {
		q["title_ci"] = storeutil.FoldedContains(f.Search)
	}
	return q
}

func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Service, int64, error) {
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

	var out []models.Service
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Store) Count(ctx context.Context, f ListFilter) (int64, error) {
	return s.c.CountDocuments(ctx, f.query())
}

type UpdateInput struct {
	Title     *string
	Slug      *string
	Summary   *string
	Content   *string
	Icon      *string
	Features  *[]string
	Image     *models.MediaRef
	Published *bool
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
	if in.Summary != nil {
		set["summary"] = *in.Summary
	}
	if in.Content != nil {
		set["content"] = *in.Content
	}
	if in.Icon != nil {
		set["icon"] = *in.Icon
	}
	if in.Features != nil {
		set["features"] = *in.Features
	}
	if in.Image != nil {
		set["image"] = *in.Image
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
