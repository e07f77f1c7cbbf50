// internal/app/store/products/productstore.go
package productstore

import (
	"context"
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

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("products")}
}

// CreateInput holds the fields for creating a product.
type CreateInput struct {
	Name      string
	Slug      string
	Summary   string
	Content   string
	Price     int64 // minor units
	Currency  string
	Features  []string
	Image     models.MediaRef
	Featured  bool
	Published bool
}

func currency(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return models.DefaultCurrency
	}
	return c
}

func (s *Store) Create(ctx context.Context, in CreateInput) (models.Product, error) {
	name := normalize.Name(in.Name)
	sl, err := storeutil.ResolveSlug(ctx, s.c, in.Slug, name, primitive.NilObjectID)
	if err != nil {
		return models.Product{}, err
	}
	order, err := storeutil.NextOrder(ctx, s.c, nil)
	if err != nil {
		return models.Product{}, err
	}

	now := time.Now().UTC()
	p := models.Product{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		Slug:      sl,
		Summary:   in.Summary,
		Content:   in.Content,
		Price:     in.Price,
		Currency:  currency(in.Currency),
		Features:  in.Features,
		Image:     in.Image,
		Featured:  in.Featured,
		Published: in.Published,
		Order:     order,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Product{}, ErrDuplicateSlug
		}
		return models.Product{}, err
	}
	return p, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var p models.Product
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetBySlug loads a product by slug. publishedOnly hides drafts.
func (s *Store) GetBySlug(ctx context.Context, slug string, publishedOnly bool) (*models.Product, error) {
	filter := bson.M{"slug": slug}
	if publishedOnly {
		filter["published"] = true
	}
	var p models.Product
	if err := s.c.FindOne(ctx, filter).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

type ListFilter struct {
	PublishedOnly bool
	FeaturedOnly  bool
	Search        string
	Page          int64
	Limit         int64
}

func (f ListFilter) query() bson.M {
	q := bson.M{}
	if f.PublishedOnly {
		q["published"] = true
	}
	if f.FeaturedOnly {
		q["featured"] = true
	}
	if f.Search != "" {
		q["name_ci"] = storeutil.FoldedContains(f.Search)
	}
	return q
}

func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Product, int64, error) {
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

	var out []models.Product
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Store) Count(ctx context.Context, f ListFilter) (int64, error) {
	return s.c.CountDocuments(ctx, f.query())
}

// UpdateInput holds optional product fields; nil means unchanged.
type UpdateInput struct {
	Name      *string
	Slug      *string
	Summary   *string
	Content   *string
	Price     *int64
	Currency  *string
	Features  *[]string
	Image     *models.MediaRef
	Featured  *bool
	Published *bool
}

func (s *Store) Update(ctx context.Context, id primitive.ObjectID, in UpdateInput) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if in.Name != nil {
		name := normalize.Name(*in.Name)
		set["name"] = name
		set["name_ci"] = text.Fold(name)
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
	if in.Price != nil {
		set["price"] = *in.Price
	}
	if in.Currency != nil {
		set["currency"] = currency(*in.Currency)
	}
	if in.Features != nil {
		set["features"] = *in.Features
	}
	if in.Image != nil {
		set["image"] = *in.Image
	}
	if in.Featured != nil {
		set["featured"] = *in.Featured
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
