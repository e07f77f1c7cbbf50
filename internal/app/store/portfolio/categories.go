// internal/app/store/portfolio/categories.go
package portfoliostore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/stratasite/internal/app/store/storeutil"
	"github.com/dalemusser/stratasite/internal/app/system/normalize"
	"github.com/dalemusser/stratasite/internal/app/system/txn"
	"github.com/dalemusser/stratasite/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CategoryInput holds the fields for creating a category.
type CategoryInput struct {
	Name        string
	Slug        string // derived from Name when blank
	Description string
	Active      bool
}

// CreateCategory inserts a category at the end of the category order.
func (s *Store) CreateCategory(ctx context.Context, in CategoryInput) (models.PortfolioCategory, error) {
	name := normalize.Name(in.Name)
	sl, err := storeutil.ResolveSlug(ctx, s.categories, in.Slug, name, primitive.NilObjectID)
	if err != nil {
		return models.PortfolioCategory{}, err
	}
	order, err := storeutil.NextOrder(ctx, s.categories, nil)
	if err != nil {
		return models.PortfolioCategory{}, err
	}

	now := time.Now().UTC()
	c := models.PortfolioCategory{
		ID:          primitive.NewObjectID(),
		Name:        name,
		Slug:        sl,
		Description: in.Description,
		Order:       order,
		Active:      in.Active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.categories.InsertOne(ctx, c); err != nil {
		if wafflemongo.IsDup(err) {
			return models.PortfolioCategory{}, ErrDuplicateSlug
		}
		return models.PortfolioCategory{}, err
	}
	return c, nil
}

// GetCategory loads a category by ID.
func (s *Store) GetCategory(ctx context.Context, id primitive.ObjectID) (*models.PortfolioCategory, error) {
	var c models.PortfolioCategory
	if err := s.categories.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCategoryBySlug loads a category by slug.
func (s *Store) GetCategoryBySlug(ctx context.Context, slug string) (*models.PortfolioCategory, error) {
	var c models.PortfolioCategory
	if err := s.categories.FindOne(ctx, bson.M{"slug": slug}).Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCategories returns categories in display order.
func (s *Store) ListCategories(ctx context.Context, activeOnly bool) ([]models.PortfolioCategory, error) {
	filter := bson.M{}
	if activeOnly {
		filter["active"] = true
	}
	cur, err := s.categories.Find(ctx, filter, options.Find().SetSort(storeutil.OrderSort()))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.PortfolioCategory
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CategoryUpdate holds optional category fields; nil means unchanged.
type CategoryUpdate struct {
	Name        *string
	Slug        *string
	Description *string
	Active      *bool
}

// UpdateCategory applies the non-nil fields.
func (s *Store) UpdateCategory(ctx context.Context, id primitive.ObjectID, in CategoryUpdate) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if in.Name != nil {
		set["name"] = normalize.Name(*in.Name)
	}
	if in.Slug != nil {
		sl, err := storeutil.ResolveSlug(ctx, s.categories, *in.Slug, "", id)
		if err != nil {
			return err
		}
		set["slug"] = sl
	}
	if in.Description != nil {
		set["description"] = *in.Description
	}
	if in.Active != nil {
		set["active"] = *in.Active
	}

	res, err := s.categories.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
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

// DeleteCategory removes a category and detaches its items in one
// transaction. Returns the number of items detached.
func (s *Store) DeleteCategory(ctx context.Context, id primitive.ObjectID) (int64, error) {
	var detached int64
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		res, err := s.categories.DeleteOne(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return mongo.ErrNoDocuments
		}
		upd, err := s.items.UpdateMany(ctx,
			bson.M{"category_id": id},
			bson.M{
				"$unset": bson.M{"category_id": ""},
				"$set":   bson.M{"updated_at": time.Now().UTC()},
			})
		if err != nil {
			return err
		}
		detached = upd.ModifiedCount
		return nil
	})
	if err != nil {
		return 0, err
	}
	return detached, nil
}

// ReorderCategories sets each category's order to its index in ids.
func (s *Store) ReorderCategories(ctx context.Context, ids []primitive.ObjectID) error {
	_, err := storeutil.Reorder(ctx, s.categories, ids)
	return err
}

// CountByCategory returns the number of items per category. Items without
// a category are counted under primitive.NilObjectID.
func (s *Store) CountByCategory(ctx context.Context, publishedOnly bool) (map[primitive.ObjectID]int64, error) {
	pipeline := mongo.Pipeline{}
	if publishedOnly {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.M{"published": true}}})
	}
	pipeline = append(pipeline, bson.D{{Key: "$group", Value: bson.M{
		"_id":   "$category_id",
		"count": bson.M{"$sum": 1},
	}}})

	cur, err := s.items.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		ID    *primitive.ObjectID `bson:"_id"`
		Count int64               `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}

	out := make(map[primitive.ObjectID]int64, len(rows))
	for _, r := range rows {
		key := primitive.NilObjectID
		if r.ID != nil {
			key = *r.ID
		}
		out[key] += r.Count
	}
	return out, nil
}

// categoryExists returns ErrCategoryNotFound unless id names a category.
func (s *Store) categoryExists(ctx context.Context, id primitive.ObjectID) error {
	err := s.categories.FindOne(ctx, bson.M{"_id": id},
		options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrCategoryNotFound
	}
	return err
}
