// internal/app/store/portfolio/items.go
package portfoliostore

import (
	"context"
	"errors"
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
	"go.uber.org/zap"
)

var (
	ErrDuplicateSlug = storeutil.ErrDuplicateSlug

	// ErrCategoryNotFound is returned when an item references a missing category.
	ErrCategoryNotFound = errors.New("portfolio category not found")
)

// Store provides access to portfolio items and their categories.
type Store struct {
	db         *mongo.Database
	items      *mongo.Collection
	categories *mongo.Collection
	log        *zap.Logger
}

// New creates a portfolio store.
func New(db *mongo.Database) *Store {
	return &Store{
		db:         db,
		items:      db.Collection("portfolio_items"),
		categories: db.Collection("portfolio_categories"),
		log:        zap.NewNop(),
	}
}

// WithLogger sets the logger used for transaction fallback warnings.
func (s *Store) WithLogger(l *zap.Logger) *Store {
	if l != nil {
		s.log = l
	}
	return s
}

// CreateInput holds the fields for creating a portfolio item.
type CreateInput struct {
	Title      string
	Slug       string
	CategoryID *primitive.ObjectID
	Summary    string
	Content    string
	Client     string
	ProjectURL string
	Tags       []string
	Cover      models.MediaRef
	Gallery    []models.MediaRef
	Featured   bool
	Published  bool
}

// Create inserts an item at the end of the list.
func (s *Store) Create(ctx context.Context, in CreateInput) (models.PortfolioItem, error) {
	if in.CategoryID != nil {
		if err := s.categoryExists(ctx, *in.CategoryID); err != nil {
			return models.PortfolioItem{}, err
		}
	}
	title := normalize.Name(in.Title)
	sl, err := storeutil.ResolveSlug(ctx, s.items, in.Slug, title, primitive.NilObjectID)
	if err != nil {
		return models.PortfolioItem{}, err
	}
	order, err := storeutil.NextOrder(ctx, s.items, nil)
	if err != nil {
		return models.PortfolioItem{}, err
	}

	now := time.Now().UTC()
	it := models.PortfolioItem{
		ID:         primitive.NewObjectID(),
		Title:      title,
		TitleCI:    text.Fold(title),
		Slug:       sl,
		CategoryID: in.CategoryID,
		Summary:    in.Summary,
		Content:    in.Content,
		Client:     in.Client,
		ProjectURL: in.ProjectURL,
		Tags:       storeutil.CleanTags(in.Tags),
		Cover:      in.Cover,
		Gallery:    in.Gallery,
		Featured:   in.Featured,
		Published:  in.Published,
		Order:      order,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := s.items.InsertOne(ctx, it); err != nil {
		if wafflemongo.IsDup(err) {
			return models.PortfolioItem{}, ErrDuplicateSlug
		}
		return models.PortfolioItem{}, err
	}
	return it, nil
}

// GetByID loads an item by ID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.PortfolioItem, error) {
	var it models.PortfolioItem
	if err := s.items.FindOne(ctx, bson.M{"_id": id}).Decode(&it); err != nil {
		return nil, err
	}
	return &it, nil
}

// GetBySlug loads an item by slug. publishedOnly hides drafts.
func (s *Store) GetBySlug(ctx context.Context, slug string, publishedOnly bool) (*models.PortfolioItem, error) {
	filter := bson.M{"slug": slug}
	if publishedOnly {
		filter["published"] = true
	}
	var it models.PortfolioItem
	if err := s.items.FindOne(ctx, filter).Decode(&it); err != nil {
		return nil, err
	}
	return &it, nil
}

// ListFilter narrows List and Count. Zero values mean "any".
type ListFilter struct {
	PublishedOnly bool
	FeaturedOnly  bool
	CategoryID    *primitive.ObjectID
	Tag           string
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
	if f.CategoryID != nil {
		q["category_id"] = *f.CategoryID
	}
	if f.Tag != "" {
		q["tags"] = strings.ToLower(strings.TrimSpace(f.Tag))
	}
	if f.Search != "" {
		q["title_ci"] = storeutil.FoldedContains(f.Search)
	}
	return q
}

// List returns one page of items in display order plus the total count.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.PortfolioItem, int64, error) {
	q := f.query()
	total, err := s.items.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	cur, err := s.items.Find(ctx, q, storeutil.Paginate(f.Limit, f.Page).SetSort(storeutil.OrderSort()))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var out []models.PortfolioItem
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Count returns the number of items matching f.
func (s *Store) Count(ctx context.Context, f ListFilter) (int64, error) {
	return s.items.CountDocuments(ctx, f.query())
}

// UpdateInput holds optional item fields; nil means unchanged.
type UpdateInput struct {
	Title      *string
	Slug       *string
	CategoryID *primitive.ObjectID
	// ClearCategory detaches the item from its category.
	ClearCategory bool
	Summary       *string
	Content       *string
	Client        *string
	ProjectURL    *string
	Tags          *[]string
	Cover         *models.MediaRef
	Gallery       *[]models.MediaRef
	Featured      *bool
	Published     *bool
}

// Update applies the non-nil fields.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, in UpdateInput) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	update := bson.M{}

	if in.Title != nil {
		title := normalize.Name(*in.Title)
		set["title"] = title
		set["title_ci"] = text.Fold(title)
	}
	if in.Slug != nil {
		sl, err := storeutil.ResolveSlug(ctx, s.items, *in.Slug, "", id)
		if err != nil {
			return err
		}
		set["slug"] = sl
	}
	switch {
	case in.ClearCategory:
		update["$unset"] = bson.M{"category_id": ""}
	case in.CategoryID != nil:
		if err := s.categoryExists(ctx, *in.CategoryID); err != nil {
			return err
		}
		set["category_id"] = *in.CategoryID
	}
	if in.Summary != nil {
		set["summary"] = *in.Summary
	}
	if in.Content != nil {
		set["content"] = *in.Content
	}
	if in.Client != nil {
		set["client"] = *in.Client
	}
	if in.ProjectURL != nil {
		set["project_url"] = *in.ProjectURL
	}
	if in.Tags != nil {
		set["tags"] = storeutil.CleanTags(*in.Tags)
	}
	if in.Cover != nil {
		set["cover"] = *in.Cover
	}
	if in.Gallery != nil {
		set["gallery"] = *in.Gallery
	}
	if in.Featured != nil {
		set["featured"] = *in.Featured
	}
	if in.Published != nil {
		set["published"] = *in.Published
	}
	update["$set"] = set

	res, err := s.items.UpdateOne(ctx, bson.M{"_id": id}, update)
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

// Delete removes an item. Returns mongo.ErrNoDocuments if it did not exist.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.items.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Reorder sets each item's order to its index in ids.
func (s *Store) Reorder(ctx context.Context, ids []primitive.ObjectID) error {
	_, err := storeutil.Reorder(ctx, s.items, ids)
	return err
}
