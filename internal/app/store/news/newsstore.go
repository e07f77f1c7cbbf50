// internal/app/store/news/newsstore.go
package newsstore

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/dalemusser/stratasite/internal/app/store/storeutil"
	"github.com/dalemusser/stratasite/internal/app/system/htmltrunc"
	"github.com/dalemusser/stratasite/internal/app/system/normalize"
	"github.com/dalemusser/stratasite/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ExcerptLength is the number of text runes kept when an excerpt is
// generated from the article content.
const ExcerptLength = 200

var (
	ErrDuplicateSlug = storeutil.ErrDuplicateSlug
	ErrBadStatus     = errors.New("invalid news status")
)

// Store provides access to news articles.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("news")}
}

// CreateInput holds the fields for a new article. Status defaults to draft.
type CreateInput struct {
	Title    string
	Slug     string
	Excerpt  string
	Content  string
	Cover    models.MediaRef
	Author   string
	AuthorID *primitive.ObjectID
	Tags     []string
	Status   string
}

func excerptFor(excerpt, content string) string {
	if excerpt != "" {
		return excerpt
	}
	return htmltrunc.Truncate(content, ExcerptLength, htmltrunc.Ellipsis)
}

func (s *Store) Create(ctx context.Context, in CreateInput) (models.NewsArticle, error) {
	st := in.Status
	if st == "" {
		st = models.NewsStatusDraft
	}
	if !models.IsValidNewsStatus(st) {
		return models.NewsArticle{}, ErrBadStatus
	}
	title := normalize.Name(in.Title)
	sl, err := storeutil.ResolveSlug(ctx, s.c, in.Slug, title, primitive.NilObjectID)
	if err != nil {
		return models.NewsArticle{}, err
	}

	now := time.Now().UTC()
	a := models.NewsArticle{
		ID:        primitive.NewObjectID(),
		Title:     title,
		TitleCI:   text.Fold(title),
		Slug:      sl,
		Excerpt:   excerptFor(in.Excerpt, in.Content),
		Content:   in.Content,
		Cover:     in.Cover,
		Author:    normalize.Name(in.Author),
		AuthorID:  in.AuthorID,
		Tags:      storeutil.CleanTags(in.Tags),
		Status:    st,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if st == models.NewsStatusPublished {
		a.PublishedAt = &now
	}
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		if wafflemongo.IsDup(err) {
			return models.NewsArticle{}, ErrDuplicateSlug
		}
		return models.NewsArticle{}, err
	}
	return a, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.NewsArticle, error) {
	var a models.NewsArticle
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetBySlug loads an article by slug. publishedOnly hides drafts.
func (s *Store) GetBySlug(ctx context.Context, slug string, publishedOnly bool) (*models.NewsArticle, error) {
	filter := bson.M{"slug": slug}
	if publishedOnly {
		filter["status"] = models.NewsStatusPublished
	}
	var a models.NewsArticle
	if err := s.c.FindOne(ctx, filter).Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListFilter narrows List and Count. PublishedOnly wins over Status.
type ListFilter struct {
	PublishedOnly bool
	Status        string
	Tag           string
	Search        string
	Page          int64
	Limit         int64
}

func (f ListFilter) query() bson.M {
	q := bson.M{}
	switch {
	case f.PublishedOnly:
		q["status"] = models.NewsStatusPublished
	case f.Status != "":
		q["status"] = f.Status
	}
	if tags := storeutil.CleanTags([]string{f.Tag}); tags != nil {
		q["tags"] = tags[0]
	}
	if f.Search != "" {
		q["title_ci"] = storeutil.FoldedContains(f.Search)
	}
	return q
}

// List returns one page of articles, newest publication first. Drafts have
// no published_at and sort after published articles by creation time.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.NewsArticle, int64, error) {
	q := f.query()
	total, err := s.c.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	order := bson.D{
		{Key: "published_at", Value: -1},
		{Key: "created_at", Value: -1},
		{Key: "_id", Value: -1},
	}
	cur, err := s.c.Find(ctx, q, storeutil.Paginate(f.Limit, f.Page).SetSort(order))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var out []models.NewsArticle
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Store) Count(ctx context.Context, f ListFilter) (int64, error) {
	return s.c.CountDocuments(ctx, f.query())
}

// UpdateInput holds optional fields; nil means unchanged. Status changes go
// through Publish and Unpublish.
type UpdateInput struct {
	Title   *string
	Slug    *string
	Excerpt *string
	Content *string
	Cover   *models.MediaRef
	Author  *string
	Tags    *[]string
}

// Update applies the non-nil fields. Setting a blank excerpt regenerates it
// from the new content, or from the stored content when Content is nil.
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
	if in.Content != nil {
		set["content"] = *in.Content
	}
	if in.Excerpt != nil {
		content := ""
		switch {
		case *in.Excerpt != "":
		case in.Content != nil:
			content = *in.Content
		default:
			cur, err := s.GetByID(ctx, id)
			if err != nil {
				return err
			}
			content = cur.Content
		}
		set["excerpt"] = excerptFor(*in.Excerpt, content)
	}
	if in.Cover != nil {
		set["cover"] = *in.Cover
	}
	if in.Author != nil {
		set["author"] = normalize.Name(*in.Author)
	}
	if in.Tags != nil {
		set["tags"] = storeutil.CleanTags(*in.Tags)
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

// Publish marks an article published. The first publication time is kept
// when an already published article is published again.
func (s *Store) Publish(ctx context.Context, id primitive.ObjectID) error {
	now := time.Now().UTC()
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"status":       models.NewsStatusPublished,
			"published_at": bson.M{"$ifNull": bson.A{"$published_at", now}},
			"updated_at":   now,
		}}},
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, pipeline)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Unpublish returns an article to draft and clears its publication time.
func (s *Store) Unpublish(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set":   bson.M{"status": models.NewsStatusDraft, "updated_at": time.Now().UTC()},
		"$unset": bson.M{"published_at": ""},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// IncrementViews bumps the view counter of a published article.
func (s *Store) IncrementViews(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.NewsStatusPublished},
		bson.M{"$inc": bson.M{"views": 1}})
	if err != nil {
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

// Tags returns the distinct tags used by published articles.
func (s *Store) Tags(ctx context.Context) ([]string, error) {
	vals, err := s.c.Distinct(ctx, "tags", bson.M{"status": models.NewsStatusPublished})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if str, ok := v.(string); ok && str != "" {
			out = append(out, str)
		}
	}
	sort.Strings(out)
	return out, nil
}
