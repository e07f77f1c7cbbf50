// Package mediastore stores the media library records that describe
// uploaded objects.
package mediastore

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/dalemusser/stratasite/internal/app/store/storeutil"
	"github.com/dalemusser/stratasite/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store provides access to the media collection.
type Store struct {
	c *mongo.Collection
}

// New creates a new media store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("media")}
}

// CreateInput contains the input for recording an upload.
type CreateInput struct {
	Ref         models.MediaRef
	Folder      string // derived from Ref.ContentType when blank
	CreatedByID primitive.ObjectID
}

// Create records an uploaded object.
func (s *Store) Create(ctx context.Context, input CreateInput) (*models.Media, error) {
	folder := input.Folder
	if folder == "" {
		folder = FolderFor(input.Ref.ContentType)
	}
	m := models.Media{
		ID:          primitive.NewObjectID(),
		MediaRef:    input.Ref,
		NameCI:      text.Fold(input.Ref.Name),
		Folder:      folder,
		CreatedAt:   time.Now().UTC(),
		CreatedByID: input.CreatedByID,
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByID retrieves a media record by ID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Media, error) {
	var m models.Media
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateInput contains the editable metadata of a media record.
type UpdateInput struct {
	Name *string
	Alt  *string
}

// Update changes the display name or alt text. The stored object is not touched.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, input UpdateInput) error {
	set := bson.M{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		set["name"] = name
		set["name_ci"] = text.Fold(name)
	}
	if input.Alt != nil {
		set["alt"] = strings.TrimSpace(*input.Alt)
	}
	if len(set) == 0 {
		return nil
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

// Delete removes a media record.
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

// ListFilter narrows List and Count.
type ListFilter struct {
	Folder      string
	ContentType string // prefix match, e.g. "image/"
	Search      string // matches the folded file name
	Page        int64
	Limit       int64
}

func (f ListFilter) query() bson.M {
	q := bson.M{}
	if f.Folder != "" {
		q["folder"] = f.Folder
	}
	if f.ContentType != "" {
		q["content_type"] = bson.M{"$regex": "^" + regexp.QuoteMeta(f.ContentType)}
	}
	if f.Search != "" {
		q["name_ci"] = storeutil.FoldedContains(f.Search)
	}
	return q
}

// List returns one page of media, newest first, plus the total count.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Media, int64, error) {
	q := f.query()
	total, err := s.c.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	opts := storeutil.Paginate(f.Limit, f.Page).
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var out []models.Media
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Count returns the number of records matching f.
func (s *Store) Count(ctx context.Context, f ListFilter) (int64, error) {
	return s.c.CountDocuments(ctx, f.query())
}

// ForEach calls fn for every record, oldest first, stopping at the first error.
func (s *Store) ForEach(ctx context.Context, fn func(models.Media) error) error {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var m models.Media
		if err := cur.Decode(&m); err != nil {
			return err
		}
		if err := fn(m); err != nil {
			return err
		}
	}
	return cur.Err()
}

// FolderFor returns the library folder for a content type. Only images and
// 3D assets are accepted for upload, so anything that is not an image is a
// model (USDZ often arrives as application/octet-stream).
func FolderFor(contentType string) string {
	if strings.HasPrefix(contentType, "image/") {
		return models.MediaFolderImages
	}
	return models.MediaFolderModels
}
