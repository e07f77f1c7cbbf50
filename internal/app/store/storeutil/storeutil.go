// internal/app/store/storeutil/storeutil.go
package storeutil

import (
	"context"
	"errors"
	"math"
	"regexp"
	"strings"

	"github.com/dalemusser/stratasite/internal/app/system/slug"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrDuplicateSlug is returned when an explicit slug is already used
	// by another document in the same collection.
	ErrDuplicateSlug = errors.New("slug is already in use")
	// ErrInvalidSlug is returned when an explicit slug normalizes to nothing.
	ErrInvalidSlug = errors.New("slug must contain letters or digits")
)

// Paginate returns *options.FindOptions with skip/limit given a 1-based page.
func Paginate(limit, page int64) *options.FindOptions {
	if limit <= 0 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	// Keep (page-1)*limit inside int64.
	if page > math.MaxInt64/limit {
		page = math.MaxInt64 / limit
	}
	sk := (page - 1) * limit
	return options.Find().SetLimit(limit).SetSkip(sk)
}

// OrderSort is the sort used by every ordered collection: order ascending,
// newest first among equal orders.
func OrderSort() bson.D {
	return bson.D{{Key: "order", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}
}

// FoldedContains builds a case/diacritic-insensitive substring match for a
// *_ci field. Regex metacharacters in s are matched literally.
func FoldedContains(s string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(text.Fold(s))}
}

// SlugTaken reports whether slug is used in c by a document other than exclude.
func SlugTaken(ctx context.Context, c *mongo.Collection, s string, exclude primitive.ObjectID) (bool, error) {
	filter := bson.M{"slug": s}
	if !exclude.IsZero() {
		filter["_id"] = bson.M{"$ne": exclude}
	}
	n, err := c.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ResolveSlug picks the slug for a new or renamed document.
//
// An explicit slug is normalized and must be free (ErrDuplicateSlug otherwise).
// A blank slug is derived from title and suffixed -2, -3, ... until free.
func ResolveSlug(ctx context.Context, c *mongo.Collection, explicit, title string, exclude primitive.ObjectID) (string, error) {
	if explicit != "" {
		s := slug.Make(explicit)
		if s == "" {
			return "", ErrInvalidSlug
		}
		taken, err := SlugTaken(ctx, c, s, exclude)
		if err != nil {
			return "", err
		}
		if taken {
			return "", ErrDuplicateSlug
		}
		return s, nil
	}
	return slug.Unique(ctx, slug.Make(title), func(ctx context.Context, s string) (bool, error) {
		return SlugTaken(ctx, c, s, exclude)
	})
}

// Reorder sets order = index for each id in one bulk write. Unknown ids are
// ignored. Returns the number of documents modified.
func Reorder(ctx context.Context, c *mongo.Collection, ids []primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	writes := make([]mongo.WriteModel, 0, len(ids))
	for i, id := range ids {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": id}).
			SetUpdate(bson.M{"$set": bson.M{"order": i}}))
	}
	res, err := c.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// NextOrder returns one past the highest order in c matching filter, so new
// documents land at the end of the list.
func NextOrder(ctx context.Context, c *mongo.Collection, filter bson.M) (int, error) {
	if filter == nil {
		filter = bson.M{}
	}
	var doc struct {
		Order int `bson:"order"`
	}
	opts := options.FindOne().
		SetSort(bson.D{{Key: "order", Value: -1}}).
		SetProjection(bson.M{"order": 1})
	err := c.FindOne(ctx, filter, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return doc.Order + 1, nil
}

// CleanTags trims, lowercases and de-duplicates tags, dropping empties.
// Order of first appearance is kept.
func CleanTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
