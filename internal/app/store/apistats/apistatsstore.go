// Package apistats stores hourly request counters for the API key
// endpoints (the export API).
package apistats

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the MongoDB collection for API statistics.
const CollectionName = "api_stats"

// BucketDuration is the aggregation window of one Bucket.
const BucketDuration = time.Hour

// Bucket is one endpoint's counters for one hour.
type Bucket struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Bucket    time.Time          `bson:"bucket"`   // start of the hour, UTC
	Endpoint  string             `bson:"endpoint"` // e.g. "export:products"
	Requests  int64              `bson:"requests"`
	Errors    int64              `bson:"errors"` // 4xx and 5xx
	TotalMs   int64              `bson:"total_ms"`
	MaxMs     int64              `bson:"max_ms"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

// Store provides API statistics persistence.
type Store struct {
	c *mongo.Collection
}

// New creates a new API stats store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(CollectionName)}
}

// TruncateToBucket returns the start of t's bucket.
func TruncateToBucket(t time.Time) time.Time {
	return t.UTC().Truncate(BucketDuration)
}

// Record adds one request to the bucket containing at, creating the
// bucket if needed.
func (s *Store) Record(ctx context.Context, endpoint string, at time.Time, durationMs int64, isError bool) error {
	inc := bson.M{"requests": 1, "total_ms": durationMs}
	if isError {
		inc["errors"] = 1
	}
	bucket := TruncateToBucket(at)
	_, err := s.c.UpdateOne(ctx,
		bson.M{"bucket": bucket, "endpoint": endpoint},
		bson.M{
			"$inc":         inc,
			"$max":         bson.M{"max_ms": durationMs},
			"$set":         bson.M{"updated_at": time.Now().UTC()},
			"$setOnInsert": bson.M{"_id": primitive.NewObjectID()},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

// Summary totals one endpoint over a range.
type Summary struct {
	Endpoint string    `bson:"_id" json:"endpoint"`
	Requests int64     `bson:"requests" json:"requests"`
	Errors   int64     `bson:"errors" json:"errors"`
	TotalMs  int64     `bson:"total_ms" json:"-"`
	MaxMs    int64     `bson:"max_ms" json:"max_ms"`
	AvgMs    float64   `bson:"-" json:"avg_ms"`
	Last     time.Time `bson:"last" json:"last_bucket"`
}

// GetSummary totals every endpoint with buckets in [start, end], sorted by
// endpoint.
func (s *Store) GetSummary(ctx context.Context, start, end time.Time) ([]Summary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"bucket": bson.M{"$gte": start.UTC(), "$lte": end.UTC()}}}},
		{{Key: "$group", Value: bson.M{
			"_id":      "$endpoint",
			"requests": bson.M{"$sum": "$requests"},
			"errors":   bson.M{"$sum": "$errors"},
			"total_ms": bson.M{"$sum": "$total_ms"},
			"max_ms":   bson.M{"$max": "$max_ms"},
			"last":     bson.M{"$max": "$bucket"},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []Summary{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Requests > 0 {
			out[i].AvgMs = float64(out[i].TotalMs) / float64(out[i].Requests)
		}
	}
	return out, nil
}

// DeleteBefore removes buckets that started before cutoff.
func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"bucket": bson.M{"$lt": cutoff.UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
