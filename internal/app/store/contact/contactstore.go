// internal/app/store/contact/contactstore.go
package contactstore

import (
	"context"
	"strings"
	"time"

	"github.com/dalemusser/stratasite/internal/app/store/storeutil"
	"github.com/dalemusser/stratasite/internal/app/system/normalize"
	"github.com/dalemusser/stratasite/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Store provides access to contact form submissions.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("contact_messages")}
}

type CreateInput struct {
	Name    string
	Email   string
	Subject string
	Message string
	IP      string
}

// Create stores a submission as unread.
func (s *Store) Create(ctx context.Context, in CreateInput) (models.ContactMessage, error) {
	m := models.ContactMessage{
		ID:        primitive.NewObjectID(),
		Name:      normalize.Name(in.Name),
		Email:     normalize.Email(in.Email),
		Subject:   strings.TrimSpace(in.Subject),
		Message:   strings.TrimSpace(in.Message),
		IP:        in.IP,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.ContactMessage{}, err
	}
	return m, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.ContactMessage, error) {
	var m models.ContactMessage
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

type ListFilter struct {
	UnreadOnly bool
	Page       int64
	Limit      int64
}

// List returns one page of messages, newest first.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.ContactMessage, int64, error) {
	q := bson.M{}
	if f.UnreadOnly {
		q["read"] = false
	}
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

	var out []models.ContactMessage
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// SetRead marks a message read or unread.
func (s *Store) SetRead(ctx context.Context, id primitive.ObjectID, read bool) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"read": read}})
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

func (s *Store) CountUnread(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"read": false})
}

// CountSince returns how many messages ip sent since t. Used to throttle
// the public form.
func (s *Store) CountSince(ctx context.Context, ip string, t time.Time) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"ip": ip, "created_at": bson.M{"$gte": t}})
}
