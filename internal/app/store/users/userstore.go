// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/dalemusser/stratasite/internal/app/store/storeutil"
	"github.com/dalemusser/stratasite/internal/app/system/normalize"
	"github.com/dalemusser/stratasite/internal/app/system/status"
	"github.com/dalemusser/stratasite/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var (
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	ErrLastAdmin      = errors.New("cannot remove the last active admin")
	ErrBadRole        = errors.New("invalid role")
	ErrBadStatus      = errors.New(`status must be "active"|"disabled"`)
	ErrBadAuthMethod  = errors.New("invalid auth method")
	ErrEmailRequired  = errors.New("email is required")
)

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByIDs loads the users with the given ids. Missing ids are skipped.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByEmail looks up a user by email address (case-insensitive).
// Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateInput holds the fields for creating a new user.
type CreateInput struct {
	FullName     string
	Email        string
	AuthMethod   string
	Role         string
	Status       string
	PasswordHash *string
	PasswordTemp *bool
}

// Create inserts a new user after normalizing & validating fields.
func (s *Store) Create(ctx context.Context, in CreateInput) (models.User, error) {
	u := models.User{
		ID:           primitive.NewObjectID(),
		FullName:     normalize.Name(in.FullName),
		Email:        normalize.Email(in.Email),
		AuthMethod:   normalize.AuthMethod(in.AuthMethod),
		Role:         normalize.Role(in.Role),
		Status:       normalize.Status(in.Status),
		PasswordHash: in.PasswordHash,
		PasswordTemp: in.PasswordTemp,
	}
	u.FullNameCI = text.Fold(u.FullName)

	if u.Email == "" {
		return models.User{}, ErrEmailRequired
	}
	if u.AuthMethod == "" {
		u.AuthMethod = "password"
	}
	if u.Status == "" {
		u.Status = status.Default()
	}
	if !models.IsValidRole(u.Role) {
		return models.User{}, ErrBadRole
	}
	if !status.IsValid(u.Status) {
		return models.User{}, ErrBadStatus
	}
	if !models.IsValidAuthMethod(u.AuthMethod) {
		return models.User{}, ErrBadAuthMethod
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// ListFilter narrows List. Zero values mean "any".
type ListFilter struct {
	Search string // matched against name and email
	Role   string
	Status string
	Page   int64
	Limit  int64
}

func (f ListFilter) query() bson.M {
	q := bson.M{}
	if f.Role != "" {
		q["role"] = normalize.Role(f.Role)
	}
	if f.Status != "" {
		q["status"] = normalize.Status(f.Status)
	}
	if f.Search != "" {
		pat := regexp.QuoteMeta(text.Fold(f.Search))
		q["$or"] = bson.A{
			bson.M{"full_name_ci": bson.M{"$regex": pat}},
			bson.M{"email": bson.M{"$regex": regexp.QuoteMeta(normalize.Email(f.Search))}},
		}
	}
	return q
}

// List returns one page of users sorted by name, plus the total match count.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.User, int64, error) {
	q := f.query()
	total, err := s.c.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	opts := storeutil.Paginate(f.Limit, f.Page).
		SetSort(bson.D{{Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// UpdateInput holds the optional fields for updating a user.
// All fields are pointers - nil means "don't update this field".
type UpdateInput struct {
	FullName     *string
	Email        *string
	AuthMethod   *string
	Role         *string
	Status       *string
	PasswordHash *string
	PasswordTemp *bool

	// ClearPassword removes any stored password (e.g. switching to google).
	ClearPassword bool
}

// Update applies the non-nil fields in input.
// Returns ErrDuplicateEmail if the email belongs to another user.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, in UpdateInput) error {
	set := bson.M{"updated_at": time.Now().UTC()}

	if in.FullName != nil {
		name := normalize.Name(*in.FullName)
		set["full_name"] = name
		set["full_name_ci"] = text.Fold(name)
	}
	if in.Email != nil {
		email := normalize.Email(*in.Email)
		if email == "" {
			return ErrEmailRequired
		}
		set["email"] = email
	}
	if in.AuthMethod != nil {
		m := normalize.AuthMethod(*in.AuthMethod)
		if !models.IsValidAuthMethod(m) {
			return ErrBadAuthMethod
		}
		set["auth_method"] = m
	}
	if in.Role != nil {
		r := normalize.Role(*in.Role)
		if !models.IsValidRole(r) {
			return ErrBadRole
		}
		set["role"] = r
	}
	if in.Status != nil {
		st := normalize.Status(*in.Status)
		if !status.IsValid(st) {
			return ErrBadStatus
		}
		set["status"] = st
	}

	update := bson.M{}
	if in.ClearPassword {
		update["$unset"] = bson.M{"password_hash": "", "password_temp": ""}
	} else {
		if in.PasswordHash != nil {
			set["password_hash"] = *in.PasswordHash
		}
		if in.PasswordTemp != nil {
			set["password_temp"] = *in.PasswordTemp
		}
	}
	update["$set"] = set

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// UpdatePassword stores a new password hash. temp marks it as one the
// user must change at next sign-in.
func (s *Store) UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string, temp bool) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"password_hash": passwordHash,
		"password_temp": temp,
		"updated_at":    time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetStatus enables or disables a user.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, st string) error {
	st = normalize.Status(st)
	if !status.IsValid(st) {
		return ErrBadStatus
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"status":     st,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// TouchLogin records a successful sign-in.
func (s *Store) TouchLogin(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"last_login_at": time.Now().UTC(),
	}})
	return err
}

// Delete deletes a user by ID.
// Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// CountActiveAdmins returns the number of users with role=admin and status=active.
func (s *Store) CountActiveAdmins(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"role":   models.RoleAdmin,
		"status": status.Active,
	})
}

// Count returns the number of users matching the given filter.
func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	if filter == nil {
		filter = bson.M{}
	}
	return s.c.CountDocuments(ctx, filter)
}

// IsLastActiveAdmin reports whether u is the only active admin left.
// Handlers call it before deleting, disabling or demoting u.
func (s *Store) IsLastActiveAdmin(ctx context.Context, u *models.User) (bool, error) {
	if u.Role != models.RoleAdmin || u.Status != status.Active {
		return false, nil
	}
	n, err := s.CountActiveAdmins(ctx)
	if err != nil {
		return false, err
	}
	return n <= 1, nil
}

// EmailExistsForOther checks if an email already belongs to a user other than excludeID.
func (s *Store) EmailExistsForOther(ctx context.Context, email string, excludeID primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{
		"email": normalize.Email(email),
		"_id":   bson.M{"$ne": excludeID},
	}, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	return false, err
}
