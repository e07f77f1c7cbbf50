// Package settingsstore persists the single site_settings document.
package settingsstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/stratasite/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const Collection = "site_settings"

// There is at most one settings document; it is found by this marker
// rather than a fixed _id.
var singleton = bson.M{"singleton": true}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Defaults returns the settings used before an admin saves any.
func Defaults() models.SiteSettings {
	return models.SiteSettings{
		SiteName:   models.DefaultSiteName,
		FooterHTML: models.DefaultFooterHTML,
	}
}

// Get returns the saved settings, or Defaults when nothing is saved yet.
func (s *Store) Get(ctx context.Context) (*models.SiteSettings, error) {
	var out models.SiteSettings
	err := s.c.FindOne(ctx, singleton).Decode(&out)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		out = Defaults()
	case err != nil:
		return nil, err
	}
	return &out, nil
}

// Save replaces every editable field and stamps updated_at.
func (s *Store) Save(ctx context.Context, in models.SiteSettings) error {
	return s.upsert(ctx, bson.M{
		"site_name":       in.SiteName,
		"tagline":         in.Tagline,
		"logo":            in.Logo,
		"contact_email":   in.ContactEmail,
		"social_links":    in.SocialLinks,
		"footer_html":     in.FooterHTML,
		"updated_by_id":   in.UpdatedByID,
		"updated_by_name": in.UpdatedByName,
	}, nil)
}

// SetLogo changes only the logo. A zero MediaRef removes it. When no
// settings exist yet the rest of the document starts from Defaults.
func (s *Store) SetLogo(ctx context.Context, logo models.MediaRef) error {
	d := Defaults()
	return s.upsert(ctx, bson.M{"logo": logo}, bson.M{
		"site_name":   d.SiteName,
		"footer_html": d.FooterHTML,
	})
}

func (s *Store) upsert(ctx context.Context, set, onInsert bson.M) error {
	set["singleton"] = true
	set["updated_at"] = time.Now().UTC()

	insert := bson.M{"_id": primitive.NewObjectID()}
	for k, v := range onInsert {
		insert[k] = v
	}
	_, err := s.c.UpdateOne(ctx, singleton,
		bson.M{"$set": set, "$setOnInsert": insert},
		options.Update().SetUpsert(true))
	return err
}

// Exists reports whether settings have ever been saved.
func (s *Store) Exists(ctx context.Context) (bool, error) {
	n, err := s.c.CountDocuments(ctx, singleton, options.Count().SetLimit(1))
	return n > 0, err
}
