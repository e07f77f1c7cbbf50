// internal/app/store/theme/themestore.go
package themestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/stratasite/internal/app/system/theme"
	"github.com/dalemusser/stratasite/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrUnknownPreset is returned by ApplyPreset for a name with no preset.
var ErrUnknownPreset = errors.New("unknown theme preset")

// Store provides access to the singleton theme document.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("theme")}
}

// Get returns the saved theme, or theme.Default() when none has been saved.
func (s *Store) Get(ctx context.Context) (models.ThemeConfig, error) {
	var cfg models.ThemeConfig
	err := s.c.FindOne(ctx, bson.M{"singleton": true}).Decode(&cfg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return theme.Default(), nil
	}
	if err != nil {
		return models.ThemeConfig{}, err
	}
	return cfg, nil
}

// Editor identifies who saved the theme.
type Editor struct {
	ID   *primitive.ObjectID
	Name string
}

// Save normalizes and stores cfg. Callers validate with theme.Validate first.
func (s *Store) Save(ctx context.Context, cfg models.ThemeConfig, by Editor) (models.ThemeConfig, error) {
	cfg = theme.Normalize(cfg)
	now := time.Now().UTC()
	cfg.UpdatedAt = &now
	cfg.UpdatedByID = by.ID
	cfg.UpdatedByName = by.Name

	update := bson.M{
		"$set": bson.M{
			"singleton":       true,
			"preset":          cfg.Preset,
			"colors":          cfg.Colors,
			"fonts":           cfg.Fonts,
			"radius":          cfg.Radius,
			"mode":            cfg.Mode,
			"updated_at":      cfg.UpdatedAt,
			"updated_by_id":   cfg.UpdatedByID,
			"updated_by_name": cfg.UpdatedByName,
		},
		"$setOnInsert": bson.M{"_id": primitive.NewObjectID()},
	}
	if _, err := s.c.UpdateOne(ctx, bson.M{"singleton": true}, update, options.Update().SetUpsert(true)); err != nil {
		return models.ThemeConfig{}, err
	}
	return s.Get(ctx)
}

// ApplyPreset replaces the theme with the named preset.
func (s *Store) ApplyPreset(ctx context.Context, name string, by Editor) (models.ThemeConfig, error) {
	p, ok := theme.PresetByName(name)
	if !ok {
		return models.ThemeConfig{}, ErrUnknownPreset
	}
	return s.Save(ctx, p.Config(), by)
}

// Exists reports whether a theme has been saved.
func (s *Store) Exists(ctx context.Context) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"singleton": true})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
