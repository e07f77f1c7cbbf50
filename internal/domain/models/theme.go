package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ThemeConfig is the admin-editable look of the public site.
// There is a single document; it is rendered as CSS custom properties.
type ThemeConfig struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Preset string             `bson:"preset,omitempty" json:"preset,omitempty"`
	Colors ThemeColors        `bson:"colors" json:"colors"`
	Fonts  ThemeFonts         `bson:"fonts" json:"fonts"`
	Radius string             `bson:"radius" json:"radius"` // e.g. "8px"
	Mode   string             `bson:"mode" json:"mode"`     // light, dark

	UpdatedAt     *time.Time          `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
	UpdatedByID   *primitive.ObjectID `bson:"updated_by_id,omitempty" json:"updated_by_id,omitempty"`
	UpdatedByName string              `bson:"updated_by_name,omitempty" json:"updated_by_name,omitempty"`
}

// ThemeColors holds hex colors (#rgb or #rrggbb).
type ThemeColors struct {
	Primary    string `bson:"primary" json:"primary" yaml:"primary"`
	Secondary  string `bson:"secondary" json:"secondary" yaml:"secondary"`
	Accent     string `bson:"accent" json:"accent" yaml:"accent"`
	Background string `bson:"background" json:"background" yaml:"background"`
	Surface    string `bson:"surface" json:"surface" yaml:"surface"`
	Text       string `bson:"text" json:"text" yaml:"text"`
	Muted      string `bson:"muted" json:"muted" yaml:"muted"`
	Border     string `bson:"border" json:"border" yaml:"border"`
}

// ThemeFonts holds CSS font-family values.
type ThemeFonts struct {
	Heading string `bson:"heading" json:"heading" yaml:"heading"`
	Body    string `bson:"body" json:"body" yaml:"body"`
}

// Theme modes
const (
	ThemeModeLight = "light"
	ThemeModeDark  = "dark"
)
