package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// About holds the About page content. Several versions may exist but only
// one is active and shown publicly.
type About struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title     string             `bson:"title" json:"title"`
	Subtitle  string             `bson:"subtitle,omitempty" json:"subtitle,omitempty"`
	Content   string             `bson:"content" json:"content"`
	Mission   string             `bson:"mission,omitempty" json:"mission,omitempty"`
	Vision    string             `bson:"vision,omitempty" json:"vision,omitempty"`
	Values    []string           `bson:"values,omitempty" json:"values,omitempty"`
	Stats     []AboutStat        `bson:"stats,omitempty" json:"stats,omitempty"`
	Team      []TeamMember       `bson:"team,omitempty" json:"team,omitempty"`
	Image     MediaRef           `bson:"image" json:"image"`
	Active    bool               `bson:"active" json:"active"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// AboutStat is a headline number such as "120+ projects".
type AboutStat struct {
	Label string `bson:"label" json:"label"`
	Value string `bson:"value" json:"value"`
}

// TeamMember is a person shown in the About team grid.
type TeamMember struct {
	Name     string   `bson:"name" json:"name"`
	Position string   `bson:"position,omitempty" json:"position,omitempty"`
	Bio      string   `bson:"bio,omitempty" json:"bio,omitempty"`
	Photo    MediaRef `bson:"photo" json:"photo"`
}
