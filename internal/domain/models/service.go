package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Service is a service offering shown on the services page.
type Service struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title     string             `bson:"title" json:"title"`
	TitleCI   string             `bson:"title_ci" json:"-"`
	Slug      string             `bson:"slug" json:"slug"`
	Summary   string             `bson:"summary,omitempty" json:"summary,omitempty"`
	Content   string             `bson:"content,omitempty" json:"content,omitempty"`
	Icon      string             `bson:"icon,omitempty" json:"icon,omitempty"` // icon name from the site's icon set
	Features  []string           `bson:"features,omitempty" json:"features,omitempty"`
	Image     MediaRef           `bson:"image" json:"image"`
	Published bool               `bson:"published" json:"published"`
	Order     int                `bson:"order" json:"order"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}
