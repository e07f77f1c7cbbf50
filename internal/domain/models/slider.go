package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Slider is one slide of the home page hero carousel.
type Slider struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title      string             `bson:"title" json:"title"`
	Subtitle   string             `bson:"subtitle,omitempty" json:"subtitle,omitempty"`
	Image      MediaRef           `bson:"image" json:"image"`
	ButtonText string             `bson:"button_text,omitempty" json:"button_text,omitempty"`
	ButtonLink string             `bson:"button_link,omitempty" json:"button_link,omitempty"`
	Active     bool               `bson:"active" json:"active"`
	Order      int                `bson:"order" json:"order"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}
