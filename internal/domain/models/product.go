package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product is an offering listed on the products page.
// Price is in minor units (cents) to avoid float rounding.
type Product struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	NameCI    string             `bson:"name_ci" json:"-"`
	Slug      string             `bson:"slug" json:"slug"`
	Summary   string             `bson:"summary,omitempty" json:"summary,omitempty"`
	Content   string             `bson:"content,omitempty" json:"content,omitempty"`
	Price     int64              `bson:"price" json:"price"`
	Currency  string             `bson:"currency" json:"currency"`
	Features  []string           `bson:"features,omitempty" json:"features,omitempty"`
	Image     MediaRef           `bson:"image" json:"image"`
	Featured  bool               `bson:"featured" json:"featured"`
	Published bool               `bson:"published" json:"published"`
	Order     int                `bson:"order" json:"order"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// DefaultCurrency is used when a product is saved without one.
const DefaultCurrency = "USD"
