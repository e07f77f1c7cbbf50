package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PortfolioCategory groups portfolio items on the public site.
type PortfolioCategory struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Slug        string             `bson:"slug" json:"slug"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Order       int                `bson:"order" json:"order"`
	Active      bool               `bson:"active" json:"active"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// PortfolioItem is a showcased project.
// CategoryID is optional; items whose category was deleted have none.
type PortfolioItem struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title      string              `bson:"title" json:"title"`
	TitleCI    string              `bson:"title_ci" json:"-"`
	Slug       string              `bson:"slug" json:"slug"`
	CategoryID *primitive.ObjectID `bson:"category_id,omitempty" json:"category_id,omitempty"`
	Summary    string              `bson:"summary,omitempty" json:"summary,omitempty"`
	Content    string              `bson:"content,omitempty" json:"content,omitempty"` // sanitized HTML
	Client     string              `bson:"client,omitempty" json:"client,omitempty"`
	ProjectURL string              `bson:"project_url,omitempty" json:"project_url,omitempty"`
	Tags       []string            `bson:"tags,omitempty" json:"tags,omitempty"`
	Cover      MediaRef            `bson:"cover" json:"cover"`
	Gallery    []MediaRef          `bson:"gallery,omitempty" json:"gallery,omitempty"`
	Featured   bool                `bson:"featured" json:"featured"`
	Published  bool                `bson:"published" json:"published"`
	Order      int                 `bson:"order" json:"order"`
	CreatedAt  time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time           `bson:"updated_at" json:"updated_at"`
}
