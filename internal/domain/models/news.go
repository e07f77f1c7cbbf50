package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NewsArticle is a news or blog post.
type NewsArticle struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title       string              `bson:"title" json:"title"`
	TitleCI     string              `bson:"title_ci" json:"-"`
	Slug        string              `bson:"slug" json:"slug"`
	Excerpt     string              `bson:"excerpt,omitempty" json:"excerpt,omitempty"` // HTML, tag-balanced
	Content     string              `bson:"content" json:"content"`
	Cover       MediaRef            `bson:"cover" json:"cover"`
	Author      string              `bson:"author,omitempty" json:"author,omitempty"`
	AuthorID    *primitive.ObjectID `bson:"author_id,omitempty" json:"author_id,omitempty"`
	Tags        []string            `bson:"tags,omitempty" json:"tags,omitempty"`
	Status      string              `bson:"status" json:"status"`
	PublishedAt *time.Time          `bson:"published_at,omitempty" json:"published_at,omitempty"`
	Views       int64               `bson:"views" json:"views"`
	CreatedAt   time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `bson:"updated_at" json:"updated_at"`
}

// News statuses
const (
	NewsStatusDraft     = "draft"
	NewsStatusPublished = "published"
)

// IsValidNewsStatus checks if a status is valid.
func IsValidNewsStatus(s string) bool {
	return s == NewsStatusDraft || s == NewsStatusPublished
}
