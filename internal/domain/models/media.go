package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MediaRef points at an uploaded object in file storage.
// Documents embed it wherever they show an image or a 3D asset.
type MediaRef struct {
	Path        string `bson:"path" json:"path"` // key in the storage backend
	URL         string `bson:"url" json:"url"`   // public URL at upload time
	Name        string `bson:"name,omitempty" json:"name,omitempty"`
	ContentType string `bson:"content_type,omitempty" json:"content_type,omitempty"`
	Size        int64  `bson:"size,omitempty" json:"size,omitempty"`
	Alt         string `bson:"alt,omitempty" json:"alt,omitempty"`
}

// IsZero reports whether no object is referenced.
func (m MediaRef) IsZero() bool {
	return m.Path == "" && m.URL == ""
}

// Media is a media library entry. Every upload gets one.
type Media struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MediaRef    `bson:",inline"`
	NameCI      string             `bson:"name_ci" json:"-"`
	Folder      string             `bson:"folder" json:"folder"` // images, models, documents
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	CreatedByID primitive.ObjectID `bson:"created_by_id" json:"created_by_id"`
}

// Media folders
const (
	MediaFolderImages = "images"
	MediaFolderModels = "models"
)
