package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Model3D is an entry in the 3D model gallery.
// Model references a .glb/.gltf/.usdz asset; Poster is the still image
// shown while the viewer loads.
type Model3D struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	TitleCI     string             `bson:"title_ci" json:"-"`
	Slug        string             `bson:"slug" json:"slug"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Category    string             `bson:"category,omitempty" json:"category,omitempty"`
	Model       MediaRef           `bson:"model" json:"model"`
	Poster      MediaRef           `bson:"poster" json:"poster"`
	AutoRotate  bool               `bson:"auto_rotate" json:"auto_rotate"`
	CameraOrbit string             `bson:"camera_orbit,omitempty" json:"camera_orbit,omitempty"` // e.g. "45deg 55deg 2.5m"
	Published   bool               `bson:"published" json:"published"`
	Order       int                `bson:"order" json:"order"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}
