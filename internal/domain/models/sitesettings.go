package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SiteSettings is the singleton document behind GET /api/settings.
type SiteSettings struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	SiteName     string             `bson:"site_name" json:"site_name"`
	Tagline      string             `bson:"tagline,omitempty" json:"tagline,omitempty"`
	Logo         MediaRef           `bson:"logo" json:"logo"`
	ContactEmail string             `bson:"contact_email,omitempty" json:"contact_email,omitempty"` // blank: no notification email
	SocialLinks  []SocialLink       `bson:"social_links,omitempty" json:"social_links,omitempty"`
	FooterHTML   string             `bson:"footer_html,omitempty" json:"footer_html,omitempty"` // sanitized on save

	UpdatedAt     *time.Time          `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
	UpdatedByID   *primitive.ObjectID `bson:"updated_by_id,omitempty" json:"updated_by_id,omitempty"`
	UpdatedByName string              `bson:"updated_by_name,omitempty" json:"updated_by_name,omitempty"`
}

// SocialLink is a footer/social icon link.
type SocialLink struct {
	Network string `bson:"network" json:"network"` // facebook, instagram, linkedin, x, youtube, github
	URL     string `bson:"url" json:"url"`
}

func (s *SiteSettings) HasLogo() bool { return !s.Logo.IsZero() }

// Served until an admin saves settings for the first time.
const (
	DefaultSiteName   = "StrataSite"
	DefaultFooterHTML = "&copy; StrataSite. All rights reserved."
)
