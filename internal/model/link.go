package model

import (
	"time"

	"gorm.io/gorm"
)

// Link lifecycle states.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// VerifiedBySystem marks trust fields written by the health verifier
// rather than an admin override.
const VerifiedBySystem = "system"

// Link is a published reference to an externally hosted resource.
type Link struct {
	gorm.Model
	Slug        string `gorm:"uniqueIndex;not null"`
	Title       string `gorm:"not null"`
	Description string
	URL         string `gorm:"not null"`
	Category    string `gorm:"index"`
	Status      string `gorm:"index;not null;default:draft"`

	// Trust fields, written only by the health verifier or an admin override.
	Verified      bool `gorm:"not null;default:false"`
	VerifiedAt    *time.Time
	VerifiedBy    *string
	LastCheckedAt *time.Time

	Tags      []Tag    `gorm:"many2many:link_tags;"`
	Audiences []string `gorm:"serializer:json"`
	Branches  []string `gorm:"serializer:json"`

	Image *LinkImage `gorm:"constraint:OnDelete:CASCADE"`
}

// Tag is a free-form label shared across links.
type Tag struct {
	gorm.Model
	Name string `gorm:"uniqueIndex;not null"`
}

func (t *Tag) TableName() string {
	return "tags"
}
