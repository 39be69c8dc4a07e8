package model

import "gorm.io/gorm"

// LinkImage processing states.
const (
	ImagePending = "PENDING"
	ImageReady   = "READY"
	ImageFailed  = "FAILED"
)

// LinkImage is the image asset owned by a Link. The original is uploaded
// synchronously with the link; the processed rendition is written later by
// the image worker. While Status is PENDING, ProcessedKey is nil; READY
// implies both keys are set and URL points at the processed object.
type LinkImage struct {
	gorm.Model
	LinkID       uint   `gorm:"uniqueIndex;not null"`
	OriginalKey  string `gorm:"not null"`
	ProcessedKey *string
	URL          string
	Width        int
	Height       int
	Status       string `gorm:"not null;default:PENDING"`
}

func (i *LinkImage) TableName() string {
	return "link_images"
}
