package store

import (
	"context"
	"time"

	"github.com/linklab/linkhub/internal/model"
)

// CheckTarget is the projection the health verifier works on.
type CheckTarget struct {
	ID  uint
	URL string
}

type Store interface {
	LinkStore
	TagStore
	LinkImageStore
	Transaction(ctx context.Context, f func(tx Store) error) error
	Migrate() error
}

type LinkStore interface {
	// CreateLink creates a new link together with its tag associations.
	CreateLink(ctx context.Context, link *model.Link) error
	// GetLink retrieves a link by ID with its image and tags preloaded.
	GetLink(ctx context.Context, id uint) (*model.Link, error)
	// SaveLink persists link fields without touching associations.
	SaveLink(ctx context.Context, link *model.Link) error
	// HardDeleteLink removes the link row and its tag associations for good.
	HardDeleteLink(ctx context.Context, link *model.Link) error
	// SlugExists reports whether a link with the given slug exists.
	SlugExists(ctx context.Context, slug string) (bool, error)
	// ListCheckTargets retrieves id and url of every published link.
	ListCheckTargets(ctx context.Context) ([]CheckTarget, error)
	// UpdateVerification classifies the given ids in a single statement.
	// Links in neither set are left untouched.
	UpdateVerification(ctx context.Context, okIDs, badIDs []uint, checkedAt time.Time) error
}

type TagStore interface {
	// UpsertTags inserts missing tag rows (ignoring conflicts) and resolves
	// every referenced name to its row.
	UpsertTags(ctx context.Context, names []string) ([]model.Tag, error)
	// ReplaceLinkTags replaces the link's tag set with the given tags.
	ReplaceLinkTags(ctx context.Context, link *model.Link, tags []model.Tag) error
}

type LinkImageStore interface {
	// CreateLinkImage creates a new image record.
	CreateLinkImage(ctx context.Context, image *model.LinkImage) error
	// GetLinkImage retrieves an image record by ID.
	GetLinkImage(ctx context.Context, id uint) (*model.LinkImage, error)
	// DeleteLinkImage removes an image record.
	DeleteLinkImage(ctx context.Context, id uint) error
	// MarkImageReady flips the record to READY with the processed result.
	MarkImageReady(ctx context.Context, id uint, processedKey, url string, width, height int) error
	// MarkImageFailed flips the record to FAILED after retry exhaustion.
	MarkImageFailed(ctx context.Context, id uint) error
}
