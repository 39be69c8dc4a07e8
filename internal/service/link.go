package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/linklab/linkhub/internal/model"
	"github.com/linklab/linkhub/internal/queue"
	"github.com/linklab/linkhub/internal/storage"
	"github.com/linklab/linkhub/internal/store"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const originalPrefix = "links/original"

// NewLinkService creates a new LinkService.
func NewLinkService(store store.Store, gateway storage.Gateway, queue queue.Queue) *LinkService {
	return &LinkService{
		store:   store,
		storage: gateway,
		queue:   queue,
	}
}

// LinkService is the only writer of Link and LinkImage rows. It guarantees
// the two are created and updated as a unit and that a processing job is
// enqueued exactly once per new or replaced image.
type LinkService struct {
	store   store.Store
	storage storage.Gateway
	queue   queue.Queue
}

// CreateLink persists a new link inside a transaction, then uploads the
// original image and enqueues processing. The upload happens strictly after
// a committed id exists; if it fails, the link stays committed without an
// image and the error surfaces for an explicit retry.
func (s *LinkService) CreateLink(ctx context.Context, input CreateLinkInput, image *ImageUpload) (*model.Link, error) {
	linkSlug, err := s.uniqueSlug(ctx, input.Title)
	if err != nil {
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = model.StatusDraft
	}

	link := &model.Link{
		Slug:        linkSlug,
		Title:       input.Title,
		Description: input.Description,
		URL:         input.URL,
		Category:    input.Category,
		Status:      status,
		Audiences:   input.Audiences,
		Branches:    input.Branches,
	}

	err = s.store.Transaction(ctx, func(tx store.Store) error {
		tags, err := tx.UpsertTags(ctx, input.Tags)
		if err != nil {
			return err
		}

		link.Tags = tags
		return tx.CreateLink(ctx, link)
	})
	if err != nil {
		return nil, err
	}

	if image != nil {
		obj, err := s.uploadOriginal(ctx, image)
		if err != nil {
			return link, err
		}
		if err := s.registerImage(ctx, link, obj); err != nil {
			return link, err
		}
	}

	return link, nil
}

// UpdateLink applies a partial update. A replacement image is uploaded before
// the transaction; the superseded objects are deleted best-effort after it
// commits.
func (s *LinkService) UpdateLink(ctx context.Context, id uint, patch LinkPatch) (*model.Link, error) {
	link, err := s.getLink(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Title.IsSet() && patch.Title.Value() != link.Title {
		link.Title = patch.Title.Value()
		if link.Slug, err = s.uniqueSlug(ctx, link.Title); err != nil {
			return nil, err
		}
	}
	applyField(&link.Description, patch.Description)
	applyField(&link.URL, patch.URL)
	applyField(&link.Category, patch.Category)
	applyField(&link.Status, patch.Status)
	applySliceField(&link.Audiences, patch.Audiences)
	applySliceField(&link.Branches, patch.Branches)

	var newObj *storage.Object
	var staleKeys []string
	if patch.Image != nil {
		if newObj, err = s.uploadOriginal(ctx, patch.Image); err != nil {
			return nil, err
		}
		if link.Image != nil {
			staleKeys = append(staleKeys, link.Image.OriginalKey)
			if link.Image.ProcessedKey != nil {
				staleKeys = append(staleKeys, *link.Image.ProcessedKey)
			}
		}
	}

	oldImage := link.Image
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		if !patch.Tags.IsUnset() {
			var names []string
			if patch.Tags.IsSet() {
				names = patch.Tags.Value()
			}

			tags, err := tx.UpsertTags(ctx, names)
			if err != nil {
				return err
			}
			if err := tx.ReplaceLinkTags(ctx, link, tags); err != nil {
				return err
			}
			link.Tags = tags
		}

		if newObj != nil && oldImage != nil {
			if err := tx.DeleteLinkImage(ctx, oldImage.ID); err != nil {
				return err
			}
		}

		return tx.SaveLink(ctx, link)
	})
	if err != nil {
		if newObj != nil {
			s.cleanupObject(ctx, newObj.Key)
		}
		return nil, err
	}

	for _, key := range staleKeys {
		s.cleanupObject(ctx, key)
	}

	if newObj != nil {
		link.Image = nil
		if err := s.registerImage(ctx, link, newObj); err != nil {
			return link, err
		}
	}

	return link, nil
}

// DeleteLink archives the link, or with hard set removes the row, its image
// row and both storage objects.
func (s *LinkService) DeleteLink(ctx context.Context, id uint, hard bool) error {
	link, err := s.getLink(ctx, id)
	if err != nil {
		return err
	}

	if !hard {
		link.Status = model.StatusArchived
		return s.store.SaveLink(ctx, link)
	}

	err = s.store.Transaction(ctx, func(tx store.Store) error {
		if link.Image != nil {
			if err := tx.DeleteLinkImage(ctx, link.Image.ID); err != nil {
				return err
			}
		}
		return tx.HardDeleteLink(ctx, link)
	})
	if err != nil {
		return err
	}

	if link.Image != nil {
		s.cleanupObject(ctx, link.Image.OriginalKey)
		if link.Image.ProcessedKey != nil {
			s.cleanupObject(ctx, *link.Image.ProcessedKey)
		}
	}

	return nil
}

func (s *LinkService) getLink(ctx context.Context, id uint) (*model.Link, error) {
	link, err := s.store.GetLink(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLinkNotFound
	}
	if err != nil {
		return nil, err
	}
	return link, nil
}

// uniqueSlug generates a URL-safe slug from the title, disambiguating an
// existing slug with a random suffix. The suffix makes a second collision
// astronomically unlikely, so no retry loop is needed.
func (s *LinkService) uniqueSlug(ctx context.Context, title string) (string, error) {
	candidate := slug.Make(title)

	exists, err := s.store.SlugExists(ctx, candidate)
	if err != nil {
		return "", err
	}
	if exists {
		candidate = fmt.Sprintf("%s-%s", candidate, uuid.New().String()[:8])
	}

	return candidate, nil
}

func (s *LinkService) uploadOriginal(ctx context.Context, image *ImageUpload) (*storage.Object, error) {
	return s.storage.UploadPublic(ctx, image.Data, image.ContentType, originalPrefix, image.Filename, false)
}

// registerImage creates the PENDING image row and enqueues processing.
func (s *LinkService) registerImage(ctx context.Context, link *model.Link, obj *storage.Object) error {
	image := &model.LinkImage{
		LinkID:      link.ID,
		OriginalKey: obj.Key,
		URL:         obj.URL,
		Status:      model.ImagePending,
	}

	if err := s.store.CreateLinkImage(ctx, image); err != nil {
		return err
	}
	link.Image = image

	err := s.queue.EnqueueProcessing(ctx, queue.ProcessingJob{
		LinkID:           link.ID,
		LinkImageID:      image.ID,
		SourceStorageKey: obj.Key,
	})
	if err != nil {
		// the PENDING row is committed with no job referencing it; name it
		// so the operator retry path can find it
		logrus.Warnf("image %d for link %d has no processing job enqueued: %v", image.ID, link.ID, err)
		return err
	}

	return nil
}

// cleanupObject deletes a superseded storage object. The authoritative row
// has already moved on, so failures are logged and swallowed at the cost of
// possible storage orphaning.
func (s *LinkService) cleanupObject(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		logrus.Warnf("failed to delete superseded object %s: %v", key, err)
	}
}

func applyField(dst *string, f Field[string]) {
	switch {
	case f.IsSet():
		*dst = f.Value()
	case f.IsClear():
		*dst = ""
	}
}

func applySliceField(dst *[]string, f Field[[]string]) {
	switch {
	case f.IsSet():
		*dst = f.Value()
	case f.IsClear():
		*dst = nil
	}
}
