package store

import (
	"context"
	"time"

	"github.com/linklab/linkhub/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db: db,
	}
}

var _ Store = (*GormStore)(nil)

type GormStore struct {
	db *gorm.DB
}

func (g *GormStore) CreateLink(ctx context.Context, link *model.Link) error {
	return g.db.WithContext(ctx).Create(link).Error
}

func (g *GormStore) GetLink(ctx context.Context, id uint) (*model.Link, error) {
	var link model.Link
	err := g.db.WithContext(ctx).Preload("Tags").Preload("Image").First(&link, id).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (g *GormStore) SaveLink(ctx context.Context, link *model.Link) error {
	return g.db.WithContext(ctx).Omit("Tags", "Image").Save(link).Error
}

func (g *GormStore) HardDeleteLink(ctx context.Context, link *model.Link) error {
	if err := g.db.WithContext(ctx).Model(link).Association("Tags").Clear(); err != nil {
		return err
	}
	return g.db.WithContext(ctx).Unscoped().Delete(&model.Link{}, link.ID).Error
}

func (g *GormStore) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := g.db.WithContext(ctx).Model(&model.Link{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

func (g *GormStore) ListCheckTargets(ctx context.Context) ([]CheckTarget, error) {
	var targets []CheckTarget
	err := g.db.WithContext(ctx).Model(&model.Link{}).
		Where("status = ?", model.StatusPublished).
		Find(&targets).Error
	return targets, err
}

// UpdateVerification writes the whole classification of one verifier run as a
// single conditional update, so rows are never observed half-updated.
func (g *GormStore) UpdateVerification(ctx context.Context, okIDs, badIDs []uint, checkedAt time.Time) error {
	checked := make([]uint, 0, len(okIDs)+len(badIDs))
	checked = append(checked, okIDs...)
	checked = append(checked, badIDs...)
	if len(checked) == 0 {
		return nil
	}

	var verified interface{}
	switch {
	case len(badIDs) == 0:
		verified = true
	case len(okIDs) == 0:
		verified = false
	default:
		verified = gorm.Expr("CASE WHEN id IN ? THEN ? ELSE ? END", okIDs, true, false)
	}

	return g.db.WithContext(ctx).Model(&model.Link{}).
		Where("id IN ?", checked).
		Updates(map[string]interface{}{
			"verified":        verified,
			"verified_at":     checkedAt,
			"last_checked_at": checkedAt,
			"verified_by":     model.VerifiedBySystem,
		}).Error
}

func (g *GormStore) UpsertTags(ctx context.Context, names []string) ([]model.Tag, error) {
	if len(names) == 0 {
		return nil, nil
	}

	rows := make([]model.Tag, 0, len(names))
	for _, name := range names {
		rows = append(rows, model.Tag{Name: name})
	}

	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	if err != nil {
		return nil, err
	}

	var tags []model.Tag
	err = g.db.WithContext(ctx).Where("name IN ?", names).Find(&tags).Error
	return tags, err
}

func (g *GormStore) ReplaceLinkTags(ctx context.Context, link *model.Link, tags []model.Tag) error {
	if len(tags) == 0 {
		return g.db.WithContext(ctx).Model(link).Association("Tags").Clear()
	}
	return g.db.WithContext(ctx).Model(link).Association("Tags").Replace(tags)
}

func (g *GormStore) CreateLinkImage(ctx context.Context, image *model.LinkImage) error {
	return g.db.WithContext(ctx).Create(image).Error
}

func (g *GormStore) GetLinkImage(ctx context.Context, id uint) (*model.LinkImage, error) {
	var image model.LinkImage
	err := g.db.WithContext(ctx).First(&image, id).Error
	if err != nil {
		return nil, err
	}
	return &image, nil
}

func (g *GormStore) DeleteLinkImage(ctx context.Context, id uint) error {
	return g.db.WithContext(ctx).Unscoped().Delete(&model.LinkImage{}, id).Error
}

func (g *GormStore) MarkImageReady(ctx context.Context, id uint, processedKey, url string, width, height int) error {
	return g.db.WithContext(ctx).Model(&model.LinkImage{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"processed_key": processedKey,
			"url":           url,
			"width":         width,
			"height":        height,
			"status":        model.ImageReady,
		}).Error
}

func (g *GormStore) MarkImageFailed(ctx context.Context, id uint) error {
	return g.db.WithContext(ctx).Model(&model.LinkImage{}).
		Where("id = ?", id).
		Update("status", model.ImageFailed).Error
}

func (g *GormStore) Migrate() error {
	return model.Migrate(g.db)
}

func (g *GormStore) Transaction(ctx context.Context, f func(tx Store) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return f(&GormStore{db: tx})
	})
}
