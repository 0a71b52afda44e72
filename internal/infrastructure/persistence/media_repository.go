package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/supplysync/backend/internal/domain/catalog"
	"github.com/supplysync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormMediaRepository implements catalog.MediaRepository using GORM
type GormMediaRepository struct {
	db *gorm.DB
}

// NewGormMediaRepository creates a new GormMediaRepository
func NewGormMediaRepository(db *gorm.DB) *GormMediaRepository {
	return &GormMediaRepository{db: db}
}

// VariantExternalURLs returns external URLs already in the variant gallery
func (r *GormMediaRepository) VariantExternalURLs(ctx context.Context, variantID uuid.UUID) (map[string]bool, error) {
	return r.externalURLs(r.db.WithContext(ctx).Where("variant_id = ?", variantID))
}

// ProductExternalURLs returns external URLs in the product-level gallery
func (r *GormMediaRepository) ProductExternalURLs(ctx context.Context, productID uuid.UUID) (map[string]bool, error) {
	return r.externalURLs(r.db.WithContext(ctx).Where("product_id = ? AND variant_id IS NULL", productID))
}

// VariantHasMedia reports whether the variant gallery has any item
func (r *GormMediaRepository) VariantHasMedia(ctx context.Context, variantID uuid.UUID) (bool, error) {
	return r.exists(r.db.WithContext(ctx).Where("variant_id = ?", variantID))
}

// ProductHasMedia reports whether the product-level gallery has any item
func (r *GormMediaRepository) ProductHasMedia(ctx context.Context, productID uuid.UUID) (bool, error) {
	return r.exists(r.db.WithContext(ctx).Where("product_id = ? AND variant_id IS NULL", productID))
}

// Create inserts a media item
func (r *GormMediaRepository) Create(ctx context.Context, media *catalog.Media) error {
	if err := media.Validate(); err != nil {
		return err
	}
	var model models.MediaModel
	model.FromDomain(media)
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *GormMediaRepository) externalURLs(scope *gorm.DB) (map[string]bool, error) {
	var urls []string
	if err := scope.Model(&models.MediaModel{}).
		Where("kind = ?", string(catalog.MediaKindExternal)).
		Pluck("url", &urls).Error; err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(urls))
	for _, u := range urls {
		out[u] = true
	}
	return out, nil
}

func (r *GormMediaRepository) exists(scope *gorm.DB) (bool, error) {
	var count int64
	if err := scope.Model(&models.MediaModel{}).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Ensure GormMediaRepository implements catalog.MediaRepository
var _ catalog.MediaRepository = (*GormMediaRepository)(nil)
