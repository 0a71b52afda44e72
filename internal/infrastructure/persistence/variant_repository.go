package persistence

import (
	"context"
	"errors"

	"github.com/supplysync/backend/internal/domain/catalog"
	"github.com/supplysync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// skuBatchSize bounds the IN list of ExistingSKUs queries
const skuBatchSize = 500

// GormVariantRepository implements catalog.VariantRepository using GORM
type GormVariantRepository struct {
	db *gorm.DB
}

// NewGormVariantRepository creates a new GormVariantRepository
func NewGormVariantRepository(db *gorm.DB) *GormVariantRepository {
	return &GormVariantRepository{db: db}
}

// FindBySKU finds a variant by its globally unique SKU
func (r *GormVariantRepository) FindBySKU(ctx context.Context, sku string) (*catalog.Variant, error) {
	var model models.VariantModel
	if err := r.db.WithContext(ctx).Where("sku = ?", sku).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrVariantNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ExistingSKUs reports which of skus already exist
func (r *GormVariantRepository) ExistingSKUs(ctx context.Context, skus []string) (map[string]bool, error) {
	found := make(map[string]bool, len(skus))
	for start := 0; start < len(skus); start += skuBatchSize {
		end := min(start+skuBatchSize, len(skus))
		var batch []string
		if err := r.db.WithContext(ctx).
			Model(&models.VariantModel{}).
			Where("sku IN ?", skus[start:end]).
			Pluck("sku", &batch).Error; err != nil {
			return nil, err
		}
		for _, sku := range batch {
			found[sku] = true
		}
	}
	return found, nil
}

// Create inserts a variant
func (r *GormVariantRepository) Create(ctx context.Context, variant *catalog.Variant) error {
	var model models.VariantModel
	model.FromDomain(variant)
	return r.db.WithContext(ctx).Create(&model).Error
}

// Update saves changes to an existing variant
func (r *GormVariantRepository) Update(ctx context.Context, variant *catalog.Variant) error {
	var model models.VariantModel
	model.FromDomain(variant)
	return r.db.WithContext(ctx).Save(&model).Error
}

// Count returns the number of variants
func (r *GormVariantRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.VariantModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormVariantRepository implements catalog.VariantRepository
var _ catalog.VariantRepository = (*GormVariantRepository)(nil)
