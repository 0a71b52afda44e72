package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/supplysync/backend/internal/domain/catalog"
	"github.com/supplysync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInventoryRepository implements catalog.InventoryRepository using GORM
type GormInventoryRepository struct {
	db *gorm.DB
}

// NewGormInventoryRepository creates a new GormInventoryRepository
func NewGormInventoryRepository(db *gorm.DB) *GormInventoryRepository {
	return &GormInventoryRepository{db: db}
}

// FindByVariantForUpdate loads the inventory of a variant with a row lock.
// SQLite has no row locks; the dialector drops the clause there.
func (r *GormInventoryRepository) FindByVariantForUpdate(ctx context.Context, variantID uuid.UUID) (*catalog.Inventory, error) {
	var model models.InventoryModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("variant_id = ?", variantID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrInventoryNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save inserts the inventory or overwrites the stock columns of the existing
// row for the same variant. inv is refreshed with the stored row.
func (r *GormInventoryRepository) Save(ctx context.Context, inv *catalog.Inventory) error {
	var model models.InventoryModel
	model.FromDomain(inv)
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "variant_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"qty_available", "safety_stock", "warehouse", "updated_at"}),
		}).
		Create(&model).Error; err != nil {
		return err
	}

	var stored models.InventoryModel
	if err := r.db.WithContext(ctx).Where("variant_id = ?", inv.VariantID).First(&stored).Error; err != nil {
		return err
	}
	*inv = *stored.ToDomain()
	return nil
}

// Ensure GormInventoryRepository implements catalog.InventoryRepository
var _ catalog.InventoryRepository = (*GormInventoryRepository)(nil)
