package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/supplysync/backend/internal/domain/supplier"
	"github.com/supplysync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSupplierProductRepository implements supplier.SupplierProductRepository using GORM
type GormSupplierProductRepository struct {
	db *gorm.DB
}

// NewGormSupplierProductRepository creates a new GormSupplierProductRepository
func NewGormSupplierProductRepository(db *gorm.DB) *GormSupplierProductRepository {
	return &GormSupplierProductRepository{db: db}
}

// FindByExternalID finds the link for (account, external_id)
func (r *GormSupplierProductRepository) FindByExternalID(ctx context.Context, accountID uuid.UUID, externalID string) (*supplier.SupplierProduct, error) {
	var model models.SupplierProductModel
	if err := r.db.WithContext(ctx).
		Where("provider_account_id = ? AND external_id = ?", accountID, externalID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, supplier.ErrSupplierProductNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Upsert inserts or updates by (account, external_id). The link's ID is
// refreshed from the stored row.
func (r *GormSupplierProductRepository) Upsert(ctx context.Context, link *supplier.SupplierProduct) error {
	if link.ID == uuid.Nil {
		link.ID = uuid.New()
	}
	var model models.SupplierProductModel
	model.FromDomain(link)
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "provider_account_id"}, {Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"variant_id", "raw", "raw_hash", "is_active", "last_synced_at", "updated_at",
			}),
		}).
		Create(&model).Error; err != nil {
		return err
	}

	stored, err := r.FindByExternalID(ctx, link.ProviderAccountID, link.ExternalID)
	if err != nil {
		return err
	}
	link.ID = stored.ID
	link.CreatedAt = stored.CreatedAt
	return nil
}

// Ensure GormSupplierProductRepository implements supplier.SupplierProductRepository
var _ supplier.SupplierProductRepository = (*GormSupplierProductRepository)(nil)
