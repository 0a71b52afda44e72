package persistence

import (
	"context"

	"github.com/supplysync/backend/internal/domain/catalog"
	"github.com/supplysync/backend/internal/domain/supplier"
	"gorm.io/gorm"
)

// GormCatalogScope implements catalog.TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormCatalogScope struct {
	db *gorm.DB
}

// NewGormCatalogScope creates a new GormCatalogScope.
func NewGormCatalogScope(db *gorm.DB) *GormCatalogScope {
	return &GormCatalogScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormCatalogScope) Execute(ctx context.Context, fn func(repos catalog.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// GormSyncScope implements supplier.SyncTransactionScope: catalog writes and
// the supplier link of one item commit together.
type GormSyncScope struct {
	db *gorm.DB
}

// NewGormSyncScope creates a new GormSyncScope.
func NewGormSyncScope(db *gorm.DB) *GormSyncScope {
	return &GormSyncScope{db: db}
}

// Execute runs fn within a database transaction.
func (s *GormSyncScope) Execute(ctx context.Context, fn func(repos supplier.SyncRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// Products returns the product repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Products() catalog.ProductRepository {
	return NewGormProductRepository(r.tx)
}

// Variants returns the variant repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Variants() catalog.VariantRepository {
	return NewGormVariantRepository(r.tx)
}

// Inventories returns the inventory repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Inventories() catalog.InventoryRepository {
	return NewGormInventoryRepository(r.tx)
}

// Media returns the media repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Media() catalog.MediaRepository {
	return NewGormMediaRepository(r.tx)
}

// Categories returns the category repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Categories() catalog.CategoryRepository {
	return NewGormCategoryRepository(r.tx)
}

// SupplierProducts returns the supplier link repository scoped to the current transaction.
func (r *gormTransactionalRepositories) SupplierProducts() supplier.SupplierProductRepository {
	return NewGormSupplierProductRepository(r.tx)
}

// Ensure the scopes implement their interfaces
var (
	_ catalog.TransactionScope          = (*GormCatalogScope)(nil)
	_ supplier.SyncTransactionScope     = (*GormSyncScope)(nil)
	_ supplier.SyncRepositories         = (*gormTransactionalRepositories)(nil)
	_ catalog.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
