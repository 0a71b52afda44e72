package supplier

import (
	"context"

	"github.com/google/uuid"
	"github.com/supplysync/backend/internal/domain/catalog"
)

// ProviderAccountRepository persists provider accounts
type ProviderAccountRepository interface {
	// FindActiveByCode finds an active account by case-insensitive code
	FindActiveByCode(ctx context.Context, code string) (*ProviderAccount, error)

	// ListActive returns active accounts ordered by priority, then code
	ListActive(ctx context.Context) ([]ProviderAccount, error)

	Save(ctx context.Context, account *ProviderAccount) error

	// UpdateCredentials replaces only the credential bag
	UpdateCredentials(ctx context.Context, id uuid.UUID, creds Credentials) error
}

// SupplierProductRepository persists supplier links
type SupplierProductRepository interface {
	FindByExternalID(ctx context.Context, accountID uuid.UUID, externalID string) (*SupplierProduct, error)

	// Upsert inserts or updates by (account, external_id)
	Upsert(ctx context.Context, link *SupplierProduct) error
}

// SyncLogRepository persists run logs
type SyncLogRepository interface {
	Create(ctx context.Context, log *SyncLog) error
	Update(ctx context.Context, log *SyncLog) error
	FindByID(ctx context.Context, id uuid.UUID) (*SyncLog, error)
	ListByProvider(ctx context.Context, code string, limit int) ([]SyncLog, error)
}

// SyncRepositories exposes catalog and link repositories bound to one transaction
type SyncRepositories interface {
	catalog.TransactionalRepositories
	SupplierProducts() SupplierProductRepository
}

// SyncTransactionScope runs one item's upsert atomically
type SyncTransactionScope interface {
	Execute(ctx context.Context, fn func(repos SyncRepositories) error) error
}
