package catalog

import (
	"context"

	"github.com/google/uuid"
)

// ProductRepository persists products
type ProductRepository interface {
	// FindByID finds a product by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByTitle returns the oldest product with exactly this title
	FindByTitle(ctx context.Context, title string) (*Product, error)

	// Create inserts a product, assigning a unique slug when empty
	Create(ctx context.Context, product *Product) error

	// Update saves changes to an existing product
	Update(ctx context.Context, product *Product) error

	// Count returns the number of products
	Count(ctx context.Context) (int64, error)
}

// VariantRepository persists variants
type VariantRepository interface {
	FindBySKU(ctx context.Context, sku string) (*Variant, error)

	// ExistingSKUs reports which of skus already exist
	ExistingSKUs(ctx context.Context, skus []string) (map[string]bool, error)

	Create(ctx context.Context, variant *Variant) error
	Update(ctx context.Context, variant *Variant) error
	Count(ctx context.Context) (int64, error)
}

// InventoryRepository persists the one-to-one inventory rows
type InventoryRepository interface {
	// FindByVariantForUpdate loads and row-locks the inventory of a variant
	FindByVariantForUpdate(ctx context.Context, variantID uuid.UUID) (*Inventory, error)

	// Save inserts or updates by variant
	Save(ctx context.Context, inv *Inventory) error
}

// MediaRepository persists media items
type MediaRepository interface {
	// VariantExternalURLs returns external URLs already in the variant gallery
	VariantExternalURLs(ctx context.Context, variantID uuid.UUID) (map[string]bool, error)

	// ProductExternalURLs returns external URLs in the product-level gallery
	ProductExternalURLs(ctx context.Context, productID uuid.UUID) (map[string]bool, error)

	// VariantHasMedia reports whether the variant gallery has any item
	VariantHasMedia(ctx context.Context, variantID uuid.UUID) (bool, error)

	// ProductHasMedia reports whether the product-level gallery has any item
	ProductHasMedia(ctx context.Context, productID uuid.UUID) (bool, error)

	Create(ctx context.Context, media *Media) error
}

// CategoryRepository resolves taxonomy by name
type CategoryRepository interface {
	GetOrCreateCategory(ctx context.Context, name string) (*Category, error)
	GetOrCreateSubcategory(ctx context.Context, categoryID uuid.UUID, name string) (*Subcategory, error)
}

// TransactionalRepositories exposes catalog repositories bound to one transaction
type TransactionalRepositories interface {
	Products() ProductRepository
	Variants() VariantRepository
	Inventories() InventoryRepository
	Media() MediaRepository
	Categories() CategoryRepository
}

// TransactionScope runs fn atomically; an error from fn rolls back every write
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}
