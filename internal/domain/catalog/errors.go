package catalog

import "github.com/supplysync/backend/internal/domain/shared"

// Catalog lookup errors
var (
	ErrProductNotFound   = shared.NewDomainError("PRODUCT_NOT_FOUND", "Product not found")
	ErrVariantNotFound   = shared.NewDomainError("VARIANT_NOT_FOUND", "Variant not found")
	ErrInventoryNotFound = shared.NewDomainError("INVENTORY_NOT_FOUND", "Inventory not found")
	ErrCategoryNotFound  = shared.NewDomainError("CATEGORY_NOT_FOUND", "Category not found")
)
