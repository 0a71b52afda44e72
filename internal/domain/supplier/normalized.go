package supplier

import (
	"github.com/shopspring/decimal"
	"github.com/supplysync/backend/internal/domain/catalog"
)

// RawItem is a supplier payload exactly as decoded from the wire
type RawItem map[string]any

// String returns the value at key rendered as a string, or "" when absent
func (r RawItem) String(key string) string {
	return Credentials(r).String(key, "")
}

// ExternalIdentity names a supplier item
type ExternalIdentity struct {
	ProviderCode string
	ExternalID   string
}

// ProductFields are the product-level values an adapter extracts
type ProductFields struct {
	Title              string
	Description        string
	Brand              string
	Category           string
	CategoryID         string
	CategoryRoot       string
	CategoryLeaf       string
	CategoryPath       []string
	CategoryBreadcrumb string
	IsActive           bool
}

// VariantRecord is one normalized variant. SKU may be blank; the
// orchestrator skips such records rather than failing the item.
type VariantRecord struct {
	ExternalVariantID string
	SKU               string
	Price             decimal.Decimal
	Currency          catalog.Currency
	Attributes        map[string]any
	Weight            *decimal.Decimal
	Dims              map[string]any
	ImageURL          string
	IsActive          bool
}

// MediaRef is an image URL discovered on the supplier item
type MediaRef struct {
	URL  string
	Kind catalog.MediaKind
}

// NormalizedProduct is the adapter-independent shape of a supplier item
type NormalizedProduct struct {
	External ExternalIdentity
	Product  ProductFields
	Variants []VariantRecord
	Media    []MediaRef
	Raw      RawItem
}
