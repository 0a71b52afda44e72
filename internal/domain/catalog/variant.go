package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/supplysync/backend/internal/domain/shared"
)

// MaxSKULength bounds Variant.SKU
const MaxSKULength = 64

// Variant is a sellable unit of a Product, identified by a globally unique SKU
type Variant struct {
	shared.BaseEntity
	ProductID  uuid.UUID
	SKU        string
	Attributes map[string]any
	Price      decimal.Decimal
	Currency   Currency
	Weight     *decimal.Decimal
	Dims       map[string]any
	IsActive   bool
}

// NewVariant creates a new active variant
func NewVariant(productID uuid.UUID, sku string, price decimal.Decimal, currency Currency) (*Variant, error) {
	sku = strings.TrimSpace(sku)
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Variant requires a product")
	}
	if err := validateSKU(sku); err != nil {
		return nil, err
	}
	if err := validatePrice(price, currency); err != nil {
		return nil, err
	}
	return &Variant{
		BaseEntity: shared.NewBaseEntity(),
		ProductID:  productID,
		SKU:        sku,
		Attributes: map[string]any{},
		Price:      price,
		Currency:   currency,
		Dims:       map[string]any{},
		IsActive:   true,
	}, nil
}

// SetPrice updates price and currency
func (v *Variant) SetPrice(price decimal.Decimal, currency Currency) error {
	if err := validatePrice(price, currency); err != nil {
		return err
	}
	v.Price = price
	v.Currency = currency
	v.UpdatedAt = time.Now()
	return nil
}

// SetAttributes overwrites the attribute bag when attrs is non-empty
func (v *Variant) SetAttributes(attrs map[string]any) {
	if len(attrs) == 0 {
		return
	}
	v.Attributes = attrs
	v.UpdatedAt = time.Now()
}

// SetWeight sets the weight; nil clears nothing
func (v *Variant) SetWeight(weight *decimal.Decimal) {
	if weight == nil {
		return
	}
	w := *weight
	v.Weight = &w
	v.UpdatedAt = time.Now()
}

// SetDims replaces the dimensions object
func (v *Variant) SetDims(dims map[string]any) {
	if dims == nil {
		dims = map[string]any{}
	}
	v.Dims = dims
	v.UpdatedAt = time.Now()
}

// Activate marks the variant active
func (v *Variant) Activate() {
	v.IsActive = true
	v.UpdatedAt = time.Now()
}

func validateSKU(sku string) error {
	if sku == "" {
		return shared.NewDomainError("INVALID_SKU", "SKU cannot be empty")
	}
	if len(sku) > MaxSKULength {
		return shared.NewDomainError("INVALID_SKU", "SKU cannot exceed 64 characters")
	}
	return nil
}

func validatePrice(price decimal.Decimal, currency Currency) error {
	if price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	if !currency.IsValid() {
		_, err := ParseCurrency(string(currency))
		if err == nil {
			err = shared.NewDomainError("INVALID_CURRENCY", "Currency is required")
		}
		return err
	}
	return nil
}
