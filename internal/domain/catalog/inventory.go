package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/supplysync/backend/internal/domain/shared"
)

// Inventory tracks stock for exactly one Variant
type Inventory struct {
	shared.BaseEntity
	VariantID    uuid.UUID
	QtyAvailable int
	SafetyStock  int
	Warehouse    *string
}

// NewInventory creates an empty inventory record for a variant
func NewInventory(variantID uuid.UUID) *Inventory {
	return &Inventory{
		BaseEntity: shared.NewBaseEntity(),
		VariantID:  variantID,
	}
}

// InStock reports whether available quantity exceeds the safety threshold
func (i *Inventory) InStock() bool {
	return i.QtyAvailable > i.SafetyStock
}

// SetQuantity replaces the available quantity, floored at zero
func (i *Inventory) SetQuantity(qty int) {
	i.QtyAvailable = max(0, qty)
	i.UpdatedAt = time.Now()
}

// IncrementQuantity adds delta to the available quantity, floored at zero
func (i *Inventory) IncrementQuantity(delta int) {
	i.QtyAvailable = max(0, i.QtyAvailable+delta)
	i.UpdatedAt = time.Now()
}

// SetSafetyStock sets the safety threshold, floored at zero
func (i *Inventory) SetSafetyStock(qty int) {
	i.SafetyStock = max(0, qty)
	i.UpdatedAt = time.Now()
}

// SetWarehouse sets the warehouse label; blank labels are ignored
func (i *Inventory) SetWarehouse(label string) {
	label = strings.TrimSpace(label)
	if label == "" {
		return
	}
	if len(label) > 100 {
		label = label[:100]
	}
	i.Warehouse = &label
	i.UpdatedAt = time.Now()
}
