package catalog

import (
	"strings"

	"github.com/google/uuid"
	"github.com/supplysync/backend/internal/domain/shared"
)

// Category is a top-level taxonomy node
type Category struct {
	shared.BaseEntity
	Name     string
	Slug     string
	IsActive bool
}

// Subcategory belongs to exactly one Category
type Subcategory struct {
	shared.BaseEntity
	CategoryID uuid.UUID
	Name       string
	Slug       string
	IsActive   bool
}

// NewCategory creates a new active category with a derived slug
func NewCategory(name string) (*Category, error) {
	name = strings.TrimSpace(name)
	if err := validateTaxonomyName(name); err != nil {
		return nil, err
	}
	return &Category{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
		Slug:       SlugWithLimit(name, 140, "category"),
		IsActive:   true,
	}, nil
}

// NewSubcategory creates a new subcategory under categoryID
func NewSubcategory(categoryID uuid.UUID, name string) (*Subcategory, error) {
	name = strings.TrimSpace(name)
	if err := validateTaxonomyName(name); err != nil {
		return nil, err
	}
	if categoryID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CATEGORY", "Subcategory requires a category")
	}
	return &Subcategory{
		BaseEntity: shared.NewBaseEntity(),
		CategoryID: categoryID,
		Name:       name,
		Slug:       SlugWithLimit(name, 140, "subcategory"),
		IsActive:   true,
	}, nil
}

func validateTaxonomyName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Category name cannot be empty")
	}
	if len(name) > 120 {
		return shared.NewDomainError("INVALID_NAME", "Category name cannot exceed 120 characters")
	}
	return nil
}
