package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/supplysync/backend/internal/domain/shared"
)

const (
	maxTitleLength = 255
	maxBrandLength = 100
	maxSlugLength  = 240
)

// Product is a catalog item grouping one or more Variants
type Product struct {
	shared.BaseEntity
	Title         string
	Slug          string
	Description   string
	Brand         string
	CategoryID    *uuid.UUID
	SubcategoryID *uuid.UUID
	IsActive      bool
}

// NewProduct creates a new active product. The slug is left empty;
// the repository assigns a unique one on create.
func NewProduct(title, description, brand string) (*Product, error) {
	title = strings.TrimSpace(title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if err := validateBrand(brand); err != nil {
		return nil, err
	}
	return &Product{
		BaseEntity:  shared.NewBaseEntity(),
		Title:       title,
		Description: description,
		Brand:       strings.TrimSpace(brand),
		IsActive:    true,
	}, nil
}

// BaseSlug returns the slug candidate derived from the title
func (p *Product) BaseSlug() string {
	return SlugWithLimit(p.Title, maxSlugLength, "product")
}

// Rename changes the title. Blank titles are ignored.
func (p *Product) Rename(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}
	if err := validateTitle(title); err != nil {
		return err
	}
	p.Title = title
	p.UpdatedAt = time.Now()
	return nil
}

// SetDescription replaces the description
func (p *Product) SetDescription(description string) {
	p.Description = description
	p.UpdatedAt = time.Now()
}

// SetBrand replaces the brand when non-blank
func (p *Product) SetBrand(brand string) error {
	brand = strings.TrimSpace(brand)
	if brand == "" {
		return nil
	}
	if err := validateBrand(brand); err != nil {
		return err
	}
	p.Brand = brand
	p.UpdatedAt = time.Now()
	return nil
}

// AssignTaxonomy sets category and subcategory. A subcategory must belong
// to the given category; nil arguments leave the current value untouched.
func (p *Product) AssignTaxonomy(category *Category, sub *Subcategory) error {
	if sub != nil {
		catID := p.CategoryID
		if category != nil {
			catID = &category.ID
		}
		if catID == nil || *catID != sub.CategoryID {
			return shared.NewDomainError("INVALID_SUBCATEGORY", "Subcategory must belong to the selected Category")
		}
	}
	if category != nil {
		id := category.ID
		p.CategoryID = &id
	}
	if sub != nil {
		id := sub.ID
		p.SubcategoryID = &id
	}
	p.UpdatedAt = time.Now()
	return nil
}

func validateTitle(title string) error {
	if title == "" {
		return shared.NewDomainError("INVALID_TITLE", "Product title cannot be empty")
	}
	if len(title) > maxTitleLength {
		return shared.NewDomainError("INVALID_TITLE", "Product title cannot exceed 255 characters")
	}
	return nil
}

func validateBrand(brand string) error {
	if len(strings.TrimSpace(brand)) > maxBrandLength {
		return shared.NewDomainError("INVALID_BRAND", "Brand cannot exceed 100 characters")
	}
	return nil
}
