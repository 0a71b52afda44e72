package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/supplysync/backend/internal/domain/catalog"
)

// CategoryModel is the persistence model for the Category entity
type CategoryModel struct {
	BaseModel
	Name     string `gorm:"type:varchar(120);not null;uniqueIndex"`
	Slug     string `gorm:"type:varchar(140);not null;index"`
	IsActive bool   `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CategoryModel) TableName() string {
	return "categories"
}

// ToDomain converts the persistence model to a domain Category
func (m *CategoryModel) ToDomain() *catalog.Category {
	return &catalog.Category{
		BaseEntity: m.BaseModel.ToDomain(),
		Name:       m.Name,
		Slug:       m.Slug,
		IsActive:   m.IsActive,
	}
}

// FromDomain populates the persistence model from a domain Category
func (m *CategoryModel) FromDomain(c *catalog.Category) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.Name = c.Name
	m.Slug = c.Slug
	m.IsActive = c.IsActive
}

// SubcategoryModel is the persistence model for the Subcategory entity
type SubcategoryModel struct {
	BaseModel
	CategoryID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_subcategory_category_name,priority:1"`
	Name       string    `gorm:"type:varchar(120);not null;uniqueIndex:idx_subcategory_category_name,priority:2"`
	Slug       string    `gorm:"type:varchar(140);not null"`
	IsActive   bool      `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SubcategoryModel) TableName() string {
	return "subcategories"
}

// ToDomain converts the persistence model to a domain Subcategory
func (m *SubcategoryModel) ToDomain() *catalog.Subcategory {
	return &catalog.Subcategory{
		BaseEntity: m.BaseModel.ToDomain(),
		CategoryID: m.CategoryID,
		Name:       m.Name,
		Slug:       m.Slug,
		IsActive:   m.IsActive,
	}
}

// FromDomain populates the persistence model from a domain Subcategory
func (m *SubcategoryModel) FromDomain(s *catalog.Subcategory) {
	m.FromDomainBaseEntity(s.BaseEntity)
	m.CategoryID = s.CategoryID
	m.Name = s.Name
	m.Slug = s.Slug
	m.IsActive = s.IsActive
}

// ProductModel is the persistence model for the Product entity
type ProductModel struct {
	BaseModel
	Title         string     `gorm:"type:varchar(255);not null;index"`
	Slug          string     `gorm:"type:varchar(255);not null;uniqueIndex"`
	Description   string     `gorm:"type:text"`
	Brand         string     `gorm:"type:varchar(100)"`
	CategoryID    *uuid.UUID `gorm:"type:uuid;index"`
	SubcategoryID *uuid.UUID `gorm:"type:uuid;index"`
	IsActive      bool       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		BaseEntity:    m.BaseModel.ToDomain(),
		Title:         m.Title,
		Slug:          m.Slug,
		Description:   m.Description,
		Brand:         m.Brand,
		CategoryID:    m.CategoryID,
		SubcategoryID: m.SubcategoryID,
		IsActive:      m.IsActive,
	}
}

// FromDomain populates the persistence model from a domain Product
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.Title = p.Title
	m.Slug = p.Slug
	m.Description = p.Description
	m.Brand = p.Brand
	m.CategoryID = p.CategoryID
	m.SubcategoryID = p.SubcategoryID
	m.IsActive = p.IsActive
}

// VariantModel is the persistence model for the Variant entity
type VariantModel struct {
	BaseModel
	ProductID  uuid.UUID        `gorm:"type:uuid;not null;index"`
	SKU        string           `gorm:"column:sku;type:varchar(64);not null;uniqueIndex"`
	Attributes JSONMap          `gorm:"type:jsonb;not null"`
	Price      decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0"`
	Currency   string           `gorm:"type:varchar(3);not null;default:'USD'"`
	Weight     *decimal.Decimal `gorm:"type:decimal(10,3)"`
	Dims       JSONMap          `gorm:"type:jsonb;not null"`
	IsActive   bool             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (VariantModel) TableName() string {
	return "variants"
}

// ToDomain converts the persistence model to a domain Variant
func (m *VariantModel) ToDomain() *catalog.Variant {
	attrs := map[string]any(m.Attributes)
	if attrs == nil {
		attrs = map[string]any{}
	}
	dims := map[string]any(m.Dims)
	if dims == nil {
		dims = map[string]any{}
	}
	return &catalog.Variant{
		BaseEntity: m.BaseModel.ToDomain(),
		ProductID:  m.ProductID,
		SKU:        m.SKU,
		Attributes: attrs,
		Price:      m.Price,
		Currency:   catalog.Currency(m.Currency),
		Weight:     m.Weight,
		Dims:       dims,
		IsActive:   m.IsActive,
	}
}

// FromDomain populates the persistence model from a domain Variant
func (m *VariantModel) FromDomain(v *catalog.Variant) {
	m.FromDomainBaseEntity(v.BaseEntity)
	m.ProductID = v.ProductID
	m.SKU = v.SKU
	m.Attributes = JSONMap(v.Attributes)
	m.Price = v.Price
	m.Currency = string(v.Currency)
	m.Weight = v.Weight
	m.Dims = JSONMap(v.Dims)
	m.IsActive = v.IsActive
}

// InventoryModel is the persistence model for the Inventory entity
type InventoryModel struct {
	BaseModel
	VariantID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	QtyAvailable int       `gorm:"not null;default:0"`
	SafetyStock  int       `gorm:"not null;default:0"`
	Warehouse    *string   `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (InventoryModel) TableName() string {
	return "inventories"
}

// ToDomain converts the persistence model to a domain Inventory
func (m *InventoryModel) ToDomain() *catalog.Inventory {
	return &catalog.Inventory{
		BaseEntity:   m.BaseModel.ToDomain(),
		VariantID:    m.VariantID,
		QtyAvailable: m.QtyAvailable,
		SafetyStock:  m.SafetyStock,
		Warehouse:    m.Warehouse,
	}
}

// FromDomain populates the persistence model from a domain Inventory
func (m *InventoryModel) FromDomain(i *catalog.Inventory) {
	m.FromDomainBaseEntity(i.BaseEntity)
	m.VariantID = i.VariantID
	m.QtyAvailable = i.QtyAvailable
	m.SafetyStock = i.SafetyStock
	m.Warehouse = i.Warehouse
}

// MediaModel is the persistence model for the Media entity
type MediaModel struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key"`
	ProductID *uuid.UUID `gorm:"type:uuid;index"`
	VariantID *uuid.UUID `gorm:"type:uuid;index"`
	Kind      string     `gorm:"type:varchar(10);not null"`
	ImagePath string     `gorm:"type:varchar(500)"`
	VideoPath string     `gorm:"type:varchar(500)"`
	URL       string     `gorm:"column:url;type:varchar(1000)"`
	Alt       string     `gorm:"type:varchar(255)"`
	IsMain    bool       `gorm:"not null;default:false"`
	Position  int        `gorm:"not null;default:0"`
	CreatedAt time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (MediaModel) TableName() string {
	return "media"
}

// ToDomain converts the persistence model to a domain Media
func (m *MediaModel) ToDomain() *catalog.Media {
	return &catalog.Media{
		ID:        m.ID,
		ProductID: m.ProductID,
		VariantID: m.VariantID,
		Kind:      catalog.MediaKind(m.Kind),
		ImagePath: m.ImagePath,
		VideoPath: m.VideoPath,
		URL:       m.URL,
		Alt:       m.Alt,
		IsMain:    m.IsMain,
		Position:  m.Position,
		CreatedAt: m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain Media
func (m *MediaModel) FromDomain(media *catalog.Media) {
	m.ID = media.ID
	m.ProductID = media.ProductID
	m.VariantID = media.VariantID
	m.Kind = string(media.Kind)
	m.ImagePath = media.ImagePath
	m.VideoPath = media.VideoPath
	m.URL = media.URL
	m.Alt = media.Alt
	m.IsMain = media.IsMain
	m.Position = media.Position
	m.CreatedAt = media.CreatedAt
}
