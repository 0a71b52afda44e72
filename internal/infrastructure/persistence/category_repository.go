package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/supplysync/backend/internal/domain/catalog"
	"github.com/supplysync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCategoryRepository implements catalog.CategoryRepository using GORM
type GormCategoryRepository struct {
	db *gorm.DB
}

// NewGormCategoryRepository creates a new GormCategoryRepository
func NewGormCategoryRepository(db *gorm.DB) *GormCategoryRepository {
	return &GormCategoryRepository{db: db}
}

// GetOrCreateCategory returns the category with this exact name, creating it
// when missing
func (r *GormCategoryRepository) GetOrCreateCategory(ctx context.Context, name string) (*catalog.Category, error) {
	name = strings.TrimSpace(name)
	found, err := r.findCategory(ctx, name)
	if err == nil {
		return found, nil
	}
	if !errors.Is(err, catalog.ErrCategoryNotFound) {
		return nil, err
	}

	category, err := catalog.NewCategory(name)
	if err != nil {
		return nil, err
	}
	var model models.CategoryModel
	model.FromDomain(category)

	// Use ON CONFLICT to handle race conditions
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&model)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return r.findCategory(ctx, name)
	}
	return category, nil
}

// GetOrCreateSubcategory returns the named subcategory of categoryID,
// creating it when missing
func (r *GormCategoryRepository) GetOrCreateSubcategory(ctx context.Context, categoryID uuid.UUID, name string) (*catalog.Subcategory, error) {
	name = strings.TrimSpace(name)
	found, err := r.findSubcategory(ctx, categoryID, name)
	if err == nil {
		return found, nil
	}
	if !errors.Is(err, catalog.ErrCategoryNotFound) {
		return nil, err
	}

	sub, err := catalog.NewSubcategory(categoryID, name)
	if err != nil {
		return nil, err
	}
	var model models.SubcategoryModel
	model.FromDomain(sub)

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "category_id"}, {Name: "name"}},
			DoNothing: true,
		}).
		Create(&model)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return r.findSubcategory(ctx, categoryID, name)
	}
	return sub, nil
}

func (r *GormCategoryRepository) findCategory(ctx context.Context, name string) (*catalog.Category, error) {
	var model models.CategoryModel
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrCategoryNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

func (r *GormCategoryRepository) findSubcategory(ctx context.Context, categoryID uuid.UUID, name string) (*catalog.Subcategory, error) {
	var model models.SubcategoryModel
	if err := r.db.WithContext(ctx).
		Where("category_id = ? AND name = ?", categoryID, name).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrCategoryNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Ensure GormCategoryRepository implements catalog.CategoryRepository
var _ catalog.CategoryRepository = (*GormCategoryRepository)(nil)
