package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/supplysync/backend/internal/domain/supplier"
	"github.com/supplysync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormProviderAccountRepository implements supplier.ProviderAccountRepository using GORM
type GormProviderAccountRepository struct {
	db *gorm.DB
}

// NewGormProviderAccountRepository creates a new GormProviderAccountRepository
func NewGormProviderAccountRepository(db *gorm.DB) *GormProviderAccountRepository {
	return &GormProviderAccountRepository{db: db}
}

// FindActiveByCode finds an active account by case-insensitive code
func (r *GormProviderAccountRepository) FindActiveByCode(ctx context.Context, code string) (*supplier.ProviderAccount, error) {
	var model models.ProviderAccountModel
	if err := r.db.WithContext(ctx).
		Where("LOWER(code) = ? AND is_active = ?", strings.ToLower(strings.TrimSpace(code)), true).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, supplier.ErrAccountNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListActive returns active accounts ordered by priority, then code
func (r *GormProviderAccountRepository) ListActive(ctx context.Context) ([]supplier.ProviderAccount, error) {
	var rows []models.ProviderAccountModel
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("priority ASC, code ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	accounts := make([]supplier.ProviderAccount, 0, len(rows))
	for i := range rows {
		accounts = append(accounts, *rows[i].ToDomain())
	}
	return accounts, nil
}

// Save inserts or updates an account
func (r *GormProviderAccountRepository) Save(ctx context.Context, account *supplier.ProviderAccount) error {
	var model models.ProviderAccountModel
	model.FromDomain(account)
	return r.db.WithContext(ctx).Save(&model).Error
}

// UpdateCredentials replaces only the credential bag, leaving every other
// column untouched
func (r *GormProviderAccountRepository) UpdateCredentials(ctx context.Context, id uuid.UUID, creds supplier.Credentials) error {
	result := r.db.WithContext(ctx).
		Model(&models.ProviderAccountModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"credentials": models.JSONMap(creds),
			"updated_at":  time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return supplier.ErrAccountNotFound
	}
	return nil
}

// Ensure GormProviderAccountRepository implements supplier.ProviderAccountRepository
var _ supplier.ProviderAccountRepository = (*GormProviderAccountRepository)(nil)
