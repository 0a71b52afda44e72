package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/supplysync/backend/internal/domain/supplier"
	"github.com/supplysync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// defaultSyncLogLimit caps ListByProvider when no limit is given
const defaultSyncLogLimit = 50

// GormSyncLogRepository implements supplier.SyncLogRepository using GORM
type GormSyncLogRepository struct {
	db *gorm.DB
}

// NewGormSyncLogRepository creates a new GormSyncLogRepository
func NewGormSyncLogRepository(db *gorm.DB) *GormSyncLogRepository {
	return &GormSyncLogRepository{db: db}
}

// Create inserts a log row
func (r *GormSyncLogRepository) Create(ctx context.Context, log *supplier.SyncLog) error {
	var model models.SyncLogModel
	model.FromDomain(log)
	return r.db.WithContext(ctx).Create(&model).Error
}

// Update saves a finalized log row
func (r *GormSyncLogRepository) Update(ctx context.Context, log *supplier.SyncLog) error {
	var model models.SyncLogModel
	model.FromDomain(log)
	return r.db.WithContext(ctx).Save(&model).Error
}

// FindByID finds a log row by ID
func (r *GormSyncLogRepository) FindByID(ctx context.Context, id uuid.UUID) (*supplier.SyncLog, error) {
	var model models.SyncLogModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, supplier.ErrSyncLogNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListByProvider returns the newest runs of a provider first. An empty code
// lists every provider.
func (r *GormSyncLogRepository) ListByProvider(ctx context.Context, code string, limit int) ([]supplier.SyncLog, error) {
	if limit <= 0 {
		limit = defaultSyncLogLimit
	}
	query := r.db.WithContext(ctx).Order("started_at DESC").Limit(limit)
	if code = strings.TrimSpace(code); code != "" {
		query = query.Where("LOWER(provider_code) = ?", strings.ToLower(code))
	}
	var rows []models.SyncLogModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	logs := make([]supplier.SyncLog, 0, len(rows))
	for i := range rows {
		logs = append(logs, *rows[i].ToDomain())
	}
	return logs, nil
}

// Ensure GormSyncLogRepository implements supplier.SyncLogRepository
var _ supplier.SyncLogRepository = (*GormSyncLogRepository)(nil)
