package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/supplysync/backend/internal/domain/bulk"
	"github.com/supplysync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormImportLogRepository implements bulk.ImportLogRepository using GORM
type GormImportLogRepository struct {
	db *gorm.DB
}

// NewGormImportLogRepository creates a new GormImportLogRepository
func NewGormImportLogRepository(db *gorm.DB) *GormImportLogRepository {
	return &GormImportLogRepository{db: db}
}

// Create inserts an import log
func (r *GormImportLogRepository) Create(ctx context.Context, log *bulk.ImportLog) error {
	var model models.ImportLogModel
	model.FromDomain(log)
	return r.db.WithContext(ctx).Create(&model).Error
}

// FindByID finds an import log by ID
func (r *GormImportLogRepository) FindByID(ctx context.Context, id uuid.UUID) (*bulk.ImportLog, error) {
	var model models.ImportLogModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bulk.ErrImportLogNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns the most recent logs first
func (r *GormImportLogRepository) List(ctx context.Context, limit int) ([]bulk.ImportLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.ImportLogModel
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	logs := make([]bulk.ImportLog, 0, len(rows))
	for i := range rows {
		logs = append(logs, *rows[i].ToDomain())
	}
	return logs, nil
}

// Ensure GormImportLogRepository implements bulk.ImportLogRepository
var _ bulk.ImportLogRepository = (*GormImportLogRepository)(nil)
