package models

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/supplysync/backend/internal/domain/bulk"
	"go.uber.org/zap"
)

// ImportLogModel is the persistence model for ImportLog
type ImportLogModel struct {
	BaseModel
	ImportedBy *uuid.UUID `gorm:"type:uuid;index"`
	Filename   string     `gorm:"type:varchar(255);not null"`
	Upsert     bool       `gorm:"not null"`
	DryRun     bool       `gorm:"not null;default:false"`
	CountsJSON string     `gorm:"column:counts;type:jsonb;default:'{}'"`
	ErrorsJSON string     `gorm:"column:errors;type:jsonb;default:'[]'"`
}

// TableName returns the table name for GORM
func (ImportLogModel) TableName() string {
	return "import_logs"
}

// ToDomain converts the persistence model to a domain ImportLog
func (m *ImportLogModel) ToDomain() *bulk.ImportLog {
	log := &bulk.ImportLog{
		BaseEntity: m.BaseModel.ToDomain(),
		ImportedBy: m.ImportedBy,
		Filename:   m.Filename,
		Upsert:     m.Upsert,
		DryRun:     m.DryRun,
		Errors:     make([]bulk.RowErrorEntry, 0),
	}
	if m.CountsJSON != "" {
		if err := json.Unmarshal([]byte(m.CountsJSON), &log.Counts); err != nil {
			modelLogger().Warn("failed to parse import log counts JSON",
				zap.String("import_log_id", m.ID.String()),
				zap.Error(err))
		}
	}
	if m.ErrorsJSON != "" && m.ErrorsJSON != "[]" {
		if err := json.Unmarshal([]byte(m.ErrorsJSON), &log.Errors); err != nil {
			modelLogger().Warn("failed to parse import log errors JSON",
				zap.String("import_log_id", m.ID.String()),
				zap.Error(err))
		}
	}
	return log
}

// FromDomain populates the persistence model from a domain ImportLog
func (m *ImportLogModel) FromDomain(l *bulk.ImportLog) {
	m.FromDomainBaseEntity(l.BaseEntity)
	m.ImportedBy = l.ImportedBy
	m.Filename = l.Filename
	m.Upsert = l.Upsert
	m.DryRun = l.DryRun

	m.CountsJSON = "{}"
	if blob, err := json.Marshal(l.Counts); err == nil {
		m.CountsJSON = string(blob)
	}
	m.ErrorsJSON = "[]"
	if len(l.Errors) > 0 {
		if blob, err := json.Marshal(l.Errors); err == nil {
			m.ErrorsJSON = string(blob)
		}
	}
}
