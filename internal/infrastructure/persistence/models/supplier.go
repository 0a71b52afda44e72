package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/supplysync/backend/internal/domain/supplier"
	"go.uber.org/zap"
)

// modelLogger resolves the process logger at call time; conversions run
// long after package init.
func modelLogger() *zap.Logger {
	return zap.L().Named("persistence.models")
}

// ProviderAccountModel is the persistence model for ProviderAccount
type ProviderAccountModel struct {
	BaseModel
	Code        string  `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name        string  `gorm:"type:varchar(200);not null"`
	Priority    int     `gorm:"not null;default:100"`
	Credentials JSONMap `gorm:"type:jsonb;not null"`
	IsActive    bool    `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (ProviderAccountModel) TableName() string {
	return "provider_accounts"
}

// ToDomain converts the persistence model to a domain ProviderAccount
func (m *ProviderAccountModel) ToDomain() *supplier.ProviderAccount {
	creds := supplier.Credentials(m.Credentials)
	if creds == nil {
		creds = supplier.Credentials{}
	}
	return &supplier.ProviderAccount{
		BaseEntity:  m.BaseModel.ToDomain(),
		Code:        m.Code,
		Name:        m.Name,
		Priority:    m.Priority,
		Credentials: creds,
		IsActive:    m.IsActive,
	}
}

// FromDomain populates the persistence model from a domain ProviderAccount
func (m *ProviderAccountModel) FromDomain(a *supplier.ProviderAccount) {
	m.FromDomainBaseEntity(a.BaseEntity)
	m.Code = a.Code
	m.Name = a.Name
	m.Priority = a.Priority
	m.Credentials = JSONMap(a.Credentials)
	m.IsActive = a.IsActive
}

// SupplierProductModel is the persistence model for SupplierProduct
type SupplierProductModel struct {
	BaseModel
	ProviderAccountID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_supplier_product_account_external,priority:1"`
	ExternalID        string     `gorm:"type:varchar(128);not null;uniqueIndex:idx_supplier_product_account_external,priority:2"`
	VariantID         uuid.UUID  `gorm:"type:uuid;not null;index"`
	Raw               JSONMap    `gorm:"type:jsonb;not null"`
	RawHash           string     `gorm:"type:varchar(64);index"`
	IsActive          bool       `gorm:"not null"`
	LastSyncedAt      *time.Time `gorm:"index"`
}

// TableName returns the table name for GORM
func (SupplierProductModel) TableName() string {
	return "supplier_products"
}

// ToDomain converts the persistence model to a domain SupplierProduct
func (m *SupplierProductModel) ToDomain() *supplier.SupplierProduct {
	return &supplier.SupplierProduct{
		BaseEntity:        m.BaseModel.ToDomain(),
		ProviderAccountID: m.ProviderAccountID,
		ExternalID:        m.ExternalID,
		VariantID:         m.VariantID,
		Raw:               supplier.RawItem(m.Raw),
		RawHash:           m.RawHash,
		IsActive:          m.IsActive,
		LastSyncedAt:      m.LastSyncedAt,
	}
}

// FromDomain populates the persistence model from a domain SupplierProduct
func (m *SupplierProductModel) FromDomain(sp *supplier.SupplierProduct) {
	m.FromDomainBaseEntity(sp.BaseEntity)
	m.ProviderAccountID = sp.ProviderAccountID
	m.ExternalID = sp.ExternalID
	m.VariantID = sp.VariantID
	m.Raw = JSONMap(sp.Raw)
	m.RawHash = sp.RawHash
	m.IsActive = sp.IsActive
	m.LastSyncedAt = sp.LastSyncedAt
}

// SyncLogModel is the persistence model for SyncLog
type SyncLogModel struct {
	BaseModel
	ProviderAccountID uuid.UUID  `gorm:"type:uuid;not null;index"`
	ProviderCode      string     `gorm:"type:varchar(50);not null;index"`
	Mode              string     `gorm:"type:varchar(10);not null;default:'sync'"`
	FetchMode         string     `gorm:"type:varchar(20);not null"`
	FiltersJSON       string     `gorm:"column:filters;type:jsonb;default:'{}'"`
	StartedAt         time.Time  `gorm:"not null;index"`
	FinishedAt        *time.Time
	DurationMs        int64      `gorm:"not null;default:0"`
	Status            string     `gorm:"type:varchar(10);not null"`
	CountsJSON        string     `gorm:"column:counts;type:jsonb;default:'{}'"`
	ItemCount         int        `gorm:"not null;default:0"`
	RequestCount      int64      `gorm:"not null;default:0"`
	FirstError        string     `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (SyncLogModel) TableName() string {
	return "sync_logs"
}

// ToDomain converts the persistence model to a domain SyncLog
func (m *SyncLogModel) ToDomain() *supplier.SyncLog {
	log := &supplier.SyncLog{
		BaseEntity:        m.BaseModel.ToDomain(),
		ProviderAccountID: m.ProviderAccountID,
		ProviderCode:      m.ProviderCode,
		Mode:              supplier.SyncMode(m.Mode),
		FetchMode:         supplier.FetchMode(m.FetchMode),
		Filters:           map[string]string{},
		StartedAt:         m.StartedAt,
		FinishedAt:        m.FinishedAt,
		DurationMs:        m.DurationMs,
		Status:            supplier.SyncStatus(m.Status),
		ItemCount:         m.ItemCount,
		RequestCount:      m.RequestCount,
		FirstError:        m.FirstError,
	}
	if m.FiltersJSON != "" && m.FiltersJSON != "{}" {
		if err := json.Unmarshal([]byte(m.FiltersJSON), &log.Filters); err != nil {
			modelLogger().Warn("failed to parse sync log filters JSON",
				zap.String("sync_log_id", m.ID.String()),
				zap.Error(err))
		}
	}
	if m.CountsJSON != "" {
		if err := json.Unmarshal([]byte(m.CountsJSON), &log.Counts); err != nil {
			modelLogger().Warn("failed to parse sync log counts JSON",
				zap.String("sync_log_id", m.ID.String()),
				zap.Error(err))
		}
	}
	return log
}

// FromDomain populates the persistence model from a domain SyncLog
func (m *SyncLogModel) FromDomain(l *supplier.SyncLog) {
	m.FromDomainBaseEntity(l.BaseEntity)
	m.ProviderAccountID = l.ProviderAccountID
	m.ProviderCode = l.ProviderCode
	m.Mode = string(l.Mode)
	m.FetchMode = string(l.FetchMode)
	m.StartedAt = l.StartedAt
	m.FinishedAt = l.FinishedAt
	m.DurationMs = l.DurationMs
	m.Status = string(l.Status)
	m.ItemCount = l.ItemCount
	m.RequestCount = l.RequestCount
	m.FirstError = l.FirstError

	m.FiltersJSON = "{}"
	if len(l.Filters) > 0 {
		if blob, err := json.Marshal(l.Filters); err == nil {
			m.FiltersJSON = string(blob)
		}
	}
	m.CountsJSON = "{}"
	if blob, err := json.Marshal(l.Counts); err == nil {
		m.CountsJSON = string(blob)
	}
}
