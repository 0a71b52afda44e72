package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/supplysync/backend/internal/domain/shared"
)

// BaseModel provides common persistence fields for all models.
// It maps to the domain's BaseEntity.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToDomain converts BaseModel to domain BaseEntity
func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomainBaseEntity populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// JSONMap is a JSON object column. It is stored as text so the same model
// works on PostgreSQL jsonb and on SQLite.
type JSONMap map[string]any

// Value implements driver.Valuer
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return "{}", nil
	}
	blob, err := json.Marshal(map[string]any(j))
	if err != nil {
		return nil, err
	}
	return string(blob), nil
}

// Scan implements sql.Scanner. Numbers decode as json.Number so decimal
// prices in supplier payloads survive a round trip.
func (j *JSONMap) Scan(value any) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*j = JSONMap{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("models: cannot scan %T into JSONMap", value)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		*j = JSONMap{}
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	m := map[string]any{}
	if err := dec.Decode(&m); err != nil {
		return fmt.Errorf("models: decode JSONMap: %w", err)
	}
	*j = m
	return nil
}

// GormDataType keeps AutoMigrate portable across dialects
func (JSONMap) GormDataType() string {
	return "json"
}
