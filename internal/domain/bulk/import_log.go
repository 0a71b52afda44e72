package bulk

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/supplysync/backend/internal/domain/shared"
)

// CommitCounts tallies the outcome of a commit
type CommitCounts struct {
	ProductsCreated      int `json:"products_created"`
	ProductsUpdated      int `json:"products_updated"`
	VariantsCreated      int `json:"variants_created"`
	VariantsUpdated      int `json:"variants_updated"`
	MediaCreated         int `json:"media_created"`
	InventorySet         int `json:"inventory_set"`
	InventoryIncremented int `json:"inventory_incremented"`
	Skipped              int `json:"skipped"`
	Errored              int `json:"errored"`
}

// RowErrorEntry is a row-level failure recorded on commit
type RowErrorEntry struct {
	RowIndex int    `json:"row_index"`
	Error    string `json:"error"`
}

// ImportLog is the audit record of one manual bulk-import commit
type ImportLog struct {
	shared.BaseEntity
	ImportedBy *uuid.UUID
	Filename   string
	Upsert     bool
	DryRun     bool
	Counts     CommitCounts
	Errors     []RowErrorEntry
}

// NewImportLog creates an audit record for a commit of filename
func NewImportLog(filename string, upsert, dryRun bool, importedBy *uuid.UUID) (*ImportLog, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, shared.NewDomainError("INVALID_FILE_NAME", "File name cannot be empty")
	}
	if len(filename) > 255 {
		filename = filename[:255]
	}
	return &ImportLog{
		BaseEntity: shared.NewBaseEntity(),
		ImportedBy: importedBy,
		Filename:   filename,
		Upsert:     upsert,
		DryRun:     dryRun,
		Errors:     make([]RowErrorEntry, 0),
	}, nil
}

// Record stores the commit outcome
func (l *ImportLog) Record(counts CommitCounts, errs []RowErrorEntry) {
	l.Counts = counts
	if errs == nil {
		errs = make([]RowErrorEntry, 0)
	}
	l.Errors = errs
	l.UpdatedAt = time.Now()
}
