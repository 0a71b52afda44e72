package supplier

import (
	"time"

	"github.com/google/uuid"
	"github.com/supplysync/backend/internal/domain/shared"
)

// maxFirstErrorLength bounds the stored first-error message
const maxFirstErrorLength = 1000

// LockContentionMessage is recorded when a run cannot take the provider lock
const LockContentionMessage = "Concurrency lock: another sync is running."

// SyncStatus is the outcome of a sync run
type SyncStatus string

const (
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusPartial SyncStatus = "partial"
	SyncStatusError   SyncStatus = "error"
)

// IsValid checks if the status is valid
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncStatusSuccess, SyncStatusPartial, SyncStatusError:
		return true
	}
	return false
}

// SyncMode distinguishes catalog syncs from raw downloads
type SyncMode string

const (
	SyncModeSync     SyncMode = "sync"
	SyncModeDownload SyncMode = "download"
)

// SyncCounts is the structured counts map of a run
type SyncCounts struct {
	RawSeen          int `json:"raw_seen"`
	ProductsUpserted int `json:"products_upserted"`
	VariantsUpserted int `json:"variants_upserted"`
	VariantsSkipped  int `json:"variants_skipped"`
	LinksUpserted    int `json:"links_upserted"`
	Errors           int `json:"errors"`
	SkippedUnchanged int `json:"skipped_unchanged"`
	ProductsDryRun   int `json:"products_dry_run,omitempty"`
	VariantsDryRun   int `json:"variants_dry_run,omitempty"`
	LinksDryRun      int `json:"links_dry_run,omitempty"`
	MediaCreated     int `json:"media_created,omitempty"`
}

// Add merges other into c
func (c *SyncCounts) Add(other SyncCounts) {
	c.RawSeen += other.RawSeen
	c.ProductsUpserted += other.ProductsUpserted
	c.VariantsUpserted += other.VariantsUpserted
	c.VariantsSkipped += other.VariantsSkipped
	c.LinksUpserted += other.LinksUpserted
	c.Errors += other.Errors
	c.SkippedUnchanged += other.SkippedUnchanged
	c.ProductsDryRun += other.ProductsDryRun
	c.VariantsDryRun += other.VariantsDryRun
	c.LinksDryRun += other.LinksDryRun
	c.MediaCreated += other.MediaCreated
}

// SyncLog is one row per sync or download invocation
type SyncLog struct {
	shared.BaseEntity
	ProviderAccountID uuid.UUID
	ProviderCode      string
	Mode              SyncMode
	FetchMode         FetchMode
	Filters           map[string]string
	StartedAt         time.Time
	FinishedAt        *time.Time
	DurationMs        int64
	Status            SyncStatus
	Counts            SyncCounts
	ItemCount         int
	RequestCount      int64
	FirstError        string
}

// NewSyncLog opens a log row. Status starts optimistically as success.
func NewSyncLog(account *ProviderAccount, mode SyncMode, fetchMode FetchMode, filters map[string]string, startedAt time.Time) *SyncLog {
	return &SyncLog{
		BaseEntity:        shared.NewBaseEntity(),
		ProviderAccountID: account.ID,
		ProviderCode:      account.Code,
		Mode:              mode,
		FetchMode:         fetchMode,
		Filters:           filters,
		StartedAt:         startedAt,
		Status:            SyncStatusSuccess,
	}
}

// Finalize closes the row. Status is derived from counts unless forced
// non-empty; a run with errors is never success.
func (l *SyncLog) Finalize(now time.Time, counts SyncCounts, firstErr string, forced SyncStatus) {
	finished := now
	l.FinishedAt = &finished
	l.DurationMs = now.Sub(l.StartedAt).Milliseconds()
	l.Counts = counts
	if firstErr != "" {
		l.FirstError = TruncateError(firstErr)
	}

	switch {
	case forced != "":
		l.Status = forced
	case counts.Errors > 0:
		l.Status = SyncStatusPartial
	default:
		l.Status = SyncStatusSuccess
	}
	if l.Status == SyncStatusSuccess && counts.Errors > 0 {
		l.Status = SyncStatusPartial
	}
	l.UpdatedAt = now
}

// TruncateError bounds an error message for storage
func TruncateError(msg string) string {
	r := []rune(msg)
	if len(r) <= maxFirstErrorLength {
		return msg
	}
	return string(r[:maxFirstErrorLength])
}
