package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/supplysync/backend/internal/domain/supplier"
)

// SyncProviderRequest is the body of POST /providers/:code/sync
type SyncProviderRequest struct {
	PageSize  int               `json:"page_size" binding:"omitempty,min=1,max=200"`
	MaxPages  int               `json:"max_pages" binding:"omitempty,min=1"`
	Limit     int               `json:"limit" binding:"omitempty,min=0"`
	Filters   map[string]string `json:"filters"`
	FetchMode string            `json:"fetch_mode" binding:"omitempty,oneof=list_only bulk_detail per_detail"`
	BulkSize  int               `json:"bulk_size" binding:"omitempty,min=1,max=100"`
	DryRun    bool              `json:"dry_run"`
}

// DumpProviderRequest is the body of POST /providers/:code/dump
type DumpProviderRequest struct {
	PageSize  int               `json:"page_size" binding:"omitempty,min=1,max=200"`
	MaxPages  int               `json:"max_pages" binding:"omitempty,min=1"`
	Limit     int               `json:"limit" binding:"omitempty,min=0"`
	Filters   map[string]string `json:"filters"`
	FetchMode string            `json:"fetch_mode" binding:"omitempty,oneof=list_only bulk_detail per_detail"`
	BulkSize  int               `json:"bulk_size" binding:"omitempty,min=1,max=100"`
	Format    string            `json:"format" binding:"omitempty,oneof=json zip"`
}

// SyncLogResponse is the API view of a sync or download run
type SyncLogResponse struct {
	ID           uuid.UUID           `json:"id"`
	Provider     string              `json:"provider"`
	Mode         string              `json:"mode"`
	FetchMode    string              `json:"fetch_mode"`
	Filters      map[string]string   `json:"filters"`
	Status       string              `json:"status"`
	Counts       supplier.SyncCounts `json:"counts"`
	ItemCount    int                 `json:"item_count"`
	RequestCount int64               `json:"request_count"`
	FirstError   string              `json:"first_error,omitempty"`
	StartedAt    time.Time           `json:"started_at"`
	FinishedAt   *time.Time          `json:"finished_at,omitempty"`
	DurationMs   int64               `json:"duration_ms"`
}

// ToSyncLogResponse converts a domain log row
func ToSyncLogResponse(l *supplier.SyncLog) SyncLogResponse {
	filters := l.Filters
	if filters == nil {
		filters = map[string]string{}
	}
	return SyncLogResponse{
		ID:           l.ID,
		Provider:     l.ProviderCode,
		Mode:         string(l.Mode),
		FetchMode:    string(l.FetchMode),
		Filters:      filters,
		Status:       string(l.Status),
		Counts:       l.Counts,
		ItemCount:    l.ItemCount,
		RequestCount: l.RequestCount,
		FirstError:   l.FirstError,
		StartedAt:    l.StartedAt,
		FinishedAt:   l.FinishedAt,
		DurationMs:   l.DurationMs,
	}
}

// ToSyncLogResponses converts a list of log rows
func ToSyncLogResponses(logs []supplier.SyncLog) []SyncLogResponse {
	out := make([]SyncLogResponse, 0, len(logs))
	for i := range logs {
		out = append(out, ToSyncLogResponse(&logs[i]))
	}
	return out
}
