package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/supplysync/backend/internal/domain/bulk"
)

// UploadResponse carries the token later preview and commit calls use
type UploadResponse struct {
	Token string `json:"token"`
}

// ImportPreviewRequest is the body of POST /imports/preview
type ImportPreviewRequest struct {
	Token   string            `json:"token" binding:"required"`
	Upsert  bool              `json:"upsert"`
	Mapping map[string]string `json:"mapping"`
	Page    int               `json:"page" binding:"omitempty,min=1"`
	PerPage int               `json:"per_page" binding:"omitempty,min=1"`
}

// ImportCommitRequest is the body of POST /imports/commit
type ImportCommitRequest struct {
	Token   string            `json:"token" binding:"required"`
	Upsert  bool              `json:"upsert"`
	DryRun  bool              `json:"dry_run"`
	Mapping map[string]string `json:"mapping"`
	// ImportedBy is the operator's user id, when the caller knows it
	ImportedBy string `json:"imported_by" binding:"omitempty,uuid"`
}

// CleanupRequest is the body of POST /imports/cleanup
type CleanupRequest struct {
	OlderThanHours int `json:"older_than_hours" binding:"omitempty,min=1"`
}

// CleanupResponse reports how many uploads were purged
type CleanupResponse struct {
	Removed int `json:"removed"`
}

// ImportLogResponse is the API view of a commit record
type ImportLogResponse struct {
	ID         uuid.UUID            `json:"id"`
	Filename   string               `json:"filename"`
	ImportedBy *uuid.UUID           `json:"imported_by,omitempty"`
	Upsert     bool                 `json:"upsert"`
	DryRun     bool                 `json:"dry_run"`
	Counts     bulk.CommitCounts    `json:"counts"`
	Errors     []bulk.RowErrorEntry `json:"errors,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
}

// ToImportLogResponse converts a commit record. Row errors are only carried
// when withErrors is set, list views omit them.
func ToImportLogResponse(l *bulk.ImportLog, withErrors bool) ImportLogResponse {
	resp := ImportLogResponse{
		ID:         l.ID,
		Filename:   l.Filename,
		ImportedBy: l.ImportedBy,
		Upsert:     l.Upsert,
		DryRun:     l.DryRun,
		Counts:     l.Counts,
		CreatedAt:  l.CreatedAt,
	}
	if withErrors {
		resp.Errors = l.Errors
	}
	return resp
}

// ToImportLogResponses converts a list of commit records without row errors
func ToImportLogResponses(logs []bulk.ImportLog) []ImportLogResponse {
	out := make([]ImportLogResponse, 0, len(logs))
	for i := range logs {
		out = append(out, ToImportLogResponse(&logs[i], false))
	}
	return out
}
