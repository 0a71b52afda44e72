package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	syncapp "github.com/supplysync/backend/internal/application/sync"
	"github.com/supplysync/backend/internal/domain/supplier"
	"github.com/supplysync/backend/internal/interfaces/http/dto"
	"github.com/supplysync/backend/internal/interfaces/http/middleware"
)

// SyncService is what the sync endpoints need from the orchestrator
type SyncService interface {
	SyncProvider(ctx context.Context, req syncapp.SyncRequest) (*syncapp.ProviderSyncResult, error)
	Dump(ctx context.Context, req syncapp.DumpRequest) (*syncapp.DumpResult, error)
	Ping(ctx context.Context, code string) (*syncapp.PingResult, error)
	RecentLogs(ctx context.Context, code string, limit int) ([]supplier.SyncLog, error)
	GetLog(ctx context.Context, id uuid.UUID) (*supplier.SyncLog, error)
	Providers() []string
}

var _ SyncService = (*syncapp.Service)(nil)

// SyncHandler handles supplier sync API endpoints
type SyncHandler struct {
	BaseHandler
	service SyncService
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(service SyncService) *SyncHandler {
	return &SyncHandler{service: service}
}

// ListProviders returns the provider codes with a registered adapter
func (h *SyncHandler) ListProviders(c *gin.Context) {
	h.Success(c, gin.H{"providers": h.service.Providers()})
}

// Sync runs one catalog sync for the provider in the path
func (h *SyncHandler) Sync(c *gin.Context) {
	var req dto.SyncProviderRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	mode, err := supplier.ParseFetchMode(req.FetchMode)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.SyncProvider(c.Request.Context(), syncapp.SyncRequest{
		ProviderCode: c.Param("code"),
		PageSize:     req.PageSize,
		MaxPages:     req.MaxPages,
		Limit:        req.Limit,
		Filters:      req.Filters,
		FetchMode:    mode,
		BulkSize:     req.BulkSize,
		DryRun:       req.DryRun,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Dump downloads raw supplier items to the artifact store
func (h *SyncHandler) Dump(c *gin.Context) {
	var req dto.DumpProviderRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	mode, err := supplier.ParseFetchMode(req.FetchMode)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	format, err := syncapp.ParseDumpFormat(req.Format)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Dump(c.Request.Context(), syncapp.DumpRequest{
		ProviderCode: c.Param("code"),
		PageSize:     req.PageSize,
		MaxPages:     req.MaxPages,
		Limit:        req.Limit,
		Filters:      req.Filters,
		FetchMode:    mode,
		BulkSize:     req.BulkSize,
		Format:       format,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Ping checks that the provider answers a one-item listing
func (h *SyncHandler) Ping(c *gin.Context) {
	result, err := h.service.Ping(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ListLogs returns the latest runs of the provider
func (h *SyncHandler) ListLogs(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	logs, err := h.service.RecentLogs(c.Request.Context(), c.Param("code"), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToSyncLogResponses(logs))
}

// GetLog returns one run
func (h *SyncHandler) GetLog(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid sync log ID")
		return
	}
	log, err := h.service.GetLog(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToSyncLogResponse(log))
}

// bindOptionalJSON binds a JSON body when one was sent. An empty body keeps
// the zero request so every field falls back to its default.
func bindOptionalJSON(c *gin.Context, obj any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(obj); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// queryLimit parses ?limit=, leaving 0 for the service default
func queryLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		(&BaseHandler{}).BadRequest(c, "limit must be a non-negative integer")
		return 0, false
	}
	return limit, true
}
