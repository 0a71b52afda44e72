package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	importapp "github.com/supplysync/backend/internal/application/import"
	"github.com/supplysync/backend/internal/domain/bulk"
	"github.com/supplysync/backend/internal/interfaces/http/dto"
	"github.com/supplysync/backend/internal/interfaces/http/middleware"
)

// ImportService is what the bulk import endpoints need
type ImportService interface {
	SaveUpload(ctx context.Context, filename string, r io.Reader) (string, error)
	Preview(ctx context.Context, req importapp.PreviewRequest) (*importapp.PreviewResult, error)
	Commit(ctx context.Context, req importapp.CommitRequest) (*importapp.CommitResult, error)
	GetImportLog(ctx context.Context, id uuid.UUID) (*bulk.ImportLog, error)
	ListImportLogs(ctx context.Context, limit int) ([]bulk.ImportLog, error)
	Template(format string) (*importapp.TemplateFile, error)
	CleanupStaleUploads(ctx context.Context, olderThan time.Duration) (int, error)
}

var _ ImportService = (*importapp.Service)(nil)

// ImportHandler handles manual bulk import endpoints
type ImportHandler struct {
	BaseHandler
	service ImportService
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(service ImportService) *ImportHandler {
	return &ImportHandler{service: service}
}

// Upload stores the multipart "file" field and returns its token
func (h *ImportHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		h.BadRequest(c, "file is required")
		return
	}
	file, err := header.Open()
	if err != nil {
		h.BadRequest(c, "file could not be read")
		return
	}
	defer file.Close()

	token, err := h.service.SaveUpload(c.Request.Context(), header.Filename, file)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.UploadResponse{Token: token})
}

// Preview classifies one page of an upload
func (h *ImportHandler) Preview(c *gin.Context) {
	var req dto.ImportPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.service.Preview(c.Request.Context(), importapp.PreviewRequest{
		Token:   req.Token,
		Upsert:  req.Upsert,
		Mapping: req.Mapping,
		Page:    req.Page,
		PerPage: req.PerPage,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Commit writes an upload to the catalog
func (h *ImportHandler) Commit(c *gin.Context) {
	var req dto.ImportCommitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	var importedBy *uuid.UUID
	if req.ImportedBy != "" {
		id := uuid.MustParse(req.ImportedBy)
		importedBy = &id
	}

	result, err := h.service.Commit(c.Request.Context(), importapp.CommitRequest{
		Token:      req.Token,
		Upsert:     req.Upsert,
		DryRun:     req.DryRun,
		Mapping:    req.Mapping,
		ImportedBy: importedBy,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ListLogs returns the latest commit records
func (h *ImportHandler) ListLogs(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	logs, err := h.service.ListImportLogs(c.Request.Context(), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToImportLogResponses(logs))
}

// GetLog returns one commit record with its row errors
func (h *ImportHandler) GetLog(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid import log ID")
		return
	}
	log, err := h.service.GetImportLog(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToImportLogResponse(log, true))
}

// Template downloads the sample upload, ?format=csv|json
func (h *ImportHandler) Template(c *gin.Context) {
	file, err := h.service.Template(c.DefaultQuery("format", "csv"))
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Body)
}

// Cleanup purges stale uploads
func (h *ImportHandler) Cleanup(c *gin.Context) {
	var req dto.CleanupRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	removed, err := h.service.CleanupStaleUploads(c.Request.Context(), time.Duration(req.OlderThanHours)*time.Hour)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.CleanupResponse{Removed: removed})
}
