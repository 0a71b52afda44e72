package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	importapp "github.com/supplysync/backend/internal/application/import"
	"github.com/supplysync/backend/internal/domain/bulk"
	"github.com/supplysync/backend/internal/domain/shared"
	"github.com/supplysync/backend/internal/domain/supplier"
	csvimport "github.com/supplysync/backend/internal/infrastructure/import"
	"github.com/supplysync/backend/internal/interfaces/http/dto"
)

// RequestIDKey is the context key for request ID
const RequestIDKey = "X-Request-ID"

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	if id := c.GetHeader(RequestIDKey); id != "" {
		return id
	}
	return ""
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	requestID := getRequestID(c)
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, requestID))
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Conflict sends a 409 conflict response
func (h *BaseHandler) Conflict(c *gin.Context, message string) {
	h.Error(c, http.StatusConflict, dto.ErrCodeConflict, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// TooManyRequests sends a 429 too many requests response
func (h *BaseHandler) TooManyRequests(c *gin.Context, message string) {
	h.Error(c, http.StatusTooManyRequests, dto.ErrCodeRateLimited, message)
}

// ValidationError sends a 400 validation error response with details
func (h *BaseHandler) ValidationError(c *gin.Context, details []dto.ValidationDetail) {
	requestID := getRequestID(c)
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
		"Request validation failed",
		requestID,
		details,
	))
}

// errorMapping pairs a sentinel with the response it produces
type errorMapping struct {
	target  error
	code    string
	message string
}

// sentinelErrors is checked in order; the first match wins. An empty
// message means the error text itself is safe to return.
var sentinelErrors = []errorMapping{
	{supplier.ErrLockContention, dto.ErrCodeSyncLocked, supplier.LockContentionMessage},
	{supplier.ErrAccountNotFound, dto.ErrCodeNotFound, "No active account for this provider"},
	{supplier.ErrUnknownProvider, dto.ErrCodeNotFound, "No adapter registered for this provider"},
	{supplier.ErrSyncLogNotFound, dto.ErrCodeNotFound, "Sync log not found"},
	{supplier.ErrSupplierProductNotFound, dto.ErrCodeNotFound, "Supplier product not found"},
	{supplier.ErrInvalidCredentials, dto.ErrCodeInvalidState, ""},
	{supplier.ErrRateLimited, dto.ErrCodeRateLimited, ""},
	{supplier.ErrAuth, dto.ErrCodeUpstreamAuth, ""},
	{supplier.ErrTransientHTTP, dto.ErrCodeUpstream, ""},
	{supplier.ErrInvalidResponse, dto.ErrCodeUpstream, ""},
	{bulk.ErrImportLogNotFound, dto.ErrCodeNotFound, "Import log not found"},
	{importapp.ErrUploadNotFound, dto.ErrCodeNotFound, "Upload not found or expired"},
	{importapp.ErrInvalidToken, dto.ErrCodeBadRequest, "Invalid upload token"},
	{csvimport.ErrFileTooLarge, dto.ErrCodePayloadTooLarge, ""},
	{csvimport.ErrUnsupportedFileType, dto.ErrCodeBadRequest, ""},
	{csvimport.ErrEmptyFile, dto.ErrCodeBadRequest, ""},
	{csvimport.ErrMissingHeader, dto.ErrCodeBadRequest, ""},
	{csvimport.ErrInvalidJSONShape, dto.ErrCodeBadRequest, ""},
}

// HandleError converts service errors to HTTP responses. Supplier failures
// surface as 502, lock contention as 409, unknown errors as 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	requestID := getRequestID(c)

	for _, m := range sentinelErrors {
		if errors.Is(err, m.target) {
			message := m.message
			if message == "" {
				message = err.Error()
			}
			c.JSON(dto.GetHTTPStatus(m.code), dto.NewErrorResponseWithRequestID(m.code, message, requestID))
			return
		}
	}

	// Check for domain error using errors.As for wrapped error support
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		statusCode := dto.GetHTTPStatus(code)
		c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, domainErr.Message, requestID))
		return
	}

	// Default to internal error for unknown error types
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeInternal,
		"An unexpected error occurred",
		requestID,
	))
}
