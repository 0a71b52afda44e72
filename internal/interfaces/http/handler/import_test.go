package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	importapp "github.com/supplysync/backend/internal/application/import"
	"github.com/supplysync/backend/internal/domain/bulk"
	"github.com/supplysync/backend/internal/domain/shared"
	csvimport "github.com/supplysync/backend/internal/infrastructure/import"
	"github.com/supplysync/backend/internal/interfaces/http/dto"
	"github.com/supplysync/backend/internal/interfaces/http/router"
	"github.com/supplysync/backend/tests/testutil"
)

type MockImportService struct {
	mock.Mock
}

func (m *MockImportService) SaveUpload(ctx context.Context, filename string, r io.Reader) (string, error) {
	body, _ := io.ReadAll(r)
	args := m.Called(ctx, filename, string(body))
	return args.String(0), args.Error(1)
}

func (m *MockImportService) Preview(ctx context.Context, req importapp.PreviewRequest) (*importapp.PreviewResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*importapp.PreviewResult), args.Error(1)
}

func (m *MockImportService) Commit(ctx context.Context, req importapp.CommitRequest) (*importapp.CommitResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*importapp.CommitResult), args.Error(1)
}

func (m *MockImportService) GetImportLog(ctx context.Context, id uuid.UUID) (*bulk.ImportLog, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bulk.ImportLog), args.Error(1)
}

func (m *MockImportService) ListImportLogs(ctx context.Context, limit int) ([]bulk.ImportLog, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]bulk.ImportLog), args.Error(1)
}

func (m *MockImportService) Template(format string) (*importapp.TemplateFile, error) {
	args := m.Called(format)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*importapp.TemplateFile), args.Error(1)
}

func (m *MockImportService) CleanupStaleUploads(ctx context.Context, olderThan time.Duration) (int, error) {
	args := m.Called(ctx, olderThan)
	return args.Int(0), args.Error(1)
}

const testUploadLimit = 1 << 10

func newImportTestRouter(svc *MockImportService) *gin.Engine {
	engine := gin.New()
	router.NewRouter(engine).Register(ImportRoutes(NewImportHandler(svc), testUploadLimit)).Setup()
	return engine
}

func TestImportHandler_Upload(t *testing.T) {
	t.Run("stores file", func(t *testing.T) {
		svc := new(MockImportService)
		svc.On("SaveUpload", mock.Anything, "catalog.csv", "sku,title\nA-1,Mug\n").
			Return("tok_catalog.csv", nil)

		w := httptest.NewRecorder()
		newImportTestRouter(svc).ServeHTTP(w, testutil.MultipartUpload(t, "/api/v1/imports/upload", "file", "catalog.csv", "sku,title\nA-1,Mug\n"))

		assert.Equal(t, http.StatusCreated, w.Code)
		data := decodeResponse(t, w).Data.(map[string]interface{})
		assert.Equal(t, "tok_catalog.csv", data["token"])
		svc.AssertExpectations(t)
	})

	t.Run("missing file field", func(t *testing.T) {
		svc := new(MockImportService)

		w := httptest.NewRecorder()
		newImportTestRouter(svc).ServeHTTP(w, testutil.MultipartUpload(t, "/api/v1/imports/upload", "other", "catalog.csv", "x"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "SaveUpload", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unsupported type", func(t *testing.T) {
		svc := new(MockImportService)
		svc.On("SaveUpload", mock.Anything, "catalog.xlsx", mock.Anything).
			Return("", csvimport.ErrUnsupportedFileType)

		w := httptest.NewRecorder()
		newImportTestRouter(svc).ServeHTTP(w, testutil.MultipartUpload(t, "/api/v1/imports/upload", "file", "catalog.xlsx", "x"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("too large for the service", func(t *testing.T) {
		svc := new(MockImportService)
		svc.On("SaveUpload", mock.Anything, "big.csv", mock.Anything).
			Return("", fmt.Errorf("%w: limit 10 bytes", csvimport.ErrFileTooLarge))

		w := httptest.NewRecorder()
		newImportTestRouter(svc).ServeHTTP(w, testutil.MultipartUpload(t, "/api/v1/imports/upload", "file", "big.csv", "sku\nA-1\nA-2\n"))

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, dto.ErrCodePayloadTooLarge, decodeResponse(t, w).Error.Code)
	})

	t.Run("rejected by body limit", func(t *testing.T) {
		svc := new(MockImportService)
		req := testutil.MultipartUpload(t, "/api/v1/imports/upload", "file", "huge.csv", string(bytes.Repeat([]byte("x"), testUploadLimit+multipartOverhead)))

		w := httptest.NewRecorder()
		newImportTestRouter(svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		svc.AssertNotCalled(t, "SaveUpload", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestImportHandler_Preview(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		svc := new(MockImportService)
		svc.On("Preview", mock.Anything, importapp.PreviewRequest{
			Token:   "tok_a.csv",
			Upsert:  true,
			Mapping: map[string]string{"sku": "Item Code"},
			Page:    2,
			PerPage: 25,
		}).Return(&importapp.PreviewResult{Token: "tok_a.csv", Page: 2, PerPage: 25, TotalPages: 3}, nil)

		w := testutil.ServeJSON(newImportTestRouter(svc), "POST", "/api/v1/imports/preview",
			`{"token":"tok_a.csv","upsert":true,"mapping":{"sku":"Item Code"},"page":2,"per_page":25}`)

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeResponse(t, w).Data.(map[string]interface{})
		assert.Equal(t, float64(3), data["total_pages"])
		svc.AssertExpectations(t)
	})

	t.Run("token required", func(t *testing.T) {
		svc := new(MockImportService)
		w := testutil.ServeJSON(newImportTestRouter(svc), "POST", "/api/v1/imports/preview", `{"page":1}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		require.NotEmpty(t, resp.Error.Details)
		assert.Equal(t, "token", resp.Error.Details[0].Field)
	})

	t.Run("expired upload", func(t *testing.T) {
		svc := new(MockImportService)
		svc.On("Preview", mock.Anything, mock.Anything).Return(nil, importapp.ErrUploadNotFound)

		w := testutil.ServeJSON(newImportTestRouter(svc), "POST", "/api/v1/imports/preview", `{"token":"tok_gone.csv"}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("path traversal token", func(t *testing.T) {
		svc := new(MockImportService)
		svc.On("Preview", mock.Anything, mock.Anything).Return(nil, importapp.ErrInvalidToken)

		w := testutil.ServeJSON(newImportTestRouter(svc), "POST", "/api/v1/imports/preview", `{"token":"../etc/passwd"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestImportHandler_Commit(t *testing.T) {
	t.Run("with importer", func(t *testing.T) {
		importer := uuid.New()
		svc := new(MockImportService)
		svc.On("Commit", mock.Anything, importapp.CommitRequest{
			Token:      "tok_a.csv",
			Upsert:     true,
			DryRun:     true,
			ImportedBy: &importer,
		}).Return(&importapp.CommitResult{
			Counts: bulk.CommitCounts{ProductsCreated: 2, VariantsCreated: 3},
			DryRun: true,
		}, nil)

		body := fmt.Sprintf(`{"token":"tok_a.csv","upsert":true,"dry_run":true,"imported_by":%q}`, importer)
		w := testutil.ServeJSON(newImportTestRouter(svc), "POST", "/api/v1/imports/commit", body)

		require.Equal(t, http.StatusOK, w.Code)
		data := decodeResponse(t, w).Data.(map[string]interface{})
		counts := data["counts"].(map[string]interface{})
		assert.Equal(t, float64(2), counts["products_created"])
		svc.AssertExpectations(t)
	})

	t.Run("invalid importer id", func(t *testing.T) {
		svc := new(MockImportService)
		w := testutil.ServeJSON(newImportTestRouter(svc), "POST", "/api/v1/imports/commit",
			`{"token":"tok_a.csv","imported_by":"someone"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Commit", mock.Anything, mock.Anything)
	})
}

func TestImportHandler_Logs(t *testing.T) {
	log := bulk.ImportLog{
		BaseEntity: shared.NewBaseEntity(),
		Filename:   "tok_a.csv",
		Counts:     bulk.CommitCounts{Errored: 1},
		Errors:     []bulk.RowErrorEntry{{RowIndex: 4, Error: "missing sku"}},
	}

	t.Run("list", func(t *testing.T) {
		svc := new(MockImportService)
		svc.On("ListImportLogs", mock.Anything, 10).Return([]bulk.ImportLog{log}, nil)

		w := testutil.ServeJSON(newImportTestRouter(svc), "GET", "/api/v1/imports/logs?limit=10", "")

		require.Equal(t, http.StatusOK, w.Code)
		items := decodeResponse(t, w).Data.([]interface{})
		require.Len(t, items, 1)
		assert.Nil(t, items[0].(map[string]interface{})["errors"])
	})

	t.Run("get includes row errors", func(t *testing.T) {
		svc := new(MockImportService)
		svc.On("GetImportLog", mock.Anything, log.ID).Return(&log, nil)

		w := testutil.ServeJSON(newImportTestRouter(svc), "GET", "/api/v1/imports/logs/"+log.ID.String(), "")

		require.Equal(t, http.StatusOK, w.Code)
		data := decodeResponse(t, w).Data.(map[string]interface{})
		assert.Len(t, data["errors"], 1)
	})

	t.Run("get missing", func(t *testing.T) {
		svc := new(MockImportService)
		svc.On("GetImportLog", mock.Anything, mock.Anything).Return(nil, bulk.ErrImportLogNotFound)

		w := testutil.ServeJSON(newImportTestRouter(svc), "GET", "/api/v1/imports/logs/"+uuid.NewString(), "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestImportHandler_Template(t *testing.T) {
	t.Run("csv by default", func(t *testing.T) {
		svc := new(MockImportService)
		svc.On("Template", "csv").Return(&importapp.TemplateFile{
			Filename:    "supplier_import_template.csv",
			ContentType: "text/csv",
			Body:        []byte("sku,title\n"),
		}, nil)

		w := testutil.ServeJSON(newImportTestRouter(svc), "GET", "/api/v1/imports/template", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="supplier_import_template.csv"`, w.Header().Get("Content-Disposition"))
		assert.Equal(t, "sku,title\n", w.Body.String())
	})

	t.Run("unknown format", func(t *testing.T) {
		svc := new(MockImportService)
		svc.On("Template", "xml").Return(nil, fmt.Errorf("unknown template format %q", "xml"))

		w := testutil.ServeJSON(newImportTestRouter(svc), "GET", "/api/v1/imports/template?format=xml", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestImportHandler_Cleanup(t *testing.T) {
	t.Run("default age", func(t *testing.T) {
		svc := new(MockImportService)
		svc.On("CleanupStaleUploads", mock.Anything, time.Duration(0)).Return(3, nil)

		w := testutil.ServeJSON(newImportTestRouter(svc), "POST", "/api/v1/imports/cleanup", "")

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeResponse(t, w).Data.(map[string]interface{})
		assert.Equal(t, float64(3), data["removed"])
	})

	t.Run("explicit hours", func(t *testing.T) {
		svc := new(MockImportService)
		svc.On("CleanupStaleUploads", mock.Anything, 48*time.Hour).Return(0, nil)

		w := testutil.ServeJSON(newImportTestRouter(svc), "POST", "/api/v1/imports/cleanup", `{"older_than_hours":48}`)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})
}
