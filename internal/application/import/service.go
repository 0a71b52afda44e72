// Package importapp runs the manual bulk import: uploads are stored as
// temporary artifacts, previewed page by page and committed row by row.
package importapp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/supplysync/backend/internal/domain/bulk"
	"github.com/supplysync/backend/internal/domain/catalog"
	"github.com/supplysync/backend/internal/domain/shared"
	csvimport "github.com/supplysync/backend/internal/infrastructure/import"
	"github.com/supplysync/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Upload errors
var (
	ErrInvalidToken   = errors.New("import: invalid upload token")
	ErrUploadNotFound = errors.New("import: upload not found or expired")
)

// Config tunes the importer
type Config struct {
	// TmpPrefix is the artifact key prefix for uploaded files
	TmpPrefix      string
	DefaultPerPage int
	MaxUploadBytes int64
	// CleanupAfter is the age past which uploads are purged
	CleanupAfter time.Duration
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		TmpPrefix:      "tmp_imports/",
		DefaultPerPage: 500,
		MaxUploadBytes: 20 << 20,
		CleanupAfter:   24 * time.Hour,
	}
}

// Deps are the collaborators of Service
type Deps struct {
	// Variants answers the SKU existence check of previews
	Variants  catalog.VariantRepository
	Scope     catalog.TransactionScope
	Logs      bulk.ImportLogRepository
	Artifacts shared.ArtifactStore
}

// Service implements upload, preview and commit of bulk imports
type Service struct {
	variants  catalog.VariantRepository
	scope     catalog.TransactionScope
	logs      bulk.ImportLogRepository
	artifacts shared.ArtifactStore
	metrics   *telemetry.SyncMetrics
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a new Service. Zero config values fall back to DefaultConfig.
func NewService(deps Deps, cfg Config, logger *zap.Logger) *Service {
	def := DefaultConfig()
	if cfg.TmpPrefix == "" {
		cfg.TmpPrefix = def.TmpPrefix
	}
	if !strings.HasSuffix(cfg.TmpPrefix, "/") {
		cfg.TmpPrefix += "/"
	}
	if cfg.DefaultPerPage <= 0 {
		cfg.DefaultPerPage = def.DefaultPerPage
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = def.MaxUploadBytes
	}
	if cfg.CleanupAfter <= 0 {
		cfg.CleanupAfter = def.CleanupAfter
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		variants:  deps.Variants,
		scope:     deps.Scope,
		logs:      deps.Logs,
		artifacts: deps.Artifacts,
		cfg:       cfg,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetSyncMetrics sets the metrics recorder. Nil disables recording.
func (s *Service) SetSyncMetrics(m *telemetry.SyncMetrics) {
	s.metrics = m
}

// SaveUpload stores an uploaded file and returns the token that later
// preview and commit calls refer to.
func (s *Service) SaveUpload(ctx context.Context, filename string, r io.Reader) (string, error) {
	name := safeName(filename)
	if !csvimport.IsSupportedFile(name) {
		return "", csvimport.ErrUnsupportedFileType
	}

	data, err := io.ReadAll(io.LimitReader(r, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return "", csvimport.ErrFileTooLarge
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return "", csvimport.ErrEmptyFile
	}

	token := uuid.NewString() + "_" + name
	if _, err := s.artifacts.Put(ctx, s.cfg.TmpPrefix+token, bytes.NewReader(data), contentTypeFor(name)); err != nil {
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	s.logger.Info("import.upload_saved",
		zap.String("token", token),
		zap.Int("bytes", len(data)),
	)
	return token, nil
}

// load reads and parses the upload behind token
func (s *Service) load(ctx context.Context, token string) (*csvimport.Document, error) {
	if err := validateToken(token); err != nil {
		return nil, err
	}
	rc, err := s.artifacts.Open(ctx, s.cfg.TmpPrefix+token)
	if err != nil {
		if errors.Is(err, shared.ErrArtifactNotFound) {
			return nil, ErrUploadNotFound
		}
		return nil, err
	}
	defer rc.Close()
	return csvimport.Load(token, rc)
}

// CleanupStaleUploads deletes uploads older than olderThan and returns how
// many were removed. A non-positive olderThan uses the configured age.
func (s *Service) CleanupStaleUploads(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		olderThan = s.cfg.CleanupAfter
	}
	cutoff := s.now().Add(-olderThan)

	infos, err := s.artifacts.List(ctx, s.cfg.TmpPrefix)
	if err != nil {
		return 0, fmt.Errorf("failed to list uploads: %w", err)
	}
	removed := 0
	for _, info := range infos {
		if !info.ModTime.Before(cutoff) {
			continue
		}
		if err := s.artifacts.Delete(ctx, info.Key); err != nil {
			s.logger.Warn("import.cleanup_failed", zap.String("key", info.Key), zap.Error(err))
			continue
		}
		removed++
	}
	s.logger.Info("import.cleanup", zap.Int("removed", removed), zap.Duration("older_than", olderThan))
	return removed, nil
}

// GetImportLog returns one commit record with its full row errors
func (s *Service) GetImportLog(ctx context.Context, id uuid.UUID) (*bulk.ImportLog, error) {
	return s.logs.FindByID(ctx, id)
}

// ListImportLogs returns the latest commit records
func (s *Service) ListImportLogs(ctx context.Context, limit int) ([]bulk.ImportLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.logs.List(ctx, limit)
}

// TemplateFile is a downloadable upload template
type TemplateFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Template renders the sample upload in format "csv" or "json"
func (s *Service) Template(format string) (*TemplateFile, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "csv":
		body, err := csvimport.TemplateCSV()
		if err != nil {
			return nil, err
		}
		return &TemplateFile{Filename: "product_import_template.csv", ContentType: "text/csv", Body: body}, nil
	case "json":
		body, err := csvimport.TemplateJSON()
		if err != nil {
			return nil, err
		}
		return &TemplateFile{Filename: "product_import_template.json", ContentType: "application/json", Body: body}, nil
	}
	return nil, fmt.Errorf("unsupported template format %q", format)
}

// safeName keeps the base name of an uploaded file with unsafe characters replaced
func safeName(filename string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), `\`, "/"))
	if base == "." || base == "/" {
		return ""
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, base)
}

func validateToken(token string) error {
	if token == "" || token != safeName(token) || strings.HasPrefix(token, ".") {
		return ErrInvalidToken
	}
	if !csvimport.IsSupportedFile(token) {
		return ErrInvalidToken
	}
	return nil
}

func contentTypeFor(name string) string {
	if strings.EqualFold(path.Ext(name), csvimport.ExtJSON) {
		return "application/json"
	}
	return "text/csv"
}
