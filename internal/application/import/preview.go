package importapp

import (
	"context"
	"fmt"

	"github.com/supplysync/backend/internal/domain/bulk"
	"github.com/supplysync/backend/internal/domain/catalog"
	csvimport "github.com/supplysync/backend/internal/infrastructure/import"
)

// Page size bounds of a preview
const (
	MinPerPage = 50
	MaxPerPage = 2000
)

// PreviewRequest selects an upload and one page of its classified rows
type PreviewRequest struct {
	Token string
	// Upsert classifies rows with an existing SKU as update instead of skip
	Upsert bool
	// Mapping is {normalized_field: supplier_header}
	Mapping map[string]string
	Page    int
	PerPage int
}

// PreviewResult is one page of a preview plus whole-file stats
type PreviewResult struct {
	Rows              []bulk.PreviewRow `json:"rows"`
	Stats             bulk.PreviewStats `json:"stats"`
	Upsert            bool              `json:"upsert"`
	Token             string            `json:"token"`
	Page              int               `json:"page"`
	PerPage           int               `json:"per_page"`
	TotalPages        int               `json:"total_pages"`
	SourceHeaders     []string          `json:"source_headers"`
	Mapping           map[string]string `json:"mapping"`
	AllowedCurrencies []string          `json:"allowed_currencies"`
}

// Preview classifies every row of an upload without writing anything
func (s *Service) Preview(ctx context.Context, req PreviewRequest) (*PreviewResult, error) {
	doc, err := s.load(ctx, req.Token)
	if err != nil {
		return nil, err
	}
	rows, stats, err := s.classify(ctx, doc, req.Mapping, req.Upsert)
	if err != nil {
		return nil, err
	}

	perPage := req.PerPage
	if perPage <= 0 {
		perPage = s.cfg.DefaultPerPage
	}
	perPage = min(max(perPage, MinPerPage), MaxPerPage)
	totalPages := max(1, (len(rows)+perPage-1)/perPage)
	page := min(max(req.Page, 1), totalPages)

	start := min((page-1)*perPage, len(rows))
	end := min(start+perPage, len(rows))

	mapping := req.Mapping
	if mapping == nil {
		mapping = map[string]string{}
	}
	return &PreviewResult{
		Rows:              rows[start:end],
		Stats:             stats,
		Upsert:            req.Upsert,
		Token:             req.Token,
		Page:              page,
		PerPage:           perPage,
		TotalPages:        totalPages,
		SourceHeaders:     doc.Headers,
		Mapping:           mapping,
		AllowedCurrencies: catalog.SupportedCurrencyCodes(),
	}, nil
}

// classify maps, normalizes and validates every row, then decides its
// action from one batched SKU lookup.
func (s *Service) classify(ctx context.Context, doc *csvimport.Document, mapping map[string]string, upsert bool) ([]bulk.PreviewRow, bulk.PreviewStats, error) {
	rows := make([]bulk.PreviewRow, 0, len(doc.Rows))
	skus := make([]string, 0, len(doc.Rows))
	for i, raw := range doc.Rows {
		n := csvimport.Normalize(csvimport.ApplyMapping(raw, mapping))
		errs := csvimport.Validate(&n, i+1)
		rows = append(rows, bulk.PreviewRow{
			NormalizedRow: n,
			RowIndex:      i,
			Errors:        csvimport.Messages(errs),
		})
		if len(errs) == 0 {
			skus = append(skus, n.SKU)
		}
	}

	existing := map[string]bool{}
	if len(skus) > 0 {
		var err error
		existing, err = s.variants.ExistingSKUs(ctx, skus)
		if err != nil {
			return nil, bulk.PreviewStats{}, fmt.Errorf("failed to check existing SKUs: %w", err)
		}
	}

	var stats bulk.PreviewStats
	for i := range rows {
		row := &rows[i]
		row.Action = bulk.Classify(len(row.Errors) > 0, existing[row.SKU], upsert)
		stats.Count(row.Action)
	}
	return rows, stats, nil
}
