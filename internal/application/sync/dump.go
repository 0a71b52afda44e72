package syncapp

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/supplysync/backend/internal/domain/supplier"
	"github.com/supplysync/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DumpFormat selects the archive layout
type DumpFormat string

const (
	// DumpFormatJSON writes one {"index":{...},"items":[...]} document
	DumpFormatJSON DumpFormat = "json"
	// DumpFormatZIP writes index.json, summary.csv and items/<pid>.json
	DumpFormatZIP DumpFormat = "zip"
)

// ParseDumpFormat defaults blanks to JSON
func ParseDumpFormat(s string) (DumpFormat, error) {
	switch DumpFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", DumpFormatJSON:
		return DumpFormatJSON, nil
	case DumpFormatZIP:
		return DumpFormatZIP, nil
	}
	return "", fmt.Errorf("unknown dump format %q", s)
}

// DumpRequest selects what a raw download fetches
type DumpRequest struct {
	ProviderCode string
	PageSize     int
	MaxPages     int
	Limit        int
	Filters      map[string]string
	FetchMode    supplier.FetchMode
	BulkSize     int
	Format       DumpFormat
}

// DumpResult describes the stored archive
type DumpResult struct {
	LogID       uuid.UUID `json:"log_id"`
	Key         string    `json:"key"`
	Location    string    `json:"location"`
	Count       int       `json:"count"`
	ContentType string    `json:"content_type"`
	Size        int       `json:"size"`
}

// DumpIndex is the header written with every dump
type DumpIndex struct {
	Provider    string            `json:"provider"`
	GeneratedAt string            `json:"generated_at"`
	Count       int               `json:"count"`
	Filters     map[string]string `json:"filters"`
	PageSize    int               `json:"page_size"`
	MaxPages    int               `json:"max_pages"`
	FetchMode   string            `json:"fetch_mode"`
	BulkSize    int               `json:"bulk_size"`
}

// summaryHeaders are the columns of summary.csv
var summaryHeaders = []string{
	"pid", "title", "category_path", "variants_count", "skus", "price_min", "price_max", "has_image",
}

// Dump downloads raw supplier items without touching the catalog and writes
// them to the artifact store. A download log row is recorded for the run.
func (s *Service) Dump(ctx context.Context, req DumpRequest) (result *DumpResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "sync", "Dump",
		telemetry.WithAttributes(telemetry.AttrProvider.String(req.ProviderCode)))
	defer func() { telemetry.EndSpan(span, err) }()

	if s.artifacts == nil {
		return nil, errors.New("dump: artifact store is not configured")
	}
	format, err := ParseDumpFormat(string(req.Format))
	if err != nil {
		return nil, err
	}

	account, adapter, err := s.resolve(ctx, req.ProviderCode)
	if err != nil {
		return nil, err
	}
	code := account.NormalizedCode()

	opts := supplier.ListOptions{
		Page:      1,
		PageSize:  req.PageSize,
		MaxPages:  req.MaxPages,
		Filters:   req.Filters,
		FetchMode: req.FetchMode,
		BulkSize:  req.BulkSize,
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 20
	}
	opts = opts.Normalize()
	if opts.Filters == nil {
		opts.Filters = map[string]string{}
	}

	started := s.now()
	log := supplier.NewSyncLog(account, supplier.SyncModeDownload, opts.FetchMode, opts.Filters, started)
	if err := s.logs.Create(ctx, log); err != nil {
		return nil, fmt.Errorf("failed to create sync log: %w", err)
	}

	var items []supplier.RawItem
	fetchErr := adapter.ListProducts(ctx, opts, func(raw supplier.RawItem) error {
		items = append(items, raw)
		if req.Limit > 0 && len(items) >= req.Limit {
			return supplier.ErrStopIteration
		}
		return nil
	})
	if errors.Is(fetchErr, supplier.ErrStopIteration) {
		fetchErr = nil
	}

	log.ItemCount = len(items)
	log.RequestCount = requestCount(adapter)
	counts := supplier.SyncCounts{RawSeen: len(items)}
	if fetchErr != nil {
		log.Finalize(s.now(), counts, fetchErr.Error(), supplier.SyncStatusError)
		s.saveLog(ctx, log, s.logger)
		return nil, fmt.Errorf("dump of provider '%s' failed: %w", account.Code, fetchErr)
	}

	ts := started.Format("20060102-150405")
	index := DumpIndex{
		Provider:    account.Code,
		GeneratedAt: ts,
		Count:       len(items),
		Filters:     opts.Filters,
		PageSize:    opts.PageSize,
		MaxPages:    opts.MaxPages,
		FetchMode:   string(opts.FetchMode),
		BulkSize:    opts.BulkSize,
	}

	var (
		blob        []byte
		contentType string
		ext         string
	)
	switch format {
	case DumpFormatZIP:
		blob, err = buildDumpZIP(index, items)
		contentType, ext = "application/zip", ".zip"
	default:
		blob, err = buildDumpJSON(index, items)
		contentType, ext = "application/json", ".json"
	}
	if err != nil {
		log.Finalize(s.now(), counts, err.Error(), supplier.SyncStatusError)
		s.saveLog(ctx, log, s.logger)
		return nil, err
	}

	key := fmt.Sprintf("%s%s/%s_dump_%s%s", s.cfg.DumpPrefix, code, code, ts, ext)
	location, err := s.artifacts.Put(ctx, key, bytes.NewReader(blob), contentType)
	if err != nil {
		log.Finalize(s.now(), counts, err.Error(), supplier.SyncStatusError)
		s.saveLog(ctx, log, s.logger)
		return nil, fmt.Errorf("failed to store dump: %w", err)
	}

	log.Finalize(s.now(), counts, "", "")
	s.saveLog(ctx, log, s.logger)

	s.logger.Info("dump.end",
		zap.String("provider", code),
		zap.Int("count", len(items)),
		zap.String("key", key),
		zap.Int64("request_count", log.RequestCount),
	)

	return &DumpResult{
		LogID:       log.ID,
		Key:         key,
		Location:    location,
		Count:       len(items),
		ContentType: contentType,
		Size:        len(blob),
	}, nil
}

func marshalIndented(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func buildDumpJSON(index DumpIndex, items []supplier.RawItem) ([]byte, error) {
	if items == nil {
		items = []supplier.RawItem{}
	}
	return marshalIndented(struct {
		Index DumpIndex          `json:"index"`
		Items []supplier.RawItem `json:"items"`
	}{index, items})
}

func buildDumpZIP(index DumpIndex, items []supplier.RawItem) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	write := func(name string, data []byte) error {
		w, err := zw.Create(name)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}

	indexBlob, err := marshalIndented(index)
	if err != nil {
		return nil, err
	}
	if err := write("index.json", indexBlob); err != nil {
		return nil, err
	}

	summary, err := buildSummaryCSV(items)
	if err != nil {
		return nil, err
	}
	if err := write("summary.csv", summary); err != nil {
		return nil, err
	}

	names := make(map[string]bool, len(items))
	for i, item := range items {
		pid := item.String("pid")
		if pid == "" {
			pid = fmt.Sprintf("idx_%d", i)
		}
		name := "items/" + sanitizeName(pid) + ".json"
		if names[name] {
			continue
		}
		names[name] = true
		blob, err := marshalIndented(item)
		if err != nil {
			return nil, err
		}
		if err := write(name, blob); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sanitizeName(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, s)
}

func buildSummaryCSV(items []supplier.RawItem) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(summaryHeaders); err != nil {
		return nil, err
	}
	for _, item := range items {
		if err := w.Write(summarize(item)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// summarize renders one row of summary.csv
func summarize(item supplier.RawItem) []string {
	title := item.String("productNameEn")
	if title == "" {
		title = item.String("productName")
	}

	variants, _ := item["variants"].([]any)
	var skus []string
	var minPrice, maxPrice *decimal.Decimal
	for _, v := range variants {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		vr := supplier.RawItem(m)
		if sku := vr.String("variantSku"); sku != "" {
			skus = append(skus, sku)
		}
		price, err := decimal.NewFromString(vr.String("variantSellPrice"))
		if err != nil {
			continue
		}
		if minPrice == nil || price.LessThan(*minPrice) {
			p := price
			minPrice = &p
		}
		if maxPrice == nil || price.GreaterThan(*maxPrice) {
			p := price
			maxPrice = &p
		}
	}
	if len(skus) > 50 {
		skus = skus[:50]
	}

	priceString := func(d *decimal.Decimal) string {
		if d == nil {
			return ""
		}
		return d.String()
	}

	hasImage := item.String("productImage") != "" || hasValue(item["productImageSet"])

	return []string{
		item.String("pid"),
		title,
		item.String("categoryName"),
		strconv.Itoa(len(variants)),
		strings.Join(skus, "|"),
		priceString(minPrice),
		priceString(maxPrice),
		strconv.FormatBool(hasImage),
	}
}

func hasValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	case []any:
		return len(t) > 0
	}
	return true
}
