package dropship

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/supplysync/backend/internal/domain/supplier"
	"go.uber.org/zap"
)

// CJAdapter implements supplier.Adapter for the CJ Dropshipping API
type CJAdapter struct {
	cfg    *CJConfig
	client *Client
	tokens *TokenManager
	logger *zap.Logger
}

// NewCJAdapter wires an adapter from its collaborators
func NewCJAdapter(cfg *CJConfig, client *Client, tokens *TokenManager, logger *zap.Logger) *CJAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CJAdapter{
		cfg:    cfg,
		client: client,
		tokens: tokens,
		logger: logger,
	}
}

// Code returns the provider code this adapter handles
func (a *CJAdapter) Code() string {
	return CJProviderCode
}

// RequestCount returns the number of HTTP calls made so far
func (a *CJAdapter) RequestCount() int64 {
	return a.client.RequestCount()
}

func (a *CJAdapter) headers() map[string]string {
	h := jsonHeaders()
	if token := a.tokens.Token(); token != "" {
		h["Authorization"] = "Bearer " + token
		h["CJ-Access-Token"] = token
	}
	if a.cfg.PlatformToken != "" {
		h["X-Platform-Token"] = a.cfg.PlatformToken
	}
	return h
}

// ---------------------------------------------------------------------------
// Listing
// ---------------------------------------------------------------------------

// ListProducts walks the listing pages and streams items to fn.
// List-only mode yields summary rows; the detail modes yield product details.
// An empty page ends the walk before MaxPages is reached.
func (a *CJAdapter) ListProducts(ctx context.Context, opts supplier.ListOptions, fn func(supplier.RawItem) error) error {
	opts = opts.Normalize()
	listURL := a.cfg.URL(a.cfg.ProductListPath)
	detailURL := a.cfg.URL(a.cfg.ProductQueryPath)

	err := a.walk(ctx, opts, listURL, detailURL, fn)
	if errors.Is(err, supplier.ErrStopIteration) {
		return nil
	}
	return err
}

func (a *CJAdapter) walk(ctx context.Context, opts supplier.ListOptions, listURL, detailURL string, fn func(supplier.RawItem) error) error {
	page := opts.Page
	for done := 0; done < opts.MaxPages; done++ {
		if _, err := a.tokens.EnsureValidToken(ctx); err != nil {
			return err
		}

		params := url.Values{}
		for k, v := range opts.Filters {
			params.Set(k, v)
		}
		params.Set("pageNum", strconv.Itoa(page))
		params.Set("pageSize", strconv.Itoa(opts.PageSize))

		resp, err := a.client.Get(ctx, listURL, a.headers(), params)
		if err != nil {
			return fmt.Errorf("list page %d: %w", page, err)
		}
		items := pageItems(resp.Object())
		if len(items) == 0 {
			a.logger.Debug("empty listing page, stopping", zap.Int("page", page))
			return nil
		}

		switch opts.FetchMode {
		case supplier.FetchListOnly:
			for _, item := range items {
				if err := fn(item); err != nil {
					return err
				}
			}
		case supplier.FetchBulkDetail:
			if err := a.bulkDetail(ctx, detailURL, pids(items), opts.BulkSize, fn); err != nil {
				return err
			}
		default:
			for _, pid := range pids(items) {
				if err := a.emitDetail(ctx, detailURL, pid, fn); err != nil {
					return err
				}
			}
		}

		page++
	}
	return nil
}

// bulkDetail fetches details chunk by chunk, degrading from a comma-joined
// pids parameter to a repeated one and finally to one call per pid.
func (a *CJAdapter) bulkDetail(ctx context.Context, detailURL string, ids []string, size int, fn func(supplier.RawItem) error) error {
	for start := 0; start < len(ids); start += size {
		chunk := ids[start:min(start+size, len(ids))]

		details, err := a.fetchBulk(ctx, detailURL, url.Values{"pids": {strings.Join(chunk, ",")}})
		if err != nil {
			return err
		}
		if len(details) == 0 {
			details, err = a.fetchBulk(ctx, detailURL, url.Values{"pids": chunk})
			if err != nil {
				return err
			}
		}

		if len(details) == 0 {
			a.logger.Debug("bulk detail returned nothing, falling back to per-item", zap.Int("chunk", len(chunk)))
			for _, pid := range chunk {
				if err := a.emitDetail(ctx, detailURL, pid, fn); err != nil {
					return err
				}
			}
			continue
		}

		for _, d := range details {
			if err := fn(d); err != nil {
				return err
			}
		}
	}
	return nil
}

// fetchBulk performs one bulk attempt. Transient failures count as an empty
// result so the caller can degrade; rate limits and cancellation are returned.
func (a *CJAdapter) fetchBulk(ctx context.Context, detailURL string, params url.Values) ([]supplier.RawItem, error) {
	resp, err := a.client.Get(ctx, detailURL, a.headers(), params)
	if err != nil {
		if errors.Is(err, supplier.ErrRateLimited) || ctx.Err() != nil {
			return nil, err
		}
		a.logger.Debug("bulk detail attempt failed", zap.Error(err))
		return nil, nil
	}
	return bulkItems(resp.Payload()), nil
}

func (a *CJAdapter) emitDetail(ctx context.Context, detailURL, pid string, fn func(supplier.RawItem) error) error {
	resp, err := a.client.Get(ctx, detailURL, a.headers(), url.Values{"pid": {pid}})
	if err != nil {
		return fmt.Errorf("detail %s: %w", pid, err)
	}
	detail, ok := detailObject(resp.Object())
	if !ok {
		a.logger.Debug("detail returned no product", zap.String("pid", pid))
		return nil
	}
	return fn(detail)
}

// ---------------------------------------------------------------------------
// Response shapes
// ---------------------------------------------------------------------------

// pageItems extracts data.list (or result.list) from a listing response
func pageItems(body map[string]any) []supplier.RawItem {
	for _, key := range []string{"data", "result"} {
		if container, ok := body[key].(map[string]any); ok && len(container) > 0 {
			return asItems(container["list"])
		}
	}
	return nil
}

// detailObject unwraps a single-detail response. A body that has an
// envelope key without an object inside carries no product.
func detailObject(body map[string]any) (supplier.RawItem, bool) {
	enveloped := false
	for _, key := range []string{"data", "result"} {
		v, present := body[key]
		if !present {
			continue
		}
		enveloped = true
		if m, ok := v.(map[string]any); ok && len(m) > 0 {
			return m, true
		}
	}
	if enveloped || len(body) == 0 {
		return nil, false
	}
	return body, true
}

// bulkItems accepts data, result or list holding either an array or an
// object with a list field
func bulkItems(payload any) []supplier.RawItem {
	body, ok := payload.(map[string]any)
	if !ok {
		return asItems(payload)
	}
	for _, key := range []string{"data", "result", "list"} {
		switch v := body[key].(type) {
		case []any:
			if len(v) > 0 {
				return asItems(v)
			}
		case map[string]any:
			if len(v) > 0 {
				return asItems(v["list"])
			}
		}
	}
	return nil
}

func asItems(v any) []supplier.RawItem {
	list, ok := v.([]any)
	if !ok {
		if m, isMap := v.(map[string]any); isMap && len(m) > 0 {
			return []supplier.RawItem{m}
		}
		return nil
	}
	out := make([]supplier.RawItem, 0, len(list))
	for _, e := range list {
		if m, ok := e.(map[string]any); ok && len(m) > 0 {
			out = append(out, m)
		}
	}
	return out
}

// pids returns the non-blank item identifiers in listing order
func pids(items []supplier.RawItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if pid := item.String("pid"); pid != "" {
			out = append(out, pid)
		}
	}
	return out
}

// Ensure CJAdapter implements the supplier contracts
var (
	_ supplier.Adapter        = (*CJAdapter)(nil)
	_ supplier.RequestCounter = (*CJAdapter)(nil)
)
