package supplier

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// FetchMode selects how much detail ListProducts fetches per page
type FetchMode string

const (
	// FetchListOnly yields listing summary rows without detail calls
	FetchListOnly FetchMode = "list_only"
	// FetchBulkDetail fetches detail for chunks of identifiers at once
	FetchBulkDetail FetchMode = "bulk_detail"
	// FetchPerDetail fetches detail one identifier at a time
	FetchPerDetail FetchMode = "per_detail"
)

// IsValid checks if the fetch mode is valid
func (m FetchMode) IsValid() bool {
	switch m {
	case FetchListOnly, FetchBulkDetail, FetchPerDetail:
		return true
	}
	return false
}

// ParseFetchMode resolves a fetch mode, defaulting blanks to per-detail
func ParseFetchMode(s string) (FetchMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FetchPerDetail, nil
	}
	m := FetchMode(s)
	if !m.IsValid() {
		return "", fmt.Errorf("unknown fetch mode %q", s)
	}
	return m, nil
}

// ListOptions bounds and shapes a listing
type ListOptions struct {
	Page      int
	PageSize  int
	MaxPages  int
	Filters   map[string]string
	FetchMode FetchMode
	BulkSize  int
}

// Normalize fills defaults
func (o ListOptions) Normalize() ListOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.PageSize < 1 {
		o.PageSize = 50
	}
	if o.MaxPages < 1 {
		o.MaxPages = 1
	}
	if o.BulkSize < 1 {
		o.BulkSize = 50
	}
	if !o.FetchMode.IsValid() {
		o.FetchMode = FetchPerDetail
	}
	return o
}

// Adapter is the capability set every supplier integration provides
type Adapter interface {
	// Code returns the provider code this adapter serves
	Code() string

	// ListProducts streams raw items to fn. Returning ErrStopIteration from
	// fn ends the listing without error; any other error aborts it.
	ListProducts(ctx context.Context, opts ListOptions, fn func(RawItem) error) error

	// MapToInternal is a pure transformation of one raw item
	MapToInternal(raw RawItem) (*NormalizedProduct, error)
}

// RequestCounter is implemented by adapters that track outbound calls
type RequestCounter interface {
	RequestCount() int64
}

// TokenSaver persists tokens obtained by login or refresh back to the account
type TokenSaver func(ctx context.Context, tokens TokenSet) error

// AdapterFactory builds an adapter for an account
type AdapterFactory func(account *ProviderAccount, saveTokens TokenSaver) (Adapter, error)

// Registry dispatches provider codes to adapter factories
type Registry struct {
	mu        sync.RWMutex
	factories map[string]AdapterFactory
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]AdapterFactory)}
}

// Register binds a provider code (case-insensitive) to a factory
func (r *Registry) Register(code string, factory AdapterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(strings.TrimSpace(code))] = factory
}

// Codes returns the registered provider codes, sorted
func (r *Registry) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]string, 0, len(r.factories))
	for c := range r.factories {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// AdapterFor builds the adapter registered for the account's code
func (r *Registry) AdapterFor(account *ProviderAccount, saveTokens TokenSaver) (Adapter, error) {
	r.mu.RLock()
	factory, ok := r.factories[account.NormalizedCode()]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownProvider, account.Code)
	}
	return factory(account, saveTokens)
}
