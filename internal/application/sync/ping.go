package syncapp

import (
	"context"
	"errors"

	"github.com/supplysync/backend/internal/domain/supplier"
	"github.com/supplysync/backend/internal/infrastructure/telemetry"
)

// PingResult is the outcome of a provider health check
type PingResult struct {
	Provider    string `json:"provider"`
	OK          bool   `json:"ok"`
	SampleFound bool   `json:"sample_found"`
	Error       string `json:"error,omitempty"`
}

// Ping lists at most one item in list-only mode. Supplier failures are
// reported in the result; only a missing account is returned as an error.
func (s *Service) Ping(ctx context.Context, code string) (result *PingResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "sync", "Ping",
		telemetry.WithAttributes(telemetry.AttrProvider.String(code)))
	defer func() { telemetry.EndSpan(span, err) }()

	result = &PingResult{Provider: code}

	account, adapter, err := s.resolve(ctx, code)
	if err != nil {
		if errors.Is(err, supplier.ErrAccountNotFound) {
			return nil, err
		}
		result.Error = err.Error()
		return result, nil
	}
	result.Provider = account.Code

	opts := supplier.ListOptions{Page: 1, PageSize: 1, MaxPages: 1, FetchMode: supplier.FetchListOnly}
	listErr := adapter.ListProducts(ctx, opts, func(supplier.RawItem) error {
		result.SampleFound = true
		return supplier.ErrStopIteration
	})
	if listErr != nil && !errors.Is(listErr, supplier.ErrStopIteration) {
		result.Error = listErr.Error()
		return result, nil
	}
	result.OK = true
	return result, nil
}
