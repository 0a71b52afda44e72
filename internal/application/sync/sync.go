package syncapp

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/supplysync/backend/internal/domain/supplier"
	"github.com/supplysync/backend/internal/infrastructure/logger"
	"github.com/supplysync/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// SyncRequest selects what one run fetches
type SyncRequest struct {
	ProviderCode string
	PageSize     int
	MaxPages     int
	// Limit caps raw items processed; 0 means no cap
	Limit     int
	Filters   map[string]string
	FetchMode supplier.FetchMode
	BulkSize  int
	DryRun    bool
}

// ProviderSyncResult summarizes a finished run
type ProviderSyncResult struct {
	LogID        uuid.UUID           `json:"log_id"`
	Provider     string              `json:"provider"`
	Status       supplier.SyncStatus `json:"status"`
	Counts       supplier.SyncCounts `json:"counts"`
	FirstError   string              `json:"first_error,omitempty"`
	DurationMs   int64               `json:"duration_ms"`
	RequestCount int64               `json:"request_count"`
	DryRun       bool                `json:"dry_run"`
}

func resultFromLog(log *supplier.SyncLog, dryRun bool) *ProviderSyncResult {
	return &ProviderSyncResult{
		LogID:        log.ID,
		Provider:     log.ProviderCode,
		Status:       log.Status,
		Counts:       log.Counts,
		FirstError:   log.FirstError,
		DurationMs:   log.DurationMs,
		RequestCount: log.RequestCount,
		DryRun:       dryRun,
	}
}

// run is the mutable state of one sync
type run struct {
	account  *supplier.ProviderAccount
	dryRun   bool
	counts   supplier.SyncCounts
	firstErr string
}

func (r *run) fail(err error) {
	r.counts.Errors++
	if r.firstErr == "" {
		r.firstErr = err.Error()
	}
}

// SyncProvider runs one sync for the provider: take the lock, stream items
// through the per-item upsert, then finalize the log row. The log row is
// finalized and the lock released on every path once the lock is held.
func (s *Service) SyncProvider(ctx context.Context, req SyncRequest) (result *ProviderSyncResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "sync", "SyncProvider",
		telemetry.WithAttributes(
			telemetry.AttrProvider.String(req.ProviderCode),
			telemetry.AttrDryRun.Bool(req.DryRun),
		))
	defer func() { telemetry.EndSpan(span, err) }()

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
		opts.PageSize = s.cfg.DefaultPageSize
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = s.cfg.DefaultMaxPages
	}
	opts = opts.Normalize()

	started := s.now()
	log := supplier.NewSyncLog(account, supplier.SyncModeSync, opts.FetchMode, opts.Filters, started)
	if err := s.logs.Create(ctx, log); err != nil {
		return nil, fmt.Errorf("failed to create sync log: %w", err)
	}

	ctx, runLogger := logger.WithProvider(ctx, s.logger, code)
	ctx, runLogger = logger.WithSyncRun(ctx, runLogger, log.ID.String())

	r := &run{account: account, dryRun: req.DryRun}

	runLogger.Info("sync.start",
		zap.Int("max_pages", opts.MaxPages),
		zap.Int("page_size", opts.PageSize),
		zap.Bool("dry_run", req.DryRun),
		zap.Int("limit", req.Limit),
		zap.String("fetch_mode", string(opts.FetchMode)),
		zap.Any("filters", opts.Filters),
	)

	acquired, lockErr := s.locks.AcquireLock(ctx, lockKey(code), log.ID.String(), s.cfg.LockTTL)
	if lockErr != nil || !acquired {
		msg := supplier.LockContentionMessage
		if lockErr != nil {
			msg = fmt.Sprintf("Concurrency lock: %v", lockErr)
		} else {
			s.metrics.RecordLockContention(ctx, code)
		}
		log.Finalize(s.now(), r.counts, msg, supplier.SyncStatusError)
		s.saveLog(ctx, log, runLogger)
		runLogger.Warn("sync.locked", zap.String("first_error", msg))
		if lockErr != nil {
			return resultFromLog(log, req.DryRun), fmt.Errorf("failed to acquire sync lock: %w", lockErr)
		}
		return resultFromLog(log, req.DryRun), fmt.Errorf("%w for provider '%s'", supplier.ErrLockContention, account.Code)
	}

	defer func() {
		if relErr := s.locks.ReleaseLock(context.WithoutCancel(ctx), lockKey(code), log.ID.String()); relErr != nil {
			runLogger.Warn("sync.unlock_failed", zap.Error(relErr))
		}
	}()

	// a panic in the adapter or upsert path still closes the log as error
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		runLogger.Error("sync.panic", zap.Any("panic", rec), zap.Stack("stacktrace"))
		r.fail(fmt.Errorf("panic: %v", rec))
		s.finishRun(ctx, log, r, adapter, supplier.SyncStatusError, runLogger)
		result = resultFromLog(log, req.DryRun)
		err = fmt.Errorf("sync of provider '%s' panicked: %v", account.Code, rec)
	}()

	fetchErr := adapter.ListProducts(ctx, opts, func(raw supplier.RawItem) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.counts.RawSeen++
		if err := s.processItem(ctx, r, adapter, raw); err != nil {
			r.fail(err)
			runLogger.Warn("sync.item_failed", zap.Error(err))
		}
		// stop here so the adapter does not fetch one item past the limit
		if req.Limit > 0 && r.counts.RawSeen >= req.Limit {
			return supplier.ErrStopIteration
		}
		return nil
	})
	if errors.Is(fetchErr, supplier.ErrStopIteration) {
		fetchErr = nil
	}

	var forced supplier.SyncStatus
	if fetchErr != nil {
		if r.firstErr == "" {
			r.firstErr = fetchErr.Error()
		}
		forced = supplier.SyncStatusPartial
		if r.counts.RawSeen == 0 {
			forced = supplier.SyncStatusError
		}
	}

	s.finishRun(ctx, log, r, adapter, forced, runLogger)

	result = resultFromLog(log, req.DryRun)
	if fetchErr != nil {
		return result, fmt.Errorf("sync of provider '%s' aborted: %w", account.Code, fetchErr)
	}
	return result, nil
}

// finishRun closes the log row with the run's counts and persists it
func (s *Service) finishRun(ctx context.Context, log *supplier.SyncLog, r *run, adapter supplier.Adapter, forced supplier.SyncStatus, runLogger *zap.Logger) {
	log.RequestCount = requestCount(adapter)
	log.ItemCount = r.counts.RawSeen
	log.Finalize(s.now(), r.counts, r.firstErr, forced)
	s.saveLog(ctx, log, runLogger)

	runLogger.Info("sync.end",
		zap.String("status", string(log.Status)),
		zap.Any("counts", log.Counts),
		zap.String("first_error", log.FirstError),
		zap.Int64("duration_ms", log.DurationMs),
		zap.Int64("request_count", log.RequestCount),
	)
}

// saveLog persists a finalized log and records run metrics. It must run even
// when the caller's context is cancelled.
func (s *Service) saveLog(ctx context.Context, log *supplier.SyncLog, runLogger *zap.Logger) {
	ctx = context.WithoutCancel(ctx)
	if err := s.logs.Update(ctx, log); err != nil {
		runLogger.Error("sync.log_update_failed", zap.Error(err))
	}
	s.metrics.RecordRun(ctx, log)
}

// processItem maps one raw item and upserts it in its own transaction.
// Counts are merged only when the transaction commits.
func (s *Service) processItem(ctx context.Context, r *run, adapter supplier.Adapter, raw supplier.RawItem) error {
	mapped, err := adapter.MapToInternal(raw)
	if err != nil {
		return &supplier.ItemError{Err: err}
	}
	externalID := mapped.External.ExternalID
	if externalID == "" {
		return &supplier.ItemError{Err: fmt.Errorf("%w: missing external id", supplier.ErrInvalidResponse)}
	}

	hash := supplier.HashRaw(mapped.Raw)
	now := s.now()

	var delta supplier.SyncCounts
	err = s.scope.Execute(ctx, func(repos supplier.SyncRepositories) error {
		delta = supplier.SyncCounts{}

		link, err := repos.SupplierProducts().FindByExternalID(ctx, r.account.ID, externalID)
		if err != nil && !errors.Is(err, supplier.ErrSupplierProductNotFound) {
			return err
		}
		if link.IsUnchanged(hash, now, *s.cfg.UnchangedWindow) {
			delta.SkippedUnchanged++
			return nil
		}

		if r.dryRun {
			tallyDryRun(mapped, &delta)
			return nil
		}
		return s.upsertTree(ctx, repos, r.account, mapped, link, hash, now, &delta)
	})
	if err != nil {
		return &supplier.ItemError{ExternalID: externalID, Err: err}
	}

	r.counts.Add(delta)
	return nil
}

// tallyDryRun counts what upsertTree would write
func tallyDryRun(mapped *supplier.NormalizedProduct, delta *supplier.SyncCounts) {
	delta.ProductsDryRun++
	linked := false
	for _, v := range mapped.Variants {
		if isBlankSKU(v.SKU) {
			delta.VariantsSkipped++
			continue
		}
		delta.VariantsDryRun++
		linked = true
	}
	if linked {
		delta.LinksDryRun++
	}
}
