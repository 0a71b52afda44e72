package telemetry

import (
	"context"
	"time"

	"github.com/supplysync/backend/internal/domain/bulk"
	"github.com/supplysync/backend/internal/domain/supplier"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope for engine metrics
const MeterName = "github.com/supplysync/backend"

// SyncMetrics records sync, download and import outcomes.
// A nil *SyncMetrics is valid and records nothing.
type SyncMetrics struct {
	runsTotal       *Counter
	runDuration     *Histogram
	itemsTotal      *Counter
	lockContention  *Counter
	requestsTotal   *Counter
	importCommits   *Counter
	importRowsTotal *Counter
}

// NewSyncMetrics registers the instruments on meter.
func NewSyncMetrics(meter metric.Meter) (*SyncMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &SyncMetrics{}
	var err error

	if m.runsTotal, err = NewCounter(meter,
		"supplysync_sync_runs_total",
		"Sync and download runs by final status",
		"{runs}",
	); err != nil {
		return nil, err
	}

	if m.runDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "supplysync_sync_duration_seconds",
		Description: "Wall time of sync and download runs",
		Unit:        "s",
		Boundaries:  SyncDurationBuckets,
	}); err != nil {
		return nil, err
	}

	if m.itemsTotal, err = NewCounter(meter,
		"supplysync_sync_items_total",
		"Supplier items processed by outcome",
		"{items}",
	); err != nil {
		return nil, err
	}

	if m.lockContention, err = NewCounter(meter,
		"supplysync_sync_lock_contention_total",
		"Runs rejected because another sync held the provider lock",
		"{runs}",
	); err != nil {
		return nil, err
	}

	if m.requestsTotal, err = NewCounter(meter,
		"supplysync_supplier_requests_total",
		"Outbound supplier API requests",
		"{requests}",
	); err != nil {
		return nil, err
	}

	if m.importCommits, err = NewCounter(meter,
		"supplysync_import_commits_total",
		"Manual bulk-import commits",
		"{commits}",
	); err != nil {
		return nil, err
	}

	if m.importRowsTotal, err = NewCounter(meter,
		"supplysync_import_rows_total",
		"Manual bulk-import rows by action",
		"{rows}",
	); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordRun records a finalized sync log.
func (m *SyncMetrics) RecordRun(ctx context.Context, log *supplier.SyncLog) {
	if m == nil || log == nil {
		return
	}
	provider := AttrProvider.String(log.ProviderCode)
	mode := AttrMode.String(string(log.Mode))

	m.runsTotal.Inc(ctx, provider, mode, AttrStatus.String(string(log.Status)))
	m.runDuration.RecordDuration(ctx, time.Duration(log.DurationMs)*time.Millisecond, provider, mode)
	m.requestsTotal.Add(ctx, log.RequestCount, provider)

	c := log.Counts
	m.itemsTotal.Add(ctx, int64(c.ProductsUpserted), provider, AttrOutcome.String("upserted"))
	m.itemsTotal.Add(ctx, int64(c.SkippedUnchanged), provider, AttrOutcome.String("skipped_unchanged"))
	m.itemsTotal.Add(ctx, int64(c.Errors), provider, AttrOutcome.String("error"))
	m.itemsTotal.Add(ctx, int64(c.ProductsDryRun), provider, AttrOutcome.String("dry_run"))
}

// RecordLockContention counts a run that could not take the provider lock.
func (m *SyncMetrics) RecordLockContention(ctx context.Context, provider string) {
	if m == nil {
		return
	}
	m.lockContention.Inc(ctx, AttrProvider.String(provider))
}

// RecordImport records one commit and its per-action row tallies.
func (m *SyncMetrics) RecordImport(ctx context.Context, counts bulk.CommitCounts, dryRun bool) {
	if m == nil {
		return
	}
	m.importCommits.Inc(ctx, AttrDryRun.Bool(dryRun))

	m.importRowsTotal.Add(ctx, int64(counts.VariantsCreated), AttrAction.String(string(bulk.RowActionCreate)))
	m.importRowsTotal.Add(ctx, int64(counts.VariantsUpdated), AttrAction.String(string(bulk.RowActionUpdate)))
	m.importRowsTotal.Add(ctx, int64(counts.Skipped), AttrAction.String(string(bulk.RowActionSkip)))
	m.importRowsTotal.Add(ctx, int64(counts.Errored), AttrAction.String(string(bulk.RowActionError)))
}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewSyncMetrics", Err: "meter cannot be nil"}
