// Package bootstrap assembles the sync engine from configuration. The API
// server and the syncctl CLI share it so both run the same wiring.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"

	importapp "github.com/supplysync/backend/internal/application/import"
	syncapp "github.com/supplysync/backend/internal/application/sync"
	"github.com/supplysync/backend/internal/domain/shared"
	"github.com/supplysync/backend/internal/domain/supplier"
	"github.com/supplysync/backend/internal/infrastructure/cache"
	"github.com/supplysync/backend/internal/infrastructure/config"
	"github.com/supplysync/backend/internal/infrastructure/dropship"
	"github.com/supplysync/backend/internal/infrastructure/logger"
	"github.com/supplysync/backend/internal/infrastructure/persistence"
	"github.com/supplysync/backend/internal/infrastructure/storage"
	"github.com/supplysync/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// App holds the assembled services and the resources Close releases
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	DB        *persistence.Database
	Accounts  *persistence.GormProviderAccountRepository
	Counters  shared.CounterStore
	Artifacts shared.ArtifactStore
	Registry  *supplier.Registry
	Sync      *syncapp.Service
	Import    *importapp.Service
	Telemetry *telemetry.Providers

	restoreGlobals func()
}

// New connects storage, builds the adapter registry and both services.
// base is the process logger; when log export is on, App.Logger also
// ships records to the collector.
func New(ctx context.Context, cfg *config.Config, base *zap.Logger) (*App, error) {
	providers, err := telemetry.Setup(ctx, cfg.Telemetry, base)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	log := base
	if providers.Logs.IsEnabled() {
		log = providers.Logs.Bridge(base, logger.ParseLevel(cfg.Log.Level))
	}

	app := &App{Config: cfg, Logger: log, Telemetry: providers}
	// package-level loggers resolve through zap.L()
	app.restoreGlobals = zap.ReplaceGlobals(log)
	if err := app.open(ctx); err != nil {
		_ = app.Close(context.Background())
		return nil, err
	}
	return app, nil
}

func (a *App) open(ctx context.Context) error {
	cfg := a.Config

	db, err := OpenDatabase(cfg, a.Logger)
	if err != nil {
		return err
	}
	a.DB = db

	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTracing,
		DBName:          cfg.Database.DBName,
		SlowQueryThresh: cfg.Telemetry.SlowQueryThreshold,
	}, a.Logger); err != nil {
		return fmt.Errorf("db tracing: %w", err)
	}

	a.Counters, err = cache.NewCounterStoreFactory(cfg.Redis, cache.WithLogger(a.Logger)).CreateStore()
	if err != nil {
		return err
	}

	a.Artifacts, err = storage.NewArtifactStore(ctx, cfg.Storage, a.Logger)
	if err != nil {
		return fmt.Errorf("artifact store: %w", err)
	}

	a.Registry = dropship.NewRegistry(dropship.RegistryDeps{
		Store:  a.Counters,
		Logger: a.Logger,
	})
	a.Accounts = persistence.NewGormProviderAccountRepository(db.DB)

	a.Sync = syncapp.NewService(syncapp.Deps{
		Accounts:  a.Accounts,
		Logs:      persistence.NewGormSyncLogRepository(db.DB),
		Scope:     persistence.NewGormSyncScope(db.DB),
		Registry:  a.Registry,
		Locks:     a.Counters,
		Artifacts: a.Artifacts,
	}, syncapp.Config{
		LockTTL:         cfg.Sync.LockTTL,
		UnchangedWindow: syncapp.WindowOf(cfg.Sync.UnchangedWindow),
		DefaultPageSize: cfg.Sync.DefaultPageSize,
		DefaultMaxPages: cfg.Sync.DefaultMaxPages,
		AttachMedia:     cfg.Sync.AttachMedia,
	}, a.Logger.Named("sync"))

	a.Import = importapp.NewService(importapp.Deps{
		Variants:  persistence.NewGormVariantRepository(db.DB),
		Scope:     persistence.NewGormCatalogScope(db.DB),
		Logs:      persistence.NewGormImportLogRepository(db.DB),
		Artifacts: a.Artifacts,
	}, importapp.Config{
		TmpPrefix:      cfg.Import.TmpPrefix,
		DefaultPerPage: cfg.Import.DefaultPerPage,
		MaxUploadBytes: cfg.Import.MaxUploadBytes,
		CleanupAfter:   cfg.Import.CleanupAfter,
	}, a.Logger.Named("import"))

	if a.Telemetry.Meter.IsEnabled() {
		metrics, err := telemetry.NewSyncMetrics(a.Telemetry.Meter.Meter(telemetry.MeterName))
		if err != nil {
			return err
		}
		a.Sync.SetSyncMetrics(metrics)
		a.Import.SetSyncMetrics(metrics)
	}
	return nil
}

// OpenDatabase connects the configured driver. SQLite databases get their
// schema from the models; PostgreSQL expects cmd/migrate to have run.
func OpenDatabase(cfg *config.Config, log *zap.Logger) (*persistence.Database, error) {
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.SlowQueryThreshold))

	switch cfg.Database.Driver {
	case config.DatabaseDriverSQLite:
		return persistence.NewSQLiteDatabase(cfg.Database.SQLitePath, gormLog)
	case config.DatabaseDriverPostgres, "":
		return persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
}

// SyncFunc adapts the sync service to the scheduler: one bounded
// per-detail run with the scheduled page limits.
func (a *App) SyncFunc() func(ctx context.Context, providerCode string) error {
	return func(ctx context.Context, providerCode string) error {
		_, err := a.Sync.SyncProvider(ctx, syncapp.SyncRequest{
			ProviderCode: providerCode,
			PageSize:     a.Config.Sync.ScheduledPageSize,
			MaxPages:     a.Config.Sync.ScheduledMaxPages,
			FetchMode:    supplier.FetchPerDetail,
		})
		return err
	}
}

// Close releases the counter store, the database and the telemetry
// exporters. It is safe on a partially opened App.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if c, ok := a.Counters.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	if a.Telemetry != nil {
		errs = append(errs, a.Telemetry.Shutdown(ctx))
	}
	if a.restoreGlobals != nil {
		a.restoreGlobals()
		a.restoreGlobals = nil
	}
	return errors.Join(errs...)
}
