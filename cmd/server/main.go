package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/supplysync/backend/internal/bootstrap"
	"github.com/supplysync/backend/internal/infrastructure/config"
	"github.com/supplysync/backend/internal/infrastructure/logger"
	"github.com/supplysync/backend/internal/infrastructure/scheduler"
	"github.com/supplysync/backend/internal/infrastructure/telemetry"
	"github.com/supplysync/backend/internal/interfaces/http/handler"
	"github.com/supplysync/backend/internal/interfaces/http/middleware"
	"github.com/supplysync/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog, err := logger.New(logger.FromAppConfig(cfg.Log))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(baseLog)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize application", zap.Error(err))
	}
	log := app.Logger
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.Close(closeCtx); err != nil {
			log.Error("Error releasing resources", zap.Error(err))
		}
	}()

	log.Info("Starting supplier sync server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.Strings("providers", app.Registry.Codes()),
	)

	trigger, syncScheduler := startScheduler(ctx, app)

	engine := newEngine(app)
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if trigger != nil {
		if err := trigger.Stop(shutdownCtx); err != nil {
			log.Warn("Sync trigger did not stop cleanly", zap.Error(err))
		}
	}
	if syncScheduler != nil {
		if err := syncScheduler.Stop(shutdownCtx); err != nil {
			log.Warn("Sync scheduler did not stop cleanly", zap.Error(err))
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// startScheduler runs the interval sync when enabled. Both return values
// are nil when it is off.
func startScheduler(ctx context.Context, app *bootstrap.App) (*scheduler.SyncTrigger, *scheduler.SyncScheduler) {
	cfg := app.Config.Sync
	log := app.Logger
	if !cfg.SchedulerEnabled {
		log.Info("Scheduled sync disabled")
		return nil, nil
	}

	syncScheduler, err := scheduler.NewSyncScheduler(scheduler.DefaultSchedulerConfig(), app.SyncFunc(), log.Named("scheduler"))
	if err != nil {
		log.Fatal("Failed to create sync scheduler", zap.Error(err))
	}
	if err := syncScheduler.Start(ctx); err != nil {
		log.Fatal("Failed to start sync scheduler", zap.Error(err))
	}

	trigger, err := scheduler.NewSyncTrigger(scheduler.TriggerConfig{
		Interval: cfg.SchedulerInterval,
	}, syncScheduler, app.Accounts, log.Named("scheduler"))
	if err != nil {
		log.Fatal("Failed to create sync trigger", zap.Error(err))
	}
	if err := trigger.Start(ctx); err != nil {
		log.Fatal("Failed to start sync trigger", zap.Error(err))
	}

	log.Info("Scheduled sync enabled", zap.Duration("interval", cfg.SchedulerInterval))
	return trigger, syncScheduler
}

func newEngine(app *bootstrap.App) *gin.Engine {
	cfg := app.Config
	log := app.Logger

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Warn("Invalid trusted proxies", zap.Error(err))
	}

	middleware.SetupValidator()

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSOrigins

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		logger.GinMiddleware(log),
		middleware.CORSWithConfig(corsCfg),
		middleware.Secure(),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		}),
		middleware.SpanAttributes(),
		middleware.HTTPMetrics(app.Telemetry.Meter),
		// sized for uploads; ImportRoutes caps the upload route itself
		middleware.BodyLimit(cfg.HTTP.MaxBodySize+cfg.Import.MaxUploadBytes),
	)
	if cfg.HTTP.RateLimitPerMinute > 0 {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitPerMinute, time.Minute)
		engine.Use(middleware.RateLimit(limiter))
	}

	sqlDB, err := app.DB.DB.DB()
	if err != nil {
		log.Fatal("Failed to get sql.DB", zap.Error(err))
	}
	handler.SystemRoutes(engine, handler.NewSystemHandler(cfg.App.Name, telemetry.ServiceVersion, sqlDB))

	r := router.NewRouter(engine)
	for _, g := range handler.SyncRoutes(handler.NewSyncHandler(app.Sync)) {
		r.Register(g)
	}
	r.Register(handler.ImportRoutes(handler.NewImportHandler(app.Import), cfg.Import.MaxUploadBytes))
	r.Setup()

	return engine
}
