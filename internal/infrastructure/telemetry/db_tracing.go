package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	DBName          string
	SlowQueryThresh time.Duration
	// IncludeVariables puts bound values into db.statement. Keep off outside development.
	IncludeVariables bool
}

// DefaultDBTracingConfig returns the production-safe defaults.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		DBName:          "supplysync",
		SlowQueryThresh: 200 * time.Millisecond,
	}
}

type dbTracingKey struct{}

// RegisterDBTracing installs otelgorm plus a callback pair that flags slow
// statements on the active span and logs them.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBName)}
	if !cfg.IncludeVariables {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	before := func(tx *gorm.DB) {
		if tx.Statement.Context != nil {
			tx.Statement.Context = context.WithValue(tx.Statement.Context, dbTracingKey{}, time.Now())
		}
	}
	after := slowQueryCallback(cfg.SlowQueryThresh, logger)

	cb := db.Callback()
	if err := errors.Join(
		cb.Create().Before("gorm:create").Register("slow_query:before_create", before),
		cb.Query().Before("gorm:query").Register("slow_query:before_query", before),
		cb.Update().Before("gorm:update").Register("slow_query:before_update", before),
		cb.Delete().Before("gorm:delete").Register("slow_query:before_delete", before),
		cb.Raw().Before("gorm:raw").Register("slow_query:before_raw", before),
		cb.Create().After("gorm:create").Register("slow_query:after_create", after),
		cb.Query().After("gorm:query").Register("slow_query:after_query", after),
		cb.Update().After("gorm:update").Register("slow_query:after_update", after),
		cb.Delete().After("gorm:delete").Register("slow_query:after_delete", after),
		cb.Raw().After("gorm:raw").Register("slow_query:after_raw", after),
	); err != nil {
		return err
	}

	logger.Info("Database tracing enabled",
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
		zap.Bool("include_variables", cfg.IncludeVariables),
	)
	return nil
}

func slowQueryCallback(threshold time.Duration, logger *zap.Logger) func(*gorm.DB) {
	return func(tx *gorm.DB) {
		ctx := tx.Statement.Context
		if ctx == nil {
			return
		}
		span := trace.SpanFromContext(ctx)

		if tx.Statement.Table != "" {
			span.SetAttributes(attribute.String("db.sql.table", tx.Statement.Table))
		}
		if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, tx.Error.Error())
		}

		start, ok := ctx.Value(dbTracingKey{}).(time.Time)
		if !ok {
			return
		}
		elapsed := time.Since(start)
		if elapsed <= threshold {
			return
		}
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		logger.Warn("slow query",
			zap.String("table", tx.Statement.Table),
			zap.Duration("elapsed", elapsed),
			zap.Duration("threshold", threshold),
		)
	}
}
