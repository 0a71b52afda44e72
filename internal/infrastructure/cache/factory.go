package cache

import (
	"fmt"

	"github.com/supplysync/backend/internal/domain/shared"
	"github.com/supplysync/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// CounterStoreFactory creates counter stores based on configuration
type CounterStoreFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// CounterStoreFactoryOption is a functional option for configuring the factory
type CounterStoreFactoryOption func(*CounterStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) CounterStoreFactoryOption {
	return func(f *CounterStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory store when Redis is unavailable
// Default is true (allow fallback)
func WithInMemoryFallback(allow bool) CounterStoreFactoryOption {
	return func(f *CounterStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewCounterStoreFactory creates a new factory
func NewCounterStoreFactory(cfg config.RedisConfig, opts ...CounterStoreFactoryOption) *CounterStoreFactory {
	f := &CounterStoreFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisStore creates a Redis-based counter store
func (f *CounterStoreFactory) CreateRedisStore() (shared.CounterStore, error) {
	store, err := NewRedisCounterStore(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis counter store: %w", err)
	}

	return store, nil
}

// CreateInMemoryStore creates an in-memory counter store
// WARNING: budgets and sync locks are per process with this store
func (f *CounterStoreFactory) CreateInMemoryStore() shared.CounterStore {
	return NewInMemoryCounterStore()
}

// CreateStore returns a Redis store when Redis is enabled and reachable,
// otherwise an in-memory store if fallback is allowed
func (f *CounterStoreFactory) CreateStore() (shared.CounterStore, error) {
	if !f.redisConfig.Enabled {
		f.logger.Warn("Redis disabled, using in-memory counter store. " +
			"Daily budgets and sync locks are not shared across processes.")
		return f.CreateInMemoryStore(), nil
	}

	store, err := f.CreateRedisStore()
	if err == nil {
		f.logger.Info("using Redis counter store", zap.String("addr", f.redisConfig.Addr()))
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for counter store but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory counter store. "+
		"Daily budgets and sync locks are not shared across processes.",
		zap.Error(err),
	)
	return f.CreateInMemoryStore(), nil
}
