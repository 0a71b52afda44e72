// Package syncapp orchestrates supplier catalog syncs, raw dumps and health
// pings on top of the supplier adapter registry.
package syncapp

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/supplysync/backend/internal/domain/shared"
	"github.com/supplysync/backend/internal/domain/supplier"
	"github.com/supplysync/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Config tunes sync runs
type Config struct {
	LockTTL         time.Duration
	// UnchangedWindow exempts items whose payload hash is unchanged and that
	// were synced within the window. nil means DefaultUnchangedWindow; zero
	// disables the skip.
	UnchangedWindow *time.Duration
	DefaultPageSize int
	DefaultMaxPages int
	// AttachMedia links supplier image URLs to the product gallery
	AttachMedia bool
	// DumpPrefix is the artifact key prefix for raw dumps
	DumpPrefix string
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		LockTTL:         15 * time.Minute,
		UnchangedWindow: WindowOf(supplier.DefaultUnchangedWindow),
		DefaultPageSize: 50,
		DefaultMaxPages: 5,
		AttachMedia:     true,
		DumpPrefix:      "dumps/",
	}
}

// Deps are the collaborators of Service
type Deps struct {
	Accounts supplier.ProviderAccountRepository
	Logs     supplier.SyncLogRepository
	Scope    supplier.SyncTransactionScope
	Registry *supplier.Registry
	// Locks holds the per-provider run lock
	Locks shared.CounterStore
	// Artifacts receives dump archives; Dump fails without it
	Artifacts shared.ArtifactStore
}

// Service runs supplier syncs and downloads
type Service struct {
	accounts  supplier.ProviderAccountRepository
	logs      supplier.SyncLogRepository
	scope     supplier.SyncTransactionScope
	registry  *supplier.Registry
	locks     shared.CounterStore
	artifacts shared.ArtifactStore
	metrics   *telemetry.SyncMetrics
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
}

// WindowOf returns d as an UnchangedWindow value
func WindowOf(d time.Duration) *time.Duration {
	return &d
}

// NewService creates a new Service. Zero config values fall back to DefaultConfig.
func NewService(deps Deps, cfg Config, logger *zap.Logger) *Service {
	def := DefaultConfig()
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = def.LockTTL
	}
	if cfg.UnchangedWindow == nil {
		cfg.UnchangedWindow = def.UnchangedWindow
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = def.DefaultPageSize
	}
	if cfg.DefaultMaxPages <= 0 {
		cfg.DefaultMaxPages = def.DefaultMaxPages
	}
	if cfg.DumpPrefix == "" {
		cfg.DumpPrefix = def.DumpPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		accounts:  deps.Accounts,
		logs:      deps.Logs,
		scope:     deps.Scope,
		registry:  deps.Registry,
		locks:     deps.Locks,
		artifacts: deps.Artifacts,
		cfg:       cfg,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetSyncMetrics sets the metrics recorder. Nil disables recording.
func (s *Service) SetSyncMetrics(m *telemetry.SyncMetrics) {
	s.metrics = m
}

// Providers returns the provider codes the registry can serve
func (s *Service) Providers() []string {
	return s.registry.Codes()
}

// RecentLogs lists the latest run logs of a provider
func (s *Service) RecentLogs(ctx context.Context, code string, limit int) ([]supplier.SyncLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	return s.logs.ListByProvider(ctx, code, limit)
}

// GetLog returns one run log
func (s *Service) GetLog(ctx context.Context, id uuid.UUID) (*supplier.SyncLog, error) {
	return s.logs.FindByID(ctx, id)
}

// resolve loads the active account for code and builds its adapter. Tokens
// the adapter obtains are written back to the account's credential bag.
func (s *Service) resolve(ctx context.Context, code string) (*supplier.ProviderAccount, supplier.Adapter, error) {
	account, err := s.accounts.FindActiveByCode(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	adapter, err := s.registry.AdapterFor(account, s.tokenSaver(account))
	if err != nil {
		return nil, nil, err
	}
	return account, adapter, nil
}

func (s *Service) tokenSaver(account *supplier.ProviderAccount) supplier.TokenSaver {
	return func(ctx context.Context, tokens supplier.TokenSet) error {
		account.ApplyTokens(tokens)
		if err := s.accounts.UpdateCredentials(ctx, account.ID, account.Credentials); err != nil {
			return fmt.Errorf("failed to persist tokens for %s: %w", account.Code, err)
		}
		return nil
	}
}

// requestCount reports outbound calls for adapters that track them
func requestCount(adapter supplier.Adapter) int64 {
	if rc, ok := adapter.(supplier.RequestCounter); ok {
		return rc.RequestCount()
	}
	return 0
}

// lockKey is the run lock of a provider
func lockKey(code string) string {
	return "providers:sync_lock:" + code
}
