package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/supplysync/backend/internal/domain/supplier"
	"go.uber.org/zap"
)

// AccountLister provides the active provider accounts in priority order
type AccountLister interface {
	ListActive(ctx context.Context) ([]supplier.ProviderAccount, error)
}

// TriggerConfig holds configuration for the interval trigger
type TriggerConfig struct {
	// Interval between scheduled rounds
	Interval time.Duration
	// RunOnStart queues a round as soon as the trigger starts
	RunOnStart bool
}

// DefaultTriggerConfig returns default trigger configuration
func DefaultTriggerConfig() TriggerConfig {
	return TriggerConfig{
		Interval: 6 * time.Hour,
	}
}

// SyncTrigger queues a sync job for every active provider account on an interval
type SyncTrigger struct {
	config    TriggerConfig
	scheduler *SyncScheduler
	accounts  AccountLister
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	lastRound time.Time
}

// NewSyncTrigger creates a new trigger
func NewSyncTrigger(config TriggerConfig, scheduler *SyncScheduler, accounts AccountLister, logger *zap.Logger) (*SyncTrigger, error) {
	if config.Interval <= 0 || scheduler == nil || accounts == nil {
		return nil, ErrInvalidConfig
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncTrigger{
		config:    config,
		scheduler: scheduler,
		accounts:  accounts,
		logger:    logger,
	}, nil
}

// Start starts the trigger loop
func (c *SyncTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Sync trigger started",
		zap.Duration("interval", c.config.Interval),
		zap.Bool("run_on_start", c.config.RunOnStart),
	)

	return nil
}

// Stop stops the trigger loop
func (c *SyncTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Sync trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *SyncTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	if c.config.RunOnStart {
		c.TriggerAll(ctx)
	}

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.TriggerAll(ctx)
		}
	}
}

// TriggerAll queues one job per active account and returns how many were queued
func (c *SyncTrigger) TriggerAll(ctx context.Context) int {
	accounts, err := c.accounts.ListActive(ctx)
	if err != nil {
		c.logger.Error("Failed to list provider accounts for scheduled sync", zap.Error(err))
		return 0
	}

	queued := 0
	for _, account := range accounts {
		if _, err := c.scheduler.ScheduleSync(account.NormalizedCode()); err != nil {
			c.logger.Error("Failed to schedule provider sync",
				zap.String("provider", account.Code),
				zap.Error(err),
			)
			continue
		}
		queued++
	}

	c.mu.Lock()
	c.lastRound = time.Now()
	c.mu.Unlock()

	c.logger.Info("Scheduled sync round queued",
		zap.Int("accounts", len(accounts)),
		zap.Int("queued", queued),
	)
	return queued
}

// LastRound returns when the last round was queued
func (c *SyncTrigger) LastRound() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRound
}
