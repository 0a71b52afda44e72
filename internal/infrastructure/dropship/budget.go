package dropship

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/supplysync/backend/internal/domain/shared"
	"github.com/supplysync/backend/internal/domain/supplier"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Budget defaults. The daily cap stays well under the supplier's published
// limit of 1000 calls per day.
const (
	DefaultDailyCap    = 600
	DefaultMinInterval = 300 * time.Millisecond

	budgetCounterTTL = 24 * time.Hour
)

// BudgetConfig identifies whose budget is charged and how much it holds
type BudgetConfig struct {
	Provider    string
	Identity    string
	DailyCap    int64
	MinInterval time.Duration
}

// Budget enforces a daily request cap and a minimum interval between calls.
//
// With a shared CounterStore the cap is shared by every process using that
// store. Without one, or while the store is failing, a per-Budget counter is
// used instead; that fallback is best-effort and does not hold across processes.
type Budget struct {
	cfg     BudgetConfig
	store   shared.CounterStore
	limiter *rate.Limiter
	logger  *zap.Logger
	now     func() time.Time

	mu         sync.Mutex
	localDate  string
	localCount int64
}

// NewBudget creates a budget. store may be nil.
func NewBudget(cfg BudgetConfig, store shared.CounterStore, logger *zap.Logger) *Budget {
	if cfg.DailyCap <= 0 {
		cfg.DailyCap = DefaultDailyCap
	}
	if cfg.MinInterval < 0 {
		cfg.MinInterval = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}

	return &Budget{
		cfg:     cfg,
		store:   store,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
		now:     time.Now,
	}
}

// Key returns the shared counter key for today (UTC)
func (b *Budget) Key() string {
	return b.keyFor(b.today())
}

func (b *Budget) keyFor(date string) string {
	return fmt.Sprintf("%s:reqcount:%s:%s",
		strings.ToLower(b.cfg.Provider), date, strings.ToLower(strings.TrimSpace(b.cfg.Identity)))
}

func (b *Budget) today() string {
	return b.now().UTC().Format("2006-01-02")
}

// DailyCap returns the configured cap
func (b *Budget) DailyCap() int64 {
	return b.cfg.DailyCap
}

// Charge adds cost to today's counter. It fails with ErrRateLimited once the
// counter would exceed the daily cap.
func (b *Budget) Charge(ctx context.Context, cost int64) error {
	if cost <= 0 {
		cost = 1
	}
	date := b.today()

	if b.store != nil {
		total, err := b.store.IncrBy(ctx, b.keyFor(date), cost, budgetCounterTTL)
		if err == nil {
			if total > b.cfg.DailyCap {
				return b.capReached()
			}
			return nil
		}
		b.logger.Warn("shared request counter unavailable, charging local budget",
			zap.String("provider", b.cfg.Provider),
			zap.Error(err),
		)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.localDate != date {
		b.localDate = date
		b.localCount = 0
	}
	if b.localCount+cost > b.cfg.DailyCap {
		return b.capReached()
	}
	b.localCount += cost
	return nil
}

func (b *Budget) capReached() error {
	return fmt.Errorf("%w: internal daily cap reached (%d)", supplier.ErrRateLimited, b.cfg.DailyCap)
}

// MaybeWait blocks until MinInterval has passed since the previous call
func (b *Budget) MaybeWait(ctx context.Context) error {
	return b.limiter.Wait(ctx)
}
