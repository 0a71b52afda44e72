package dropship

import (
	"net/http"
	"time"

	"github.com/supplysync/backend/internal/domain/shared"
	"github.com/supplysync/backend/internal/domain/supplier"
	"go.uber.org/zap"
)

// RegistryDeps are the shared collaborators handed to every adapter factory
type RegistryDeps struct {
	// Store backs the daily request budget; nil keeps budgets process-local
	Store      shared.CounterStore
	Logger     *zap.Logger
	HTTPClient *http.Client
	// Backoff overrides the retry pause; nil uses LinearBackoff
	Backoff func(attempt int) time.Duration
}

// NewRegistry returns a registry with every built-in supplier adapter
func NewRegistry(deps RegistryDeps) *supplier.Registry {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	r := supplier.NewRegistry()
	r.Register(CJProviderCode, NewCJFactory(deps))
	return r
}

// NewCJFactory builds CJ adapters from an account's credential bag
func NewCJFactory(deps RegistryDeps) supplier.AdapterFactory {
	return func(account *supplier.ProviderAccount, saveTokens supplier.TokenSaver) (supplier.Adapter, error) {
		cfg, err := CJConfigFromCredentials(account.Credentials)
		if err != nil {
			return nil, err
		}

		logger := deps.Logger.With(
			zap.String("provider", CJProviderCode),
			zap.String("account_id", account.ID.String()),
		)

		budget := NewBudget(BudgetConfig{
			Provider:    CJProviderCode,
			Identity:    cfg.Email,
			DailyCap:    cfg.DailyCap,
			MinInterval: cfg.MinInterval,
		}, deps.Store, logger)

		client := NewClient(ClientConfig{
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
			Backoff:    deps.Backoff,
			HTTPClient: deps.HTTPClient,
			Logger:     logger,
		}, budget)

		tokens := NewTokenManager(cfg, account.Credentials, client, saveTokens, logger)
		return NewCJAdapter(cfg, client, tokens, logger), nil
	}
}
