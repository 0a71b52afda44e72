package dropship

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supplysync/backend/internal/domain/supplier"
)

func TestCJConfigFromCredentials_Defaults(t *testing.T) {
	cfg, err := CJConfigFromCredentials(supplier.Credentials{"email": "ops@example.com", "api_key": "k"})
	require.NoError(t, err)

	assert.Equal(t, CJDefaultAPIBase, cfg.APIBase)
	assert.Equal(t, CJDefaultAuthLoginPath, cfg.AuthLoginPath)
	assert.Equal(t, CJDefaultAuthRefreshPath, cfg.AuthRefreshPath)
	assert.Equal(t, CJDefaultProductListPath, cfg.ProductListPath)
	assert.Equal(t, CJDefaultProductQueryPath, cfg.ProductQueryPath)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)
	assert.Equal(t, DefaultMinInterval, cfg.MinInterval)
	assert.Equal(t, int64(DefaultDailyCap), cfg.DailyCap)
	assert.True(t, cfg.HasLoginCredentials())
}

func TestCJConfigFromCredentials_Overrides(t *testing.T) {
	cfg, err := CJConfigFromCredentials(supplier.Credentials{
		"api_base":       "https://sandbox.example.com/api/",
		"email":          "ops@example.com",
		"password":       "secret",
		"product_list":   "/v2/list",
		"api_timeout":    "12",
		"max_retries":    5,
		"min_interval_s": 1.5,
		"daily_cap":      "250",
		"platform_token": "plat",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://sandbox.example.com/api", cfg.APIBase)
	assert.Equal(t, "https://sandbox.example.com/api/v2/list", cfg.URL(cfg.ProductListPath))
	assert.Equal(t, 12*time.Second, cfg.Timeout)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 1500*time.Millisecond, cfg.MinInterval)
	assert.Equal(t, int64(250), cfg.DailyCap)
	assert.Equal(t, "plat", cfg.PlatformToken)
	assert.True(t, cfg.HasLoginCredentials())
}

func TestCJConfigFromCredentials_DailyCapFallback(t *testing.T) {
	cfg, err := CJConfigFromCredentials(supplier.Credentials{"rate_limit_per_day": 900})
	require.NoError(t, err)
	assert.Equal(t, int64(900), cfg.DailyCap)
	assert.False(t, cfg.HasLoginCredentials())
}

func TestCJConfigFromCredentials_ZeroIntervalDisablesPacing(t *testing.T) {
	cfg, err := CJConfigFromCredentials(supplier.Credentials{"min_interval_s": "0"})
	require.NoError(t, err)
	assert.Zero(t, cfg.MinInterval)
}

func TestCJConfigFromCredentials_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		creds supplier.Credentials
	}{
		{name: "bad base url", creds: supplier.Credentials{"api_base": "not a url"}},
		{name: "bad email", creds: supplier.Credentials{"email": "nobody"}},
		{name: "relative path", creds: supplier.Credentials{"product_list": "product/list"}},
		{name: "too many retries", creds: supplier.Credentials{"max_retries": 50}},
		{name: "negative interval", creds: supplier.Credentials{"min_interval_s": -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CJConfigFromCredentials(tt.creds)
			require.Error(t, err)
			assert.True(t, errors.Is(err, supplier.ErrInvalidCredentials))
		})
	}
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry(RegistryDeps{})
	assert.Equal(t, []string{"cj"}, r.Codes())

	account, err := supplier.NewProviderAccount("CJ", "CJ Dropshipping", supplier.Credentials{"email": "ops@example.com", "api_key": "k"})
	require.NoError(t, err)
	adapter, err := r.AdapterFor(account, nil)
	require.NoError(t, err)
	assert.Equal(t, "cj", adapter.Code())

	other, err := supplier.NewProviderAccount("acme", "", nil)
	require.NoError(t, err)
	_, err = r.AdapterFor(other, nil)
	assert.True(t, errors.Is(err, supplier.ErrUnknownProvider))

	bad, err := supplier.NewProviderAccount("cj", "", supplier.Credentials{"api_base": "::"})
	require.NoError(t, err)
	_, err = r.AdapterFor(bad, nil)
	assert.True(t, errors.Is(err, supplier.ErrInvalidCredentials))
}
