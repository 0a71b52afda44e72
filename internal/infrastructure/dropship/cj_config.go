package dropship

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/supplysync/backend/internal/domain/supplier"
)

// CJProviderCode is the registry code of the CJ Dropshipping adapter
const CJProviderCode = "cj"

// CJ endpoint defaults
const (
	CJDefaultAPIBase          = "https://developers.cjdropshipping.com/api2.0/v1"
	CJDefaultAuthLoginPath    = "/authentication/getAccessToken"
	CJDefaultAuthRefreshPath  = "/authentication/refreshAccessToken"
	CJDefaultProductListPath  = "/product/list"
	CJDefaultProductQueryPath = "/product/query"
)

// Credential bag keys read by the CJ adapter
const (
	credAPIBase         = "api_base"
	credEmail           = "email"
	credAPIKey          = "api_key"
	credPassword        = "password"
	credAuthLogin       = "auth_login"
	credAuthRefresh     = "auth_refresh"
	credProductList     = "product_list"
	credProductQuery    = "product_query"
	credAPITimeout      = "api_timeout"
	credMaxRetries      = "max_retries"
	credMinIntervalS    = "min_interval_s"
	credDailyCap        = "daily_cap"
	credRateLimitPerDay = "rate_limit_per_day"
	credPlatformToken   = "platform_token"
)

// CJConfig is the typed view of a CJ account's credential bag
type CJConfig struct {
	APIBase          string `validate:"required,url"`
	Email            string `validate:"omitempty,email"`
	APIKey           string
	Password         string
	AuthLoginPath    string        `validate:"required,startswith=/"`
	AuthRefreshPath  string        `validate:"required,startswith=/"`
	ProductListPath  string        `validate:"required,startswith=/"`
	ProductQueryPath string        `validate:"required,startswith=/"`
	Timeout          time.Duration `validate:"gt=0"`
	MaxRetries       int           `validate:"gte=1,lte=10"`
	MinInterval      time.Duration `validate:"gte=0"`
	DailyCap         int64         `validate:"gt=0"`
	PlatformToken    string
}

var configValidator = validator.New()

// CJConfigFromCredentials reads endpoints, identity and pacing overrides
// from the bag, filling defaults for anything absent.
func CJConfigFromCredentials(creds supplier.Credentials) (*CJConfig, error) {
	dailyCap := creds.Int(credDailyCap, 0)
	if dailyCap <= 0 {
		dailyCap = creds.Int(credRateLimitPerDay, DefaultDailyCap)
	}

	cfg := &CJConfig{
		APIBase:          strings.TrimRight(creds.String(credAPIBase, CJDefaultAPIBase), "/"),
		Email:            creds.String(credEmail, ""),
		APIKey:           creds.String(credAPIKey, ""),
		Password:         creds.String(credPassword, ""),
		AuthLoginPath:    creds.String(credAuthLogin, CJDefaultAuthLoginPath),
		AuthRefreshPath:  creds.String(credAuthRefresh, CJDefaultAuthRefreshPath),
		ProductListPath:  creds.String(credProductList, CJDefaultProductListPath),
		ProductQueryPath: creds.String(credProductQuery, CJDefaultProductQueryPath),
		Timeout:          time.Duration(creds.Int(credAPITimeout, int(DefaultTimeout/time.Second))) * time.Second,
		MaxRetries:       creds.Int(credMaxRetries, DefaultMaxRetries),
		MinInterval:      time.Duration(creds.Float(credMinIntervalS, DefaultMinInterval.Seconds()) * float64(time.Second)),
		DailyCap:         int64(dailyCap),
		PlatformToken:    creds.String(credPlatformToken, ""),
	}

	if err := configValidator.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: cj: %v", supplier.ErrInvalidCredentials, err)
	}
	return cfg, nil
}

// URL joins the API base and an endpoint path
func (c *CJConfig) URL(path string) string {
	return c.APIBase + path
}

// HasLoginCredentials reports whether a full login is possible
func (c *CJConfig) HasLoginCredentials() bool {
	return c.Email != "" && (c.APIKey != "" || c.Password != "")
}
