package dropship

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/supplysync/backend/internal/domain/supplier"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// tokenRenewalMargin is how close to expiry a token is still reused
const tokenRenewalMargin = 10 * time.Minute

// TokenManager keeps a bearer token valid for one supplier account.
// Concurrent callers needing a renewal share a single login or refresh.
type TokenManager struct {
	cfg    *CJConfig
	client *Client
	save   supplier.TokenSaver
	logger *zap.Logger
	now    func() time.Time

	group singleflight.Group

	mu    sync.RWMutex
	state supplier.TokenSet
}

// NewTokenManager seeds the manager with tokens already in the credential bag
func NewTokenManager(cfg *CJConfig, creds supplier.Credentials, client *Client, save supplier.TokenSaver, logger *zap.Logger) *TokenManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenManager{
		cfg:    cfg,
		client: client,
		save:   save,
		logger: logger,
		now:    time.Now,
		state: supplier.TokenSet{
			AccessToken:      creds.String(supplier.CredAccessToken, ""),
			RefreshToken:     creds.String(supplier.CredRefreshToken, ""),
			AccessExpiresAt:  creds.Time(supplier.CredAccessTokenExpires),
			RefreshExpiresAt: creds.Time(supplier.CredRefreshTokenExpires),
		},
	}
}

// Token returns the current access token without validating it
func (m *TokenManager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.AccessToken
}

// Tokens returns a copy of the current token state
func (m *TokenManager) Tokens() supplier.TokenSet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// EnsureValidToken returns an access token that is not about to expire.
//
// The current token is reused while its expiry is unknown or more than ten
// minutes away. Otherwise the refresh token is used if it has not expired,
// and a full login is the last resort.
func (m *TokenManager) EnsureValidToken(ctx context.Context) (string, error) {
	if token, ok := m.reusable(); ok {
		return token, nil
	}

	v, err, _ := m.group.Do("token", func() (any, error) {
		if token, ok := m.reusable(); ok {
			return token, nil
		}
		return m.renew(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *TokenManager) reusable() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.state
	if s.AccessToken == "" {
		return "", false
	}
	if s.AccessExpiresAt == nil || s.AccessExpiresAt.After(m.now().Add(tokenRenewalMargin)) {
		return s.AccessToken, true
	}
	return "", false
}

func (m *TokenManager) renew(ctx context.Context) (string, error) {
	current := m.Tokens()

	if current.RefreshToken != "" && (current.RefreshExpiresAt == nil || current.RefreshExpiresAt.After(m.now())) {
		token, ok, err := m.refresh(ctx, current)
		if err != nil {
			return "", err
		}
		if ok {
			return token, nil
		}
	}

	return m.login(ctx)
}

// refresh returns ok=false when a login should be attempted instead
func (m *TokenManager) refresh(ctx context.Context, current supplier.TokenSet) (string, bool, error) {
	resp, err := m.client.Post(ctx, m.cfg.URL(m.cfg.AuthRefreshPath), jsonHeaders(), map[string]any{
		"refreshToken": current.RefreshToken,
	})
	if err != nil {
		if errors.Is(err, supplier.ErrRateLimited) {
			// no refresh possible today; keep using the old token while we have one
			if current.AccessToken != "" {
				m.logger.Warn("token refresh rate limited, keeping current token")
				return current.AccessToken, true, nil
			}
			return "", false, fmt.Errorf("token refresh: %w", err)
		}
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		m.logger.Warn("token refresh failed, falling back to login", zap.Error(err))
		return "", false, nil
	}

	data := responseData(resp.Object())
	access := firstString(data, "accessToken", "token", "access_token")
	if access == "" {
		m.logger.Warn("token refresh returned no access token, falling back to login")
		return "", false, nil
	}

	next := supplier.TokenSet{
		AccessToken:      access,
		RefreshToken:     firstString(data, "refreshToken", "refresh_token"),
		AccessExpiresAt:  m.parseExpiry(data, "expiresIn", "accessTokenExpiresIn", "accessTokenExpiryDate"),
		RefreshExpiresAt: m.parseExpiry(data, "refreshTokenExpiresIn", "refreshTokenExpiryDate"),
	}
	if next.RefreshToken == "" {
		next.RefreshToken = current.RefreshToken
	}
	if next.RefreshExpiresAt == nil {
		next.RefreshExpiresAt = current.RefreshExpiresAt
	}
	m.assign(ctx, next)
	return access, true, nil
}

func (m *TokenManager) login(ctx context.Context) (string, error) {
	if !m.cfg.HasLoginCredentials() {
		return "", fmt.Errorf("%w: missing credentials: email + (api_key or password) required", supplier.ErrAuth)
	}

	payload := map[string]any{"email": m.cfg.Email}
	if m.cfg.APIKey != "" {
		payload["apiKey"] = m.cfg.APIKey
	}
	if m.cfg.Password != "" {
		payload["password"] = m.cfg.Password
	}

	resp, err := m.client.Post(ctx, m.cfg.URL(m.cfg.AuthLoginPath), jsonHeaders(), payload)
	if err != nil {
		if errors.Is(err, supplier.ErrRateLimited) {
			return "", fmt.Errorf("login: %w", err)
		}
		return "", fmt.Errorf("%w: login request failed: %w", supplier.ErrAuth, err)
	}

	data := responseData(resp.Object())
	access := firstString(data, "accessToken", "token", "access_token")
	if access == "" {
		return "", fmt.Errorf("%w: login failed: %s", supplier.ErrAuth, truncate(string(resp.Body), 500))
	}

	m.assign(ctx, supplier.TokenSet{
		AccessToken:      access,
		RefreshToken:     firstString(data, "refreshToken", "refresh_token"),
		AccessExpiresAt:  m.parseExpiry(data, "expiresIn", "accessTokenExpiresIn", "accessTokenExpiryDate"),
		RefreshExpiresAt: m.parseExpiry(data, "refreshTokenExpiresIn", "refreshTokenExpiryDate"),
	})
	return access, nil
}

// assign swaps in new tokens and hands them to the saver
func (m *TokenManager) assign(ctx context.Context, tokens supplier.TokenSet) {
	m.mu.Lock()
	m.state = tokens
	m.mu.Unlock()

	if m.save == nil {
		return
	}
	if err := m.save(ctx, tokens); err != nil {
		// the token is valid in memory for this run; the next run will log in again
		m.logger.Warn("failed to persist supplier tokens", zap.Error(err))
	}
}

// parseExpiry reads the first present key as either a lifetime in seconds
// or an absolute timestamp
func (m *TokenManager) parseExpiry(data map[string]any, keys ...string) *time.Time {
	bag := supplier.Credentials(data)
	for _, key := range keys {
		s := bag.String(key, "")
		if s == "" {
			continue
		}
		if secs, err := strconv.ParseFloat(s, 64); err == nil {
			t := m.now().UTC().Add(time.Duration(secs * float64(time.Second)))
			return &t
		}
		if t := bag.Time(key); t != nil {
			return t
		}
		if t, err := time.Parse("2006-01-02T15:04:05-0700", s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func jsonHeaders() map[string]string {
	return map[string]string{
		"Accept":       "application/json",
		"Content-Type": "application/json",
	}
}

// responseData unwraps the common {"data": ...} / {"result": ...} envelopes
func responseData(body map[string]any) map[string]any {
	for _, key := range []string{"data", "result"} {
		if m, ok := body[key].(map[string]any); ok && len(m) > 0 {
			return m
		}
	}
	return body
}

func firstString(data map[string]any, keys ...string) string {
	bag := supplier.Credentials(data)
	for _, key := range keys {
		if s := bag.String(key, ""); s != "" {
			return s
		}
	}
	return ""
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}
