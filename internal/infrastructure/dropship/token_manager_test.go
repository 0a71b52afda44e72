package dropship

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supplysync/backend/internal/domain/supplier"
)

// authServer fakes the login and refresh endpoints
type authServer struct {
	*httptest.Server
	logins    atomic.Int32
	refreshes atomic.Int32

	mu          sync.Mutex
	loginBody   map[string]any
	refreshBody map[string]any
	loginResp   func(w http.ResponseWriter)
	refreshResp func(w http.ResponseWriter)
}

func newAuthServer(t *testing.T) *authServer {
	s := &authServer{
		loginResp: func(w http.ResponseWriter) {
			_, _ = w.Write([]byte(`{"code":200,"data":{"accessToken":"login-token","accessTokenExpiryDate":"2099-01-01T00:00:00+08:00","refreshToken":"login-refresh","refreshTokenExpiryDate":"2099-06-01T00:00:00+08:00"}}`))
		},
		refreshResp: func(w http.ResponseWriter) {
			_, _ = w.Write([]byte(`{"code":200,"data":{"accessToken":"refreshed-token","expiresIn":86400}}`))
		},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)

		s.mu.Lock()
		defer s.mu.Unlock()
		switch r.URL.Path {
		case CJDefaultAuthLoginPath:
			s.logins.Add(1)
			s.loginBody = body
			s.loginResp(w)
		case CJDefaultAuthRefreshPath:
			s.refreshes.Add(1)
			s.refreshBody = body
			s.refreshResp(w)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func testCredentials(apiBase string) supplier.Credentials {
	return supplier.Credentials{
		"api_base":       apiBase,
		"email":          "ops@example.com",
		"api_key":        "key-123",
		"min_interval_s": 0,
		"max_retries":    1,
	}
}

func newTestTokenManager(t *testing.T, creds supplier.Credentials, save supplier.TokenSaver) *TokenManager {
	t.Helper()
	cfg, err := CJConfigFromCredentials(creds)
	require.NoError(t, err)
	budget := NewBudget(BudgetConfig{Provider: CJProviderCode, Identity: cfg.Email, DailyCap: 100}, nil, nil)
	client := NewClient(ClientConfig{Timeout: 5 * time.Second, MaxRetries: cfg.MaxRetries, Backoff: noBackoff}, budget)
	return NewTokenManager(cfg, creds, client, save, nil)
}

// ---------------------------------------------------------------------------
// Reuse
// ---------------------------------------------------------------------------

func TestTokenManager_ReusesValidToken(t *testing.T) {
	srv := newAuthServer(t)

	tests := []struct {
		name    string
		expires any
	}{
		{name: "unknown expiry", expires: nil},
		{name: "expiry far away", expires: time.Now().Add(2 * time.Hour).UTC().Format(time.RFC3339)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds := testCredentials(srv.URL)
			creds[supplier.CredAccessToken] = "cached-token"
			if tt.expires != nil {
				creds[supplier.CredAccessTokenExpires] = tt.expires
			}
			m := newTestTokenManager(t, creds, nil)

			token, err := m.EnsureValidToken(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "cached-token", token)
		})
	}
	assert.Zero(t, srv.logins.Load())
	assert.Zero(t, srv.refreshes.Load())
}

// ---------------------------------------------------------------------------
// Refresh
// ---------------------------------------------------------------------------

func TestTokenManager_RefreshesNearExpiry(t *testing.T) {
	srv := newAuthServer(t)
	creds := testCredentials(srv.URL)
	creds[supplier.CredAccessToken] = "stale-token"
	creds[supplier.CredAccessTokenExpires] = time.Now().Add(5 * time.Minute).UTC().Format(time.RFC3339)
	creds[supplier.CredRefreshToken] = "refresh-1"
	creds[supplier.CredRefreshTokenExpires] = time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339)

	var saved []supplier.TokenSet
	m := newTestTokenManager(t, creds, func(_ context.Context, tokens supplier.TokenSet) error {
		saved = append(saved, tokens)
		return nil
	})

	token, err := m.EnsureValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "refreshed-token", token)
	assert.Equal(t, int32(1), srv.refreshes.Load())
	assert.Zero(t, srv.logins.Load())
	assert.Equal(t, "refresh-1", srv.refreshBody["refreshToken"])

	require.Len(t, saved, 1)
	assert.Equal(t, "refreshed-token", saved[0].AccessToken)
	// the response carried no refresh token, so the old one is kept
	assert.Equal(t, "refresh-1", saved[0].RefreshToken)
	require.NotNil(t, saved[0].AccessExpiresAt)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), *saved[0].AccessExpiresAt, time.Minute)
	require.NotNil(t, saved[0].RefreshExpiresAt)
}

func TestTokenManager_RefreshFailureFallsBackToLogin(t *testing.T) {
	srv := newAuthServer(t)
	srv.refreshResp = func(w http.ResponseWriter) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"refresh token invalid"}`))
	}
	creds := testCredentials(srv.URL)
	creds[supplier.CredRefreshToken] = "refresh-1"

	m := newTestTokenManager(t, creds, nil)
	token, err := m.EnsureValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "login-token", token)
	assert.Equal(t, int32(1), srv.refreshes.Load())
	assert.Equal(t, int32(1), srv.logins.Load())
}

func TestTokenManager_RefreshWithoutTokenFallsBackToLogin(t *testing.T) {
	srv := newAuthServer(t)
	srv.refreshResp = func(w http.ResponseWriter) {
		_, _ = w.Write([]byte(`{"code":200,"data":null}`))
	}
	creds := testCredentials(srv.URL)
	creds[supplier.CredRefreshToken] = "refresh-1"

	m := newTestTokenManager(t, creds, nil)
	token, err := m.EnsureValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "login-token", token)
}

func TestTokenManager_RateLimitedRefreshKeepsCurrentToken(t *testing.T) {
	srv := newAuthServer(t)
	srv.refreshResp = func(w http.ResponseWriter) {
		w.WriteHeader(http.StatusTooManyRequests)
	}
	creds := testCredentials(srv.URL)
	creds[supplier.CredAccessToken] = "old-token"
	creds[supplier.CredAccessTokenExpires] = time.Now().Add(time.Minute).UTC().Format(time.RFC3339)
	creds[supplier.CredRefreshToken] = "refresh-1"

	m := newTestTokenManager(t, creds, nil)
	token, err := m.EnsureValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "old-token", token)
	assert.Zero(t, srv.logins.Load())
}

func TestTokenManager_ExpiredRefreshTokenIsSkipped(t *testing.T) {
	srv := newAuthServer(t)
	creds := testCredentials(srv.URL)
	creds[supplier.CredRefreshToken] = "refresh-1"
	creds[supplier.CredRefreshTokenExpires] = time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)

	m := newTestTokenManager(t, creds, nil)
	token, err := m.EnsureValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "login-token", token)
	assert.Zero(t, srv.refreshes.Load())
}

// ---------------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------------

func TestTokenManager_Login(t *testing.T) {
	srv := newAuthServer(t)

	var saved supplier.TokenSet
	m := newTestTokenManager(t, testCredentials(srv.URL), func(_ context.Context, tokens supplier.TokenSet) error {
		saved = tokens
		return nil
	})

	token, err := m.EnsureValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "login-token", token)
	assert.Equal(t, "ops@example.com", srv.loginBody["email"])
	assert.Equal(t, "key-123", srv.loginBody["apiKey"])
	assert.NotContains(t, srv.loginBody, "password")

	assert.Equal(t, "login-refresh", saved.RefreshToken)
	require.NotNil(t, saved.AccessExpiresAt)
	assert.Equal(t, time.Date(2098, 12, 31, 16, 0, 0, 0, time.UTC), *saved.AccessExpiresAt)

	// the fresh token is reused without another call
	token, err = m.EnsureValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "login-token", token)
	assert.Equal(t, int32(1), srv.logins.Load())
}

func TestTokenManager_MissingCredentials(t *testing.T) {
	srv := newAuthServer(t)
	creds := testCredentials(srv.URL)
	delete(creds, "api_key")

	m := newTestTokenManager(t, creds, nil)
	_, err := m.EnsureValidToken(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, supplier.ErrAuth))
	assert.Contains(t, err.Error(), "missing credentials")
	assert.Zero(t, srv.logins.Load())
}

func TestTokenManager_LoginErrors(t *testing.T) {
	tests := []struct {
		name        string
		respond     func(w http.ResponseWriter)
		wantErr     error
		notErr      error
		wantMessage string
	}{
		{
			name:    "rate limited",
			respond: func(w http.ResponseWriter) { w.WriteHeader(http.StatusTooManyRequests) },
			wantErr: supplier.ErrRateLimited,
			notErr:  supplier.ErrAuth,
		},
		{
			name: "no token in body",
			respond: func(w http.ResponseWriter) {
				_, _ = w.Write([]byte(`{"code":1601000,"message":"account not found"}`))
			},
			wantErr:     supplier.ErrAuth,
			wantMessage: "account not found",
		},
		{
			name: "server error",
			respond: func(w http.ResponseWriter) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantErr: supplier.ErrAuth,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newAuthServer(t)
			srv.loginResp = tt.respond

			m := newTestTokenManager(t, testCredentials(srv.URL), nil)
			_, err := m.EnsureValidToken(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr))
			if tt.notErr != nil {
				assert.False(t, errors.Is(err, tt.notErr))
			}
			if tt.wantMessage != "" {
				assert.Contains(t, err.Error(), tt.wantMessage)
			}
		})
	}
}

func TestTokenManager_SaveFailureIsNotFatal(t *testing.T) {
	srv := newAuthServer(t)
	m := newTestTokenManager(t, testCredentials(srv.URL), func(context.Context, supplier.TokenSet) error {
		return errors.New("database is locked")
	})

	token, err := m.EnsureValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "login-token", token)
	assert.Equal(t, "login-token", m.Token())
}

func TestTokenManager_ConcurrentCallersShareLogin(t *testing.T) {
	srv := newAuthServer(t)
	srv.loginResp = func(w http.ResponseWriter) {
		time.Sleep(50 * time.Millisecond)
		_, _ = w.Write([]byte(`{"data":{"accessToken":"shared-token"}}`))
	}
	m := newTestTokenManager(t, testCredentials(srv.URL), nil)

	var wg sync.WaitGroup
	tokens := make([]string, 8)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := m.EnsureValidToken(context.Background())
			assert.NoError(t, err)
			tokens[i] = tok
		}(i)
	}
	wg.Wait()

	for _, tok := range tokens {
		assert.Equal(t, "shared-token", tok)
	}
	assert.Equal(t, int32(1), srv.logins.Load())
}
