package supplier

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/supplysync/backend/internal/domain/shared"
)

// DefaultPriority orders accounts that have not been ranked explicitly
const DefaultPriority = 100

// Credential bag keys shared by token-based adapters
const (
	CredAccessToken         = "access_token"
	CredRefreshToken        = "refresh_token"
	CredAccessTokenExpires  = "access_token_expires"
	CredRefreshTokenExpires = "refresh_token_expires"
)

// ProviderAccount is an external supplier identity and its credential bag
type ProviderAccount struct {
	shared.BaseEntity
	Code        string
	Name        string
	Priority    int
	Credentials Credentials
	IsActive    bool
}

// NewProviderAccount creates a new active provider account
func NewProviderAccount(code, name string, creds Credentials) (*ProviderAccount, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewDomainError("INVALID_PROVIDER_CODE", "Provider code cannot be empty")
	}
	if len(code) > 50 {
		return nil, shared.NewDomainError("INVALID_PROVIDER_CODE", "Provider code cannot exceed 50 characters")
	}
	if strings.TrimSpace(name) == "" {
		name = code
	}
	if creds == nil {
		creds = Credentials{}
	}
	return &ProviderAccount{
		BaseEntity:  shared.NewBaseEntity(),
		Code:        code,
		Name:        name,
		Priority:    DefaultPriority,
		Credentials: creds,
		IsActive:    true,
	}, nil
}

// NormalizedCode returns the lower-cased provider code used for dispatch and lock keys
func (a *ProviderAccount) NormalizedCode() string {
	return strings.ToLower(strings.TrimSpace(a.Code))
}

// ApplyTokens merges a token set into the credential bag
func (a *ProviderAccount) ApplyTokens(tokens TokenSet) {
	a.Credentials = a.Credentials.WithTokens(tokens)
	a.UpdatedAt = time.Now()
}

// ---------------------------------------------------------------------------
// Credentials
// ---------------------------------------------------------------------------

// Credentials is the opaque per-account key/value bag: endpoint paths,
// login identity, tokens with expiries, pacing and cap overrides.
type Credentials map[string]any

// Clone returns a shallow copy
func (c Credentials) Clone() Credentials {
	out := make(Credentials, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// String returns the value at key as a trimmed string, or def when absent or blank
func (c Credentials) String(key, def string) string {
	if s := ScalarString(c[key]); s != "" {
		return s
	}
	return def
}

// ScalarString renders a decoded JSON scalar as a trimmed string; nil is ""
func ScalarString(v any) string {
	var s string
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		s = t
	case json.Number:
		s = t.String()
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		s = strconv.Itoa(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	case bool:
		s = strconv.FormatBool(t)
	default:
		s = fmt.Sprint(t)
	}
	return strings.TrimSpace(s)
}

// Float returns the value at key as a float64, or def when absent or unparseable
func (c Credentials) Float(key string, def float64) float64 {
	s := c.String(key, "")
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

// Int returns the value at key as an int, or def when absent or unparseable
func (c Credentials) Int(key string, def int) int {
	f := c.Float(key, float64(def))
	return int(f)
}

// Time parses an RFC3339 timestamp at key. Missing or invalid values return nil.
func (c Credentials) Time(key string) *time.Time {
	s := c.String(key, "")
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// WithTokens returns a copy of the bag with the non-empty parts of tokens merged in
func (c Credentials) WithTokens(tokens TokenSet) Credentials {
	out := c.Clone()
	if tokens.AccessToken != "" {
		out[CredAccessToken] = tokens.AccessToken
	}
	if tokens.RefreshToken != "" {
		out[CredRefreshToken] = tokens.RefreshToken
	}
	if tokens.AccessExpiresAt != nil {
		out[CredAccessTokenExpires] = tokens.AccessExpiresAt.UTC().Format(time.RFC3339)
	}
	if tokens.RefreshExpiresAt != nil {
		out[CredRefreshTokenExpires] = tokens.RefreshExpiresAt.UTC().Format(time.RFC3339)
	}
	return out
}

// ---------------------------------------------------------------------------
// Tokens
// ---------------------------------------------------------------------------

// TokenSet is the bearer-token state obtained by login or refresh
type TokenSet struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  *time.Time
	RefreshExpiresAt *time.Time
}
