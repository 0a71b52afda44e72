package storage

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supplysync/backend/internal/domain/shared"
	"github.com/supplysync/backend/internal/infrastructure/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// ============================================================================
// Unit Tests (no external dependencies)
// ============================================================================

func testS3Config() *config.StorageConfig {
	return &config.StorageConfig{
		Bucket:       "test-bucket",
		AccessKey:    "test-key",
		SecretKey:    "test-secret",
		Endpoint:     "http://localhost:9000",
		UsePathStyle: true,
	}
}

func TestNewS3ArtifactStore_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3ArtifactStore(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket returns error", func(t *testing.T) {
		_, err := NewS3ArtifactStore(&config.StorageConfig{AccessKey: "k", SecretKey: "s"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("missing access key returns error", func(t *testing.T) {
		_, err := NewS3ArtifactStore(&config.StorageConfig{Bucket: "b", SecretKey: "s"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access key is required")
	})

	t.Run("missing secret key returns error", func(t *testing.T) {
		_, err := NewS3ArtifactStore(&config.StorageConfig{Bucket: "b", AccessKey: "k"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "secret key is required")
	})

	t.Run("valid config creates store", func(t *testing.T) {
		cfg := testS3Config()
		cfg.PresignExpiration = 30 * time.Minute
		store, err := NewS3ArtifactStore(cfg)
		require.NoError(t, err)
		assert.Equal(t, "test-bucket", store.Bucket())
		assert.Equal(t, 30*time.Minute, store.presignExpiration)
	})

	t.Run("endpoint without scheme", func(t *testing.T) {
		for _, ssl := range []bool{false, true} {
			cfg := testS3Config()
			cfg.Endpoint = "localhost:9000"
			cfg.UseSSL = ssl
			store, err := NewS3ArtifactStore(cfg)
			require.NoError(t, err)
			require.NotNil(t, store)
		}
	})

	t.Run("default presign expiration is 15 minutes", func(t *testing.T) {
		store, err := NewS3ArtifactStore(testS3Config())
		require.NoError(t, err)
		assert.Equal(t, 15*time.Minute, store.presignExpiration)
	})
}

func TestS3ArtifactStoreOptions(t *testing.T) {
	store, err := NewS3ArtifactStore(testS3Config(),
		WithLogger(zaptest.NewLogger(t)),
		WithPresignExpiration(time.Hour),
	)
	require.NoError(t, err)
	assert.NotNil(t, store.logger)
	assert.Equal(t, time.Hour, store.presignExpiration)
}

func TestS3ArtifactStore_DownloadURL(t *testing.T) {
	store, err := NewS3ArtifactStore(testS3Config())
	require.NoError(t, err)

	t.Run("invalid key", func(t *testing.T) {
		url, _, err := store.DownloadURL(context.Background(), "", time.Minute)
		assert.ErrorIs(t, err, shared.ErrInvalidArtifactKey)
		assert.Empty(t, url)
	})

	t.Run("presigned url", func(t *testing.T) {
		url, expiresAt, err := store.DownloadURL(context.Background(), "dumps/cj/run.zip", time.Hour)
		require.NoError(t, err)
		assert.Contains(t, url, "localhost:9000")
		assert.Contains(t, url, "test-bucket")
		assert.Contains(t, url, "X-Amz-Signature")
		assert.True(t, expiresAt.After(time.Now().Add(59*time.Minute)))
	})

	t.Run("default expiration", func(t *testing.T) {
		_, expiresAt, err := store.DownloadURL(context.Background(), "dumps/cj/run.zip", 0)
		require.NoError(t, err)
		assert.True(t, expiresAt.Before(time.Now().Add(16*time.Minute)))
	})
}

func TestS3ArtifactStore_KeyValidation(t *testing.T) {
	store, err := NewS3ArtifactStore(testS3Config())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Put(ctx, "../escape", strings.NewReader("x"), "text/plain")
	assert.ErrorIs(t, err, shared.ErrInvalidArtifactKey)

	_, err = store.Open(ctx, "")
	assert.ErrorIs(t, err, shared.ErrInvalidArtifactKey)

	assert.ErrorIs(t, store.Delete(ctx, "  "), shared.ErrInvalidArtifactKey)

	_, err = store.List(ctx, "../")
	assert.ErrorIs(t, err, shared.ErrInvalidArtifactKey)

	assert.Equal(t, "s3://test-bucket/dumps/a.json", store.Location("dumps/a.json"))
}

// ============================================================================
// Integration Tests (require MinIO or RustFS on localhost:9000)
// ============================================================================

// skipIntegration skips the test unless INTEGRATION_TEST=1
func skipIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("INTEGRATION_TEST") != "1" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=1 and run an S3-compatible server to enable.")
	}
}

func newIntegrationStore(t *testing.T) *S3ArtifactStore {
	t.Helper()
	skipIntegration(t)

	cfg := &config.StorageConfig{
		Bucket:       "supplysync-integration",
		AccessKey:    "minioadmin",
		SecretKey:    "minioadmin",
		Endpoint:     "http://localhost:9000",
		Region:       "us-east-1",
		UsePathStyle: true,
	}

	store, err := NewS3ArtifactStore(cfg, WithLogger(zap.NewNop()))
	require.NoError(t, err)
	require.NoError(t, store.EnsureBucket(context.Background()))
	// idempotent
	require.NoError(t, store.EnsureBucket(context.Background()))
	return store
}

func TestIntegration_S3RoundTrip(t *testing.T) {
	store := newIntegrationStore(t)
	ctx := context.Background()
	key := "integration/" + time.Now().UTC().Format("20060102T150405.000000000") + ".json"

	loc, err := store.Put(ctx, key, strings.NewReader(`{"items":[]}`), "application/json")
	require.NoError(t, err)
	assert.Equal(t, store.Location(key), loc)

	rc, err := store.Open(ctx, key)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, `{"items":[]}`, string(body))

	items, err := store.List(ctx, "integration/")
	require.NoError(t, err)
	var found bool
	for _, it := range items {
		if it.Key == key {
			found = true
			assert.Equal(t, int64(12), it.Size)
		}
	}
	assert.True(t, found)

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Open(ctx, key)
	assert.ErrorIs(t, err, shared.ErrArtifactNotFound)
}
