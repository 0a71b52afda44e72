package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supplysync/backend/internal/infrastructure/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCounterStoreFactory_CreateStore(t *testing.T) {
	unreachable := config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}

	t.Run("redis disabled uses in-memory with warning", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		f := NewCounterStoreFactory(config.RedisConfig{}, WithLogger(zap.New(core)))

		store, err := f.CreateStore()
		require.NoError(t, err)
		defer store.Close()

		assert.IsType(t, &InMemoryCounterStore{}, store)
		assert.Equal(t, 1, logs.Len())
	})

	t.Run("falls back to in-memory when redis unreachable", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		f := NewCounterStoreFactory(unreachable, WithLogger(zap.New(core)))

		store, err := f.CreateStore()
		require.NoError(t, err)
		defer store.Close()

		assert.IsType(t, &InMemoryCounterStore{}, store)
		require.Equal(t, 1, logs.Len())
		assert.Contains(t, logs.All()[0].Message, "falling back")
	})

	t.Run("fails when fallback disabled", func(t *testing.T) {
		f := NewCounterStoreFactory(unreachable, WithInMemoryFallback(false))

		_, err := f.CreateStore()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis required")
	})
}
