package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/supplysync/backend/internal/domain/shared"
)

// RedisCounterStore implements CounterStore using Redis
// Counters and locks are visible to every process sharing the Redis instance
type RedisCounterStore struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisCounterStore connects to Redis and verifies the connection
func NewRedisCounterStore(cfg RedisConfig) (*RedisCounterStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCounterStore{client: client}, nil
}

// NewRedisCounterStoreWithClient creates a store with an existing Redis client
func NewRedisCounterStoreWithClient(client *redis.Client, keyPrefix string) *RedisCounterStore {
	return &RedisCounterStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// IncrBy adds n to the counter at key and refreshes its TTL in one round trip
func (s *RedisCounterStore) IncrBy(ctx context.Context, key string, n int64, ttl time.Duration) (int64, error) {
	key = s.keyPrefix + key

	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.IncrBy(ctx, key, n)
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter %s: %w", key, err)
	}

	return incr.Val(), nil
}

// releaseLockScript deletes KEYS[1] only while it still holds ARGV[1]
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// AcquireLock sets key to owner only if absent (SETNX)
// Returns true if the lock was taken by this call
func (s *RedisCounterStore) AcquireLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	key = s.keyPrefix + key

	ok, err := s.client.SetNX(ctx, key, owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}

	return ok, nil
}

// ReleaseLock deletes key if owner still holds it (compare-and-delete)
func (s *RedisCounterStore) ReleaseLock(ctx context.Context, key, owner string) error {
	key = s.keyPrefix + key

	if err := releaseLockScript.Run(ctx, s.client, []string{key}, owner).Err(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisCounterStore) Close() error {
	return s.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (s *RedisCounterStore) GetClient() *redis.Client {
	return s.client
}

// Ensure RedisCounterStore implements CounterStore
var _ shared.CounterStore = (*RedisCounterStore)(nil)
