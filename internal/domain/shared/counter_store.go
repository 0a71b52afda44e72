package shared

import (
	"context"
	"time"
)

// CounterStore is a process-external store for counters and short-lived locks.
// Implementations must make IncrBy and AcquireLock atomic across processes;
// the in-memory implementation only guarantees this within one process.
type CounterStore interface {
	// IncrBy adds n to the counter at key and returns the new value.
	// The TTL is applied when the key is first created.
	IncrBy(ctx context.Context, key string, n int64, ttl time.Duration) (int64, error)

	// AcquireLock sets key to owner only if it is absent. Returns false if it
	// is already held.
	AcquireLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)

	// ReleaseLock removes the lock key if owner still holds it. Releasing an
	// absent lock, or one that expired and was taken by another owner, is
	// not an error and leaves the other owner's lock in place.
	ReleaseLock(ctx context.Context, key, owner string) error

	// Close releases resources held by the store
	Close() error
}
