package cache

import (
	"context"
	"sync"
	"time"

	"github.com/supplysync/backend/internal/domain/shared"
)

// entry is a stored value with expiration; a zero expiresAt never expires.
// owner is set for locks.
type entry struct {
	value     int64
	owner     string
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// InMemoryCounterStore implements CounterStore using an in-memory map
// This is suitable for single-instance deployments and testing
type InMemoryCounterStore struct {
	mu        sync.Mutex
	entries   map[string]entry
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryCounterStore creates a new in-memory counter store
// It starts a background goroutine to clean up expired entries
func NewInMemoryCounterStore() *InMemoryCounterStore {
	store := &InMemoryCounterStore{
		entries:  make(map[string]entry),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// IncrBy adds n to the counter at key; an expired counter restarts from zero
func (s *InMemoryCounterStore) IncrBy(ctx context.Context, key string, n int64, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.entries[key]
	if !ok || e.expired(now) {
		e = entry{}
	}
	e.value += n
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	s.entries[key] = e

	return e.value, nil
}

// AcquireLock takes the lock if it is absent or expired
func (s *InMemoryCounterStore) AcquireLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.entries[key]; ok && !e.expired(now) {
		return false, nil
	}

	e := entry{value: 1, owner: owner}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	s.entries[key] = e
	return true, nil
}

// ReleaseLock removes the lock if owner holds it
func (s *InMemoryCounterStore) ReleaseLock(ctx context.Context, key, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok && e.owner == owner {
		delete(s.entries, key)
	}
	return nil
}

// Close stops the cleanup goroutine and releases resources
// Safe to call multiple times
func (s *InMemoryCounterStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryCounterStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup removes expired entries from the store
func (s *InMemoryCounterStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, key)
		}
	}
}

// Size returns the number of entries in the store (for testing/monitoring)
func (s *InMemoryCounterStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Ensure InMemoryCounterStore implements CounterStore
var _ shared.CounterStore = (*InMemoryCounterStore)(nil)
