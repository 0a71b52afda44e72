package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supplysync/backend/internal/domain/supplier"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Test Helpers
// ---------------------------------------------------------------------------

func testConfig() SchedulerConfig {
	return SchedulerConfig{
		MaxConcurrentJobs: 1,
		JobTimeout:        time.Second,
		RetryAttempts:     2,
		RetryDelay:        10 * time.Millisecond,
		HistorySize:       10,
	}
}

func startScheduler(t *testing.T, cfg SchedulerConfig, run SyncFunc) *SyncScheduler {
	t.Helper()
	s, err := NewSyncScheduler(cfg, run, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
	return s
}

func waitForHistory(t *testing.T, s *SyncScheduler, n int) []*SyncJob {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(s.GetJobHistory(0)) >= n
	}, 2*time.Second, 5*time.Millisecond)
	return s.GetJobHistory(0)
}

type staticAccounts struct {
	accounts []supplier.ProviderAccount
	err      error
}

func (a staticAccounts) ListActive(context.Context) ([]supplier.ProviderAccount, error) {
	return a.accounts, a.err
}

// ---------------------------------------------------------------------------
// SyncJob Tests
// ---------------------------------------------------------------------------

func TestSyncJob_Lifecycle(t *testing.T) {
	job := NewSyncJob("cj", 1)
	assert.NotEqual(t, uuid.Nil, job.ID)
	assert.Equal(t, JobStatusPending, job.Status)

	job.Start()
	assert.Equal(t, JobStatusRunning, job.Status)
	assert.NotNil(t, job.StartedAt)

	job.Fail("boom")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.True(t, job.ShouldRetry())

	job.ScheduleRetry(time.Minute)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, 1, job.RetryCount)
	assert.Empty(t, job.Error)
	require.NotNil(t, job.NextRetryAt)

	job.Fail("boom again")
	assert.False(t, job.ShouldRetry())
}

func TestSchedulerConfig_Validate(t *testing.T) {
	cfg := DefaultSchedulerConfig()
	assert.NoError(t, cfg.Validate())

	cfg.MaxConcurrentJobs = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	_, err := NewSyncScheduler(DefaultSchedulerConfig(), nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

// ---------------------------------------------------------------------------
// SyncScheduler Tests
// ---------------------------------------------------------------------------

func TestSyncScheduler_RunsJobs(t *testing.T) {
	var mu sync.Mutex
	var ran []string
	s := startScheduler(t, testConfig(), func(_ context.Context, code string) error {
		mu.Lock()
		ran = append(ran, code)
		mu.Unlock()
		return nil
	})

	_, err := s.ScheduleSync("cj")
	require.NoError(t, err)

	history := waitForHistory(t, s, 1)
	assert.Equal(t, JobStatusSuccess, history[0].Status)
	mu.Lock()
	assert.Equal(t, []string{"cj"}, ran)
	mu.Unlock()
}

func TestSyncScheduler_LockContentionIsSkipped(t *testing.T) {
	var calls atomic.Int32
	s := startScheduler(t, testConfig(), func(context.Context, string) error {
		calls.Add(1)
		return fmt.Errorf("%w for provider 'cj'", supplier.ErrLockContention)
	})

	_, err := s.ScheduleSync("cj")
	require.NoError(t, err)

	history := waitForHistory(t, s, 1)
	assert.Equal(t, JobStatusSkipped, history[0].Status)
	assert.Contains(t, history[0].Error, "sync already running")

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "lock contention is never retried")
}

func TestSyncScheduler_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	s := startScheduler(t, testConfig(), func(context.Context, string) error {
		if calls.Add(1) < 3 {
			return fmt.Errorf("%w: 502 Bad Gateway", supplier.ErrTransientHTTP)
		}
		return nil
	})

	job, err := s.ScheduleSync("cj")
	require.NoError(t, err)

	history := waitForHistory(t, s, 1)
	assert.Equal(t, job.ID, history[0].ID)
	assert.Equal(t, JobStatusSuccess, history[0].Status)
	assert.Equal(t, 2, history[0].RetryCount)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSyncScheduler_DoesNotRetryRateLimits(t *testing.T) {
	var calls atomic.Int32
	s := startScheduler(t, testConfig(), func(context.Context, string) error {
		calls.Add(1)
		return fmt.Errorf("%w: daily cap reached", supplier.ErrRateLimited)
	})

	_, err := s.ScheduleSync("cj")
	require.NoError(t, err)

	history := waitForHistory(t, s, 1)
	assert.Equal(t, JobStatusFailed, history[0].Status)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSyncScheduler_JobTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.JobTimeout = 20 * time.Millisecond
	s := startScheduler(t, cfg, func(ctx context.Context, _ string) error {
		<-ctx.Done()
		return ctx.Err()
	})

	_, err := s.ScheduleSync("cj")
	require.NoError(t, err)

	history := waitForHistory(t, s, 1)
	assert.Equal(t, JobStatusFailed, history[0].Status)
	assert.Contains(t, history[0].Error, context.DeadlineExceeded.Error())
}

func TestSyncScheduler_SubmitWhenStopped(t *testing.T) {
	s, err := NewSyncScheduler(testConfig(), func(context.Context, string) error { return nil }, nil)
	require.NoError(t, err)

	_, err = s.ScheduleSync("cj")
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()), "stop is idempotent")

	_, err = s.ScheduleSync("cj")
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)
}

// ---------------------------------------------------------------------------
// SyncTrigger Tests
// ---------------------------------------------------------------------------

func TestSyncTrigger_TriggerAll(t *testing.T) {
	var mu sync.Mutex
	var ran []string
	s := startScheduler(t, testConfig(), func(_ context.Context, code string) error {
		mu.Lock()
		ran = append(ran, code)
		mu.Unlock()
		return nil
	})

	accounts := staticAccounts{accounts: []supplier.ProviderAccount{
		{Code: "CJ", Priority: 10},
		{Code: "other", Priority: 20},
	}}
	trigger, err := NewSyncTrigger(TriggerConfig{Interval: time.Hour}, s, accounts, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, trigger.TriggerAll(context.Background()))
	waitForHistory(t, s, 2)

	mu.Lock()
	assert.Equal(t, []string{"cj", "other"}, ran, "single worker runs in priority order")
	mu.Unlock()
	assert.False(t, trigger.LastRound().IsZero())
}

func TestSyncTrigger_ListFailure(t *testing.T) {
	s := startScheduler(t, testConfig(), func(context.Context, string) error { return nil })
	trigger, err := NewSyncTrigger(TriggerConfig{Interval: time.Hour}, s, staticAccounts{err: errors.New("db down")}, nil)
	require.NoError(t, err)

	assert.Zero(t, trigger.TriggerAll(context.Background()))
}

func TestSyncTrigger_RunOnStart(t *testing.T) {
	var calls atomic.Int32
	s := startScheduler(t, testConfig(), func(context.Context, string) error {
		calls.Add(1)
		return nil
	})
	accounts := staticAccounts{accounts: []supplier.ProviderAccount{{Code: "cj"}}}
	trigger, err := NewSyncTrigger(TriggerConfig{Interval: time.Hour, RunOnStart: true}, s, accounts, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, trigger.Start(context.Background()))
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, trigger.Stop(context.Background()))
}

func TestNewSyncTrigger_Invalid(t *testing.T) {
	_, err := NewSyncTrigger(TriggerConfig{}, nil, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
