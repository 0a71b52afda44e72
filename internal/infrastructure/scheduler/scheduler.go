package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/supplysync/backend/internal/domain/supplier"
	"go.uber.org/zap"
)

// JobStatus represents the status of a scheduled sync job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusSkipped JobStatus = "SKIPPED"
	JobStatusFailed  JobStatus = "FAILED"
)

// SyncJob is one scheduled sync of a provider
type SyncJob struct {
	ID           uuid.UUID
	ProviderCode string
	Status       JobStatus
	Error        string
	StartedAt    *time.Time
	CompletedAt  *time.Time
	RetryCount   int
	MaxRetries   int
	NextRetryAt  *time.Time
}

// NewSyncJob creates a new job instance
func NewSyncJob(providerCode string, maxRetries int) *SyncJob {
	return &SyncJob{
		ID:           uuid.New(),
		ProviderCode: providerCode,
		Status:       JobStatusPending,
		MaxRetries:   maxRetries,
	}
}

// Start marks the job as running
func (j *SyncJob) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete marks the job as successful
func (j *SyncJob) Complete() {
	now := time.Now()
	j.Status = JobStatusSuccess
	j.CompletedAt = &now
}

// Skip marks a job that found another run of the provider in progress
func (j *SyncJob) Skip(reason string) {
	now := time.Now()
	j.Status = JobStatusSkipped
	j.CompletedAt = &now
	j.Error = reason
}

// Fail marks the job as failed
func (j *SyncJob) Fail(err string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// ShouldRetry returns true if the job should be retried
func (j *SyncJob) ShouldRetry() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// ScheduleRetry schedules the job for retry
func (j *SyncJob) ScheduleRetry(delay time.Duration) {
	j.RetryCount++
	j.Status = JobStatusPending
	nextRetry := time.Now().Add(delay)
	j.NextRetryAt = &nextRetry
	j.Error = ""
}

// isRetryable reports whether a failed run may succeed when repeated soon.
// Rate limits and auth failures will not clear within a retry delay.
func isRetryable(err error) bool {
	return errors.Is(err, supplier.ErrTransientHTTP)
}

// SyncFunc runs one scheduled sync of a provider
type SyncFunc func(ctx context.Context, providerCode string) error

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	MaxConcurrentJobs int
	JobTimeout        time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration
	// HistorySize bounds the in-memory list of finished jobs
	HistorySize int
}

// DefaultSchedulerConfig returns default scheduler configuration
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		MaxConcurrentJobs: 2,
		JobTimeout:        30 * time.Minute,
		RetryAttempts:     1,
		RetryDelay:        5 * time.Minute,
		HistorySize:       100,
	}
}

// Validate validates the configuration
func (c *SchedulerConfig) Validate() error {
	if c.MaxConcurrentJobs <= 0 || c.JobTimeout <= 0 || c.RetryAttempts < 0 || c.RetryDelay < 0 {
		return ErrInvalidConfig
	}
	return nil
}

// SyncScheduler runs provider sync jobs on a small worker pool
type SyncScheduler struct {
	config SchedulerConfig
	run    SyncFunc
	logger *zap.Logger

	jobs      chan *SyncJob
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	historyMu sync.RWMutex
	history   []*SyncJob
}

// NewSyncScheduler creates a new scheduler instance
func NewSyncScheduler(config SchedulerConfig, run SyncFunc, logger *zap.Logger) (*SyncScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ErrInvalidConfig
	}
	if config.HistorySize <= 0 {
		config.HistorySize = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncScheduler{
		config: config,
		run:    run,
		logger: logger,
		jobs:   make(chan *SyncJob, 100),
	}, nil
}

// Start starts the worker pool
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.MaxConcurrentJobs; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.logger.Info("Sync scheduler started",
		zap.Int("workers", s.config.MaxConcurrentJobs),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)

	return nil
}

// Stop cancels running jobs and waits for workers to exit
func (s *SyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	close(s.jobs)
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Sync scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Sync scheduler stop timed out")
		return ctx.Err()
	}
}

// SubmitJob queues a job for execution
func (s *SyncScheduler) SubmitJob(job *SyncJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return ErrSchedulerNotRunning
	}

	select {
	case s.jobs <- job:
		s.logger.Debug("Sync job submitted",
			zap.String("job_id", job.ID.String()),
			zap.String("provider", job.ProviderCode),
		)
		return nil
	default:
		return ErrJobQueueFull
	}
}

// ScheduleSync queues a sync of one provider
func (s *SyncScheduler) ScheduleSync(providerCode string) (*SyncJob, error) {
	job := NewSyncJob(providerCode, s.config.RetryAttempts)
	if err := s.SubmitJob(job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *SyncScheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-s.jobs:
			if !ok {
				return
			}
			s.processJob(ctx, job, workerID)
		}
	}
}

func (s *SyncScheduler) processJob(ctx context.Context, job *SyncJob, workerID int) {
	job.Start()
	s.logger.Info("Processing sync job",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("provider", job.ProviderCode),
		zap.Int("retry_count", job.RetryCount),
	)

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	err := s.run(jobCtx, job.ProviderCode)
	switch {
	case err == nil:
		job.Complete()
		s.logger.Info("Sync job completed",
			zap.String("job_id", job.ID.String()),
			zap.String("provider", job.ProviderCode),
		)

	case errors.Is(err, supplier.ErrLockContention):
		job.Skip(err.Error())
		s.logger.Info("Sync job skipped, provider already syncing",
			zap.String("job_id", job.ID.String()),
			zap.String("provider", job.ProviderCode),
		)

	default:
		job.Fail(err.Error())
		s.logger.Error("Sync job failed",
			zap.String("job_id", job.ID.String()),
			zap.String("provider", job.ProviderCode),
			zap.Error(err),
		)
		if isRetryable(err) && job.ShouldRetry() {
			job.ScheduleRetry(s.config.RetryDelay)
			s.logger.Info("Sync job scheduled for retry",
				zap.String("job_id", job.ID.String()),
				zap.Int("retry_count", job.RetryCount),
				zap.Time("next_retry_at", *job.NextRetryAt),
			)
			time.AfterFunc(s.config.RetryDelay, func() {
				if err := s.SubmitJob(job); err != nil && !errors.Is(err, ErrSchedulerNotRunning) {
					s.logger.Warn("Failed to re-queue sync job", zap.String("job_id", job.ID.String()), zap.Error(err))
				}
			})
			return
		}
	}

	s.addToHistory(job)
}

func (s *SyncScheduler) addToHistory(job *SyncJob) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	s.history = append([]*SyncJob{job}, s.history...)
	if len(s.history) > s.config.HistorySize {
		s.history = s.history[:s.config.HistorySize]
	}
}

// GetJobHistory returns finished jobs, newest first
func (s *SyncScheduler) GetJobHistory(limit int) []*SyncJob {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}

	result := make([]*SyncJob, limit)
	copy(result, s.history[:limit])
	return result
}
