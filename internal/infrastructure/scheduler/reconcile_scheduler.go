package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sneakerflash/backend/internal/infrastructure/logger"
)

// ---------------------------------------------------------------------------
// ReconcileSchedulerConfig
// ---------------------------------------------------------------------------

// ReconcileSchedulerConfig holds configuration for the reconciliation scheduler
type ReconcileSchedulerConfig struct {
	// MaxConcurrentJobs is the number of workers
	MaxConcurrentJobs int
	// JobTimeout is the maximum time a job can run
	JobTimeout time.Duration
	// RetryAttempts is the number of retry attempts for failed jobs
	RetryAttempts int
	// RetryDelay is the base delay between retries (with exponential backoff)
	RetryDelay time.Duration
	// QueueSize bounds the number of queued jobs
	QueueSize int
	// MaxHistory bounds the in-memory job history
	MaxHistory int
}

// DefaultReconcileSchedulerConfig returns default configuration
func DefaultReconcileSchedulerConfig() ReconcileSchedulerConfig {
	return ReconcileSchedulerConfig{
		MaxConcurrentJobs: 1,
		JobTimeout:        30 * time.Minute,
		RetryAttempts:     3,
		RetryDelay:        5 * time.Minute,
		QueueSize:         16,
		MaxHistory:        100,
	}
}

// Validate validates the configuration
func (c *ReconcileSchedulerConfig) Validate() error {
	if c.MaxConcurrentJobs <= 0 || c.JobTimeout <= 0 {
		return ErrInvalidConfig
	}
	if c.RetryAttempts < 0 || c.RetryDelay < 0 {
		return ErrInvalidConfig
	}
	if c.QueueSize <= 0 || c.MaxHistory <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// ---------------------------------------------------------------------------
// ReconcileScheduler
// ---------------------------------------------------------------------------

// ReconcileScheduler runs reconciliation jobs on a bounded worker pool
type ReconcileScheduler struct {
	config   ReconcileSchedulerConfig
	executor ReconcileExecutor
	logger   *zap.Logger

	jobs      chan *ReconcileJob
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	retries   map[*ReconcileJob]*time.Timer

	historyMu sync.RWMutex
	history   []ReconcileJob
}

// NewReconcileScheduler creates a new reconciliation scheduler
func NewReconcileScheduler(config ReconcileSchedulerConfig, executor ReconcileExecutor, logger *zap.Logger) (*ReconcileScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ReconcileScheduler{
		config:   config,
		executor: executor,
		logger:   logger.Named("reconcile_scheduler"),
		retries:  make(map[*ReconcileJob]*time.Timer),
		history:  make([]ReconcileJob, 0, config.MaxHistory),
	}, nil
}

// Start starts the worker pool. Calling Start on a running scheduler is a no-op.
func (s *ReconcileScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true
	s.jobs = make(chan *ReconcileJob, s.config.QueueSize)

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.MaxConcurrentJobs; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i, s.jobs)
	}

	s.logger.Info("Reconcile scheduler started",
		zap.Int("workers", s.config.MaxConcurrentJobs),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop cancels running jobs, drops pending retries and waits for workers to exit
func (s *ReconcileScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	for job, timer := range s.retries {
		timer.Stop()
		delete(s.retries, job)
	}
	close(s.jobs)
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Reconcile scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Reconcile scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the scheduler accepts jobs
func (s *ReconcileScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// SubmitJob queues a job without blocking
func (s *ReconcileScheduler) SubmitJob(job *ReconcileJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return ErrSchedulerNotRunning
	}

	select {
	case s.jobs <- job:
		s.logger.Debug("Reconcile job submitted",
			zap.String("job_id", job.ID.String()),
			zap.Int("sku_count", len(job.SKUs)),
			zap.Bool("dry_run", job.DryRun),
		)
		return nil
	default:
		return ErrJobQueueFull
	}
}

// ScheduleReconcile creates and submits a job for skus
func (s *ReconcileScheduler) ScheduleReconcile(skus []string, dryRun bool) (*ReconcileJob, error) {
	job := NewReconcileJob(skus, dryRun, s.config.RetryAttempts)
	if err := s.SubmitJob(job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *ReconcileScheduler) worker(ctx context.Context, workerID int, jobs <-chan *ReconcileJob) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			s.processJob(ctx, job, workerID)
		}
	}
}

func (s *ReconcileScheduler) processJob(ctx context.Context, job *ReconcileJob, workerID int) {
	job.Start()

	jobCtx, log := logger.WithJobID(ctx, s.logger, job.ID.String())
	log = log.With(zap.Int("worker_id", workerID))
	log.Info("Processing reconcile job",
		zap.Int("sku_count", len(job.SKUs)),
		zap.Int("attempt", job.RetryCount+1),
	)

	jobCtx, cancel := context.WithTimeout(jobCtx, s.config.JobTimeout)
	defer cancel()

	if err := s.execute(jobCtx, job); err != nil {
		job.Fail(err.Error())
		log.Error("Reconcile job failed", zap.Error(err))

		if !isPermanent(err) && ctx.Err() == nil && job.ShouldRetry() {
			delay := job.ScheduleRetry(s.config.RetryDelay)
			log.Info("Reconcile job scheduled for retry",
				zap.Int("retry_count", job.RetryCount),
				zap.Int("max_retries", job.MaxRetries),
				zap.Duration("delay", delay),
			)
			s.addToHistory(job)
			s.retryAfter(job, delay)
			return
		}

		s.addToHistory(job)
		return
	}

	// Executors that record no counts leave the job running
	if job.Status == ReconcileJobStatusRunning {
		job.Complete(job.SessionID, len(job.SKUs), 0, 0, 0, 0)
	}

	log.Info("Reconcile job completed",
		zap.String("status", string(job.Status)),
		zap.String("session_id", job.SessionID),
		zap.Int("requested", job.Requested),
		zap.Int("updated", job.Updated),
		zap.Int("skipped", job.Skipped),
		zap.Int("not_found", job.NotFound),
		zap.Int("failed", job.Failed),
	)
	s.addToHistory(job)
}

// execute runs the executor, turning a panic into a job failure
func (s *ReconcileScheduler) execute(ctx context.Context, job *ReconcileJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return s.executor.Execute(ctx, job)
}

// retryAfter resubmits job once delay has passed, unless the scheduler stops first
func (s *ReconcileScheduler) retryAfter(job *ReconcileJob, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return
	}
	s.retries[job] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.retries, job)
		s.mu.Unlock()

		if err := s.SubmitJob(job); err != nil {
			s.logger.Warn("Failed to re-queue reconcile job for retry",
				zap.String("job_id", job.ID.String()),
				zap.Error(err),
			)
		}
	})
}

// addToHistory records a snapshot of job, newest first
func (s *ReconcileScheduler) addToHistory(job *ReconcileJob) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	s.history = append([]ReconcileJob{*job}, s.history...)
	if len(s.history) > s.config.MaxHistory {
		s.history = s.history[:s.config.MaxHistory]
	}
}

// GetJobHistory returns up to limit recent job snapshots, newest first
func (s *ReconcileScheduler) GetJobHistory(limit int) []ReconcileJob {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}

	result := make([]ReconcileJob, limit)
	copy(result, s.history[:limit])
	return result
}

// PendingRetries returns the number of jobs waiting for a retry
func (s *ReconcileScheduler) PendingRetries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.retries)
}

type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("reconcile job panicked: %v", e.value)
}
