package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SKUProvider lists the local SKUs to reconcile
type SKUProvider interface {
	ListSKUs(ctx context.Context) ([]string, error)
}

// JobSubmitter accepts reconciliation jobs
type JobSubmitter interface {
	ScheduleReconcile(skus []string, dryRun bool) (*ReconcileJob, error)
}

// IntervalTriggerConfig holds configuration for the interval trigger
type IntervalTriggerConfig struct {
	// Interval between scheduled reconciliations
	Interval time.Duration
	// RunOnStart triggers one reconciliation immediately on Start
	RunOnStart bool
	// DryRun marks every triggered job as a dry run
	DryRun bool
}

// IntervalTrigger periodically submits a reconciliation of every local SKU
type IntervalTrigger struct {
	config    IntervalTriggerConfig
	submitter JobSubmitter
	skus      SKUProvider
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	lastRunAt time.Time
}

// NewIntervalTrigger creates a new interval trigger
func NewIntervalTrigger(config IntervalTriggerConfig, submitter JobSubmitter, skus SKUProvider, logger *zap.Logger) (*IntervalTrigger, error) {
	if config.Interval <= 0 {
		return nil, fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IntervalTrigger{
		config:    config,
		submitter: submitter,
		skus:      skus,
		logger:    logger.Named("reconcile_trigger"),
	}, nil
}

// Start starts the trigger loop
func (t *IntervalTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.isRunning {
		return nil
	}
	t.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Reconcile trigger started",
		zap.Duration("interval", t.config.Interval),
		zap.Bool("run_on_start", t.config.RunOnStart),
		zap.Bool("dry_run", t.config.DryRun),
	)
	return nil
}

// Stop stops the trigger loop
func (t *IntervalTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	cancel := t.cancel
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Reconcile trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LastRunAt returns when the trigger last submitted a job
func (t *IntervalTrigger) LastRunAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastRunAt
}

func (t *IntervalTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	if t.config.RunOnStart {
		t.fire(ctx)
	}

	ticker := time.NewTicker(t.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.fire(ctx)
		}
	}
}

func (t *IntervalTrigger) fire(ctx context.Context) {
	if _, err := t.Trigger(ctx); err != nil {
		t.logger.Error("Scheduled reconciliation not submitted", zap.Error(err))
	}
}

// Trigger loads every local SKU and submits one reconciliation job for them
func (t *IntervalTrigger) Trigger(ctx context.Context) (*ReconcileJob, error) {
	skus, err := t.skus.ListSKUs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list local SKUs: %w", err)
	}
	if len(skus) == 0 {
		return nil, ErrNoSKUs
	}

	job, err := t.submitter.ScheduleReconcile(skus, t.config.DryRun)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.lastRunAt = time.Now()
	t.mu.Unlock()

	t.logger.Info("Scheduled reconciliation submitted",
		zap.String("job_id", job.ID.String()),
		zap.Int("sku_count", len(skus)),
		zap.Bool("dry_run", t.config.DryRun),
	)
	return job, nil
}
