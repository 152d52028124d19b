package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	appintegration "github.com/sneakerflash/backend/internal/application/integration"
	"github.com/sneakerflash/backend/internal/domain/integration"
	"github.com/sneakerflash/backend/internal/infrastructure/telemetry"
)

// Reconciler runs one reconciliation batch
type Reconciler interface {
	Reconcile(ctx context.Context, skus []string, opts appintegration.ReconcileOptions) (*appintegration.BatchResult, error)
}

// ReconcileExecutor executes reconciliation jobs
type ReconcileExecutor interface {
	Execute(ctx context.Context, job *ReconcileJob) error
}

// ServiceExecutor runs jobs through the reconciliation service
type ServiceExecutor struct {
	reconciler Reconciler
	options    appintegration.ReconcileOptions
	logger     *zap.Logger
}

// NewServiceExecutor creates an executor. opts apply to every job; a job's
// DryRun flag overrides opts.DryRun.
func NewServiceExecutor(reconciler Reconciler, opts appintegration.ReconcileOptions, logger *zap.Logger) *ServiceExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ServiceExecutor{
		reconciler: reconciler,
		options:    opts,
		logger:     logger,
	}
}

// Execute reconciles the job's SKUs and records the batch counts on the job.
// An overlapping identical batch marks the job skipped and is not an error.
func (e *ServiceExecutor) Execute(ctx context.Context, job *ReconcileJob) error {
	opts := e.options
	opts.DryRun = opts.DryRun || job.DryRun

	var (
		result *appintegration.BatchResult
		err    error
	)
	telemetry.WithProfilingLabels(ctx, map[string]string{
		telemetry.ProfilingLabelOperation: "scheduled_reconcile",
		telemetry.ProfilingLabelDryRun:    strconv.FormatBool(opts.DryRun),
	}, func(ctx context.Context) {
		result, err = e.reconciler.Reconcile(ctx, job.SKUs, opts)
	})
	if result != nil {
		job.Complete(result.SessionID,
			result.Stats.Requested,
			result.Stats.Updated,
			result.Stats.Skipped,
			result.Stats.NotFound,
			result.Stats.Failed,
		)
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, integration.ErrBatchInProgress):
		e.logger.Info("Identical reconciliation batch already running, skipping job",
			zap.String("job_id", job.ID.String()),
			zap.Int("sku_count", len(job.SKUs)),
		)
		job.Skip(err.Error())
		return nil
	case errors.Is(err, integration.ErrEmptySKUSet):
		return fmt.Errorf("%w: %v", ErrNoSKUs, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrReconcileTimeout, err)
	default:
		return err
	}
}

// isPermanent reports whether retrying a job that failed with err cannot help
func isPermanent(err error) bool {
	return errors.Is(err, ErrNoSKUs) || errors.Is(err, context.Canceled)
}

// Ensure ServiceExecutor implements ReconcileExecutor
var _ ReconcileExecutor = (*ServiceExecutor)(nil)
