package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when trying to submit a job to a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrJobQueueFull is returned when the job queue is full
	ErrJobQueueFull = errors.New("job queue is full")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrNoSKUs is returned when a trigger finds no local SKUs to reconcile
	ErrNoSKUs = errors.New("no local SKUs to reconcile")

	// ErrReconcileTimeout is returned when a job exceeds its timeout
	ErrReconcileTimeout = errors.New("reconciliation job timed out")
)
