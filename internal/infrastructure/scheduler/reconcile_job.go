package scheduler

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// maxRetryDelay caps the exponential backoff between job attempts
const maxRetryDelay = 30 * time.Minute

// ReconcileJobStatus represents the status of a reconciliation job
type ReconcileJobStatus string

const (
	ReconcileJobStatusPending ReconcileJobStatus = "PENDING"
	ReconcileJobStatusRunning ReconcileJobStatus = "RUNNING"
	ReconcileJobStatusSuccess ReconcileJobStatus = "SUCCESS"
	ReconcileJobStatusPartial ReconcileJobStatus = "PARTIAL"
	ReconcileJobStatusSkipped ReconcileJobStatus = "SKIPPED"
	ReconcileJobStatusFailed  ReconcileJobStatus = "FAILED"
)

// ReconcileJob is one scheduled reconciliation of a SKU set
type ReconcileJob struct {
	ID          uuid.UUID
	SKUs        []string
	DryRun      bool
	Status      ReconcileJobStatus
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
	RetryCount  int
	MaxRetries  int
	NextRetryAt *time.Time

	// Results of the last attempt
	SessionID string
	Requested int
	Updated   int
	Skipped   int
	NotFound  int
	Failed    int
}

// NewReconcileJob creates a new pending job for skus
func NewReconcileJob(skus []string, dryRun bool, maxRetries int) *ReconcileJob {
	return &ReconcileJob{
		ID:         uuid.New(),
		SKUs:       slices.Clone(skus),
		DryRun:     dryRun,
		Status:     ReconcileJobStatusPending,
		MaxRetries: maxRetries,
	}
}

// Start marks the job as running
func (j *ReconcileJob) Start() {
	now := time.Now()
	j.Status = ReconcileJobStatusRunning
	j.StartedAt = &now
	j.CompletedAt = nil
	j.Error = ""
}

// Complete records the batch outcome. Not-found SKUs count as failures: a batch
// where nothing succeeded is FAILED, one with some failures is PARTIAL.
func (j *ReconcileJob) Complete(sessionID string, requested, updated, skipped, notFound, failed int) {
	now := time.Now()
	j.SessionID = sessionID
	j.Requested = requested
	j.Updated = updated
	j.Skipped = skipped
	j.NotFound = notFound
	j.Failed = failed
	j.CompletedAt = &now

	switch {
	case failed+notFound == 0:
		j.Status = ReconcileJobStatusSuccess
	case updated+skipped > 0:
		j.Status = ReconcileJobStatusPartial
	default:
		j.Status = ReconcileJobStatusFailed
	}
}

// Skip marks the job as not run, e.g. because an identical batch holds the lock
func (j *ReconcileJob) Skip(reason string) {
	now := time.Now()
	j.Status = ReconcileJobStatusSkipped
	j.CompletedAt = &now
	j.Error = reason
}

// Fail marks the job as failed
func (j *ReconcileJob) Fail(err string) {
	now := time.Now()
	j.Status = ReconcileJobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// ShouldRetry returns true if the job failed and has attempts left
func (j *ReconcileJob) ShouldRetry() bool {
	return j.Status == ReconcileJobStatusFailed && j.RetryCount < j.MaxRetries
}

// ScheduleRetry schedules the job for retry with exponential backoff and
// returns the delay until the next attempt
func (j *ReconcileJob) ScheduleRetry(baseDelay time.Duration) time.Duration {
	j.RetryCount++
	j.Status = ReconcileJobStatusPending
	// baseDelay * 2^(retryCount-1)
	delay := min(baseDelay*time.Duration(1<<(j.RetryCount-1)), maxRetryDelay)
	nextRetry := time.Now().Add(delay)
	j.NextRetryAt = &nextRetry
	return delay
}
