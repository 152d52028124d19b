package scheduler

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewReconcileJob(t *testing.T) {
	skus := []string{"ABC-1", "ABC-2"}
	job := NewReconcileJob(skus, true, 3)

	assert.NotEqual(t, uuid.Nil, job.ID)
	assert.Equal(t, skus, job.SKUs)
	assert.True(t, job.DryRun)
	assert.Equal(t, ReconcileJobStatusPending, job.Status)
	assert.Equal(t, 3, job.MaxRetries)
	assert.Nil(t, job.StartedAt)

	skus[0] = "CHANGED"
	assert.Equal(t, "ABC-1", job.SKUs[0], "job keeps its own copy of the SKU set")
}

func TestReconcileJob_Start(t *testing.T) {
	job := NewReconcileJob([]string{"A"}, false, 3)
	job.Error = "previous error"

	job.Start()

	assert.Equal(t, ReconcileJobStatusRunning, job.Status)
	assert.NotNil(t, job.StartedAt)
	assert.Nil(t, job.CompletedAt)
	assert.Empty(t, job.Error)
}

func TestReconcileJob_Complete(t *testing.T) {
	tests := []struct {
		name                                string
		updated, skipped, notFound, failed int
		want                                ReconcileJobStatus
	}{
		{"all updated", 10, 0, 0, 0, ReconcileJobStatusSuccess},
		{"unchanged only", 0, 10, 0, 0, ReconcileJobStatusSuccess},
		{"some not found", 8, 0, 2, 0, ReconcileJobStatusPartial},
		{"some failed", 5, 3, 0, 2, ReconcileJobStatusPartial},
		{"nothing succeeded", 0, 0, 4, 6, ReconcileJobStatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewReconcileJob([]string{"A"}, false, 3)
			job.Start()

			job.Complete("sess-1", 10, tt.updated, tt.skipped, tt.notFound, tt.failed)

			assert.Equal(t, tt.want, job.Status)
			assert.Equal(t, "sess-1", job.SessionID)
			assert.Equal(t, 10, job.Requested)
			assert.NotNil(t, job.CompletedAt)
		})
	}
}

func TestReconcileJob_Skip(t *testing.T) {
	job := NewReconcileJob([]string{"A"}, false, 3)
	job.Start()

	job.Skip("batch in progress")

	assert.Equal(t, ReconcileJobStatusSkipped, job.Status)
	assert.Equal(t, "batch in progress", job.Error)
	assert.False(t, job.ShouldRetry())
}

func TestReconcileJob_ShouldRetry(t *testing.T) {
	job := NewReconcileJob([]string{"A"}, false, 2)
	assert.False(t, job.ShouldRetry(), "pending job")

	job.Fail("upstream down")
	assert.True(t, job.ShouldRetry())

	job.RetryCount = 2
	assert.False(t, job.ShouldRetry(), "retries exhausted")
}

func TestReconcileJob_ScheduleRetry(t *testing.T) {
	job := NewReconcileJob([]string{"A"}, false, 10)

	delays := make([]time.Duration, 0, 7)
	for range 7 {
		job.Fail("boom")
		delays = append(delays, job.ScheduleRetry(time.Minute))
	}

	assert.Equal(t, []time.Duration{
		time.Minute,
		2 * time.Minute,
		4 * time.Minute,
		8 * time.Minute,
		16 * time.Minute,
		30 * time.Minute,
		30 * time.Minute,
	}, delays)
	assert.Equal(t, 7, job.RetryCount)
	assert.Equal(t, ReconcileJobStatusPending, job.Status)
	assert.Equal(t, "boom", job.Error, "reason is kept for the history")
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), *job.NextRetryAt, 5*time.Second)
}
