package handler

import (
	"context"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sneakerflash/backend/internal/infrastructure/logger"
	"github.com/sneakerflash/backend/internal/infrastructure/scheduler"
	"github.com/sneakerflash/backend/internal/interfaces/http/dto"
)

const (
	defaultCheckTimeout = 2 * time.Second
	defaultJobLimit     = 20
	maxJobLimit         = 100
)

// ReadinessCheck reports whether one dependency is usable
type ReadinessCheck func(ctx context.Context) error

// JobHistory exposes recent reconciliation jobs
type JobHistory interface {
	GetJobHistory(limit int) []scheduler.ReconcileJob
}

// SystemHandler serves the worker's probe and status endpoints
type SystemHandler struct {
	name         string
	version      string
	startTime    time.Time
	checks       map[string]ReadinessCheck
	checkOrder   []string
	checkTimeout time.Duration
	jobs         JobHistory
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(name, version string) *SystemHandler {
	return &SystemHandler{
		name:         name,
		version:      version,
		startTime:    time.Now(),
		checks:       make(map[string]ReadinessCheck),
		checkTimeout: defaultCheckTimeout,
	}
}

// AddCheck registers a readiness check under name
func (h *SystemHandler) AddCheck(name string, check ReadinessCheck) {
	if _, exists := h.checks[name]; !exists {
		h.checkOrder = append(h.checkOrder, name)
	}
	h.checks[name] = check
}

// SetCheckTimeout bounds each readiness check
func (h *SystemHandler) SetCheckTimeout(d time.Duration) {
	if d > 0 {
		h.checkTimeout = d
	}
}

// SetJobHistory sets the job history source for the jobs endpoint
func (h *SystemHandler) SetJobHistory(jobs JobHistory) {
	h.jobs = jobs
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// GetSystemInfo returns name, version and uptime
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}))
}

// Live reports that the process is serving
func (h *SystemHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// ReadinessResponse lists the state of every readiness check
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Time   string            `json:"time"`
}

// Ready runs every readiness check and answers 503 if any fails
func (h *SystemHandler) Ready(c *gin.Context) {
	reqLog := logger.GetGinLogger(c)

	resp := ReadinessResponse{
		Status: "ready",
		Checks: make(map[string]string, len(h.checks)),
	}
	for _, name := range h.checkOrder {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.checkTimeout)
		err := h.checks[name](ctx)
		cancel()

		if err != nil {
			reqLog.Warn("Readiness check failed", zap.String("check", name), zap.Error(err))
			resp.Status = "not_ready"
			resp.Checks[name] = err.Error()
			continue
		}
		resp.Checks[name] = "ok"
	}
	resp.Time = time.Now().Format(time.RFC3339)

	if resp.Status != "ready" {
		c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponseWithData(dto.ErrCodeNotReady, "one or more dependencies are unavailable", resp))
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// JobResponse is the display form of a scheduled reconciliation job
type JobResponse struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	SKUCount    int        `json:"sku_count"`
	DryRun      bool       `json:"dry_run"`
	SessionID   string     `json:"session_id,omitempty"`
	Updated     int        `json:"updated"`
	Skipped     int        `json:"skipped"`
	NotFound    int        `json:"not_found"`
	Failed      int        `json:"failed"`
	RetryCount  int        `json:"retry_count"`
	Error       string     `json:"error,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ListJobs returns recent scheduled reconciliation jobs, newest first
func (h *SystemHandler) ListJobs(c *gin.Context) {
	limit := defaultJobLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse("INVALID_LIMIT", "limit must be a positive integer"))
			return
		}
		limit = min(n, maxJobLimit)
	}

	responses := []JobResponse{}
	if h.jobs != nil {
		for _, job := range h.jobs.GetJobHistory(limit) {
			responses = append(responses, JobResponse{
				ID:          job.ID.String(),
				Status:      string(job.Status),
				SKUCount:    len(job.SKUs),
				DryRun:      job.DryRun,
				SessionID:   job.SessionID,
				Updated:     job.Updated,
				Skipped:     job.Skipped,
				NotFound:    job.NotFound,
				Failed:      job.Failed,
				RetryCount:  job.RetryCount,
				Error:       job.Error,
				StartedAt:   job.StartedAt,
				CompletedAt: job.CompletedAt,
			})
		}
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(responses))
}
