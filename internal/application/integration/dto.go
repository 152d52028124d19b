package integration

import (
	"time"

	"github.com/sneakerflash/backend/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Reconciliation Options
// ---------------------------------------------------------------------------

// MaxFallbackConcurrency caps the fallback worker pool
const MaxFallbackConcurrency = 8

// ReconcileOptions controls one reconciliation batch. Zero fields take the service defaults.
type ReconcileOptions struct {
	// DryRun computes and records intended changes without persisting them
	DryRun bool
	// PageSize is the bulk warehouse inventory page size
	PageSize int
	// MaxPages bounds bulk paging
	MaxPages int
	// MaxRetries is the number of retries for a failed bulk page; negative disables retries
	MaxRetries int
	// RetryBackoff is the fixed delay between retries of a bulk page
	RetryBackoff time.Duration
	// ChunkSize is the number of ledger entries written per insert
	ChunkSize int
	// Concurrency is the number of fallback workers, between 1 and MaxFallbackConcurrency
	Concurrency int
	// FallbackDelay is the minimum spacing between fallback lookups of one worker
	FallbackDelay time.Duration
}

// DefaultReconcileOptions returns the default batch options
func DefaultReconcileOptions() ReconcileOptions {
	return ReconcileOptions{
		PageSize:      500,
		MaxPages:      50,
		MaxRetries:    3,
		RetryBackoff:  2 * time.Second,
		ChunkSize:     100,
		Concurrency:   1,
		FallbackDelay: 250 * time.Millisecond,
	}
}

// withDefaults fills zero fields from d and clamps the worker count
func (o ReconcileOptions) withDefaults(d ReconcileOptions) ReconcileOptions {
	if o.PageSize <= 0 {
		o.PageSize = d.PageSize
	}
	if o.MaxPages <= 0 {
		o.MaxPages = d.MaxPages
	}
	switch {
	case o.MaxRetries < 0:
		o.MaxRetries = 0
	case o.MaxRetries == 0:
		o.MaxRetries = d.MaxRetries
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = d.RetryBackoff
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = d.ChunkSize
	}
	if o.Concurrency <= 0 {
		o.Concurrency = d.Concurrency
	}
	o.Concurrency = min(max(o.Concurrency, 1), MaxFallbackConcurrency)
	if o.FallbackDelay < 0 {
		o.FallbackDelay = 0
	} else if o.FallbackDelay == 0 {
		o.FallbackDelay = d.FallbackDelay
	}
	return o
}

// ---------------------------------------------------------------------------
// Results
// ---------------------------------------------------------------------------

// SKUOutcome is the terminal outcome of one SKU within a session
type SKUOutcome struct {
	Status   integration.LedgerStatus   `json:"status"`
	Method   integration.StrategyMethod `json:"method"`
	OldStock int                        `json:"old_stock"`
	NewStock int                        `json:"new_stock"`
	Message  string                     `json:"message"`
}

// BatchStats aggregates one batch
type BatchStats struct {
	Requested    int           `json:"requested"`
	Found        int           `json:"found"`
	NotFound     int           `json:"not_found"`
	Updated      int           `json:"updated"`
	Skipped      int           `json:"skipped"`
	Failed       int           `json:"failed"`
	ItemsScanned int           `json:"items_scanned"`
	PagesScanned int           `json:"pages_scanned"`
	Elapsed      time.Duration `json:"elapsed"`
	// Throughput is bulk items scanned per second
	Throughput float64 `json:"throughput"`
}

// BatchResult is the result of one reconciliation call
type BatchResult struct {
	SessionID string `json:"session_id"`
	// Found holds every SKU the platform reported stock for, keyed by canonical SKU
	Found map[string]integration.StockSnapshot `json:"found"`
	// NotFound lists SKUs no strategy could find
	NotFound []string `json:"not_found"`
	// Errors holds the failure message of every SKU that did not end in success or skipped
	Errors   map[string]string     `json:"errors"`
	Outcomes map[string]SKUOutcome `json:"outcomes"`
	Stats    BatchStats            `json:"stats"`
}

func newBatchResult(sessionID string, requested int) *BatchResult {
	return &BatchResult{
		SessionID: sessionID,
		Found:     make(map[string]integration.StockSnapshot),
		NotFound:  []string{},
		Errors:    make(map[string]string),
		Outcomes:  make(map[string]SKUOutcome),
		Stats:     BatchStats{Requested: requested},
	}
}

// SingleResult is the result of reconciling one SKU
type SingleResult struct {
	SessionID string                     `json:"session_id"`
	Success   bool                       `json:"success"`
	Message   string                     `json:"message"`
	Snapshot  *integration.StockSnapshot `json:"snapshot,omitempty"`
}

// PushResult is the result of pushing one SKU's local stock to the platform
type PushResult struct {
	SessionID string `json:"session_id"`
	Success   bool   `json:"success"`
	Message   string `json:"message"`
}

// Summary is the display-ready digest of a batch
type Summary struct {
	Successful     int      `json:"successful"`
	Failed         int      `json:"failed"`
	NotFound       int      `json:"not_found"`
	TotalRequested int      `json:"total_requested"`
	SessionID      string   `json:"session_id"`
	Errors         []string `json:"errors"`
}

// ---------------------------------------------------------------------------
// Ledger DTOs
// ---------------------------------------------------------------------------

// LedgerEntryResponse represents a ledger entry in reporting responses
type LedgerEntryResponse struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"session_id"`
	SKU           string    `json:"sku"`
	ProductName   string    `json:"product_name,omitempty"`
	OperationType string    `json:"operation_type"`
	MethodUsed    string    `json:"method_used"`
	Status        string    `json:"status"`
	OldStock      int       `json:"old_stock"`
	NewStock      int       `json:"new_stock"`
	Change        int       `json:"change"`
	Message       string    `json:"message,omitempty"`
	DryRun        bool      `json:"dry_run"`
	CreatedAt     time.Time `json:"created_at"`
}

// LedgerPage is one page of ledger entries
type LedgerPage struct {
	Entries  []LedgerEntryResponse `json:"entries"`
	Total    int64                 `json:"total"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
}

// SessionSummary aggregates the ledger entries of one session
type SessionSummary struct {
	SessionID string           `json:"session_id"`
	Success   int64            `json:"success"`
	Failed    int64            `json:"failed"`
	Skipped   int64            `json:"skipped"`
	Error     int64            `json:"error"`
	Total     int64            `json:"total"`
	ByStatus  map[string]int64 `json:"by_status"`
}

// ToLedgerEntryResponse converts a domain ledger entry to a response DTO
func ToLedgerEntryResponse(e *integration.SyncLedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:            e.ID.String(),
		SessionID:     e.SessionID,
		SKU:           e.SKU,
		ProductName:   e.ProductName,
		OperationType: e.OperationType.String(),
		MethodUsed:    e.MethodUsed.String(),
		Status:        e.Status.String(),
		OldStock:      e.OldStock,
		NewStock:      e.NewStock,
		Change:        e.Change,
		Message:       e.Message,
		DryRun:        e.DryRun,
		CreatedAt:     e.CreatedAt,
	}
}

// ToLedgerEntryResponses converts a slice of ledger entries
func ToLedgerEntryResponses(entries []integration.SyncLedgerEntry) []LedgerEntryResponse {
	responses := make([]LedgerEntryResponse, len(entries))
	for i := range entries {
		responses[i] = ToLedgerEntryResponse(&entries[i])
	}
	return responses
}
