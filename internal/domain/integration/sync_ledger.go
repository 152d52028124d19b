package integration

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sneakerflash/backend/internal/domain/catalog"
)

// ---------------------------------------------------------------------------
// Sync Ledger Errors
// ---------------------------------------------------------------------------

var (
	ErrLedgerInvalidSession   = errors.New("integration: ledger entry requires a session ID")
	ErrLedgerInvalidOperation = errors.New("integration: invalid ledger operation type")
	ErrLedgerInvalidMethod    = errors.New("integration: invalid ledger method")
	ErrLedgerInvalidStatus    = errors.New("integration: invalid ledger status")
)

// ---------------------------------------------------------------------------
// OperationType
// ---------------------------------------------------------------------------

// OperationType is the direction of a stock synchronization
type OperationType string

const (
	// OperationSync pulls remote stock into the local catalog
	OperationSync OperationType = "sync"
	// OperationPush pushes local stock to the platform
	OperationPush OperationType = "push"
)

// IsValid returns true if the operation type is valid
func (o OperationType) IsValid() bool {
	return o == OperationSync || o == OperationPush
}

// String returns the string representation
func (o OperationType) String() string {
	return string(o)
}

// ---------------------------------------------------------------------------
// LedgerStatus
// ---------------------------------------------------------------------------

// LedgerStatus is the terminal outcome of one attempt
type LedgerStatus string

const (
	LedgerStatusSuccess LedgerStatus = "success"
	LedgerStatusFailed  LedgerStatus = "failed"
	// LedgerStatusSkipped marks a dry-run attempt that would have succeeded
	LedgerStatusSkipped LedgerStatus = "skipped"
	LedgerStatusError   LedgerStatus = "error"
)

// IsValid returns true if the status is valid
func (s LedgerStatus) IsValid() bool {
	switch s {
	case LedgerStatusSuccess, LedgerStatusFailed, LedgerStatusSkipped, LedgerStatusError:
		return true
	}
	return false
}

// String returns the string representation
func (s LedgerStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// SyncLedgerEntry
// ---------------------------------------------------------------------------

// SyncLedgerEntry is one append-only audit record of a reconciliation attempt
type SyncLedgerEntry struct {
	ID uuid.UUID
	// SessionID groups every entry written by one top-level call
	SessionID     string
	SKU           string
	ProductName   string
	OperationType OperationType
	MethodUsed    StrategyMethod
	Status        LedgerStatus
	OldStock      int
	NewStock      int
	// Change is always NewStock - OldStock
	Change    int
	Message   string
	DryRun    bool
	CreatedAt time.Time
}

// NewSyncLedgerEntry creates a ledger entry for a SKU outcome.
// The SKU is stored in canonical form; it is empty for batch summaries.
func NewSyncLedgerEntry(sessionID, sku string, op OperationType, method StrategyMethod, status LedgerStatus) (*SyncLedgerEntry, error) {
	if sessionID == "" {
		return nil, ErrLedgerInvalidSession
	}
	if !op.IsValid() {
		return nil, ErrLedgerInvalidOperation
	}
	if !method.IsValid() {
		return nil, ErrLedgerInvalidMethod
	}
	if !status.IsValid() {
		return nil, ErrLedgerInvalidStatus
	}

	return &SyncLedgerEntry{
		ID:            uuid.New(),
		SessionID:     sessionID,
		SKU:           catalog.NormalizeSKU(sku),
		OperationType: op,
		MethodUsed:    method,
		Status:        status,
		CreatedAt:     time.Now(),
	}, nil
}

// WithStockChange records the before and after stock
func (e *SyncLedgerEntry) WithStockChange(oldStock, newStock int) *SyncLedgerEntry {
	e.OldStock = oldStock
	e.NewStock = newStock
	e.Change = newStock - oldStock
	return e
}

// WithProductName records the product name
func (e *SyncLedgerEntry) WithProductName(name string) *SyncLedgerEntry {
	e.ProductName = name
	return e
}

// WithMessage records a human-readable outcome description
func (e *SyncLedgerEntry) WithMessage(message string) *SyncLedgerEntry {
	e.Message = message
	return e
}

// WithDryRun flags the entry as a dry-run outcome
func (e *SyncLedgerEntry) WithDryRun(dryRun bool) *SyncLedgerEntry {
	e.DryRun = dryRun
	return e
}

// IsSummary returns true for per-batch summary entries
func (e *SyncLedgerEntry) IsSummary() bool {
	return e.MethodUsed == MethodBatchSummary
}

// ---------------------------------------------------------------------------
// Ledger Query
// ---------------------------------------------------------------------------

// LedgerFilter selects ledger entries. Zero-valued fields are ignored.
type LedgerFilter struct {
	SessionID     string
	SKU           string
	Status        LedgerStatus
	OperationType OperationType
	From          *time.Time
	To            *time.Time
	Page          int
	PageSize      int
}

// Offset returns the row offset for the filter's page
func (f LedgerFilter) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// SyncLedgerRepository is the append-only store for ledger entries
type SyncLedgerRepository interface {
	// Append writes entries; existing entries are never modified
	Append(ctx context.Context, entries ...*SyncLedgerEntry) error

	// List returns entries matching the filter, newest first, with the total match count
	List(ctx context.Context, filter LedgerFilter) ([]SyncLedgerEntry, int64, error)

	// CountByStatus returns per-status entry counts for one session
	CountByStatus(ctx context.Context, sessionID string) (map[LedgerStatus]int64, error)
}
