package integration

import (
	"context"
	"strings"

	"github.com/sneakerflash/backend/internal/domain/catalog"
	"github.com/sneakerflash/backend/internal/domain/integration"
	"github.com/sneakerflash/backend/internal/domain/shared"
	"go.uber.org/zap"
)

const (
	defaultLedgerPageSize = 20
	maxLedgerPageSize     = 100
)

// LedgerService provides read access to the sync ledger for audit and reporting
type LedgerService struct {
	ledgerRepo integration.SyncLedgerRepository
	logger     *zap.Logger
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(ledgerRepo integration.SyncLedgerRepository, logger *zap.Logger) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{
		ledgerRepo: ledgerRepo,
		logger:     logger,
	}
}

// ListEntries returns one page of ledger entries, newest first
func (s *LedgerService) ListEntries(ctx context.Context, filter integration.LedgerFilter) (*LedgerPage, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, shared.NewDomainError("INVALID_STATUS", "Invalid ledger status: "+filter.Status.String())
	}
	if filter.OperationType != "" && !filter.OperationType.IsValid() {
		return nil, shared.NewDomainError("INVALID_OPERATION_TYPE", "Invalid operation type: "+filter.OperationType.String())
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, shared.NewDomainError("INVALID_DATE_RANGE", "Start of date range must not be after its end")
	}

	// Set defaults
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = defaultLedgerPageSize
	}
	if filter.PageSize > maxLedgerPageSize {
		filter.PageSize = maxLedgerPageSize
	}
	filter.SessionID = strings.TrimSpace(filter.SessionID)
	filter.SKU = catalog.NormalizeSKU(filter.SKU)

	entries, total, err := s.ledgerRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list sync ledger entries", zap.Error(err))
		return nil, err
	}

	return &LedgerPage{
		Entries:  ToLedgerEntryResponses(entries),
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

// SessionSummary counts the ledger entries of one session by status
func (s *LedgerService) SessionSummary(ctx context.Context, sessionID string) (*SessionSummary, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, shared.NewDomainError("INVALID_SESSION", "Session ID is required")
	}

	counts, err := s.ledgerRepo.CountByStatus(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	summary := &SessionSummary{
		SessionID: sessionID,
		ByStatus:  make(map[string]int64, len(counts)),
	}
	for status, n := range counts {
		summary.ByStatus[status.String()] = n
		summary.Total += n
		switch status {
		case integration.LedgerStatusSuccess:
			summary.Success = n
		case integration.LedgerStatusFailed:
			summary.Failed = n
		case integration.LedgerStatusSkipped:
			summary.Skipped = n
		case integration.LedgerStatusError:
			summary.Error = n
		}
	}
	if summary.Total == 0 {
		return nil, shared.NewDomainError("NOT_FOUND", "Sync session not found")
	}
	return summary, nil
}
