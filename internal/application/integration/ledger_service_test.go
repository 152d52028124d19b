package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sneakerflash/backend/internal/domain/integration"
	"github.com/sneakerflash/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedLedger(t *testing.T, ledger *memLedger, sessionID, sku string, status integration.LedgerStatus) {
	t.Helper()
	entry, err := integration.NewSyncLedgerEntry(sessionID, sku, integration.OperationSync, integration.MethodBulkWarehouseInventory, status)
	require.NoError(t, err)
	require.NoError(t, ledger.Append(context.Background(), entry.WithStockChange(1, 2)))
}

func TestLedgerService_ListEntries(t *testing.T) {
	ledger := newMemLedger()
	seedLedger(t, ledger, "sess-1", "SKU-1", integration.LedgerStatusSuccess)
	seedLedger(t, ledger, "sess-1", "SKU-2", integration.LedgerStatusFailed)
	seedLedger(t, ledger, "sess-2", "SKU-1", integration.LedgerStatusSkipped)
	svc := NewLedgerService(ledger, nil)

	t.Run("defaults and normalization", func(t *testing.T) {
		page, err := svc.ListEntries(context.Background(), integration.LedgerFilter{SKU: " sku-1 "})
		require.NoError(t, err)

		assert.Equal(t, int64(2), page.Total)
		assert.Equal(t, 1, page.Page)
		assert.Equal(t, 20, page.PageSize)
		assert.Equal(t, "SKU-1", ledger.lastFilter.SKU)
		for _, e := range page.Entries {
			assert.Equal(t, "SKU-1", e.SKU)
			assert.Equal(t, 1, e.Change)
		}
	})

	t.Run("page size is capped", func(t *testing.T) {
		page, err := svc.ListEntries(context.Background(), integration.LedgerFilter{PageSize: 1000})
		require.NoError(t, err)
		assert.Equal(t, 100, page.PageSize)
	})

	t.Run("filters by session and status", func(t *testing.T) {
		page, err := svc.ListEntries(context.Background(), integration.LedgerFilter{
			SessionID: "sess-1",
			Status:    integration.LedgerStatusFailed,
		})
		require.NoError(t, err)
		require.Len(t, page.Entries, 1)
		assert.Equal(t, "SKU-2", page.Entries[0].SKU)
		assert.Equal(t, "failed", page.Entries[0].Status)
	})
}

func TestLedgerService_ListEntries_Validation(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-time.Hour)

	tests := []struct {
		name   string
		filter integration.LedgerFilter
		code   string
	}{
		{"invalid status", integration.LedgerFilter{Status: "done"}, "INVALID_STATUS"},
		{"invalid operation", integration.LedgerFilter{OperationType: "pull"}, "INVALID_OPERATION_TYPE"},
		{"inverted date range", integration.LedgerFilter{From: &now, To: &earlier}, "INVALID_DATE_RANGE"},
	}

	svc := NewLedgerService(newMemLedger(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ListEntries(context.Background(), tt.filter)
			require.Error(t, err)

			var domainErr *shared.DomainError
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, tt.code, domainErr.Code)
		})
	}
}

func TestLedgerService_SessionSummary(t *testing.T) {
	ledger := newMemLedger()
	seedLedger(t, ledger, "sess-1", "SKU-1", integration.LedgerStatusSuccess)
	seedLedger(t, ledger, "sess-1", "SKU-2", integration.LedgerStatusSuccess)
	seedLedger(t, ledger, "sess-1", "SKU-3", integration.LedgerStatusFailed)
	seedLedger(t, ledger, "sess-1", "SKU-4", integration.LedgerStatusError)
	svc := NewLedgerService(ledger, nil)

	summary, err := svc.SessionSummary(context.Background(), "sess-1")
	require.NoError(t, err)

	assert.Equal(t, int64(2), summary.Success)
	assert.Equal(t, int64(1), summary.Failed)
	assert.Equal(t, int64(1), summary.Error)
	assert.Equal(t, int64(0), summary.Skipped)
	assert.Equal(t, int64(4), summary.Total)
	assert.Equal(t, int64(2), summary.ByStatus["success"])

	t.Run("unknown session", func(t *testing.T) {
		_, err := svc.SessionSummary(context.Background(), "missing")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("blank session", func(t *testing.T) {
		_, err := svc.SessionSummary(context.Background(), " ")
		var domainErr *shared.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, "INVALID_SESSION", domainErr.Code)
	})
}
