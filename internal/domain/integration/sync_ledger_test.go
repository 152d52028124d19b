package integration

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSyncLedgerEntry(t *testing.T) {
	tests := []struct {
		name      string
		sessionID string
		op        OperationType
		method    StrategyMethod
		status    LedgerStatus
		wantErr   error
	}{
		{"valid", "sess-1", OperationSync, MethodBulkWarehouseInventory, LedgerStatusSuccess, nil},
		{"missing session", "", OperationSync, MethodNotFound, LedgerStatusFailed, ErrLedgerInvalidSession},
		{"invalid operation", "sess-1", OperationType("pull"), MethodNotFound, LedgerStatusFailed, ErrLedgerInvalidOperation},
		{"invalid method", "sess-1", OperationSync, StrategyMethod("magic"), LedgerStatusFailed, ErrLedgerInvalidMethod},
		{"invalid status", "sess-1", OperationPush, MethodStockPush, LedgerStatus("ok"), ErrLedgerInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := NewSyncLedgerEntry(tt.sessionID, "sku-001", tt.op, tt.method, tt.status)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, entry)
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, entry.ID)
			assert.Equal(t, "SKU-001", entry.SKU)
			assert.False(t, entry.CreatedAt.IsZero())
		})
	}
}

func TestSyncLedgerEntry_WithStockChange(t *testing.T) {
	entry, err := NewSyncLedgerEntry("sess-1", "SHOE-01", OperationSync, MethodBulkWarehouseInventory, LedgerStatusSuccess)
	require.NoError(t, err)

	entry.WithStockChange(5, 10).WithProductName("Runner").WithMessage("updated").WithDryRun(true)

	assert.Equal(t, 5, entry.OldStock)
	assert.Equal(t, 10, entry.NewStock)
	assert.Equal(t, 5, entry.Change)
	assert.Equal(t, "Runner", entry.ProductName)
	assert.Equal(t, "updated", entry.Message)
	assert.True(t, entry.DryRun)
	assert.False(t, entry.IsSummary())

	entry.WithStockChange(10, 3)
	assert.Equal(t, -7, entry.Change)
}

func TestLedgerFilter_Offset(t *testing.T) {
	assert.Equal(t, 0, LedgerFilter{Page: 0, PageSize: 20}.Offset())
	assert.Equal(t, 0, LedgerFilter{Page: 1, PageSize: 20}.Offset())
	assert.Equal(t, 40, LedgerFilter{Page: 3, PageSize: 20}.Offset())
}

func TestLedgerStatus_IsValid(t *testing.T) {
	for _, s := range []LedgerStatus{LedgerStatusSuccess, LedgerStatusFailed, LedgerStatusSkipped, LedgerStatusError} {
		assert.True(t, s.IsValid(), s.String())
	}
	assert.False(t, LedgerStatus("SUCCESS").IsValid())
	assert.True(t, OperationPush.IsValid())
	assert.False(t, OperationType("").IsValid())
}
