package integration

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// StrategyMethod Tests
// ---------------------------------------------------------------------------

func TestStrategyMethod_IsValid(t *testing.T) {
	for _, m := range AllStrategyMethods() {
		t.Run(m.String(), func(t *testing.T) {
			assert.True(t, m.IsValid())
		})
	}

	assert.False(t, StrategyMethod("master_products_safe").IsValid())
	assert.False(t, StrategyMethod("").IsValid())
}

func TestStrategyMethod_IsLookup(t *testing.T) {
	tests := []struct {
		method   StrategyMethod
		expected bool
	}{
		{MethodBulkWarehouseInventory, true},
		{MethodWarehouseInventorySearch, true},
		{MethodMasterProducts, true},
		{MethodUpdateTrick, true},
		{MethodNotFound, false},
		{MethodBatchSummary, false},
		{MethodStockPush, false},
	}

	for _, tt := range tests {
		t.Run(tt.method.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.method.IsLookup())
		})
	}
}

// ---------------------------------------------------------------------------
// Snapshot Derivation Tests
// ---------------------------------------------------------------------------

func TestSnapshotFromWarehouseItem(t *testing.T) {
	now := time.Now()

	t.Run("available stock is the total", func(t *testing.T) {
		s := SnapshotFromWarehouseItem(WarehouseInventoryItem{
			SKU:            "shoe-01",
			ProductName:    "Runner",
			WarehouseStock: 12,
			AvailableStock: 10,
			LockedStock:    99,
		}, MethodBulkWarehouseInventory, now)

		assert.Equal(t, "SHOE-01", s.SKU)
		assert.Equal(t, 10, s.TotalStock)
		assert.Equal(t, 12, s.WarehouseStock)
		assert.Equal(t, 2, s.LockedStock)
		assert.Equal(t, MethodBulkWarehouseInventory, s.SourceMethod)
		assert.Equal(t, now, s.ObservedAt)
	})

	t.Run("locked stock never negative", func(t *testing.T) {
		s := SnapshotFromWarehouseItem(WarehouseInventoryItem{
			SKU:            "A",
			WarehouseStock: 3,
			AvailableStock: 5,
		}, MethodWarehouseInventorySearch, now)

		assert.Equal(t, 0, s.LockedStock)
		assert.Equal(t, 5, s.TotalStock)
	})
}

func TestSnapshotFromMasterProduct(t *testing.T) {
	s := SnapshotFromMasterProduct(MasterProduct{SKU: "abc-123", ProductName: "Cap", StockQuantity: 7}, time.Now())

	assert.Equal(t, "ABC-123", s.SKU)
	assert.Equal(t, 7, s.TotalStock)
	assert.Equal(t, 0, s.LockedStock)
	assert.Equal(t, MethodMasterProducts, s.SourceMethod)
}

func TestSnapshotFromStockEcho(t *testing.T) {
	s := SnapshotFromStockEcho(StockEcho{SKU: "X-1", WarehouseStock: 9, AvailableStock: 4}, time.Now())

	assert.Equal(t, 4, s.TotalStock)
	assert.Equal(t, 5, s.LockedStock)
	assert.Equal(t, MethodUpdateTrick, s.SourceMethod)
}

func TestStockSnapshot_Clamp(t *testing.T) {
	tests := []struct {
		name      string
		snapshot  StockSnapshot
		needs     bool
		clampedTo int
	}{
		{"positive", StockSnapshot{TotalStock: 4}, false, 4},
		{"zero", StockSnapshot{TotalStock: 0}, false, 0},
		{"negative", StockSnapshot{TotalStock: -5}, true, 0},
		{"malformed", StockSnapshot{TotalStock: 0, Malformed: true}, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.needs, tt.snapshot.NeedsClamp())
			assert.Equal(t, tt.clampedTo, tt.snapshot.ClampedTotal())
		})
	}
}

// ---------------------------------------------------------------------------
// LookupOutcome Tests
// ---------------------------------------------------------------------------

func TestLookupOutcome_Constructors(t *testing.T) {
	found := Found(StockSnapshot{SKU: "A", SourceMethod: MethodMasterProducts})
	assert.True(t, found.IsFound())
	assert.Equal(t, MethodMasterProducts, found.Method)
	require.NotNil(t, found.Snapshot)

	nf := NotFound(MethodWarehouseInventorySearch)
	assert.False(t, nf.IsFound())
	assert.False(t, nf.Confirmed)

	cnf := ConfirmedNotFound(MethodUpdateTrick)
	assert.Equal(t, LookupNotFound, cnf.Kind)
	assert.True(t, cnf.Confirmed)

	inc := Inconclusive(MethodUpdateTrick, "rate limited")
	assert.Equal(t, LookupInconclusive, inc.Kind)
	assert.Equal(t, "rate limited", inc.Reason)
}

// ---------------------------------------------------------------------------
// RemoteError Tests
// ---------------------------------------------------------------------------

func TestRemoteError(t *testing.T) {
	t.Run("logical error", func(t *testing.T) {
		err := NewRemoteError("PARAMS_ERROR", "Master SKU does not exist")

		assert.False(t, err.IsClientError())
		assert.True(t, err.IndicatesNotExist())
		assert.ErrorIs(t, err, ErrPlatformRequestFailed)
		assert.Contains(t, err.Error(), "PARAMS_ERROR")
	})

	t.Run("client error", func(t *testing.T) {
		err := NewClientError(errors.New("dial tcp: connection refused"))

		assert.True(t, err.IsClientError())
		assert.False(t, err.IndicatesNotExist())
		assert.ErrorIs(t, err, ErrPlatformUnavailable)
		assert.Nil(t, err.Data)
	})

	t.Run("other logical errors do not indicate absence", func(t *testing.T) {
		err := NewRemoteError("RATE_LIMIT", "too many requests")
		assert.False(t, err.IndicatesNotExist())
	})

	t.Run("errors.As finds the envelope through wrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("page 3: %w", NewRemoteError("X", "y"))
		var remote *RemoteError
		assert.True(t, errors.As(wrapped, &remote))
		assert.Equal(t, "X", remote.Code)
	})
}

// ---------------------------------------------------------------------------
// Page Tests
// ---------------------------------------------------------------------------

func TestWarehouseInventoryPage_IsLast(t *testing.T) {
	items := func(n int) []WarehouseInventoryItem { return make([]WarehouseInventoryItem, n) }

	tests := []struct {
		name string
		page WarehouseInventoryPage
		want bool
	}{
		{"empty page", WarehouseInventoryPage{Page: 0, Size: 10}, true},
		{"short page", WarehouseInventoryPage{Page: 0, Size: 10, Items: items(3)}, true},
		{"full page with more", WarehouseInventoryPage{Page: 0, Size: 10, Total: 25, Items: items(10)}, false},
		{"full page reaching total", WarehouseInventoryPage{Page: 2, Size: 10, Total: 30, Items: items(10)}, true},
		{"full page unknown total", WarehouseInventoryPage{Page: 4, Size: 10, Items: items(10)}, false},
		{"short last page covering total", WarehouseInventoryPage{Page: 2, Size: 10, Total: 25, Items: items(5)}, true},
		{"full raw page with dropped records", WarehouseInventoryPage{Page: 0, Size: 10, Total: 25, Fetched: 10, Items: items(7)}, false},
		{"full raw page with dropped records unknown total", WarehouseInventoryPage{Page: 0, Size: 10, Fetched: 10, Items: items(9)}, false},
		{"short raw page unknown total", WarehouseInventoryPage{Page: 0, Size: 10, Fetched: 6, Items: items(4)}, true},
		{"capped page size below total", WarehouseInventoryPage{Page: 0, Size: 100, Total: 120, Items: items(50)}, false},
		{"capped page size reaching total", WarehouseInventoryPage{Page: 2, Size: 100, Total: 120, Items: items(20)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.page.IsLast())
		})
	}
}

func TestMasterProductPage_IsLast(t *testing.T) {
	items := func(n int) []MasterProduct { return make([]MasterProduct, n) }

	assert.True(t, (&MasterProductPage{Page: 0, Size: 10}).IsLast())
	assert.True(t, (&MasterProductPage{Page: 1, Size: 10, Total: 14, Items: items(4)}).IsLast())
	assert.False(t, (&MasterProductPage{Page: 0, Size: 10, Total: 14, Items: items(10)}).IsLast())
	assert.False(t, (&MasterProductPage{Page: 0, Size: 10, Fetched: 10, Items: items(8)}).IsLast())
}

func TestStockUpdateResult_Find(t *testing.T) {
	r := &StockUpdateResult{Items: []StockEcho{{SKU: "sku-001", AvailableStock: 3}}}

	echo, ok := r.Find("SKU-001")
	assert.True(t, ok)
	assert.Equal(t, 3, echo.AvailableStock)

	_, ok = r.Find("SKU-002")
	assert.False(t, ok)
}
