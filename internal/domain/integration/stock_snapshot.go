package integration

import (
	"time"

	"github.com/sneakerflash/backend/internal/domain/catalog"
)

// ---------------------------------------------------------------------------
// StrategyMethod
// ---------------------------------------------------------------------------

// StrategyMethod identifies the path that produced a stock result or ledger entry
type StrategyMethod string

const (
	// MethodBulkWarehouseInventory is the single-cursor bulk scan of warehouse inventory
	MethodBulkWarehouseInventory StrategyMethod = "bulk_warehouse_inventory"
	// MethodWarehouseInventorySearch is the per-SKU warehouse inventory search
	MethodWarehouseInventorySearch StrategyMethod = "warehouse_inventory_search"
	// MethodMasterProducts is the per-SKU master products search
	MethodMasterProducts StrategyMethod = "master_products_fallback"
	// MethodUpdateTrick reads stock by issuing a zero-quantity update
	MethodUpdateTrick StrategyMethod = "update_trick_fallback"
	// MethodNotFound marks a SKU no strategy could resolve
	MethodNotFound StrategyMethod = "not_found"
	// MethodBatchSummary marks the per-batch summary ledger entry
	MethodBatchSummary StrategyMethod = "batch_summary"
	// MethodStockPush marks a push of local stock to the platform
	MethodStockPush StrategyMethod = "stock_push"
)

// AllStrategyMethods returns every strategy method
func AllStrategyMethods() []StrategyMethod {
	return []StrategyMethod{
		MethodBulkWarehouseInventory,
		MethodWarehouseInventorySearch,
		MethodMasterProducts,
		MethodUpdateTrick,
		MethodNotFound,
		MethodBatchSummary,
		MethodStockPush,
	}
}

// IsValid returns true if the method is one of the known methods
func (m StrategyMethod) IsValid() bool {
	switch m {
	case MethodBulkWarehouseInventory, MethodWarehouseInventorySearch, MethodMasterProducts,
		MethodUpdateTrick, MethodNotFound, MethodBatchSummary, MethodStockPush:
		return true
	}
	return false
}

// String returns the string representation
func (m StrategyMethod) String() string {
	return string(m)
}

// IsLookup returns true if the method can produce a stock snapshot
func (m StrategyMethod) IsLookup() bool {
	switch m {
	case MethodBulkWarehouseInventory, MethodWarehouseInventorySearch, MethodMasterProducts, MethodUpdateTrick:
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// StockSnapshot
// ---------------------------------------------------------------------------

// StockSnapshot is the platform's stock for one SKU at one point in time.
// TotalStock is the value written to local stock; its derivation depends on SourceMethod.
type StockSnapshot struct {
	SKU            string         `json:"sku"`
	ProductName    string         `json:"product_name"`
	WarehouseStock int            `json:"warehouse_stock"`
	AvailableStock int            `json:"available_stock"`
	LockedStock    int            `json:"locked_stock"`
	TotalStock     int            `json:"total_stock"`
	SourceMethod   StrategyMethod `json:"source_method"`
	ObservedAt     time.Time      `json:"observed_at"`
	// Malformed is set when the platform sent a non-numeric stock figure
	Malformed bool `json:"malformed,omitempty"`
}

// NeedsClamp returns true if TotalStock cannot be written as-is
func (s StockSnapshot) NeedsClamp() bool {
	return s.TotalStock < 0 || s.Malformed
}

// ClampedTotal returns TotalStock floored at zero
func (s StockSnapshot) ClampedTotal() int {
	return max(s.TotalStock, 0)
}

// SnapshotFromWarehouseItem derives a snapshot from a warehouse inventory record.
// Available stock is authoritative; locked stock is what the warehouse holds beyond it.
func SnapshotFromWarehouseItem(item WarehouseInventoryItem, method StrategyMethod, observedAt time.Time) StockSnapshot {
	return StockSnapshot{
		SKU:            catalog.NormalizeSKU(item.SKU),
		ProductName:    item.ProductName,
		WarehouseStock: item.WarehouseStock,
		AvailableStock: item.AvailableStock,
		LockedStock:    max(item.WarehouseStock-item.AvailableStock, 0),
		TotalStock:     item.AvailableStock,
		SourceMethod:   method,
		ObservedAt:     observedAt,
		Malformed:      item.Malformed,
	}
}

// SnapshotFromMasterProduct derives a snapshot from a master product.
// The listing has no locked/available split.
func SnapshotFromMasterProduct(p MasterProduct, observedAt time.Time) StockSnapshot {
	return StockSnapshot{
		SKU:            catalog.NormalizeSKU(p.SKU),
		ProductName:    p.ProductName,
		WarehouseStock: p.StockQuantity,
		AvailableStock: p.StockQuantity,
		LockedStock:    0,
		TotalStock:     p.StockQuantity,
		SourceMethod:   MethodMasterProducts,
		ObservedAt:     observedAt,
		Malformed:      p.Malformed,
	}
}

// SnapshotFromStockEcho derives a snapshot from the record echoed by a stock update
func SnapshotFromStockEcho(e StockEcho, observedAt time.Time) StockSnapshot {
	return StockSnapshot{
		SKU:            catalog.NormalizeSKU(e.SKU),
		ProductName:    e.ProductName,
		WarehouseStock: e.WarehouseStock,
		AvailableStock: e.AvailableStock,
		LockedStock:    max(e.WarehouseStock-e.AvailableStock, 0),
		TotalStock:     e.AvailableStock,
		SourceMethod:   MethodUpdateTrick,
		ObservedAt:     observedAt,
		Malformed:      e.Malformed,
	}
}

// ---------------------------------------------------------------------------
// LookupOutcome
// ---------------------------------------------------------------------------

// LookupKind classifies the result of a stock lookup
type LookupKind string

const (
	LookupFound        LookupKind = "FOUND"
	LookupNotFound     LookupKind = "NOT_FOUND"
	LookupInconclusive LookupKind = "INCONCLUSIVE"
)

// LookupOutcome is the result of one strategy, or of the whole chain
type LookupOutcome struct {
	Kind LookupKind
	// Method is the strategy that produced the outcome
	Method StrategyMethod
	// Snapshot is set only when Kind is LookupFound
	Snapshot *StockSnapshot
	// Confirmed is set on a not-found outcome the platform stated explicitly
	Confirmed bool
	// Reason describes why a lookup was inconclusive
	Reason string
}

// Found creates a successful outcome
func Found(snapshot StockSnapshot) LookupOutcome {
	return LookupOutcome{
		Kind:     LookupFound,
		Method:   snapshot.SourceMethod,
		Snapshot: &snapshot,
	}
}

// NotFound creates an outcome for a SKU the strategy did not find
func NotFound(method StrategyMethod) LookupOutcome {
	return LookupOutcome{Kind: LookupNotFound, Method: method}
}

// ConfirmedNotFound creates an outcome for a SKU the platform declared absent
func ConfirmedNotFound(method StrategyMethod) LookupOutcome {
	return LookupOutcome{Kind: LookupNotFound, Method: method, Confirmed: true}
}

// Inconclusive creates an outcome for a strategy that could not decide
func Inconclusive(method StrategyMethod, reason string) LookupOutcome {
	return LookupOutcome{Kind: LookupInconclusive, Method: method, Reason: reason}
}

// IsFound returns true if a snapshot was produced
func (o LookupOutcome) IsFound() bool {
	return o.Kind == LookupFound && o.Snapshot != nil
}
