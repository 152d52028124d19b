package catalog

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrProductNotFound is returned when no local product matches a SKU
var ErrProductNotFound = errors.New("catalog: product not found")

// ProductRecord is the slice of a catalog product that inventory reconciliation reads and writes
type ProductRecord struct {
	ID   uuid.UUID
	SKU  string
	Name string
	// StockQuantity is the authoritative local stock, never negative
	StockQuantity int
	// WarehouseStock is the last warehouse-level figure reported by the inventory platform
	WarehouseStock int
	LastSyncAt     *time.Time
	LastPushAt     *time.Time
	UpdatedAt      time.Time
}

// NormalizeSKU returns the canonical form used to match SKUs across systems
func NormalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

// ApplyRemoteStock overwrites the local stock with values observed on the platform.
// Negative inputs are stored as zero.
func (p *ProductRecord) ApplyRemoteStock(stock, warehouseStock int, syncedAt time.Time) {
	p.StockQuantity = max(stock, 0)
	p.WarehouseStock = max(warehouseStock, 0)
	p.LastSyncAt = &syncedAt
	p.UpdatedAt = syncedAt
}

// MarkPushed records that local stock was pushed to the platform
func (p *ProductRecord) MarkPushed(pushedAt time.Time) {
	p.LastPushAt = &pushedAt
	p.UpdatedAt = pushedAt
}
