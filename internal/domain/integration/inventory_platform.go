package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sneakerflash/backend/internal/domain/catalog"
)

// ---------------------------------------------------------------------------
// InventoryPlatform Errors
// ---------------------------------------------------------------------------

var (
	// Platform errors
	ErrPlatformNotConfigured   = errors.New("integration: platform not configured")
	ErrPlatformUnavailable     = errors.New("integration: platform temporarily unavailable")
	ErrPlatformRequestFailed   = errors.New("integration: platform request failed")
	ErrPlatformInvalidResponse = errors.New("integration: invalid platform response")

	// Inventory sync errors
	ErrInventorySyncFailed = errors.New("integration: inventory sync failed")
	ErrUpstreamUnavailable = errors.New("integration: inventory platform unavailable for bulk paging")
	ErrBatchInProgress     = errors.New("integration: a reconciliation batch for these SKUs is already running")
	ErrEmptySKUSet         = errors.New("integration: no SKUs to reconcile")
	ErrWarehouseRequired   = errors.New("integration: warehouse ID is required for stock updates")
)

// Remote response codes
const (
	// RemoteCodeSuccess is the code the platform returns for a successful call
	RemoteCodeSuccess = "SUCCESS"
	// RemoteCodeClientError is the code used locally when the call never produced a usable response
	RemoteCodeClientError = "CLIENT_ERROR"
)

// RemoteError is the error envelope returned by the inventory platform client.
// Logical failures carry the platform's own code and message; transport failures
// carry RemoteCodeClientError.
type RemoteError struct {
	// Code is the platform response code, or RemoteCodeClientError
	Code string `json:"code"`
	// Message is the platform message or the transport failure description
	Message string `json:"message"`
	// Data is always nil for client errors
	Data any `json:"data"`

	err error
}

// NewRemoteError creates an error for a non-success platform response
func NewRemoteError(code, message string) *RemoteError {
	return &RemoteError{
		Code:    code,
		Message: message,
		err:     ErrPlatformRequestFailed,
	}
}

// NewClientError creates an error for a call that failed before a valid response was read
func NewClientError(cause error) *RemoteError {
	return &RemoteError{
		Code:    RemoteCodeClientError,
		Message: cause.Error(),
		err:     fmt.Errorf("%w: %w", ErrPlatformUnavailable, cause),
	}
}

// Error implements the error interface
func (e *RemoteError) Error() string {
	return fmt.Sprintf("integration: remote %s - %s", e.Code, e.Message)
}

// Unwrap exposes the sentinel classification of the failure
func (e *RemoteError) Unwrap() error {
	return e.err
}

// IsClientError returns true if the call failed in transport rather than on the platform
func (e *RemoteError) IsClientError() bool {
	return e.Code == RemoteCodeClientError
}

// IndicatesNotExist returns true if the platform reported the SKU as absent
func (e *RemoteError) IndicatesNotExist() bool {
	if e.IsClientError() {
		return false
	}
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "not exist") || strings.Contains(msg, "not found")
}

// ---------------------------------------------------------------------------
// Remote Records
// ---------------------------------------------------------------------------

// WarehouseInventoryItem is one row of the platform's warehouse inventory listing
type WarehouseInventoryItem struct {
	// SKU is the master variation SKU as reported by the platform
	SKU string
	// ProductName is the master variation name
	ProductName string
	// WarehouseStock is the physical stock in the warehouse
	WarehouseStock int
	// AvailableStock is the sellable stock
	AvailableStock int
	// LockedStock is the stock reserved by the platform
	LockedStock int
	// UpdatedAt is the platform's last update time for this record, if reported
	UpdatedAt *time.Time
	// Malformed is set when any stock figure could not be parsed as a number
	Malformed bool
}

// WarehouseInventoryPage is one page of warehouse inventory records
type WarehouseInventoryPage struct {
	Page  int
	Size  int
	Total int
	// Fetched is the number of records the platform returned, including records
	// dropped from Items for lacking a SKU. Zero means len(Items).
	Fetched int
	Items   []WarehouseInventoryItem
}

// IsLast reports whether no further pages can contain records
func (p *WarehouseInventoryPage) IsLast() bool {
	return isLastPage(p.Page, p.Size, p.Total, fetchedCount(p.Fetched, len(p.Items)))
}

// MasterProduct is one platform-known product with a flat stock figure
type MasterProduct struct {
	SKU           string
	ProductName   string
	StockQuantity int
	Malformed     bool
}

// MasterProductPage is one page of master products
type MasterProductPage struct {
	Page  int
	Size  int
	Total int
	// Fetched is the number of records the platform returned. Zero means len(Items).
	Fetched int
	Items   []MasterProduct
}

// IsLast reports whether no further pages can contain records
func (p *MasterProductPage) IsLast() bool {
	return isLastPage(p.Page, p.Size, p.Total, fetchedCount(p.Fetched, len(p.Items)))
}

func fetchedCount(fetched, items int) int {
	if fetched > 0 {
		return fetched
	}
	return items
}

// isLastPage decides the end of a listing from the raw record count of one page.
// With a known total, a short page that does not cover the total is taken as the
// platform's effective page size, so a platform capping the requested size keeps
// paging. Without a total only a short or empty page ends the listing.
func isLastPage(page, size, total, fetched int) bool {
	if fetched == 0 {
		return true
	}
	if total > 0 {
		if page*size+fetched >= total {
			return true
		}
		return (page+1)*min(fetched, size) >= total
	}
	return fetched < size
}

// MasterProductFilter narrows a master product listing. Empty fields are not sent.
type MasterProductFilter struct {
	// Keyword matches product names or SKUs on the platform side
	Keyword string
	// Status restricts the listing to one platform product status
	Status string
}

// StockUpdateItem is one SKU quantity to push to a warehouse
type StockUpdateItem struct {
	SKU      string
	Quantity int
}

// StockEcho is the stock record the platform echoes back for an updated SKU
type StockEcho struct {
	SKU            string
	ProductName    string
	WarehouseStock int
	AvailableStock int
	LockedStock    int
	Malformed      bool
}

// StockUpdateResult holds the records echoed by a stock update
type StockUpdateResult struct {
	Items []StockEcho
}

// Find returns the echoed record for a SKU, matched case-insensitively
func (r *StockUpdateResult) Find(sku string) (StockEcho, bool) {
	want := catalog.NormalizeSKU(sku)
	for _, item := range r.Items {
		if catalog.NormalizeSKU(item.SKU) == want {
			return item, true
		}
	}
	return StockEcho{}, false
}

// ---------------------------------------------------------------------------
// InventoryPlatform Port
// ---------------------------------------------------------------------------

// InventoryPlatform is the port for the external warehouse/inventory platform.
// Implementations never retry; non-success responses are returned as *RemoteError.
type InventoryPlatform interface {
	// ListMasterProducts returns one page of platform master products
	ListMasterProducts(ctx context.Context, page, size int, filter MasterProductFilter) (*MasterProductPage, error)

	// ListWarehouseInventory returns one page of warehouse inventory records
	ListWarehouseInventory(ctx context.Context, page, size int) (*WarehouseInventoryPage, error)

	// UpdateStock pushes stock quantities for a warehouse and returns the echoed records
	UpdateStock(ctx context.Context, warehouseID string, items []StockUpdateItem) (*StockUpdateResult, error)
}
