package ecommerce

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Ginee API paths
const (
	gineeMasterProductListPath      = "/openapi/product/master/v1/list"
	gineeWarehouseInventoryListPath = "/openapi/warehouse-inventory/v1/sku/list"
	gineeStockUpdatePath            = "/openapi/warehouse-inventory/v1/product/stock/update"
)

// ---------------------------------------------------------------------------
// Common Ginee API Response Types
// ---------------------------------------------------------------------------

// GineeResponse is the base response wrapper for all Ginee API calls
type GineeResponse struct {
	// Code is "SUCCESS" on success, otherwise an error code
	Code string `json:"code"`
	// Message is the error or status message
	Message string `json:"message"`
	// TransactionID is the request trace ID for debugging
	TransactionID string `json:"transactionId,omitempty"`
}

// IsSuccess returns true if the response indicates success
func (r *GineeResponse) IsSuccess() bool {
	return r.Code == "SUCCESS"
}

func (r *GineeResponse) envelope() *GineeResponse {
	return r
}

// gineeEnvelope is implemented by every response type through the embedded GineeResponse
type gineeEnvelope interface {
	envelope() *GineeResponse
}

// GineeQuantity is a stock figure as sent by Ginee.
// The API sends numbers, numeric strings, or null; null decodes to zero and
// anything non-numeric decodes to zero with Malformed set.
type GineeQuantity struct {
	Value     int
	Malformed bool
}

// UnmarshalJSON implements json.Unmarshaler
func (q *GineeQuantity) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*q = GineeQuantity{}
		return nil
	}
	raw = strings.TrimSpace(strings.Trim(raw, `"`))
	if raw == "" {
		*q = GineeQuantity{}
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		*q = GineeQuantity{Malformed: true}
		return nil
	}
	*q = GineeQuantity{Value: int(d.IntPart())}
	return nil
}

// MarshalJSON implements json.Marshaler
func (q GineeQuantity) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(q.Value)), nil
}

// Qty is a convenience constructor for GineeQuantity
func Qty(v int) GineeQuantity {
	return GineeQuantity{Value: v}
}

// ---------------------------------------------------------------------------
// Warehouse Inventory Types
// ---------------------------------------------------------------------------

// GineeWarehouseInventoryRequest is the request body for the warehouse inventory listing.
// The endpoint rejects any field besides page and size.
type GineeWarehouseInventoryRequest struct {
	Page int `json:"page"`
	Size int `json:"size"`
}

// GineeWarehouseInventoryResponse is the response for the warehouse inventory listing
type GineeWarehouseInventoryResponse struct {
	GineeResponse
	Data *GineeWarehouseInventoryData `json:"data,omitempty"`
}

// GineeWarehouseInventoryData contains one page of inventory records
type GineeWarehouseInventoryData struct {
	Page    int                             `json:"page"`
	Size    int                             `json:"size"`
	Total   int                             `json:"total"`
	Content []GineeWarehouseInventoryRecord `json:"content,omitempty"`
}

// GineeWarehouseInventoryRecord is one SKU in one warehouse
type GineeWarehouseInventoryRecord struct {
	MasterVariation    *GineeMasterVariation    `json:"masterVariation,omitempty"`
	WarehouseInventory *GineeWarehouseInventory `json:"warehouseInventory,omitempty"`
}

// GineeMasterVariation identifies the product variation of an inventory record
type GineeMasterVariation struct {
	MasterSku string `json:"masterSku"`
	Name      string `json:"name,omitempty"`
}

// GineeWarehouseInventory holds the stock breakdown of an inventory record
type GineeWarehouseInventory struct {
	WarehouseStock GineeQuantity `json:"warehouseStock"`
	AvailableStock GineeQuantity `json:"availableStock"`
	LockedStock    GineeQuantity `json:"lockedStock"`
	UpdateDatetime string        `json:"updateDatetime,omitempty"`
}

// UpdatedAt parses UpdateDatetime, returning nil when absent or unparseable
func (w *GineeWarehouseInventory) UpdatedAt() *time.Time {
	if w.UpdateDatetime == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05Z0700", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, w.UpdateDatetime); err == nil {
			return &t
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Master Product Types
// ---------------------------------------------------------------------------

// GineeMasterProductRequest is the request body for the master product listing
type GineeMasterProductRequest struct {
	Page    int    `json:"page"`
	Size    int    `json:"size"`
	Keyword string `json:"keyword,omitempty"`
	Status  string `json:"status,omitempty"`
}

// GineeMasterProductResponse is the response for the master product listing
type GineeMasterProductResponse struct {
	GineeResponse
	Data *GineeMasterProductData `json:"data,omitempty"`
}

// GineeMasterProductData contains one page of master products
type GineeMasterProductData struct {
	Page    int                  `json:"page"`
	Size    int                  `json:"size"`
	Total   int                  `json:"total"`
	Content []GineeMasterProduct `json:"content,omitempty"`
}

// GineeMasterProduct is a platform master product with a flat stock figure
type GineeMasterProduct struct {
	ProductID     string        `json:"productId,omitempty"`
	Name          string        `json:"name,omitempty"`
	MasterSku     string        `json:"masterSku"`
	StockQuantity GineeQuantity `json:"stockQuantity"`
}

// ---------------------------------------------------------------------------
// Stock Update Types
// ---------------------------------------------------------------------------

// GineeStockUpdateRequest is the request body for a stock update
type GineeStockUpdateRequest struct {
	WarehouseID string                 `json:"warehouseId"`
	StockList   []GineeStockUpdateItem `json:"stockList"`
}

// GineeStockUpdateItem is one SKU quantity in a stock update
type GineeStockUpdateItem struct {
	MasterSku string `json:"masterSku"`
	Quantity  int    `json:"quantity"`
}

// GineeStockUpdateResponse is the response for a stock update
type GineeStockUpdateResponse struct {
	GineeResponse
	Data *GineeStockUpdateData `json:"data,omitempty"`
}

// GineeStockUpdateData contains the echoed stock records
type GineeStockUpdateData struct {
	StockList []GineeStockEcho `json:"stockList,omitempty"`
}

// GineeStockEcho is the stock of one SKU after an update
type GineeStockEcho struct {
	MasterSku         string        `json:"masterSku"`
	MasterProductName string        `json:"masterProductName,omitempty"`
	WarehouseStock    GineeQuantity `json:"warehouseStock"`
	AvailableStock    GineeQuantity `json:"availableStock"`
	LockedStock       GineeQuantity `json:"lockedStock"`
}
