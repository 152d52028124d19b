package catalog

import (
	"context"
)

// ProductRepository is the catalog store as seen by inventory reconciliation
type ProductRepository interface {
	// FindBySKU finds a product by its normalized SKU.
	// Returns ErrProductNotFound when no product matches.
	FindBySKU(ctx context.Context, sku string) (*ProductRecord, error)

	// SaveStock persists the stock columns and sync timestamps of a product
	SaveStock(ctx context.Context, product *ProductRecord) error

	// ListSKUs returns the normalized SKUs of every product with a SKU
	ListSKUs(ctx context.Context) ([]string, error)
}
