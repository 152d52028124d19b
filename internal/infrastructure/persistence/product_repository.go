package persistence

import (
	"context"
	"errors"
	"slices"

	"github.com/sneakerflash/backend/internal/domain/catalog"
	"github.com/sneakerflash/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormProductRepository implements catalog.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindBySKU finds a product whose SKU matches sku ignoring case and surrounding whitespace
func (r *GormProductRepository) FindBySKU(ctx context.Context, sku string) (*catalog.ProductRecord, error) {
	normalized := catalog.NormalizeSKU(sku)
	if normalized == "" {
		return nil, catalog.ErrProductNotFound
	}

	var model models.ProductModel
	if err := r.db.WithContext(ctx).
		Where("UPPER(TRIM(sku)) = ?", normalized).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// SaveStock writes the stock columns and sync timestamps of product.
// Other product columns are left untouched.
func (r *GormProductRepository) SaveStock(ctx context.Context, product *catalog.ProductRecord) error {
	result := r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Where("id = ?", product.ID).
		Updates(map[string]any{
			"stock_quantity":  product.StockQuantity,
			"warehouse_stock": product.WarehouseStock,
			"last_sync_at":    product.LastSyncAt,
			"last_push_at":    product.LastPushAt,
			"updated_at":      product.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return catalog.ErrProductNotFound
	}
	return nil
}

// ListSKUs returns the distinct normalized SKUs of all products, sorted
func (r *GormProductRepository) ListSKUs(ctx context.Context) ([]string, error) {
	var raw []string
	if err := r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Where("sku <> ''").
		Order("sku ASC").
		Pluck("sku", &raw).Error; err != nil {
		return nil, err
	}

	skus := make([]string, 0, len(raw))
	for _, sku := range raw {
		if normalized := catalog.NormalizeSKU(sku); normalized != "" {
			skus = append(skus, normalized)
		}
	}
	slices.Sort(skus)
	return slices.Compact(skus), nil
}

// Ensure GormProductRepository implements catalog.ProductRepository
var _ catalog.ProductRepository = (*GormProductRepository)(nil)
