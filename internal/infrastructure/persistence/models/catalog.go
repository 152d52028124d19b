package models

import (
	"time"

	"github.com/sneakerflash/backend/internal/domain/catalog"
)

// ProductModel is the persistence model for the stock-bearing columns of a catalog product
type ProductModel struct {
	BaseModel
	SKU            string     `gorm:"type:varchar(100);not null;uniqueIndex:idx_products_sku"`
	Name           string     `gorm:"type:varchar(200);not null"`
	StockQuantity  int        `gorm:"not null;default:0"`
	WarehouseStock int        `gorm:"not null;default:0"`
	LastSyncAt     *time.Time `gorm:"index"`
	LastPushAt     *time.Time
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain ProductRecord
func (m *ProductModel) ToDomain() *catalog.ProductRecord {
	return &catalog.ProductRecord{
		ID:             m.ID,
		SKU:            m.SKU,
		Name:           m.Name,
		StockQuantity:  m.StockQuantity,
		WarehouseStock: m.WarehouseStock,
		LastSyncAt:     m.LastSyncAt,
		LastPushAt:     m.LastPushAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain ProductRecord
func (m *ProductModel) FromDomain(p *catalog.ProductRecord) {
	m.ID = p.ID
	m.SKU = p.SKU
	m.Name = p.Name
	m.StockQuantity = p.StockQuantity
	m.WarehouseStock = p.WarehouseStock
	m.LastSyncAt = p.LastSyncAt
	m.LastPushAt = p.LastPushAt
	m.UpdatedAt = p.UpdatedAt
}

// ProductModelFromDomain creates a new persistence model from a domain ProductRecord
func ProductModelFromDomain(p *catalog.ProductRecord) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}
