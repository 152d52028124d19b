package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/sneakerflash/backend/internal/domain/integration"
)

// SyncLedgerModel is the persistence model for an append-only sync ledger entry.
// Summary rows carry an empty SKU.
type SyncLedgerModel struct {
	ID            uuid.UUID                  `gorm:"type:uuid;primary_key"`
	SessionID     string                     `gorm:"type:varchar(64);not null;index:idx_sync_ledger_session"`
	SKU           string                     `gorm:"type:varchar(100);not null;index:idx_sync_ledger_sku"`
	ProductName   string                     `gorm:"type:varchar(200)"`
	OperationType integration.OperationType  `gorm:"type:varchar(10);not null"`
	MethodUsed    integration.StrategyMethod `gorm:"type:varchar(40);not null"`
	Status        integration.LedgerStatus   `gorm:"type:varchar(10);not null;index:idx_sync_ledger_status"`
	OldStock      int                        `gorm:"not null"`
	NewStock      int                        `gorm:"not null"`
	Change        int                        `gorm:"column:stock_change;not null"`
	Message       string                     `gorm:"type:text"`
	DryRun        bool                       `gorm:"not null"`
	CreatedAt     time.Time                  `gorm:"not null;index:idx_sync_ledger_created_at"`
}

// TableName returns the table name for GORM
func (SyncLedgerModel) TableName() string {
	return "sync_ledger_entries"
}

// ToDomain converts the persistence model to a domain SyncLedgerEntry
func (m *SyncLedgerModel) ToDomain() integration.SyncLedgerEntry {
	return integration.SyncLedgerEntry{
		ID:            m.ID,
		SessionID:     m.SessionID,
		SKU:           m.SKU,
		ProductName:   m.ProductName,
		OperationType: m.OperationType,
		MethodUsed:    m.MethodUsed,
		Status:        m.Status,
		OldStock:      m.OldStock,
		NewStock:      m.NewStock,
		Change:        m.Change,
		Message:       m.Message,
		DryRun:        m.DryRun,
		CreatedAt:     m.CreatedAt,
	}
}

// SyncLedgerModelFromDomain creates a new persistence model from a domain SyncLedgerEntry
func SyncLedgerModelFromDomain(e *integration.SyncLedgerEntry) *SyncLedgerModel {
	return &SyncLedgerModel{
		ID:            e.ID,
		SessionID:     e.SessionID,
		SKU:           e.SKU,
		ProductName:   e.ProductName,
		OperationType: e.OperationType,
		MethodUsed:    e.MethodUsed,
		Status:        e.Status,
		OldStock:      e.OldStock,
		NewStock:      e.NewStock,
		Change:        e.Change,
		Message:       e.Message,
		DryRun:        e.DryRun,
		CreatedAt:     e.CreatedAt,
	}
}
