package persistence

import (
	"context"

	"github.com/sneakerflash/backend/internal/domain/integration"
	"github.com/sneakerflash/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

const defaultLedgerInsertBatchSize = 100

// GormSyncLedgerRepository implements integration.SyncLedgerRepository using GORM.
// Rows are only ever inserted.
type GormSyncLedgerRepository struct {
	db        *gorm.DB
	batchSize int
}

// NewGormSyncLedgerRepository creates a new GormSyncLedgerRepository
func NewGormSyncLedgerRepository(db *gorm.DB) *GormSyncLedgerRepository {
	return &GormSyncLedgerRepository{db: db, batchSize: defaultLedgerInsertBatchSize}
}

// WithBatchSize sets how many rows a single INSERT carries
func (r *GormSyncLedgerRepository) WithBatchSize(size int) *GormSyncLedgerRepository {
	if size > 0 {
		r.batchSize = size
	}
	return r
}

// Append inserts entries in multi-row batches
func (r *GormSyncLedgerRepository) Append(ctx context.Context, entries ...*integration.SyncLedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}

	rows := make([]*models.SyncLedgerModel, len(entries))
	for i, e := range entries {
		rows[i] = models.SyncLedgerModelFromDomain(e)
	}
	return r.db.WithContext(ctx).CreateInBatches(rows, r.batchSize).Error
}

// List returns entries matching filter, newest first, and the total number of matches
func (r *GormSyncLedgerRepository) List(ctx context.Context, filter integration.LedgerFilter) ([]integration.SyncLedgerEntry, int64, error) {
	var total int64
	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.filtered(ctx, filter)
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.SyncLedgerModel
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	entries := make([]integration.SyncLedgerEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain()
	}
	return entries, total, nil
}

// CountByStatus returns per-status entry counts for one session
func (r *GormSyncLedgerRepository) CountByStatus(ctx context.Context, sessionID string) (map[integration.LedgerStatus]int64, error) {
	type statusCount struct {
		Status integration.LedgerStatus
		Count  int64
	}

	var rows []statusCount
	if err := r.db.WithContext(ctx).
		Model(&models.SyncLedgerModel{}).
		Select("status, COUNT(*) AS count").
		Where("session_id = ?", sessionID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[integration.LedgerStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *GormSyncLedgerRepository) filtered(ctx context.Context, filter integration.LedgerFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.SyncLedgerModel{})
	if filter.SessionID != "" {
		query = query.Where("session_id = ?", filter.SessionID)
	}
	if filter.SKU != "" {
		query = query.Where("sku = ?", filter.SKU)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.OperationType != "" {
		query = query.Where("operation_type = ?", filter.OperationType)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}
	return query
}

// Ensure GormSyncLedgerRepository implements integration.SyncLedgerRepository
var _ integration.SyncLedgerRepository = (*GormSyncLedgerRepository)(nil)
