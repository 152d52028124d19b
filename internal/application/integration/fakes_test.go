package integration

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/sneakerflash/backend/internal/domain/catalog"
	"github.com/sneakerflash/backend/internal/domain/integration"
	applog "github.com/sneakerflash/backend/internal/infrastructure/logger"
	"github.com/stretchr/testify/mock"
)

// ---------------------------------------------------------------------------
// fakePlatform
// ---------------------------------------------------------------------------

// fakePlatform serves warehouse inventory and master products from flat slices
// and slices them by page and size like the platform does.
type fakePlatform struct {
	mu sync.Mutex

	inventory []integration.WarehouseInventoryItem
	masters   []integration.MasterProduct

	// inventoryErr fails a warehouse inventory call; call counts from 1 per page
	inventoryErr func(page, call int) error
	masterErr    func(page int) error
	updateFn     func(warehouseID string, items []integration.StockUpdateItem) (*integration.StockUpdateResult, error)

	inventoryCalls map[int]int
	inventorySizes []int
	masterCalls    int
	updates        [][]integration.StockUpdateItem
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{inventoryCalls: make(map[int]int)}
}

func (f *fakePlatform) ListWarehouseInventory(ctx context.Context, page, size int) (*integration.WarehouseInventoryPage, error) {
	f.mu.Lock()
	f.inventoryCalls[page]++
	f.inventorySizes = append(f.inventorySizes, size)
	call := f.inventoryCalls[page]
	errFn := f.inventoryErr
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, integration.NewClientError(err)
	}
	if errFn != nil {
		if err := errFn(page, call); err != nil {
			return nil, err
		}
	}
	// records without a SKU are dropped like the client drops them
	raw := pageOf(f.inventory, page, size)
	items := make([]integration.WarehouseInventoryItem, 0, len(raw))
	for _, it := range raw {
		if it.SKU != "" {
			items = append(items, it)
		}
	}
	return &integration.WarehouseInventoryPage{
		Page:    page,
		Size:    size,
		Total:   len(f.inventory),
		Fetched: len(raw),
		Items:   items,
	}, nil
}

func (f *fakePlatform) ListMasterProducts(ctx context.Context, page, size int, filter integration.MasterProductFilter) (*integration.MasterProductPage, error) {
	f.mu.Lock()
	f.masterCalls++
	errFn := f.masterErr
	f.mu.Unlock()

	if errFn != nil {
		if err := errFn(page); err != nil {
			return nil, err
		}
	}
	return &integration.MasterProductPage{
		Page:  page,
		Size:  size,
		Total: len(f.masters),
		Items: pageOf(f.masters, page, size),
	}, nil
}

func (f *fakePlatform) UpdateStock(ctx context.Context, warehouseID string, items []integration.StockUpdateItem) (*integration.StockUpdateResult, error) {
	f.mu.Lock()
	f.updates = append(f.updates, slices.Clone(items))
	fn := f.updateFn
	f.mu.Unlock()

	if fn != nil {
		return fn(warehouseID, items)
	}
	return &integration.StockUpdateResult{}, nil
}

func (f *fakePlatform) totalInventoryCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.inventoryCalls {
		n += c
	}
	return n
}

func (f *fakePlatform) masterCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.masterCalls
}

func (f *fakePlatform) updateCalls() [][]integration.StockUpdateItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.updates)
}

func pageOf[T any](all []T, page, size int) []T {
	start := page * size
	if start >= len(all) {
		return nil
	}
	end := min(start+size, len(all))
	return all[start:end]
}

func inventoryItem(sku string, warehouse, available int) integration.WarehouseInventoryItem {
	return integration.WarehouseInventoryItem{
		SKU:            sku,
		ProductName:    "Product " + sku,
		WarehouseStock: warehouse,
		AvailableStock: available,
	}
}

// ---------------------------------------------------------------------------
// memProductRepository
// ---------------------------------------------------------------------------

type memProductRepository struct {
	mu       sync.Mutex
	products map[string]catalog.ProductRecord
	saveErr  map[string]error
	saves    int

	// saveContexts holds the session and SKU found on each SaveStock context
	saveContexts [][2]string
}

func newMemProductRepository(records ...catalog.ProductRecord) *memProductRepository {
	r := &memProductRepository{
		products: make(map[string]catalog.ProductRecord),
		saveErr:  make(map[string]error),
	}
	for _, p := range records {
		r.products[catalog.NormalizeSKU(p.SKU)] = p
	}
	return r
}

func (r *memProductRepository) FindBySKU(ctx context.Context, sku string) (*catalog.ProductRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[catalog.NormalizeSKU(sku)]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return &p, nil
}

func (r *memProductRepository) SaveStock(ctx context.Context, product *catalog.ProductRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sku := catalog.NormalizeSKU(product.SKU)
	if err := r.saveErr[sku]; err != nil {
		return err
	}
	r.saves++
	r.saveContexts = append(r.saveContexts, [2]string{applog.GetSessionID(ctx), applog.GetSKU(ctx)})
	r.products[sku] = *product
	return nil
}

func (r *memProductRepository) ListSKUs(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	skus := make([]string, 0, len(r.products))
	for sku := range r.products {
		skus = append(skus, sku)
	}
	slices.Sort(skus)
	return skus, nil
}

func (r *memProductRepository) get(sku string) catalog.ProductRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.products[sku]
}

func (r *memProductRepository) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

// ---------------------------------------------------------------------------
// memLedger
// ---------------------------------------------------------------------------

type memLedger struct {
	mu         sync.Mutex
	entries    []integration.SyncLedgerEntry
	appendErr  error
	lastFilter integration.LedgerFilter
	counts     map[integration.LedgerStatus]int64
}

func newMemLedger() *memLedger {
	return &memLedger{}
}

func (l *memLedger) Append(ctx context.Context, entries ...*integration.SyncLedgerEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.appendErr != nil {
		return l.appendErr
	}
	for _, e := range entries {
		l.entries = append(l.entries, *e)
	}
	return nil
}

func (l *memLedger) List(ctx context.Context, filter integration.LedgerFilter) ([]integration.SyncLedgerEntry, int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastFilter = filter

	var out []integration.SyncLedgerEntry
	for _, e := range l.entries {
		if filter.SessionID != "" && e.SessionID != filter.SessionID {
			continue
		}
		if filter.SKU != "" && e.SKU != filter.SKU {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		out = append(out, e)
	}
	return out, int64(len(out)), nil
}

func (l *memLedger) CountByStatus(ctx context.Context, sessionID string) (map[integration.LedgerStatus]int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.counts != nil {
		return l.counts, nil
	}
	counts := make(map[integration.LedgerStatus]int64)
	for _, e := range l.entries {
		if e.SessionID == sessionID {
			counts[e.Status]++
		}
	}
	return counts, nil
}

func (l *memLedger) all() []integration.SyncLedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.entries)
}

// forSKU returns the non-summary entries of one SKU
func (l *memLedger) forSKU(sku string) []integration.SyncLedgerEntry {
	var out []integration.SyncLedgerEntry
	for _, e := range l.all() {
		if e.SKU == sku && !e.IsSummary() {
			out = append(out, e)
		}
	}
	return out
}

func (l *memLedger) summaries() []integration.SyncLedgerEntry {
	var out []integration.SyncLedgerEntry
	for _, e := range l.all() {
		if e.IsSummary() {
			out = append(out, e)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// MockBatchLock
// ---------------------------------------------------------------------------

// MockBatchLock is a mock implementation of shared.BatchLock
type MockBatchLock struct {
	mock.Mock
}

func (m *MockBatchLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockBatchLock) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockBatchLock) Close() error {
	args := m.Called()
	return args.Error(0)
}
