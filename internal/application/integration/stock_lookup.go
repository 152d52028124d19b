package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sneakerflash/backend/internal/domain/catalog"
	"github.com/sneakerflash/backend/internal/domain/integration"
	"github.com/sneakerflash/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DefaultStrategyOrder is the order per-SKU lookups try the platform in.
// It reflects which endpoints have proven most reliable and may be reordered.
var DefaultStrategyOrder = []integration.StrategyMethod{
	integration.MethodWarehouseInventorySearch,
	integration.MethodMasterProducts,
	integration.MethodUpdateTrick,
}

// StockLookupConfig holds the paging bounds of the per-SKU strategies
type StockLookupConfig struct {
	// WarehouseID is the warehouse the update trick is issued against
	WarehouseID string
	// PageSize is the page size used by the search strategies
	PageSize int
	// MaxWarehousePages bounds the warehouse inventory search
	MaxWarehousePages int
	// MaxMasterPages bounds the master products search
	MaxMasterPages int
	// Order is the strategy order; DefaultStrategyOrder when empty
	Order []integration.StrategyMethod
}

// DefaultStockLookupConfig returns the default lookup configuration
func DefaultStockLookupConfig() StockLookupConfig {
	return StockLookupConfig{
		PageSize:          100,
		MaxWarehousePages: 50,
		MaxMasterPages:    20,
		Order:             DefaultStrategyOrder,
	}
}

func (c *StockLookupConfig) applyDefaults() {
	d := DefaultStockLookupConfig()
	if c.PageSize <= 0 {
		c.PageSize = d.PageSize
	}
	if c.MaxWarehousePages <= 0 {
		c.MaxWarehousePages = d.MaxWarehousePages
	}
	if c.MaxMasterPages <= 0 {
		c.MaxMasterPages = d.MaxMasterPages
	}
	if len(c.Order) == 0 {
		c.Order = d.Order
	}
}

// LookupOption adjusts a single Lookup call
type LookupOption func(*lookupOptions)

type lookupOptions struct {
	skip map[integration.StrategyMethod]bool
}

// SkipStrategy excludes a strategy from one lookup
func SkipStrategy(method integration.StrategyMethod) LookupOption {
	return func(o *lookupOptions) {
		o.skip[method] = true
	}
}

// StockLookup resolves the platform stock of one SKU by trying strategies in order.
// The first strategy that finds the SKU wins; nothing is merged across strategies.
type StockLookup struct {
	platform integration.InventoryPlatform
	config   StockLookupConfig
	metrics  *telemetry.ReconcileMetrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewStockLookup creates a new StockLookup
func NewStockLookup(platform integration.InventoryPlatform, config StockLookupConfig, logger *zap.Logger) *StockLookup {
	config.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockLookup{
		platform: platform,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// SetMetrics sets the metrics recorder for platform calls
func (l *StockLookup) SetMetrics(m *telemetry.ReconcileMetrics) {
	l.metrics = m
}

// Lookup runs the strategy chain for one SKU.
// The result is Found, NotFound when absence was confirmed or no strategy
// found the SKU, or Inconclusive when a strategy failed and none confirmed absence.
func (l *StockLookup) Lookup(ctx context.Context, sku string, opts ...LookupOption) integration.LookupOutcome {
	o := lookupOptions{skip: make(map[integration.StrategyMethod]bool)}
	for _, opt := range opts {
		opt(&o)
	}

	sku = catalog.NormalizeSKU(sku)
	ctx, span := telemetry.StartServiceSpan(ctx, "stock_lookup", "chain",
		telemetry.WithAttribute(telemetry.SpanAttrSKU, sku),
	)
	defer span.End()

	var reasons []string
	for _, method := range l.config.Order {
		if o.skip[method] {
			continue
		}
		if err := ctx.Err(); err != nil {
			reasons = append(reasons, err.Error())
			break
		}

		outcome := l.run(ctx, method, sku)
		switch outcome.Kind {
		case integration.LookupFound:
			telemetry.SetAttribute(span, telemetry.SpanAttrOutcome, "found")
			telemetry.SetAttribute(span, telemetry.SpanAttrMethod, method.String())
			return outcome
		case integration.LookupNotFound:
			if outcome.Confirmed {
				telemetry.SetAttribute(span, telemetry.SpanAttrOutcome, "confirmed_not_found")
				return integration.ConfirmedNotFound(integration.MethodNotFound)
			}
		case integration.LookupInconclusive:
			reasons = append(reasons, fmt.Sprintf("%s: %s", method, outcome.Reason))
		}
	}

	if len(reasons) > 0 {
		telemetry.SetAttribute(span, telemetry.SpanAttrOutcome, "inconclusive")
		return integration.Inconclusive(integration.MethodNotFound, strings.Join(reasons, "; "))
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrOutcome, "not_found")
	return integration.NotFound(integration.MethodNotFound)
}

// run executes one strategy. Errors and panics become Inconclusive.
func (l *StockLookup) run(ctx context.Context, method integration.StrategyMethod, sku string) (outcome integration.LookupOutcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Stock lookup strategy panicked",
				zap.String("sku", sku),
				zap.String("method", method.String()),
				zap.Any("panic", r),
			)
			outcome = integration.Inconclusive(method, fmt.Sprintf("strategy panicked: %v", r))
		}
	}()

	var err error
	switch method {
	case integration.MethodWarehouseInventorySearch:
		outcome, err = l.searchWarehouseInventory(ctx, sku)
	case integration.MethodMasterProducts:
		outcome, err = l.searchMasterProducts(ctx, sku)
	case integration.MethodUpdateTrick:
		outcome, err = l.readViaUpdate(ctx, sku)
	default:
		return integration.Inconclusive(method, "unsupported lookup strategy")
	}
	l.metrics.RecordRemoteCall(ctx, method.String(), time.Since(start), err)

	if err != nil {
		l.logger.Warn("Stock lookup strategy failed",
			zap.String("sku", sku),
			zap.String("method", method.String()),
			zap.Error(err),
		)
		return integration.Inconclusive(method, err.Error())
	}
	return outcome
}

func (l *StockLookup) searchWarehouseInventory(ctx context.Context, sku string) (integration.LookupOutcome, error) {
	for page := 0; page < l.config.MaxWarehousePages; page++ {
		if err := ctx.Err(); err != nil {
			return integration.LookupOutcome{}, err
		}
		result, err := l.platform.ListWarehouseInventory(ctx, page, l.config.PageSize)
		if err != nil {
			return integration.LookupOutcome{}, fmt.Errorf("warehouse inventory page %d: %w", page, err)
		}
		for _, item := range result.Items {
			if catalog.NormalizeSKU(item.SKU) == sku {
				snapshot := integration.SnapshotFromWarehouseItem(item, integration.MethodWarehouseInventorySearch, l.now())
				return integration.Found(snapshot), nil
			}
		}
		if result.IsLast() {
			break
		}
	}
	return integration.NotFound(integration.MethodWarehouseInventorySearch), nil
}

func (l *StockLookup) searchMasterProducts(ctx context.Context, sku string) (integration.LookupOutcome, error) {
	for page := 0; page < l.config.MaxMasterPages; page++ {
		if err := ctx.Err(); err != nil {
			return integration.LookupOutcome{}, err
		}
		result, err := l.platform.ListMasterProducts(ctx, page, l.config.PageSize, integration.MasterProductFilter{})
		if err != nil {
			return integration.LookupOutcome{}, fmt.Errorf("master products page %d: %w", page, err)
		}
		for _, p := range result.Items {
			if catalog.NormalizeSKU(p.SKU) == sku {
				return integration.Found(integration.SnapshotFromMasterProduct(p, l.now())), nil
			}
		}
		if result.IsLast() {
			break
		}
	}
	return integration.NotFound(integration.MethodMasterProducts), nil
}

// readViaUpdate issues a zero-quantity update and reads the echoed stock record
func (l *StockLookup) readViaUpdate(ctx context.Context, sku string) (integration.LookupOutcome, error) {
	if l.config.WarehouseID == "" {
		return integration.LookupOutcome{}, integration.ErrWarehouseRequired
	}

	result, err := l.platform.UpdateStock(ctx, l.config.WarehouseID, []integration.StockUpdateItem{
		{SKU: sku, Quantity: 0},
	})
	if err != nil {
		var remoteErr *integration.RemoteError
		if errors.As(err, &remoteErr) && remoteErr.IndicatesNotExist() {
			l.logger.Debug("Platform reports SKU does not exist",
				zap.String("sku", sku),
				zap.String("code", remoteErr.Code),
			)
			return integration.ConfirmedNotFound(integration.MethodUpdateTrick), nil
		}
		return integration.LookupOutcome{}, err
	}

	echo, ok := result.Find(sku)
	if !ok {
		return integration.NotFound(integration.MethodUpdateTrick), nil
	}
	return integration.Found(integration.SnapshotFromStockEcho(echo, l.now())), nil
}
