package integration

import (
	"context"
	"errors"
	"fmt"

	"github.com/sneakerflash/backend/internal/domain/catalog"
	"github.com/sneakerflash/backend/internal/domain/integration"
	applog "github.com/sneakerflash/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

const msgProductNotFoundLocally = "product not found locally"

// applySnapshot writes one remote snapshot into the local catalog and records the outcome.
// Dry runs never reach the repository's write path.
func (s *ReconcileService) applySnapshot(ctx context.Context, run *batchRun, snapshot integration.StockSnapshot) {
	sku := catalog.NormalizeSKU(snapshot.SKU)
	method := snapshot.SourceMethod
	ctx, logger := applog.WithSKU(ctx, run.logger, sku)
	logger = logger.With(zap.String("method", method.String()))

	product, err := s.products.FindBySKU(ctx, sku)
	if err != nil {
		msg := msgProductNotFoundLocally
		if !errors.Is(err, catalog.ErrProductNotFound) {
			msg = fmt.Sprintf("failed to load local product: %v", err)
		}
		logger.Warn("Remote stock not applied", zap.String("reason", msg))
		run.record(ctx, sku, snapshot.ProductName, SKUOutcome{
			Status:   integration.LedgerStatusFailed,
			Method:   method,
			NewStock: snapshot.ClampedTotal(),
			Message:  msg,
		})
		return
	}

	if snapshot.NeedsClamp() {
		logger.Warn("Remote stock is negative or malformed, clamping to zero",
			zap.Int("remote_total", snapshot.TotalStock),
			zap.Bool("malformed", snapshot.Malformed),
		)
	}

	name := product.Name
	if name == "" {
		name = snapshot.ProductName
	}
	oldStock := product.StockQuantity
	newStock := snapshot.ClampedTotal()

	if run.dryRun {
		run.record(ctx, sku, name, SKUOutcome{
			Status:   integration.LedgerStatusSkipped,
			Method:   method,
			OldStock: oldStock,
			NewStock: newStock,
			Message:  fmt.Sprintf("dry run: stock would change from %d to %d", oldStock, newStock),
		})
		return
	}

	product.ApplyRemoteStock(newStock, snapshot.WarehouseStock, s.now())
	if err := s.products.SaveStock(ctx, product); err != nil {
		logger.Error("Failed to save reconciled stock", zap.Error(err))
		run.record(ctx, sku, name, SKUOutcome{
			Status:   integration.LedgerStatusFailed,
			Method:   method,
			OldStock: oldStock,
			NewStock: newStock,
			Message:  fmt.Sprintf("failed to save stock: %v", err),
		})
		return
	}

	logger.Debug("Stock reconciled",
		zap.Int("old_stock", oldStock),
		zap.Int("new_stock", newStock),
	)
	run.record(ctx, sku, name, SKUOutcome{
		Status:   integration.LedgerStatusSuccess,
		Method:   method,
		OldStock: oldStock,
		NewStock: newStock,
		Message:  fmt.Sprintf("stock updated from %d to %d", oldStock, newStock),
	})
}
