package integration

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sneakerflash/backend/internal/domain/catalog"
	"github.com/sneakerflash/backend/internal/domain/integration"
	"github.com/sneakerflash/backend/internal/domain/shared"
	applog "github.com/sneakerflash/backend/internal/infrastructure/logger"
	"github.com/sneakerflash/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const msgCancelled = "reconciliation cancelled before this SKU was processed"

// ReconcileServiceConfig holds the service-wide reconciliation settings
type ReconcileServiceConfig struct {
	// WarehouseID is the platform warehouse stock is read from and pushed to
	WarehouseID string
	// Defaults fill the zero fields of per-call options
	Defaults ReconcileOptions
	// Lookup configures the per-SKU strategy chain
	Lookup StockLookupConfig
	// Lock configures the overlapping batch guard
	Lock shared.BatchLockConfig
}

// ReconcileService keeps local stock consistent with the inventory platform.
// It pages the platform's warehouse inventory once per batch, resolves what the
// scan missed through the strategy chain, and records every outcome in the sync ledger.
type ReconcileService struct {
	platform integration.InventoryPlatform
	products catalog.ProductRepository
	ledger   integration.SyncLedgerRepository
	lookup   *StockLookup
	lock     shared.BatchLock
	config   ReconcileServiceConfig
	metrics  *telemetry.ReconcileMetrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewReconcileService creates a new ReconcileService
func NewReconcileService(
	platform integration.InventoryPlatform,
	products catalog.ProductRepository,
	ledger integration.SyncLedgerRepository,
	config ReconcileServiceConfig,
	logger *zap.Logger,
) (*ReconcileService, error) {
	if platform == nil {
		return nil, integration.ErrPlatformNotConfigured
	}
	if strings.TrimSpace(config.WarehouseID) == "" {
		return nil, integration.ErrWarehouseRequired
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("reconcile")

	config.Defaults = config.Defaults.withDefaults(DefaultReconcileOptions())
	config.Lookup.WarehouseID = config.WarehouseID
	if config.Lock.TTL <= 0 {
		config.Lock.TTL = shared.DefaultBatchLockConfig().TTL
	}

	return &ReconcileService{
		platform: platform,
		products: products,
		ledger:   ledger,
		lookup:   NewStockLookup(platform, config.Lookup, logger),
		config:   config,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// SetMetrics sets the reconciliation metrics recorder
func (s *ReconcileService) SetMetrics(m *telemetry.ReconcileMetrics) {
	s.metrics = m
	s.lookup.SetMetrics(m)
}

// SetBatchLock sets the guard against overlapping batches
func (s *ReconcileService) SetBatchLock(lock shared.BatchLock) {
	s.lock = lock
}

// Lookup exposes the strategy chain for one SKU
func (s *ReconcileService) Lookup() *StockLookup {
	return s.lookup
}

// ---------------------------------------------------------------------------
// Public operations
// ---------------------------------------------------------------------------

// Reconcile reconciles a set of SKUs against the platform.
// Only ErrEmptySKUSet, ErrBatchInProgress, ErrUpstreamUnavailable and context
// errors are returned; per-SKU failures are folded into the result.
func (s *ReconcileService) Reconcile(ctx context.Context, skus []string, opts ReconcileOptions) (*BatchResult, error) {
	set := normalizeSKUSet(skus)
	if len(set) == 0 {
		return nil, integration.ErrEmptySKUSet
	}
	opts = opts.withDefaults(s.config.Defaults)

	release, err := s.acquire(ctx, set)
	if err != nil {
		return nil, err
	}
	defer release()

	return s.run(ctx, set, opts, true)
}

// ReconcileOne reconciles a single SKU through the strategy chain without bulk paging
func (s *ReconcileService) ReconcileOne(ctx context.Context, sku string, dryRun bool) (*SingleResult, error) {
	sku = catalog.NormalizeSKU(sku)
	if sku == "" {
		return nil, integration.ErrEmptySKUSet
	}
	opts := s.config.Defaults
	opts.DryRun = dryRun

	release, err := s.acquire(ctx, []string{sku})
	if err != nil {
		return nil, err
	}
	defer release()

	result, err := s.run(ctx, []string{sku}, opts, false)
	if result == nil {
		return nil, err
	}

	single := &SingleResult{SessionID: result.SessionID}
	if snapshot, ok := result.Found[sku]; ok {
		single.Snapshot = &snapshot
	}
	if outcome, ok := result.Outcomes[sku]; ok {
		single.Success = outcome.Status == integration.LedgerStatusSuccess ||
			outcome.Status == integration.LedgerStatusSkipped
		single.Message = outcome.Message
	}
	return single, err
}

// PushOne pushes the local stock of one SKU to the platform
func (s *ReconcileService) PushOne(ctx context.Context, sku string, dryRun bool) (*PushResult, error) {
	sku = catalog.NormalizeSKU(sku)
	if sku == "" {
		return nil, integration.ErrEmptySKUSet
	}

	sessionID := uuid.NewString()
	ctx, span := telemetry.StartServiceSpan(ctx, "reconcile", "push",
		telemetry.WithAttribute(telemetry.SpanAttrSessionID, sessionID),
		telemetry.WithAttribute(telemetry.SpanAttrSKU, sku),
		telemetry.WithAttribute(telemetry.SpanAttrDryRun, dryRun),
	)
	defer span.End()

	ctx, logger := applog.WithSessionID(ctx, s.logger, sessionID)
	logger = logger.With(zap.String("sku", sku))
	run := s.newRun(sessionID, integration.OperationPush, dryRun, s.config.Defaults.ChunkSize, 1, logger)
	defer func() { _ = run.ledger.Flush(ctx) }()

	product, err := s.products.FindBySKU(ctx, sku)
	if err != nil {
		msg := msgProductNotFoundLocally
		if !errors.Is(err, catalog.ErrProductNotFound) {
			msg = fmt.Sprintf("failed to load local product: %v", err)
		}
		logger.Warn("Stock push skipped", zap.String("reason", msg))
		run.record(ctx, sku, "", SKUOutcome{
			Status:  integration.LedgerStatusFailed,
			Method:  integration.MethodStockPush,
			Message: msg,
		})
		return &PushResult{SessionID: sessionID, Message: msg}, nil
	}

	oldStock := 0
	if outcome := s.lookup.Lookup(ctx, sku); outcome.IsFound() {
		oldStock = outcome.Snapshot.ClampedTotal()
	}
	newStock := max(product.StockQuantity, 0)

	if dryRun {
		msg := fmt.Sprintf("dry run: platform stock would change from %d to %d", oldStock, newStock)
		run.record(ctx, sku, product.Name, SKUOutcome{
			Status:   integration.LedgerStatusSkipped,
			Method:   integration.MethodStockPush,
			OldStock: oldStock,
			NewStock: newStock,
			Message:  msg,
		})
		return &PushResult{SessionID: sessionID, Success: true, Message: msg}, nil
	}

	start := time.Now()
	_, err = s.platform.UpdateStock(ctx, s.config.WarehouseID, []integration.StockUpdateItem{
		{SKU: sku, Quantity: newStock},
	})
	s.metrics.RecordRemoteCall(ctx, integration.MethodStockPush.String(), time.Since(start), err)
	if err != nil {
		telemetry.RecordError(span, err)
		logger.Error("Stock push failed", zap.Error(err))
		msg := fmt.Sprintf("push failed: %v", err)
		run.record(ctx, sku, product.Name, SKUOutcome{
			Status:   integration.LedgerStatusFailed,
			Method:   integration.MethodStockPush,
			OldStock: oldStock,
			NewStock: newStock,
			Message:  msg,
		})
		return &PushResult{SessionID: sessionID, Message: msg}, nil
	}

	msg := fmt.Sprintf("platform stock pushed from %d to %d", oldStock, newStock)
	product.MarkPushed(s.now())
	if err := s.products.SaveStock(ctx, product); err != nil {
		logger.Warn("Stock pushed but push time not saved", zap.Error(err))
		msg += "; push time not saved locally"
	}
	run.record(ctx, sku, product.Name, SKUOutcome{
		Status:   integration.LedgerStatusSuccess,
		Method:   integration.MethodStockPush,
		OldStock: oldStock,
		NewStock: newStock,
		Message:  msg,
	})
	return &PushResult{SessionID: sessionID, Success: true, Message: msg}, nil
}

// Summarize condenses a batch result for display
func (s *ReconcileService) Summarize(result *BatchResult) Summary {
	return Summarize(result)
}

// Summarize condenses a batch result for display. At most five error messages are kept.
func Summarize(result *BatchResult) Summary {
	if result == nil {
		return Summary{Errors: []string{}}
	}
	summary := Summary{
		Successful:     result.Stats.Updated + result.Stats.Skipped,
		Failed:         result.Stats.Failed,
		NotFound:       result.Stats.NotFound,
		TotalRequested: result.Stats.Requested,
		SessionID:      result.SessionID,
		Errors:         []string{},
	}

	skus := make([]string, 0, len(result.Errors))
	for sku := range result.Errors {
		skus = append(skus, sku)
	}
	slices.Sort(skus)
	for _, sku := range skus {
		if len(summary.Errors) == 5 {
			break
		}
		summary.Errors = append(summary.Errors, sku+": "+result.Errors[sku])
	}
	return summary
}

// ---------------------------------------------------------------------------
// Batch pipeline
// ---------------------------------------------------------------------------

// batchRun carries the per-call state of one session
type batchRun struct {
	sessionID string
	op        integration.OperationType
	dryRun    bool
	ledger    *ledgerWriter
	metrics   *telemetry.ReconcileMetrics
	logger    *zap.Logger

	mu     sync.Mutex
	result *BatchResult
}

func (s *ReconcileService) newRun(sessionID string, op integration.OperationType, dryRun bool, chunk, requested int, logger *zap.Logger) *batchRun {
	return &batchRun{
		sessionID: sessionID,
		op:        op,
		dryRun:    dryRun,
		ledger:    newLedgerWriter(s.ledger, chunk, logger),
		metrics:   s.metrics,
		logger:    logger,
		result:    newBatchResult(sessionID, requested),
	}
}

func (r *batchRun) addFound(snapshot integration.StockSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.result.Found[snapshot.SKU] = snapshot
}

// record stores the terminal outcome of one SKU and writes its ledger entry
func (r *batchRun) record(ctx context.Context, sku, productName string, outcome SKUOutcome) {
	entry, err := integration.NewSyncLedgerEntry(r.sessionID, sku, r.op, outcome.Method, outcome.Status)
	if err != nil {
		r.logger.Error("Invalid sync ledger entry", zap.String("sku", sku), zap.Error(err))
	} else {
		entry.WithStockChange(outcome.OldStock, outcome.NewStock).
			WithProductName(productName).
			WithMessage(outcome.Message).
			WithDryRun(r.dryRun)
		r.ledger.Add(ctx, entry)
	}

	r.mu.Lock()
	r.result.Outcomes[sku] = outcome
	switch {
	case outcome.Status == integration.LedgerStatusSuccess:
		r.result.Stats.Updated++
	case outcome.Status == integration.LedgerStatusSkipped:
		r.result.Stats.Skipped++
	case outcome.Status == integration.LedgerStatusFailed && outcome.Method == integration.MethodNotFound:
		r.result.NotFound = append(r.result.NotFound, sku)
		r.result.Stats.NotFound++
		r.result.Errors[sku] = outcome.Message
	default:
		r.result.Stats.Failed++
		r.result.Errors[sku] = outcome.Message
	}
	r.mu.Unlock()

	r.metrics.RecordSKUOutcome(ctx, r.op.String(), outcome.Method.String(), outcome.Status.String())
}

// recordUnresolved records a SKU the strategy chain could not resolve
func (r *batchRun) recordUnresolved(ctx context.Context, sku string, outcome integration.LookupOutcome) {
	if outcome.Kind == integration.LookupInconclusive {
		r.logger.Warn("Stock lookup inconclusive", zap.String("sku", sku), zap.String("reason", outcome.Reason))
		r.record(ctx, sku, "", SKUOutcome{
			Status:  integration.LedgerStatusError,
			Method:  integration.MethodNotFound,
			Message: "lookup inconclusive: " + outcome.Reason,
		})
		return
	}

	msg := "SKU not found on the inventory platform"
	if outcome.Confirmed {
		msg = "inventory platform reports SKU does not exist"
	}
	r.logger.Info("SKU not found on platform", zap.String("sku", sku), zap.Bool("confirmed", outcome.Confirmed))
	r.record(ctx, sku, "", SKUOutcome{
		Status:  integration.LedgerStatusFailed,
		Method:  integration.MethodNotFound,
		Message: msg,
	})
}

// recordCancelled records a SKU the batch stopped before reaching
func (r *batchRun) recordCancelled(ctx context.Context, sku string) {
	r.recordStopped(ctx, sku, integration.MethodNotFound, msgCancelled)
}

// recordStopped records an error entry for a SKU the batch could not process.
// The entry carries the method that found the SKU, or method when none did.
func (r *batchRun) recordStopped(ctx context.Context, sku string, method integration.StrategyMethod, msg string) {
	r.mu.Lock()
	if snapshot, ok := r.result.Found[sku]; ok {
		method = snapshot.SourceMethod
	}
	r.mu.Unlock()

	r.record(ctx, sku, "", SKUOutcome{
		Status:  integration.LedgerStatusError,
		Method:  method,
		Message: msg,
	})
}

// run executes the reconciliation pipeline for a normalized SKU set
func (s *ReconcileService) run(ctx context.Context, skus []string, opts ReconcileOptions, bulk bool) (*BatchResult, error) {
	sessionID := uuid.NewString()
	start := s.now()

	ctx, span := telemetry.StartServiceSpan(ctx, "reconcile", "batch",
		telemetry.WithAttribute(telemetry.SpanAttrSessionID, sessionID),
		telemetry.WithAttribute(telemetry.SpanAttrSKUCount, len(skus)),
		telemetry.WithAttribute(telemetry.SpanAttrDryRun, opts.DryRun),
	)
	defer span.End()

	ctx, logger := applog.WithSessionID(ctx, s.logger, sessionID)
	logger.Info("Reconciliation started",
		zap.Int("sku_count", len(skus)),
		zap.Bool("dry_run", opts.DryRun),
		zap.Bool("bulk", bulk),
	)

	run := s.newRun(sessionID, integration.OperationSync, opts.DryRun, opts.ChunkSize, len(skus), logger)

	var runErr error
	bulkExhausted := false
	summaryState := integration.LedgerStatusSuccess

	pending := skus
	if bulk {
		remaining := make(map[string]struct{}, len(skus))
		for _, sku := range skus {
			remaining[sku] = struct{}{}
		}

		exhausted, err := s.bulkScan(ctx, run, remaining, opts)
		bulkExhausted = exhausted
		if errors.Is(err, integration.ErrUpstreamUnavailable) {
			telemetry.RecordError(span, err)
			logger.Error("Bulk paging could not start", zap.Error(err))
			for _, sku := range skus {
				run.recordStopped(ctx, sku, integration.MethodBulkWarehouseInventory, err.Error())
			}
			s.finish(ctx, run, opts, start, integration.LedgerStatusError, err.Error())
			return run.result, err
		}
		if err != nil {
			runErr = err
		}

		// Apply bulk finds in request order
		pending = make([]string, 0, len(remaining))
		for _, sku := range skus {
			if _, ok := remaining[sku]; ok {
				pending = append(pending, sku)
				continue
			}
			if ctx.Err() != nil {
				run.recordCancelled(ctx, sku)
				continue
			}
			run.mu.Lock()
			snapshot := run.result.Found[sku]
			run.mu.Unlock()
			s.applySnapshot(ctx, run, snapshot)
		}
	}

	if runErr == nil {
		var lookupOpts []LookupOption
		if bulkExhausted {
			// The bulk scan already covered the whole warehouse listing
			lookupOpts = append(lookupOpts, SkipStrategy(integration.MethodWarehouseInventorySearch))
		}
		if err := s.resolveFallback(ctx, run, pending, opts, lookupOpts); err != nil {
			runErr = err
		}
	} else {
		for _, sku := range pending {
			run.recordCancelled(ctx, sku)
		}
	}

	if err := ctx.Err(); err != nil && runErr == nil {
		runErr = err
	}

	msg := ""
	switch {
	case runErr != nil:
		summaryState = integration.LedgerStatusError
		msg = runErr.Error()
		telemetry.RecordError(span, runErr)
	case opts.DryRun:
		summaryState = integration.LedgerStatusSkipped
	case run.result.Stats.Failed > 0 || run.result.Stats.NotFound > 0:
		summaryState = integration.LedgerStatusFailed
	}
	s.finishSession(ctx, run, opts, start, bulk, summaryState, msg)

	stats := run.result.Stats
	telemetry.SetAttributes(span,
		"found", stats.Found,
		"not_found", stats.NotFound,
		"failed", stats.Failed,
		"pages_scanned", stats.PagesScanned,
	)
	if runErr == nil {
		telemetry.SetOK(span)
	}
	return run.result, runErr
}

// bulkScan pages the warehouse inventory once, removing matched SKUs from remaining.
// It reports whether the listing was read to its end.
func (s *ReconcileService) bulkScan(ctx context.Context, run *batchRun, remaining map[string]struct{}, opts ReconcileOptions) (bool, error) {
	for page := 0; page < opts.MaxPages && len(remaining) > 0; page++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		inv, err := s.fetchPage(ctx, run.logger, page, opts)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return false, ctxErr
			}
			if page == 0 {
				return false, fmt.Errorf("%w: %w", integration.ErrUpstreamUnavailable, err)
			}
			run.logger.Warn("Bulk paging abandoned, remaining SKUs go to fallback",
				zap.Int("page", page),
				zap.Int("remaining", len(remaining)),
				zap.Error(err),
			)
			return false, nil
		}

		run.result.Stats.PagesScanned++
		run.result.Stats.ItemsScanned += len(inv.Items)

		observedAt := s.now()
		for _, item := range inv.Items {
			sku := catalog.NormalizeSKU(item.SKU)
			if _, ok := remaining[sku]; !ok {
				continue
			}
			run.addFound(integration.SnapshotFromWarehouseItem(item, integration.MethodBulkWarehouseInventory, observedAt))
			delete(remaining, sku)
		}

		if inv.IsLast() {
			return true, nil
		}
	}
	return false, nil
}

// fetchPage reads one bulk page, retrying with a fixed backoff
func (s *ReconcileService) fetchPage(ctx context.Context, logger *zap.Logger, page int, opts ReconcileOptions) (*integration.WarehouseInventoryPage, error) {
	var lastErr error
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		if attempt > 0 {
			logger.Warn("Retrying warehouse inventory page",
				zap.Int("page", page),
				zap.Int("attempt", attempt),
				zap.Error(lastErr),
			)
			telemetry.AddEvent(telemetry.SpanFromContext(ctx), "bulk_page_retry",
				telemetry.SpanAttrPage, page,
				"attempt", attempt,
			)
			if err := sleepContext(ctx, opts.RetryBackoff); err != nil {
				return nil, err
			}
		}

		start := time.Now()
		inv, err := s.platform.ListWarehouseInventory(ctx, page, opts.PageSize)
		s.metrics.RecordRemoteCall(ctx, integration.MethodBulkWarehouseInventory.String(), time.Since(start), err)
		if err == nil {
			return inv, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// resolveFallback runs the strategy chain for every pending SKU on a bounded worker pool.
// Each worker paces its own platform calls. It returns the first error that stopped
// a worker from pacing, which is context.DeadlineExceeded when the next call would
// start after the context deadline.
func (s *ReconcileService) resolveFallback(ctx context.Context, run *batchRun, pending []string, opts ReconcileOptions, lookupOpts []LookupOption) error {
	if len(pending) == 0 {
		return nil
	}

	workers := min(opts.Concurrency, len(pending))
	jobs := make(chan string)
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		pacedErr error
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			limiter := rate.NewLimiter(rate.Every(opts.FallbackDelay), 1)
			for sku := range jobs {
				if err := limiter.Wait(ctx); err != nil {
					if ctx.Err() != nil {
						run.recordCancelled(ctx, sku)
						continue
					}
					// The limiter refuses a wait that would outlast the deadline
					err = fmt.Errorf("%w: fallback pacing stopped: %w", context.DeadlineExceeded, err)
					errOnce.Do(func() { pacedErr = err })
					run.recordStopped(ctx, sku, integration.MethodNotFound, err.Error())
					continue
				}
				s.resolveOne(ctx, run, sku, lookupOpts)
			}
		}()
	}

feed:
	for i, sku := range pending {
		select {
		case <-ctx.Done():
			for _, rest := range pending[i:] {
				run.recordCancelled(ctx, rest)
			}
			break feed
		case jobs <- sku:
		}
	}
	close(jobs)
	wg.Wait()
	return pacedErr
}

func (s *ReconcileService) resolveOne(ctx context.Context, run *batchRun, sku string, lookupOpts []LookupOption) {
	outcome := s.lookup.Lookup(ctx, sku, lookupOpts...)
	if !outcome.IsFound() {
		run.recordUnresolved(ctx, sku, outcome)
		return
	}
	run.addFound(*outcome.Snapshot)
	s.applySnapshot(ctx, run, *outcome.Snapshot)
}

// finishSession writes the batch summary for bulk calls and records batch telemetry
func (s *ReconcileService) finishSession(ctx context.Context, run *batchRun, opts ReconcileOptions, start time.Time, bulk bool, status integration.LedgerStatus, msg string) {
	if bulk {
		s.finish(ctx, run, opts, start, status, msg)
		return
	}
	s.complete(ctx, run, opts, start)
}

// finish writes the summary entry then completes the session
func (s *ReconcileService) finish(ctx context.Context, run *batchRun, opts ReconcileOptions, start time.Time, status integration.LedgerStatus, msg string) {
	s.fillStats(run, start)
	stats := run.result.Stats
	text := fmt.Sprintf("requested=%d found=%d not_found=%d updated=%d skipped=%d failed=%d pages=%d items=%d elapsed=%s",
		stats.Requested, stats.Found, stats.NotFound, stats.Updated, stats.Skipped, stats.Failed,
		stats.PagesScanned, stats.ItemsScanned, stats.Elapsed.Round(time.Millisecond))
	if msg != "" {
		text += "; " + msg
	}

	entry, err := integration.NewSyncLedgerEntry(run.sessionID, "", integration.OperationSync, integration.MethodBatchSummary, status)
	if err != nil {
		run.logger.Error("Invalid batch summary entry", zap.Error(err))
	} else {
		run.ledger.Add(ctx, entry.WithMessage(text).WithDryRun(opts.DryRun))
	}
	s.complete(ctx, run, opts, start)
}

// complete flushes the ledger and records batch telemetry
func (s *ReconcileService) complete(ctx context.Context, run *batchRun, opts ReconcileOptions, start time.Time) {
	s.fillStats(run, start)
	_ = run.ledger.Flush(ctx)

	stats := run.result.Stats
	s.metrics.RecordBatch(ctx, telemetry.BatchObservation{
		DryRun:       opts.DryRun,
		Found:        stats.Found,
		NotFound:     stats.NotFound,
		Failed:       stats.Failed,
		PagesScanned: stats.PagesScanned,
		ItemsScanned: stats.ItemsScanned,
		Elapsed:      stats.Elapsed,
	})

	run.logger.Info("Reconciliation finished",
		zap.Int("requested", stats.Requested),
		zap.Int("found", stats.Found),
		zap.Int("not_found", stats.NotFound),
		zap.Int("updated", stats.Updated),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
		zap.Int("pages_scanned", stats.PagesScanned),
		zap.Int("ledger_write_failures", run.ledger.failed),
		zap.Duration("elapsed", stats.Elapsed),
	)
}

func (s *ReconcileService) fillStats(run *batchRun, start time.Time) {
	run.mu.Lock()
	defer run.mu.Unlock()

	stats := &run.result.Stats
	stats.Found = len(run.result.Found)
	stats.Elapsed = s.now().Sub(start)
	if secs := stats.Elapsed.Seconds(); secs > 0 {
		stats.Throughput = float64(stats.ItemsScanned) / secs
	}
	slices.Sort(run.result.NotFound)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// acquire takes the batch lock for a SKU set. Lock backend failures do not block the batch.
func (s *ReconcileService) acquire(ctx context.Context, skus []string) (func(), error) {
	if s.lock == nil || !s.config.Lock.Enabled {
		return func() {}, nil
	}

	key := BatchLockKey(skus)
	ok, err := s.lock.Acquire(ctx, key, s.config.Lock.TTL)
	if err != nil {
		s.logger.Warn("Failed to acquire batch lock, reconciling anyway",
			zap.String("lock_key", key),
			zap.Error(err),
		)
		return func() {}, nil
	}
	if !ok {
		return nil, integration.ErrBatchInProgress
	}

	return func() {
		if err := s.lock.Release(context.WithoutCancel(ctx), key); err != nil {
			s.logger.Warn("Failed to release batch lock", zap.String("lock_key", key), zap.Error(err))
		}
	}, nil
}

// BatchLockKey returns the lock key for a SKU set. The key does not depend on order or case.
func BatchLockKey(skus []string) string {
	set := normalizeSKUSet(skus)
	slices.Sort(set)
	sum := sha256.Sum256([]byte(strings.Join(set, "\n")))
	return "reconcile:batch:" + hex.EncodeToString(sum[:])
}

// normalizeSKUSet canonicalizes SKUs, dropping blanks and duplicates while keeping input order
func normalizeSKUSet(skus []string) []string {
	seen := make(map[string]struct{}, len(skus))
	out := make([]string, 0, len(skus))
	for _, raw := range skus {
		sku := catalog.NormalizeSKU(raw)
		if sku == "" {
			continue
		}
		if _, ok := seen[sku]; ok {
			continue
		}
		seen[sku] = struct{}{}
		out = append(out, sku)
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
