package telemetry

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ReconcileMetrics records inventory reconciliation activity.
// A nil *ReconcileMetrics is valid and records nothing.
type ReconcileMetrics struct {
	logger *zap.Logger

	batchTotal      *Counter
	skuOutcomeTotal *Counter
	pagesScanned    *Counter
	itemsScanned    *Counter
	remoteCalls     *Histogram
	batchDuration   *Histogram
	lastNotFound    *Gauge
}

// BatchObservation is the aggregate of one finished batch
type BatchObservation struct {
	DryRun       bool
	Found        int
	NotFound     int
	Failed       int
	PagesScanned int
	ItemsScanned int
	Elapsed      time.Duration
}

// NewReconcileMetrics creates the reconciliation instruments on meter
func NewReconcileMetrics(meter metric.Meter, logger *zap.Logger) (*ReconcileMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &ReconcileMetrics{logger: logger}

	var err error
	if m.batchTotal, err = NewCounter(meter, "inventory_reconcile_batch_total",
		"Total number of reconciliation batches", "{batch}"); err != nil {
		return nil, err
	}
	if m.skuOutcomeTotal, err = NewCounter(meter, "inventory_reconcile_sku_total",
		"Total number of SKU outcomes by method and status", "{sku}"); err != nil {
		return nil, err
	}
	if m.pagesScanned, err = NewCounter(meter, "inventory_reconcile_pages_scanned_total",
		"Total number of remote inventory pages scanned in bulk", "{page}"); err != nil {
		return nil, err
	}
	if m.itemsScanned, err = NewCounter(meter, "inventory_reconcile_items_scanned_total",
		"Total number of remote inventory records scanned in bulk", "{item}"); err != nil {
		return nil, err
	}
	if m.remoteCalls, err = NewHistogram(meter, HistogramOpts{
		Name:        "inventory_platform_call_duration_seconds",
		Description: "Duration of inventory platform calls",
		Unit:        "s",
		Boundaries:  RemoteCallDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.batchDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "inventory_reconcile_batch_duration_seconds",
		Description: "Duration of reconciliation batches",
		Unit:        "s",
		Boundaries:  BatchDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.lastNotFound, err = NewGauge(meter, "inventory_reconcile_last_batch_not_found",
		"Number of SKUs not found on the platform in the most recent batch", "{sku}"); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordBatch records a finished batch
func (m *ReconcileMetrics) RecordBatch(ctx context.Context, obs BatchObservation) {
	if m == nil {
		return
	}
	dryRun := AttrDryRun.String(strconv.FormatBool(obs.DryRun))

	m.batchTotal.Inc(ctx, dryRun)
	m.pagesScanned.Add(ctx, int64(obs.PagesScanned))
	m.itemsScanned.Add(ctx, int64(obs.ItemsScanned))
	m.batchDuration.RecordDuration(ctx, obs.Elapsed, dryRun)
	m.lastNotFound.Record(ctx, int64(obs.NotFound))

	m.logger.Debug("Recorded reconcile batch metrics",
		zap.Int("found", obs.Found),
		zap.Int("not_found", obs.NotFound),
		zap.Int("failed", obs.Failed),
	)
}

// RecordSKUOutcome records the terminal outcome of one SKU
func (m *ReconcileMetrics) RecordSKUOutcome(ctx context.Context, operation, method, status string) {
	if m == nil {
		return
	}
	m.skuOutcomeTotal.Inc(ctx,
		AttrOperation.String(operation),
		AttrMethod.String(method),
		AttrStatus.String(status),
	)
}

// RecordRemoteCall records the duration and outcome of one platform call
func (m *ReconcileMetrics) RecordRemoteCall(ctx context.Context, method string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.remoteCalls.RecordDuration(ctx, d, AttrMethod.String(method), AttrOutcome.String(outcome))
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewReconcileMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
