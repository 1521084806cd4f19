// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics tracks how the write workflows end: completed, rolled
// back, or left with a rollback step that could not be applied.
// It satisfies the saga runner's Metrics interface.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	sagaCompletedTotal       *Counter
	sagaCompensatedTotal     *Counter
	compensationFailedTotal  *Counter
	openCompensationFailures *Gauge

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	failureProvider FailureCountProvider
}

// FailureCountProvider reports the journaled rollback failures still
// waiting for manual repair, per store.
type FailureCountProvider interface {
	CountUnresolvedByStore(ctx context.Context) (map[string]int64, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	FailureProvider FailureCountProvider
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:           cfg.Meter,
		logger:          logger,
		stopChan:        make(chan struct{}),
		failureProvider: cfg.FailureProvider,
	}

	var err error
	bm.sagaCompletedTotal, err = NewCounter(
		cfg.Meter,
		"backoffice_saga_completed_total",
		"Workflows whose every step was applied",
		"{sagas}",
	)
	if err != nil {
		return nil, err
	}

	bm.sagaCompensatedTotal, err = NewCounter(
		cfg.Meter,
		"backoffice_saga_compensated_total",
		"Workflows rolled back after a failed step",
		"{sagas}",
	)
	if err != nil {
		return nil, err
	}

	bm.compensationFailedTotal, err = NewCounter(
		cfg.Meter,
		"backoffice_saga_compensation_failed_total",
		"Rollback steps that could not be applied",
		"{steps}",
	)
	if err != nil {
		return nil, err
	}

	bm.openCompensationFailures, err = NewGauge(
		cfg.Meter,
		"backoffice_compensation_failures_open",
		"Journaled rollback failures not yet resolved",
		"{failures}",
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// Completed counts a workflow that applied every step
func (bm *BusinessMetrics) Completed(ctx context.Context, saga string) {
	bm.sagaCompletedTotal.Inc(ctx, AttrSaga.String(saga))
}

// Compensated counts a workflow that was rolled back
func (bm *BusinessMetrics) Compensated(ctx context.Context, saga string) {
	bm.sagaCompensatedTotal.Inc(ctx, AttrSaga.String(saga))
}

// CompensationFailed counts a rollback step that failed
func (bm *BusinessMetrics) CompensationFailed(ctx context.Context, saga, step string) {
	bm.compensationFailedTotal.Inc(ctx, AttrSaga.String(saga), AttrStep.String(step))
}

// RecordOpenFailures records the unresolved failure count of a store
func (bm *BusinessMetrics) RecordOpenFailures(ctx context.Context, storeID string, count int64) {
	bm.openCompensationFailures.Record(ctx, count, AttrStoreID.String(storeID))
}

// StartPeriodicCollection starts periodic collection of gauge metrics.
// This is non-blocking - use Stop() to stop collection.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go bm.runPeriodicCollection(ctx, interval)
	})
}

func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	bm.collectFailureMetrics(ctx)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic business metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic business metrics collection")
			return
		case <-ticker.C:
			bm.collectFailureMetrics(ctx)
		}
	}
}

func (bm *BusinessMetrics) collectFailureMetrics(ctx context.Context) {
	if bm.failureProvider == nil {
		bm.logger.Debug("No failure provider configured, skipping collection")
		return
	}

	counts, err := bm.failureProvider.CountUnresolvedByStore(ctx)
	if err != nil {
		bm.logger.Warn("Failed to count open compensation failures", zap.Error(err))
		return
	}
	for storeID, count := range counts {
		bm.RecordOpenFailures(ctx, storeID, count)
	}
}

// Stop stops the periodic collection.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
