package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestInstruments(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")
	ctx := context.Background()

	counter, err := telemetry.NewCounter(meter, "requests_total", "Requests", "{requests}")
	require.NoError(t, err)
	counter.Inc(ctx)
	counter.Add(ctx, 4)

	hist, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:       "latency_seconds",
		Unit:       "s",
		Boundaries: telemetry.HTTPDurationBuckets,
	})
	require.NoError(t, err)
	hist.RecordDuration(ctx, 30*time.Millisecond)

	gauge, err := telemetry.NewGauge(meter, "open", "Open items", "{items}")
	require.NoError(t, err)
	gauge.Record(ctx, 7, telemetry.AttrStoreID.String("s1"))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	got := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			got[m.Name] = m.Data
		}
	}

	require.Contains(t, got, "requests_total")
	assert.Equal(t, int64(5), got["requests_total"].(metricdata.Sum[int64]).DataPoints[0].Value)

	require.Contains(t, got, "latency_seconds")
	h := got["latency_seconds"].(metricdata.Histogram[float64]).DataPoints[0]
	assert.Equal(t, uint64(1), h.Count)
	assert.Equal(t, telemetry.HTTPDurationBuckets, h.Bounds)

	require.Contains(t, got, "open")
	assert.Equal(t, int64(7), got["open"].(metricdata.Gauge[int64]).DataPoints[0].Value)
}

func TestAttributeKeys(t *testing.T) {
	assert.Equal(t, "store_id", string(telemetry.AttrStoreID))
	assert.Equal(t, "saga", string(telemetry.AttrSaga))
	assert.Equal(t, "saga.step", string(telemetry.AttrStep))
	assert.Equal(t, "db.operation", string(telemetry.AttrDBOperation))
}
