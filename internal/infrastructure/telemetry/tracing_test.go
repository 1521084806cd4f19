package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(previous) })
	return recorder
}

func attrValue(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestStartServiceSpan(t *testing.T) {
	recorder := recordSpans(t)

	ctx, span := telemetry.StartServiceSpan(context.Background(), "sale_debt", "register",
		telemetry.WithAttribute(telemetry.SpanAttrStoreID, "s1"),
		telemetry.WithAttribute(telemetry.SpanAttrItemCount, 3),
	)
	assert.NotEmpty(t, telemetry.GetTraceID(ctx))
	telemetry.SetAttribute(span, telemetry.SpanAttrDebtID, "d1")
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "sale_debt.register", ended[0].Name())
	assert.Equal(t, trace.SpanKindInternal, ended[0].SpanKind())

	v, ok := attrValue(ended[0], "store_id")
	require.True(t, ok)
	assert.Equal(t, "s1", v.AsString())
	v, ok = attrValue(ended[0], "items_count")
	require.True(t, ok)
	assert.Equal(t, int64(3), v.AsInt64())
	v, ok = attrValue(ended[0], "debt_id")
	require.True(t, ok)
	assert.Equal(t, "d1", v.AsString())
}

func TestRecordError(t *testing.T) {
	recorder := recordSpans(t)

	_, span := telemetry.StartSpan(context.Background(), "op", telemetry.WithSpanKind(trace.SpanKindServer))
	telemetry.RecordError(span, nil)
	telemetry.RecordError(span, errors.New("boom"))
	telemetry.AddEvent(span, "compensation_failed", "saga.step", "push_debt", 42, "ignored")
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "boom", ended[0].Status().Description)
	assert.Equal(t, trace.SpanKindServer, ended[0].SpanKind())

	var names []string
	for _, e := range ended[0].Events() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"exception", "compensation_failed"}, names)
}

func TestGetTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, telemetry.GetTraceID(context.Background()))
}

func TestHelpers_NilSpan(t *testing.T) {
	assert.NotPanics(t, func() {
		telemetry.SetAttribute(nil, "k", "v")
		telemetry.RecordError(nil, errors.New("x"))
		telemetry.AddEvent(nil, "e")
	})
}
