package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumFor(t *testing.T, m metricdata.Metrics, key, value string) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "%s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			total += dp.Value
		}
	}
	return total
}

func TestGenerationMeter_Records(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewGenerationMeterFrom(mp)
	require.NoError(t, err)

	m.RecordProviderAttempt("Pollinations AI", "failure", 120*time.Millisecond)
	m.RecordProviderAttempt("Hugging Face", "success", 80*time.Millisecond)
	m.RecordFallback("success")
	m.RecordGeneration("success", 200*time.Millisecond)
	m.RecordGeneration("cancelled", time.Millisecond)

	got := collect(t, reader)

	assert.EqualValues(t, 1, sumFor(t, got["imageflow.provider.attempts"], "provider", "Hugging Face"))
	assert.EqualValues(t, 1, sumFor(t, got["imageflow.provider.attempts"], "status", "failure"))
	assert.EqualValues(t, 1, sumFor(t, got["imageflow.fallbacks"], "status", "success"))
	assert.EqualValues(t, 1, sumFor(t, got["imageflow.generations"], "status", "cancelled"))

	hist, ok := got["imageflow.generation.duration"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.EqualValues(t, 2, count)
	assert.Equal(t, "s", got["imageflow.provider.attempt.duration"].Unit)
}

func TestNewGenerationMeter_GlobalNoop(t *testing.T) {
	saveAndRestoreGlobals(t)

	m, err := NewGenerationMeter()
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		m.RecordGeneration("success", time.Second)
		m.RecordFallback("failure")
	})
}
