package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/BaSui01/imageflow/generator"

// GenerationMeter exports orchestrator measurements as OTel instruments.
// With telemetry disabled the global meter provider is a no-op.
type GenerationMeter struct {
	generations    metric.Int64Counter
	generationTime metric.Float64Histogram
	attempts       metric.Int64Counter
	attemptTime    metric.Float64Histogram
	fallbacks      metric.Int64Counter
}

// NewGenerationMeter creates the instruments on the global meter provider.
func NewGenerationMeter() (*GenerationMeter, error) {
	return NewGenerationMeterFrom(otel.GetMeterProvider())
}

// NewGenerationMeterFrom creates the instruments on mp.
func NewGenerationMeterFrom(mp metric.MeterProvider) (*GenerationMeter, error) {
	meter := mp.Meter(meterName)
	m := &GenerationMeter{}
	var err error

	if m.generations, err = meter.Int64Counter("imageflow.generations",
		metric.WithDescription("Generation calls by outcome")); err != nil {
		return nil, fmt.Errorf("create generations counter: %w", err)
	}
	if m.generationTime, err = meter.Float64Histogram("imageflow.generation.duration",
		metric.WithDescription("Generation call latency"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("create generation histogram: %w", err)
	}
	if m.attempts, err = meter.Int64Counter("imageflow.provider.attempts",
		metric.WithDescription("Provider attempts by outcome")); err != nil {
		return nil, fmt.Errorf("create attempts counter: %w", err)
	}
	if m.attemptTime, err = meter.Float64Histogram("imageflow.provider.attempt.duration",
		metric.WithDescription("Provider attempt latency"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("create attempt histogram: %w", err)
	}
	if m.fallbacks, err = meter.Int64Counter("imageflow.fallbacks",
		metric.WithDescription("Stock-photo fallback runs by outcome")); err != nil {
		return nil, fmt.Errorf("create fallbacks counter: %w", err)
	}
	return m, nil
}

func (m *GenerationMeter) RecordProviderAttempt(provider, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", status),
	)
	m.attempts.Add(context.Background(), 1, attrs)
	m.attemptTime.Record(context.Background(), duration.Seconds(), attrs)
}

func (m *GenerationMeter) RecordFallback(status string) {
	m.fallbacks.Add(context.Background(), 1, metric.WithAttributes(attribute.String("status", status)))
}

func (m *GenerationMeter) RecordGeneration(status string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.generations.Add(context.Background(), 1, attrs)
	m.generationTime.Record(context.Background(), duration.Seconds(), attrs)
}
