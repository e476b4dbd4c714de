package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// discardExporter is a metric exporter that remembers whether it was
// called.
type discardExporter struct {
	mu       sync.Mutex
	exported bool
}

func (e *discardExporter) Temporality(k sdkmetric.InstrumentKind) metricdata.Temporality {
	return sdkmetric.DefaultTemporalitySelector(k)
}

func (e *discardExporter) Aggregation(k sdkmetric.InstrumentKind) sdkmetric.Aggregation {
	return sdkmetric.DefaultAggregationSelector(k)
}

func (e *discardExporter) Export(context.Context, *metricdata.ResourceMetrics) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.exported = true
	return nil
}

func (e *discardExporter) wasExported() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exported
}

func (e *discardExporter) ForceFlush(context.Context) error { return nil }
func (e *discardExporter) Shutdown(context.Context) error   { return nil }

func metricAttrs(outcome string) metric.AddOption {
	return metric.WithAttributes(attribute.String("outcome", outcome))
}
