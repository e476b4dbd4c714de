package swarm

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/swarmintel/internal/logging"
)

const instrumentationName = "github.com/fyrsmithlabs/swarmintel/internal/swarm"

// Metrics holds the swarm operation instruments.
type Metrics struct {
	meter      metric.Meter
	logger     *logging.Logger
	operations metric.Int64Counter
	duration   metric.Float64Histogram
	learned    metric.Int64Counter
	matches    metric.Int64Histogram
}

// NewMetrics creates instruments on the global meter provider.
func NewMetrics(logger *logging.Logger) *Metrics {
	return NewMetricsWithMeter(otel.Meter(instrumentationName), logger)
}

// NewMetricsWithMeter creates instruments on meter.
func NewMetricsWithMeter(meter metric.Meter, logger *logging.Logger) *Metrics {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Metrics{meter: meter, logger: logger}
	m.init()
	return m
}

func (m *Metrics) init() {
	ctx := context.Background()
	var err error

	m.operations, err = m.meter.Int64Counter(
		"swarmintel.operations_total",
		metric.WithDescription("Swarm operations by name and status"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		m.logger.Warn(ctx, "failed to create operations counter", zap.Error(err))
	}

	m.duration, err = m.meter.Float64Histogram(
		"swarmintel.operation_duration_seconds",
		metric.WithDescription("Duration of swarm operations including load and save"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5),
	)
	if err != nil {
		m.logger.Warn(ctx, "failed to create duration histogram", zap.Error(err))
	}

	m.learned, err = m.meter.Int64Counter(
		"swarmintel.observations_total",
		metric.WithDescription("Learned observations by outcome and whether they merged into an existing pattern"),
		metric.WithUnit("{observation}"),
	)
	if err != nil {
		m.logger.Warn(ctx, "failed to create observations counter", zap.Error(err))
	}

	m.matches, err = m.meter.Int64Histogram(
		"swarmintel.query_matches",
		metric.WithDescription("Patterns above the match threshold per query"),
		metric.WithUnit("{pattern}"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 3, 5, 10),
	)
	if err != nil {
		m.logger.Warn(ctx, "failed to create matches histogram", zap.Error(err))
	}
}

// RecordOperation records one operation and its duration.
func (m *Metrics) RecordOperation(ctx context.Context, op string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("status", status),
	)
	if m.operations != nil {
		m.operations.Add(ctx, 1, attrs)
	}
	if m.duration != nil {
		m.duration.Record(ctx, d.Seconds(), attrs)
	}
}

// RecordObservation records a learned observation.
func (m *Metrics) RecordObservation(ctx context.Context, outcome Outcome, merged bool) {
	if m.learned == nil {
		return
	}
	m.learned.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", string(outcome)),
		attribute.Bool("merged", merged),
	))
}

// RecordMatches records how many patterns a query matched.
func (m *Metrics) RecordMatches(ctx context.Context, op string, n int) {
	if m.matches == nil {
		return
	}
	m.matches.Record(ctx, int64(n), metric.WithAttributes(attribute.String("operation", op)))
}
