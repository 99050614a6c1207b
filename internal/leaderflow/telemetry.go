package leaderflow

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "sectorflow.leaderflow"

// engineMetrics are the OpenTelemetry instruments recorded per run.
type engineMetrics struct {
	runs     metric.Int64Counter
	signals  metric.Int64Counter
	pairs    metric.Int64Counter
	duration metric.Float64Histogram
}

func newEngineMetrics() (*engineMetrics, error) {
	meter := otel.Meter(instrumentationName)

	runs, err := meter.Int64Counter(
		"leaderflow_runs_total",
		metric.WithDescription("Total number of engine runs"),
	)
	if err != nil {
		return nil, fmt.Errorf("create runs counter: %w", err)
	}

	signals, err := meter.Int64Counter(
		"leaderflow_signals_total",
		metric.WithDescription("Leader signals identified"),
	)
	if err != nil {
		return nil, fmt.Errorf("create signals counter: %w", err)
	}

	pairs, err := meter.Int64Counter(
		"leaderflow_pairs_total",
		metric.WithDescription("Leader-follower pairs matched"),
	)
	if err != nil {
		return nil, fmt.Errorf("create pairs counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		"leaderflow_run_duration_seconds",
		metric.WithDescription("Engine run duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}

	return &engineMetrics{runs: runs, signals: signals, pairs: pairs, duration: duration}, nil
}

func (m *engineMetrics) record(ctx context.Context, status string, stats RunStats) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.runs.Add(ctx, 1, attrs)
	m.signals.Add(ctx, int64(stats.Signals))
	m.pairs.Add(ctx, int64(stats.Pairs))
	m.duration.Record(ctx, stats.Duration.Seconds(), attrs)
}

func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// stage runs fn inside a child span named leaderflow.<name>.
func stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := tracer().Start(ctx, "leaderflow."+name, trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}
