package leaderflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Engine runs the leader-follower analysis over one dataset.
// An Engine is safe for concurrent use; runs share no state.
type Engine struct {
	params  Params
	logger  *slog.Logger
	metrics *engineMetrics
}

// NewEngine creates an engine. Parameters are validated on every Run so a
// misconfigured engine fails before any scan begins.
func NewEngine(params Params, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "leaderflow"))

	metrics, err := newEngineMetrics()
	if err != nil {
		logger.Warn("engine metrics disabled", "error", err)
	}

	return &Engine{
		params:  params,
		logger:  logger,
		metrics: metrics,
	}
}

// Params returns the engine's parameters.
func (e *Engine) Params() Params {
	return e.params
}

// Run executes validate → series → signals → match → aggregate.
// An empty dataset yields an empty, non-nil Summary.
func (e *Engine) Run(ctx context.Context, data Dataset) (*Result, error) {
	runID := uuid.New().String()
	started := time.Now()

	ctx, span := tracer().Start(ctx, "leaderflow.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.Int("run.symbols", len(data)),
		),
	)
	defer span.End()

	logger := e.logger.With(slog.String("run_id", runID))

	result := &Result{
		RunID:  runID,
		Params: e.params,
		Stats: RunStats{
			StartedAt: started,
			Symbols:   len(data),
			Bars:      data.Bars(),
		},
	}

	fail := func(err error) (*Result, error) {
		span.RecordError(err)
		result.Stats.Duration = time.Since(started)
		e.metrics.record(ctx, "failed", result.Stats)
		logger.ErrorContext(ctx, "analysis failed", "error", err)
		return nil, err
	}

	if err := e.params.Validate(); err != nil {
		return fail(err)
	}

	logger.InfoContext(ctx, "starting leader-follower analysis",
		"symbols", result.Stats.Symbols,
		"bars", result.Stats.Bars,
		"money_multiplier", e.params.Signal.MoneyMultiplier,
		"min_amount", e.params.Signal.MinAmount,
		"min_price_change", e.params.Signal.MinPriceChange,
		"max_lag_minutes", e.params.Match.MaxLagMinutes,
		"min_gain", e.params.Match.MinGain,
	)

	err := stage(ctx, "validate", func(context.Context) error {
		if err := ValidateDataset(data); err != nil {
			return fmt.Errorf("validate dataset: %w", err)
		}
		return nil
	})
	if err != nil {
		return fail(err)
	}

	var series SeriesSet
	_ = stage(ctx, "series", func(ctx context.Context) error {
		series = ComputeAll(data)
		for _, symbol := range data.Symbols() {
			logger.DebugContext(ctx, "series computed", "symbol", symbol, "bars", len(series[symbol]))
		}
		return nil
	})

	_ = stage(ctx, "signals", func(ctx context.Context) error {
		result.Signals = IdentifySignals(series, e.params.Signal)
		if result.Signals == nil {
			result.Signals = []LeaderSignal{}
		}
		result.Stats.Signals = len(result.Signals)
		result.Stats.Enhanced = CountEnhanced(result.Signals)
		logger.InfoContext(ctx, "leader signals identified",
			"signals", result.Stats.Signals,
			"enhanced", result.Stats.Enhanced,
		)
		return nil
	})

	err = stage(ctx, "match", func(ctx context.Context) error {
		pairs, err := MatchFollowers(ctx, result.Signals, data, e.params.Match)
		if err != nil {
			return err
		}
		result.Pairs = pairs
		result.Stats.Pairs = len(pairs)
		logger.InfoContext(ctx, "followers matched", "pairs", len(pairs))
		return nil
	})
	if err != nil {
		return fail(err)
	}

	_ = stage(ctx, "aggregate", func(context.Context) error {
		result.Summary = Aggregate(result.Pairs, result.Signals)
		return nil
	})

	result.Stats.Duration = time.Since(started)
	span.SetAttributes(
		attribute.Int("run.signals", result.Stats.Signals),
		attribute.Int("run.pairs", result.Stats.Pairs),
	)
	e.metrics.record(ctx, "success", result.Stats)

	logger.InfoContext(ctx, "leader-follower analysis completed",
		"signals", result.Stats.Signals,
		"pairs", result.Stats.Pairs,
		"duration", result.Stats.Duration,
	)

	return result, nil
}
