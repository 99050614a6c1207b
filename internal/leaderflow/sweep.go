package leaderflow

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SweepPoint is the outcome of one signal threshold combination.
type SweepPoint struct {
	Rank       int          `json:"rank"`
	Index      int          `json:"index"` // position in the grid
	Params     SignalParams `json:"params"`
	Signals    int          `json:"signals"`
	Enhanced   int          `json:"enhanced"`
	Pairs      int          `json:"pairs"`
	Followed   int          `json:"followed"` // signals with at least one follower
	FollowRate float64      `json:"follow_rate"`
	MeanLag    float64      `json:"mean_lag_minutes"`
	MeanGain   float64      `json:"mean_gain_pct"`
	Score      float64      `json:"score"`
}

// Grid expands the cartesian product of the given threshold values over
// base. An empty axis keeps base's value. The multiplier varies slowest and
// the price change fastest.
func Grid(base SignalParams, moneyMultipliers, minAmounts, minPriceChanges []float64) []SignalParams {
	axis := func(values []float64, fallback float64) []float64 {
		if len(values) == 0 {
			return []float64{fallback}
		}
		return values
	}

	var grid []SignalParams
	for _, mm := range axis(moneyMultipliers, base.MoneyMultiplier) {
		for _, amt := range axis(minAmounts, base.MinAmount) {
			for _, pc := range axis(minPriceChanges, base.MinPriceChange) {
				p := base
				p.MoneyMultiplier = mm
				p.MinAmount = amt
				p.MinPriceChange = pc
				grid = append(grid, p)
			}
		}
	}
	return grid
}

// Sweep evaluates every grid point against one dataset. Series are
// computed once; signals, matching and aggregation run per point with the
// shared match parameters.
//
// Points are ranked by Score = FollowRate * ln(Signals+1), then by pairs,
// then by signals, then by grid position, so equal inputs always rank the
// same way.
func Sweep(ctx context.Context, data Dataset, grid []SignalParams, match MatchParams) ([]SweepPoint, error) {
	ctx, span := tracer().Start(ctx, "leaderflow.sweep",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.Int("sweep.points", len(grid)),
			attribute.Int("run.symbols", len(data)),
		),
	)
	defer span.End()

	for i, sp := range grid {
		if err := (Params{Signal: sp, Match: match}).Validate(); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("grid point %d: %w", i, err)
		}
	}
	if err := ValidateDataset(data); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("validate dataset: %w", err)
	}

	series := ComputeAll(data)

	points := make([]SweepPoint, 0, len(grid))
	for i, sp := range grid {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		signals := IdentifySignals(series, sp)
		pairs, err := MatchFollowers(ctx, signals, data, match)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		summary := Aggregate(pairs, signals)

		points = append(points, evaluate(i, sp, signals, pairs, summary))
	}

	sort.SliceStable(points, func(a, b int) bool {
		pa, pb := points[a], points[b]
		switch {
		case pa.Score != pb.Score:
			return pa.Score > pb.Score
		case pa.Pairs != pb.Pairs:
			return pa.Pairs > pb.Pairs
		case pa.Signals != pb.Signals:
			return pa.Signals > pb.Signals
		default:
			return pa.Index < pb.Index
		}
	})
	for i := range points {
		points[i].Rank = i + 1
	}
	return points, nil
}

type signalKey struct {
	symbol string
	unix   int64
}

func evaluate(index int, sp SignalParams, signals []LeaderSignal, pairs []Pair, summary *Summary) SweepPoint {
	followed := make(map[signalKey]struct{})
	for _, p := range pairs {
		followed[signalKey{p.LeaderSymbol, p.LeaderTime.Unix()}] = struct{}{}
	}

	pt := SweepPoint{
		Index:    index,
		Params:   sp,
		Signals:  len(signals),
		Enhanced: CountEnhanced(signals),
		Pairs:    len(pairs),
		Followed: len(followed),
		MeanLag:  summary.Global.MeanLag,
		MeanGain: summary.Global.MeanGain,
	}
	if pt.Signals > 0 {
		pt.FollowRate = float64(pt.Followed) / float64(pt.Signals)
		pt.Score = pt.FollowRate * math.Log(float64(pt.Signals)+1)
	}
	return pt
}
