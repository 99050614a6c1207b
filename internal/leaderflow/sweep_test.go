package leaderflow

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrid(t *testing.T) {
	base := DefaultParams().Signal
	base.EnhancedMultiplier = 2

	grid := Grid(base, []float64{1.3, 1.5}, nil, []float64{0.003, 0.005})
	require.Len(t, grid, 4)

	want := [][2]float64{{1.3, 0.003}, {1.3, 0.005}, {1.5, 0.003}, {1.5, 0.005}}
	for i, p := range grid {
		assert.Equal(t, want[i][0], p.MoneyMultiplier, "point %d", i)
		assert.Equal(t, want[i][1], p.MinPriceChange, "point %d", i)
		assert.Equal(t, base.MinAmount, p.MinAmount)
		assert.Equal(t, 2.0, p.EnhancedMultiplier)
	}

	assert.Equal(t, []SignalParams{base}, Grid(base, nil, nil, nil))
}

func TestSweepScenario(t *testing.T) {
	match := DefaultParams().Match
	grid := Grid(DefaultParams().Signal, nil, []float64{20_000_000, 5_000_000}, nil)

	points, err := Sweep(context.Background(), scenarioDataset(), grid, match)
	require.NoError(t, err)
	require.Len(t, points, 2)

	best := points[0]
	assert.Equal(t, 1, best.Rank)
	assert.Equal(t, 1, best.Index)
	assert.Equal(t, 5_000_000.0, best.Params.MinAmount)
	assert.Equal(t, 1, best.Signals)
	assert.Equal(t, 1, best.Enhanced)
	assert.Equal(t, 1, best.Pairs)
	assert.Equal(t, 1, best.Followed)
	assert.Equal(t, 1.0, best.FollowRate)
	assert.InDelta(t, 4.0, best.MeanLag, 1e-9)
	assert.InDelta(t, 1.0, best.MeanGain, 1e-9)
	assert.InDelta(t, math.Ln2, best.Score, 1e-12)

	empty := points[1]
	assert.Equal(t, 2, empty.Rank)
	assert.Equal(t, 0, empty.Index)
	assert.Zero(t, empty.Signals)
	assert.Zero(t, empty.FollowRate)
	assert.Zero(t, empty.Score)
}

func TestSweepMatchesEngine(t *testing.T) {
	data := randomDataset(11, []string{"2330", "2303", "3037", "8046"}, 120)
	match := MatchParams{MaxLagMinutes: 30, MinGain: 0.3, Workers: 2}
	base := DefaultParams().Signal
	grid := Grid(base, []float64{1.3, 2}, []float64{1_000_000, 5_000_000}, []float64{0.003, 0.008})

	points, err := Sweep(context.Background(), data, grid, match)
	require.NoError(t, err)
	require.Len(t, points, len(grid))

	for i, pt := range points {
		assert.Equal(t, i+1, pt.Rank)
		if i > 0 {
			assert.GreaterOrEqual(t, points[i-1].Score, pt.Score)
		}

		res, err := NewEngine(Params{Signal: grid[pt.Index], Match: match}, testLogger()).Run(context.Background(), data)
		require.NoError(t, err)
		assert.Equal(t, res.Stats.Signals, pt.Signals, "point %d", pt.Index)
		assert.Equal(t, res.Stats.Enhanced, pt.Enhanced, "point %d", pt.Index)
		assert.Equal(t, res.Stats.Pairs, pt.Pairs, "point %d", pt.Index)
		assert.LessOrEqual(t, pt.Followed, pt.Signals)
	}

	again, err := Sweep(context.Background(), data, grid, match)
	require.NoError(t, err)
	assert.Equal(t, points, again)
}

func TestSweepErrors(t *testing.T) {
	match := DefaultParams().Match

	t.Run("invalid grid point", func(t *testing.T) {
		grid := Grid(DefaultParams().Signal, []float64{1.3, 1}, nil, nil)
		_, err := Sweep(context.Background(), scenarioDataset(), grid, match)
		var verr *ValidationError
		require.True(t, errors.As(err, &verr), "got %v", err)
		assert.Equal(t, "signal.money_multiplier", verr.Field)
		assert.Contains(t, err.Error(), "grid point 1")
	})

	t.Run("contract violation", func(t *testing.T) {
		data := scenarioDataset()
		data["B"][3].Close = 0
		_, err := Sweep(context.Background(), data, []SignalParams{DefaultParams().Signal}, match)
		assert.True(t, errors.Is(err, ErrPrecondition))
	})

	t.Run("empty grid", func(t *testing.T) {
		points, err := Sweep(context.Background(), scenarioDataset(), nil, match)
		require.NoError(t, err)
		assert.NotNil(t, points)
		assert.Empty(t, points)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Sweep(ctx, scenarioDataset(), []SignalParams{DefaultParams().Signal}, match)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}
