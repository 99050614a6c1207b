package leaderflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineRunScenario(t *testing.T) {
	engine := NewEngine(DefaultParams(), testLogger())

	result, err := engine.Run(context.Background(), scenarioDataset())
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	require.Len(t, result.Signals, 1)
	sig := result.Signals[0]
	assert.Equal(t, "A", sig.Symbol)
	assert.Equal(t, at(4, 9, 36), sig.Timestamp)
	assert.True(t, sig.IsDailyHigh)
	assert.True(t, sig.IsEnhanced)
	assert.Equal(t, 100.0, sig.DailyLow)
	assert.Equal(t, 101.0, sig.DailyHigh)
	assert.InDelta(t, 1.0, sig.RangePct(), 1e-9)

	require.Len(t, result.Pairs, 1)
	pair := result.Pairs[0]
	assert.Equal(t, "B", pair.FollowerSymbol)
	assert.Equal(t, at(4, 9, 40), pair.FollowerTime)
	assert.InDelta(t, 4.0, pair.TimeLagMinutes, 1e-9)
	assert.InDelta(t, 1.0, pair.FollowerGainPct, 1e-9)
	assert.True(t, pair.IsEnhanced)

	require.NotNil(t, result.Summary)
	assert.Equal(t, 1, result.Summary.Global.TotalPairs)
	leader, ok := result.Summary.TopLeader()
	require.True(t, ok)
	assert.Equal(t, "A", leader.Symbol)

	assert.Equal(t, RunStats{
		StartedAt: result.Stats.StartedAt,
		Duration:  result.Stats.Duration,
		Symbols:   2,
		Bars:      120,
		Signals:   1,
		Enhanced:  1,
		Pairs:     1,
	}, result.Stats)
}

func TestEngineRunEmpty(t *testing.T) {
	engine := NewEngine(DefaultParams(), testLogger())

	for name, data := range map[string]Dataset{
		"nil":         nil,
		"no symbols":  {},
		"flat series": {"A": {bar("A", at(4, 9, 1), 10, 0), bar("A", at(4, 9, 2), 10, 0)}},
	} {
		t.Run(name, func(t *testing.T) {
			result, err := engine.Run(context.Background(), data)
			require.NoError(t, err)
			assert.Empty(t, result.Signals)
			assert.Empty(t, result.Pairs)
			require.NotNil(t, result.Summary)
			assert.True(t, result.Summary.Empty())
		})
	}
}

func TestEngineRunErrors(t *testing.T) {
	t.Run("invalid params fail before scanning", func(t *testing.T) {
		params := DefaultParams()
		params.Match.MaxLagMinutes = -1
		_, err := NewEngine(params, testLogger()).Run(context.Background(), scenarioDataset())

		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "match.max_lag_minutes", verr.Field)
	})

	t.Run("contract violation", func(t *testing.T) {
		data := scenarioDataset()
		data["A"][10].Timestamp = data["A"][9].Timestamp
		_, err := NewEngine(DefaultParams(), testLogger()).Run(context.Background(), data)
		assert.True(t, errors.Is(err, ErrPrecondition))
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewEngine(DefaultParams(), testLogger()).Run(ctx, scenarioDataset())
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

func TestEngineProperties(t *testing.T) {
	symbols := []string{"2330", "2303", "3037", "8046", "6274"}
	params := DefaultParams()
	params.Signal.MinAmount = 1_000_000
	params.Match.MinGain = 0.3

	for _, seed := range []int64{1, 7, 42} {
		data := randomDataset(seed, symbols, 270)

		sequential, err := NewEngine(params, testLogger()).Run(context.Background(), data)
		require.NoError(t, err)

		t.Run("deterministic", func(t *testing.T) {
			again, err := NewEngine(params, testLogger()).Run(context.Background(), data)
			require.NoError(t, err)
			assert.Equal(t, sequential.Signals, again.Signals)
			assert.Equal(t, sequential.Pairs, again.Pairs)
			assert.Equal(t, sequential.Summary, again.Summary)
		})

		t.Run("parallel matches sequential", func(t *testing.T) {
			parallel := params
			parallel.Match.Workers = 3
			got, err := NewEngine(parallel, testLogger()).Run(context.Background(), data)
			require.NoError(t, err)
			assert.Equal(t, sequential.Pairs, got.Pairs)
		})

		t.Run("signals satisfy the predicate", func(t *testing.T) {
			for _, sig := range sequential.Signals {
				assert.True(t, params.Signal.Holds(sig), "%s at %s", sig.Symbol, sig.Timestamp)
				if sig.IsEnhanced {
					assert.True(t, sig.IsDailyHigh)
					assert.Greater(t, sig.LargeTotal, sig.LargeTotalMA30*params.Signal.Enhanced())
				}
			}
		})

		t.Run("pairs respect the window and first passage", func(t *testing.T) {
			window := time.Duration(params.Match.MaxLagMinutes) * time.Minute
			for _, pair := range sequential.Pairs {
				assert.NotEqual(t, pair.LeaderSymbol, pair.FollowerSymbol)
				assert.Greater(t, pair.TimeLagMinutes, 0.0)
				assert.LessOrEqual(t, pair.TimeLagMinutes, float64(params.Match.MaxLagMinutes))
				assert.GreaterOrEqual(t, pair.FollowerGainPct, params.Match.MinGain)

				for _, b := range data[pair.FollowerSymbol] {
					if !b.Timestamp.After(pair.LeaderTime) || !b.Timestamp.Before(pair.FollowerTime) {
						continue
					}
					gain := (b.Close - pair.FollowerBasePrice) / pair.FollowerBasePrice * 100
					assert.Less(t, gain, params.Match.MinGain, "earlier crossing at %s", b.Timestamp)
				}
				assert.False(t, pair.FollowerTime.After(pair.LeaderTime.Add(window)))
			}
		})

		t.Run("canonical order", func(t *testing.T) {
			for i := 1; i < len(sequential.Signals); i++ {
				prev, cur := sequential.Signals[i-1], sequential.Signals[i]
				assert.False(t, cur.Timestamp.Before(prev.Timestamp))
			}
			for i := 1; i < len(sequential.Pairs); i++ {
				prev, cur := sequential.Pairs[i-1], sequential.Pairs[i]
				assert.False(t, cur.LeaderTime.Before(prev.LeaderTime))
			}
		})
	}
}

func TestEnhancedSubset(t *testing.T) {
	data := randomDataset(99, []string{"A", "B", "C"}, 200)
	params := DefaultParams()
	params.Signal.MinAmount = 1_000_000

	series := ComputeAll(data)
	signals := IdentifySignals(series, params.Signal)

	flagged := make(map[string]bool)
	for _, sig := range signals {
		flagged[sig.Symbol+sig.Timestamp.String()] = true
	}
	for symbol, states := range series {
		for _, s := range states {
			if params.Signal.IsEnhanced(s) {
				assert.True(t, flagged[symbol+s.Timestamp.String()])
			}
		}
	}
}
