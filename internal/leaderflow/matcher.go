package leaderflow

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// MatchFollowers scans, for every signal and every other symbol, the
// follower's bars in (t, t+MaxLagMinutes] and records the first bar whose
// gain over the follower's last price at or before t reaches MinGain.
//
// Each (signal, follower) combination is evaluated independently because the
// base price depends on the signal time. A follower with no bar at or before
// the signal is skipped. With Workers > 1 the followers are partitioned across
// goroutines; the result is identical to the sequential scan.
func MatchFollowers(ctx context.Context, signals []LeaderSignal, data Dataset, p MatchParams) ([]Pair, error) {
	symbols := data.Symbols()
	if len(signals) == 0 || len(symbols) < 2 {
		return []Pair{}, nil
	}

	ordered := make([]LeaderSignal, len(signals))
	copy(ordered, signals)
	sortSignals(ordered)

	workers := p.Workers
	if workers > len(symbols) {
		workers = len(symbols)
	}

	var pairs []Pair
	if workers <= 1 {
		var err error
		pairs, err = matchPartition(ctx, ordered, data, symbols, p)
		if err != nil {
			return nil, err
		}
	} else {
		partitions := make([][]Pair, workers)
		g, gctx := errgroup.WithContext(ctx)
		for w := 0; w < workers; w++ {
			var followers []string
			for i := w; i < len(symbols); i += workers {
				followers = append(followers, symbols[i])
			}
			g.Go(func() error {
				found, err := matchPartition(gctx, ordered, data, followers, p)
				if err != nil {
					return err
				}
				partitions[w] = found
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		for _, part := range partitions {
			pairs = append(pairs, part...)
		}
	}

	if pairs == nil {
		pairs = []Pair{}
	}
	sortPairs(pairs)
	return pairs, nil
}

// matchPartition runs the signal × follower scan for a subset of followers.
func matchPartition(ctx context.Context, signals []LeaderSignal, data Dataset, followers []string, p MatchParams) ([]Pair, error) {
	window := time.Duration(p.MaxLagMinutes) * time.Minute
	var pairs []Pair

	for _, sig := range signals {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("match followers: %w", err)
		}
		for _, follower := range followers {
			if follower == sig.Symbol {
				continue
			}
			if pair, ok := FirstResponse(sig, follower, data[follower], window, p.MinGain); ok {
				pairs = append(pairs, pair)
			}
		}
	}

	return pairs, nil
}

// FirstResponse finds the first-passage response of one follower to one
// signal. bars must be the follower's sorted bar sequence.
func FirstResponse(sig LeaderSignal, follower string, bars []MinuteBar, window time.Duration, minGain float64) (Pair, bool) {
	t := sig.Timestamp

	// first bar strictly after the signal; the one before it is the base
	next := sort.Search(len(bars), func(i int) bool {
		return bars[i].Timestamp.After(t)
	})
	if next == 0 {
		return Pair{}, false
	}
	base := bars[next-1].Close
	end := t.Add(window)

	for _, bar := range bars[next:] {
		if bar.Timestamp.After(end) {
			break
		}
		gain := (bar.Close - base) / base * 100
		if gain >= minGain {
			return Pair{
				LeaderSymbol:         sig.Symbol,
				LeaderTime:           t,
				FollowerSymbol:       follower,
				FollowerTime:         bar.Timestamp,
				TimeLagMinutes:       bar.Timestamp.Sub(t).Seconds() / 60,
				FollowerGainPct:      gain,
				FollowerBasePrice:    base,
				FollowerTriggerPrice: bar.Close,
				LeaderClose:          sig.Close,
				LeaderReturnPct:      sig.Return1Min * 100,
				IsEnhanced:           sig.IsEnhanced,
				Leader:               sig,
			}, true
		}
	}

	return Pair{}, false
}
