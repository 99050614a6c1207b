package leaderflow

import (
	"sort"
)

// GlobalStats summarises every pair of a run.
type GlobalStats struct {
	TotalPairs int     `json:"total_pairs"`
	MeanLag    float64 `json:"mean_lag_minutes"`
	MedianLag  float64 `json:"median_lag_minutes"`
	MeanGain   float64 `json:"mean_gain_pct"`
	MaxGain    float64 `json:"max_gain_pct"`
}

// LeaderStats aggregates the pairs in which a symbol led.
type LeaderStats struct {
	Symbol         string  `json:"symbol"`
	Count          int     `json:"count"`
	MeanLag        float64 `json:"mean_lag_minutes"`
	MeanGain       float64 `json:"mean_gain_pct"`
	MeanLargeTotal float64 `json:"mean_large_total"`
}

// FollowerStats aggregates the pairs in which a symbol followed.
type FollowerStats struct {
	Symbol   string  `json:"symbol"`
	Count    int     `json:"count"`
	MeanLag  float64 `json:"mean_lag_minutes"`
	MeanGain float64 `json:"mean_gain_pct"`
}

// PairStats aggregates one leader → follower combination.
type PairStats struct {
	Leader   string  `json:"leader"`
	Follower string  `json:"follower"`
	Count    int     `json:"count"`
	MeanLag  float64 `json:"mean_lag_minutes"`
	MeanGain float64 `json:"mean_gain_pct"`
}

// SignalCount is the number of signals one symbol produced.
type SignalCount struct {
	Symbol   string `json:"symbol"`
	Signals  int    `json:"signals"`
	Enhanced int    `json:"enhanced"`
}

// Summary is the aggregated view of a run. An empty Summary (no pairs) is a
// valid outcome and is distinct from a nil *Summary (not computed).
type Summary struct {
	Global       GlobalStats     `json:"global"`
	Leaders      []LeaderStats   `json:"leaders"`
	Followers    []FollowerStats `json:"followers"`
	Pairs        []PairStats     `json:"pairs"`
	SignalCounts []SignalCount   `json:"signal_counts"`
}

// Empty reports whether no relationships were found.
func (s *Summary) Empty() bool {
	return s == nil || s.Global.TotalPairs == 0
}

// TopLeader returns the most frequent leader.
func (s *Summary) TopLeader() (LeaderStats, bool) {
	if s == nil || len(s.Leaders) == 0 {
		return LeaderStats{}, false
	}
	return s.Leaders[0], true
}

// BestPair returns the most frequent leader → follower combination.
func (s *Summary) BestPair() (PairStats, bool) {
	if s == nil || len(s.Pairs) == 0 {
		return PairStats{}, false
	}
	return s.Pairs[0], true
}

type accumulator struct {
	count      int
	lag, gain  float64
	largeTotal float64
}

func (a *accumulator) add(p Pair) {
	a.count++
	a.lag += p.TimeLagMinutes
	a.gain += p.FollowerGainPct
	a.largeTotal += p.Leader.LargeTotal
}

func (a *accumulator) mean(v float64) float64 {
	if a.count == 0 {
		return 0
	}
	return v / float64(a.count)
}

type pairKey struct {
	leader, follower string
}

// Aggregate reduces pairs into global, per-leader, per-follower and
// per-pair statistics. Rankings are by descending count, ties broken by the
// ascending key. signals, when given, feed the per-symbol signal counts.
func Aggregate(pairs []Pair, signals []LeaderSignal) *Summary {
	summary := &Summary{
		Leaders:      []LeaderStats{},
		Followers:    []FollowerStats{},
		Pairs:        []PairStats{},
		SignalCounts: countSignals(signals),
	}
	if len(pairs) == 0 {
		return summary
	}

	leaders := make(map[string]*accumulator)
	followers := make(map[string]*accumulator)
	combos := make(map[pairKey]*accumulator)
	lags := make([]float64, 0, len(pairs))

	var gainSum float64
	maxGain := pairs[0].FollowerGainPct

	for _, p := range pairs {
		get(leaders, p.LeaderSymbol).add(p)
		get(followers, p.FollowerSymbol).add(p)
		get(combos, pairKey{p.LeaderSymbol, p.FollowerSymbol}).add(p)

		lags = append(lags, p.TimeLagMinutes)
		gainSum += p.FollowerGainPct
		if p.FollowerGainPct > maxGain {
			maxGain = p.FollowerGainPct
		}
	}

	n := float64(len(pairs))
	var lagSum float64
	for _, l := range lags {
		lagSum += l
	}
	summary.Global = GlobalStats{
		TotalPairs: len(pairs),
		MeanLag:    lagSum / n,
		MedianLag:  median(lags),
		MeanGain:   gainSum / n,
		MaxGain:    maxGain,
	}

	for symbol, acc := range leaders {
		summary.Leaders = append(summary.Leaders, LeaderStats{
			Symbol:         symbol,
			Count:          acc.count,
			MeanLag:        acc.mean(acc.lag),
			MeanGain:       acc.mean(acc.gain),
			MeanLargeTotal: acc.mean(acc.largeTotal),
		})
	}
	sort.Slice(summary.Leaders, func(i, j int) bool {
		a, b := summary.Leaders[i], summary.Leaders[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Symbol < b.Symbol
	})

	for symbol, acc := range followers {
		summary.Followers = append(summary.Followers, FollowerStats{
			Symbol:   symbol,
			Count:    acc.count,
			MeanLag:  acc.mean(acc.lag),
			MeanGain: acc.mean(acc.gain),
		})
	}
	sort.Slice(summary.Followers, func(i, j int) bool {
		a, b := summary.Followers[i], summary.Followers[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Symbol < b.Symbol
	})

	for key, acc := range combos {
		summary.Pairs = append(summary.Pairs, PairStats{
			Leader:   key.leader,
			Follower: key.follower,
			Count:    acc.count,
			MeanLag:  acc.mean(acc.lag),
			MeanGain: acc.mean(acc.gain),
		})
	}
	sort.Slice(summary.Pairs, func(i, j int) bool {
		a, b := summary.Pairs[i], summary.Pairs[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.Leader != b.Leader {
			return a.Leader < b.Leader
		}
		return a.Follower < b.Follower
	})

	return summary
}

func get[K comparable](m map[K]*accumulator, key K) *accumulator {
	acc, ok := m[key]
	if !ok {
		acc = &accumulator{}
		m[key] = acc
	}
	return acc
}

func countSignals(signals []LeaderSignal) []SignalCount {
	counts := make(map[string]*SignalCount)
	for _, sig := range signals {
		c, ok := counts[sig.Symbol]
		if !ok {
			c = &SignalCount{Symbol: sig.Symbol}
			counts[sig.Symbol] = c
		}
		c.Signals++
		if sig.IsEnhanced {
			c.Enhanced++
		}
	}

	out := make([]SignalCount, 0, len(counts))
	for _, c := range counts {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// median of values; values is reordered.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sort.Float64s(values)
	mid := len(values) / 2
	if len(values)%2 == 1 {
		return values[mid]
	}
	return (values[mid-1] + values[mid]) / 2
}
