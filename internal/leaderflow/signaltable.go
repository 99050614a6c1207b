package leaderflow

import (
	"sort"
	"time"
)

// SignalRow is one numbered leader → follower event of a trading day.
type SignalRow struct {
	No             int       `json:"no"`
	Leader         string    `json:"leader"`
	LeaderTime     time.Time `json:"leader_time"`
	Follower       string    `json:"follower"`
	FollowerTime   time.Time `json:"follower_time"`
	TimeLagMinutes float64   `json:"time_lag_minutes"`
	GainPct        float64   `json:"gain_pct"`
	IsEnhanced     bool      `json:"is_enhanced"`
}

// SignalTable numbers the pairs whose leader signal falls on day 1..n in
// canonical order. Only the date part of day is used.
func SignalTable(pairs []Pair, day time.Time) []SignalRow {
	y, m, d := day.Date()

	ordered := make([]Pair, 0, len(pairs))
	for _, p := range pairs {
		py, pm, pd := p.LeaderTime.Date()
		if py == y && pm == m && pd == d {
			ordered = append(ordered, p)
		}
	}
	sortPairs(ordered)

	rows := make([]SignalRow, len(ordered))
	for i, p := range ordered {
		rows[i] = SignalRow{
			No:             i + 1,
			Leader:         p.LeaderSymbol,
			LeaderTime:     p.LeaderTime,
			Follower:       p.FollowerSymbol,
			FollowerTime:   p.FollowerTime,
			TimeLagMinutes: p.TimeLagMinutes,
			GainPct:        p.FollowerGainPct,
			IsEnhanced:     p.IsEnhanced,
		}
	}
	return rows
}

// TradingDays returns the distinct calendar days on which pairs were
// signalled, ascending.
func TradingDays(pairs []Pair) []time.Time {
	seen := make(map[string]bool)
	var days []time.Time
	for _, p := range pairs {
		y, m, d := p.LeaderTime.Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, p.LeaderTime.Location())
		key := day.Format("20060102")
		if seen[key] {
			continue
		}
		seen[key] = true
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}
