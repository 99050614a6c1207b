package leaderflow

import (
	"sort"
	"time"
)

// RollingWindow is the number of trailing observations used for the
// large-order moving average and the short-term high.
const RollingWindow = 30

// EnhancedFactor scales MoneyMultiplier when no explicit enhanced multiplier is configured.
const EnhancedFactor = 1.5

// MinuteBar is one observation for one stock at one minute.
// Flow fields are per-minute monetary amounts, not cumulative.
type MinuteBar struct {
	Symbol     string    `json:"symbol"`
	Timestamp  time.Time `json:"timestamp"`
	Close      float64   `json:"close_price"`
	Volume     int64     `json:"volume"`
	MediumBuy  float64   `json:"medium_buy"`
	LargeBuy   float64   `json:"large_buy"`
	XLargeBuy  float64   `json:"xlarge_buy"`
	MediumSell float64   `json:"medium_sell"`
	LargeSell  float64   `json:"large_sell"`
	XLargeSell float64   `json:"xlarge_sell"`
}

// LargeTotal is the institutional buy amount (large + extra-large).
func (b MinuteBar) LargeTotal() float64 {
	return b.LargeBuy + b.XLargeBuy
}

// LargeNet is institutional buys minus institutional sells.
func (b MinuteBar) LargeNet() float64 {
	return (b.LargeBuy + b.XLargeBuy) - (b.LargeSell + b.XLargeSell)
}

// Dataset maps a symbol to its bar sequence, sorted ascending by timestamp.
type Dataset map[string][]MinuteBar

// Symbols returns the dataset's symbols in lexical order.
func (d Dataset) Symbols() []string {
	symbols := make([]string, 0, len(d))
	for symbol := range d {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// Bars returns the total number of bars across all symbols.
func (d Dataset) Bars() int {
	n := 0
	for _, bars := range d {
		n += len(bars)
	}
	return n
}

// SeriesState is the derived rolling state of one bar, computed from the
// symbol's history up to and including that bar.
type SeriesState struct {
	Timestamp      time.Time `json:"timestamp"`
	Close          float64   `json:"close_price"`
	Return1Min     float64   `json:"return_1min"`
	HasReturn      bool      `json:"has_return"` // false on the first bar
	LargeTotal     float64   `json:"large_total"`
	LargeNet       float64   `json:"large_net"`
	LargeTotalMA30 float64   `json:"large_total_ma30"`
	DailyHigh      float64   `json:"daily_high"`
	DailyLow       float64   `json:"daily_low"`
	RollingMax30   float64   `json:"rolling_max_30min"`
	IsDailyHigh    bool      `json:"is_daily_high"`
	Is30MinHigh    bool      `json:"is_30min_high"`
}

// SeriesSet holds the derived series of every symbol in a dataset.
type SeriesSet map[string][]SeriesState

// LeaderSignal is a flagged minute for one symbol, with a snapshot of the
// values the predicate was evaluated on.
type LeaderSignal struct {
	Symbol         string    `json:"symbol"`
	Timestamp      time.Time `json:"timestamp"`
	Close          float64   `json:"close_price"`
	LargeTotal     float64   `json:"large_total"`
	LargeNet       float64   `json:"large_net"`
	Return1Min     float64   `json:"return_1min"`
	LargeTotalMA30 float64   `json:"large_total_ma30"`
	DailyHigh      float64   `json:"daily_high"`
	DailyLow       float64   `json:"daily_low"`
	IsDailyHigh    bool      `json:"is_daily_high"`
	Is30MinHigh    bool      `json:"is_30min_high"`
	IsEnhanced     bool      `json:"is_enhanced"`
}

// RangePct is the day's close range up to the signal, as a percentage of the
// day's low.
func (s LeaderSignal) RangePct() float64 {
	if s.DailyLow <= 0 {
		return 0
	}
	return (s.DailyHigh - s.DailyLow) / s.DailyLow * 100
}

// Pair is one observed follower response to a leader signal.
type Pair struct {
	LeaderSymbol         string       `json:"leader_symbol"`
	LeaderTime           time.Time    `json:"leader_time"`
	FollowerSymbol       string       `json:"follower_symbol"`
	FollowerTime         time.Time    `json:"follower_time"`
	TimeLagMinutes       float64      `json:"time_lag_minutes"`
	FollowerGainPct      float64      `json:"follower_gain_pct"`
	FollowerBasePrice    float64      `json:"follower_base_price"`
	FollowerTriggerPrice float64      `json:"follower_trigger_price"`
	LeaderClose          float64      `json:"leader_close"`
	LeaderReturnPct      float64      `json:"leader_return_pct"`
	IsEnhanced           bool         `json:"is_enhanced"`
	Leader               LeaderSignal `json:"leader"`
}

// RunStats describes the size and duration of one engine run.
type RunStats struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Symbols   int           `json:"symbols"`
	Bars      int           `json:"bars"`
	Signals   int           `json:"signals"`
	Enhanced  int           `json:"enhanced"`
	Pairs     int           `json:"pairs"`
}

// Result is the complete output of one engine run.
type Result struct {
	RunID   string         `json:"run_id"`
	Params  Params         `json:"params"`
	Signals []LeaderSignal `json:"signals"`
	Pairs   []Pair         `json:"pairs"`
	Summary *Summary       `json:"summary"`
	Stats   RunStats       `json:"stats"`
}

// sortSignals puts signals in canonical (timestamp, symbol) order.
func sortSignals(signals []LeaderSignal) {
	sort.SliceStable(signals, func(i, j int) bool {
		if !signals[i].Timestamp.Equal(signals[j].Timestamp) {
			return signals[i].Timestamp.Before(signals[j].Timestamp)
		}
		return signals[i].Symbol < signals[j].Symbol
	})
}

// sortPairs puts pairs in canonical (leader time, leader, follower) order.
func sortPairs(pairs []Pair) {
	sort.SliceStable(pairs, func(i, j int) bool {
		a, b := pairs[i], pairs[j]
		if !a.LeaderTime.Equal(b.LeaderTime) {
			return a.LeaderTime.Before(b.LeaderTime)
		}
		if a.LeaderSymbol != b.LeaderSymbol {
			return a.LeaderSymbol < b.LeaderSymbol
		}
		return a.FollowerSymbol < b.FollowerSymbol
	})
}
