package leaderflow

// IsLeader reports whether a bar's state satisfies the leader predicate:
// institutional buying above its trailing baseline and an absolute floor,
// net buying, a 1-minute return above the floor, and a new daily or
// 30-observation high. The first bar of a series never qualifies.
func (p SignalParams) IsLeader(s SeriesState) bool {
	return s.HasReturn &&
		s.LargeTotal > s.LargeTotalMA30*p.MoneyMultiplier &&
		s.LargeTotal > p.MinAmount &&
		s.LargeNet > 0 &&
		s.Return1Min > p.MinPriceChange &&
		(s.IsDailyHigh || s.Is30MinHigh)
}

// IsEnhanced reports whether a leader bar also clears the enhanced
// multiplier while making a strict new daily high.
func (p SignalParams) IsEnhanced(s SeriesState) bool {
	return p.IsLeader(s) &&
		s.LargeTotal > s.LargeTotalMA30*p.Enhanced() &&
		s.IsDailyHigh
}

// Holds re-evaluates the leader predicate on a signal's snapshot.
func (p SignalParams) Holds(sig LeaderSignal) bool {
	return p.IsLeader(sig.state())
}

func (sig LeaderSignal) state() SeriesState {
	return SeriesState{
		Timestamp:      sig.Timestamp,
		Close:          sig.Close,
		Return1Min:     sig.Return1Min,
		HasReturn:      true,
		LargeTotal:     sig.LargeTotal,
		LargeNet:       sig.LargeNet,
		LargeTotalMA30: sig.LargeTotalMA30,
		IsDailyHigh:    sig.IsDailyHigh,
		Is30MinHigh:    sig.Is30MinHigh,
	}
}

// IdentifySignals flags the leader minutes of every symbol using only that
// symbol's own series. Output is in canonical (timestamp, symbol) order.
func IdentifySignals(series SeriesSet, p SignalParams) []LeaderSignal {
	var signals []LeaderSignal

	for symbol, states := range series {
		for _, s := range states {
			if !p.IsLeader(s) {
				continue
			}
			signals = append(signals, LeaderSignal{
				Symbol:         symbol,
				Timestamp:      s.Timestamp,
				Close:          s.Close,
				LargeTotal:     s.LargeTotal,
				LargeNet:       s.LargeNet,
				Return1Min:     s.Return1Min,
				LargeTotalMA30: s.LargeTotalMA30,
				DailyHigh:      s.DailyHigh,
				DailyLow:       s.DailyLow,
				IsDailyHigh:    s.IsDailyHigh,
				Is30MinHigh:    s.Is30MinHigh,
				IsEnhanced:     p.IsEnhanced(s),
			})
		}
	}

	sortSignals(signals)
	return signals
}

// CountEnhanced returns how many signals are enhanced.
func CountEnhanced(signals []LeaderSignal) int {
	n := 0
	for _, sig := range signals {
		if sig.IsEnhanced {
			n++
		}
	}
	return n
}
