package leaderflow

// ComputeSeries derives the rolling state of every bar from the bar history
// up to and including it. bars must be sorted ascending with unique timestamps.
//
// The moving average and the short-term high use up to RollingWindow trailing
// observations (fewer at the start of the series). Daily high and low are the
// running extremes of the bar's calendar day, so no bar sees later prices.
func ComputeSeries(bars []MinuteBar) []SeriesState {
	states := make([]SeriesState, len(bars))

	var (
		dayY, dayM, dayD int
		dayHigh, dayLow  float64
	)

	for i, bar := range bars {
		s := SeriesState{
			Timestamp:  bar.Timestamp,
			Close:      bar.Close,
			LargeTotal: bar.LargeTotal(),
			LargeNet:   bar.LargeNet(),
		}

		if i > 0 && bars[i-1].Close > 0 {
			prev := bars[i-1].Close
			s.Return1Min = (bar.Close - prev) / prev
			s.HasReturn = true
		}

		start := i - RollingWindow + 1
		if start < 0 {
			start = 0
		}
		var sum float64
		rollingMax := bars[start].Close
		for j := start; j <= i; j++ {
			sum += bars[j].LargeTotal()
			if bars[j].Close > rollingMax {
				rollingMax = bars[j].Close
			}
		}
		s.LargeTotalMA30 = sum / float64(i-start+1)
		s.RollingMax30 = rollingMax

		y, m, d := bar.Timestamp.Date()
		if i == 0 || y != dayY || int(m) != dayM || d != dayD {
			dayY, dayM, dayD = y, int(m), d
			dayHigh, dayLow = bar.Close, bar.Close
		}
		if bar.Close > dayHigh {
			dayHigh = bar.Close
		}
		if bar.Close < dayLow {
			dayLow = bar.Close
		}
		s.DailyHigh = dayHigh
		s.DailyLow = dayLow

		s.IsDailyHigh = bar.Close >= s.DailyHigh
		s.Is30MinHigh = bar.Close >= s.RollingMax30

		states[i] = s
	}

	return states
}

// ComputeAll derives the series of every symbol in the dataset.
func ComputeAll(data Dataset) SeriesSet {
	set := make(SeriesSet, len(data))
	for symbol, bars := range data {
		set[symbol] = ComputeSeries(bars)
	}
	return set
}
