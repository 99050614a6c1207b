package leaderflow

import (
	"math/rand"
	"time"
)

var tpe = time.FixedZone("CST", 8*3600)

func at(day, hour, minute int) time.Time {
	return time.Date(2024, time.March, day, hour, minute, 0, 0, tpe)
}

func bar(symbol string, ts time.Time, close, largeBuy float64) MinuteBar {
	return MinuteBar{
		Symbol:    symbol,
		Timestamp: ts,
		Close:     close,
		Volume:    10,
		LargeBuy:  largeBuy,
	}
}

// scenarioDataset has one clear leader minute for A at 09:36 and a follower
// B that reaches +1% at 09:40.
func scenarioDataset() Dataset {
	var a, b []MinuteBar
	start := at(4, 9, 1)
	for i := 0; i < 60; i++ {
		ts := start.Add(time.Duration(i) * time.Minute)

		aClose, aFlow := 100.0, 100_000.0
		if i >= 35 {
			aClose = 101
		}
		if i == 35 {
			aFlow = 10_000_000
		}
		a = append(a, bar("A", ts, aClose, aFlow))

		bClose := 50.0
		if i >= 39 {
			bClose = 50.5
		}
		b = append(b, bar("B", ts, bClose, 50_000))
	}
	return Dataset{"A": a, "B": b}
}

// randomDataset builds a reproducible sector of drifting prices with
// occasional institutional bursts across two trading days.
func randomDataset(seed int64, symbols []string, perDay int) Dataset {
	rng := rand.New(rand.NewSource(seed))
	data := make(Dataset, len(symbols))
	for _, symbol := range symbols {
		price := 50 + rng.Float64()*50
		var bars []MinuteBar
		for day := 4; day <= 5; day++ {
			start := at(day, 9, 1)
			for i := 0; i < perDay; i++ {
				price *= 1 + (rng.Float64()*0.003 - 0.001)
				flow := 200_000 + rng.Float64()*800_000
				if rng.Float64() < 0.06 {
					price *= 1.01
					flow = 8_000_000 + rng.Float64()*4_000_000
				}
				bars = append(bars, MinuteBar{
					Symbol:     symbol,
					Timestamp:  start.Add(time.Duration(i) * time.Minute),
					Close:      price,
					Volume:     int64(rng.Intn(500)),
					MediumBuy:  rng.Float64() * 300_000,
					LargeBuy:   flow * 0.6,
					XLargeBuy:  flow * 0.4,
					MediumSell: rng.Float64() * 300_000,
					LargeSell:  rng.Float64() * 200_000,
					XLargeSell: rng.Float64() * 100_000,
				})
			}
		}
		data[symbol] = bars
	}
	return data
}
