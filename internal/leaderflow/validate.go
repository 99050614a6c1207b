package leaderflow

import (
	"errors"
	"fmt"
	"math"
)

// ErrPrecondition marks input that breaks the bar data contract.
var ErrPrecondition = errors.New("data contract violated")

// PreconditionError locates a data-contract violation in the input.
type PreconditionError struct {
	Symbol string
	Index  int
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: symbol %s bar %d: %s", ErrPrecondition, e.Symbol, e.Index, e.Reason)
}

// Unwrap lets errors.Is match ErrPrecondition.
func (e *PreconditionError) Unwrap() error {
	return ErrPrecondition
}

// ValidateDataset checks every symbol's bars: matching symbol, strictly
// increasing timestamps, positive close and non-negative flows.
// Symbols are checked in lexical order so the reported violation is stable.
func ValidateDataset(data Dataset) error {
	for _, symbol := range data.Symbols() {
		if symbol == "" {
			return &PreconditionError{Symbol: symbol, Index: -1, Reason: "empty symbol"}
		}
		if err := validateBars(symbol, data[symbol]); err != nil {
			return err
		}
	}
	return nil
}

func validateBars(symbol string, bars []MinuteBar) error {
	for i, bar := range bars {
		fail := func(format string, args ...interface{}) error {
			return &PreconditionError{Symbol: symbol, Index: i, Reason: fmt.Sprintf(format, args...)}
		}

		if bar.Symbol != "" && bar.Symbol != symbol {
			return fail("bar carries symbol %q", bar.Symbol)
		}
		if bar.Timestamp.IsZero() {
			return fail("missing timestamp")
		}
		if i > 0 && !bar.Timestamp.After(bars[i-1].Timestamp) {
			if bar.Timestamp.Equal(bars[i-1].Timestamp) {
				return fail("duplicate timestamp %s", bar.Timestamp.Format("2006-01-02 15:04:05"))
			}
			return fail("timestamp %s before previous bar", bar.Timestamp.Format("2006-01-02 15:04:05"))
		}
		if !finite(bar.Close) || bar.Close <= 0 {
			return fail("close price %v must be positive", bar.Close)
		}
		if bar.Volume < 0 {
			return fail("negative volume %d", bar.Volume)
		}

		flows := [...]struct {
			name  string
			value float64
		}{
			{"medium_buy", bar.MediumBuy},
			{"large_buy", bar.LargeBuy},
			{"xlarge_buy", bar.XLargeBuy},
			{"medium_sell", bar.MediumSell},
			{"large_sell", bar.LargeSell},
			{"xlarge_sell", bar.XLargeSell},
		}
		for _, f := range flows {
			if !finite(f.value) || f.value < 0 {
				return fail("%s %v must be a non-negative amount", f.name, f.value)
			}
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
