package exporter

import (
	"strconv"
)

// FormatFloat formats a value with a fixed number of decimals.
func FormatFloat(f float64, decimals int) string {
	return strconv.FormatFloat(f, 'f', decimals, 64)
}

// FormatNumber uses the fewest digits that round-trip, so 1500000 stays
// 1500000 and 0.25 stays 0.25.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
