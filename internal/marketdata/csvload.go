package marketdata

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"sectorflow/internal/leaderflow"
)

// columnAliases maps accepted header spellings to canonical names.
var columnAliases = map[string]string{
	"close":       "close_price",
	"medium_buy":  "med_buy",
	"medium_sell": "med_sell",
}

var requiredColumns = []string{"symbol", "date", "time", "close_price"}

var dateLayouts = []string{"2006/01/02", "2006-01-02", "20060102", "2006/1/2"}

// ParseTimestamp combines a bar file's date and time fields. Times are
// HHMMSS, zero-padded when shorter, or HH:MM:SS.
func ParseTimestamp(date, tm string, loc *time.Location) (time.Time, error) {
	date = strings.TrimSpace(date)
	tm = strings.TrimSpace(tm)

	if strings.Contains(tm, ":") {
		tm = strings.ReplaceAll(tm, ":", "")
	}
	if i := strings.IndexByte(tm, '.'); i >= 0 {
		tm = tm[:i]
	}
	if len(tm) == 0 || len(tm) > 6 {
		return time.Time{}, fmt.Errorf("invalid time %q", tm)
	}
	tm = strings.Repeat("0", 6-len(tm)) + tm

	hh, errH := strconv.Atoi(tm[0:2])
	mm, errM := strconv.Atoi(tm[2:4])
	ss, errS := strconv.Atoi(tm[4:6])
	if errH != nil || errM != nil || errS != nil || hh > 23 || mm > 59 || ss > 59 {
		return time.Time{}, fmt.Errorf("invalid time %q", tm)
	}

	for _, layout := range dateLayouts {
		d, err := time.ParseInLocation(layout, date, loc)
		if err == nil {
			return time.Date(d.Year(), d.Month(), d.Day(), hh, mm, ss, 0, loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", date)
}

// LoadBarsCSV reads one bar file. Rows that fail to parse, carry a close
// that is not a positive number, or a negative amount are skipped with a
// warning and counted; a missing required column is a DataContractError.
func LoadBarsCSV(path string, loc *time.Location, logger *slog.Logger) ([]leaderflow.MinuteBar, int, error) {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read bar file: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if alias, ok := columnAliases[name]; ok {
			if _, taken := index[alias]; taken {
				continue
			}
			name = alias
		}
		index[name] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, 0, &DataContractError{File: filepath.Base(path), Column: col}
		}
	}

	field := func(rec []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}
	amount := func(rec []string, col string) float64 {
		s := strings.TrimSpace(field(rec, col))
		if s == "" {
			return 0
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return v
	}

	var (
		bars    []leaderflow.MinuteBar
		skipped int
		line    = 1
	)
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			skipped++
			logger.Warn("skipping malformed CSV row", "file", filepath.Base(path), "line", line, "error", err)
			continue
		}

		bar, err := parseBar(rec, field, amount, loc)
		if err != nil {
			skipped++
			logger.Warn("skipping malformed CSV row", "file", filepath.Base(path), "line", line, "error", err)
			continue
		}
		bars = append(bars, bar)
	}

	return bars, skipped, nil
}

func parseBar(rec []string, field func([]string, string) string, amount func([]string, string) float64, loc *time.Location) (leaderflow.MinuteBar, error) {
	symbol := NormalizeSymbol(field(rec, "symbol"))
	if symbol == "" {
		return leaderflow.MinuteBar{}, fmt.Errorf("empty symbol")
	}

	ts, err := ParseTimestamp(field(rec, "date"), field(rec, "time"), loc)
	if err != nil {
		return leaderflow.MinuteBar{}, err
	}

	closePrice, err := strconv.ParseFloat(strings.TrimSpace(field(rec, "close_price")), 64)
	if err != nil {
		return leaderflow.MinuteBar{}, fmt.Errorf("parse close_price: %w", err)
	}
	if !finite(closePrice) || closePrice <= 0 {
		return leaderflow.MinuteBar{}, fmt.Errorf("close_price %v must be positive", closePrice)
	}

	volume := amount(rec, "volume")
	b := leaderflow.MinuteBar{
		Symbol:     symbol,
		Timestamp:  ts,
		Close:      closePrice,
		MediumBuy:  amount(rec, "med_buy"),
		LargeBuy:   amount(rec, "large_buy"),
		XLargeBuy:  amount(rec, "xlarge_buy"),
		MediumSell: amount(rec, "med_sell"),
		LargeSell:  amount(rec, "large_sell"),
		XLargeSell: amount(rec, "xlarge_sell"),
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"volume", volume},
		{"med_buy", b.MediumBuy}, {"large_buy", b.LargeBuy}, {"xlarge_buy", b.XLargeBuy},
		{"med_sell", b.MediumSell}, {"large_sell", b.LargeSell}, {"xlarge_sell", b.XLargeSell},
	} {
		if !finite(f.v) || f.v < 0 {
			return leaderflow.MinuteBar{}, fmt.Errorf("%s %v must be a non-negative number", f.name, f.v)
		}
	}
	b.Volume = int64(volume)
	return b, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// NormalizeSymbol trims whitespace and the .TW exchange suffix.
func NormalizeSymbol(s string) string {
	s = strings.TrimSpace(s)
	return strings.TrimSuffix(strings.TrimSuffix(s, ".TW"), ".tw")
}
