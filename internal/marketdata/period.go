package marketdata

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

// Period is a calendar month in YYYYMM form.
type Period struct {
	Year  int
	Month int
}

// ParsePeriod parses a YYYYMM string.
func ParsePeriod(s string) (Period, error) {
	if len(s) != 6 {
		return Period{}, fmt.Errorf("invalid period %q: want YYYYMM", s)
	}
	year, err := strconv.Atoi(s[:4])
	if err != nil {
		return Period{}, fmt.Errorf("invalid period %q: %w", s, err)
	}
	month, err := strconv.Atoi(s[4:])
	if err != nil || month < 1 || month > 12 {
		return Period{}, fmt.Errorf("invalid period %q: month out of range", s)
	}
	return Period{Year: year, Month: month}, nil
}

func (p Period) String() string {
	return fmt.Sprintf("%04d%02d", p.Year, p.Month)
}

// Next returns the following month.
func (p Period) Next() Period {
	if p.Month == 12 {
		return Period{Year: p.Year + 1, Month: 1}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

// After reports whether p is later than o.
func (p Period) After(o Period) bool {
	return p.Year > o.Year || (p.Year == o.Year && p.Month > o.Month)
}

// PeriodRange lists every month from start to end inclusive.
func PeriodRange(start, end Period) ([]Period, error) {
	if start.After(end) {
		return nil, fmt.Errorf("start period %s is after end period %s", start, end)
	}
	var periods []Period
	for p := start; !p.After(end); p = p.Next() {
		periods = append(periods, p)
	}
	return periods, nil
}

// ParsePeriodRange parses and expands a YYYYMM start/end pair.
func ParsePeriodRange(start, end string) ([]Period, error) {
	s, err := ParsePeriod(start)
	if err != nil {
		return nil, err
	}
	e, err := ParsePeriod(end)
	if err != nil {
		return nil, err
	}
	return PeriodRange(s, e)
}

var fileDate = regexp.MustCompile(`(\d{8})\.csv$`)

// TradingDates discovers the YYYYMMDD dates present in bar file names of the
// given stocks within periods, sorted and unique.
func TradingDates(csvDir string, stocks []string, periods []Period) ([]string, error) {
	months := make(map[string]bool, len(periods))
	for _, p := range periods {
		months[p.String()] = true
	}

	seen := make(map[string]bool)
	for _, stock := range stocks {
		entries, err := os.ReadDir(filepath.Join(csvDir, stock))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", stock, err)
		}
		for _, e := range entries {
			m := fileDate.FindStringSubmatch(e.Name())
			if m == nil || !months[m[1][:6]] {
				continue
			}
			seen[m[1]] = true
		}
	}

	dates := make([]string, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates, nil
}
