package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"sectorflow/internal/leaderflow"
)

// LoadOptions select the bars of one sector.
type LoadOptions struct {
	CSVDir    string
	SectorDir string
	Sector    string
	Stocks    []string // overrides the sector list when set
	Periods   []Period
	Session   Session
	Location  *time.Location
}

// LoadStats describes what a load read and dropped.
type LoadStats struct {
	Stocks      int `json:"stocks"`
	Dates       int `json:"dates"`
	Files       int `json:"files"`
	Rows        int `json:"rows"`
	Skipped     int `json:"skipped"`
	OutsideHour int `json:"outside_session"`
	Duplicates  int `json:"duplicates"`
	Bars        int `json:"bars"`
}

// Loader assembles datasets from converted bar files.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger.With(slog.String("component", "marketdata"))}
}

// SectorStocks resolves the stock list for opts.
func (l *Loader) SectorStocks(opts LoadOptions) ([]string, error) {
	if len(opts.Stocks) > 0 {
		return opts.Stocks, nil
	}
	return ReadSectorFile(SectorPath(opts.SectorDir, opts.Sector))
}

// LoadSector reads every bar of the sector's stocks for the requested
// periods, keeps the trading session, drops duplicate (symbol, timestamp)
// rows keeping the first, and sorts each symbol ascending.
func (l *Loader) LoadSector(ctx context.Context, opts LoadOptions) (leaderflow.Dataset, LoadStats, error) {
	var stats LoadStats
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	stocks, err := l.SectorStocks(opts)
	if err != nil {
		return nil, stats, err
	}
	stats.Stocks = len(stocks)

	dates, err := TradingDates(opts.CSVDir, stocks, opts.Periods)
	if err != nil {
		return nil, stats, fmt.Errorf("discover trading dates: %w", err)
	}
	stats.Dates = len(dates)

	l.logger.InfoContext(ctx, "loading sector data",
		"sector", opts.Sector,
		"stocks", len(stocks),
		"dates", len(dates),
	)

	data := make(leaderflow.Dataset)
	seen := make(map[string]map[int64]bool)

	for _, date := range dates {
		for _, stock := range stocks {
			if err := ctx.Err(); err != nil {
				return nil, stats, fmt.Errorf("load sector %s: %w", opts.Sector, err)
			}

			files, err := filepath.Glob(filepath.Join(opts.CSVDir, stock, "*"+date+"*.csv"))
			if err != nil {
				return nil, stats, fmt.Errorf("glob %s/%s: %w", stock, date, err)
			}
			sort.Strings(files)

			for _, file := range files {
				bars, skipped, err := LoadBarsCSV(file, loc, l.logger)
				if err != nil {
					l.logger.WarnContext(ctx, "skipping bar file", "file", file, "error", err)
					continue
				}
				stats.Files++
				stats.Rows += len(bars) + skipped
				stats.Skipped += skipped

				for _, bar := range bars {
					if !opts.Session.Contains(bar.Timestamp) {
						stats.OutsideHour++
						continue
					}
					keys := seen[bar.Symbol]
					if keys == nil {
						keys = make(map[int64]bool)
						seen[bar.Symbol] = keys
					}
					key := bar.Timestamp.Unix()
					if keys[key] {
						stats.Duplicates++
						continue
					}
					keys[key] = true
					data[bar.Symbol] = append(data[bar.Symbol], bar)
				}
			}
		}
	}

	for symbol, bars := range data {
		sort.SliceStable(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
		data[symbol] = bars
		stats.Bars += len(bars)
	}

	if stats.Bars == 0 {
		return nil, stats, fmt.Errorf("%w: sector %s", ErrNoData, opts.Sector)
	}

	l.logger.InfoContext(ctx, "sector data loaded",
		"sector", opts.Sector,
		"symbols", len(data),
		"bars", stats.Bars,
		"files", stats.Files,
		"skipped", stats.Skipped,
		"outside_session", stats.OutsideHour,
		"duplicates", stats.Duplicates,
	)

	return data, stats, nil
}
