package services

import (
	"context"
	"fmt"
	"time"

	"sectorflow/internal/leaderflow"
	"sectorflow/internal/marketdata"
)

// SweepRequest selects one sector and the signal thresholds to try. An
// empty axis keeps the configured value.
type SweepRequest struct {
	Sector           string    `json:"sector" validate:"required"`
	Start            string    `json:"start" validate:"required,len=6,numeric"`
	End              string    `json:"end" validate:"required,len=6,numeric"`
	Stocks           []string  `json:"stocks,omitempty"`
	MoneyMultipliers []float64 `json:"money_multipliers,omitempty"`
	MinAmounts       []float64 `json:"min_amounts,omitempty"`
	MinPriceChanges  []float64 `json:"min_price_changes,omitempty"`
}

// SweepResult is a ranked threshold sweep over one sector.
type SweepResult struct {
	Sector   string                  `json:"sector"`
	Load     marketdata.LoadStats    `json:"load"`
	Match    leaderflow.MatchParams  `json:"match"`
	Points   []leaderflow.SweepPoint `json:"points"`
	Duration time.Duration           `json:"duration"`
}

// Sweep loads the sector once and ranks every threshold combination of the
// request. Nothing is written to disk.
func (s *AnalysisService) Sweep(ctx context.Context, req SweepRequest) (*SweepResult, error) {
	start := time.Now()

	periods, err := marketdata.ParsePeriodRange(req.Start, req.End)
	if err != nil {
		return nil, err
	}

	grid := leaderflow.Grid(s.settings.Params.Signal, req.MoneyMultipliers, req.MinAmounts, req.MinPriceChanges)
	match := s.settings.Params.Match

	dataset, load, err := s.loader.LoadSector(ctx, marketdata.LoadOptions{
		CSVDir:    s.settings.Paths.CSVDir,
		SectorDir: s.settings.Paths.SectorDir,
		Sector:    req.Sector,
		Stocks:    req.Stocks,
		Periods:   periods,
		Session:   s.settings.Session,
		Location:  s.settings.Location,
	})
	if err != nil {
		return nil, err
	}

	points, err := leaderflow.Sweep(ctx, dataset, grid, match)
	if err != nil {
		return nil, fmt.Errorf("sweep %s: %w", req.Sector, err)
	}

	out := &SweepResult{
		Sector:   req.Sector,
		Load:     load,
		Match:    match,
		Points:   points,
		Duration: time.Since(start),
	}

	attrs := []interface{}{
		"sector", req.Sector,
		"points", len(points),
		"bars", load.Bars,
		"duration", out.Duration,
	}
	if len(points) > 0 {
		best := points[0]
		attrs = append(attrs,
			"best_money_multiplier", best.Params.MoneyMultiplier,
			"best_min_amount", best.Params.MinAmount,
			"best_min_price_change", best.Params.MinPriceChange,
			"best_score", best.Score,
		)
	}
	s.logger.InfoContext(ctx, "threshold sweep finished", attrs...)
	return out, nil
}
