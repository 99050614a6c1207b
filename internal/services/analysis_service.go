package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"sectorflow/internal/config"
	"sectorflow/internal/leaderflow"
	"sectorflow/internal/marketdata"
	"sectorflow/internal/reporting"
)

// Settings are the inputs every analysis shares.
type Settings struct {
	Paths    *config.Paths
	Params   leaderflow.Params
	Session  marketdata.Session
	Location *time.Location
}

// SettingsFromConfig resolves paths, thresholds and the session from cfg.
func SettingsFromConfig(cfg *config.Config) (Settings, error) {
	paths, err := cfg.Paths.Resolve()
	if err != nil {
		return Settings{}, err
	}
	session, err := cfg.Session.Session()
	if err != nil {
		return Settings{}, err
	}
	loc, err := cfg.Session.Location()
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		Paths:    paths,
		Params:   cfg.Analysis.Params(),
		Session:  session,
		Location: loc,
	}, nil
}

// AnalysisRequest selects one sector and period range.
type AnalysisRequest struct {
	Sector string             `json:"sector" validate:"required"`
	Start  string             `json:"start" validate:"required,len=6,numeric"`
	End    string             `json:"end" validate:"required,len=6,numeric"`
	Stocks []string           `json:"stocks,omitempty"`
	Params *leaderflow.Params `json:"params,omitempty"`
	// DryRun skips writing the output files.
	DryRun bool `json:"dry_run,omitempty"`
}

// AnalysisResult is a finished sector analysis.
type AnalysisResult struct {
	Sector    string               `json:"sector"`
	Meta      reporting.Meta       `json:"meta"`
	Load      marketdata.LoadStats `json:"load"`
	Result    *leaderflow.Result   `json:"result"`
	Report    string               `json:"report"`
	OutputDir string               `json:"output_dir,omitempty"`
	Files     []string             `json:"files,omitempty"`
	Duration  time.Duration        `json:"duration"`
}

// AnalysisService loads a sector, runs the engine and persists the results.
type AnalysisService struct {
	settings Settings
	loader   *marketdata.Loader
	logger   *slog.Logger
}

// NewAnalysisService creates the service.
func NewAnalysisService(settings Settings, logger *slog.Logger) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisService{
		settings: settings,
		loader:   marketdata.NewLoader(logger),
		logger:   logger.With(slog.String("service", "analysis")),
	}
}

// Settings returns the shared analysis inputs.
func (s *AnalysisService) Settings() Settings {
	return s.settings
}

// Sectors lists the available sector names.
func (s *AnalysisService) Sectors() ([]string, error) {
	return marketdata.ListSectors(s.settings.Paths.SectorDir)
}

// Analyze runs one sector end to end. A sector without bars returns an
// error wrapping marketdata.ErrNoData; a sector without pairs is a normal
// result whose summary is empty.
func (s *AnalysisService) Analyze(ctx context.Context, req AnalysisRequest) (*AnalysisResult, error) {
	start := time.Now()

	periods, err := marketdata.ParsePeriodRange(req.Start, req.End)
	if err != nil {
		return nil, err
	}

	params := s.settings.Params
	if req.Params != nil {
		params = params.Merge(*req.Params)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	engine := leaderflow.NewEngine(params, s.logger)

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

	result, err := engine.Run(ctx, dataset)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", req.Sector, err)
	}

	meta := reporting.Meta{
		Sector:      req.Sector,
		Start:       req.Start,
		End:         req.End,
		GeneratedAt: time.Now(),
	}
	out := &AnalysisResult{
		Sector: req.Sector,
		Meta:   meta,
		Load:   load,
		Result: result,
		Report: reporting.BuildReport(meta, result),
	}

	if !req.DryRun {
		out.OutputDir = s.settings.Paths.SectorOutputDir(marketdata.OutputName(req.Sector))
		out.Files, err = reporting.SaveResults(ctx, out.OutputDir, meta, result, s.logger)
		if err != nil {
			return nil, fmt.Errorf("save %s: %w", req.Sector, err)
		}
	}

	out.Duration = time.Since(start)
	s.logger.InfoContext(ctx, "sector analysed",
		"sector", req.Sector,
		"run_id", result.RunID,
		"bars", load.Bars,
		"signals", result.Stats.Signals,
		"pairs", result.Stats.Pairs,
		"duration", out.Duration,
	)
	return out, nil
}
