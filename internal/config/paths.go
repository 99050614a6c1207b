package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// PathsConfig holds the data directories. Relative directories are resolved
// against BaseDir.
type PathsConfig struct {
	BaseDir   string `yaml:"base_dir" envconfig:"BASE_DIR"`
	RawDir    string `yaml:"raw_dir" envconfig:"RAW_DIR"`
	CSVDir    string `yaml:"csv_dir" envconfig:"CSV_DIR"`
	SectorDir string `yaml:"sector_dir" envconfig:"SECTOR_DIR"`
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR"`
	LogsDir   string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// Paths are the resolved, absolute application directories.
type Paths struct {
	BaseDir   string
	RawDir    string // downloaded Min/TAMin archives and text files
	CSVDir    string // per-stock converted minute bars
	SectorDir string // DJ_*.txt sector lists
	OutputDir string // one sub-directory per analysed sector
	LogsDir   string
}

// Resolve turns the configured directories into absolute paths.
func (p PathsConfig) Resolve() (*Paths, error) {
	base := p.BaseDir
	if base == "" {
		base = "."
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("resolve base dir: %w", err)
	}

	join := func(dir, fallback string) string {
		if dir == "" {
			dir = fallback
		}
		if filepath.IsAbs(dir) {
			return filepath.Clean(dir)
		}
		return filepath.Join(base, dir)
	}

	return &Paths{
		BaseDir:   base,
		RawDir:    join(p.RawDir, DefaultRawDir),
		CSVDir:    join(p.CSVDir, DefaultCSVDir),
		SectorDir: join(p.SectorDir, DefaultSectorDir),
		OutputDir: join(p.OutputDir, DefaultOutputDir),
		LogsDir:   join(p.LogsDir, DefaultLogsDir),
	}, nil
}

// SectorOutputDir is where the results of one sector are written.
func (p *Paths) SectorOutputDir(name string) string {
	return filepath.Join(p.OutputDir, name)
}

// EnsureDirectories creates the directories the tool writes into.
// Input directories are left alone.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.RawDir, p.CSVDir, p.OutputDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// LogPathResolution logs the resolved directories for debugging.
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("paths resolved",
		slog.String("base_dir", p.BaseDir),
		slog.String("raw_dir", p.RawDir),
		slog.String("csv_dir", p.CSVDir),
		slog.String("sector_dir", p.SectorDir),
		slog.String("output_dir", p.OutputDir),
		slog.String("logs_dir", p.LogsDir),
	)
}
