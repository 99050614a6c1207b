package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata" // Asia/Taipei on hosts without zoneinfo

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"sectorflow/internal/leaderflow"
	"sectorflow/internal/marketdata"
)

// Config represents the complete application configuration
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Analysis  AnalysisConfig  `yaml:"analysis" envconfig:"ANALYSIS"`
	Session   SessionConfig   `yaml:"session" envconfig:"SESSION"`
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Download  DownloadConfig  `yaml:"download" envconfig:"DOWNLOAD"`
	Batch     BatchConfig     `yaml:"batch" envconfig:"BATCH"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level" envconfig:"LEVEL"`
	Format     string `yaml:"format" envconfig:"FORMAT"` // json | text
	Output     string `yaml:"output" envconfig:"OUTPUT"` // console | file | both
	FilePath   string `yaml:"file_path" envconfig:"FILE_PATH"`
	MaxSizeMB  int    `yaml:"max_size_mb" envconfig:"MAX_SIZE_MB"`
	MaxBackups int    `yaml:"max_backups" envconfig:"MAX_BACKUPS"`
	MaxAgeDays int    `yaml:"max_age_days" envconfig:"MAX_AGE_DAYS"`
	Compress   bool   `yaml:"compress" envconfig:"COMPRESS"`
}

// AnalysisConfig holds the engine thresholds.
type AnalysisConfig struct {
	MoneyMultiplier    float64 `yaml:"money_multiplier" envconfig:"MONEY_MULTIPLIER"`
	MinAmount          float64 `yaml:"min_amount" envconfig:"MIN_AMOUNT"`
	MinPriceChange     float64 `yaml:"min_price_change" envconfig:"MIN_PRICE_CHANGE"`
	EnhancedMultiplier float64 `yaml:"enhanced_multiplier" envconfig:"ENHANCED_MULTIPLIER"`
	MaxLagMinutes      int     `yaml:"max_lag_minutes" envconfig:"MAX_LAG_MINUTES"`
	MinGain            float64 `yaml:"min_gain" envconfig:"MIN_GAIN"`
	Workers            int     `yaml:"workers" envconfig:"WORKERS"`
}

// Params converts the section into engine parameters.
func (a AnalysisConfig) Params() leaderflow.Params {
	return leaderflow.Params{
		Signal: leaderflow.SignalParams{
			MoneyMultiplier:    a.MoneyMultiplier,
			MinAmount:          a.MinAmount,
			MinPriceChange:     a.MinPriceChange,
			EnhancedMultiplier: a.EnhancedMultiplier,
		},
		Match: leaderflow.MatchParams{
			MaxLagMinutes: a.MaxLagMinutes,
			MinGain:       a.MinGain,
			Workers:       a.Workers,
		},
	}
}

// SessionConfig is the intraday window kept when loading bars.
type SessionConfig struct {
	Enabled  bool   `yaml:"enabled" envconfig:"ENABLED"`
	Open     string `yaml:"open" envconfig:"OPEN"`
	Close    string `yaml:"close" envconfig:"CLOSE"`
	Timezone string `yaml:"timezone" envconfig:"TIMEZONE"`
}

// Session parses the configured bounds.
func (s SessionConfig) Session() (marketdata.Session, error) {
	return marketdata.ParseSession(s.Open, s.Close, s.Enabled)
}

// Location loads the timezone bar timestamps are read in.
func (s SessionConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string          `yaml:"host" envconfig:"HOST"`
	Port            int             `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	RequestTimeout  time.Duration   `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	AllowedOrigins  []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// DownloadConfig drives the external download command.
type DownloadConfig struct {
	Command  string        `yaml:"command" envconfig:"COMMAND"`
	Args     []string      `yaml:"args" envconfig:"ARGS"`
	Server   string        `yaml:"server" envconfig:"SERVER"`
	TickBase string        `yaml:"tick_base" envconfig:"TICK_BASE"`
	TABase   string        `yaml:"ta_base" envconfig:"TA_BASE"`
	Timeout  time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	Retries  int           `yaml:"retries" envconfig:"RETRIES"`
	Rate     float64       `yaml:"rate" envconfig:"RATE"` // commands per second
	Extract  bool          `yaml:"extract" envconfig:"EXTRACT"`
}

// BatchConfig controls multi-sector runs.
type BatchConfig struct {
	Concurrency   int           `yaml:"concurrency" envconfig:"CONCURRENCY"`
	SectorTimeout time.Duration `yaml:"sector_timeout" envconfig:"SECTOR_TIMEOUT"`
	Exclude       []string      `yaml:"exclude" envconfig:"EXCLUDE"`
}

// TelemetryConfig selects the OpenTelemetry exporters.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	TraceExporter  string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"` // none | stdout
	MetricsEnabled bool   `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED"`
}

// LoadOptions tells Load where to look.
type LoadOptions struct {
	// ConfigFile is an explicit YAML path; when empty the well-known
	// locations are searched and a missing file is not an error.
	ConfigFile string
	// DotEnvFiles are loaded before the environment is read. Missing files
	// are ignored. Defaults to ".env".
	DotEnvFiles []string
}

// Load builds the configuration from defaults, the YAML file and the
// environment, in increasing order of precedence.
func Load(opts LoadOptions) (*Config, error) {
	dotenv := opts.DotEnvFiles
	if dotenv == nil {
		dotenv = []string{DotEnvFileName}
	}
	for _, f := range dotenv {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := Default()

	configFile := opts.ConfigFile
	if configFile == "" {
		configFile = findConfigFile()
	} else if _, err := os.Stat(configFile); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg; keys absent from the file
// keep their current value.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func findConfigFile() string {
	for _, location := range []string{
		ConfigFileName,
		filepath.Join("configs", ConfigFileName),
	} {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// Validate rejects values the tool cannot run with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid logging format: %q", c.Logging.Format)
	}
	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		return fmt.Errorf("invalid logging output: %q", c.Logging.Output)
	}

	if err := c.Analysis.Params().Validate(); err != nil {
		return fmt.Errorf("analysis: %w", err)
	}

	if _, err := c.Session.Session(); err != nil {
		return err
	}
	if _, err := c.Session.Location(); err != nil {
		return err
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 || c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}
	if c.Server.RateLimit.Enabled && (c.Server.RateLimit.RPS <= 0 || c.Server.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit rps and burst must be positive")
	}

	if c.Download.Command == "" {
		return fmt.Errorf("download command must be set")
	}
	if c.Download.Timeout <= 0 {
		return fmt.Errorf("download timeout must be positive")
	}
	if c.Download.Retries < 0 {
		return fmt.Errorf("download retries must not be negative")
	}
	if c.Download.Rate <= 0 {
		return fmt.Errorf("download rate must be positive")
	}

	if c.Batch.Concurrency < 1 {
		return fmt.Errorf("batch concurrency must be at least 1")
	}
	if c.Batch.SectorTimeout <= 0 {
		return fmt.Errorf("batch sector timeout must be positive")
	}

	switch c.Telemetry.TraceExporter {
	case "none", "stdout":
	default:
		return fmt.Errorf("invalid trace exporter: %q", c.Telemetry.TraceExporter)
	}

	return nil
}

// Default returns default configuration
func Default() *Config {
	params := leaderflow.DefaultParams()
	return &Config{
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Output:     "console",
			FilePath:   filepath.Join(DefaultLogsDir, AppName+".log"),
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
		Paths: PathsConfig{
			BaseDir:   ".",
			RawDir:    DefaultRawDir,
			CSVDir:    DefaultCSVDir,
			SectorDir: DefaultSectorDir,
			OutputDir: DefaultOutputDir,
			LogsDir:   DefaultLogsDir,
		},
		Analysis: AnalysisConfig{
			MoneyMultiplier:    params.Signal.MoneyMultiplier,
			MinAmount:          params.Signal.MinAmount,
			MinPriceChange:     params.Signal.MinPriceChange,
			EnhancedMultiplier: params.Signal.EnhancedMultiplier,
			MaxLagMinutes:      params.Match.MaxLagMinutes,
			MinGain:            params.Match.MinGain,
			Workers:            params.Match.Workers,
		},
		Session: SessionConfig{
			Enabled:  true,
			Open:     DefaultSessionOpen,
			Close:    DefaultSessionClose,
			Timezone: DefaultTimezone,
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    5 * time.Minute,
			IdleTimeout:     60 * time.Second,
			RequestTimeout:  5 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
			AllowedOrigins:  []string{"http://localhost:8080"},
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     20,
				Burst:   40,
			},
		},
		Download: DownloadConfig{
			Command:  DefaultDownloadCommand,
			Args:     append([]string(nil), DefaultDownloadArgs...),
			Server:   DefaultDownloadServer,
			TickBase: DefaultTickBase,
			TABase:   DefaultTABase,
			Timeout:  DefaultDownloadTimeout,
			Retries:  2,
			Rate:     2,
			Extract:  true,
		},
		Batch: BatchConfig{
			Concurrency:   2,
			SectorTimeout: DefaultSectorTimeout,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    AppName,
			TraceExporter:  "none",
			MetricsEnabled: true,
		},
	}
}
