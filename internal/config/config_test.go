package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sectorflow/internal/leaderflow"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, leaderflow.DefaultParams(), cfg.Analysis.Params())
	assert.Equal(t, "Asia/Taipei", cfg.Session.Timezone)
	assert.Equal(t, 5*time.Minute, cfg.Batch.SectorTimeout)
	assert.Equal(t, []string{"get", "{server}", "{remote}", "{dir}"}, cfg.Download.Args)
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		env      map[string]string
		wantErr  string
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name: "file overrides defaults",
			yaml: `
analysis:
  money_multiplier: 1.5
  max_lag_minutes: 15
batch:
  concurrency: 4
`,
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 1.5, cfg.Analysis.MoneyMultiplier)
				assert.Equal(t, 15, cfg.Analysis.MaxLagMinutes)
				assert.Equal(t, 4, cfg.Batch.Concurrency)
				// untouched keys keep their default
				assert.Equal(t, 0.5, cfg.Analysis.MinGain)
				assert.Equal(t, "09:01", cfg.Session.Open)
			},
		},
		{
			name: "environment overrides file",
			yaml: "analysis:\n  min_gain: 0.8\n",
			env: map[string]string{
				"SECTORFLOW_ANALYSIS_MIN_GAIN":        "1.2",
				"SECTORFLOW_BATCH_SECTOR_TIMEOUT":     "90s",
				"SECTORFLOW_LOGGING_LEVEL":            "debug",
				"SECTORFLOW_SESSION_ENABLED":          "false",
				"SECTORFLOW_BATCH_EXCLUDE":            "DJ_IC基板,DJ_PCB",
				"SECTORFLOW_TELEMETRY_TRACE_EXPORTER": "stdout",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 1.2, cfg.Analysis.MinGain)
				assert.Equal(t, 90*time.Second, cfg.Batch.SectorTimeout)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.False(t, cfg.Session.Enabled)
				assert.Equal(t, []string{"DJ_IC基板", "DJ_PCB"}, cfg.Batch.Exclude)
				assert.Equal(t, "stdout", cfg.Telemetry.TraceExporter)
			},
		},
		{
			name:    "invalid analysis threshold",
			yaml:    "analysis:\n  money_multiplier: 0.9\n",
			wantErr: "money_multiplier",
		},
		{
			name:    "invalid session bound",
			yaml:    "session:\n  open: \"9h\"\n",
			wantErr: "session open",
		},
		{
			name:    "unknown timezone",
			yaml:    "session:\n  timezone: Mars/Olympus\n",
			wantErr: "load timezone",
		},
		{
			name:    "malformed yaml",
			yaml:    "analysis: [",
			wantErr: "failed to load config from file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := writeFile(t, dir, "sectorflow.yaml", tt.yaml)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load(LoadOptions{ConfigFile: path, DotEnvFiles: []string{}})
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.validate(t, cfg)
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(LoadOptions{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml"), DotEnvFiles: []string{}})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadDotEnv(t *testing.T) {
	const key = "SECTORFLOW_ANALYSIS_WORKERS"
	t.Cleanup(func() { os.Unsetenv(key) })

	dir := t.TempDir()
	envFile := writeFile(t, dir, ".env", key+"=3\n")
	cfgFile := writeFile(t, dir, "sectorflow.yaml", "")

	cfg, err := Load(LoadOptions{ConfigFile: cfgFile, DotEnvFiles: []string{envFile, filepath.Join(dir, "missing.env")}})
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Analysis.Workers)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"log output", func(c *Config) { c.Logging.Output = "syslog" }},
		{"lag", func(c *Config) { c.Analysis.MaxLagMinutes = 0 }},
		{"enhanced below base", func(c *Config) { c.Analysis.EnhancedMultiplier = 1.1 }},
		{"port", func(c *Config) { c.Server.Port = 70000 }},
		{"rate limit", func(c *Config) { c.Server.RateLimit.RPS = 0 }},
		{"download command", func(c *Config) { c.Download.Command = "" }},
		{"download rate", func(c *Config) { c.Download.Rate = 0 }},
		{"concurrency", func(c *Config) { c.Batch.Concurrency = 0 }},
		{"trace exporter", func(c *Config) { c.Telemetry.TraceExporter = "jaeger" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSessionConversion(t *testing.T) {
	cfg := Default()
	s, err := cfg.Session.Session()
	require.NoError(t, err)

	loc, err := cfg.Session.Location()
	require.NoError(t, err)

	assert.True(t, s.Contains(time.Date(2024, 3, 4, 13, 30, 0, 0, loc)))
	assert.False(t, s.Contains(time.Date(2024, 3, 4, 9, 0, 0, 0, loc)))
}

func TestPathsResolve(t *testing.T) {
	base := t.TempDir()
	abs := filepath.Join(t.TempDir(), "elsewhere")

	paths, err := PathsConfig{BaseDir: base, OutputDir: abs}.Resolve()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(base, DefaultCSVDir), paths.CSVDir)
	assert.Equal(t, filepath.Join(base, DefaultSectorDir), paths.SectorDir)
	assert.Equal(t, abs, paths.OutputDir)
	assert.Equal(t, filepath.Join(abs, "IC基板"), paths.SectorOutputDir("IC基板"))

	require.NoError(t, paths.EnsureDirectories())
	assert.DirExists(t, paths.RawDir)
	assert.DirExists(t, paths.OutputDir)
	assert.NoDirExists(t, paths.SectorDir)
}
