package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sectorflow/internal/config"
	"sectorflow/internal/leaderflow"
	"sectorflow/internal/marketdata"
	"sectorflow/internal/reporting"
)

var tpe = time.FixedZone("CST", 8*3600)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// writeScenario lays out a sector where 1111 leads at 09:36 on 2024-03-04
// and 2222 gains 1% four minutes later.
func writeScenario(t *testing.T, root string) *config.Paths {
	t.Helper()
	paths, err := config.PathsConfig{BaseDir: root}.Resolve()
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())

	writeFile(t, marketdata.SectorPath(paths.SectorDir, "DJ_Test"), "# test sector\n1111.TW\n2222.TW\n")

	var a, b strings.Builder
	header := "symbol,date,time,close_price,volume,large_buy\n"
	a.WriteString(header)
	b.WriteString(header)
	start := time.Date(2024, 3, 4, 9, 1, 0, 0, tpe)
	for i := 0; i < 60; i++ {
		hhmmss := start.Add(time.Duration(i) * time.Minute).Format("150405")

		aClose, aFlow := 100.0, 100_000.0
		if i >= 35 {
			aClose = 101
		}
		if i == 35 {
			aFlow = 10_000_000
		}
		bClose := 50.0
		if i >= 39 {
			bClose = 50.5
		}
		fmt.Fprintf(&a, "1111,2024/03/04,%s,%g,10,%g\n", hhmmss, aClose, aFlow)
		fmt.Fprintf(&b, "2222,2024/03/04,%s,%g,10,50000\n", hhmmss, bClose)
	}
	writeFile(t, filepath.Join(paths.CSVDir, "1111", "1111_20240304.csv"), a.String())
	writeFile(t, filepath.Join(paths.CSVDir, "2222", "2222_20240304.csv"), b.String())
	return paths
}

func newService(t *testing.T, paths *config.Paths) *AnalysisService {
	t.Helper()
	return NewAnalysisService(Settings{
		Paths:    paths,
		Params:   leaderflow.DefaultParams(),
		Session:  marketdata.DefaultSession(),
		Location: tpe,
	}, quietLogger())
}

func TestAnalyze(t *testing.T) {
	paths := writeScenario(t, t.TempDir())
	svc := newService(t, paths)

	res, err := svc.Analyze(context.Background(), AnalysisRequest{Sector: "DJ_Test", Start: "202403", End: "202403"})
	require.NoError(t, err)

	assert.Equal(t, 120, res.Load.Bars)
	require.Len(t, res.Result.Pairs, 1)
	pair := res.Result.Pairs[0]
	assert.Equal(t, "1111", pair.LeaderSymbol)
	assert.Equal(t, "2222", pair.FollowerSymbol)
	assert.Equal(t, 4.0, pair.TimeLagMinutes)

	assert.Equal(t, filepath.Join(paths.OutputDir, "Test"), res.OutputDir)
	assert.FileExists(t, filepath.Join(res.OutputDir, reporting.ReportFile))
	assert.FileExists(t, filepath.Join(res.OutputDir, reporting.PairsFile))
	assert.Contains(t, res.Report, "分析類股: DJ_Test")
}

func TestAnalyzeDryRun(t *testing.T) {
	paths := writeScenario(t, t.TempDir())
	svc := newService(t, paths)

	res, err := svc.Analyze(context.Background(), AnalysisRequest{Sector: "DJ_Test", Start: "202403", End: "202403", DryRun: true})
	require.NoError(t, err)
	assert.Empty(t, res.OutputDir)
	assert.Empty(t, res.Files)
	assert.NoDirExists(t, filepath.Join(paths.OutputDir, "Test"))
	assert.Len(t, res.Result.Pairs, 1)
}

func TestAnalyzePartialParams(t *testing.T) {
	paths := writeScenario(t, t.TempDir())
	svc := newService(t, paths)
	defaults := leaderflow.DefaultParams()

	res, err := svc.Analyze(context.Background(), AnalysisRequest{
		Sector: "DJ_Test", Start: "202403", End: "202403", DryRun: true,
		Params: &leaderflow.Params{Match: leaderflow.MatchParams{MaxLagMinutes: 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Result.Params.Match.MaxLagMinutes)
	assert.Equal(t, defaults.Signal, res.Result.Params.Signal)
	assert.Equal(t, defaults.Match.MinGain, res.Result.Params.Match.MinGain)
	assert.Equal(t, 1, res.Result.Stats.Signals)
	assert.Empty(t, res.Result.Pairs, "follower responds after four minutes")

	res, err = svc.Analyze(context.Background(), AnalysisRequest{
		Sector: "DJ_Test", Start: "202403", End: "202403", DryRun: true,
		Params: &leaderflow.Params{Signal: leaderflow.SignalParams{MinAmount: 20_000_000}},
	})
	require.NoError(t, err)
	assert.Equal(t, defaults.Signal.MoneyMultiplier, res.Result.Params.Signal.MoneyMultiplier)
	assert.Zero(t, res.Result.Stats.Signals)
}

func TestAnalyzeErrors(t *testing.T) {
	paths := writeScenario(t, t.TempDir())
	svc := newService(t, paths)

	strict := leaderflow.DefaultParams()
	strict.Signal.MoneyMultiplier = 0.5

	tests := []struct {
		name  string
		req   AnalysisRequest
		check func(t *testing.T, err error)
	}{
		{
			name: "no data in range",
			req:  AnalysisRequest{Sector: "DJ_Test", Start: "202301", End: "202302"},
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, marketdata.ErrNoData))
			},
		},
		{
			name: "unknown sector",
			req:  AnalysisRequest{Sector: "DJ_Missing", Start: "202403", End: "202403"},
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, marketdata.ErrSectorNotFound))
			},
		},
		{
			name: "reversed periods",
			req:  AnalysisRequest{Sector: "DJ_Test", Start: "202404", End: "202403"},
			check: func(t *testing.T, err error) {
				assert.Error(t, err)
			},
		},
		{
			name: "invalid thresholds",
			req:  AnalysisRequest{Sector: "DJ_Test", Start: "202403", End: "202403", Params: &strict},
			check: func(t *testing.T, err error) {
				var verr *leaderflow.ValidationError
				assert.True(t, errors.As(err, &verr), "got %v", err)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Analyze(context.Background(), tt.req)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestSweep(t *testing.T) {
	paths := writeScenario(t, t.TempDir())
	svc := newService(t, paths)

	res, err := svc.Sweep(context.Background(), SweepRequest{
		Sector: "DJ_Test", Start: "202403", End: "202403",
		MinAmounts: []float64{20_000_000, 5_000_000},
	})
	require.NoError(t, err)

	assert.Equal(t, 120, res.Load.Bars)
	assert.Equal(t, leaderflow.DefaultParams().Match, res.Match)
	require.Len(t, res.Points, 2)
	assert.Equal(t, 5_000_000.0, res.Points[0].Params.MinAmount)
	assert.Equal(t, 1.3, res.Points[0].Params.MoneyMultiplier)
	assert.Equal(t, 1, res.Points[0].Pairs)
	assert.Zero(t, res.Points[1].Signals)
	assert.NoDirExists(t, filepath.Join(paths.OutputDir, "Test"))

	_, err = svc.Sweep(context.Background(), SweepRequest{
		Sector: "DJ_Test", Start: "202403", End: "202403",
		MoneyMultipliers: []float64{0.9},
	})
	var verr *leaderflow.ValidationError
	assert.True(t, errors.As(err, &verr), "got %v", err)

	_, err = svc.Sweep(context.Background(), SweepRequest{Sector: "DJ_Test", Start: "202301", End: "202301"})
	assert.True(t, errors.Is(err, marketdata.ErrNoData))
}

func TestSectors(t *testing.T) {
	paths := writeScenario(t, t.TempDir())
	sectors, err := newService(t, paths).Sectors()
	require.NoError(t, err)
	assert.Equal(t, []string{"DJ_Test"}, sectors)
}

type fixedClients int

func (f fixedClients) ClientCount() int { return int(f) }

func TestHealthCheck(t *testing.T) {
	paths := writeScenario(t, t.TempDir())

	status := NewHealthService("1.2.3", paths, fixedClients(2)).Check(context.Background())
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "1.2.3", status.Version)
	assert.Equal(t, 2, status.Runtime["websocket_clients"])
	assert.Len(t, status.Checks, 3)

	require.NoError(t, os.RemoveAll(paths.CSVDir))
	status = NewHealthService("1.2.3", paths, nil).Check(context.Background())
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, "unhealthy", status.Checks["csv_dir"].Status)
	assert.NotContains(t, status.Runtime, "websocket_clients")
}
