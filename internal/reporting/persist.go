package reporting

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"sectorflow/internal/exporter"
	"sectorflow/internal/leaderflow"
)

// Output file names.
const (
	DetailedFile = "leader_follower_pairs_detailed.csv"
	SummaryFile  = "leader_follower_summary.csv"
	LeadersFile  = "leader_rankings.csv"
	FollowerFile = "follower_rankings.csv"
	PairsFile    = "pair_rankings.csv"
	ReportFile   = "leader_follower_analysis_report.txt"
	WorkbookFile = "leader_follower_results.xlsx"
)

// SignalTableFile names the signal table of one day (YYYYMMDD).
func SignalTableFile(day string) string {
	return fmt.Sprintf("signal_table_%s.csv", day)
}

// SaveResults writes a run's output files into dir and returns their paths.
// The report is always written; pair files only when pairs exist.
func SaveResults(ctx context.Context, dir string, meta Meta, result *leaderflow.Result, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	w := exporter.NewCSVWriter(dir, logger)
	var written []string

	reportPath := filepath.Join(dir, ReportFile)
	if err := os.WriteFile(reportPath, []byte(BuildReport(meta, result)), 0644); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	written = append(written, reportPath)

	if result == nil || len(result.Pairs) == 0 {
		logger.InfoContext(ctx, "no pairs to save", "dir", dir)
		return written, nil
	}

	tables := []csvTable{
		{DetailedFile, DetailedHeaders, DetailedRecords(result.Pairs)},
		{SummaryFile, SummaryHeaders, SummaryRecords(result.Pairs)},
		{LeadersFile, LeaderHeaders, LeaderRecords(result.Summary)},
		{FollowerFile, FollowerHeaders, FollowerRecords(result.Summary)},
		{PairsFile, PairHeaders, PairRecords(result.Summary)},
	}
	for _, day := range leaderflow.TradingDays(result.Pairs) {
		rows := leaderflow.SignalTable(result.Pairs, day)
		tables = append(tables, csvTable{SignalTableFile(day.Format("20060102")), SignalTableHeaders, SignalTableRecords(rows)})
	}

	for _, t := range tables {
		if err := ctx.Err(); err != nil {
			return written, fmt.Errorf("save results: %w", err)
		}
		if err := w.WriteSimpleCSV(t.name, t.headers, t.records); err != nil {
			return written, fmt.Errorf("write %s: %w", t.name, err)
		}
		written = append(written, w.Path(t.name))
	}

	workbookPath := filepath.Join(dir, WorkbookFile)
	if err := exporter.WriteWorkbook(workbookPath, workbookSheets(result)); err != nil {
		return written, fmt.Errorf("write workbook: %w", err)
	}
	written = append(written, workbookPath)

	logger.InfoContext(ctx, "results saved",
		"dir", dir,
		"files", len(written),
		"pairs", len(result.Pairs),
	)
	return written, nil
}

type csvTable struct {
	name    string
	headers []string
	records [][]string
}

// SignalSheetHeaders are the columns of the workbook's Signals sheet.
var SignalSheetHeaders = []string{"symbol", "time", "close", "large_total", "large_net", "return_pct", "daily_low", "daily_high", "day_range_pct", "enhanced"}

func workbookSheets(result *leaderflow.Result) []exporter.Sheet {
	pairs := make([][]interface{}, len(result.Pairs))
	for i, p := range result.Pairs {
		pairs[i] = []interface{}{
			DisplaySymbol(p.LeaderSymbol),
			DisplaySymbol(p.FollowerSymbol),
			p.LeaderTime.Format(timestampLayout),
			p.FollowerTime.Format(timestampLayout),
			p.TimeLagMinutes,
			p.FollowerGainPct,
			p.Leader.LargeTotal,
			p.IsEnhanced,
		}
	}

	s := result.Summary
	leaders := make([][]interface{}, len(s.Leaders))
	for i, l := range s.Leaders {
		leaders[i] = []interface{}{DisplaySymbol(l.Symbol), l.Count, l.MeanLag, l.MeanGain, l.MeanLargeTotal}
	}
	followers := make([][]interface{}, len(s.Followers))
	for i, fl := range s.Followers {
		followers[i] = []interface{}{DisplaySymbol(fl.Symbol), fl.Count, fl.MeanLag, fl.MeanGain}
	}
	best := make([][]interface{}, len(s.Pairs))
	for i, p := range s.Pairs {
		best[i] = []interface{}{DisplaySymbol(p.Leader), DisplaySymbol(p.Follower), p.Count, p.MeanLag, p.MeanGain}
	}
	signals := make([][]interface{}, len(result.Signals))
	for i, sig := range result.Signals {
		signals[i] = []interface{}{
			DisplaySymbol(sig.Symbol),
			sig.Timestamp.Format(timestampLayout),
			sig.Close,
			sig.LargeTotal,
			sig.LargeNet,
			sig.Return1Min * 100,
			sig.DailyLow,
			sig.DailyHigh,
			sig.RangePct(),
			sig.IsEnhanced,
		}
	}

	return []exporter.Sheet{
		{Name: "Pairs", Headers: []string{"leader", "follower", "leader_time", "follower_time", "lag_minutes", "gain_pct", "leader_large_total", "enhanced"}, Rows: pairs},
		{Name: "Leaders", Headers: LeaderHeaders, Rows: leaders},
		{Name: "Followers", Headers: FollowerHeaders, Rows: followers},
		{Name: "Best Pairs", Headers: PairHeaders, Rows: best},
		{Name: "Signals", Headers: SignalSheetHeaders, Rows: signals},
	}
}
