// Package display renders analysis and batch results for the terminal.
package display

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"sectorflow/internal/batch"
	"sectorflow/internal/download"
	"sectorflow/internal/reporting"
	"sectorflow/internal/services"
)

// TopN bounds each ranking shown on screen.
const TopN = 5

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	headingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)
)

func field(b *strings.Builder, label string, value any) {
	fmt.Fprintf(b, "%s %v\n", labelStyle.Render(label+":"), value)
}

// AnalysisSummary renders the outcome of one sector analysis.
func AnalysisSummary(res *services.AnalysisResult) string {
	var b strings.Builder
	if res == nil {
		return errorStyle.Render("no result")
	}

	field(&b, "Sector", res.Sector)
	field(&b, "Period", fmt.Sprintf("%s - %s", res.Meta.Start, res.Meta.End))
	field(&b, "Stocks", res.Load.Stocks)
	field(&b, "Bars", res.Load.Bars)
	if res.Result != nil {
		field(&b, "Signals", fmt.Sprintf("%d (%d enhanced)", res.Result.Stats.Signals, res.Result.Stats.Enhanced))
		field(&b, "Pairs", res.Result.Stats.Pairs)
	}
	field(&b, "Duration", res.Duration.Round(time.Millisecond))
	if res.OutputDir != "" {
		field(&b, "Output", res.OutputDir)
	}

	var summaryBlock string
	if res.Result == nil || res.Result.Summary.Empty() {
		summaryBlock = warnStyle.Render("no relationships found")
	} else {
		summaryBlock = rankings(res)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Leader / Follower Analysis"),
		boxStyle.Render(strings.TrimRight(b.String(), "\n")),
		summaryBlock,
	)
}

func rankings(res *services.AnalysisResult) string {
	s := res.Result.Summary
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", headingStyle.Render("Top leaders"))
	for i, l := range s.Leaders {
		if i == TopN {
			break
		}
		fmt.Fprintf(&b, "  %d. %-8s %3d pairs  lag %.1f min  gain %.2f%%\n",
			i+1, reporting.DisplaySymbol(l.Symbol), l.Count, l.MeanLag, l.MeanGain)
	}

	fmt.Fprintf(&b, "%s\n", headingStyle.Render("Top followers"))
	for i, f := range s.Followers {
		if i == TopN {
			break
		}
		fmt.Fprintf(&b, "  %d. %-8s %3d times  lag %.1f min  gain %.2f%%\n",
			i+1, reporting.DisplaySymbol(f.Symbol), f.Count, f.MeanLag, f.MeanGain)
	}

	fmt.Fprintf(&b, "%s\n", headingStyle.Render("Top pairs"))
	for i, p := range s.Pairs {
		if i == TopN {
			break
		}
		fmt.Fprintf(&b, "  %d. %s -> %s  %d times  lag %.1f min\n",
			i+1, reporting.DisplaySymbol(p.Leader), reporting.DisplaySymbol(p.Follower), p.Count, p.MeanLag)
	}

	return strings.TrimRight(b.String(), "\n")
}

func statusStyle(st batch.Status) lipgloss.Style {
	switch st {
	case batch.StatusSuccess:
		return successStyle
	case batch.StatusEmpty, batch.StatusCancelled:
		return warnStyle
	default:
		return errorStyle
	}
}

// BatchTable renders one row per sector followed by the totals.
func BatchTable(s *batch.Summary) string {
	if s == nil {
		return errorStyle.Render("no batch summary")
	}

	width := len("Sector")
	for _, o := range s.Outcomes {
		if w := lipgloss.Width(o.Sector); w > width {
			width = w
		}
	}
	pad := lipgloss.NewStyle().Width(width + 2)

	var b strings.Builder
	fmt.Fprintf(&b, "%s%-10s %6s %10s\n", pad.Render("Sector"), "Status", "Pairs", "Duration")
	for _, o := range s.Outcomes {
		status := statusStyle(o.Status).Width(10).Render(string(o.Status))
		fmt.Fprintf(&b, "%s%s %6d %10s", pad.Render(o.Sector), status, o.Pairs, o.Duration.Round(10*time.Millisecond))
		if o.Error != "" {
			fmt.Fprintf(&b, "  %s", labelStyle.Render(o.Error))
		}
		b.WriteByte('\n')
	}

	totals := fmt.Sprintf("%d sectors: %d success, %d empty, %d failed, %d timeout, %d cancelled (%.1f%%)",
		len(s.Outcomes), s.Succeeded, s.Empty, s.Failed, s.TimedOut, s.Cancelled, s.SuccessRate())

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(fmt.Sprintf("Batch %s - %s", s.Start, s.End)),
		boxStyle.Render(strings.TrimRight(b.String(), "\n")),
		totals,
	)
}

// DownloadReport renders the counters of a download run and its failures.
func DownloadReport(r download.Report) string {
	var b strings.Builder
	field(&b, "Downloaded", r.Downloaded)
	field(&b, "Skipped", r.Skipped)
	field(&b, "Extracted", r.Extracted)
	field(&b, "Failed", r.Failed)
	for _, f := range r.Failures {
		fmt.Fprintf(&b, "  %s %s: %s\n", errorStyle.Render("x"), f.Job.Remote, f.Err)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Download"),
		boxStyle.Render(strings.TrimRight(b.String(), "\n")),
	)
}

// SweepTable renders the top ranked threshold combinations of a sweep.
// top <= 0 shows every point.
func SweepTable(res *services.SweepResult, top int) string {
	if res == nil {
		return errorStyle.Render("no sweep result")
	}
	if len(res.Points) == 0 {
		return warnStyle.Render("no threshold combinations")
	}

	points := res.Points
	if top > 0 && len(points) > top {
		points = points[:top]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%4s %6s %10s %8s %7s %6s %7s %7s %7s\n",
		"Rank", "Mult", "MinAmt(M)", "MinChg%", "Signals", "Pairs", "Follow%", "Lag", "Score")
	for _, p := range points {
		row := fmt.Sprintf("%4d %6.2f %10.1f %8.2f %7d %6d %7.1f %7.1f %7.3f",
			p.Rank, p.Params.MoneyMultiplier, p.Params.MinAmount/1e6, p.Params.MinPriceChange*100,
			p.Signals, p.Pairs, p.FollowRate*100, p.MeanLag, p.Score)
		if p.Rank == 1 && p.Score > 0 {
			row = successStyle.Render(row)
		}
		b.WriteString(row)
		b.WriteByte('\n')
	}

	footer := fmt.Sprintf("%d combinations, %d bars, lag window %d min, min gain %.2f%%, %s",
		len(res.Points), res.Load.Bars, res.Match.MaxLagMinutes, res.Match.MinGain, res.Duration.Round(time.Millisecond))

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Threshold sweep: "+res.Sector),
		boxStyle.Render(strings.TrimRight(b.String(), "\n")),
		labelStyle.Render(footer),
	)
}

// Print writes a rendered block followed by a newline.
func Print(w io.Writer, block string) {
	fmt.Fprintln(w, block)
}
