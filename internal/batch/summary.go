package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SummaryFile is written to the output directory after a batch.
const SummaryFile = "batch_analysis_summary.txt"

// Summary collects the outcomes of one batch run.
type Summary struct {
	RunID      string          `json:"run_id"`
	Start      string          `json:"start"`
	End        string          `json:"end"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Outcomes   []SectorOutcome `json:"outcomes"`
	Succeeded  int             `json:"succeeded"`
	Empty      int             `json:"empty"`
	Failed     int             `json:"failed"`
	TimedOut   int             `json:"timed_out"`
	Cancelled  int             `json:"cancelled"`
}

func (s *Summary) tally() {
	s.Succeeded, s.Empty, s.Failed, s.TimedOut, s.Cancelled = 0, 0, 0, 0, 0
	for _, o := range s.Outcomes {
		switch o.Status {
		case StatusSuccess:
			s.Succeeded++
		case StatusEmpty:
			s.Empty++
		case StatusTimeout:
			s.TimedOut++
		case StatusCancelled:
			s.Cancelled++
		default:
			s.Failed++
		}
	}
}

// Problems counts sectors that did not complete.
func (s *Summary) Problems() int {
	return s.Failed + s.TimedOut + s.Cancelled
}

// SuccessRate is the percentage of sectors that completed, with or without
// pairs.
func (s *Summary) SuccessRate() float64 {
	if len(s.Outcomes) == 0 {
		return 0
	}
	return float64(s.Succeeded+s.Empty) / float64(len(s.Outcomes)) * 100
}

// Text renders the summary file.
func (s *Summary) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Batch Sector Analysis Summary\n")
	fmt.Fprintf(&b, "Run: %s\n", s.RunID)
	fmt.Fprintf(&b, "Period: %s - %s\n", s.Start, s.End)
	fmt.Fprintf(&b, "Date: %s\n\n", s.FinishedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Total sectors: %d\n", len(s.Outcomes))
	fmt.Fprintf(&b, "Successful: %d\n", s.Succeeded+s.Empty)
	fmt.Fprintf(&b, "Failed: %d\n", s.Problems())
	fmt.Fprintf(&b, "Success rate: %.1f%%\n\n", s.SuccessRate())
	b.WriteString("Detailed Results:\n")
	for _, o := range s.Outcomes {
		switch o.Status {
		case StatusSuccess:
			fmt.Fprintf(&b, "Success: %s (%d pairs, %.1fs)\n", o.Sector, o.Pairs, o.Duration.Seconds())
		case StatusEmpty:
			fmt.Fprintf(&b, "Success: %s (no relationships, %.1fs)\n", o.Sector, o.Duration.Seconds())
		case StatusTimeout:
			fmt.Fprintf(&b, "Timeout: %s\n", o.Sector)
		case StatusCancelled:
			fmt.Fprintf(&b, "Cancelled: %s\n", o.Sector)
		default:
			fmt.Fprintf(&b, "Failed: %s - %s\n", o.Sector, truncate(o.Error, 100))
		}
	}
	return b.String()
}

// WriteSummary writes the summary text into dir and returns the file path.
func WriteSummary(dir string, s *Summary) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(dir, SummaryFile)
	if err := os.WriteFile(path, []byte(s.Text()), 0644); err != nil {
		return "", fmt.Errorf("write batch summary: %w", err)
	}
	return path, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
