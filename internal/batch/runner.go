package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"sectorflow/internal/infrastructure"
	"sectorflow/internal/marketdata"
	"sectorflow/internal/services"
)

// Status is the outcome class of one sector.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusEmpty     Status = "empty"
	StatusFailed    Status = "failed"
	StatusTimeout   Status = "timeout"
	StatusCancelled Status = "cancelled"
)

// SectorOutcome is the result of analysing one sector in a batch.
type SectorOutcome struct {
	Sector    string        `json:"sector"`
	Status    Status        `json:"status"`
	Duration  time.Duration `json:"duration"`
	Bars      int           `json:"bars"`
	Signals   int           `json:"signals"`
	Pairs     int           `json:"pairs"`
	OutputDir string        `json:"output_dir,omitempty"`
	Error     string        `json:"error,omitempty"`
	Err       error         `json:"-"`
}

// Analyzer runs a single sector. *services.AnalysisService satisfies it.
type Analyzer interface {
	Sectors() ([]string, error)
	Analyze(ctx context.Context, req services.AnalysisRequest) (*services.AnalysisResult, error)
}

// Options tune a batch run.
type Options struct {
	Concurrency   int
	SectorTimeout time.Duration
	Exclude       []string
	DryRun        bool
}

// Request selects the sectors and period range of one batch. No sectors
// means every sector in the sector directory.
type Request struct {
	Sectors []string `json:"sectors,omitempty"`
	Start   string   `json:"start" validate:"required,len=6,numeric"`
	End     string   `json:"end" validate:"required,len=6,numeric"`
}

// Runner analyses many sectors concurrently.
type Runner struct {
	analyzer Analyzer
	opts     Options
	sink     ProgressSink
	logger   *slog.Logger
	metrics  *batchMetrics
}

// NewRunner creates a runner. sink may be nil.
func NewRunner(analyzer Analyzer, opts Options, sink ProgressSink, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if sink == nil {
		sink = discardSink{}
	}
	logger = logger.With(slog.String("component", "batch"))

	metrics, err := newBatchMetrics()
	if err != nil {
		logger.Warn("batch metrics unavailable", "error", err)
	}

	return &Runner{
		analyzer: analyzer,
		opts:     opts,
		sink:     sink,
		logger:   logger,
		metrics:  metrics,
	}
}

// Sectors returns the sectors a request covers after exclusions, in order.
func (r *Runner) Sectors(req Request) ([]string, error) {
	sectors := req.Sectors
	if len(sectors) == 0 {
		all, err := r.analyzer.Sectors()
		if err != nil {
			return nil, fmt.Errorf("list sectors: %w", err)
		}
		sectors = all
	}

	seen := make(map[string]bool, len(sectors))
	var out []string
	for _, s := range sectors {
		if s == "" || seen[s] || slices.Contains(r.opts.Exclude, s) {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out, nil
}

// Run analyses every sector of req. A failing sector never stops the
// others; outcomes keep the order of the resolved sector list. The error
// is non-nil only when the request is invalid or ctx ends the batch.
func (r *Runner) Run(ctx context.Context, req Request) (*Summary, error) {
	return r.run(ctx, uuid.NewString(), req)
}

// Prepare validates req and resolves its sector list.
func (r *Runner) Prepare(req Request) ([]string, error) {
	if _, err := marketdata.ParsePeriodRange(req.Start, req.End); err != nil {
		return nil, err
	}
	sectors, err := r.Sectors(req)
	if err != nil {
		return nil, err
	}
	if len(sectors) == 0 {
		return nil, ErrNoSectors
	}
	return sectors, nil
}

func (r *Runner) run(ctx context.Context, runID string, req Request) (*Summary, error) {
	sectors, err := r.Prepare(req)
	if err != nil {
		return nil, err
	}

	ctx = infrastructure.WithRunID(ctx, runID)
	summary := &Summary{
		RunID:     runID,
		Start:     req.Start,
		End:       req.End,
		StartedAt: time.Now(),
		Outcomes:  make([]SectorOutcome, len(sectors)),
	}

	r.logger.InfoContext(ctx, "batch started",
		"sectors", len(sectors),
		"concurrency", r.opts.Concurrency,
		"sector_timeout", r.opts.SectorTimeout,
	)
	r.sink.Publish(Event{Type: EventBatchStarted, RunID: runID, Total: len(sectors), Time: summary.StartedAt})

	var (
		mu        sync.Mutex
		completed int
	)
	g := new(errgroup.Group)
	g.SetLimit(r.opts.Concurrency)

	for i, sector := range sectors {
		if ctx.Err() != nil {
			summary.Outcomes[i] = SectorOutcome{Sector: sector, Status: StatusCancelled, Err: ctx.Err(), Error: ctx.Err().Error()}
			continue
		}
		g.Go(func() error {
			r.sink.Publish(Event{Type: EventSectorStarted, RunID: runID, Sector: sector, Index: i + 1, Total: len(sectors), Time: time.Now()})

			outcome := r.analyze(ctx, sector, req)
			summary.Outcomes[i] = outcome

			mu.Lock()
			completed++
			done := completed
			mu.Unlock()

			r.sink.Publish(Event{
				Type:      EventSectorFinished,
				RunID:     runID,
				Sector:    sector,
				Index:     i + 1,
				Total:     len(sectors),
				Completed: done,
				Outcome:   &outcome,
				Time:      time.Now(),
			})
			return nil
		})
	}
	_ = g.Wait()

	summary.FinishedAt = time.Now()
	summary.tally()

	r.logger.InfoContext(ctx, "batch finished",
		"succeeded", summary.Succeeded,
		"empty", summary.Empty,
		"failed", summary.Failed,
		"timed_out", summary.TimedOut,
		"duration", summary.FinishedAt.Sub(summary.StartedAt),
	)
	r.sink.Publish(Event{Type: EventBatchFinished, RunID: runID, Total: len(sectors), Completed: len(sectors), Summary: summary, Time: summary.FinishedAt})

	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("batch %s: %w", runID, err)
	}
	return summary, nil
}

func (r *Runner) analyze(ctx context.Context, sector string, req Request) SectorOutcome {
	start := time.Now()
	sctx := ctx
	if r.opts.SectorTimeout > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(ctx, r.opts.SectorTimeout)
		defer cancel()
	}

	res, err := r.analyzer.Analyze(sctx, services.AnalysisRequest{
		Sector: sector,
		Start:  req.Start,
		End:    req.End,
		DryRun: r.opts.DryRun,
	})

	outcome := SectorOutcome{Sector: sector, Duration: time.Since(start)}
	switch {
	case err == nil:
		outcome.Bars = res.Load.Bars
		outcome.OutputDir = res.OutputDir
		if res.Result != nil {
			outcome.Signals = res.Result.Stats.Signals
			outcome.Pairs = res.Result.Stats.Pairs
		}
		outcome.Status = StatusSuccess
		if outcome.Pairs == 0 {
			outcome.Status = StatusEmpty
		}
	case ctx.Err() != nil:
		outcome.Status = StatusCancelled
	case errors.Is(sctx.Err(), context.DeadlineExceeded):
		outcome.Status = StatusTimeout
	case errors.Is(err, marketdata.ErrNoData):
		outcome.Status = StatusEmpty
	default:
		outcome.Status = StatusFailed
	}
	if err != nil {
		outcome.Err = err
		outcome.Error = err.Error()
	}

	level := slog.LevelInfo
	if outcome.Status == StatusFailed || outcome.Status == StatusTimeout {
		level = slog.LevelWarn
	}
	r.logger.Log(ctx, level, "sector finished",
		"sector", sector,
		"status", outcome.Status,
		"pairs", outcome.Pairs,
		"duration", outcome.Duration,
		"error", outcome.Error,
	)
	r.metrics.record(ctx, outcome)
	return outcome
}

type batchMetrics struct {
	sectors  metric.Int64Counter
	duration metric.Float64Histogram
}

func newBatchMetrics() (*batchMetrics, error) {
	meter := otel.Meter("sectorflow.batch")

	sectors, err := meter.Int64Counter(
		"batch_sectors_total",
		metric.WithDescription("Sectors analysed by batch runs, by status"),
	)
	if err != nil {
		return nil, fmt.Errorf("create sectors counter: %w", err)
	}
	duration, err := meter.Float64Histogram(
		"batch_sector_duration_seconds",
		metric.WithDescription("Per-sector analysis duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}
	return &batchMetrics{sectors: sectors, duration: duration}, nil
}

func (m *batchMetrics) record(ctx context.Context, o SectorOutcome) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("status", string(o.Status)))
	m.sectors.Add(ctx, 1, attrs)
	m.duration.Record(ctx, o.Duration.Seconds(), attrs)
}
