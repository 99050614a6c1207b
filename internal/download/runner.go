package download

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// ErrNoArchive means the command succeeded but left no file behind.
var ErrNoArchive = errors.New("download produced no archive")

// Options configure a Runner.
type Options struct {
	Command Command
	Timeout time.Duration // per attempt
	Retries int
	Rate    float64 // commands per second
	Extract bool
}

// Failure records a job that could not be fetched.
type Failure struct {
	Job Job    `json:"job"`
	Err string `json:"error"`
}

// Report summarises a download run.
type Report struct {
	Downloaded int       `json:"downloaded"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	Extracted  int       `json:"extracted"`
	Failures   []Failure `json:"failures,omitempty"`
}

// Runner executes download jobs one after another.
type Runner struct {
	opts    Options
	limiter *rate.Limiter
	logger  *slog.Logger
	backoff func() backoff.BackOff
}

// NewRunner creates a runner paced at opts.Rate commands per second.
func NewRunner(opts Options, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
	}
	return &Runner{
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.With(slog.String("component", "download")),
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 2 * time.Second
			b.MaxElapsedTime = 0
			return b
		},
	}
}

// Run fetches every job whose archive is not on disk yet and, when enabled,
// extracts the archives into their stock folders. Individual failures are
// collected in the report; only cancellation aborts the run.
func (r *Runner) Run(ctx context.Context, jobs []Job) (Report, error) {
	var report Report
	var fetched []Job

	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if _, err := os.Stat(job.Local); err == nil {
			r.logger.DebugContext(ctx, "archive exists", "file", job.Local)
			report.Skipped++
			fetched = append(fetched, job)
			continue
		}

		if err := os.MkdirAll(job.Dir(), 0755); err != nil {
			return report, fmt.Errorf("create stock folder: %w", err)
		}

		r.logger.InfoContext(ctx, "downloading",
			"progress", fmt.Sprintf("%d/%d", i+1, len(jobs)),
			"stock", job.Stock,
			"period", job.Period.String(),
			"kind", string(job.Kind),
		)

		if err := r.fetch(ctx, job); err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			r.logger.WarnContext(ctx, "download failed", "stock", job.Stock, "file", job.Local, "error", err)
			report.Failed++
			report.Failures = append(report.Failures, Failure{Job: job, Err: err.Error()})
			continue
		}
		report.Downloaded++
		fetched = append(fetched, job)
	}

	if r.opts.Extract {
		for _, job := range fetched {
			n, err := ExtractZip(job.Local, job.Dir())
			if err != nil {
				r.logger.WarnContext(ctx, "extract failed", "file", job.Local, "error", err)
				continue
			}
			r.logger.DebugContext(ctx, "extracted", "file", job.Local, "files", n)
			report.Extracted++
		}
	}

	r.logger.InfoContext(ctx, "download finished",
		"downloaded", report.Downloaded,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"extracted", report.Extracted,
	)
	return report, nil
}

// fetch runs the command with retries. A missing binary is not retried.
func (r *Runner) fetch(ctx context.Context, job Job) error {
	attempt := 0
	op := func() error {
		attempt++
		if err := r.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		err := r.exec(ctx, job)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
			return backoff.Permanent(err)
		}
		r.logger.DebugContext(ctx, "attempt failed", "file", job.Local, "attempt", attempt, "error", err)
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(r.backoff(), uint64(max(r.opts.Retries, 0))), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return err
	}

	if _, err := os.Stat(job.Local); err != nil {
		return fmt.Errorf("%w: %s", ErrNoArchive, job.Local)
	}
	return nil
}

func (r *Runner) exec(ctx context.Context, job Job) error {
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.opts.Command.Name, r.opts.Command.Expand(job)...)
	out, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && partialSuccess(exitErr.ExitCode()) {
		r.logger.WarnContext(ctx, "partial download", "file", job.Local)
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("command timed out after %s", r.opts.Timeout)
	}
	return fmt.Errorf("run %s: %w: %s", r.opts.Command.Name, err, truncate(out, 200))
}

// partialSuccess reports the tool's -2 status, as seen on either platform.
func partialSuccess(code int) bool {
	return code == -2 || code == 254 || int64(code) == 0xFFFFFFFE
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
