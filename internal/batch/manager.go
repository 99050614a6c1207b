package batch

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// ErrBatchRunning is returned when a batch is started while another runs.
var ErrBatchRunning = errors.New("batch already running")

// ErrNoSectors is returned when exclusions leave nothing to analyse.
var ErrNoSectors = errors.New("no sectors to analyze")

// Manager runs at most one batch at a time in the background and keeps the
// last summary for status queries.
type Manager struct {
	runner    *Runner
	outputDir string
	logger    *slog.Logger

	mu      sync.Mutex
	running string
	cancel  context.CancelFunc
	last    *Summary
	done    chan struct{}
}

// NewManager creates a manager. Summaries are written to outputDir when it
// is not empty.
func NewManager(runner *Runner, outputDir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		runner:    runner,
		outputDir: outputDir,
		logger:    logger.With(slog.String("component", "batch.manager")),
	}
}

// Start validates req and launches the batch. It returns the run id.
func (m *Manager) Start(req Request) (string, error) {
	if _, err := m.runner.Prepare(req); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running != "" {
		return "", ErrBatchRunning
	}

	runID := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	m.running = runID
	m.cancel = cancel
	m.done = make(chan struct{})

	go m.execute(ctx, runID, req, m.done)
	return runID, nil
}

func (m *Manager) execute(ctx context.Context, runID string, req Request, done chan struct{}) {
	defer close(done)

	summary, err := m.runner.run(ctx, runID, req)
	if err != nil {
		m.logger.Error("batch run failed", "run_id", runID, "error", err)
	}
	if summary != nil && m.outputDir != "" {
		if path, werr := WriteSummary(m.outputDir, summary); werr != nil {
			m.logger.Error("failed to write batch summary", "run_id", runID, "error", werr)
		} else {
			m.logger.Info("batch summary written", "run_id", runID, "path", path)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancel()
	m.running = ""
	m.cancel = nil
	if summary != nil {
		m.last = summary
	}
}

// Running returns the id of the active batch, or "".
func (m *Manager) Running() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Last returns the summary of the most recent finished batch.
func (m *Manager) Last() *Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Stop cancels the active batch and waits for it until ctx ends.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
