package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"sectorflow/internal/config"
)

var (
	globalLogger *slog.Logger
	globalCloser io.Closer
	globalMu     sync.Mutex
)

// InitializeLogger builds the application logger from cfg and installs it
// as the slog default. Calling it again replaces the previous logger.
func InitializeLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	logger, closer, err := NewLogger(cfg, os.Stdout)
	if err != nil {
		return nil, err
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalCloser != nil {
		globalCloser.Close()
	}
	globalLogger, globalCloser = logger, closer
	slog.SetDefault(logger)
	return logger, nil
}

// GetLogger returns the global logger instance.
// If not initialized, returns the default slog logger.
func GetLogger() *slog.Logger {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		return slog.Default()
	}
	return globalLogger
}

// CloseLogger flushes and closes the rotating log file, if any.
func CloseLogger() error {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalCloser == nil {
		return nil
	}
	err := globalCloser.Close()
	globalCloser = nil
	return err
}

// NewLogger creates a logger writing to console, a rotating file or both.
// The returned closer is nil when no file is involved.
func NewLogger(cfg config.LoggingConfig, console io.Writer) (*slog.Logger, io.Closer, error) {
	var (
		output io.Writer
		closer io.Closer
	)

	switch strings.ToLower(cfg.Output) {
	case "file", "both":
		rotator, err := newRotator(cfg)
		if err != nil {
			return nil, nil, err
		}
		closer = rotator
		output = rotator
		if strings.ToLower(cfg.Output) == "both" {
			output = io.MultiWriter(console, rotator)
		}
	default:
		output = console
	}

	opts := &slog.HandlerOptions{
		AddSource: ParseLevel(cfg.Level) == slog.LevelDebug,
		Level:     ParseLevel(cfg.Level),
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(output, opts)
	} else {
		handler = slog.NewJSONHandler(output, opts)
	}

	return slog.New(&contextHandler{Handler: handler}), closer, nil
}

func newRotator(cfg config.LoggingConfig) (*lumberjack.Logger, error) {
	if cfg.FilePath == "" {
		return nil, fmt.Errorf("log file path is empty")
	}
	dir := filepath.Dir(cfg.FilePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}
	return &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}, nil
}

// contextHandler adds trace_id and run_id from the context to each record.
type contextHandler struct {
	slog.Handler
}

// Handle adds trace_id to the record if present in context
func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		if traceID := GetTraceID(ctx); traceID != "" {
			r.AddAttrs(slog.String("trace_id", traceID))
		}
		if runID := RunIDFromContext(ctx); runID != "" {
			r.AddAttrs(slog.String("run_id", runID))
		}
	}
	return h.Handler.Handle(ctx, r)
}

// WithAttrs returns a new Handler with additional attributes
func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

// WithGroup returns a new Handler with the given group name
func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name)}
}

// ParseLevel converts string log level to slog.Level
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
