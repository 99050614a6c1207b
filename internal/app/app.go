package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"sectorflow/internal/batch"
	"sectorflow/internal/config"
	apierrors "sectorflow/internal/errors"
	"sectorflow/internal/infrastructure"
	"sectorflow/internal/middleware"
	"sectorflow/internal/services"
	handlers "sectorflow/internal/transport/http"
	ws "sectorflow/internal/websocket"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Settings      services.Settings
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders

	WebSocketHub    *ws.Hub
	AnalysisService *services.AnalysisService
	HealthService   *services.HealthService
	BatchManager    *batch.Manager

	Router *chi.Mux
	Server *http.Server
}

// New wires the services, router and server from cfg. providers may be nil,
// in which case /metrics answers 404.
func New(cfg *config.Config, logger *slog.Logger, providers *infrastructure.OTelProviders) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}

	settings, err := services.SettingsFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve settings: %w", err)
	}
	if err := settings.Paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	settings.Paths.LogPathResolution(logger)

	a := &Application{
		Config:        cfg,
		Settings:      settings,
		Logger:        logger,
		OTelProviders: providers,
	}

	a.WebSocketHub = ws.NewHub(logger)
	a.AnalysisService = services.NewAnalysisService(settings, logger)
	a.HealthService = services.NewHealthService(infrastructure.ServiceVersion, settings.Paths, a.WebSocketHub)

	runner := batch.NewRunner(a.AnalysisService, batch.Options{
		Concurrency:   cfg.Batch.Concurrency,
		SectorTimeout: cfg.Batch.SectorTimeout,
		Exclude:       cfg.Batch.Exclude,
	}, a.WebSocketHub, logger)
	a.BatchManager = batch.NewManager(runner, settings.Paths.OutputDir, logger)

	if err := a.setupRouter(); err != nil {
		return nil, err
	}
	a.Server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      a.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return a, nil
}

func (a *Application) setupRouter() error {
	cfg := a.Config.Server
	errorHandler := apierrors.NewErrorHandler(a.Logger, false)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	// Long-lived connections stay outside the request deadline and limiter.
	r.Handle("/ws", ws.Handler(a.WebSocketHub, cfg.AllowedOrigins, a.Logger))
	r.Handle("/metrics", a.OTelProviders.MetricsHandler())

	otelMiddleware, err := middleware.NewOTelMiddleware()
	if err != nil {
		return fmt.Errorf("failed to create OpenTelemetry middleware: %w", err)
	}

	analysis := handlers.NewAnalysisHandler(a.AnalysisService, a.Logger, errorHandler)
	batches := handlers.NewBatchHandler(a.BatchManager, a.Logger, errorHandler)
	health := handlers.NewHealthHandler(a.HealthService, a.Logger)

	r.Group(func(r chi.Router) {
		r.Use(otelMiddleware.Handler)
		r.Use(apierrors.RequestLogger(errorHandler, a.Logger))
		r.Use(middleware.SecurityHeaders)
		r.Use(middleware.CORS(middleware.CORSConfig{AllowedOrigins: cfg.AllowedOrigins}))
		if cfg.RateLimit.Enabled {
			r.Use(middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, errorHandler, a.Logger).Handler)
		}
		r.Use(middleware.Timeout(cfg.RequestTimeout))

		r.Get("/healthz", health.HealthCheck)
		r.Get("/healthz/live", health.Liveness)

		r.Route("/api/v1", func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))
			r.Get("/sectors", analysis.ListSectors)
			r.Post("/analysis", analysis.Analyze)
			r.Mount("/batch", batches.Routes())
		})
	})

	a.Router = r
	return nil
}

// Serve runs the server on ln until ctx ends, then shuts down gracefully.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	a.WebSocketHub.Start()

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Server.Serve(ln)
	}()

	a.Logger.InfoContext(ctx, "server started",
		slog.String("address", ln.Addr().String()),
		slog.String("version", infrastructure.ServiceVersion))

	var serveErr error
	select {
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "shutdown requested")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("server error: %w", err)
		}
	}

	if err := a.Stop(context.WithoutCancel(ctx)); err != nil {
		return errors.Join(serveErr, err)
	}
	return serveErr
}

// Run listens on the configured address and serves until ctx ends.
func (a *Application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}
	if err := a.BatchManager.Stop(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("batch shutdown: %w", err))
	}
	a.WebSocketHub.Stop()

	a.Logger.InfoContext(ctx, "application shutdown complete")
	return errors.Join(errs...)
}
