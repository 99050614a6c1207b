package services

import (
	"context"
	"os"
	"runtime"
	"time"

	"sectorflow/internal/config"
)

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Uptime    string                   `json:"uptime"`
	Checks    map[string]ServiceHealth `json:"checks"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ClientCounter reports connected progress listeners.
type ClientCounter interface {
	ClientCount() int
}

// HealthService reports whether the data directories are usable.
type HealthService struct {
	version   string
	paths     *config.Paths
	clients   ClientCounter
	startTime time.Time
}

// NewHealthService creates a health service. clients may be nil.
func NewHealthService(version string, paths *config.Paths, clients ClientCounter) *HealthService {
	return &HealthService{
		version:   version,
		paths:     paths,
		clients:   clients,
		startTime: time.Now(),
	}
}

// Check inspects the configured directories. A missing input directory
// degrades the service; it never fails the check outright.
func (h *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Checks:    make(map[string]ServiceHealth),
		Runtime: map[string]interface{}{
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
	if h.clients != nil {
		status.Runtime["websocket_clients"] = h.clients.ClientCount()
	}

	for name, dir := range map[string]string{
		"sector_dir": h.paths.SectorDir,
		"csv_dir":    h.paths.CSVDir,
		"output_dir": h.paths.OutputDir,
	} {
		if ctx.Err() != nil {
			break
		}
		info, err := os.Stat(dir)
		switch {
		case err != nil:
			status.Checks[name] = ServiceHealth{Status: "unhealthy", Message: err.Error()}
			status.Status = "degraded"
		case !info.IsDir():
			status.Checks[name] = ServiceHealth{Status: "unhealthy", Message: dir + " is not a directory"}
			status.Status = "degraded"
		default:
			status.Checks[name] = ServiceHealth{Status: "healthy"}
		}
	}
	return status
}
