package http

import (
	"context"

	"sectorflow/internal/batch"
	"sectorflow/internal/services"
)

// AnalysisServiceInterface runs single-sector analyses.
type AnalysisServiceInterface interface {
	Sectors() ([]string, error)
	Analyze(ctx context.Context, req services.AnalysisRequest) (*services.AnalysisResult, error)
}

// BatchManagerInterface starts background batches and reports on them.
type BatchManagerInterface interface {
	Start(req batch.Request) (string, error)
	Running() string
	Last() *batch.Summary
}

// HealthChecker reports service health.
type HealthChecker interface {
	Check(ctx context.Context) services.HealthStatus
}
