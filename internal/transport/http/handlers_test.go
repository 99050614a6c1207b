package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sectorflow/internal/batch"
	apierrors "sectorflow/internal/errors"
	"sectorflow/internal/leaderflow"
	"sectorflow/internal/marketdata"
	"sectorflow/internal/services"
)

// MockAnalysisService is a mock implementation of AnalysisServiceInterface
type MockAnalysisService struct {
	mock.Mock
}

func (m *MockAnalysisService) Sectors() ([]string, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockAnalysisService) Analyze(ctx context.Context, req services.AnalysisRequest) (*services.AnalysisResult, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.AnalysisResult), args.Error(1)
}

// MockBatchManager is a mock implementation of BatchManagerInterface
type MockBatchManager struct {
	mock.Mock
}

func (m *MockBatchManager) Start(req batch.Request) (string, error) {
	args := m.Called(req)
	return args.String(0), args.Error(1)
}

func (m *MockBatchManager) Running() string {
	return m.Called().String(0)
}

func (m *MockBatchManager) Last() *batch.Summary {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*batch.Summary)
}

type stubHealth services.HealthStatus

func (s stubHealth) Check(context.Context) services.HealthStatus { return services.HealthStatus(s) }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func newRouter(analysis AnalysisServiceInterface, manager BatchManagerInterface) http.Handler {
	logger := testLogger()
	eh := apierrors.NewErrorHandler(logger, false)
	r := chi.NewRouter()
	r.Mount("/api/v1", NewAnalysisHandler(analysis, logger, eh).Routes())
	r.Mount("/api/v1/batch", NewBatchHandler(manager, logger, eh).Routes())
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), rec.Body.String())
	}
	return rec, decoded
}

func TestListSectors(t *testing.T) {
	svc := new(MockAnalysisService)
	svc.On("Sectors").Return([]string{"DJ_IC基板", "DJ_PCB"}, nil).Once()
	svc.On("Sectors").Return(nil, errors.New("read sector directory: denied")).Once()
	h := newRouter(svc, new(MockBatchManager))

	rec, body := do(t, h, http.MethodGet, "/api/v1/sectors", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), body["count"])
	assert.Equal(t, []interface{}{"DJ_IC基板", "DJ_PCB"}, body["sectors"])

	rec, body = do(t, h, http.MethodGet, "/api/v1/sectors", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, body["detail"], "denied")
	svc.AssertExpectations(t)
}

func TestAnalyze(t *testing.T) {
	result := &services.AnalysisResult{
		Sector: "DJ_PCB",
		Load:   marketdata.LoadStats{Bars: 240},
		Result: &leaderflow.Result{
			RunID:   "run-1",
			Pairs:   []leaderflow.Pair{{LeaderSymbol: "2330", FollowerSymbol: "2303", TimeLagMinutes: 4}},
			Summary: leaderflow.Aggregate(nil, nil),
			Stats:   leaderflow.RunStats{Signals: 3, Enhanced: 1, Pairs: 1},
		},
		Report:   "report",
		Duration: 1500 * time.Millisecond,
	}

	tests := []struct {
		name       string
		body       string
		setup      func(m *MockAnalysisService)
		wantStatus int
		check      func(t *testing.T, body map[string]interface{})
	}{
		{
			name: "success",
			body: `{"sector":"DJ_PCB","start":"202403","end":"202404","dry_run":true}`,
			setup: func(m *MockAnalysisService) {
				m.On("Analyze", services.AnalysisRequest{Sector: "DJ_PCB", Start: "202403", End: "202404", DryRun: true}).
					Return(result, nil)
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "run-1", body["run_id"])
				assert.Equal(t, float64(3), body["signals"])
				assert.Equal(t, float64(1), body["pair_count"])
				assert.Equal(t, float64(1500), body["duration_ms"])
				assert.Len(t, body["pairs"], 1)
			},
		},
		{
			name:       "malformed body",
			body:       `{"sector":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing fields",
			body:       `{"start":"2024"}`,
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "VALIDATION_FAILED", body["error_code"])
				details, ok := body["details"].([]interface{})
				require.True(t, ok)
				assert.Len(t, details, 3)
			},
		},
		{
			name:       "reversed periods",
			body:       `{"sector":"DJ_PCB","start":"202405","end":"202403"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "invalid thresholds",
			body: `{"sector":"DJ_PCB","start":"202403","end":"202403"}`,
			setup: func(m *MockAnalysisService) {
				m.On("Analyze", mock.Anything).Return(nil, &leaderflow.ValidationError{Field: "signal.money_multiplier", Message: "must be greater than 1", Value: 0.5})
			},
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "signal.money_multiplier", body["field"])
			},
		},
		{
			name: "no data",
			body: `{"sector":"DJ_PCB","start":"202403","end":"202403"}`,
			setup: func(m *MockAnalysisService) {
				m.On("Analyze", mock.Anything).Return(nil, fmt.Errorf("%w: sector DJ_PCB", marketdata.ErrNoData))
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "broken data contract",
			body: `{"sector":"DJ_PCB","start":"202403","end":"202403"}`,
			setup: func(m *MockAnalysisService) {
				m.On("Analyze", mock.Anything).Return(nil, fmt.Errorf("analyze DJ_PCB: %w", &leaderflow.PreconditionError{Symbol: "2330", Index: 4, Reason: "timestamps not increasing"}))
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAnalysisService)
			if tt.setup != nil {
				tt.setup(svc)
			}
			rec, body := do(t, newRouter(svc, new(MockBatchManager)), http.MethodPost, "/api/v1/analysis", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.check != nil {
				tt.check(t, body)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestBatchStart(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(m *MockBatchManager)
		wantStatus int
	}{
		{
			name: "accepted",
			body: `{"sectors":["DJ_PCB"],"start":"202506","end":"202506"}`,
			setup: func(m *MockBatchManager) {
				m.On("Start", batch.Request{Sectors: []string{"DJ_PCB"}, Start: "202506", End: "202506"}).Return("run-42", nil)
			},
			wantStatus: http.StatusAccepted,
		},
		{
			name: "already running",
			body: `{"start":"202506","end":"202506"}`,
			setup: func(m *MockBatchManager) {
				m.On("Start", mock.Anything).Return("", batch.ErrBatchRunning)
				m.On("Running").Return("run-41")
			},
			wantStatus: http.StatusConflict,
		},
		{
			name: "everything excluded",
			body: `{"start":"202506","end":"202506"}`,
			setup: func(m *MockBatchManager) {
				m.On("Start", mock.Anything).Return("", batch.ErrNoSectors)
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad period",
			body:       `{"start":"2025-6","end":"202506"}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(MockBatchManager)
			if tt.setup != nil {
				tt.setup(m)
			}
			rec, body := do(t, newRouter(new(MockAnalysisService), m), http.MethodPost, "/api/v1/batch", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus == http.StatusAccepted {
				assert.Equal(t, "run-42", body["run_id"])
			}
			m.AssertExpectations(t)
		})
	}
}

func TestBatchStatus(t *testing.T) {
	m := new(MockBatchManager)
	m.On("Running").Return("run-9")
	m.On("Last").Return(&batch.Summary{RunID: "run-8", Succeeded: 3})

	rec, body := do(t, newRouter(new(MockAnalysisService), m), http.MethodGet, "/api/v1/batch", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["running"])
	assert.Equal(t, "run-9", body["run_id"])
	last, ok := body["last"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "run-8", last["run_id"])
}

func TestHealthCheck(t *testing.T) {
	h := NewHealthHandler(stubHealth{Status: "degraded", Version: "1.0.0"}, testLogger())
	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body services.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "1.0.0", body.Version)
}
