package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sectorflow/internal/leaderflow"
	"sectorflow/internal/marketdata"
)

func TestToProblem(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"parameter validation", &leaderflow.ValidationError{Field: "match.max_lag_minutes", Message: "must be greater than 0", Value: 0}, http.StatusBadRequest, TypeValidation},
		{"data contract", fmt.Errorf("validate dataset: %w", &leaderflow.PreconditionError{Symbol: "2330", Index: 3, Reason: "timestamps not increasing"}), http.StatusUnprocessableEntity, TypeDataContract},
		{"missing column", &marketdata.DataContractError{File: "a.csv", Column: "close_price"}, http.StatusUnprocessableEntity, TypeDataContract},
		{"no data", fmt.Errorf("load sector: %w", marketdata.ErrNoData), http.StatusNotFound, TypeDataNotFound},
		{"unknown sector", marketdata.ErrSectorNotFound, http.StatusNotFound, TypeDataNotFound},
		{"deadline", fmt.Errorf("run: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, TypeTimeout},
		{"api error", Conflict("batch already running"), http.StatusConflict, TypeConflict},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError, TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ToProblem(tt.err, "/api/v1/analysis")
			assert.Equal(t, tt.wantStatus, p.Status)
			assert.Equal(t, tt.wantType, p.Type)
			assert.Equal(t, "/api/v1/analysis", p.Instance)
		})
	}
}

func TestToProblemHidesInternalDetail(t *testing.T) {
	p := ToProblem(errors.New("open /secret/path: permission denied"), "/x")
	assert.NotContains(t, p.Detail, "/secret/path")
}

func TestProblemMarshalJSON(t *testing.T) {
	p := NewProblemDetails(http.StatusBadRequest, TypeValidation, "Invalid Parameters", "bad", "/x").
		WithExtension("field", "signal.min_amount")

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, TypeValidation, doc["type"])
	assert.Equal(t, float64(400), doc["status"])
	assert.Equal(t, "signal.min_amount", doc["field"])
}

func TestHandleError(t *testing.T) {
	h := NewErrorHandler(discard(), false)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis", nil)

	h.HandleError(rec, req, ValidationFailed([]FieldError{{Field: "start", Message: "required"}}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "VALIDATION_FAILED", doc["error_code"])
	assert.NotNil(t, doc["details"])
}

func TestRequestLoggerRecoversPanic(t *testing.T) {
	h := NewErrorHandler(discard(), true)
	mw := RequestLogger(h, discard())

	rec := httptest.NewRecorder()
	mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "boom")
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
