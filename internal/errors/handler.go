package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"sectorflow/internal/leaderflow"
	"sectorflow/internal/marketdata"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := middleware.GetReqID(r.Context())
	problem := ToProblem(err, r.URL.Path)
	problem.WithExtension("request_id", reqID)

	level := slog.LevelWarn
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.Int("status", problem.Status),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	render.Render(w, r, problem)
}

// ToProblem maps an error to problem details:
// parameter validation is 400, broken data contracts 422, missing data or
// sectors 404, expired or cancelled contexts 504 and everything else 500.
func ToProblem(err error, instance string) *ProblemDetails {
	var (
		apiErr *APIError
		valErr *leaderflow.ValidationError
		preErr *leaderflow.PreconditionError
		colErr *marketdata.DataContractError
	)

	switch {
	case errors.As(err, &apiErr):
		problem := NewProblemDetails(apiErr.StatusCode, problemType(apiErr.StatusCode),
			http.StatusText(apiErr.StatusCode), apiErr.Message, instance).
			WithExtension("error_code", apiErr.ErrorCode)
		if apiErr.Details != nil {
			problem.WithExtension("details", apiErr.Details)
		}
		return problem

	case errors.As(err, &valErr):
		return NewProblemDetails(http.StatusBadRequest, TypeValidation, "Invalid Parameters", valErr.Error(), instance).
			WithExtension("field", valErr.Field).
			WithExtension("value", valErr.Value)

	case errors.As(err, &preErr):
		return NewProblemDetails(http.StatusUnprocessableEntity, TypeDataContract, "Data Contract Violated", err.Error(), instance).
			WithExtension("symbol", preErr.Symbol).
			WithExtension("index", preErr.Index)

	case errors.As(err, &colErr):
		return NewProblemDetails(http.StatusUnprocessableEntity, TypeDataContract, "Data Contract Violated", err.Error(), instance).
			WithExtension("column", colErr.Column)

	case errors.Is(err, leaderflow.ErrPrecondition):
		return NewProblemDetails(http.StatusUnprocessableEntity, TypeDataContract, "Data Contract Violated", err.Error(), instance)

	case errors.Is(err, marketdata.ErrNoData), errors.Is(err, marketdata.ErrSectorNotFound):
		return NewProblemDetails(http.StatusNotFound, TypeDataNotFound, "Data Not Found", err.Error(), instance)

	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return NewProblemDetails(http.StatusGatewayTimeout, TypeTimeout, "Request Timeout",
			"The request took too long to process and was cancelled", instance)

	default:
		return NewProblemDetails(http.StatusInternalServerError, TypeInternal, "Internal Server Error",
			"An unexpected error occurred while processing your request", instance)
	}
}

func problemType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return TypeValidation
	case http.StatusNotFound:
		return TypeNotFound
	case http.StatusConflict:
		return TypeConflict
	case http.StatusTooManyRequests:
		return TypeRateLimit
	case http.StatusGatewayTimeout:
		return TypeTimeout
	default:
		return TypeInternal
	}
}

// HandlePanic recovers from panics and returns RFC 7807 error
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	reqID := middleware.GetReqID(r.Context())
	stack := string(debug.Stack())

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", stack),
	)

	problem := NewProblemDetails(http.StatusInternalServerError, TypeInternal, "Internal Server Error",
		"An unexpected error occurred", r.URL.Path).
		WithExtension("request_id", reqID)
	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
		problem.WithExtension("stack", stack)
	}

	render.Render(w, r, problem)
}

// NotFound returns a standard 404 error
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	render.Render(w, r, NewProblemDetails(http.StatusNotFound, TypeNotFound, "Not Found",
		"The requested resource was not found", r.URL.Path).
		WithExtension("request_id", middleware.GetReqID(r.Context())))
}

// MethodNotAllowed returns a standard 405 error
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	render.Render(w, r, NewProblemDetails(http.StatusMethodNotAllowed, TypeInternal, "Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method), r.URL.Path).
		WithExtension("request_id", middleware.GetReqID(r.Context())))
}
