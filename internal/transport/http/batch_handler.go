package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"sectorflow/internal/batch"
	apierrors "sectorflow/internal/errors"
)

// BatchHandler starts background batch runs.
type BatchHandler struct {
	manager      BatchManagerInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewBatchHandler creates the handler.
func NewBatchHandler(manager BatchManagerInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *BatchHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchHandler{
		manager:      manager,
		logger:       logger.With(slog.String("component", "batch_handler")),
		errorHandler: errorHandler,
	}
}

// Routes mounts POST / and GET /.
func (h *BatchHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Post("/", h.Start)
	r.Get("/", h.Status)
	return r
}

// Start handles POST /api/v1/batch. Progress is streamed over /ws.
func (h *BatchHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req batch.Request
	if err := decodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if err := checkPeriods(req.Start, req.End); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	runID, err := h.manager.Start(req)
	switch {
	case errors.Is(err, batch.ErrBatchRunning):
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(http.StatusConflict, "BATCH_RUNNING",
			"A batch is already running", map[string]string{"run_id": h.manager.Running()}))
		return
	case errors.Is(err, batch.ErrNoSectors):
		h.errorHandler.HandleError(w, r, apierrors.ValidationFailed([]apierrors.FieldError{
			{Field: "sectors", Message: err.Error()},
		}))
		return
	case err != nil:
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "batch accepted",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("run_id", runID),
		slog.Int("sectors", len(req.Sectors)),
	)

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]string{
		"run_id": runID,
		"status": "running",
		"events": "/ws",
	})
}

// Status handles GET /api/v1/batch
func (h *BatchHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{"running": false}
	if id := h.manager.Running(); id != "" {
		resp["running"] = true
		resp["run_id"] = id
	}
	if last := h.manager.Last(); last != nil {
		resp["last"] = last
	}
	render.JSON(w, r, resp)
}
