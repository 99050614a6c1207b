package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "sectorflow/internal/errors"
	"sectorflow/internal/leaderflow"
	"sectorflow/internal/marketdata"
	"sectorflow/internal/services"
)

// AnalysisResponse is the body returned by POST /analysis.
type AnalysisResponse struct {
	Sector     string               `json:"sector"`
	RunID      string               `json:"run_id"`
	Load       marketdata.LoadStats `json:"load"`
	Signals    int                  `json:"signals"`
	Enhanced   int                  `json:"enhanced"`
	PairCount  int                  `json:"pair_count"`
	Pairs      []leaderflow.Pair    `json:"pairs"`
	Summary    *leaderflow.Summary  `json:"summary"`
	Report     string               `json:"report"`
	OutputDir  string               `json:"output_dir,omitempty"`
	Files      []string             `json:"files,omitempty"`
	DurationMS int64                `json:"duration_ms"`
}

// AnalysisHandler serves sector listing and synchronous analysis.
type AnalysisHandler struct {
	service      AnalysisServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewAnalysisHandler creates the handler.
func NewAnalysisHandler(service AnalysisServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AnalysisHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "analysis_handler")),
		errorHandler: errorHandler,
	}
}

// Routes mounts GET /sectors and POST /analysis.
func (h *AnalysisHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Get("/sectors", h.ListSectors)
	r.Post("/analysis", h.Analyze)
	return r
}

// ListSectors handles GET /api/v1/sectors
func (h *AnalysisHandler) ListSectors(w http.ResponseWriter, r *http.Request) {
	sectors, err := h.service.Sectors()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if sectors == nil {
		sectors = []string{}
	}
	render.JSON(w, r, map[string]interface{}{
		"sectors": sectors,
		"count":   len(sectors),
	})
}

// Analyze handles POST /api/v1/analysis
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req services.AnalysisRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if err := checkPeriods(req.Start, req.End); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "analysis requested",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("sector", req.Sector),
		slog.String("start", req.Start),
		slog.String("end", req.End),
	)

	res, err := h.service.Analyze(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp := AnalysisResponse{
		Sector:     res.Sector,
		Load:       res.Load,
		Report:     res.Report,
		OutputDir:  res.OutputDir,
		Files:      res.Files,
		DurationMS: res.Duration.Round(time.Millisecond).Milliseconds(),
		Pairs:      []leaderflow.Pair{},
	}
	if res.Result != nil {
		resp.RunID = res.Result.RunID
		resp.Signals = res.Result.Stats.Signals
		resp.Enhanced = res.Result.Stats.Enhanced
		resp.PairCount = res.Result.Stats.Pairs
		resp.Summary = res.Result.Summary
		if res.Result.Pairs != nil {
			resp.Pairs = res.Result.Pairs
		}
	}
	render.JSON(w, r, resp)
}
