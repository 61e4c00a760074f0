package insights

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"diabetes-risk/internal/api/respond"
	"diabetes-risk/internal/domain/insights"
	"diabetes-risk/internal/ml"
	insightsservice "diabetes-risk/internal/services/insights"
	"diabetes-risk/pkg/errors"
	"diabetes-risk/pkg/logger"
	"diabetes-risk/pkg/requestid"
)

const (
	MsgInvalidThreshold   = "Invalid threshold"
	MsgMetricsUnavailable = "Metrics unavailable"
	MsgInvalidWindow      = "Invalid window"
	MsgNoJournal          = "Prediction journal not configured"
	MsgStatsUnavailable   = "Stats unavailable"
)

// Service is the subset of the insights service used by the handlers
type Service interface {
	Population(ctx context.Context) []insights.PopulationRecord
	ModelMetrics(ctx context.Context, threshold float64) (*insights.Performance, error)
	PredictionStats(ctx context.Context, window time.Duration) (*insights.PredictionStats, error)
}

// Handler serves the chart and model introspection endpoints
type Handler struct {
	svc  Service
	info ml.Info
	log  *logger.Logger
}

// NewHandler creates a new insights handler
func NewHandler(svc Service, info ml.Info, log *logger.Logger) *Handler {
	return &Handler{
		svc:  svc,
		info: info,
		log:  log.With("handler", "insights"),
	}
}

// HandlePopulation serves GET /population-stats
func (h *Handler) HandlePopulation(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, h.svc.Population(r.Context()))
}

// HandleModelMetrics serves GET /model-metrics?threshold=<float>
func (h *Handler) HandleModelMetrics(w http.ResponseWriter, r *http.Request) {
	threshold := insightsservice.DefaultThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, MsgInvalidThreshold)
			return
		}
		threshold = v
	}

	perf, err := h.svc.ModelMetrics(r.Context(), threshold)
	if err != nil {
		var verr *errors.ValidationError
		if errors.As(err, &verr) && verr.Field == "threshold" {
			respond.Error(w, http.StatusBadRequest, MsgInvalidThreshold)
			return
		}
		h.log.Errorw("Failed to compute model metrics",
			"request_id", requestid.FromContext(r.Context()),
			"threshold", threshold,
			"error", err,
		)
		respond.Error(w, http.StatusInternalServerError, MsgMetricsUnavailable)
		return
	}

	respond.JSON(w, http.StatusOK, perf)
}

// HandleModelInfo serves GET /model-info
func (h *Handler) HandleModelInfo(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, h.info)
}

// HandlePredictionStats serves GET /prediction-stats?window=<duration>
func (h *Handler) HandlePredictionStats(w http.ResponseWriter, r *http.Request) {
	window := insightsservice.DefaultStatsWindow
	if raw := r.URL.Query().Get("window"); raw != "" {
		v, err := time.ParseDuration(raw)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, MsgInvalidWindow)
			return
		}
		window = v
	}

	stats, err := h.svc.PredictionStats(r.Context(), window)
	switch {
	case err == nil:
		respond.JSON(w, http.StatusOK, stats)
	case errors.Is(err, errors.ErrInvalidInput):
		respond.Error(w, http.StatusBadRequest, MsgInvalidWindow)
	case errors.Is(err, errors.ErrNotFound):
		respond.Error(w, http.StatusNotFound, MsgNoJournal)
	default:
		h.log.Errorw("Failed to read prediction stats",
			"request_id", requestid.FromContext(r.Context()),
			"window", window,
			"error", err,
		)
		respond.Error(w, http.StatusInternalServerError, MsgStatsUnavailable)
	}
}
