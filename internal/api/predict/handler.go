package predict

import (
	"context"
	"io"
	"net/http"

	"diabetes-risk/internal/api/respond"
	"diabetes-risk/internal/domain/prediction"
	predictionservice "diabetes-risk/internal/services/prediction"
	"diabetes-risk/pkg/errors"
	"diabetes-risk/pkg/logger"
	"diabetes-risk/pkg/requestid"
)

// Client-facing error messages. Failure detail stays in logs and the tracker.
const (
	MsgNoInput         = "No input data"
	MsgFailed          = "Prediction failed"
	MsgPayloadTooLarge = "Payload too large"
)

// Predictor scores raw request bodies
type Predictor interface {
	Predict(ctx context.Context, body []byte) (*predictionservice.Scored, error)
}

// Handler serves POST /predict
type Handler struct {
	predictor Predictor
	log       *logger.Logger
}

// NewHandler creates a new predict handler
func NewHandler(predictor Predictor, log *logger.Logger) *Handler {
	return &Handler{
		predictor: predictor,
		log:       log.With("handler", "predict"),
	}
}

// ServeHTTP maps pipeline outcomes to status codes: ErrNoInput is 400, any
// other failure is a generic 500. ?detail=true adds the risk band and the
// risk factor breakdown.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(w, http.StatusRequestEntityTooLarge, MsgPayloadTooLarge)
			return
		}
		h.log.Warnw("Failed to read request body",
			"request_id", requestid.FromContext(r.Context()),
			"error", err,
		)
		respond.Error(w, http.StatusInternalServerError, MsgFailed)
		return
	}

	scored, err := h.predictor.Predict(r.Context(), body)
	if err != nil {
		status, msg := statusFor(err)
		respond.Error(w, status, msg)
		return
	}

	if r.URL.Query().Get("detail") == "true" {
		detail := prediction.Describe(scored.Result, scored.Calibrated)
		if scored.Measurements != nil {
			detail.Contributions = scored.Measurements.Contributions()
		}
		respond.JSON(w, http.StatusOK, detail)
		return
	}
	respond.JSON(w, http.StatusOK, scored.Result)
}

func statusFor(err error) (int, string) {
	if errors.Is(err, errors.ErrNoInput) {
		return http.StatusBadRequest, MsgNoInput
	}
	return http.StatusInternalServerError, MsgFailed
}
