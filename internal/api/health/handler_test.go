package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diabetes-risk/internal/domain/patient"
	"diabetes-risk/internal/ml"
	"diabetes-risk/pkg/logger"
)

type stubScorer struct{}

func (stubScorer) Score(patient.FeatureVector) (ml.Outcome, error) { return ml.Outcome{}, nil }
func (stubScorer) Kind() ml.Kind                                   { return ml.KindDecision }

func TestHandleHealth_Unconditional(t *testing.T) {
	h := New(logger.NewNop(), nil, Stores{}, "diabetes-risk", "test")

	rec := httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"Backend running"}`, rec.Body.String())
}

func TestHandleLiveness(t *testing.T) {
	h := New(logger.NewNop(), stubScorer{}, Stores{}, "diabetes-risk", "test")

	rec := httptest.NewRecorder()
	h.HandleLiveness(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleReadiness(t *testing.T) {
	tests := []struct {
		name       string
		model      ml.Scorer
		wantStatus int
		wantState  string
	}{
		{name: "model loaded, no stores", model: stubScorer{}, wantStatus: http.StatusOK, wantState: StatusHealthy},
		{name: "model missing", model: nil, wantStatus: http.StatusServiceUnavailable, wantState: StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(logger.NewNop(), tt.model, Stores{}, "diabetes-risk", "test")

			rec := httptest.NewRecorder()
			h.HandleReadiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
			require.Equal(t, tt.wantStatus, rec.Code)

			var status HealthStatus
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
			assert.Equal(t, tt.wantState, status.Status)
			assert.Equal(t, "diabetes-risk", status.Service)
			assert.Len(t, status.Checks, 1)
			assert.Contains(t, status.Checks, "model")
		})
	}
}
