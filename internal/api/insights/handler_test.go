package insights

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diabetes-risk/internal/domain/insights"
	"diabetes-risk/internal/domain/patient"
	"diabetes-risk/internal/domain/prediction"
	"diabetes-risk/internal/ml"
	insightsservice "diabetes-risk/internal/services/insights"
	"diabetes-risk/pkg/errors"
	"diabetes-risk/pkg/logger"
)

type nopScorer struct{}

func (nopScorer) Score(patient.FeatureVector) (ml.Outcome, error) { return ml.Outcome{}, nil }
func (nopScorer) Kind() ml.Kind                                   { return ml.KindProbabilistic }

type failingService struct{}

func (failingService) Population(ctx context.Context) []insights.PopulationRecord { return nil }

func (failingService) ModelMetrics(ctx context.Context, threshold float64) (*insights.Performance, error) {
	return nil, errors.Wrap(errors.ErrUnavailable, "postgres down")
}

func (failingService) PredictionStats(ctx context.Context, window time.Duration) (*insights.PredictionStats, error) {
	return nil, errors.Wrap(errors.ErrUnavailable, "clickhouse down")
}

type staticJournal []prediction.LabelCount

func (j staticJournal) CountByLabel(context.Context, time.Time) ([]prediction.LabelCount, error) {
	return j, nil
}

func newTestHandler() *Handler {
	svc := insightsservice.NewService(insightsservice.Config{PopulationSize: 500, Seed: 11}, nopScorer{}, nil, nil, logger.NewNop())
	info := ml.Info{Kind: ml.KindProbabilistic, Calibrated: true, Format: "onnx", FeatureNames: patient.FeatureNames[:]}
	return NewHandler(svc, info, logger.NewNop())
}

func get(handler http.HandlerFunc, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHandlePopulation(t *testing.T) {
	rec := get(newTestHandler().HandlePopulation, "/population-stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var records []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 500)
	for _, key := range []string{"age", "bmi", "glucose", "bloodPressure", "hasDiabetes"} {
		assert.Contains(t, records[0], key)
	}
}

func TestHandleModelMetrics(t *testing.T) {
	tests := []struct {
		name          string
		target        string
		wantStatus    int
		wantThreshold float64
	}{
		{name: "default threshold", target: "/model-metrics", wantStatus: http.StatusOK, wantThreshold: 0.5},
		{name: "explicit threshold", target: "/model-metrics?threshold=0.3", wantStatus: http.StatusOK, wantThreshold: 0.3},
		{name: "clamped high", target: "/model-metrics?threshold=7", wantStatus: http.StatusOK, wantThreshold: 1},
		{name: "clamped low", target: "/model-metrics?threshold=-1", wantStatus: http.StatusOK, wantThreshold: 0},
		{name: "not a number", target: "/model-metrics?threshold=abc", wantStatus: http.StatusBadRequest},
		{name: "nan", target: "/model-metrics?threshold=NaN", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(newTestHandler().HandleModelMetrics, tt.target)
			require.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantStatus != http.StatusOK {
				assert.JSONEq(t, `{"error":"Invalid threshold"}`, rec.Body.String())
				return
			}

			var perf insights.Performance
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &perf))
			assert.Equal(t, tt.wantThreshold, perf.Threshold)
			assert.Equal(t, insights.SourceSynthetic, perf.Source)
			assert.Len(t, perf.ROC, 21)
			assert.Greater(t, perf.AUC, 0.0)
		})
	}
}

func TestHandleModelMetrics_ServiceFailure(t *testing.T) {
	h := NewHandler(failingService{}, ml.Info{}, logger.NewNop())
	rec := get(h.HandleModelMetrics, "/model-metrics?threshold=0.5")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Metrics unavailable"}`, rec.Body.String())
}

func TestHandleModelInfo(t *testing.T) {
	rec := get(newTestHandler().HandleModelInfo, "/model-info")
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "probabilistic", got["scorer"])
	assert.Equal(t, true, got["calibrated"])
	assert.Len(t, got["feature_names"], patient.FeatureCount)
}

func TestHandlePredictionStats(t *testing.T) {
	svc := insightsservice.NewService(insightsservice.Config{}, nopScorer{}, nil, nil, logger.NewNop()).
		WithJournal(staticJournal{
			{Label: "High Risk", Count: 3, AvgRiskScore: 81.234},
			{Label: "Low Risk", Count: 5, AvgRiskScore: 12.5},
		})
	h := NewHandler(svc, ml.Info{}, logger.NewNop())

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantWindow string
	}{
		{name: "default window", target: "/prediction-stats", wantStatus: http.StatusOK, wantWindow: "24h0m0s"},
		{name: "explicit window", target: "/prediction-stats?window=90m", wantStatus: http.StatusOK, wantWindow: "1h30m0s"},
		{name: "unparseable", target: "/prediction-stats?window=week", wantStatus: http.StatusBadRequest},
		{name: "not positive", target: "/prediction-stats?window=-1h", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(h.HandlePredictionStats, tt.target)
			require.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantStatus != http.StatusOK {
				assert.JSONEq(t, `{"error":"Invalid window"}`, rec.Body.String())
				return
			}

			var stats insights.PredictionStats
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
			assert.Equal(t, tt.wantWindow, stats.Window)
			assert.Equal(t, uint64(8), stats.Total)
			require.Len(t, stats.Labels, 2)
			assert.Equal(t, 81.23, stats.Labels[0].AvgRiskScore)
		})
	}
}

func TestHandlePredictionStats_Errors(t *testing.T) {
	rec := get(newTestHandler().HandlePredictionStats, "/prediction-stats")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Prediction journal not configured"}`, rec.Body.String())

	h := NewHandler(failingService{}, ml.Info{}, logger.NewNop())
	rec = get(h.HandlePredictionStats, "/prediction-stats")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Stats unavailable"}`, rec.Body.String())
}
