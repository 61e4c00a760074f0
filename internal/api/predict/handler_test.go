package predict

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"diabetes-risk/internal/domain/patient"
	"diabetes-risk/internal/domain/prediction"
	"diabetes-risk/internal/ml"
	predictionservice "diabetes-risk/internal/services/prediction"
	"diabetes-risk/pkg/errors"
	"diabetes-risk/pkg/logger"
)

type mockScorer struct {
	mock.Mock
}

func (m *mockScorer) Score(v patient.FeatureVector) (ml.Outcome, error) {
	args := m.Called(v)
	return args.Get(0).(ml.Outcome), args.Error(1)
}

func (m *mockScorer) Kind() ml.Kind { return ml.KindDecision }

func newTestHandler(scorer *mockScorer) *Handler {
	svc := predictionservice.NewService(scorer, predictionservice.Options{}, logger.NewNop())
	return NewHandler(svc, logger.NewNop())
}

func post(h http.Handler, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Success(t *testing.T) {
	scorer := &mockScorer{}
	scorer.On("Score", mock.Anything).Return(ml.Outcome{Class: 1, Probability: 0.7311}, nil)

	rec := post(newTestHandler(scorer), "/predict", `{"gender":"male","glucose":180,"bmi":35,"age":55}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, map[string]interface{}{
		"prediction":  "High Risk",
		"risk_score":  73.11,
		"probability": 0.7311,
	}, got)
}

func TestHandler_Detail(t *testing.T) {
	scorer := &mockScorer{}
	scorer.On("Score", mock.Anything).Return(ml.Outcome{Class: 0, Probability: 0.4}, nil)

	rec := post(newTestHandler(scorer), "/predict?detail=true", `{"glucose":110}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var got prediction.Detail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, prediction.LabelLowRisk, got.Label)
	assert.Equal(t, prediction.LevelMedium, got.Level)
	assert.NotEmpty(t, got.Recommendation)
	assert.False(t, got.Calibrated)

	require.Len(t, got.Contributions, patient.FeatureCount-1, "no pregnancies for a male subject")
	assert.Equal(t, patient.Contribution{Feature: "Plasma Glucose", Value: 15}, got.Contributions[0])
}

func TestHandler_PlainResponseHasNoContributions(t *testing.T) {
	scorer := &mockScorer{}
	scorer.On("Score", mock.Anything).Return(ml.Outcome{Class: 0, Probability: 0.2}, nil)

	rec := post(newTestHandler(scorer), "/predict", `{"glucose":130}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "contributions")
}

func TestHandler_EmptyBodyIsNeverScored(t *testing.T) {
	for _, body := range []string{"", "{}", "null", "[]", `""`, "0", "false"} {
		t.Run(body, func(t *testing.T) {
			scorer := &mockScorer{}
			rec := post(newTestHandler(scorer), "/predict", body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, `{"error":"No input data"}`, rec.Body.String())
			scorer.AssertNotCalled(t, "Score", mock.Anything)
		})
	}
}

func TestHandler_FailuresDoNotLeakDetail(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		scoreErr error
	}{
		{name: "malformed json", body: `{"glucose": 1`},
		{name: "array payload", body: `[1, 2]`},
		{name: "bad number", body: `{"bmi":"heavy"}`},
		{name: "scaler failure", body: `{"bmi":30}`, scoreErr: errors.Join(errors.ErrScaling, errors.New("secret scaler detail"))},
		{name: "classifier failure", body: `{"bmi":30}`, scoreErr: errors.Join(errors.ErrPrediction, errors.New("secret model detail"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scorer := &mockScorer{}
			if tt.scoreErr != nil {
				scorer.On("Score", mock.Anything).Return(ml.Outcome{}, tt.scoreErr)
			}

			rec := post(newTestHandler(scorer), "/predict", tt.body)
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.JSONEq(t, `{"error":"Prediction failed"}`, rec.Body.String())
			assert.NotContains(t, rec.Body.String(), "secret")
		})
	}
}

func TestHandler_PayloadTooLarge(t *testing.T) {
	scorer := &mockScorer{}
	h := newTestHandler(scorer)

	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(`{"glucose":`+strings.Repeat("1", 64)+`}`))
	rec := httptest.NewRecorder()
	req.Body = http.MaxBytesReader(rec, req.Body, 16)
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	scorer.AssertNotCalled(t, "Score", mock.Anything)
}

func TestStatusFor(t *testing.T) {
	status, msg := statusFor(&predictionservice.StageError{Stage: predictionservice.StageDecode, Err: errors.ErrNoInput})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, MsgNoInput, msg)

	status, msg = statusFor(context.Canceled)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, MsgFailed, msg)
}

func TestHandler_NonFiniteLiteralIsClamped(t *testing.T) {
	scorer := &mockScorer{}
	scorer.On("Score", mock.MatchedBy(func(v patient.FeatureVector) bool {
		return v[1] == patient.GlucoseRange.Max
	})).Return(ml.Outcome{Class: 1, Probability: 0.9}, nil)

	rec := post(newTestHandler(scorer), "/predict", `{"glucose": NaN}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	scorer.AssertExpectations(t)
}
