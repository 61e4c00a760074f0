package ml

import (
	"encoding/json"
	"math"
	"os"

	"diabetes-risk/internal/domain/patient"
	"diabetes-risk/pkg/errors"
)

// Linear model kinds accepted in JSON artifacts
const (
	LinearKindLogistic = "logistic"   // exposes probabilities
	LinearKindSVM      = "linear_svm" // margin only
)

// LinearModel is a linear classifier exported as coefficients:
//
//	{"kind": "logistic", "feature_names": [...], "coef": [...8], "intercept": -0.8}
type LinearModel struct {
	Kind         string    `json:"kind"`
	FeatureNames []string  `json:"feature_names"`
	Coef         []float64 `json:"coef"`
	Intercept    float64   `json:"intercept"`
}

// LoadLinearModel reads and validates a JSON linear model artifact
func LoadLinearModel(path string) (*LinearModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrArtifactMissing, "model %s", path)
		}
		return nil, errors.Wrap(err, "failed to read model")
	}

	var m LinearModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(errors.ErrUnsupportedArtifact, "model %s: %v", path, err)
	}

	switch m.Kind {
	case LinearKindLogistic, LinearKindSVM:
	default:
		return nil, errors.Wrapf(errors.ErrUnsupportedArtifact, "linear model kind %q", m.Kind)
	}
	if len(m.Coef) != patient.FeatureCount {
		return nil, errors.Wrapf(errors.ErrArtifactIncompatible,
			"model has %d coefficients, expected %d", len(m.Coef), patient.FeatureCount)
	}
	if err := checkFeatureNames("model", m.FeatureNames); err != nil {
		return nil, err
	}
	return &m, nil
}

// DecisionFunction returns coef·x + intercept
func (m *LinearModel) DecisionFunction(x []float64) (float64, error) {
	if len(x) != len(m.Coef) {
		return 0, errors.Newf("model expects %d features, got %d", len(m.Coef), len(x))
	}
	margin := m.Intercept
	for i, c := range m.Coef {
		margin += c * x[i]
	}
	return margin, nil
}

// Predict returns 1 for a positive margin, 0 otherwise
func (m *LinearModel) Predict(x []float64) (int, error) {
	margin, err := m.DecisionFunction(x)
	if err != nil {
		return 0, err
	}
	if margin > 0 {
		return 1, nil
	}
	return 0, nil
}

// PredictProba returns [1-p, p] with p the logistic of the margin
func (m *LinearModel) PredictProba(x []float64) ([2]float64, error) {
	margin, err := m.DecisionFunction(x)
	if err != nil {
		return [2]float64{}, err
	}
	p := expit(margin)
	return [2]float64{1 - p, p}, nil
}

// expit is the saturating logistic used by fitted logistic regressions
func expit(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// linearDecision hides PredictProba so an SVM artifact can only be used
// through the sigmoid fallback.
type linearDecision struct {
	m *LinearModel
}

func (d linearDecision) Predict(x []float64) (int, error)              { return d.m.Predict(x) }
func (d linearDecision) DecisionFunction(x []float64) (float64, error) { return d.m.DecisionFunction(x) }
