package ml

import (
	"math"

	"diabetes-risk/internal/domain/patient"
	"diabetes-risk/pkg/errors"
)

// Kind identifies how a scorer obtains its probability
type Kind string

const (
	// KindProbabilistic scorers read a calibrated positive-class probability
	KindProbabilistic Kind = "probabilistic"
	// KindDecision scorers squash a raw margin through a sigmoid
	KindDecision Kind = "decision"
)

// String returns string representation
func (k Kind) String() string {
	return string(k)
}

// Outcome is the scorer's verdict for one feature vector
type Outcome struct {
	Class       int
	Probability float64
	// Calibrated is false when Probability is a sigmoid of a margin
	Calibrated bool
}

// Scaler standardizes raw features the way they were at fit time
type Scaler interface {
	Transform(v patient.FeatureVector) ([]float64, error)
}

// ProbabilisticClassifier exposes calibrated class probabilities
type ProbabilisticClassifier interface {
	Predict(x []float64) (int, error)
	PredictProba(x []float64) ([2]float64, error)
}

// DecisionClassifier exposes only a raw decision margin
type DecisionClassifier interface {
	Predict(x []float64) (int, error)
	DecisionFunction(x []float64) (float64, error)
}

// Scorer turns a feature vector into a class and a positive-class probability.
// Implementations are immutable and safe for concurrent use.
type Scorer interface {
	Score(v patient.FeatureVector) (Outcome, error)
	Kind() Kind
}

// ProbabilisticScorer pairs a scaler with a classifier exposing PredictProba
type ProbabilisticScorer struct {
	scaler     Scaler
	classifier ProbabilisticClassifier
}

// NewProbabilisticScorer creates a scorer backed by calibrated probabilities
func NewProbabilisticScorer(scaler Scaler, classifier ProbabilisticClassifier) *ProbabilisticScorer {
	return &ProbabilisticScorer{scaler: scaler, classifier: classifier}
}

// Kind implements Scorer
func (s *ProbabilisticScorer) Kind() Kind { return KindProbabilistic }

// Score implements Scorer
func (s *ProbabilisticScorer) Score(v patient.FeatureVector) (Outcome, error) {
	x, err := scale(s.scaler, v)
	if err != nil {
		return Outcome{}, err
	}

	class, err := s.classifier.Predict(x)
	if err != nil {
		return Outcome{}, errors.Join(errors.ErrPrediction, err)
	}

	proba, err := s.classifier.PredictProba(x)
	if err != nil {
		return Outcome{}, errors.Join(errors.ErrPrediction, err)
	}

	p := proba[1]
	if math.IsNaN(p) || p < 0 || p > 1 {
		return Outcome{}, errors.Join(errors.ErrPrediction, errors.Newf("positive-class probability %g outside [0,1]", p))
	}

	return Outcome{Class: class, Probability: p, Calibrated: true}, nil
}

// DecisionScorer pairs a scaler with a margin-only classifier. Its
// probabilities are a logistic approximation, not calibrated estimates.
type DecisionScorer struct {
	scaler     Scaler
	classifier DecisionClassifier
}

// NewDecisionScorer creates a scorer that applies the sigmoid fallback
func NewDecisionScorer(scaler Scaler, classifier DecisionClassifier) *DecisionScorer {
	return &DecisionScorer{scaler: scaler, classifier: classifier}
}

// Kind implements Scorer
func (s *DecisionScorer) Kind() Kind { return KindDecision }

// Score implements Scorer
func (s *DecisionScorer) Score(v patient.FeatureVector) (Outcome, error) {
	x, err := scale(s.scaler, v)
	if err != nil {
		return Outcome{}, err
	}

	class, err := s.classifier.Predict(x)
	if err != nil {
		return Outcome{}, errors.Join(errors.ErrPrediction, err)
	}

	margin, err := s.classifier.DecisionFunction(x)
	if err != nil {
		return Outcome{}, errors.Join(errors.ErrPrediction, err)
	}

	p, err := Sigmoid(margin)
	if err != nil {
		return Outcome{}, errors.Join(errors.ErrPrediction, err)
	}

	return Outcome{Class: class, Probability: p, Calibrated: false}, nil
}

// Sigmoid computes 1 / (1 + e^-margin). Margins below about -709.78 overflow
// the exponential and are reported as errors rather than rounded to zero.
func Sigmoid(margin float64) (float64, error) {
	if math.IsNaN(margin) {
		return 0, errors.New("sigmoid of NaN margin")
	}
	e := math.Exp(-margin)
	if math.IsInf(e, 1) {
		return 0, errors.Newf("sigmoid overflow for margin %g", margin)
	}
	return 1 / (1 + e), nil
}

func scale(s Scaler, v patient.FeatureVector) ([]float64, error) {
	x, err := s.Transform(v)
	if err != nil {
		return nil, errors.Join(errors.ErrScaling, err)
	}
	for i, f := range x {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, errors.Wrapf(errors.ErrNonFiniteFeature, "%s=%v", patient.FeatureNames[i], v[i])
		}
	}
	return x, nil
}
