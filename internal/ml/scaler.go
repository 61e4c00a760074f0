package ml

import (
	"encoding/json"
	"os"

	"diabetes-risk/internal/domain/patient"
	"diabetes-risk/pkg/errors"
)

// StandardScaler applies (x - mean) / scale per column, as fitted offline
type StandardScaler struct {
	FeatureNames []string  `json:"feature_names"`
	Mean         []float64 `json:"mean"`
	Scale        []float64 `json:"scale"`
}

// LoadStandardScaler reads a scaler artifact:
//
//	{"feature_names": [...8], "mean": [...8], "scale": [...8]}
func LoadStandardScaler(path string) (*StandardScaler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrArtifactMissing, "scaler %s", path)
		}
		return nil, errors.Wrap(err, "failed to read scaler")
	}

	var s StandardScaler
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrapf(errors.ErrUnsupportedArtifact, "scaler %s: %v", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the scaler was fit on the serving feature order
func (s *StandardScaler) Validate() error {
	if len(s.Mean) != patient.FeatureCount || len(s.Scale) != patient.FeatureCount {
		return errors.Wrapf(errors.ErrArtifactIncompatible,
			"scaler has %d means and %d scales, expected %d features",
			len(s.Mean), len(s.Scale), patient.FeatureCount)
	}
	return checkFeatureNames("scaler", s.FeatureNames)
}

// Transform implements Scaler
func (s *StandardScaler) Transform(v patient.FeatureVector) ([]float64, error) {
	if len(s.Mean) != len(v) || len(s.Scale) != len(v) {
		return nil, errors.Newf("scaler expects %d features, got %d", len(s.Mean), len(v))
	}

	out := make([]float64, len(v))
	for i, x := range v {
		sc := s.Scale[i]
		if sc == 0 {
			sc = 1
		}
		out[i] = (x - s.Mean[i]) / sc
	}
	return out, nil
}

// checkFeatureNames accepts a missing name list but rejects any reordering
func checkFeatureNames(artifact string, names []string) error {
	if len(names) == 0 {
		return nil
	}
	if len(names) != patient.FeatureCount {
		return errors.Wrapf(errors.ErrArtifactIncompatible,
			"%s lists %d feature names, expected %d", artifact, len(names), patient.FeatureCount)
	}
	for i, name := range names {
		if name != patient.FeatureNames[i] {
			return errors.Wrapf(errors.ErrArtifactIncompatible,
				"%s feature %d is %q, expected %q", artifact, i, name, patient.FeatureNames[i])
		}
	}
	return nil
}
