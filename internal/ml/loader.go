package ml

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"diabetes-risk/internal/domain/patient"
	"diabetes-risk/pkg/errors"
)

// Config locates the fitted artifacts
type Config struct {
	ScalerPath        string
	ModelPath         string
	SharedLibraryPath string
	LabelOutput       string
	ScoreOutput       string
	ScoreKind         string // auto, probability or decision
}

// Info describes the loaded model for /model-info and startup logs
type Info struct {
	Kind         Kind     `json:"scorer"`
	Calibrated   bool     `json:"calibrated"`
	Format       string   `json:"format"`
	FeatureNames []string `json:"feature_names"`
	ModelPath    string   `json:"model_path"`
	ModelSize    string   `json:"model_size"`
	ScalerPath   string   `json:"scaler_path"`
	ScalerSize   string   `json:"scaler_size"`
	Version      string   `json:"version"` // content hash of both artifacts
}

// Model is the process-wide scoring handle. It is built once at startup and
// never mutated afterwards.
type Model struct {
	Scorer
	info    Info
	closeFn func()
}

// Info returns model metadata
func (m *Model) Info() Info {
	return m.info
}

// Close releases native resources held by the classifier
func (m *Model) Close() {
	if m.closeFn != nil {
		m.closeFn()
	}
}

// Load reads the scaler and classifier artifacts and selects the scorer
// variant from the classifier's capabilities. Any missing or incompatible
// artifact is an error; the caller is expected to abort startup.
func Load(cfg Config) (*Model, error) {
	scaler, err := LoadStandardScaler(cfg.ScalerPath)
	if err != nil {
		return nil, err
	}

	info := Info{
		FeatureNames: patient.FeatureNames[:],
		ModelPath:    cfg.ModelPath,
		ModelSize:    fileSize(cfg.ModelPath),
		ScalerPath:   cfg.ScalerPath,
		ScalerSize:   fileSize(cfg.ScalerPath),
	}

	model := &Model{}
	switch ext := strings.ToLower(filepath.Ext(cfg.ModelPath)); ext {
	case ".onnx":
		if _, err := os.Stat(cfg.ModelPath); err != nil {
			return nil, errors.Wrapf(errors.ErrArtifactMissing, "model %s", cfg.ModelPath)
		}
		onnx, err := LoadONNXModel(cfg.ModelPath, ONNXOptions{
			SharedLibraryPath: cfg.SharedLibraryPath,
			LabelOutput:       cfg.LabelOutput,
			ScoreOutput:       cfg.ScoreOutput,
			ScoreKind:         cfg.ScoreKind,
		})
		if err != nil {
			return nil, err
		}
		info.Format = "onnx"
		model.closeFn = onnx.Destroy
		if onnx.Kind() == KindProbabilistic {
			model.Scorer = NewProbabilisticScorer(scaler, onnx)
		} else {
			model.Scorer = NewDecisionScorer(scaler, onnx)
		}

	case ".json":
		linear, err := LoadLinearModel(cfg.ModelPath)
		if err != nil {
			return nil, err
		}
		info.Format = "linear-json"
		model.Scorer = selectLinear(scaler, linear, cfg.ScoreKind)

	default:
		return nil, errors.Wrapf(errors.ErrUnsupportedArtifact, "model format %q", ext)
	}

	info.Kind = model.Kind()
	info.Calibrated = model.Kind() == KindProbabilistic
	info.Version = artifactVersion(cfg.ScalerPath, cfg.ModelPath)
	model.info = info
	return model, nil
}

// selectLinear picks the scorer for a JSON linear model. A logistic model
// may be forced onto the decision path; an SVM never gets probabilities.
func selectLinear(scaler Scaler, m *LinearModel, scoreKind string) Scorer {
	if m.Kind == LinearKindLogistic && strings.ToLower(scoreKind) != "decision" {
		return NewProbabilisticScorer(scaler, m)
	}
	return NewDecisionScorer(scaler, linearDecision{m: m})
}

func fileSize(path string) string {
	st, err := os.Stat(path)
	if err != nil {
		return ""
	}
	return humanize.Bytes(uint64(st.Size()))
}

// artifactVersion hashes the artifacts so caches keyed on it never outlive a
// model swap
func artifactVersion(paths ...string) string {
	h := sha256.New()
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			continue
		}
		_, _ = io.Copy(h, f)
		f.Close()
	}
	return hex.EncodeToString(h.Sum(nil))[:12]
}
