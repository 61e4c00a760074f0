package ml

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diabetes-risk/pkg/errors"
)

const scalerJSON = `{
  "feature_names": ["Pregnancies","Glucose","BloodPressure","SkinThickness","Insulin","BMI","DiabetesPedigreeFunction","Age"],
  "mean": [3.8, 120.9, 69.1, 20.5, 79.8, 32.0, 0.47, 33.2],
  "scale": [3.4, 31.9, 19.3, 15.9, 115.2, 7.9, 0.33, 11.8]
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_LogisticJSON(t *testing.T) {
	dir := t.TempDir()
	scaler := writeFile(t, dir, "scaler.json", scalerJSON)
	model := writeFile(t, dir, "model.json",
		`{"kind":"logistic","coef":[0.4,1.1,-0.2,0.05,-0.1,0.7,0.3,0.4],"intercept":-0.8}`)

	m, err := Load(Config{ScalerPath: scaler, ModelPath: model})
	require.NoError(t, err)
	defer m.Close()

	info := m.Info()
	assert.Equal(t, KindProbabilistic, info.Kind)
	assert.True(t, info.Calibrated)
	assert.Equal(t, "linear-json", info.Format)
	assert.Len(t, info.FeatureNames, 8)
	assert.NotEmpty(t, info.ModelSize)
	assert.Len(t, info.Version, 12)

	out, err := m.Score(example)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Class)
	assert.Greater(t, out.Probability, 0.5)
	assert.LessOrEqual(t, out.Probability, 1.0)
}

func TestLoad_SVMIsDecisionOnly(t *testing.T) {
	dir := t.TempDir()
	scaler := writeFile(t, dir, "scaler.json", scalerJSON)
	model := writeFile(t, dir, "model.json",
		`{"kind":"linear_svm","coef":[0.2,0.9,-0.1,0.0,-0.1,0.5,0.2,0.3],"intercept":-0.5}`)

	m, err := Load(Config{ScalerPath: scaler, ModelPath: model})
	require.NoError(t, err)

	assert.Equal(t, KindDecision, m.Kind())
	assert.False(t, m.Info().Calibrated)

	out, err := m.Score(example)
	require.NoError(t, err)
	assert.False(t, out.Calibrated)
}

func TestLoad_ForceDecisionOnLogistic(t *testing.T) {
	dir := t.TempDir()
	scaler := writeFile(t, dir, "scaler.json", scalerJSON)
	model := writeFile(t, dir, "model.json",
		`{"kind":"logistic","coef":[0,0,0,0,0,0,0,0],"intercept":0}`)

	m, err := Load(Config{ScalerPath: scaler, ModelPath: model, ScoreKind: "decision"})
	require.NoError(t, err)
	assert.Equal(t, KindDecision, m.Kind())

	out, err := m.Score(example)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Class)
	assert.Equal(t, 0.5, out.Probability)
}

func TestLoad_Failures(t *testing.T) {
	dir := t.TempDir()
	scaler := writeFile(t, dir, "scaler.json", scalerJSON)
	goodModel := writeFile(t, dir, "model.json",
		`{"kind":"logistic","coef":[1,1,1,1,1,1,1,1],"intercept":0}`)

	tests := []struct {
		name   string
		cfg    Config
		target error
	}{
		{
			name:   "missing scaler",
			cfg:    Config{ScalerPath: filepath.Join(dir, "nope.json"), ModelPath: goodModel},
			target: errors.ErrArtifactMissing,
		},
		{
			name:   "missing model",
			cfg:    Config{ScalerPath: scaler, ModelPath: filepath.Join(dir, "nope.json")},
			target: errors.ErrArtifactMissing,
		},
		{
			name:   "missing onnx model",
			cfg:    Config{ScalerPath: scaler, ModelPath: filepath.Join(dir, "nope.onnx")},
			target: errors.ErrArtifactMissing,
		},
		{
			name: "scaler with seven features",
			cfg: Config{
				ScalerPath: writeFile(t, dir, "short.json", `{"mean":[1,2,3,4,5,6,7],"scale":[1,1,1,1,1,1,1]}`),
				ModelPath:  goodModel,
			},
			target: errors.ErrArtifactIncompatible,
		},
		{
			name: "scaler with reordered names",
			cfg: Config{
				ScalerPath: writeFile(t, dir, "reordered.json", `{
					"feature_names": ["Glucose","Pregnancies","BloodPressure","SkinThickness","Insulin","BMI","DiabetesPedigreeFunction","Age"],
					"mean": [0,0,0,0,0,0,0,0], "scale": [1,1,1,1,1,1,1,1]}`),
				ModelPath: goodModel,
			},
			target: errors.ErrArtifactIncompatible,
		},
		{
			name: "model with nine coefficients",
			cfg: Config{
				ScalerPath: scaler,
				ModelPath:  writeFile(t, dir, "wide.json", `{"kind":"logistic","coef":[1,1,1,1,1,1,1,1,1]}`),
			},
			target: errors.ErrArtifactIncompatible,
		},
		{
			name: "unknown linear kind",
			cfg: Config{
				ScalerPath: scaler,
				ModelPath:  writeFile(t, dir, "tree.json", `{"kind":"tree","coef":[1,1,1,1,1,1,1,1]}`),
			},
			target: errors.ErrUnsupportedArtifact,
		},
		{
			name: "unknown extension",
			cfg: Config{
				ScalerPath: scaler,
				ModelPath:  writeFile(t, dir, "model.pkl", "binary"),
			},
			target: errors.ErrUnsupportedArtifact,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestStandardScaler_Transform(t *testing.T) {
	s := &StandardScaler{
		Mean:  []float64{1, 100, 70, 20, 80, 30, 0.5, 30},
		Scale: []float64{2, 50, 10, 0, 40, 5, 0.25, 10},
	}
	require.NoError(t, s.Validate())

	x, err := s.Transform(example)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 2, 0, 10, 0, 5, 0, 1.5}, x, "zero scale leaves the centered value")
}

func TestONNXModel_Score(t *testing.T) {
	modelPath := "../../models/diabetes_model.onnx"
	scalerPath := "../../models/scaler.json"
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		t.Skip("ONNX model not found, skipping test")
	}
	libPath := os.Getenv("ONNXRUNTIME_LIB_PATH")
	if libPath == "" {
		t.Skip("ONNXRUNTIME_LIB_PATH not set, skipping test")
	}

	m, err := Load(Config{ScalerPath: scalerPath, ModelPath: modelPath, SharedLibraryPath: libPath})
	require.NoError(t, err)
	defer m.Close()

	out, err := m.Score(example)
	require.NoError(t, err)
	assert.Contains(t, []int{0, 1}, out.Class)
	assert.GreaterOrEqual(t, out.Probability, 0.0)
	assert.LessOrEqual(t, out.Probability, 1.0)
}
