package ml

import (
	"strings"
	"sync"

	onnxruntime "github.com/yalue/onnxruntime_go"

	"diabetes-risk/internal/domain/patient"
	"diabetes-risk/pkg/errors"
)

// ONNXOptions names the graph outputs to read. Empty names are resolved from
// the model's declared outputs.
type ONNXOptions struct {
	SharedLibraryPath string
	LabelOutput       string
	ScoreOutput       string
	// ScoreKind is "probability", "decision" or "" to infer from the output name
	ScoreKind string
}

// ONNXModel wraps an ONNX Runtime session for a binary classifier with a
// label output and a per-class score output.
type ONNXModel struct {
	session    *onnxruntime.DynamicAdvancedSession
	inputName  string
	inputType  onnxruntime.TensorElementDataType
	labelName  string
	scoreName  string
	scoreType  onnxruntime.TensorElementDataType
	scoreWidth int64
	kind       Kind
}

var envMu sync.Mutex

// initEnvironment initializes the ONNX runtime once per process
func initEnvironment(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if onnxruntime.IsInitialized() {
		return nil
	}
	if libPath != "" {
		onnxruntime.SetSharedLibraryPath(libPath)
	}
	return onnxruntime.InitializeEnvironment()
}

// LoadONNXModel loads an ONNX classifier from file
func LoadONNXModel(modelPath string, opts ONNXOptions) (*ONNXModel, error) {
	if err := initEnvironment(opts.SharedLibraryPath); err != nil {
		return nil, errors.Wrap(err, "failed to initialize ONNX runtime")
	}

	inputs, outputs, err := onnxruntime.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to inspect ONNX model")
	}
	if len(inputs) != 1 {
		return nil, errors.Wrapf(errors.ErrArtifactIncompatible, "model has %d inputs, expected 1", len(inputs))
	}
	in := inputs[0]
	if dims := in.Dimensions; len(dims) > 0 {
		if width := dims[len(dims)-1]; width > 0 && width != patient.FeatureCount {
			return nil, errors.Wrapf(errors.ErrArtifactIncompatible,
				"model input %q has width %d, expected %d", in.Name, width, patient.FeatureCount)
		}
	}

	label, score, err := pickOutputs(outputs, opts)
	if err != nil {
		return nil, err
	}

	kind, err := scoreKind(score.Name, opts.ScoreKind)
	if err != nil {
		return nil, err
	}

	width := int64(2)
	if dims := score.Dimensions; len(dims) > 0 && dims[len(dims)-1] > 0 {
		width = dims[len(dims)-1]
	}
	if kind == KindProbabilistic && width != 2 {
		return nil, errors.Wrapf(errors.ErrArtifactIncompatible,
			"probability output %q has %d columns, expected 2", score.Name, width)
	}

	options, err := onnxruntime.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create session options")
	}
	defer options.Destroy()

	session, err := onnxruntime.NewDynamicAdvancedSession(modelPath,
		[]string{in.Name}, []string{label.Name, score.Name}, options)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load ONNX model")
	}

	return &ONNXModel{
		session:    session,
		inputName:  in.Name,
		inputType:  in.DataType,
		labelName:  label.Name,
		scoreName:  score.Name,
		scoreType:  score.DataType,
		scoreWidth: width,
		kind:       kind,
	}, nil
}

// pickOutputs resolves the label and score outputs. Without explicit names
// the int64 output is the label and the other one holds scores.
func pickOutputs(outputs []onnxruntime.InputOutputInfo, opts ONNXOptions) (onnxruntime.InputOutputInfo, onnxruntime.InputOutputInfo, error) {
	var label, score onnxruntime.InputOutputInfo
	for _, o := range outputs {
		switch {
		case opts.LabelOutput != "" && o.Name == opts.LabelOutput:
			label = o
		case opts.ScoreOutput != "" && o.Name == opts.ScoreOutput:
			score = o
		case opts.LabelOutput == "" && label.Name == "" && o.DataType == onnxruntime.TensorElementDataTypeInt64:
			label = o
		case opts.ScoreOutput == "" && score.Name == "" &&
			(o.DataType == onnxruntime.TensorElementDataTypeFloat || o.DataType == onnxruntime.TensorElementDataTypeDouble):
			score = o
		}
	}

	if label.Name == "" || score.Name == "" {
		return label, score, errors.Wrapf(errors.ErrUnsupportedArtifact,
			"could not find label and score outputs (label=%q score=%q)", opts.LabelOutput, opts.ScoreOutput)
	}
	if score.OrtValueType != onnxruntime.ONNXTypeTensor {
		return label, score, errors.Wrapf(errors.ErrUnsupportedArtifact,
			"score output %q is not a tensor; export the model without a ZipMap", score.Name)
	}
	return label, score, nil
}

func scoreKind(outputName, configured string) (Kind, error) {
	switch strings.ToLower(configured) {
	case "probability":
		return KindProbabilistic, nil
	case "decision":
		return KindDecision, nil
	case "", "auto":
		if strings.Contains(strings.ToLower(outputName), "prob") {
			return KindProbabilistic, nil
		}
		return KindDecision, nil
	}
	return "", errors.Wrapf(errors.ErrUnsupportedArtifact, "unknown score kind %q", configured)
}

// Kind reports whether the score output holds probabilities or margins
func (m *ONNXModel) Kind() Kind {
	return m.kind
}

// run executes one inference and returns the label and the score row
func (m *ONNXModel) run(features []float64) (int, []float64, error) {
	if m.session == nil {
		return 0, nil, errors.New("model session is nil")
	}

	inputShape := onnxruntime.NewShape(1, int64(len(features)))
	var input onnxruntime.Value
	if m.inputType == onnxruntime.TensorElementDataTypeDouble {
		t, err := onnxruntime.NewTensor(inputShape, append([]float64(nil), features...))
		if err != nil {
			return 0, nil, errors.Wrap(err, "failed to create input tensor")
		}
		input = t
	} else {
		data := make([]float32, len(features))
		for i, f := range features {
			data[i] = float32(f)
		}
		t, err := onnxruntime.NewTensor(inputShape, data)
		if err != nil {
			return 0, nil, errors.Wrap(err, "failed to create input tensor")
		}
		input = t
	}
	defer input.Destroy()

	labelTensor, err := onnxruntime.NewEmptyTensor[int64](onnxruntime.NewShape(1))
	if err != nil {
		return 0, nil, errors.Wrap(err, "failed to create label output tensor")
	}
	defer labelTensor.Destroy()

	scoreShape := onnxruntime.NewShape(1, m.scoreWidth)
	var scores []float64
	var scoreValue onnxruntime.Value
	var read func()
	if m.scoreType == onnxruntime.TensorElementDataTypeDouble {
		t, err := onnxruntime.NewEmptyTensor[float64](scoreShape)
		if err != nil {
			return 0, nil, errors.Wrap(err, "failed to create score output tensor")
		}
		scoreValue = t
		read = func() { scores = append(scores, t.GetData()...) }
	} else {
		t, err := onnxruntime.NewEmptyTensor[float32](scoreShape)
		if err != nil {
			return 0, nil, errors.Wrap(err, "failed to create score output tensor")
		}
		scoreValue = t
		read = func() {
			for _, v := range t.GetData() {
				scores = append(scores, float64(v))
			}
		}
	}
	defer scoreValue.Destroy()

	err = m.session.Run([]onnxruntime.Value{input}, []onnxruntime.Value{labelTensor, scoreValue})
	if err != nil {
		return 0, nil, errors.Wrap(err, "inference failed")
	}

	read()
	return int(labelTensor.GetData()[0]), scores, nil
}

// Predict implements ProbabilisticClassifier and DecisionClassifier
func (m *ONNXModel) Predict(x []float64) (int, error) {
	label, _, err := m.run(x)
	return label, err
}

// PredictProba implements ProbabilisticClassifier
func (m *ONNXModel) PredictProba(x []float64) ([2]float64, error) {
	if m.kind != KindProbabilistic {
		return [2]float64{}, errors.New("model does not expose probabilities")
	}
	_, scores, err := m.run(x)
	if err != nil {
		return [2]float64{}, err
	}
	return [2]float64{scores[0], scores[1]}, nil
}

// DecisionFunction implements DecisionClassifier. Two-column score outputs
// carry the positive-class margin in the second column.
func (m *ONNXModel) DecisionFunction(x []float64) (float64, error) {
	_, scores, err := m.run(x)
	if err != nil {
		return 0, err
	}
	return scores[len(scores)-1], nil
}

// Destroy cleans up the ONNX session
func (m *ONNXModel) Destroy() {
	if m.session != nil {
		m.session.Destroy()
		m.session = nil
	}
}
