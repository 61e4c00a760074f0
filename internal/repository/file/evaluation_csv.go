package file

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"diabetes-risk/internal/domain/evaluation"
	"diabetes-risk/internal/domain/patient"
	"diabetes-risk/pkg/errors"
)

// Compile-time check
var _ evaluation.Source = (*EvaluationCSV)(nil)

// OutcomeColumn holds the 0/1 label in the Pima dataset layout
const OutcomeColumn = "Outcome"

// EvaluationCSV reads a held-out set in the Pima dataset layout:
// a header with the eight feature names and Outcome, in any column order.
type EvaluationCSV struct {
	path string
}

// NewEvaluationCSV creates a CSV evaluation source
func NewEvaluationCSV(path string) *EvaluationCSV {
	return &EvaluationCSV{path: path}
}

// Name implements evaluation.Source
func (s *EvaluationCSV) Name() string {
	return "csv:" + s.path
}

// Samples implements evaluation.Source. The file is re-read on every call.
func (s *EvaluationCSV) Samples(ctx context.Context) ([]evaluation.Sample, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrNotFound, "evaluation set %s", s.path)
		}
		return nil, errors.Wrap(err, "failed to open evaluation set")
	}
	defer f.Close()

	return ReadSamples(ctx, f)
}

// ReadSamples parses evaluation samples from CSV
func ReadSamples(ctx context.Context, r io.Reader) ([]evaluation.Sample, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read evaluation header")
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	columns := make([]int, 0, patient.FeatureCount+1)
	for _, name := range append(patient.FeatureNames[:], OutcomeColumn) {
		i, ok := index[name]
		if !ok {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "evaluation set lacks column %q", name)
		}
		columns = append(columns, i)
	}

	var samples []evaluation.Sample
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}

		var values [patient.FeatureCount + 1]float64
		for k, col := range columns {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
			if err != nil {
				return nil, errors.Wrapf(errors.ErrInvalidInput, "line %d column %s: %v", line, header[col], err)
			}
			values[k] = v
		}

		outcome := int(values[patient.FeatureCount])
		if outcome != 0 && outcome != 1 {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "line %d: outcome %v is not 0 or 1", line, values[patient.FeatureCount])
		}

		samples = append(samples, evaluation.Sample{
			Pregnancies:              values[0],
			Glucose:                  values[1],
			BloodPressure:            values[2],
			SkinThickness:            values[3],
			Insulin:                  values[4],
			BMI:                      values[5],
			DiabetesPedigreeFunction: values[6],
			Age:                      values[7],
			Outcome:                  outcome,
		})
	}

	return samples, nil
}
