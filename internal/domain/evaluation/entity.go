package evaluation

import (
	"context"

	"diabetes-risk/internal/domain/patient"
)

// Sample is one labeled row of the held-out set, in raw dataset units
type Sample struct {
	Pregnancies              float64 `db:"pregnancies"`
	Glucose                  float64 `db:"glucose"`
	BloodPressure            float64 `db:"blood_pressure"`
	SkinThickness            float64 `db:"skin_thickness"`
	Insulin                  float64 `db:"insulin"`
	BMI                      float64 `db:"bmi"`
	DiabetesPedigreeFunction float64 `db:"dpf"`
	Age                      float64 `db:"age"`
	Outcome                  int     `db:"outcome"`
}

// Vector returns the sample in classifier column order
func (s *Sample) Vector() patient.FeatureVector {
	return patient.FeatureVector{
		s.Pregnancies,
		s.Glucose,
		s.BloodPressure,
		s.SkinThickness,
		s.Insulin,
		s.BMI,
		s.DiabetesPedigreeFunction,
		s.Age,
	}
}

// Source provides the held-out evaluation set
type Source interface {
	Samples(ctx context.Context) ([]Sample, error)
	// Name identifies the source in logs and responses
	Name() string
}
