package patient

// FeatureCount is the width of the classifier input
const FeatureCount = 8

// FeatureNames is the column order the scaler and classifier were fit on.
// Reordering it silently corrupts predictions.
var FeatureNames = [FeatureCount]string{
	"Pregnancies",
	"Glucose",
	"BloodPressure",
	"SkinThickness",
	"Insulin",
	"BMI",
	"DiabetesPedigreeFunction",
	"Age",
}

// FeatureVector is a fixed-order classifier input
type FeatureVector [FeatureCount]float64

// Slice returns a copy of the vector as a slice
func (v FeatureVector) Slice() []float64 {
	out := make([]float64, FeatureCount)
	copy(out, v[:])
	return out
}

// Named maps feature names to values, for logs and journals
func (v FeatureVector) Named() map[string]float64 {
	out := make(map[string]float64, FeatureCount)
	for i, name := range FeatureNames {
		out[name] = v[i]
	}
	return out
}

// Gender as understood by the pregnancies rule
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Measurements holds normalized patient measurements
type Measurements struct {
	Gender                   Gender  `json:"gender" ch:"gender"`
	Pregnancies              float64 `json:"pregnancies" ch:"pregnancies"`
	Glucose                  float64 `json:"glucose" ch:"glucose"`
	BloodPressure            float64 `json:"bloodPressure" ch:"blood_pressure"`
	SkinThickness            float64 `json:"skinThickness" ch:"skin_thickness"`
	Insulin                  float64 `json:"insulin" ch:"insulin"`
	BMI                      float64 `json:"bmi" ch:"bmi"`
	DiabetesPedigreeFunction float64 `json:"dpf" ch:"dpf"`
	Age                      float64 `json:"age" ch:"age"`
}

// ToFeatureVector converts Measurements to the classifier input.
// Order must match FeatureNames.
func (m *Measurements) ToFeatureVector() FeatureVector {
	return FeatureVector{
		m.Pregnancies,
		m.Glucose,
		m.BloodPressure,
		m.SkinThickness,
		m.Insulin,
		m.BMI,
		m.DiabetesPedigreeFunction,
		m.Age,
	}
}

// Range is a closed interval with a default used when the field is absent
type Range struct {
	Key     string
	Default float64
	Min     float64
	Max     float64
}

// Clamp snaps v into the range
func (r Range) Clamp(v float64) float64 {
	return Clamp(v, r.Min, r.Max)
}

// Valid input ranges, keyed by request field name
var (
	GlucoseRange       = Range{Key: "glucose", Default: 0, Min: 0, Max: 200}
	BloodPressureRange = Range{Key: "bloodPressure", Default: 0, Min: 0, Max: 180}
	SkinThicknessRange = Range{Key: "skinThickness", Default: 0, Min: 0, Max: 100}
	InsulinRange       = Range{Key: "insulin", Default: 0, Min: 0, Max: 900}
	BMIRange           = Range{Key: "bmi", Default: 10, Min: 10, Max: 60}
	DPFRange           = Range{Key: "dpf", Default: 0, Min: 0, Max: 3}
	AgeRange           = Range{Key: "age", Default: 18, Min: 18, Max: 90}
)

// Clamp computes max(lo, min(hi, v)) with left-biased comparisons:
// a NaN never wins a comparison, so it snaps to hi.
func Clamp(v, lo, hi float64) float64 {
	m := hi
	if v < hi {
		m = v
	}
	if m > lo {
		return m
	}
	return lo
}
