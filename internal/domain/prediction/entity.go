package prediction

import "diabetes-risk/internal/domain/patient"

// Label is the human-readable classification
type Label string

const (
	LabelHighRisk Label = "High Risk"
	LabelLowRisk  Label = "Low Risk"
)

// String returns string representation
func (l Label) String() string {
	return string(l)
}

// PositiveClass is the classifier output meaning "diabetic"
const PositiveClass = 1

// Result is the /predict response payload
type Result struct {
	Label       Label   `json:"prediction"`
	RiskScore   float64 `json:"risk_score"`  // 0-100, two decimals
	Probability float64 `json:"probability"` // 0-1, four decimals
}

// Level is a coarse risk band derived from the risk score
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Valid checks if level is valid
func (l Level) Valid() bool {
	switch l {
	case LevelLow, LevelMedium, LevelHigh:
		return true
	}
	return false
}

// Detail extends Result with the band and risk factor breakdown shown to
// patients
type Detail struct {
	Result
	Level          Level                  `json:"level"`
	Recommendation string                 `json:"recommendation"`
	Calibrated     bool                   `json:"calibrated"`
	Contributions  []patient.Contribution `json:"contributions,omitempty"`
}
