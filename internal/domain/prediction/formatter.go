package prediction

import (
	"math"
	"strconv"
)

// Band thresholds on the 0-100 risk score
const (
	mediumRiskFrom = 35.0
	highRiskFrom   = 65.0
)

var recommendations = map[Level]string{
	LevelLow:    "Your diabetes risk is low. Continue maintaining a healthy lifestyle with regular exercise and balanced nutrition. Regular screening is recommended.",
	LevelMedium: "Your diabetes risk is moderate. Consider lifestyle modifications including weight management, dietary improvements, and regular physical activity. Consult with your healthcare provider for personalized guidance.",
	LevelHigh:   "Your diabetes risk is elevated. We strongly recommend scheduling a consultation with your healthcare provider for comprehensive evaluation, possible glucose tolerance testing, and a personalized intervention plan.",
}

// Format builds the response from the classifier's hard decision and the
// positive-class probability.
//
// The label follows class only. Near p = 0.5 it can disagree with the score;
// that is the classifier's call, not a formatting bug.
func Format(class int, probability float64) Result {
	label := LabelLowRisk
	if class == PositiveClass {
		label = LabelHighRisk
	}

	return Result{
		Label:       label,
		RiskScore:   Round(probability*100, 2),
		Probability: Round(probability, 4),
	}
}

// Band maps a risk score to a level and its recommendation
func Band(riskScore float64) (Level, string) {
	level := LevelHigh
	switch {
	case riskScore < mediumRiskFrom:
		level = LevelLow
	case riskScore < highRiskFrom:
		level = LevelMedium
	}
	return level, recommendations[level]
}

// Describe attaches the band to a result
func Describe(r Result, calibrated bool) Detail {
	level, rec := Band(r.RiskScore)
	return Detail{
		Result:         r,
		Level:          level,
		Recommendation: rec,
		Calibrated:     calibrated,
	}
}

// Round rounds x to the given number of decimals, half to even on the exact
// binary value. strconv formats from the exact decimal expansion, so 2.675
// (stored as 2.67499999...) rounds down.
func Round(x float64, places int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', places, 64), 64)
	if err != nil {
		return x
	}
	return r
}
