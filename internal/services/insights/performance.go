package insights

import (
	"math"
	"math/rand/v2"
	"sort"

	"diabetes-risk/internal/domain/insights"
	"diabetes-risk/pkg/errors"
)

// Synthetic test population used when no evaluation set is configured
const (
	syntheticPositives = 300
	syntheticNegatives = 700
)

// SyntheticConfusion simulates a confusion matrix at threshold. Sensitivity
// falls and specificity rises as the threshold increases.
func SyntheticConfusion(threshold float64) insights.Confusion {
	sensitivity := 0.5 + (1-threshold)*0.4
	specificity := 0.4 + threshold*0.5

	tp := roundHalfUp(syntheticPositives * sensitivity)
	tn := roundHalfUp(syntheticNegatives * specificity)

	return confusion(tp, syntheticNegatives-tn, tn, syntheticPositives-tp)
}

// SyntheticROC simulates a 21-point ROC curve, sorted by false positive rate
func SyntheticROC(rng *rand.Rand) []insights.ROCPoint {
	points := make([]insights.ROCPoint, 0, 21)
	for i := 0; i <= 100; i += 5 {
		t := float64(i) / 100
		tpr := 0.5 + (1-t)*0.4 + rng.Float64()*0.05
		fpr := 0.05 + (1-t)*0.5 + rng.Float64()*0.05
		points = append(points, insights.ROCPoint{
			Threshold: t,
			FPR:       math.Min(1, fpr),
			TPR:       math.Min(1, tpr),
		})
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].FPR < points[j].FPR })
	return points
}

// AUC integrates a ROC curve with the trapezoid rule. Points must be sorted
// by FPR.
func AUC(points []insights.ROCPoint) float64 {
	var auc float64
	for i := 1; i < len(points); i++ {
		width := points[i].FPR - points[i-1].FPR
		height := (points[i].TPR + points[i-1].TPR) / 2
		auc += width * height
	}
	return auc
}

// ScoredSample is the scorer's verdict on one evaluation row and the true
// outcome. Class is the hard label, which can disagree with Probability for
// Platt-scaled models.
type ScoredSample struct {
	Class       int
	Probability float64
	Outcome     int
}

// EvaluationConfusion counts predicted positives. At DefaultThreshold the
// scorer's hard class decides, matching the offline report; any other
// threshold cuts on p >= threshold.
func EvaluationConfusion(samples []ScoredSample, threshold float64) insights.Confusion {
	var tp, fp, tn, fn int
	for _, s := range samples {
		predicted := s.Probability >= threshold
		if threshold == DefaultThreshold {
			predicted = s.Class == 1
		}
		switch {
		case predicted && s.Outcome == 1:
			tp++
		case predicted:
			fp++
		case s.Outcome == 1:
			fn++
		default:
			tn++
		}
	}
	return confusion(tp, fp, tn, fn)
}

// EvaluationROC sweeps every distinct score as a threshold, from the highest
// down. The curve starts at (0,0) and ends at (1,1).
func EvaluationROC(samples []ScoredSample) ([]insights.ROCPoint, error) {
	var positives, negatives int
	for _, s := range samples {
		if s.Outcome == 1 {
			positives++
		} else {
			negatives++
		}
	}
	if positives == 0 || negatives == 0 {
		return nil, errors.Wrapf(errors.ErrInvalidInput,
			"evaluation set needs both outcomes (positives=%d, negatives=%d)", positives, negatives)
	}

	sorted := make([]ScoredSample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Probability > sorted[j].Probability })

	points := []insights.ROCPoint{{Threshold: 1, FPR: 0, TPR: 0}}
	var tp, fp int
	for i, s := range sorted {
		if s.Outcome == 1 {
			tp++
		} else {
			fp++
		}
		if i+1 < len(sorted) && sorted[i+1].Probability == s.Probability {
			continue
		}
		points = append(points, insights.ROCPoint{
			Threshold: s.Probability,
			FPR:       float64(fp) / float64(negatives),
			TPR:       float64(tp) / float64(positives),
		})
	}

	if last := points[len(points)-1]; last.FPR != 1 || last.TPR != 1 {
		points = append(points, insights.ROCPoint{Threshold: 0, FPR: 1, TPR: 1})
	}
	return points, nil
}

func confusion(tp, fp, tn, fn int) insights.Confusion {
	precision := ratio(tp, tp+fp)
	recall := ratio(tp, tp+fn)

	var f1 float64
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}

	return insights.Confusion{
		TruePositive:  tp,
		FalsePositive: fp,
		TrueNegative:  tn,
		FalseNegative: fn,
		Accuracy:      ratio(tp+tn, tp+fp+tn+fn),
		Precision:     precision,
		Recall:        recall,
		F1Score:       f1,
	}
}

// ratio returns 0 for an empty denominator; NaN cannot be encoded as JSON
func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// roundHalfUp rounds ties toward +Inf
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// ClampThreshold snaps a threshold into [0,1]. NaN is rejected.
func ClampThreshold(t float64) (float64, error) {
	if math.IsNaN(t) {
		return 0, errors.NewValidationError("threshold", "must be a number", t)
	}
	return math.Max(0, math.Min(1, t)), nil
}
