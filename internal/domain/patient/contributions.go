package patient

import "sort"

// Contribution is one risk factor's share of the patient-facing breakdown.
// Points are heuristic and independent of the classifier.
type Contribution struct {
	Feature string `json:"feature"`
	Value   int    `json:"value"`
}

// step awards points to values at or above from
type step struct {
	from   float64
	points int
}

// Steps are checked top down; the first match wins.
var (
	glucoseSteps       = []step{{126, 30}, {100, 15}}
	bloodPressureSteps = []step{{90, 12}, {80, 6}}
	skinThicknessSteps = []step{{30, 8}, {20, 4}}
	insulinSteps       = []step{{200, 12}, {100, 6}}
	bmiSteps           = []step{{35, 20}, {30, 14}, {25, 8}}
	familySteps        = []step{{1.5, 18}, {1.0, 12}, {0.5, 6}}
	ageSteps           = []step{{60, 20}, {50, 15}, {40, 10}, {30, 5}}
)

// underweightBMI still earns a little risk
const (
	underweightBMI    = 18.5
	underweightPoints = 2
)

// Contributions scores each measurement against fixed clinical cutoffs and
// returns the factors largest first, ties in feature order. Pregnancies
// appear for female subjects only.
func (m *Measurements) Contributions() []Contribution {
	out := make([]Contribution, 0, FeatureCount)

	if m.Gender == GenderFemale {
		out = append(out, Contribution{"Pregnancies", pregnancyPoints(m.Pregnancies)})
	}

	bmi := points(m.BMI, bmiSteps)
	if bmi == 0 && m.BMI < underweightBMI {
		bmi = underweightPoints
	}

	out = append(out,
		Contribution{"Plasma Glucose", points(m.Glucose, glucoseSteps)},
		Contribution{"Blood Pressure", points(m.BloodPressure, bloodPressureSteps)},
		Contribution{"Skin Thickness", points(m.SkinThickness, skinThicknessSteps)},
		Contribution{"Serum Insulin", points(m.Insulin, insulinSteps)},
		Contribution{"BMI", bmi},
		Contribution{"Family History", points(m.DiabetesPedigreeFunction, familySteps)},
		Contribution{"Age", points(m.Age, ageSteps)},
	)

	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	return out
}

// pregnancyPoints uses strict cutoffs, unlike the other factors
func pregnancyPoints(n float64) int {
	switch {
	case n > 6:
		return 15
	case n > 3:
		return 10
	case n > 0:
		return 5
	}
	return 0
}

func points(v float64, steps []step) int {
	for _, s := range steps {
		if v >= s.from {
			return s.points
		}
	}
	return 0
}
