package insights

import (
	"math"
	"math/rand/v2"

	"diabetes-risk/internal/domain/insights"
)

// Draws above this cutoff produce a diabetic subject (about 30%)
const diabeticCutoff = 0.7

// newRand returns a generator for one request. A zero seed draws a fresh
// random seed, so every call yields a different population.
func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}

// GeneratePopulation draws n synthetic people for the population charts.
// Diabetic subjects skew toward higher measurements and less activity.
func GeneratePopulation(rng *rand.Rand, n int) []insights.PopulationRecord {
	out := make([]insights.PopulationRecord, 0, n)
	for i := 0; i < n; i++ {
		hasDiabetes := rng.Float64() > diabeticCutoff
		if hasDiabetes {
			out = append(out, insights.PopulationRecord{
				Age:              int(math.Floor(rng.Float64()*30 + 45)), // 45-75
				BMI:              rng.Float64()*15 + 27,                  // 27-42
				Glucose:          rng.Float64()*80 + 110,                 // 110-190
				BloodPressure:    rng.Float64()*50 + 120,                 // 120-170
				PhysicalActivity: rng.Float64() * 3,
				HasDiabetes:      true,
			})
			continue
		}
		out = append(out, insights.PopulationRecord{
			Age:              int(math.Floor(rng.Float64()*50 + 20)), // 20-70
			BMI:              rng.Float64()*12 + 20,                  // 20-32
			Glucose:          rng.Float64()*40 + 70,                  // 70-110
			BloodPressure:    rng.Float64()*40 + 90,                  // 90-130
			PhysicalActivity: rng.Float64() * 8,
		})
	}
	return out
}
