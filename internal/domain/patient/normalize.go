package patient

import (
	"strings"

	"diabetes-risk/pkg/errors"
)

// Input is the untyped request payload
type Input map[string]any

// Normalize turns a request payload into clamped, ordered measurements.
//
// Out-of-range numbers never fail: they snap to the nearest bound. Pregnancies
// are read only for female subjects and are not clamped. Missing keys take
// their defaults. Fields are read in feature order, so the first bad value
// is the one reported.
func Normalize(in Input) (*Measurements, error) {
	if len(in) == 0 {
		return nil, errors.ErrNoInput
	}

	m := &Measurements{Gender: ParseGender(in["gender"])}

	if m.Gender == GenderFemale {
		v, err := in.number("pregnancies", 0)
		if err != nil {
			return nil, err
		}
		m.Pregnancies = v
	}

	targets := []struct {
		rng Range
		dst *float64
	}{
		{GlucoseRange, &m.Glucose},
		{BloodPressureRange, &m.BloodPressure},
		{SkinThicknessRange, &m.SkinThickness},
		{InsulinRange, &m.Insulin},
		{BMIRange, &m.BMI},
		{DPFRange, &m.DiabetesPedigreeFunction},
		{AgeRange, &m.Age},
	}
	for _, t := range targets {
		v, err := in.number(t.rng.Key, t.rng.Default)
		if err != nil {
			return nil, err
		}
		*t.dst = t.rng.Clamp(v)
	}

	return m, nil
}

// ParseGender applies the pregnancies rule's notion of gender: only a string
// equal to "female" after lower-casing counts. Absent, null, non-string and
// any other text mean male/unspecified.
func ParseGender(raw any) Gender {
	if s, ok := raw.(string); ok && strings.ToLower(s) == string(GenderFemale) {
		return GenderFemale
	}
	return GenderMale
}

func (in Input) number(key string, def float64) (float64, error) {
	raw, ok := in[key]
	if !ok {
		return def, nil
	}
	v, err := Coerce(key, raw)
	if err != nil {
		return 0, errors.Wrapf(err, "coerce %s", key)
	}
	return v, nil
}
