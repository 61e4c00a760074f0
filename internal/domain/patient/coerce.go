package patient

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"diabetes-risk/pkg/errors"
)

// Coerce converts a loosely-typed request value into a float64.
//
// Accepted: JSON numbers, booleans (1/0) and numeric strings. Strings may carry
// surrounding whitespace, a sign, an exponent, the words inf/infinity/nan and
// underscores between digits. Hex literals are rejected. Numeric text that
// overflows becomes ±Inf, except integer literals, which fail.
func Coerce(field string, raw any) (float64, error) {
	switch v := raw.(type) {
	case json.Number:
		return coerceNumber(field, v.String())
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := parseNumericText(v)
		if err != nil {
			return 0, errors.NewValidationError(field, "could not convert string to float", v)
		}
		return f, nil
	case nil:
		return 0, errors.NewValidationError(field, "value must be a number", nil)
	default:
		return 0, errors.NewValidationError(field, "value must be a number", v)
	}
}

// coerceNumber handles a JSON number literal
func coerceNumber(field, lit string) (float64, error) {
	f, err := strconv.ParseFloat(lit, 64)
	if err == nil {
		return f, nil
	}
	if errors.Is(err, strconv.ErrRange) {
		if !strings.ContainsAny(lit, ".eE") {
			return 0, errors.NewValidationError(field, "integer too large to convert to float", lit)
		}
		return f, nil
	}
	return 0, errors.NewValidationError(field, "malformed number", lit)
}

func parseNumericText(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	if strings.ContainsAny(s, "xX") {
		return 0, strconv.ErrSyntax
	}

	body := strings.TrimLeft(s, "+-")
	if len(s)-len(body) > 1 {
		return 0, strconv.ErrSyntax
	}
	if strings.EqualFold(body, "nan") {
		return math.NaN(), nil
	}

	if strings.Contains(s, "_") {
		cleaned, ok := stripDigitSeparators(s)
		if !ok {
			return 0, strconv.ErrSyntax
		}
		s = cleaned
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return f, nil
		}
		return 0, err
	}
	return f, nil
}

// stripDigitSeparators removes underscores that sit between two digits and
// reports false if any underscore does not.
func stripDigitSeparators(s string) (string, bool) {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '_' {
			b.WriteByte(s[i])
			continue
		}
		if i == 0 || i == len(s)-1 || !isDigit(s[i-1]) || !isDigit(s[i+1]) {
			return "", false
		}
	}
	return b.String(), true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
