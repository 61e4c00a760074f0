package patient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diabetes-risk/pkg/errors"
)

func TestDecodeInput(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"empty body", "", errors.ErrNoInput},
		{"whitespace body", " \n\t", errors.ErrNoInput},
		{"null", "null", errors.ErrNoInput},
		{"empty object", "{}", errors.ErrNoInput},
		{"empty array", "[]", errors.ErrNoInput},
		{"empty string", `""`, errors.ErrNoInput},
		{"zero", "0", errors.ErrNoInput},
		{"zero float", "0.0", errors.ErrNoInput},
		{"false", "false", errors.ErrNoInput},
		{"malformed", `{"glucose":`, errors.ErrMalformedPayload},
		{"trailing data", `{"glucose":1} {}`, errors.ErrMalformedPayload},
		{"non-empty array", `[1,2]`, errors.ErrMalformedPayload},
		{"number", `12`, errors.ErrMalformedPayload},
		{"true", `true`, errors.ErrMalformedPayload},
		{"string", `"female"`, errors.ErrMalformedPayload},
		{"object", `{"gender":"female"}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := DecodeInput([]byte(tt.body))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, in)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "female", in["gender"])
		})
	}
}

func TestDecodeInput_NonFiniteLiterals(t *testing.T) {
	in, err := DecodeInput([]byte(`{"glucose": NaN, "bloodPressure":-Infinity, "insulin":Infinity}`))
	require.NoError(t, err)

	m, err := Normalize(in)
	require.NoError(t, err)
	assert.Equal(t, 200.0, m.Glucose, "NaN snaps to the upper bound")
	assert.Equal(t, 0.0, m.BloodPressure)
	assert.Equal(t, 900.0, m.Insulin)
}

func TestDecodeInput_NonFiniteLiteralsInsideStringsUntouched(t *testing.T) {
	in, err := DecodeInput([]byte(`{"note":"say \"NaN\" or Infinity","glucose":NaN}`))
	require.NoError(t, err)
	assert.Equal(t, `say "NaN" or Infinity`, in["note"])
	assert.Equal(t, "NaN", in["glucose"])
}

func TestDecodeInput_LookalikeLiteralsRejected(t *testing.T) {
	for _, body := range []string{
		`{"glucose": NaNa}`,
		`{"glucose": -NaN}`,
		`{"glucose": +Infinity}`,
		`{"glucose": nan}`,
		`NaN`,
	} {
		_, err := DecodeInput([]byte(body))
		assert.ErrorIs(t, err, errors.ErrMalformedPayload, body)
	}
}
