package patient

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"

	"diabetes-risk/pkg/errors"
)

// DecodeInput parses a request body into an Input.
//
// An empty body or a JSON value with no content (null, false, 0, "", [] or {})
// yields ErrNoInput. Invalid JSON and JSON that is not an object yield
// ErrMalformedPayload. The bare literals NaN, Infinity and -Infinity are
// accepted and read as the matching numeric text.
func DecodeInput(body []byte) (Input, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.ErrNoInput
	}

	dec := json.NewDecoder(bytes.NewReader(quoteNonFiniteLiterals(body)))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrap(errors.ErrMalformedPayload, err.Error())
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.Wrap(errors.ErrMalformedPayload, "trailing data after JSON value")
	}

	if isEmptyValue(raw) {
		return nil, errors.ErrNoInput
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, errors.Wrapf(errors.ErrMalformedPayload, "expected JSON object, got %T", raw)
	}
	return Input(obj), nil
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case string:
		return t == ""
	case json.Number:
		f, err := strconv.ParseFloat(t.String(), 64)
		return err == nil && f == 0
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

var nonFiniteLiterals = [][]byte{[]byte("NaN"), []byte("Infinity"), []byte("-Infinity")}

// quoteNonFiniteLiterals wraps bare NaN and Infinity tokens outside strings
// in quotes. Anything else is copied as is for the decoder to judge.
func quoteNonFiniteLiterals(body []byte) []byte {
	if !bytes.Contains(body, []byte("NaN")) && !bytes.Contains(body, []byte("Infinity")) {
		return body
	}

	out := make([]byte, 0, len(body)+8)
	inString := false
	for i := 0; i < len(body); i++ {
		c := body[i]
		if inString {
			out = append(out, c)
			switch c {
			case '\\':
				if i+1 < len(body) {
					i++
					out = append(out, body[i])
				}
			case '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			out = append(out, c)
			continue
		}
		if lit := literalAt(body, i); lit != nil {
			out = append(out, '"')
			out = append(out, lit...)
			out = append(out, '"')
			i += len(lit) - 1
			continue
		}
		out = append(out, c)
	}
	return out
}

// literalAt returns the non-finite literal starting at i when it stands alone
func literalAt(body []byte, i int) []byte {
	if i > 0 && isWordByte(body[i-1]) {
		return nil
	}
	for _, lit := range nonFiniteLiterals {
		end := i + len(lit)
		if bytes.HasPrefix(body[i:], lit) && (end == len(body) || !isWordByte(body[end])) {
			return lit
		}
	}
	return nil
}

func isWordByte(c byte) bool {
	return c == '_' || c == '-' || c == '+' || c == '.' || isDigit(c) ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
