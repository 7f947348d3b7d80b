package pattern

import (
	"errors"
	"strconv"
	"strings"
)

var errNotQuoted = errors.New("value is not a quoted string")

// convert parses a raw capture according to its type hint.
//
// Hints follow the Rust-style names used in step definitions (u32, i64,
// f64) as well as the Go spellings (uint32, int64, float64). An empty or
// unknown hint leaves the raw string untouched.
func convert(hint, raw string) (any, error) {
	switch hint {
	case "":
		return raw, nil

	case "int", "isize":
		v, err := strconv.ParseInt(raw, 10, strconv.IntSize)
		return int(v), err
	case "i8", "int8":
		v, err := strconv.ParseInt(raw, 10, 8)
		return int8(v), err
	case "i16", "int16":
		v, err := strconv.ParseInt(raw, 10, 16)
		return int16(v), err
	case "i32", "int32":
		v, err := strconv.ParseInt(raw, 10, 32)
		return int32(v), err
	case "i64", "int64":
		return strconv.ParseInt(raw, 10, 64)

	case "uint", "usize":
		v, err := strconv.ParseUint(raw, 10, strconv.IntSize)
		return uint(v), err
	case "u8", "uint8":
		v, err := strconv.ParseUint(raw, 10, 8)
		return uint8(v), err
	case "u16", "uint16":
		v, err := strconv.ParseUint(raw, 10, 16)
		return uint16(v), err
	case "u32", "uint32":
		v, err := strconv.ParseUint(raw, 10, 32)
		return uint32(v), err
	case "u64", "uint64":
		return strconv.ParseUint(raw, 10, 64)

	case "f32", "float32":
		v, err := parseFloat(raw, 32)
		return float32(v), err
	case "f64", "float64", "float":
		return parseFloat(raw, 64)

	case "bool":
		return strconv.ParseBool(raw)

	case "string":
		return unquote(raw)
	}

	return raw, nil
}

// parseFloat accepts decimal and exponent forms plus nan/inf/infinity.
// Hex floats and underscores are rejected even though strconv allows them.
func parseFloat(raw string, bits int) (float64, error) {
	if strings.ContainsAny(raw, "_xXpP") {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseFloat(raw, bits)
}

// unquote strips matching single or double quotes and removes backslash
// escapes. The closing quote must not itself be escaped.
func unquote(raw string) (string, error) {
	if len(raw) < 2 {
		return "", errNotQuoted
	}
	q := raw[0]
	if (q != '"' && q != '\'') || raw[len(raw)-1] != q {
		return "", errNotQuoted
	}

	body := raw[1 : len(raw)-1]
	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '\\' {
			if i+1 == len(body) {
				// Trailing backslash escapes the closing quote.
				return "", errNotQuoted
			}
			i++
			b.WriteByte(body[i])
			continue
		}
		if c == q {
			return "", errNotQuoted
		}
		b.WriteByte(c)
	}
	return b.String(), nil
}
