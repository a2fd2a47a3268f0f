package common

import (
	"math"
	"strconv"
	"strings"
)

// FormatValue renders a card value the way it appears in a FITS header.
func FormatValue(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case bool:
		if v {
			return "T"
		}
		return "F"
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return FormatFloat(v)
	case complex128:
		return "(" + FormatFloat(real(v)) + ", " + FormatFloat(imag(v)) + ")"
	default:
		return ""
	}
}

// FormatFloat returns the shortest representation of v that fits a 20
// character fixed-format field and always carries a decimal point.
func FormatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'G', -1, 64)
	for prec := 16; len(s) > 20 && prec > 0; prec-- {
		s = strconv.FormatFloat(v, 'G', prec, 64)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || strings.Contains(s, ".") {
		return s
	}
	if i := strings.IndexByte(s, 'E'); i >= 0 {
		return s[:i] + ".0" + s[i:]
	}
	return s + ".0"
}

// AsFloat converts numeric card values to float64.
func AsFloat(v interface{}) (float64, bool) {
	switch v := v.(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

// AsString returns v when it is a string value.
func AsString(v interface{}) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// ValuesEqual compares card values. Integers and reals compare numerically.
func ValuesEqual(a, b interface{}) bool {
	if fa, ok := AsFloat(a); ok {
		fb, ok := AsFloat(b)
		return ok && fa == fb
	}
	switch a := a.(type) {
	case nil:
		return b == nil
	case string:
		s, ok := b.(string)
		return ok && a == s
	case bool:
		o, ok := b.(bool)
		return ok && a == o
	case complex128:
		o, ok := b.(complex128)
		return ok && a == o
	}
	return false
}

// IsCommentaryKey reports whether key names a free-text card.
func IsCommentaryKey(key string) bool {
	switch key {
	case "", "COMMENT", "HISTORY":
		return true
	}
	return false
}
