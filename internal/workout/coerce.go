package workout

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// lookup returns the value of the first name present in obj with a non-null value.
func lookup(obj map[string]any, names []string) (any, bool) {
	for _, name := range names {
		if v, ok := obj[name]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// asObject returns v as a JSON object, or nil when v is anything else.
func asObject(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// toNumber coerces a decoded JSON value to a float64. Values that cannot be
// read as a number yield NaN, so callers only need one finiteness check.
func toNumber(v any) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case bool:
		if n {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

// numberOf resolves names against obj and coerces the winner. Absent values are NaN.
func numberOf(obj map[string]any, names []string) float64 {
	v, ok := lookup(obj, names)
	if !ok {
		return math.NaN()
	}
	return toNumber(v)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// isNumber reports whether v is a JSON number (not a numeric string).
func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int64, json.Number:
		return true
	}
	return false
}

// truthy mirrors the loose truthiness the workout documents were authored against:
// null, false, 0, NaN and "" are falsy.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64, float32, int, int64, json.Number:
		f := toNumber(t)
		return f != 0 && !math.IsNaN(f)
	}
	return true
}

// toText coerces a decoded JSON value to a string.
func toText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64, float32, int, int64:
		return strconv.FormatFloat(toNumber(t), 'f', -1, 64)
	case nil:
		return ""
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// truncate cuts s to at most n characters (runes, not bytes).
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
