package common

import (
	"math"
	"strconv"
	"strings"
)

// Flt coerces an arbitrary value to a float64. Missing, malformed and
// non-finite inputs all collapse to 0 so pricing math never sees a NaN.
func Flt(v any) float64 {
	var f float64
	switch value := v.(type) {
	case nil:
		return 0
	case float64:
		f = value
	case float32:
		f = float64(value)
	case int:
		f = float64(value)
	case int32:
		f = float64(value)
	case int64:
		f = float64(value)
	case bool:
		if value {
			return 1
		}
		return 0
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Cint coerces an arbitrary value to an int, truncating toward zero.
func Cint(v any) int {
	return int(Flt(v))
}

// NonNeg clamps negative values to 0.
func NonNeg(f float64) float64 {
	if f < 0 || math.IsNaN(f) {
		return 0
	}
	return f
}

// Clamp restricts f to the inclusive [lo, hi] range.
func Clamp(f, lo, hi float64) float64 {
	if f < lo {
		return lo
	}
	if f > hi {
		return hi
	}
	return f
}

// AtoiDefault converts the provided string to an integer falling back to the default when parsing fails.
func AtoiDefault(value string, def int) int {
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
