package sanitize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Bounds for the strict repair path. PriceMax is the single authoritative
// ceiling; the corruption detector uses deliberately looser gates.
const (
	PriceMax    = 1e7
	QuantityMin = 1
	QuantityMax = 999
)

// SanitizePrice coerces a raw price field to a finite value in
// [0, PriceMax]. Strings are stripped to digits and dots before parsing.
// Malformed input degrades to 0, never an error.
func SanitizePrice(raw interface{}) float64 {
	switch v := raw.(type) {
	case float64:
		return clampPrice(v)
	case float32:
		return clampPrice(float64(v))
	case int:
		return clampPrice(float64(v))
	case int64:
		return clampPrice(float64(v))
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return clampPrice(f)
	case string:
		f, err := strconv.ParseFloat(stripPriceChars(v), 64)
		if err != nil {
			return 0
		}
		return clampPrice(f)
	default:
		return 0
	}
}

// SanitizeQuantity coerces a raw quantity field to an integer in
// [QuantityMin, QuantityMax]. Strings are stripped to digits before
// parsing. Malformed input degrades to 1, never an error.
func SanitizeQuantity(raw interface{}) int {
	switch v := raw.(type) {
	case float64:
		return clampQuantity(v)
	case float32:
		return clampQuantity(float64(v))
	case int:
		return clampQuantity(float64(v))
	case int64:
		return clampQuantity(float64(v))
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return QuantityMin
		}
		return clampQuantity(f)
	case string:
		digits := stripNonDigits(v)
		if digits == "" {
			return QuantityMin
		}
		f, err := strconv.ParseFloat(digits, 64)
		if err != nil {
			return QuantityMin
		}
		return clampQuantity(f)
	default:
		return QuantityMin
	}
}

// Round2 rounds a monetary value to 2 decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clampPrice(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > PriceMax {
		return PriceMax
	}
	return v
}

func clampQuantity(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return QuantityMin
	}
	// clamp before converting: float-to-int conversion of an
	// out-of-range value is platform-defined
	v = math.Round(v)
	if v < QuantityMin {
		return QuantityMin
	}
	if v > QuantityMax {
		return QuantityMax
	}
	return int(v)
}

func stripPriceChars(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func stripNonDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// numericValue reads raw as a float64 without repairing it. The second
// return is false when the value is not cleanly numeric.
func numericValue(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
