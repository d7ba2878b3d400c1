package sanitize

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// Detector gates. These are deliberately looser than the strict repair
// bounds: the detector is a cheap pre-filter that decides between targeted
// cleanup and emergency reset, and must never veto a value the strict path
// could still repair.
const (
	DetectPriceCeiling    = 1e8
	DetectQuantityCeiling = 10_000
	DetectTotalCeiling    = 1e8
)

// moneyFields are the numeric fields of a totals object; any of them being
// negative or over the ceiling marks the whole blob corrupt.
var moneyFields = []string{"subtotal", "total", "tax", "shipping"}

// DetectExtremeCorruption scans decoded JSON for values far outside the
// domain: non-finite numbers, absurd magnitudes, exponent notation in
// string fields. Arrays are corrupt when any element is; objects are
// checked field by field and recursively.
func DetectExtremeCorruption(data interface{}) bool {
	switch v := data.(type) {
	case nil:
		return false
	case []interface{}:
		for _, el := range v {
			if DetectExtremeCorruption(el) {
				return true
			}
		}
		return false
	case map[string]interface{}:
		return objectCorrupt(v)
	case string:
		return exponentString(v)
	case float64:
		return !isFinite(v)
	default:
		return false
	}
}

func objectCorrupt(m map[string]interface{}) bool {
	for _, field := range moneyFields {
		raw, ok := m[field]
		if !ok {
			continue
		}
		n, numeric := numericValue(raw)
		if numeric && (n < 0 || !isFinite(n) || n > DetectTotalCeiling) {
			return true
		}
	}

	if fieldExtreme(m["price"], DetectPriceCeiling) {
		return true
	}
	if fieldExtreme(m["quantity"], DetectQuantityCeiling) {
		return true
	}
	if fieldExtreme(m["total"], DetectTotalCeiling) {
		return true
	}

	for _, raw := range m {
		switch v := raw.(type) {
		case string:
			if exponentString(v) {
				return true
			}
		case float64:
			if !isFinite(v) {
				return true
			}
		case map[string]interface{}, []interface{}:
			if DetectExtremeCorruption(v) {
				return true
			}
		}
	}
	return false
}

// fieldExtreme reports whether a single numeric field is beyond repair:
// non-finite, over its detector ceiling, or a string in exponent notation.
func fieldExtreme(raw interface{}, ceiling float64) bool {
	switch v := raw.(type) {
	case float64:
		return !isFinite(v) || v > ceiling
	case string:
		if exponentString(v) {
			return true
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return false
		}
		return !isFinite(n) || n > ceiling
	default:
		return false
	}
}

// exponentString flags scientific notation leaking into stored strings,
// the classic signature of a float gone through naive stringification.
func exponentString(s string) bool {
	if strings.Contains(s, "e+") || strings.Contains(s, "E+") {
		return true
	}
	trimmed := strings.TrimSpace(s)
	if !strings.ContainsAny(trimmed, "eE") {
		return false
	}
	if _, err := strconv.ParseFloat(trimmed, 64); err != nil {
		// out-of-range input is still a numeric exponent string
		return errors.Is(err, strconv.ErrRange)
	}
	return true
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
