package sanitize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizePrice(t *testing.T) {
	assert.Equal(t, 500.0, SanitizePrice(500.0))
	assert.Equal(t, 19.99, SanitizePrice("KSh 19.99"))
	assert.Equal(t, 1250.0, SanitizePrice("1,250"))
	assert.Equal(t, 42.0, SanitizePrice(42))
}

func TestSanitizePriceDegradesToZero(t *testing.T) {
	assert.Equal(t, 0.0, SanitizePrice(nil))
	assert.Equal(t, 0.0, SanitizePrice(true))
	assert.Equal(t, 0.0, SanitizePrice("garbage"))
	assert.Equal(t, 0.0, SanitizePrice("12.3.4"))
	assert.Equal(t, 0.0, SanitizePrice(math.NaN()))
	assert.Equal(t, 0.0, SanitizePrice(math.Inf(1)))
	assert.Equal(t, 0.0, SanitizePrice(-10.0))
}

func TestSanitizePriceClampsToCeiling(t *testing.T) {
	assert.Equal(t, float64(PriceMax), SanitizePrice(5e12))
	assert.Equal(t, float64(PriceMax), SanitizePrice(PriceMax+1))
	assert.Equal(t, float64(PriceMax), SanitizePrice(float64(PriceMax)))
}

func TestSanitizeQuantity(t *testing.T) {
	assert.Equal(t, 5, SanitizeQuantity(5.0))
	assert.Equal(t, 3, SanitizeQuantity(2.5))
	assert.Equal(t, 7, SanitizeQuantity("7"))
	assert.Equal(t, 12, SanitizeQuantity("12 pcs"))
}

func TestSanitizeQuantityDegradesToOne(t *testing.T) {
	assert.Equal(t, 1, SanitizeQuantity(nil))
	assert.Equal(t, 1, SanitizeQuantity("abc"))
	assert.Equal(t, 1, SanitizeQuantity(0.0))
	assert.Equal(t, 1, SanitizeQuantity(-3.0))
	assert.Equal(t, 1, SanitizeQuantity(math.NaN()))
	assert.Equal(t, 1, SanitizeQuantity(math.Inf(-1)))
}

func TestSanitizeQuantityClampsToBounds(t *testing.T) {
	assert.Equal(t, QuantityMax, SanitizeQuantity(1500.0))
	assert.Equal(t, QuantityMax, SanitizeQuantity("99999999999999999999"))
	assert.Equal(t, QuantityMax, SanitizeQuantity(1e20))
	assert.Equal(t, QuantityMin, SanitizeQuantity(0.4))

	// sanitized output is always an integer in [1, 999]
	inputs := []interface{}{-1e9, 1e9, math.NaN(), "1e500", "0", "  ", 999.9, 1.0}
	for _, raw := range inputs {
		got := SanitizeQuantity(raw)
		assert.GreaterOrEqual(t, got, QuantityMin)
		assert.LessOrEqual(t, got, QuantityMax)
	}
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 2500.0, Round2(500.0*5))
	assert.Equal(t, 0.1, Round2(0.10000000001))
	assert.Equal(t, 19.99, Round2(19.985+0.004))
}
