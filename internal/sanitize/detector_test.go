package sanitize

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, blob string) interface{} {
	t.Helper()
	var data interface{}
	require.NoError(t, json.Unmarshal([]byte(blob), &data))
	return data
}

func TestDetectCleanCartIsNotCorrupt(t *testing.T) {
	data := decode(t, `[
		{"id":1,"product_id":1,"variant_id":null,"quantity":2,"price":500,"total":1000,
		 "product":{"name":"Aloe Body Butter","price":500,"stock":10}},
		{"id":2,"product_id":3,"variant_id":7,"quantity":1,"price":19.99,"total":19.99}
	]`)
	assert.False(t, DetectExtremeCorruption(data))
}

func TestDetectExtremeQuantity(t *testing.T) {
	data := decode(t, `[{"product_id":1,"quantity":20000,"price":100,"total":100}]`)
	assert.True(t, DetectExtremeCorruption(data))
}

func TestDetectExtremePrice(t *testing.T) {
	data := decode(t, `[{"product_id":1,"quantity":1,"price":500000000,"total":500000000}]`)
	assert.True(t, DetectExtremeCorruption(data))
}

func TestDetectExponentNotationStrings(t *testing.T) {
	assert.True(t, DetectExtremeCorruption(decode(t, `[{"product_id":1,"quantity":"5e10","price":200}]`)))
	assert.True(t, DetectExtremeCorruption(decode(t, `[{"product_id":1,"quantity":1,"price":"1e+21"}]`)))
	assert.True(t, DetectExtremeCorruption(decode(t, `[{"product_id":1,"note":"2.5E+300"}]`)))

	// a lone 'e' in prose is not exponent notation
	assert.False(t, DetectExtremeCorruption(decode(t, `[{"product_id":1,"quantity":1,"price":10,"note":"extra large"}]`)))
}

func TestDetectCorruptElementFlagsWholeArray(t *testing.T) {
	data := decode(t, `[
		{"product_id":1,"quantity":1,"price":10,"total":10},
		{"product_id":2,"quantity":"9e99","price":10,"total":10}
	]`)
	assert.True(t, DetectExtremeCorruption(data))
}

func TestDetectTotalsObject(t *testing.T) {
	assert.False(t, DetectExtremeCorruption(decode(t, `{"subtotal":100,"total":116,"tax":16,"shipping":0}`)))
	assert.True(t, DetectExtremeCorruption(decode(t, `{"subtotal":100,"total":116,"tax":-16,"shipping":0}`)))
	assert.True(t, DetectExtremeCorruption(decode(t, `{"subtotal":200000000,"total":1,"tax":0,"shipping":0}`)))
}

func TestDetectNestedCorruption(t *testing.T) {
	data := decode(t, `[{"product_id":1,"quantity":1,"price":10,
		"product":{"name":"Shea Butter","price":"3e+12"}}]`)
	assert.True(t, DetectExtremeCorruption(data))
}

func TestDetectNonFiniteNumbers(t *testing.T) {
	assert.True(t, DetectExtremeCorruption(math.Inf(1)))
	assert.True(t, DetectExtremeCorruption([]interface{}{math.NaN()}))
	assert.False(t, DetectExtremeCorruption(nil))
}
