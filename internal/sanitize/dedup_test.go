package sanitize

import (
	"testing"

	"cart-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func variant(id int64) *int64 {
	return &id
}

func TestMergeDuplicatesSumsQuantities(t *testing.T) {
	items := []models.CartItem{
		{ProductID: 1, VariantID: nil, Quantity: 2, Price: 500, Total: 1000},
		{ProductID: 1, VariantID: nil, Quantity: 3, Price: 500, Total: 1500},
	}

	merged, issues, absorbed := MergeDuplicates(items)

	require.Len(t, merged, 1)
	assert.Equal(t, 5, merged[0].Quantity)
	assert.Equal(t, 2500.0, merged[0].Total)
	assert.Equal(t, 1, absorbed)
	require.Len(t, issues, 1)
	assert.Equal(t, models.IssueDuplicate, issues[0].Type)
	assert.Equal(t, models.SeverityWarning, issues[0].Severity)
}

func TestMergeDistinctVariantsKeptApart(t *testing.T) {
	items := []models.CartItem{
		{ProductID: 1, VariantID: variant(10), Quantity: 1, Price: 100, Total: 100},
		{ProductID: 1, VariantID: variant(11), Quantity: 1, Price: 100, Total: 100},
		{ProductID: 1, VariantID: nil, Quantity: 1, Price: 100, Total: 100},
	}

	merged, issues, absorbed := MergeDuplicates(items)

	assert.Len(t, merged, 3)
	assert.Empty(t, issues)
	assert.Zero(t, absorbed)
}

func TestMergePreservesFirstSeenOrder(t *testing.T) {
	items := []models.CartItem{
		{ProductID: 1, Quantity: 1, Price: 10, Total: 10},
		{ProductID: 2, Quantity: 1, Price: 20, Total: 20},
		{ProductID: 1, Quantity: 4, Price: 10, Total: 40},
	}

	merged, _, absorbed := MergeDuplicates(items)

	require.Len(t, merged, 2)
	assert.Equal(t, int64(1), merged[0].ProductID)
	assert.Equal(t, 5, merged[0].Quantity)
	assert.Equal(t, 50.0, merged[0].Total)
	assert.Equal(t, int64(2), merged[1].ProductID)
	assert.Equal(t, 1, absorbed)
}

func TestMergeEmptyInput(t *testing.T) {
	merged, issues, absorbed := MergeDuplicates(nil)
	assert.Empty(t, merged)
	assert.Empty(t, issues)
	assert.Zero(t, absorbed)
}
