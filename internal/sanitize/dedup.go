package sanitize

import (
	"fmt"
	"strconv"

	"cart-service/internal/models"
)

// defaultVariantKey stands in for a missing variant so that
// (product, no-variant) lines collide with each other.
const defaultVariantKey = "default"

func mergeKey(item *models.CartItem) string {
	variant := defaultVariantKey
	if item.VariantID != nil {
		variant = strconv.FormatInt(*item.VariantID, 10)
	}
	return fmt.Sprintf("%d:%s", item.ProductID, variant)
}

// MergeDuplicates collapses lines sharing (product_id, variant_id) into
// one, preserving first-seen order. On collision the surviving line's
// quantity grows by the incoming quantity and its total is recomputed.
// Returns the merged list, informational duplicate issues, and the number
// of lines absorbed.
func MergeDuplicates(items []models.CartItem) ([]models.CartItem, []models.Issue, int) {
	merged := make([]models.CartItem, 0, len(items))
	index := make(map[string]int, len(items))
	var issues []models.Issue
	absorbed := 0

	for _, item := range items {
		key := mergeKey(&item)
		at, seen := index[key]
		if !seen {
			index[key] = len(merged)
			merged = append(merged, item)
			continue
		}

		existing := &merged[at]
		existing.Quantity += item.Quantity
		existing.Total = Round2(existing.Price * float64(existing.Quantity))
		absorbed++
		issues = append(issues, models.Issue{
			Type:     models.IssueDuplicate,
			Severity: models.SeverityWarning,
			Message: fmt.Sprintf("merged duplicate of %s, quantity now %d",
				displayName(existing), existing.Quantity),
		})
	}

	return merged, issues, absorbed
}
