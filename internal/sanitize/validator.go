package sanitize

import (
	"fmt"
	"math"

	"cart-service/internal/models"
)

// Result of validating a single cart line. Valid means the item is usable
// after repair; warnings record what was auto-corrected.
type Result struct {
	Valid  bool
	Issues []models.Issue
}

// HasWarnings reports whether the item was auto-corrected.
func (r *Result) HasWarnings() bool {
	for _, issue := range r.Issues {
		if issue.Severity == models.SeverityWarning {
			return true
		}
	}
	return false
}

// BlockedBy returns the issue type that made the item unusable, or "" when
// the item is valid.
func (r *Result) BlockedBy() models.IssueType {
	for _, issue := range r.Issues {
		if issue.Severity == models.SeverityError {
			return issue.Type
		}
	}
	return ""
}

func (r *Result) fail(t models.IssueType, msg, action string) {
	r.Valid = false
	r.Issues = append(r.Issues, models.Issue{
		Type:      t,
		Severity:  models.SeverityError,
		Message:   msg,
		Suggested: action,
	})
}

func (r *Result) warn(t models.IssueType, msg, action string) {
	r.Issues = append(r.Issues, models.Issue{
		Type:      t,
		Severity:  models.SeverityWarning,
		Message:   msg,
		Suggested: action,
	})
}

// ValidateItem checks one raw cart entry and repairs what it safely can.
// Checks run in order and stop at the first structural failure. On an
// invalid result the returned item still carries any product reference
// that could be parsed, so callers can attempt a catalog backfill.
func ValidateItem(raw interface{}) (models.CartItem, Result) {
	var item models.CartItem
	res := Result{Valid: true}

	m, ok := raw.(map[string]interface{})
	if !ok || m == nil {
		res.fail(models.IssueCorruption, "cart entry is not an object", "Remove this item from your cart")
		return item, res
	}

	pid, numeric := numericValue(m["product_id"])
	if !numeric || !isFinite(pid) || pid <= 0 || pid != math.Trunc(pid) {
		res.fail(models.IssueMissingProduct, "item has no valid product reference", "Remove this item from your cart")
		return item, res
	}
	item.ProductID = int64(pid)
	item.ID = coerceID(m["id"])
	item.VariantID = coerceVariant(m["variant_id"])
	item.Product = parseSnapshot(m["product"])
	name := displayName(&item)

	if fieldExtreme(m["price"], DetectPriceCeiling) {
		res.fail(models.IssueInvalidPrice,
			fmt.Sprintf("%s has a corrupted price", name),
			"Remove this item from your cart")
		return item, res
	}
	price := SanitizePrice(m["price"])
	if price > 0 {
		if direct, wasNumeric := numericValue(m["price"]); !wasNumeric || direct != price {
			res.warn(models.IssueInvalidPrice,
				fmt.Sprintf("price for %s was adjusted to %.2f", name, price),
				"Review the price before checkout")
		}
	} else {
		fallback := 0.0
		if item.Product != nil {
			fallback = SanitizePrice(item.Product.Price)
		}
		if fallback <= 0 {
			res.fail(models.IssueInvalidPrice,
				fmt.Sprintf("%s has no usable price", name),
				"Remove this item from your cart")
			return item, res
		}
		price = fallback
		res.warn(models.IssueInvalidPrice,
			fmt.Sprintf("price for %s restored from catalog price %.2f", name, fallback),
			"Review the price before checkout")
	}
	item.Price = price

	if fieldExtreme(m["quantity"], DetectQuantityCeiling) {
		res.fail(models.IssueInvalidQuantity,
			fmt.Sprintf("%s has an unrecoverable quantity", name),
			"Remove this item from your cart")
		return item, res
	}
	if direct, wasNumeric := numericValue(m["quantity"]); wasNumeric && direct <= 0 {
		res.fail(models.IssueInvalidQuantity,
			fmt.Sprintf("%s has a non-positive quantity", name),
			"Remove this item from your cart")
		return item, res
	}
	qty := SanitizeQuantity(m["quantity"])
	if direct, wasNumeric := numericValue(m["quantity"]); !wasNumeric || direct != float64(qty) {
		res.warn(models.IssueInvalidQuantity,
			fmt.Sprintf("quantity for %s was adjusted to %d", name, qty),
			"Review the quantity before checkout")
	}
	item.Quantity = qty

	// Never trust the stored total.
	item.Total = Round2(item.Price * float64(item.Quantity))

	if item.Product == nil {
		item.Product = placeholderSnapshot(item.ProductID)
	}
	return item, res
}

func displayName(item *models.CartItem) string {
	if item.Product != nil && item.Product.Name != "" {
		return item.Product.Name
	}
	return fmt.Sprintf("product %d", item.ProductID)
}

func placeholderSnapshot(productID int64) *models.ProductSnapshot {
	return &models.ProductSnapshot{
		Name: fmt.Sprintf("Product %d", productID),
	}
}

func coerceID(raw interface{}) int64 {
	v, ok := numericValue(raw)
	if !ok || !isFinite(v) || v < 0 {
		return 0
	}
	return int64(v)
}

func coerceVariant(raw interface{}) *int64 {
	v, ok := numericValue(raw)
	if !ok || !isFinite(v) || v <= 0 || v != math.Trunc(v) {
		return nil
	}
	id := int64(v)
	return &id
}

func parseSnapshot(raw interface{}) *models.ProductSnapshot {
	m, ok := raw.(map[string]interface{})
	if !ok || m == nil {
		return nil
	}
	snap := &models.ProductSnapshot{
		Name:      stringField(m, "name"),
		Slug:      stringField(m, "slug"),
		SKU:       stringField(m, "sku"),
		Thumbnail: stringField(m, "thumbnail"),
		Price:     SanitizePrice(m["price"]),
	}
	if stock, ok := numericValue(m["stock"]); ok && isFinite(stock) && stock > 0 {
		snap.Stock = int(stock)
	}
	if images, ok := m["images"].([]interface{}); ok {
		for _, img := range images {
			if s, ok := img.(string); ok && s != "" {
				snap.Images = append(snap.Images, s)
			}
		}
	}
	return snap
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}
