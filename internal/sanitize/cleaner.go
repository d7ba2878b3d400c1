package sanitize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cart-service/internal/cartstore"
	"cart-service/internal/models"
	"cart-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventSink publishes cleanup notifications to the rest of the platform.
type EventSink interface {
	PublishCleanupCompleted(ctx context.Context, event *models.CleanupCompletedEvent) error
	PublishCartCleared(ctx context.Context, event *models.CartClearedEvent) error
	PublishEmergencyReset(ctx context.Context, event *models.EmergencyResetEvent) error
}

// ProductLookup resolves catalog entries for price backfill.
type ProductLookup interface {
	LookupProduct(ctx context.Context, productID int64) (*models.Product, error)
	LookupProductBySKU(ctx context.Context, sku string) (*models.Product, error)
}

// ReportSink persists cleanup audit rows.
type ReportSink interface {
	CreateCleanupReport(ctx context.Context, report *models.CleanupReport) error
}

// Cleaner runs cleanup passes over persisted carts: per-item validation and
// repair, duplicate merging, write-back, and emergency reset when a pass
// cannot complete safely. A pass never returns an error; its outcome is the
// Summary.
type Cleaner struct {
	storage cartstore.CartStorage
	catalog ProductLookup
	events  EventSink
	reports ReportSink
	logger  *zap.Logger
}

// NewCleaner creates a cleanup orchestrator. catalog and reports may be nil,
// disabling price backfill and audit rows respectively.
func NewCleaner(
	storage cartstore.CartStorage,
	catalog ProductLookup,
	events EventSink,
	reports ReportSink,
) *Cleaner {
	return &Cleaner{
		storage: storage,
		catalog: catalog,
		events:  events,
		reports: reports,
		logger:  util.GetLogger(),
	}
}

// Run executes one cleanup pass for a cart. Re-running on already-clean
// data is a no-op, so racing callers are tolerated.
func (c *Cleaner) Run(ctx context.Context, cartID, trigger string) (summary models.Summary) {
	ctx, span := util.StartSpan(ctx, "Cleaner.Run")
	defer span.End()

	util.CleanupsRunTotal.WithLabelValues(trigger).Inc()
	start := time.Now()
	defer func() {
		util.CleanupLatency.Observe(time.Since(start).Seconds())
	}()

	summary = models.Summary{CartID: cartID, Outcome: models.OutcomeDone}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Cleanup pass panicked, wiping cart state",
				zap.String("cart_id", cartID),
				zap.Any("panic", r))
			util.CleanupsFailedTotal.WithLabelValues("panic").Inc()
			c.EmergencyReset(ctx, cartID)
			summary.Outcome = models.OutcomeFailed
			summary.FailReason = fmt.Sprint(r)
		}
		c.audit(ctx, &summary, trigger)
	}()

	raw, version, err := c.storage.ReadRaw(ctx, cartID)
	if err != nil {
		c.logger.Error("Failed to read cart", zap.String("cart_id", cartID), zap.Error(err))
		util.CleanupsFailedTotal.WithLabelValues("read_error").Inc()
		summary.Outcome = models.OutcomeFailed
		summary.FailReason = err.Error()
		return summary
	}
	if len(raw) == 0 {
		summary.Message = "cart is empty"
		return summary
	}

	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return c.clearStorage(ctx, cartID, summary, "cart data is not valid JSON")
	}
	list, ok := decoded.([]interface{})
	if !ok {
		return c.clearStorage(ctx, cartID, summary, "cart data is not a list of items")
	}

	cleaned := make([]models.CartItem, 0, len(list))
	for _, rawItem := range list {
		item, res := ValidateItem(rawItem)
		if !res.Valid {
			item, res = c.tryCatalogBackfill(ctx, rawItem, item, res)
		}
		summary.Issues = append(summary.Issues, res.Issues...)
		if !res.Valid {
			summary.ItemsRemoved++
			continue
		}
		if res.HasWarnings() {
			summary.ItemsFixed++
		}
		cleaned = append(cleaned, item)
	}

	merged, duplicateIssues, absorbed := MergeDuplicates(cleaned)
	summary.Issues = append(summary.Issues, duplicateIssues...)
	summary.ItemsMerged = absorbed
	summary.ItemsKept = len(merged)

	if err := c.storage.WriteItems(ctx, cartID, merged, version); err != nil {
		if errors.Is(err, cartstore.ErrVersionConflict) {
			c.logger.Warn("Cart changed during cleanup, leaving it for the next pass",
				zap.String("cart_id", cartID))
			summary.Message = "cart changed mid-pass, write skipped"
			return summary
		}
		c.logger.Error("Failed to write cleaned cart, wiping cart state",
			zap.String("cart_id", cartID), zap.Error(err))
		util.CleanupsFailedTotal.WithLabelValues("write_error").Inc()
		c.EmergencyReset(ctx, cartID)
		summary.Outcome = models.OutcomeFailed
		summary.FailReason = err.Error()
		return summary
	}

	util.ItemsFixedTotal.Add(float64(summary.ItemsFixed))
	util.ItemsRemovedTotal.Add(float64(summary.ItemsRemoved))
	util.ItemsMergedTotal.Add(float64(summary.ItemsMerged))

	if summary.Changed() {
		summary.Message = summaryMessage(&summary)
		c.logger.Info("Cart cleaned",
			zap.String("cart_id", cartID),
			zap.Int("fixed", summary.ItemsFixed),
			zap.Int("removed", summary.ItemsRemoved),
			zap.Int("merged", summary.ItemsMerged))

		event := &models.CleanupCompletedEvent{
			BaseEvent:    newBaseEvent(models.EventTypeCleanupCompleted),
			CartID:       cartID,
			Message:      summary.Message,
			ItemsFixed:   summary.ItemsFixed,
			ItemsRemoved: summary.ItemsRemoved,
			ItemsMerged:  summary.ItemsMerged,
		}
		if err := c.events.PublishCleanupCompleted(ctx, event); err != nil {
			c.logger.Error("Failed to publish CleanupCompleted event", zap.Error(err))
		}
	}

	return summary
}

// EmergencyReset unconditionally wipes every known storage key for the
// cart. It always reports success once the pass completes; per-key
// failures are only logged by the storage layer.
func (c *Cleaner) EmergencyReset(ctx context.Context, cartID string) models.ResetResult {
	ctx, span := util.StartSpan(ctx, "Cleaner.EmergencyReset")
	defer span.End()

	cleared, err := c.storage.Purge(ctx, cartID)
	if err != nil {
		c.logger.Error("Purge reported an error", zap.String("cart_id", cartID), zap.Error(err))
	}
	util.EmergencyResetsTotal.Inc()

	result := models.ResetResult{
		CartID:      cartID,
		Success:     true,
		KeysCleared: cleared,
		ResetAt:     time.Now(),
	}

	c.logger.Warn("Cart emergency reset",
		zap.String("cart_id", cartID),
		zap.Int("keys_cleared", cleared))

	event := &models.EmergencyResetEvent{
		BaseEvent: newBaseEvent(models.EventTypeEmergencyReset),
		CartID:    cartID,
		Message:   "Your cart could not be repaired and was reset",
		ResetAt:   result.ResetAt,
	}
	if err := c.events.PublishEmergencyReset(ctx, event); err != nil {
		c.logger.Error("Failed to publish EmergencyReset event", zap.Error(err))
	}

	return result
}

// clearStorage handles an unparseable blob: the items key is removed and
// the pass ends with OutcomeStorageCleared, zero items touched.
func (c *Cleaner) clearStorage(ctx context.Context, cartID string, summary models.Summary, reason string) models.Summary {
	if err := c.storage.Clear(ctx, cartID); err != nil {
		c.logger.Error("Failed to clear unparseable cart, wiping cart state",
			zap.String("cart_id", cartID), zap.Error(err))
		util.CleanupsFailedTotal.WithLabelValues("clear_error").Inc()
		c.EmergencyReset(ctx, cartID)
		summary.Outcome = models.OutcomeFailed
		summary.FailReason = err.Error()
		return summary
	}

	util.CartsClearedTotal.Inc()
	c.logger.Warn("Cleared unparseable cart",
		zap.String("cart_id", cartID),
		zap.String("reason", reason))

	summary.Outcome = models.OutcomeStorageCleared
	summary.Message = reason

	event := &models.CartClearedEvent{
		BaseEvent: newBaseEvent(models.EventTypeCartCleared),
		CartID:    cartID,
		Reason:    reason,
	}
	if err := c.events.PublishCartCleared(ctx, event); err != nil {
		c.logger.Error("Failed to publish CartCleared event", zap.Error(err))
	}
	return summary
}

// tryCatalogBackfill retries validation with the catalog price when the
// only blocker is an unusable price.
func (c *Cleaner) tryCatalogBackfill(ctx context.Context, raw interface{}, item models.CartItem, res Result) (models.CartItem, Result) {
	if c.catalog == nil || item.ProductID == 0 || res.BlockedBy() != models.IssueInvalidPrice {
		return item, res
	}
	m, ok := raw.(map[string]interface{})
	if !ok {
		return item, res
	}

	product, err := c.catalog.LookupProduct(ctx, item.ProductID)
	if err != nil || product == nil || product.Price <= 0 {
		// a stale snapshot may still carry a resolvable SKU
		if item.Product != nil && item.Product.SKU != "" {
			product, err = c.catalog.LookupProductBySKU(ctx, item.Product.SKU)
		}
	}
	if err != nil || product == nil || product.Price <= 0 {
		util.CatalogBackfillsTotal.WithLabelValues("miss").Inc()
		return item, res
	}
	util.CatalogBackfillsTotal.WithLabelValues("hit").Inc()

	patched := make(map[string]interface{}, len(m)+1)
	for k, v := range m {
		patched[k] = v
	}
	patched["price"] = product.Price
	if _, ok := patched["product"].(map[string]interface{}); !ok {
		patched["product"] = map[string]interface{}{
			"name":      product.Name,
			"slug":      product.Slug,
			"sku":       product.SKU,
			"thumbnail": product.Thumbnail,
			"price":     product.Price,
			"stock":     float64(product.Stock),
		}
	}

	fixed, fixedRes := ValidateItem(patched)
	if !fixedRes.Valid {
		return item, res
	}
	fixedRes.warn(models.IssueInvalidPrice,
		fmt.Sprintf("price for %s restored from catalog", displayName(&fixed)),
		"Review the price before checkout")
	return fixed, fixedRes
}

func (c *Cleaner) audit(ctx context.Context, summary *models.Summary, trigger string) {
	if c.reports == nil {
		return
	}
	report := &models.CleanupReport{
		CartID:       summary.CartID,
		Outcome:      string(summary.Outcome),
		ItemsKept:    summary.ItemsKept,
		ItemsFixed:   summary.ItemsFixed,
		ItemsRemoved: summary.ItemsRemoved,
		ItemsMerged:  summary.ItemsMerged,
		TriggeredBy:  trigger,
	}
	if err := c.reports.CreateCleanupReport(ctx, report); err != nil {
		c.logger.Error("Failed to record cleanup report",
			zap.String("cart_id", summary.CartID), zap.Error(err))
	}
}

func summaryMessage(s *models.Summary) string {
	msg := "Cart cleaned up:"
	if s.ItemsFixed > 0 {
		msg += fmt.Sprintf(" %d fixed", s.ItemsFixed)
	}
	if s.ItemsRemoved > 0 {
		msg += fmt.Sprintf(" %d removed", s.ItemsRemoved)
	}
	if s.ItemsMerged > 0 {
		msg += fmt.Sprintf(" %d merged", s.ItemsMerged)
	}
	return msg
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}
