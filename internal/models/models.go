package models

import "time"

// ProductSnapshot is the denormalized product data carried on a cart line.
// It may be absent or stale; cleanup backfills a placeholder when missing.
type ProductSnapshot struct {
	Name      string   `json:"name"`
	Slug      string   `json:"slug,omitempty"`
	SKU       string   `json:"sku,omitempty"`
	Thumbnail string   `json:"thumbnail,omitempty"`
	Images    []string `json:"images,omitempty"`
	Stock     int      `json:"stock"`
	Price     float64  `json:"price"`
}

// CartItem is a single cleaned cart line as persisted in cart storage.
type CartItem struct {
	ID        int64            `json:"id"`
	ProductID int64            `json:"product_id"`
	VariantID *int64           `json:"variant_id"`
	Quantity  int              `json:"quantity"`
	Price     float64          `json:"price"`
	Total     float64          `json:"total"`
	Product   *ProductSnapshot `json:"product,omitempty"`
}

// Product represents a catalog entry, used to backfill broken cart lines
type Product struct {
	ID        int64     `db:"id" json:"id"`
	SKU       string    `db:"sku" json:"sku"`
	Name      string    `db:"name" json:"name"`
	Slug      string    `db:"slug" json:"slug"`
	Thumbnail string    `db:"thumbnail" json:"thumbnail"`
	Price     float64   `db:"price" json:"price"`
	Stock     int       `db:"stock" json:"stock"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// IssueType classifies a problem found on a cart line.
type IssueType string

const (
	IssueCorruption      IssueType = "corruption"
	IssueMissingProduct  IssueType = "missing_product"
	IssueInvalidPrice    IssueType = "invalid_price"
	IssueInvalidQuantity IssueType = "invalid_quantity"
	IssueDuplicate       IssueType = "duplicate"
)

var validIssueTypes = []IssueType{
	IssueCorruption,
	IssueMissingProduct,
	IssueInvalidPrice,
	IssueInvalidQuantity,
	IssueDuplicate,
}

// String implements fmt.Stringer.
func (t IssueType) String() string {
	return string(t)
}

// IsValid reports whether the value is known.
func (t IssueType) IsValid() bool {
	for _, candidate := range validIssueTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// Severity of an issue. An error blocks use of the item as-is,
// a warning means the item was auto-corrected.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue describes one problem found during validation, with a
// human-readable message and a suggested action for display.
type Issue struct {
	Type      IssueType `json:"type"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	Suggested string    `json:"suggested_action,omitempty"`
}

// Outcome is the terminal state of one cleanup pass.
type Outcome string

const (
	OutcomeDone           Outcome = "done"
	OutcomeStorageCleared Outcome = "storage_cleared"
	OutcomeFailed         Outcome = "failed"
)

// Summary is the explicit result of a cleanup pass. Item-level problems
// never surface as errors; they are counted and listed here.
type Summary struct {
	CartID       string  `json:"cart_id"`
	Outcome      Outcome `json:"outcome"`
	ItemsKept    int     `json:"items_kept"`
	ItemsFixed   int     `json:"items_fixed"`
	ItemsRemoved int     `json:"items_removed"`
	ItemsMerged  int     `json:"items_merged"`
	Issues       []Issue `json:"issues,omitempty"`
	Message      string  `json:"message,omitempty"`
	FailReason   string  `json:"fail_reason,omitempty"`
}

// Changed reports whether the pass altered the stored cart.
func (s *Summary) Changed() bool {
	return s.ItemsFixed > 0 || s.ItemsRemoved > 0 || s.ItemsMerged > 0
}

// ResetResult reports an emergency reset. Success is always true once the
// pass completes; individual key failures are only logged.
type ResetResult struct {
	CartID      string    `json:"cart_id"`
	Success     bool      `json:"success"`
	KeysCleared int       `json:"keys_cleared"`
	ResetAt     time.Time `json:"reset_at"`
}

// CleanupReport is the audit row persisted after each cleanup pass.
type CleanupReport struct {
	ID           int64     `db:"id" json:"id"`
	CartID       string    `db:"cart_id" json:"cart_id"`
	Outcome      string    `db:"outcome" json:"outcome"`
	ItemsKept    int       `db:"items_kept" json:"items_kept"`
	ItemsFixed   int       `db:"items_fixed" json:"items_fixed"`
	ItemsRemoved int       `db:"items_removed" json:"items_removed"`
	ItemsMerged  int       `db:"items_merged" json:"items_merged"`
	TriggeredBy  string    `db:"triggered_by" json:"triggered_by"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Cleanup triggers
const (
	TriggerAPI      = "api"
	TriggerScanner  = "scanner"
	TriggerConsumer = "consumer"
)

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
