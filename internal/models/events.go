package models

import "time"

// Event types
const (
	EventTypeCleanupCompleted   = "CART_CLEANUP_COMPLETED"
	EventTypeCartCleared        = "CART_CLEARED"
	EventTypeEmergencyReset     = "CART_EMERGENCY_RESET"
	EventTypeCorruptionDetected = "CART_CORRUPTION_DETECTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// CleanupCompletedEvent published after a pass that fixed, removed or
// merged anything; carries the toast summary for the storefront.
type CleanupCompletedEvent struct {
	BaseEvent
	CartID       string `json:"cart_id"`
	Message      string `json:"message"`
	ItemsFixed   int    `json:"items_fixed"`
	ItemsRemoved int    `json:"items_removed"`
	ItemsMerged  int    `json:"items_merged"`
}

// CartClearedEvent published when an unparseable blob forced removal of
// the cart items key.
type CartClearedEvent struct {
	BaseEvent
	CartID string `json:"cart_id"`
	Reason string `json:"reason"`
}

// EmergencyResetEvent published after all known cart keys were wiped.
type EmergencyResetEvent struct {
	BaseEvent
	CartID  string    `json:"cart_id"`
	Message string    `json:"message"`
	ResetAt time.Time `json:"reset_at"`
}

// CorruptionDetectedEvent consumed to trigger a targeted cleanup.
// Published by the scanner and by the storefront backend.
type CorruptionDetectedEvent struct {
	BaseEvent
	CartID string `json:"cart_id"`
	Source string `json:"source"`
}
