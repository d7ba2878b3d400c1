package store

import (
	"context"

	"cart-service/internal/models"
)

// CreateCleanupReport inserts an audit row for a cleanup pass
func (s *Store) CreateCleanupReport(ctx context.Context, report *models.CleanupReport) error {
	query := `
		INSERT INTO cleanup_reports (cart_id, outcome, items_kept, items_fixed, items_removed, items_merged, triggered_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, report, query,
		report.CartID, report.Outcome, report.ItemsKept, report.ItemsFixed,
		report.ItemsRemoved, report.ItemsMerged, report.TriggeredBy)
}

// GetCleanupReportsByCartID retrieves cleanup history for a cart
func (s *Store) GetCleanupReportsByCartID(ctx context.Context, cartID string, limit int) ([]models.CleanupReport, error) {
	if limit <= 0 {
		limit = 50
	}
	var reports []models.CleanupReport
	err := s.db.SelectContext(ctx, &reports,
		"SELECT * FROM cleanup_reports WHERE cart_id = $1 ORDER BY created_at DESC LIMIT $2",
		cartID, limit)
	return reports, err
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
