package sanitize

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"cart-service/internal/cartstore"
	"cart-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEvents struct {
	mu        sync.Mutex
	completed []*models.CleanupCompletedEvent
	cleared   []*models.CartClearedEvent
	resets    []*models.EmergencyResetEvent
}

func (r *recordingEvents) PublishCleanupCompleted(ctx context.Context, event *models.CleanupCompletedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, event)
	return nil
}

func (r *recordingEvents) PublishCartCleared(ctx context.Context, event *models.CartClearedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleared = append(r.cleared, event)
	return nil
}

func (r *recordingEvents) PublishEmergencyReset(ctx context.Context, event *models.EmergencyResetEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resets = append(r.resets, event)
	return nil
}

type stubCatalog struct {
	products map[int64]*models.Product
	skus     map[string]*models.Product
}

func (s *stubCatalog) LookupProduct(ctx context.Context, productID int64) (*models.Product, error) {
	if p, ok := s.products[productID]; ok {
		return p, nil
	}
	return nil, errors.New("product not found")
}

func (s *stubCatalog) LookupProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	if p, ok := s.skus[sku]; ok {
		return p, nil
	}
	return nil, errors.New("product not found")
}

type recordingReports struct {
	reports []*models.CleanupReport
}

func (r *recordingReports) CreateCleanupReport(ctx context.Context, report *models.CleanupReport) error {
	r.reports = append(r.reports, report)
	return nil
}

type cleanerFixture struct {
	storage *cartstore.MemoryStorage
	events  *recordingEvents
	reports *recordingReports
	cleaner *Cleaner
}

func newCleanerFixture(catalog ProductLookup) *cleanerFixture {
	f := &cleanerFixture{
		storage: cartstore.NewMemoryStorage(),
		events:  &recordingEvents{},
		reports: &recordingReports{},
	}
	f.cleaner = NewCleaner(f.storage, catalog, f.events, f.reports)
	return f
}

func (f *cleanerFixture) storedItems(t *testing.T, cartID string) []models.CartItem {
	t.Helper()
	raw, _, err := f.storage.ReadRaw(context.Background(), cartID)
	require.NoError(t, err)
	var items []models.CartItem
	require.NoError(t, json.Unmarshal(raw, &items))
	return items
}

func TestCleanerMergesDuplicates(t *testing.T) {
	f := newCleanerFixture(nil)
	f.storage.Seed("u1", []byte(`[
		{"product_id": 1, "variant_id": null, "quantity": 2, "price": 500, "total": 1000,
		 "product": {"name": "Aloe Body Butter", "price": 500, "stock": 10}},
		{"product_id": 1, "variant_id": null, "quantity": 3, "price": 500, "total": 1500,
		 "product": {"name": "Aloe Body Butter", "price": 500, "stock": 10}}
	]`))

	summary := f.cleaner.Run(context.Background(), "u1", models.TriggerAPI)

	assert.Equal(t, models.OutcomeDone, summary.Outcome)
	assert.Equal(t, 1, summary.ItemsKept)
	assert.Equal(t, 1, summary.ItemsMerged)
	assert.Zero(t, summary.ItemsRemoved)

	items := f.storedItems(t, "u1")
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
	assert.Equal(t, 2500.0, items[0].Total)

	require.Len(t, f.events.completed, 1)
	assert.Equal(t, 1, f.events.completed[0].ItemsMerged)
}

func TestCleanerDropsUnrecoverableItem(t *testing.T) {
	f := newCleanerFixture(nil)
	f.storage.Seed("u1", []byte(`[
		{"product_id": 1, "quantity": "5e10", "price": 200, "total": 1e13}
	]`))

	summary := f.cleaner.Run(context.Background(), "u1", models.TriggerAPI)

	assert.Equal(t, models.OutcomeDone, summary.Outcome)
	assert.Equal(t, 1, summary.ItemsRemoved)
	assert.Zero(t, summary.ItemsKept)
	assert.Empty(t, f.storedItems(t, "u1"))
}

func TestCleanerClearsUnparseableBlob(t *testing.T) {
	f := newCleanerFixture(nil)
	f.storage.Seed("u1", []byte(`{{{not json`))

	summary := f.cleaner.Run(context.Background(), "u1", models.TriggerScanner)

	assert.Equal(t, models.OutcomeStorageCleared, summary.Outcome)
	raw, _, err := f.storage.ReadRaw(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, raw)

	require.Len(t, f.events.cleared, 1)
	assert.Equal(t, "u1", f.events.cleared[0].CartID)
	assert.Empty(t, f.storage.Purged())
}

func TestCleanerClearsNonArrayBlob(t *testing.T) {
	f := newCleanerFixture(nil)
	f.storage.Seed("u1", []byte(`{"items": "wat"}`))

	summary := f.cleaner.Run(context.Background(), "u1", models.TriggerAPI)

	assert.Equal(t, models.OutcomeStorageCleared, summary.Outcome)
	assert.Len(t, f.events.cleared, 1)
}

func TestCleanerIsIdempotent(t *testing.T) {
	f := newCleanerFixture(nil)
	f.storage.Seed("u1", []byte(`[
		{"product_id": 1, "quantity": 2, "price": "KSh 500", "total": 0},
		{"product_id": 1, "quantity": 3, "price": 500, "total": 1500},
		{"product_id": 2, "quantity": "5e10", "price": 10}
	]`))

	first := f.cleaner.Run(context.Background(), "u1", models.TriggerAPI)
	require.Equal(t, models.OutcomeDone, first.Outcome)
	require.True(t, first.Changed())

	second := f.cleaner.Run(context.Background(), "u1", models.TriggerAPI)
	assert.Equal(t, models.OutcomeDone, second.Outcome)
	assert.Zero(t, second.ItemsFixed)
	assert.Zero(t, second.ItemsRemoved)
	assert.Zero(t, second.ItemsMerged)
	assert.False(t, second.Changed())

	// only the first pass announced a change
	assert.Len(t, f.events.completed, 1)
}

func TestCleanerBackfillsPriceFromCatalog(t *testing.T) {
	catalog := &stubCatalog{products: map[int64]*models.Product{
		7: {ID: 7, Name: "Cocoa Scrub", Slug: "cocoa-scrub", SKU: "CS-01", Price: 19.99, Stock: 5},
	}}
	f := newCleanerFixture(catalog)
	f.storage.Seed("u1", []byte(`[{"product_id": 7, "quantity": 2, "price": 0}]`))

	summary := f.cleaner.Run(context.Background(), "u1", models.TriggerAPI)

	assert.Equal(t, models.OutcomeDone, summary.Outcome)
	assert.Equal(t, 1, summary.ItemsFixed)
	assert.Zero(t, summary.ItemsRemoved)

	items := f.storedItems(t, "u1")
	require.Len(t, items, 1)
	assert.Equal(t, 19.99, items[0].Price)
	assert.Equal(t, 39.98, items[0].Total)
	require.NotNil(t, items[0].Product)
	assert.Equal(t, "Cocoa Scrub", items[0].Product.Name)
}

func TestCleanerBackfillsPriceBySKU(t *testing.T) {
	catalog := &stubCatalog{skus: map[string]*models.Product{
		"CS-01": {ID: 12, Name: "Cocoa Scrub", SKU: "CS-01", Price: 24.5, Stock: 3},
	}}
	f := newCleanerFixture(catalog)
	f.storage.Seed("u1", []byte(`[{
		"product_id": 7, "quantity": 1, "price": "free",
		"product": {"name": "Cocoa Scrub", "sku": "CS-01", "price": 0}
	}]`))

	summary := f.cleaner.Run(context.Background(), "u1", models.TriggerAPI)

	assert.Equal(t, models.OutcomeDone, summary.Outcome)
	assert.Equal(t, 1, summary.ItemsFixed)
	assert.Zero(t, summary.ItemsRemoved)

	items := f.storedItems(t, "u1")
	require.Len(t, items, 1)
	assert.Equal(t, 24.5, items[0].Price)
}

func TestCleanerCatalogMissRemovesItem(t *testing.T) {
	f := newCleanerFixture(&stubCatalog{})
	f.storage.Seed("u1", []byte(`[{"product_id": 7, "quantity": 2, "price": 0}]`))

	summary := f.cleaner.Run(context.Background(), "u1", models.TriggerAPI)

	assert.Equal(t, models.OutcomeDone, summary.Outcome)
	assert.Equal(t, 1, summary.ItemsRemoved)
	assert.Empty(t, f.storedItems(t, "u1"))
}

func TestCleanerWriteFailureTriggersEmergencyReset(t *testing.T) {
	f := newCleanerFixture(nil)
	f.storage.Seed("u1", []byte(`[{"product_id": 1, "quantity": "2", "price": 10}]`))
	f.storage.WriteErr = errors.New("redis down")

	summary := f.cleaner.Run(context.Background(), "u1", models.TriggerConsumer)

	assert.Equal(t, models.OutcomeFailed, summary.Outcome)
	assert.Equal(t, "redis down", summary.FailReason)
	assert.Contains(t, f.storage.Purged(), "u1")
	assert.Len(t, f.events.resets, 1)
}

type panickingEvents struct {
	recordingEvents
}

func (p *panickingEvents) PublishCleanupCompleted(ctx context.Context, event *models.CleanupCompletedEvent) error {
	panic("event bus exploded")
}

func TestCleanerPanicMidPassTriggersEmergencyReset(t *testing.T) {
	f := newCleanerFixture(nil)
	events := &panickingEvents{}
	f.cleaner = NewCleaner(f.storage, nil, events, f.reports)
	f.storage.Seed("u1", []byte(`[
		{"product_id": 1, "quantity": 2, "price": 500},
		{"product_id": 1, "quantity": 3, "price": 500}
	]`))

	summary := f.cleaner.Run(context.Background(), "u1", models.TriggerAPI)

	assert.Equal(t, models.OutcomeFailed, summary.Outcome)
	assert.Contains(t, summary.FailReason, "event bus exploded")
	assert.Contains(t, f.storage.Purged(), "u1")
	require.Len(t, events.resets, 1)
	assert.Equal(t, models.EventTypeEmergencyReset, events.resets[0].EventType)
}

func TestCleanerVersionConflictSkipsWrite(t *testing.T) {
	f := newCleanerFixture(nil)
	f.storage.Seed("u1", []byte(`[{"product_id": 1, "quantity": "2", "price": 10}]`))
	f.storage.WriteErr = cartstore.ErrVersionConflict

	summary := f.cleaner.Run(context.Background(), "u1", models.TriggerAPI)

	assert.Equal(t, models.OutcomeDone, summary.Outcome)
	assert.Empty(t, f.storage.Purged())
	assert.Empty(t, f.events.resets)
	assert.Empty(t, f.events.completed)
}

func TestCleanerReadFailure(t *testing.T) {
	f := newCleanerFixture(nil)
	f.storage.ReadErr = errors.New("connection refused")

	summary := f.cleaner.Run(context.Background(), "u1", models.TriggerAPI)

	assert.Equal(t, models.OutcomeFailed, summary.Outcome)
	// a read failure is not grounds for wiping the cart
	assert.Empty(t, f.storage.Purged())
}

func TestCleanerEmptyCartIsNoOp(t *testing.T) {
	f := newCleanerFixture(nil)

	summary := f.cleaner.Run(context.Background(), "u1", models.TriggerScanner)

	assert.Equal(t, models.OutcomeDone, summary.Outcome)
	assert.False(t, summary.Changed())
	assert.Empty(t, f.events.completed)
}

func TestEmergencyReset(t *testing.T) {
	f := newCleanerFixture(nil)
	f.storage.Seed("u1", []byte(`[{"product_id": 1, "quantity": 1, "price": 10}]`))

	result := f.cleaner.EmergencyReset(context.Background(), "u1")

	assert.True(t, result.Success)
	assert.Equal(t, "u1", result.CartID)
	assert.Equal(t, 1, result.KeysCleared)
	assert.Contains(t, f.storage.Purged(), "u1")
	require.Len(t, f.events.resets, 1)
	assert.Equal(t, models.EventTypeEmergencyReset, f.events.resets[0].EventType)
}

func TestCleanerRecordsAuditReports(t *testing.T) {
	f := newCleanerFixture(nil)
	f.storage.Seed("u1", []byte(`[
		{"product_id": 1, "quantity": 2, "price": 500},
		{"product_id": 1, "quantity": 3, "price": 500}
	]`))

	f.cleaner.Run(context.Background(), "u1", models.TriggerScanner)

	require.Len(t, f.reports.reports, 1)
	report := f.reports.reports[0]
	assert.Equal(t, "u1", report.CartID)
	assert.Equal(t, string(models.OutcomeDone), report.Outcome)
	assert.Equal(t, 1, report.ItemsKept)
	assert.Equal(t, 1, report.ItemsMerged)
	assert.Equal(t, models.TriggerScanner, report.TriggeredBy)
}
