package worker

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"time"

	"cart-service/internal/broker"
	"cart-service/internal/models"
	"cart-service/internal/sanitize"
	"cart-service/internal/store"
	"cart-service/internal/util"

	"github.com/google/uuid"
)

// CleanupWorker consumes corruption events and runs targeted cleanups
type CleanupWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	cleaner      *sanitize.Cleaner
	store        *store.Store
}

// NewCleanupWorker creates a new cleanup worker
func NewCleanupWorker(
	consumer *broker.Consumer,
	cleaner *sanitize.Cleaner,
	st *store.Store,
) *CleanupWorker {
	w := &CleanupWorker{
		consumer: consumer,
		cleaner:  cleaner,
		store:    st,
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnCorruptionDetected(w.handleCorruptionDetected)
	w.eventHandler = eventHandler

	return w
}

func (w *CleanupWorker) handleCorruptionDetected(ctx context.Context, event *models.CorruptionDetectedEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return err
	}
	if processed {
		log.Printf("Event already processed: %s", event.EventID)
		return nil
	}

	log.Printf("Running cleanup for cart %s (source=%s)", event.CartID, event.Source)
	summary := w.cleaner.Run(ctx, event.CartID, models.TriggerConsumer)
	log.Printf("Cleanup finished: cart=%s outcome=%s fixed=%d removed=%d",
		summary.CartID, summary.Outcome, summary.ItemsFixed, summary.ItemsRemoved)

	if err := w.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		log.Printf("Failed to mark event processed: %v", err)
	}
	return nil
}

// Start starts the worker
func (w *CleanupWorker) Start(ctx context.Context) error {
	log.Println("Starting cleanup worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *CleanupWorker) Stop() error {
	log.Println("Stopping cleanup worker...")
	return w.consumer.Close()
}

// CartScanner is the storage surface the periodic scanner needs.
type CartScanner interface {
	ReadRaw(ctx context.Context, cartID string) ([]byte, int64, error)
	ActiveCartIDs(ctx context.Context) ([]string, error)
}

// CorruptionPublisher publishes detector hits for the cleanup worker.
type CorruptionPublisher interface {
	PublishCorruptionDetected(ctx context.Context, event *models.CorruptionDetectedEvent) error
}

// CacheWarmer preloads catalog entries so the cleanup pass triggered by a
// detector hit finds its backfill prices hot.
type CacheWarmer interface {
	WarmCache(ctx context.Context, productIDs []int64) error
}

// ScanWorker periodically re-checks active carts for extreme corruption,
// the service-side version of the storefront's 30-second re-check.
type ScanWorker struct {
	storage   CartScanner
	publisher CorruptionPublisher
	warmer    CacheWarmer
	interval  time.Duration
}

// NewScanWorker creates a new periodic corruption scanner. warmer may be
// nil, disabling catalog pre-warming.
func NewScanWorker(storage CartScanner, publisher CorruptionPublisher, warmer CacheWarmer, interval time.Duration) *ScanWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &ScanWorker{
		storage:   storage,
		publisher: publisher,
		warmer:    warmer,
		interval:  interval,
	}
}

// Start runs the scan loop until the context is cancelled
func (sw *ScanWorker) Start(ctx context.Context) error {
	log.Printf("Starting corruption scanner, interval=%s", sw.interval)

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Scanner context cancelled, stopping...")
			return ctx.Err()
		case <-ticker.C:
			if err := sw.ScanOnce(ctx); err != nil {
				log.Printf("Scan pass failed: %v", err)
			}
		}
	}
}

// ScanOnce runs the detector over every active cart and reports hits
func (sw *ScanWorker) ScanOnce(ctx context.Context) error {
	start := time.Now()
	defer func() {
		util.ScanLatency.Observe(time.Since(start).Seconds())
	}()

	ids, err := sw.storage.ActiveCartIDs(ctx)
	if err != nil {
		return err
	}

	for _, cartID := range ids {
		raw, _, err := sw.storage.ReadRaw(ctx, cartID)
		if err != nil {
			log.Printf("Failed to read cart %s: %v", cartID, err)
			continue
		}
		if len(raw) == 0 {
			continue
		}

		corrupt := false
		var decoded interface{}
		if err := json.Unmarshal(raw, &decoded); err != nil {
			// unparseable blobs need cleanup too
			corrupt = true
		} else {
			corrupt = sanitize.DetectExtremeCorruption(decoded)
		}
		if !corrupt {
			continue
		}

		util.CorruptionDetectedTotal.WithLabelValues(models.TriggerScanner).Inc()
		log.Printf("Corruption detected in cart %s", cartID)

		if sw.warmer != nil {
			if ids := productIDs(decoded); len(ids) > 0 {
				if err := sw.warmer.WarmCache(ctx, ids); err != nil {
					log.Printf("Failed to warm catalog cache for cart %s: %v", cartID, err)
				}
			}
		}

		event := &models.CorruptionDetectedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeCorruptionDetected,
				Timestamp: time.Now(),
			},
			CartID: cartID,
			Source: models.TriggerScanner,
		}
		if err := sw.publisher.PublishCorruptionDetected(ctx, event); err != nil {
			log.Printf("Failed to publish CorruptionDetected event: %v", err)
		}
	}

	return nil
}

// productIDs pulls the distinct product ids referenced by a decoded cart
// blob, best effort over possibly corrupt data.
func productIDs(data interface{}) []int64 {
	list, ok := data.([]interface{})
	if !ok {
		return nil
	}
	seen := make(map[int64]bool, len(list))
	var ids []int64
	for _, el := range list {
		m, ok := el.(map[string]interface{})
		if !ok {
			continue
		}
		raw, ok := m["product_id"].(float64)
		if !ok || raw <= 0 || raw != math.Trunc(raw) {
			continue
		}
		id := int64(raw)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}
