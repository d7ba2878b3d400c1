package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"cart-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing cart domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishCleanupCompleted publishes a CleanupCompleted event
func (ep *EventPublisher) PublishCleanupCompleted(ctx context.Context, event *models.CleanupCompletedEvent) error {
	key := fmt.Sprintf("cart-%s", event.CartID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishCartCleared publishes a CartCleared event
func (ep *EventPublisher) PublishCartCleared(ctx context.Context, event *models.CartClearedEvent) error {
	key := fmt.Sprintf("cart-%s", event.CartID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishEmergencyReset publishes an EmergencyReset event
func (ep *EventPublisher) PublishEmergencyReset(ctx context.Context, event *models.EmergencyResetEvent) error {
	key := fmt.Sprintf("cart-%s", event.CartID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishCorruptionDetected publishes a CorruptionDetected event
func (ep *EventPublisher) PublishCorruptionDetected(ctx context.Context, event *models.CorruptionDetectedEvent) error {
	key := fmt.Sprintf("cart-%s", event.CartID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onCorruptionDetected func(context.Context, *models.CorruptionDetectedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnCorruptionDetected registers a handler for CorruptionDetected events
func (eh *EventHandler) OnCorruptionDetected(handler func(context.Context, *models.CorruptionDetectedEvent) error) {
	eh.onCorruptionDetected = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	log.Printf("Handling event: type=%s, id=%s", baseEvent.EventType, baseEvent.EventID)

	switch baseEvent.EventType {
	case models.EventTypeCorruptionDetected:
		if eh.onCorruptionDetected != nil {
			var event models.CorruptionDetectedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal CorruptionDetected event: %w", err)
			}
			return eh.onCorruptionDetected(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
