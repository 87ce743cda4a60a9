package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"rental-service/internal/models"
	"rental-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishNegotiationEvent publishes a negotiation lifecycle event. Events of
// one negotiation share a key and therefore a partition.
func (ep *EventPublisher) PublishNegotiationEvent(ctx context.Context, event *models.NegotiationEvent) error {
	key := fmt.Sprintf("negotiation-%d", event.NegotiationID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onNegotiationEvent func(context.Context, *models.NegotiationEvent) error
	logger             *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnNegotiationEvent registers a handler for every negotiation lifecycle event
func (eh *EventHandler) OnNegotiationEvent(handler func(context.Context, *models.NegotiationEvent) error) {
	eh.onNegotiationEvent = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("event_type", baseEvent.EventType),
		zap.String("event_id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeNegotiationCreated,
		models.EventTypeNegotiationDelivered,
		models.EventTypeNegotiationArchived:
		if eh.onNegotiationEvent != nil {
			var event models.NegotiationEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal %s event: %w", baseEvent.EventType, err)
			}
			return eh.onNegotiationEvent(ctx, &event)
		}

	default:
		eh.logger.Warn("Unhandled event type", zap.String("event_type", baseEvent.EventType))
	}

	return nil
}
