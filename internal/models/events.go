package models

import (
	"time"

	"github.com/lib/pq"
)

// Event types
const (
	EventTypeNegotiationCreated   = "NEGOTIATION_CREATED"
	EventTypeNegotiationDelivered = "NEGOTIATION_DELIVERED"
	EventTypeNegotiationArchived  = "NEGOTIATION_ARCHIVED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// NegotiationEvent is published on every negotiation lifecycle transition
type NegotiationEvent struct {
	BaseEvent
	NegotiationID   int64           `json:"negotiation_id"`
	CustomerID      int64           `json:"customer_id"`
	NegotiationType NegotiationType `json:"negotiation_type"`
	UnitIDs         []int64         `json:"unit_ids"`
}

// NegotiationHistoryEntry is a recorded negotiation event
type NegotiationHistoryEntry struct {
	EventID       string        `db:"event_id" json:"eventId"`
	EventType     string        `db:"event_type" json:"eventType"`
	NegotiationID int64         `db:"negotiation_id" json:"negotiationId"`
	CustomerID    int64         `db:"customer_id" json:"customerId"`
	UnitIDs       pq.Int64Array `db:"unit_ids" json:"unitIds"`
	OccurredAt    time.Time     `db:"occurred_at" json:"occurredAt"`
	RecordedAt    time.Time     `db:"recorded_at" json:"recordedAt"`
}
