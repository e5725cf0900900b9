package notify

import (
	"encoding/json"
	"time"
)

const (
	TopicOrderConfirmed = "checkout.order.confirmed"
	EventOrderConfirmed = "OrderConfirmed"
	EventVersion        = 1

	HeaderEventType    = "x-event-type"
	HeaderEventVersion = "x-event-version"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // gateway session id
	Payload       json.RawMessage `json:"payload"`
}

// Partition by session id so redeliveries of one checkout stay ordered.
func PartitionKey(sessionID string) []byte { return []byte(sessionID) }
