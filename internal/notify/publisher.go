package notify

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ariefcatur/go-shop-checkout/internal/checkout"
	kafkax "github.com/ariefcatur/go-shop-checkout/internal/kafka"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

type producer interface {
	Publish(key, value []byte, headers ...kafkago.Header) error
}

// Publisher implements checkout.Notifier by enqueueing an OrderConfirmed
// envelope on the producer. Delivery happens in cmd/notifier.
type Publisher struct {
	producer    producer
	serviceName string
	now         func() time.Time
}

func NewPublisher(p producer, serviceName string) *Publisher {
	return &Publisher{producer: p, serviceName: serviceName, now: time.Now}
}

func (p *Publisher) OrderConfirmed(ctx context.Context, c checkout.Confirmation) error {
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventOrderConfirmed,
		EventVersion:  EventVersion,
		OccurredAt:    p.now().UTC(),
		Producer:      p.serviceName,
		TraceID:       middleware.GetReqID(ctx),
		CorrelationID: c.SessionID,
		Payload:       kafkax.MustMarshal(c),
	}
	err := p.producer.Publish(PartitionKey(c.SessionID), kafkax.MustMarshal(env),
		kafkago.Header{Key: HeaderEventType, Value: []byte(EventOrderConfirmed)},
		kafkago.Header{Key: HeaderEventVersion, Value: []byte(strconv.Itoa(EventVersion))},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", EventOrderConfirmed, err)
	}
	return nil
}
