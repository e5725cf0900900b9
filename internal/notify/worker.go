package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-shop-checkout/internal/checkout"
	kafkax "github.com/ariefcatur/go-shop-checkout/internal/kafka"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
)

const sendAttempts = 3

// Deduper guards against sending the same event twice across redeliveries.
type Deduper interface {
	Claim(ctx context.Context, id string) (bool, error)
	Done(ctx context.Context, id string) error
	Release(ctx context.Context, id string) error
}

type Worker struct {
	dedup   Deduper
	mailer  Mailer
	backoff time.Duration
	log     zerolog.Logger
}

func NewWorker(dedup Deduper, mailer Mailer, logger zerolog.Logger) *Worker {
	return &Worker{
		dedup:   dedup,
		mailer:  mailer,
		backoff: 2 * time.Second,
		log:     logger.With().Str("component", "notifier").Logger(),
	}
}

// HandleOrderConfirmed is installed as the consumer handler. Malformed and
// foreign events are dropped (nil) so their offsets get committed.
func (w *Worker) HandleOrderConfirmed(ctx context.Context, m kafkago.Message) error {
	var env Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		w.log.Error().Err(err).Int64("offset", m.Offset).Msg("drop undecodable envelope")
		return nil
	}
	if env.EventType != EventOrderConfirmed {
		return nil
	}
	c, err := kafkax.UnwrapPayload[checkout.Confirmation](env.Payload)
	if err != nil {
		w.log.Error().Err(err).Str("event_id", env.EventID).Msg("drop undecodable payload")
		return nil
	}
	if c.Email == "" {
		w.log.Warn().Str("event_id", env.EventID).Str("session_id", c.SessionID).Msg("no recipient, skipping")
		return nil
	}

	claimed, err := w.dedup.Claim(ctx, env.EventID)
	if err != nil {
		return fmt.Errorf("claim %s: %w", env.EventID, err)
	}
	if !claimed {
		w.log.Debug().Str("event_id", env.EventID).Msg("duplicate delivery")
		return nil
	}

	if err := w.deliver(ctx, c); err != nil {
		if rerr := w.dedup.Release(context.WithoutCancel(ctx), env.EventID); rerr != nil {
			w.log.Error().Err(rerr).Str("event_id", env.EventID).Msg("release claim")
		}
		return err
	}
	if err := w.dedup.Done(ctx, env.EventID); err != nil {
		w.log.Error().Err(err).Str("event_id", env.EventID).Msg("mark delivered")
	}
	w.log.Info().Str("event_id", env.EventID).Str("session_id", c.SessionID).Int("orders", len(c.Orders)).Msg("confirmation sent")
	return nil
}

func (w *Worker) deliver(ctx context.Context, c checkout.Confirmation) error {
	subject, body, err := RenderConfirmation(c)
	if err != nil {
		return err
	}
	var errs []error
	for attempt := 1; attempt <= sendAttempts; attempt++ {
		err := w.mailer.Send(ctx, c.Email, subject, body)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
		w.log.Warn().Err(err).Int("attempt", attempt).Str("session_id", c.SessionID).Msg("send confirmation")
		if attempt == sendAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.backoff * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("send confirmation to %s: %w", c.Email, errors.Join(errs...))
}
