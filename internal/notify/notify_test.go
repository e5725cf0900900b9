package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-shop-checkout/internal/checkout"
	"github.com/ariefcatur/go-shop-checkout/internal/shop"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProducer struct {
	key     []byte
	value   []byte
	headers []kafkago.Header
	err     error
}

func (p *recordingProducer) Publish(key, value []byte, headers ...kafkago.Header) error {
	p.key, p.value, p.headers = key, value, headers
	return p.err
}

type memDedup struct {
	mu    sync.Mutex
	state map[string]string
}

func newMemDedup() *memDedup { return &memDedup{state: map[string]string{}} }

func (d *memDedup) Claim(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.state[id]; ok {
		return false, nil
	}
	d.state[id] = "claimed"
	return true, nil
}

func (d *memDedup) Done(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state[id] = "done"
	return nil
}

func (d *memDedup) Release(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.state, id)
	return nil
}

type sent struct{ to, subject, body string }

type flakyMailer struct {
	failures int
	calls    int
	sent     []sent
}

func (m *flakyMailer) Send(_ context.Context, to, subject, body string) error {
	m.calls++
	if m.calls <= m.failures {
		return errors.New("smtp: 421 try again")
	}
	m.sent = append(m.sent, sent{to, subject, body})
	return nil
}

func confirmation() checkout.Confirmation {
	return checkout.Confirmation{
		SessionID:   "cs_test_1",
		UserID:      7,
		Email:       "buyer@example.com",
		Address:     "1 Main St",
		TotalAmount: 25,
		Orders: []checkout.OrderLine{
			{OrderID: 11, ProductID: 1, ProductName: "Mug", Quantity: 2, TotalAmount: 20},
			{OrderID: 12, ProductID: 2, ProductName: "Pen", Quantity: 1, TotalAmount: 5},
		},
	}
}

func publish(t *testing.T, c checkout.Confirmation) kafkago.Message {
	t.Helper()
	p := &recordingProducer{}
	pub := NewPublisher(p, "shop-api")
	require.NoError(t, pub.OrderConfirmed(context.Background(), c))
	return kafkago.Message{Key: p.key, Value: p.value, Headers: p.headers}
}

func newTestWorker(d Deduper, m Mailer) *Worker {
	w := NewWorker(d, m, zerolog.Nop())
	w.backoff = time.Millisecond
	return w
}

func TestPublisher_Envelope(t *testing.T) {
	p := &recordingProducer{}
	pub := NewPublisher(p, "shop-api")
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	pub.now = func() time.Time { return fixed }

	require.NoError(t, pub.OrderConfirmed(context.Background(), confirmation()))

	assert.Equal(t, "cs_test_1", string(p.key))
	require.Len(t, p.headers, 2)
	assert.Equal(t, HeaderEventType, p.headers[0].Key)
	assert.Equal(t, EventOrderConfirmed, string(p.headers[0].Value))

	var env Envelope
	require.NoError(t, json.Unmarshal(p.value, &env))
	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, EventOrderConfirmed, env.EventType)
	assert.Equal(t, 1, env.EventVersion)
	assert.Equal(t, "shop-api", env.Producer)
	assert.Equal(t, "cs_test_1", env.CorrelationID)
	assert.True(t, fixed.Equal(env.OccurredAt))

	var got checkout.Confirmation
	require.NoError(t, json.Unmarshal(env.Payload, &got))
	assert.Equal(t, confirmation(), got)
}

func TestPublisher_HandOffFailure(t *testing.T) {
	pub := NewPublisher(&recordingProducer{err: errors.New("inbox full")}, "shop-api")
	err := pub.OrderConfirmed(context.Background(), confirmation())
	assert.ErrorContains(t, err, "inbox full")
}

func TestRenderConfirmation(t *testing.T) {
	subject, body, err := RenderConfirmation(confirmation())
	require.NoError(t, err)
	assert.Equal(t, "Payment Successful - Order Confirmation", subject)
	assert.Contains(t, body, "Order #11: Mug x 2 (20.00)")
	assert.Contains(t, body, "Order #12: Pen x 1 (5.00)")
	assert.Contains(t, body, "1 Main St")
	assert.Contains(t, body, "25.00")
}

func TestFormatAmount_MatchesGatewayCharge(t *testing.T) {
	for _, units := range []int64{0, 5, 25, 1234} {
		charged := shop.MinorUnits(units)
		assert.Equal(t, shop.FormatMinor(charged), formatAmount(units), units)
	}
	assert.Equal(t, "1234.00", formatAmount(1234))
}

func TestRenderConfirmation_EscapesAddress(t *testing.T) {
	c := confirmation()
	c.Address = "<script>x</script>"
	_, body, err := RenderConfirmation(c)
	require.NoError(t, err)
	assert.NotContains(t, body, "<script>")
}

func TestWorker_SendsOnce(t *testing.T) {
	d := newMemDedup()
	m := &flakyMailer{}
	w := newTestWorker(d, m)
	msg := publish(t, confirmation())

	require.NoError(t, w.HandleOrderConfirmed(context.Background(), msg))
	require.NoError(t, w.HandleOrderConfirmed(context.Background(), msg))

	require.Len(t, m.sent, 1)
	assert.Equal(t, "buyer@example.com", m.sent[0].to)
}

func TestWorker_RetriesTransientFailures(t *testing.T) {
	m := &flakyMailer{failures: 2}
	w := newTestWorker(newMemDedup(), m)

	require.NoError(t, w.HandleOrderConfirmed(context.Background(), publish(t, confirmation())))
	assert.Equal(t, 3, m.calls)
	assert.Len(t, m.sent, 1)
}

func TestWorker_ReleasesClaimAfterExhaustingRetries(t *testing.T) {
	d := newMemDedup()
	m := &flakyMailer{failures: 3}
	w := newTestWorker(d, m)
	msg := publish(t, confirmation())

	err := w.HandleOrderConfirmed(context.Background(), msg)
	require.Error(t, err)
	assert.Equal(t, 3, m.calls)
	assert.Empty(t, d.state)

	// redelivery gets another chance
	require.NoError(t, w.HandleOrderConfirmed(context.Background(), msg))
	assert.Len(t, m.sent, 1)
}

func TestWorker_DropsForeignAndMalformed(t *testing.T) {
	m := &flakyMailer{}
	w := newTestWorker(newMemDedup(), m)
	ctx := context.Background()

	assert.NoError(t, w.HandleOrderConfirmed(ctx, kafkago.Message{Value: []byte("{")}))

	other, err := json.Marshal(Envelope{EventID: "e1", EventType: "SomethingElse", Payload: json.RawMessage(`{}`)})
	require.NoError(t, err)
	assert.NoError(t, w.HandleOrderConfirmed(ctx, kafkago.Message{Value: other}))

	c := confirmation()
	c.Email = ""
	assert.NoError(t, w.HandleOrderConfirmed(ctx, publish(t, c)))

	assert.Zero(t, m.calls)
}
