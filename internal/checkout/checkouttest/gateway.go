package checkouttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/ariefcatur/go-shop-checkout/internal/checkout"
)

// Gateway is an in-memory hosted payment provider. Sessions start unpaid.
type Gateway struct {
	mu       sync.Mutex
	n        int
	sessions map[string]checkout.Session
	Requests []checkout.SessionRequest
	// Err, when set, fails every call with a provider error.
	Err error
}

var _ checkout.Gateway = (*Gateway)(nil)

func NewGateway() *Gateway {
	return &Gateway{sessions: map[string]checkout.Session{}}
}

func (g *Gateway) CreateSession(_ context.Context, req checkout.SessionRequest) (checkout.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return checkout.Session{}, g.Err
	}
	g.Requests = append(g.Requests, req)
	g.n++

	var amount int64
	for _, li := range req.LineItems {
		amount += li.UnitAmount * li.Quantity
	}
	meta := make(map[string]string, len(req.Metadata))
	for k, v := range req.Metadata {
		meta[k] = v
	}
	s := checkout.Session{
		ID:            fmt.Sprintf("cs_test_%d", g.n),
		ClientSecret:  fmt.Sprintf("cs_test_%d_secret", g.n),
		URL:           fmt.Sprintf("https://pay.example.test/c/cs_test_%d", g.n),
		PaymentStatus: checkout.SessionUnpaid,
		CustomerEmail: req.CustomerEmail,
		AmountTotal:   amount,
		Currency:      "usd",
		Metadata:      meta,
	}
	g.sessions[s.ID] = s
	return s, nil
}

func (g *Gateway) GetSession(_ context.Context, id string) (checkout.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return checkout.Session{}, g.Err
	}
	s, ok := g.sessions[id]
	if !ok {
		return checkout.Session{}, &checkout.GatewayError{Msg: "No such checkout.session: " + id}
	}
	return s, nil
}

// Put stores or replaces a session as the provider would report it.
func (g *Gateway) Put(s checkout.Session) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[s.ID] = s
}

func (g *Gateway) MarkPaid(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := g.sessions[id]
	s.PaymentStatus = checkout.SessionPaid
	g.sessions[id] = s
}

// Notifier records confirmations instead of delivering them.
type Notifier struct {
	mu   sync.Mutex
	sent []checkout.Confirmation
	Err  error
}

var _ checkout.Notifier = (*Notifier)(nil)

func (n *Notifier) OrderConfirmed(_ context.Context, c checkout.Confirmation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.sent = append(n.sent, c)
	return nil
}

func (n *Notifier) Sent() []checkout.Confirmation {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]checkout.Confirmation(nil), n.sent...)
}
