package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/ariefcatur/go-shop-checkout/internal/shop"
	"github.com/rs/zerolog"
)

const DefaultSuggestionLimit = 5

// Customer is the authenticated caller as resolved from the token subject.
type Customer struct {
	ID    int64
	Email string
	Role  string
}

type SessionInput struct {
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
	Address    string `json:"address"`
}

type SessionResult struct {
	SessionID    string `json:"session_id"`
	ClientSecret string `json:"client_secret,omitempty"`
	URL          string `json:"url,omitempty"`
	TotalAmount  int64  `json:"-"`
}

type PaymentResult struct {
	Message     string `json:"message"`
	OrdersCount int    `json:"orders_count"`
	TotalAmount int64  `json:"total_amount"`
}

type SessionDetails struct {
	SessionID     string `json:"session_id"`
	PaymentStatus string `json:"payment_status"`
	CustomerEmail string `json:"customer_email"`
	AmountTotal   int64  `json:"amount_total"`
	Currency      string `json:"currency"`
}

// Service orchestrates checkout: cart validation, gateway session creation and
// order materialization once the gateway confirms payment.
type Service struct {
	store    shop.Store
	gateway  Gateway
	notifier Notifier
	log      zerolog.Logger
}

func NewService(store shop.Store, gateway Gateway, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{
		store:    store,
		gateway:  gateway,
		notifier: notifier,
		log:      logger.With().Str("component", "checkout").Logger(),
	}
}

func requireCustomer(c Customer) error {
	if c.Role != shop.RoleCustomer {
		return ErrNotCustomer
	}
	return nil
}

// CreateSession validates the caller's cart against current stock and asks the
// gateway for a hosted payment session. Orders and cart are left untouched;
// stock is checked, not held.
func (s *Service) CreateSession(ctx context.Context, c Customer, in SessionInput) (SessionResult, error) {
	if err := requireCustomer(c); err != nil {
		return SessionResult{}, err
	}

	items, err := s.store.CartItems(ctx, c.ID)
	if err != nil {
		return SessionResult{}, fmt.Errorf("load cart: %w", err)
	}
	if len(items) == 0 {
		return SessionResult{}, ErrEmptyCart
	}

	var (
		total     int64
		lineItems = make([]LineItem, 0, len(items))
	)
	for _, it := range items {
		p, err := s.store.Product(ctx, it.ProductID)
		if errors.Is(err, shop.ErrNotFound) {
			return SessionResult{}, &ProductNotFoundError{ProductID: it.ProductID}
		}
		if err != nil {
			return SessionResult{}, fmt.Errorf("load product %d: %w", it.ProductID, err)
		}
		if p.Stock < it.Quantity {
			return SessionResult{}, &InsufficientStockError{
				ProductID: p.ID, Name: p.Name, Available: p.Stock, Requested: it.Quantity,
			}
		}
		total += p.Price * it.Quantity
		lineItems = append(lineItems, LineItem{
			Name:        p.Name,
			Description: p.Description,
			ImageURL:    p.ImageURL,
			UnitAmount:  shop.MinorUnits(p.Price),
			Quantity:    it.Quantity,
		})
	}
	attempt := shop.CheckoutAttempt{
		UserID:      c.ID,
		Address:     in.Address,
		TotalAmount: total,
		State:       shop.StateCartValidated,
	}

	sess, err := s.gateway.CreateSession(ctx, SessionRequest{
		SuccessURL:    in.SuccessURL,
		CancelURL:     in.CancelURL,
		CustomerEmail: c.Email,
		LineItems:     lineItems,
		Metadata: map[string]string{
			MetaUserID:      strconv.FormatInt(c.ID, 10),
			MetaAddress:     in.Address,
			MetaTotalAmount: strconv.FormatInt(total, 10),
		},
	})
	if err != nil {
		return SessionResult{}, gatewayError("create session", err)
	}

	// The session already exists at the gateway; confirmation adopts it from
	// gateway metadata if this record is missing.
	attempt.SessionID = sess.ID
	if err := s.advance(ctx, s.store, &attempt, shop.StateSessionCreated); err != nil {
		s.log.Warn().Err(err).Str("session_id", sess.ID).Msg("record checkout attempt")
	}

	s.log.Info().Int64("user_id", c.ID).Str("session_id", sess.ID).Int64("total", total).
		Int("lines", len(lineItems)).Msg("checkout session created")

	return SessionResult{
		SessionID:    sess.ID,
		ClientSecret: sess.ClientSecret,
		URL:          sess.URL,
		TotalAmount:  total,
	}, nil
}

// ConfirmPayment materializes one order per current cart line once the gateway
// reports the session paid. Orders, stock decrements and cart removals commit
// as one transaction; the confirmation notice is dispatched after the commit
// and its failure is only logged.
//
// The orders reflect the cart at confirmation time, not the cart the session
// was created from. Stock is not re-validated here, so concurrent checkouts
// racing for the same units can drive it negative.
func (s *Service) ConfirmPayment(ctx context.Context, c Customer, sessionID string) (PaymentResult, error) {
	if err := requireCustomer(c); err != nil {
		return PaymentResult{}, err
	}

	sess, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		return PaymentResult{}, gatewayError("retrieve session", err)
	}
	if sess.PaymentStatus != SessionPaid {
		return PaymentResult{}, ErrPaymentNotCompleted
	}
	if sess.Metadata[MetaUserID] != strconv.FormatInt(c.ID, 10) {
		return PaymentResult{}, ErrSessionOwnership
	}

	items, err := s.store.CartItems(ctx, c.ID)
	if err != nil {
		return PaymentResult{}, fmt.Errorf("load cart: %w", err)
	}
	if len(items) == 0 {
		return PaymentResult{}, ErrEmptyCart
	}

	address := sess.Metadata[MetaAddress]
	total, err := strconv.ParseInt(sess.Metadata[MetaTotalAmount], 10, 64)
	if err != nil {
		s.log.Warn().Str("session_id", sessionID).Str("total_amount", sess.Metadata[MetaTotalAmount]).
			Msg("session total is not an integer, using 0")
		total = 0
	}

	attempt, err := s.store.CheckoutAttempt(ctx, sessionID)
	switch {
	case errors.Is(err, shop.ErrNotFound):
		attempt = shop.CheckoutAttempt{
			SessionID:   sessionID,
			UserID:      c.ID,
			Address:     address,
			TotalAmount: total,
			State:       shop.StateSessionCreated,
		}
	case err != nil:
		return PaymentResult{}, fmt.Errorf("load checkout attempt: %w", err)
	}
	if err := s.advance(ctx, s.store, &attempt, shop.StatePaymentConfirmed); err != nil {
		return PaymentResult{}, err
	}

	var lines []OrderLine
	err = s.store.InTx(ctx, func(tx shop.Tx) error {
		lines = lines[:0]
		items, err := tx.CartItems(ctx, c.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}
		for _, it := range items {
			p, err := tx.Product(ctx, it.ProductID)
			if errors.Is(err, shop.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			o, err := tx.CreateOrder(ctx, shop.Order{
				UserID:        c.ID,
				ProductID:     it.ProductID,
				Quantity:      it.Quantity,
				Address:       address,
				SessionID:     sessionID,
				PaymentStatus: shop.PaymentPaid,
				TotalAmount:   p.Price * it.Quantity,
			})
			if err != nil {
				return fmt.Errorf("create order for product %d: %w", it.ProductID, err)
			}
			if err := tx.AdjustStock(ctx, it.ProductID, -it.Quantity); err != nil {
				return fmt.Errorf("decrement stock for product %d: %w", it.ProductID, err)
			}
			if err := tx.DeleteCartItem(ctx, it.ID); err != nil {
				return fmt.Errorf("remove cart item %d: %w", it.ID, err)
			}
			lines = append(lines, OrderLine{
				OrderID:     o.ID,
				ProductID:   p.ID,
				ProductName: p.Name,
				Quantity:    o.Quantity,
				TotalAmount: o.TotalAmount,
			})
		}
		return s.advance(ctx, tx, &attempt, shop.StateOrderMaterialized)
	})
	if err != nil {
		return PaymentResult{}, fmt.Errorf("materialize orders: %w", err)
	}

	s.log.Info().Int64("user_id", c.ID).Str("session_id", sessionID).Int("orders", len(lines)).
		Msg("orders materialized")

	conf := Confirmation{
		SessionID:   sessionID,
		UserID:      c.ID,
		Email:       c.Email,
		Address:     address,
		TotalAmount: total,
		Orders:      lines,
	}
	if err := s.notifier.OrderConfirmed(ctx, conf); err != nil {
		s.log.Error().Err(err).Str("session_id", sessionID).Msg("dispatch order confirmation")
	}

	return PaymentResult{
		Message:     "Payment successful and orders created",
		OrdersCount: len(lines),
		TotalAmount: total,
	}, nil
}

type attemptWriter interface {
	SaveCheckoutAttempt(ctx context.Context, a shop.CheckoutAttempt) error
}

func (s *Service) advance(ctx context.Context, w attemptWriter, a *shop.CheckoutAttempt, to shop.CheckoutState) error {
	if !shop.CanTransition(a.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.State, to)
	}
	next := *a
	next.State = to
	if err := w.SaveCheckoutAttempt(ctx, next); err != nil {
		return fmt.Errorf("save checkout attempt: %w", err)
	}
	*a = next
	return nil
}

// SessionDetails reads the gateway's view of a session; no local state is touched.
func (s *Service) SessionDetails(ctx context.Context, c Customer, sessionID string) (SessionDetails, error) {
	if err := requireCustomer(c); err != nil {
		return SessionDetails{}, err
	}
	sess, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		return SessionDetails{}, gatewayError("retrieve session", err)
	}
	return SessionDetails{
		SessionID:     sess.ID,
		PaymentStatus: sess.PaymentStatus,
		CustomerEmail: sess.CustomerEmail,
		AmountTotal:   sess.AmountTotal,
		Currency:      sess.Currency,
	}, nil
}
