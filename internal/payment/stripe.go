// Package payment adapts Stripe hosted checkout to checkout.Gateway.
package payment

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-shop-checkout/internal/checkout"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

type sessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type StripeGateway struct {
	sessions sessionAPI
	currency string
}

var _ checkout.Gateway = (*StripeGateway)(nil)

func NewStripeGateway(secretKey, currency string) *StripeGateway {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &StripeGateway{sessions: sc.CheckoutSessions, currency: currency}
}

func (g *StripeGateway) CreateSession(ctx context.Context, req checkout.SessionRequest) (checkout.Session, error) {
	params := g.sessionParams(req)
	params.Context = ctx
	s, err := g.sessions.New(params)
	if err != nil {
		return checkout.Session{}, wrapErr("create session", err)
	}
	return toSession(s), nil
}

func (g *StripeGateway) GetSession(ctx context.Context, id string) (checkout.Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	s, err := g.sessions.Get(id, params)
	if err != nil {
		return checkout.Session{}, wrapErr("retrieve session", err)
	}
	return toSession(s), nil
}

func (g *StripeGateway) sessionParams(req checkout.SessionRequest) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	for _, li := range req.LineItems {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(li.Name),
		}
		// Stripe rejects empty strings here.
		if li.Description != "" {
			product.Description = stripe.String(li.Description)
		}
		if li.ImageURL != "" {
			product.Images = stripe.StringSlice([]string{li.ImageURL})
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(g.currency),
				ProductData: product,
				UnitAmount:  stripe.Int64(li.UnitAmount),
			},
			Quantity: stripe.Int64(li.Quantity),
		})
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	return params
}

func toSession(s *stripe.CheckoutSession) checkout.Session {
	return checkout.Session{
		ID:            s.ID,
		ClientSecret:  s.ClientSecret,
		URL:           s.URL,
		PaymentStatus: string(s.PaymentStatus),
		CustomerEmail: s.CustomerEmail,
		AmountTotal:   s.AmountTotal,
		Currency:      string(s.Currency),
		Metadata:      s.Metadata,
	}
}

func wrapErr(op string, err error) error {
	msg := err.Error()
	var se *stripe.Error
	if errors.As(err, &se) && se.Msg != "" {
		msg = se.Msg
	}
	return &checkout.GatewayError{Op: op, Msg: msg, Err: err}
}
