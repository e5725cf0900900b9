package checkout_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ariefcatur/go-shop-checkout/internal/checkout"
	"github.com/ariefcatur/go-shop-checkout/internal/checkout/checkouttest"
	"github.com/ariefcatur/go-shop-checkout/internal/shop"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store    *checkouttest.MemStore
	gateway  *checkouttest.Gateway
	notifier *checkouttest.Notifier
	svc      *checkout.Service
	customer checkout.Customer
	productA shop.Product
	productB shop.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    checkouttest.NewMemStore(),
		gateway:  checkouttest.NewGateway(),
		notifier: &checkouttest.Notifier{},
	}
	f.svc = checkout.NewService(f.store, f.gateway, f.notifier, zerolog.Nop())

	u := f.store.AddUser(shop.User{Email: "ana@example.com", Role: shop.RoleCustomer, IsActive: true})
	f.customer = checkout.Customer{ID: u.ID, Email: u.Email, Role: u.Role}
	f.productA = f.store.PutProduct(shop.Product{Name: "Kettle", Price: 10, Stock: 5})
	f.productB = f.store.PutProduct(shop.Product{Name: "Mug", Price: 5, Stock: 5})
	return f
}

func (f *fixture) addToCart(t *testing.T, userID, productID, qty int64) shop.CartItem {
	t.Helper()
	item, err := f.store.AddCartItem(context.Background(), shop.CartItem{UserID: userID, ProductID: productID, Quantity: qty})
	require.NoError(t, err)
	return item
}

// fillCart puts A x2 and B x1 in the customer's cart.
func (f *fixture) fillCart(t *testing.T) {
	f.addToCart(t, f.customer.ID, f.productA.ID, 2)
	f.addToCart(t, f.customer.ID, f.productB.ID, 1)
}

func (f *fixture) paidSession(t *testing.T) string {
	t.Helper()
	res, err := f.svc.CreateSession(context.Background(), f.customer, checkout.SessionInput{
		SuccessURL: "https://shop.test/ok",
		CancelURL:  "https://shop.test/cancel",
		Address:    "1 Main St",
	})
	require.NoError(t, err)
	f.gateway.MarkPaid(res.SessionID)
	return res.SessionID
}

func (f *fixture) cartLen(t *testing.T, userID int64) int {
	t.Helper()
	items, err := f.store.CartItems(context.Background(), userID)
	require.NoError(t, err)
	return len(items)
}

func TestCreateSession_TotalsCartLines(t *testing.T) {
	f := newFixture(t)
	f.store.PutProduct(shop.Product{Name: "Unrelated", Price: 999, Stock: 1})
	f.fillCart(t)

	res, err := f.svc.CreateSession(context.Background(), f.customer, checkout.SessionInput{
		SuccessURL: "https://shop.test/ok",
		CancelURL:  "https://shop.test/cancel",
		Address:    "1 Main St",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(25), res.TotalAmount)
	assert.NotEmpty(t, res.SessionID)
	assert.NotEmpty(t, res.URL)

	require.Len(t, f.gateway.Requests, 1)
	req := f.gateway.Requests[0]
	require.Len(t, req.LineItems, 2)
	assert.Equal(t, int64(1000), req.LineItems[0].UnitAmount)
	assert.Equal(t, int64(2), req.LineItems[0].Quantity)
	assert.Equal(t, int64(500), req.LineItems[1].UnitAmount)
	assert.Equal(t, "ana@example.com", req.CustomerEmail)
	assert.Equal(t, "25", req.Metadata[checkout.MetaTotalAmount])
	assert.Equal(t, "1 Main St", req.Metadata[checkout.MetaAddress])

	// read-and-delegate only
	assert.Empty(t, f.store.Orders())
	assert.Equal(t, 2, f.cartLen(t, f.customer.ID))
	assert.Equal(t, int64(5), f.store.Stock(f.productA.ID))

	a, ok := f.store.Attempt(res.SessionID)
	require.True(t, ok)
	assert.Equal(t, shop.StateSessionCreated, a.State)
	assert.Equal(t, int64(25), a.TotalAmount)
}

func TestCreateSession_EmptyCart(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateSession(context.Background(), f.customer, checkout.SessionInput{})
	assert.ErrorIs(t, err, checkout.ErrEmptyCart)
	assert.Empty(t, f.gateway.Requests)
}

func TestCreateSession_ProductNotFound(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t)
	f.store.DropProduct(f.productB.ID)

	_, err := f.svc.CreateSession(context.Background(), f.customer, checkout.SessionInput{})
	require.ErrorIs(t, err, checkout.ErrProductNotFound)
	var pnf *checkout.ProductNotFoundError
	require.ErrorAs(t, err, &pnf)
	assert.Equal(t, f.productB.ID, pnf.ProductID)
}

func TestCreateSession_InsufficientStock(t *testing.T) {
	f := newFixture(t)
	f.addToCart(t, f.customer.ID, f.productB.ID, 1)
	f.addToCart(t, f.customer.ID, f.productA.ID, 6)

	_, err := f.svc.CreateSession(context.Background(), f.customer, checkout.SessionInput{})
	require.ErrorIs(t, err, checkout.ErrInsufficientStock)
	var ise *checkout.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, "Kettle", ise.Name)
	assert.Equal(t, int64(5), ise.Available)
	assert.Equal(t, int64(6), ise.Requested)
	assert.Contains(t, err.Error(), "Kettle")

	assert.Empty(t, f.gateway.Requests)
	assert.Equal(t, int64(5), f.store.Stock(f.productA.ID))
	assert.Equal(t, 2, f.cartLen(t, f.customer.ID))
}

func TestCreateSession_GatewayError(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t)
	f.gateway.Err = errors.New("api key expired")

	_, err := f.svc.CreateSession(context.Background(), f.customer, checkout.SessionInput{})
	require.ErrorIs(t, err, checkout.ErrGateway)
	assert.Contains(t, err.Error(), "api key expired")
}

func TestCreateSession_AttemptRecordFailureKeepsSession(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t)
	f.store.FailAfter("SaveCheckoutAttempt", 0, errors.New("disk full"))

	res, err := f.svc.CreateSession(context.Background(), f.customer, checkout.SessionInput{Address: "1 Main St"})
	require.NoError(t, err)
	_, ok := f.store.Attempt(res.SessionID)
	assert.False(t, ok)

	// confirmation adopts the session from gateway metadata
	f.store.ClearFaults()
	f.gateway.MarkPaid(res.SessionID)
	_, err = f.svc.ConfirmPayment(context.Background(), f.customer, res.SessionID)
	require.NoError(t, err)
	a, ok := f.store.Attempt(res.SessionID)
	require.True(t, ok)
	assert.Equal(t, shop.StateOrderMaterialized, a.State)
	assert.Equal(t, "1 Main St", a.Address)
}

func TestOperations_RequireCustomerRole(t *testing.T) {
	f := newFixture(t)
	admin := checkout.Customer{ID: f.customer.ID, Email: f.customer.Email, Role: shop.RoleAdmin}
	ctx := context.Background()

	_, err := f.svc.CreateSession(ctx, admin, checkout.SessionInput{})
	assert.ErrorIs(t, err, checkout.ErrNotCustomer)
	_, err = f.svc.ConfirmPayment(ctx, admin, "cs_x")
	assert.ErrorIs(t, err, checkout.ErrNotCustomer)
	_, err = f.svc.Suggestions(ctx, admin, 5)
	assert.ErrorIs(t, err, checkout.ErrNotCustomer)
	_, err = f.svc.SessionDetails(ctx, admin, "cs_x")
	assert.ErrorIs(t, err, checkout.ErrNotCustomer)
}

func TestConfirmPayment_Materializes(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t)
	sid := f.paidSession(t)

	res, err := f.svc.ConfirmPayment(context.Background(), f.customer, sid)
	require.NoError(t, err)
	assert.Equal(t, 2, res.OrdersCount)
	assert.Equal(t, int64(25), res.TotalAmount)

	assert.Equal(t, int64(3), f.store.Stock(f.productA.ID))
	assert.Equal(t, int64(4), f.store.Stock(f.productB.ID))
	assert.Zero(t, f.cartLen(t, f.customer.ID))

	orders := f.store.Orders()
	require.Len(t, orders, 2)
	assert.Equal(t, int64(20), orders[0].TotalAmount)
	assert.Equal(t, int64(5), orders[1].TotalAmount)
	for _, o := range orders {
		assert.Equal(t, shop.PaymentPaid, o.PaymentStatus)
		assert.Equal(t, sid, o.SessionID)
		assert.Equal(t, "1 Main St", o.Address)
	}

	sent := f.notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "ana@example.com", sent[0].Email)
	assert.Equal(t, int64(25), sent[0].TotalAmount)
	require.Len(t, sent[0].Orders, 2)
	assert.Equal(t, "Kettle", sent[0].Orders[0].ProductName)

	a, ok := f.store.Attempt(sid)
	require.True(t, ok)
	assert.Equal(t, shop.StateOrderMaterialized, a.State)
}

func TestConfirmPayment_NotPaid(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t)
	res, err := f.svc.CreateSession(context.Background(), f.customer, checkout.SessionInput{Address: "x"})
	require.NoError(t, err)

	_, err = f.svc.ConfirmPayment(context.Background(), f.customer, res.SessionID)
	require.ErrorIs(t, err, checkout.ErrPaymentNotCompleted)
	assert.Empty(t, f.store.Orders())
	assert.Equal(t, 2, f.cartLen(t, f.customer.ID))
	assert.Equal(t, int64(5), f.store.Stock(f.productA.ID))
}

func TestConfirmPayment_TwiceFailsWithEmptyCart(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t)
	sid := f.paidSession(t)
	ctx := context.Background()

	_, err := f.svc.ConfirmPayment(ctx, f.customer, sid)
	require.NoError(t, err)
	_, err = f.svc.ConfirmPayment(ctx, f.customer, sid)
	require.ErrorIs(t, err, checkout.ErrEmptyCart)

	assert.Equal(t, int64(3), f.store.Stock(f.productA.ID))
	assert.Equal(t, int64(4), f.store.Stock(f.productB.ID))
	assert.Len(t, f.store.Orders(), 2)
	assert.Len(t, f.notifier.Sent(), 1)
}

func TestConfirmPayment_OwnershipMismatch(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t)
	sid := f.paidSession(t)

	other := f.store.AddUser(shop.User{Email: "eve@example.com", Role: shop.RoleCustomer})
	f.addToCart(t, other.ID, f.productA.ID, 1)
	intruder := checkout.Customer{ID: other.ID, Email: other.Email, Role: other.Role}

	_, err := f.svc.ConfirmPayment(context.Background(), intruder, sid)
	require.ErrorIs(t, err, checkout.ErrSessionOwnership)
	assert.Empty(t, f.store.Orders())
	assert.Equal(t, int64(5), f.store.Stock(f.productA.ID))
	assert.Equal(t, 1, f.cartLen(t, other.ID))
	assert.Equal(t, 2, f.cartLen(t, f.customer.ID))
}

func TestConfirmPayment_StoreFailureRollsBackEverything(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t)
	sid := f.paidSession(t)
	boom := errors.New("connection reset")
	f.store.FailAfter("AdjustStock", 1, boom)

	_, err := f.svc.ConfirmPayment(context.Background(), f.customer, sid)
	require.ErrorIs(t, err, boom)

	assert.Empty(t, f.store.Orders())
	assert.Equal(t, int64(5), f.store.Stock(f.productA.ID))
	assert.Equal(t, int64(5), f.store.Stock(f.productB.ID))
	assert.Equal(t, 2, f.cartLen(t, f.customer.ID))
	assert.Empty(t, f.notifier.Sent())

	a, ok := f.store.Attempt(sid)
	require.True(t, ok)
	assert.Equal(t, shop.StatePaymentConfirmed, a.State)

	// a paid-but-not-materialized attempt can be confirmed again
	f.store.ClearFaults()
	res, err := f.svc.ConfirmPayment(context.Background(), f.customer, sid)
	require.NoError(t, err)
	assert.Equal(t, 2, res.OrdersCount)
	assert.Equal(t, int64(3), f.store.Stock(f.productA.ID))
}

func TestConfirmPayment_NotifierFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t)
	sid := f.paidSession(t)
	f.notifier.Err = errors.New("broker down")

	res, err := f.svc.ConfirmPayment(context.Background(), f.customer, sid)
	require.NoError(t, err)
	assert.Equal(t, 2, res.OrdersCount)
	assert.Len(t, f.store.Orders(), 2)
}

func TestConfirmPayment_UsesCartAtConfirmationTime(t *testing.T) {
	f := newFixture(t)
	f.addToCart(t, f.customer.ID, f.productA.ID, 1)
	sid := f.paidSession(t)
	f.addToCart(t, f.customer.ID, f.productB.ID, 3)

	res, err := f.svc.ConfirmPayment(context.Background(), f.customer, sid)
	require.NoError(t, err)
	assert.Equal(t, 2, res.OrdersCount)
	assert.Equal(t, int64(10), res.TotalAmount, "reported total comes from the session")
	assert.Equal(t, int64(2), f.store.Stock(f.productB.ID))
}

func TestConfirmPayment_RefilledCartAfterMaterialization(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t)
	sid := f.paidSession(t)
	ctx := context.Background()

	_, err := f.svc.ConfirmPayment(ctx, f.customer, sid)
	require.NoError(t, err)

	f.addToCart(t, f.customer.ID, f.productA.ID, 1)
	_, err = f.svc.ConfirmPayment(ctx, f.customer, sid)
	require.ErrorIs(t, err, checkout.ErrInvalidTransition)
	assert.Len(t, f.store.Orders(), 2)
	assert.Equal(t, int64(3), f.store.Stock(f.productA.ID))
}

func TestConfirmPayment_AdoptsUnknownSession(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t)
	f.gateway.Put(checkout.Session{
		ID:            "cs_external",
		PaymentStatus: checkout.SessionPaid,
		Metadata: map[string]string{
			checkout.MetaUserID:      "1",
			checkout.MetaAddress:     "2 Side St",
			checkout.MetaTotalAmount: "25",
		},
	})

	res, err := f.svc.ConfirmPayment(context.Background(), f.customer, "cs_external")
	require.NoError(t, err)
	assert.Equal(t, 2, res.OrdersCount)

	a, ok := f.store.Attempt("cs_external")
	require.True(t, ok)
	assert.Equal(t, shop.StateOrderMaterialized, a.State)
	assert.Equal(t, "2 Side St", a.Address)
}

func TestConfirmPayment_UnknownSessionIsGatewayError(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t)

	_, err := f.svc.ConfirmPayment(context.Background(), f.customer, "cs_missing")
	require.ErrorIs(t, err, checkout.ErrGateway)
	assert.Contains(t, err.Error(), "No such checkout.session")
}

func TestSessionDetails_Passthrough(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t)
	sid := f.paidSession(t)

	d, err := f.svc.SessionDetails(context.Background(), f.customer, sid)
	require.NoError(t, err)
	assert.Equal(t, sid, d.SessionID)
	assert.Equal(t, checkout.SessionPaid, d.PaymentStatus)
	assert.Equal(t, "ana@example.com", d.CustomerEmail)
	assert.Equal(t, int64(2500), d.AmountTotal)
	assert.Equal(t, "usd", d.Currency)
}
