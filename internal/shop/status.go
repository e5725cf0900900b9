package shop

import "time"

// CheckoutState tracks one checkout attempt, keyed by the gateway session id.
type CheckoutState string

const (
	StateCartValidated     CheckoutState = "CART_VALIDATED"
	StateSessionCreated    CheckoutState = "SESSION_CREATED"
	StatePaymentConfirmed  CheckoutState = "PAYMENT_CONFIRMED"
	StateOrderMaterialized CheckoutState = "ORDER_MATERIALIZED"
)

// PAYMENT_CONFIRMED may be re-entered when a materialization commit failed.
var validNext = map[CheckoutState]map[CheckoutState]bool{
	StateCartValidated:     {StateSessionCreated: true},
	StateSessionCreated:    {StatePaymentConfirmed: true},
	StatePaymentConfirmed:  {StatePaymentConfirmed: true, StateOrderMaterialized: true},
	StateOrderMaterialized: {},
}

func CanTransition(from, to CheckoutState) bool {
	return validNext[from][to]
}

type CheckoutAttempt struct {
	SessionID   string
	UserID      int64
	Address     string
	TotalAmount int64
	State       CheckoutState
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
