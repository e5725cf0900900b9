package checkout

import "context"

// Session payment statuses reported by the gateway.
const (
	SessionPaid   = "paid"
	SessionUnpaid = "unpaid"
)

// Session metadata keys written at creation and read back at confirmation.
const (
	MetaUserID      = "user_id"
	MetaAddress     = "address"
	MetaTotalAmount = "total_amount"
)

type LineItem struct {
	Name        string
	Description string
	ImageURL    string
	UnitAmount  int64 // minor units
	Quantity    int64
}

type SessionRequest struct {
	SuccessURL    string
	CancelURL     string
	CustomerEmail string
	LineItems     []LineItem
	Metadata      map[string]string
}

type Session struct {
	ID            string
	ClientSecret  string
	URL           string
	PaymentStatus string
	CustomerEmail string
	AmountTotal   int64
	Currency      string
	Metadata      map[string]string
}

// Gateway is the hosted payment provider.
type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (Session, error)
	GetSession(ctx context.Context, id string) (Session, error)
}

type OrderLine struct {
	OrderID     int64  `json:"order_id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int64  `json:"quantity"`
	TotalAmount int64  `json:"total_amount"`
}

type Confirmation struct {
	SessionID   string      `json:"session_id"`
	UserID      int64       `json:"user_id"`
	Email       string      `json:"email"`
	Address     string      `json:"address"`
	TotalAmount int64       `json:"total_amount"`
	Orders      []OrderLine `json:"orders"`
}

// Notifier hands a confirmation off for out-of-band delivery. It must not
// block on delivery; a returned error only means the hand-off failed.
type Notifier interface {
	OrderConfirmed(ctx context.Context, c Confirmation) error
}
