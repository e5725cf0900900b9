package shop

import "time"

const (
	RoleCustomer = "customer"
	RoleSeller   = "seller"
	RoleAdmin    = "admin"
)

// CanManageCatalog reports whether role may write products and categories.
func CanManageCatalog(role string) bool {
	return role == RoleSeller || role == RoleAdmin
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

type User struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	IsActive     bool   `json:"is_active"`
	Role         string `json:"role"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Product struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Price       int64  `json:"price"` // whole currency units
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	CategoryID  *int64 `json:"category"` // nil when the category was deleted
	Stock       int64  `json:"stock"`
}

type CartItem struct {
	ID        int64 `json:"id"`
	UserID    int64 `json:"user_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type Order struct {
	ID            int64         `json:"order_id"`
	UserID        int64         `json:"user_id"`
	ProductID     int64         `json:"product_id"`
	Quantity      int64         `json:"quantity"`
	Address       string        `json:"address"`
	SessionID     string        `json:"session_id"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	TotalAmount   int64         `json:"total_amount"`
	CreatedAt     time.Time     `json:"created_at"`
}
