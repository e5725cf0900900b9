package shop

import (
	"context"
	"errors"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// Reader is the read side shared by the pool and an open transaction.
type Reader interface {
	User(ctx context.Context, id int64) (User, error)
	UserByEmail(ctx context.Context, email string) (User, error)
	Product(ctx context.Context, id int64) (Product, error)
	// ListProducts returns products in id order; limit <= 0 means no limit.
	ListProducts(ctx context.Context, limit int) ([]Product, error)
	CartItems(ctx context.Context, userID int64) ([]CartItem, error)
	PurchasedProductIDs(ctx context.Context, userID int64) ([]int64, error)
	PurchasedCategories(ctx context.Context, userID int64) ([]int64, error)
	ProductsInCategories(ctx context.Context, categoryIDs, excludeIDs []int64, limit int) ([]Product, error)
	CheckoutAttempt(ctx context.Context, sessionID string) (CheckoutAttempt, error)
}

// Tx is the write path used while materializing orders. Everything done
// through a Tx commits or rolls back together.
type Tx interface {
	Reader
	CreateOrder(ctx context.Context, o Order) (Order, error)
	AdjustStock(ctx context.Context, productID, delta int64) error
	DeleteCartItem(ctx context.Context, id int64) error
	SaveCheckoutAttempt(ctx context.Context, a CheckoutAttempt) error
}

type Store interface {
	Reader
	AddCartItem(ctx context.Context, item CartItem) (CartItem, error)
	RemoveCartItem(ctx context.Context, userID, itemID int64) error
	SaveCheckoutAttempt(ctx context.Context, a CheckoutAttempt) error
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Catalog is the management side: accounts, categories, products and order
// history.
type Catalog interface {
	CreateUser(ctx context.Context, u User) (User, error)

	ListCategories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, c Category) (Category, error)
	UpdateCategory(ctx context.Context, c Category) (Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	CreateProduct(ctx context.Context, p Product) (Product, error)
	UpdateProduct(ctx context.Context, p Product) (Product, error)
	// DeleteProduct also removes the product from every cart.
	DeleteProduct(ctx context.Context, id int64) error
	ProductsByCategory(ctx context.Context, categoryID int64, limit int) ([]Product, error)

	OrdersByUser(ctx context.Context, userID int64) ([]Order, error)
}
