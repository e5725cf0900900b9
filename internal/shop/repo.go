package shop

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB is what Repo needs from a *pgxpool.Pool.
type DB interface {
	querier
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// Repo is the Postgres record store. Inside InTx the same methods run on the
// transaction instead of the pool.
type Repo struct {
	db DB
	q  querier
}

func NewRepo(db DB) *Repo {
	return &Repo{db: db, q: db}
}

func (r *Repo) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&Repo{db: r.db, q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// affectedOne maps a write that touched no row to ErrNotFound.
func affectedOne(ct pgconn.CommandTag, err error) error {
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) User(ctx context.Context, id int64) (User, error) {
	var u User
	err := r.q.QueryRow(ctx, `SELECT id, email, password, is_active, role FROM users WHERE id=$1`, id).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsActive, &u.Role)
	return u, notFound(err)
}

func (r *Repo) UserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := r.q.QueryRow(ctx, `SELECT id, email, password, is_active, role FROM users WHERE email=$1`, email).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsActive, &u.Role)
	return u, notFound(err)
}

const productColumns = `id, name, price, COALESCE(description, ''), COALESCE(image_url, ''), category, stock`

func scanProducts(rows pgx.Rows) ([]Product, error) {
	defer rows.Close()
	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Description, &p.ImageURL, &p.CategoryID, &p.Stock); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) Product(ctx context.Context, id int64) (Product, error) {
	var p Product
	err := r.q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.Name, &p.Price, &p.Description, &p.ImageURL, &p.CategoryID, &p.Stock)
	return p, notFound(err)
}

func (r *Repo) ListProducts(ctx context.Context, limit int) ([]Product, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.q.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY id LIMIT $1`, limit)
	} else {
		rows, err = r.q.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	}
	if err != nil {
		return nil, err
	}
	return scanProducts(rows)
}

func (r *Repo) ProductsInCategories(ctx context.Context, categoryIDs, excludeIDs []int64, limit int) ([]Product, error) {
	if excludeIDs == nil {
		excludeIDs = []int64{}
	}
	rows, err := r.q.Query(ctx, `SELECT `+productColumns+` FROM products
		WHERE category = ANY($1) AND NOT (id = ANY($2))
		ORDER BY id LIMIT $3`, categoryIDs, excludeIDs, limit)
	if err != nil {
		return nil, err
	}
	return scanProducts(rows)
}

func (r *Repo) CartItems(ctx context.Context, userID int64) ([]CartItem, error) {
	rows, err := r.q.Query(ctx, `SELECT id, user_id, product_id, quantity FROM cart WHERE user_id=$1 ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CartItem
	for rows.Next() {
		var c CartItem
		if err := rows.Scan(&c.ID, &c.UserID, &c.ProductID, &c.Quantity); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) AddCartItem(ctx context.Context, item CartItem) (CartItem, error) {
	err := r.q.QueryRow(ctx, `
		INSERT INTO cart(user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id) DO NOTHING
		RETURNING id`, item.UserID, item.ProductID, item.Quantity).Scan(&item.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return CartItem{}, ErrDuplicate
	}
	if pgCode(err) == pgForeignKeyViolation {
		return CartItem{}, ErrNotFound
	}
	if err != nil {
		return CartItem{}, err
	}
	return item, nil
}

func (r *Repo) RemoveCartItem(ctx context.Context, userID, itemID int64) error {
	return affectedOne(r.q.Exec(ctx, `DELETE FROM cart WHERE id=$1 AND user_id=$2`, itemID, userID))
}

func (r *Repo) DeleteCartItem(ctx context.Context, id int64) error {
	return affectedOne(r.q.Exec(ctx, `DELETE FROM cart WHERE id=$1`, id))
}

func int64Column(rows pgx.Rows, err error) ([]int64, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *Repo) PurchasedProductIDs(ctx context.Context, userID int64) ([]int64, error) {
	return int64Column(r.q.Query(ctx, `SELECT DISTINCT product_id FROM orders WHERE user_id=$1 ORDER BY product_id`, userID))
}

func (r *Repo) PurchasedCategories(ctx context.Context, userID int64) ([]int64, error) {
	return int64Column(r.q.Query(ctx, `
		SELECT DISTINCT p.category
		FROM orders o JOIN products p ON p.id = o.product_id
		WHERE o.user_id=$1 AND p.category IS NOT NULL
		ORDER BY p.category`, userID))
}

func (r *Repo) CreateOrder(ctx context.Context, o Order) (Order, error) {
	err := r.q.QueryRow(ctx, `
		INSERT INTO orders(user_id, product_id, quantity, address, session_id, payment_status, total_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING order_id, created_at`,
		o.UserID, o.ProductID, o.Quantity, o.Address, o.SessionID, string(o.PaymentStatus), o.TotalAmount,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

// AdjustStock applies delta without a floor; callers validate beforehand.
func (r *Repo) AdjustStock(ctx context.Context, productID, delta int64) error {
	return affectedOne(r.q.Exec(ctx, `UPDATE products SET stock = stock + $2 WHERE id=$1`, productID, delta))
}

func (r *Repo) CheckoutAttempt(ctx context.Context, sessionID string) (CheckoutAttempt, error) {
	var (
		a     CheckoutAttempt
		state string
	)
	err := r.q.QueryRow(ctx, `
		SELECT session_id, user_id, address, total_amount, state, created_at, updated_at
		FROM checkout_attempts WHERE session_id=$1`, sessionID).
		Scan(&a.SessionID, &a.UserID, &a.Address, &a.TotalAmount, &state, &a.CreatedAt, &a.UpdatedAt)
	a.State = CheckoutState(state)
	return a, notFound(err)
}

func (r *Repo) SaveCheckoutAttempt(ctx context.Context, a CheckoutAttempt) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO checkout_attempts(session_id, user_id, address, total_amount, state)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id) DO UPDATE
		SET state = EXCLUDED.state, updated_at = now()`,
		a.SessionID, a.UserID, a.Address, a.TotalAmount, string(a.State))
	return err
}
