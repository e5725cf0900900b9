package shop

import (
	"context"

	"github.com/jackc/pgx/v5"
)

var _ Catalog = (*Repo)(nil)

func (r *Repo) CreateUser(ctx context.Context, u User) (User, error) {
	err := r.q.QueryRow(ctx, `
		INSERT INTO users(email, password, is_active, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id`, u.Email, u.PasswordHash, u.IsActive, u.Role).Scan(&u.ID)
	if pgCode(err) == pgUniqueViolation {
		return User{}, ErrDuplicate
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (r *Repo) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.q.Query(ctx, `SELECT id, name FROM categories ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) CreateCategory(ctx context.Context, c Category) (Category, error) {
	if err := r.q.QueryRow(ctx, `INSERT INTO categories(name) VALUES ($1) RETURNING id`, c.Name).Scan(&c.ID); err != nil {
		return Category{}, err
	}
	return c, nil
}

func (r *Repo) UpdateCategory(ctx context.Context, c Category) (Category, error) {
	if err := affectedOne(r.q.Exec(ctx, `UPDATE categories SET name=$2 WHERE id=$1`, c.ID, c.Name)); err != nil {
		return Category{}, err
	}
	return c, nil
}

// DeleteCategory leaves its products uncategorized (ON DELETE SET NULL).
func (r *Repo) DeleteCategory(ctx context.Context, id int64) error {
	return affectedOne(r.q.Exec(ctx, `DELETE FROM categories WHERE id=$1`, id))
}

func (r *Repo) CreateProduct(ctx context.Context, p Product) (Product, error) {
	err := r.q.QueryRow(ctx, `
		INSERT INTO products(name, price, description, image_url, category, stock)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`, p.Name, p.Price, p.Description, p.ImageURL, p.CategoryID, p.Stock).Scan(&p.ID)
	if pgCode(err) == pgForeignKeyViolation {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *Repo) UpdateProduct(ctx context.Context, p Product) (Product, error) {
	err := affectedOne(r.q.Exec(ctx, `
		UPDATE products
		SET name=$2, price=$3, description=$4, image_url=$5, category=$6, stock=$7
		WHERE id=$1`, p.ID, p.Name, p.Price, p.Description, p.ImageURL, p.CategoryID, p.Stock))
	if pgCode(err) == pgForeignKeyViolation {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

// DeleteProduct cascades to cart lines and orders through the schema's
// foreign keys.
func (r *Repo) DeleteProduct(ctx context.Context, id int64) error {
	return affectedOne(r.q.Exec(ctx, `DELETE FROM products WHERE id=$1`, id))
}

func (r *Repo) ProductsByCategory(ctx context.Context, categoryID int64, limit int) ([]Product, error) {
	rows, err := r.q.Query(ctx, `SELECT `+productColumns+` FROM products
		WHERE category=$1 ORDER BY id LIMIT $2`, categoryID, limit)
	if err != nil {
		return nil, err
	}
	return scanProducts(rows)
}

func (r *Repo) OrdersByUser(ctx context.Context, userID int64) ([]Order, error) {
	rows, err := r.q.Query(ctx, `
		SELECT order_id, user_id, product_id, quantity, address, COALESCE(session_id, ''),
		       payment_status, total_amount, created_at
		FROM orders WHERE user_id=$1 ORDER BY order_id`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Order, error) {
		var (
			o      Order
			status string
		)
		err := row.Scan(&o.ID, &o.UserID, &o.ProductID, &o.Quantity, &o.Address, &o.SessionID,
			&status, &o.TotalAmount, &o.CreatedAt)
		o.PaymentStatus = PaymentStatus(status)
		return o, err
	})
}
