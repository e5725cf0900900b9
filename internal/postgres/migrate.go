package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied statement by statement; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id        BIGSERIAL PRIMARY KEY,
		email     TEXT NOT NULL UNIQUE,
		password  TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		role      TEXT NOT NULL DEFAULT 'customer'
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id   BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id          BIGSERIAL PRIMARY KEY,
		name        TEXT NOT NULL,
		price       BIGINT NOT NULL,
		description TEXT,
		image_url   TEXT,
		category    BIGINT REFERENCES categories(id) ON DELETE SET NULL,
		stock       BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS cart (
		id         BIGSERIAL PRIMARY KEY,
		user_id    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		quantity   BIGINT NOT NULL CHECK (quantity > 0),
		UNIQUE (user_id, product_id)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		order_id       BIGSERIAL PRIMARY KEY,
		user_id        BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		product_id     BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		quantity       BIGINT NOT NULL,
		address        TEXT NOT NULL DEFAULT '',
		session_id     TEXT,
		payment_status TEXT NOT NULL DEFAULT 'pending',
		total_amount   BIGINT NOT NULL DEFAULT 0,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS orders_user_id_idx ON orders(user_id)`,
	`CREATE TABLE IF NOT EXISTS checkout_attempts (
		session_id   TEXT PRIMARY KEY,
		user_id      BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		address      TEXT NOT NULL DEFAULT '',
		total_amount BIGINT NOT NULL DEFAULT 0,
		state        TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i, err)
		}
	}
	return nil
}
