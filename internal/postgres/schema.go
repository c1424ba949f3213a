package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id             BIGSERIAL PRIMARY KEY,
	name           TEXT NOT NULL,
	stock_quantity INT NOT NULL CHECK (stock_quantity >= 0),
	price_per_unit NUMERIC(12,2) NOT NULL CHECK (price_per_unit >= 0)
);

CREATE TABLE IF NOT EXISTS orders (
	id           BIGSERIAL PRIMARY KEY,
	total_amount NUMERIC(12,2) NOT NULL,
	status       TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ,
	expires_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS order_items (
	id          BIGSERIAL PRIMARY KEY,
	order_id    BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	-- no FK on product_id: a product may be removed from the catalog once
	-- only cancelled orders reference it, and those line items stay
	product_id  BIGINT NOT NULL,
	quantity    INT NOT NULL CHECK (quantity > 0),
	total_price NUMERIC(12,2) NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_status_expires ON orders (status, expires_at);
CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items (order_id);
CREATE INDEX IF NOT EXISTS idx_order_items_product ON order_items (product_id);
`

// InitSchema creates the tables if they do not exist yet.
func InitSchema(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, schema)
	return err
}
