package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jklepek/case-study/internal/orders"
	"github.com/jklepek/case-study/internal/postgres"
)

// ErrProductInUse means the product is still referenced by a line item of a
// non-cancelled order and must not be deleted.
var ErrProductInUse = errors.New("product has active orders")

// DB is the pool surface the repo needs; *pgxpool.Pool satisfies it.
type DB interface {
	postgres.DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repo is the product catalog: plain CRUD plus the delete guard. Stock
// reservation and release never go through here; that is the ledger's job.
type Repo struct {
	DB DB
}

func (r *Repo) Create(ctx context.Context, p orders.Product) (orders.Product, error) {
	if p.StockQuantity < 0 || p.PricePerUnit.IsNegative() {
		return orders.Product{}, errors.New("stock and price must not be negative")
	}
	err := r.DB.QueryRow(ctx,
		`INSERT INTO products(name, stock_quantity, price_per_unit)
		 VALUES ($1, $2, $3) RETURNING id`,
		p.Name, p.StockQuantity, p.PricePerUnit,
	).Scan(&p.ID)
	if err != nil {
		return orders.Product{}, err
	}
	return p, nil
}

func (r *Repo) Update(ctx context.Context, p orders.Product) (orders.Product, error) {
	ct, err := r.DB.Exec(ctx,
		`UPDATE products SET name=$2, stock_quantity=$3, price_per_unit=$4 WHERE id=$1`,
		p.ID, p.Name, p.StockQuantity, p.PricePerUnit,
	)
	if err != nil {
		return orders.Product{}, err
	}
	if ct.RowsAffected() != 1 {
		return orders.Product{}, fmt.Errorf("%w: %d", orders.ErrProductNotFound, p.ID)
	}
	return p, nil
}

func (r *Repo) List(ctx context.Context) ([]orders.Product, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, name, stock_quantity, price_per_unit FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.Product
	for rows.Next() {
		var p orders.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.StockQuantity, &p.PricePerUnit); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Delete removes a product unless a non-cancelled order still references it.
// It locks the product row before checking: stock reservation takes the same
// row lock, so a concurrent order creation either commits its line items
// before the guard reads, or waits until the delete finishes.
func (r *Repo) Delete(ctx context.Context, id int64) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var locked int64
	err = tx.QueryRow(ctx, `SELECT id FROM products WHERE id=$1 FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %d", orders.ErrProductNotFound, id)
	}
	if err != nil {
		return err
	}

	var inUse bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM order_items oi
			JOIN orders o ON o.id = oi.order_id
			WHERE oi.product_id = $1 AND o.status <> $2
		)`,
		id, orders.StatusCancelled,
	).Scan(&inUse)
	if err != nil {
		return err
	}
	if inUse {
		return fmt.Errorf("%w: %d", ErrProductInUse, id)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM products WHERE id=$1`, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
