package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jklepek/case-study/internal/postgres"
)

// Ledger owns the per-product stock counters. Every read-for-mutation locks
// the product row with FOR UPDATE, so concurrent reservations against the
// same product serialize inside their enclosing transactions instead of
// racing on a stale read.
type Ledger struct{}

// Reserve decrements stock by qty if enough is available. It must run inside
// the transaction that creates the order, so a later failure rolls the
// decrement back. The locked product row is returned so the caller can
// snapshot name and price for the line item.
func (Ledger) Reserve(ctx context.Context, db postgres.DBTX, productID int64, qty int) (Product, error) {
	var p Product
	err := db.QueryRow(ctx,
		`SELECT id, name, stock_quantity, price_per_unit FROM products WHERE id=$1 FOR UPDATE`,
		productID,
	).Scan(&p.ID, &p.Name, &p.StockQuantity, &p.PricePerUnit)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("%w: %d", ErrProductNotFound, productID)
	}
	if err != nil {
		return Product{}, err
	}
	if p.StockQuantity < qty {
		return Product{}, fmt.Errorf("%w for product %q: have %d, want %d",
			ErrInsufficientStock, p.Name, p.StockQuantity, qty)
	}
	if _, err := db.Exec(ctx,
		`UPDATE products SET stock_quantity = stock_quantity - $2 WHERE id=$1`,
		productID, qty,
	); err != nil {
		return Product{}, err
	}
	p.StockQuantity -= qty
	return p, nil
}

// Release is a blind increment. At-most-once per reservation is the caller's
// responsibility: the lifecycle engine only releases on the first transition
// to CANCELLED.
func (Ledger) Release(ctx context.Context, db postgres.DBTX, productID int64, qty int) error {
	ct, err := db.Exec(ctx,
		`UPDATE products SET stock_quantity = stock_quantity + $2 WHERE id=$1`,
		productID, qty,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("%w: %d", ErrProductNotFound, productID)
	}
	return nil
}
