package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jklepek/case-study/internal/postgres"
)

// Store persists order rows and their line items.
type Store struct{}

// Insert writes the order and its items, assigning identities from the
// database.
func (Store) Insert(ctx context.Context, db postgres.DBTX, o *Order) error {
	err := db.QueryRow(ctx,
		`INSERT INTO orders(total_amount, status, created_at, expires_at)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		o.TotalAmount, o.Status, o.CreatedAt, o.ExpiresAt,
	).Scan(&o.ID)
	if err != nil {
		return err
	}
	for i := range o.Items {
		it := &o.Items[i]
		err := db.QueryRow(ctx,
			`INSERT INTO order_items(order_id, product_id, quantity, total_price)
			 VALUES ($1, $2, $3, $4) RETURNING id`,
			o.ID, it.ProductID, it.Quantity, it.TotalPrice,
		).Scan(&it.ID)
		if err != nil {
			return err
		}
	}
	return nil
}

// Get reads the order aggregate under FOR SHARE, so a concurrent status
// transition cannot be observed half-applied.
func (s Store) Get(ctx context.Context, db postgres.DBTX, id int64) (Order, error) {
	return s.get(ctx, db, id, "FOR SHARE")
}

// GetForUpdate locks the order row exclusively; pay/cancel transitions of
// the same order serialize on it.
func (s Store) GetForUpdate(ctx context.Context, db postgres.DBTX, id int64) (Order, error) {
	return s.get(ctx, db, id, "FOR UPDATE")
}

func (Store) get(ctx context.Context, db postgres.DBTX, id int64, lock string) (Order, error) {
	var o Order
	err := db.QueryRow(ctx,
		`SELECT id, total_amount, status, created_at, updated_at, expires_at
		 FROM orders WHERE id=$1 `+lock,
		id,
	).Scan(&o.ID, &o.TotalAmount, &o.Status, &o.CreatedAt, &o.UpdatedAt, &o.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fmt.Errorf("%w: %d", ErrOrderNotFound, id)
	}
	if err != nil {
		return Order{}, err
	}
	items, err := loadItems(ctx, db, []int64{o.ID})
	if err != nil {
		return Order{}, err
	}
	o.Items = items[o.ID]
	return o, nil
}

// SetStatus persists the new status and stamps updated_at.
func (Store) SetStatus(ctx context.Context, db postgres.DBTX, id int64, status Status) (time.Time, error) {
	now := time.Now().UTC()
	ct, err := db.Exec(ctx,
		`UPDATE orders SET status=$2, updated_at=$3 WHERE id=$1`,
		id, status, now,
	)
	if err != nil {
		return time.Time{}, err
	}
	if ct.RowsAffected() != 1 {
		return time.Time{}, fmt.Errorf("%w: %d", ErrOrderNotFound, id)
	}
	return now, nil
}

// ListAll returns every order with its items, in insertion order.
func (Store) ListAll(ctx context.Context, db postgres.DBTX) ([]Order, error) {
	rows, err := db.Query(ctx,
		`SELECT id, total_amount, status, created_at, updated_at, expires_at
		 FROM orders ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	var ids []int64
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.TotalAmount, &o.Status, &o.CreatedAt, &o.UpdatedAt, &o.ExpiresAt); err != nil {
			return nil, err
		}
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	items, err := loadItems(ctx, db, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, nil
}

// loadItems materializes line items for the given orders, joining the
// product rows for name and current price-per-unit. The join is a LEFT JOIN:
// a product may have been deleted from the catalog once only cancelled
// orders referenced it.
func loadItems(ctx context.Context, db postgres.DBTX, orderIDs []int64) (map[int64][]OrderItem, error) {
	rows, err := db.Query(ctx,
		`SELECT oi.id, oi.order_id, oi.product_id, COALESCE(p.name, ''), oi.quantity,
		        COALESCE(p.price_per_unit, 0), oi.total_price
		 FROM order_items oi
		 LEFT JOIN products p ON p.id = oi.product_id
		 WHERE oi.order_id = ANY($1)
		 ORDER BY oi.id`,
		orderIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byOrder := make(map[int64][]OrderItem, len(orderIDs))
	for rows.Next() {
		var it OrderItem
		var orderID int64
		if err := rows.Scan(&it.ID, &orderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.PricePerUnit, &it.TotalPrice); err != nil {
			return nil, err
		}
		byOrder[orderID] = append(byOrder[orderID], it)
	}
	return byOrder, rows.Err()
}
