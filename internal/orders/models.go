package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultOrderTTL is the payment window: an order not paid within it is
// eligible for cancellation by the expiry sweeper.
const DefaultOrderTTL = 30 * time.Minute

type Product struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	StockQuantity int             `json:"stock_quantity"`
	PricePerUnit  decimal.Decimal `json:"price_per_unit"`
}

type Order struct {
	ID          int64           `json:"id"`
	Items       []OrderItem     `json:"items"`
	Status      Status          `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
	ExpiresAt   time.Time       `json:"expires_at"`
}

// Expired reports whether the payment window has closed.
func (o *Order) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// OrderItem is one product+quantity entry of an order. TotalPrice is a
// snapshot taken at creation time; PricePerUnit and ProductName are joined
// in from the product row when the aggregate is materialized.
type OrderItem struct {
	ID           int64           `json:"id"`
	ProductID    int64           `json:"product_id"`
	ProductName  string          `json:"product_name"`
	Quantity     int             `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	TotalPrice   decimal.Decimal `json:"total_price"`
}

type ItemInput struct {
	ProductID int64 `json:"product_id"`
	Qty       int   `json:"qty"`
}
