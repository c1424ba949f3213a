package orders

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	kafkax "github.com/jklepek/case-study/internal/kafka"
	"github.com/jklepek/case-study/internal/postgres"
	"github.com/jklepek/case-study/internal/redisx"
)

// DB is the transactional handle the engine runs on. *pgxpool.Pool satisfies it.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type StockLedger interface {
	Reserve(ctx context.Context, db postgres.DBTX, productID int64, qty int) (Product, error)
	Release(ctx context.Context, db postgres.DBTX, productID int64, qty int) error
}

// OrderCache drops cached order aggregates after a committed transition.
// *redis.Client satisfies it; nil disables invalidation.
type OrderCache interface {
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type OrderStore interface {
	Insert(ctx context.Context, db postgres.DBTX, o *Order) error
	Get(ctx context.Context, db postgres.DBTX, id int64) (Order, error)
	GetForUpdate(ctx context.Context, db postgres.DBTX, id int64) (Order, error)
	SetStatus(ctx context.Context, db postgres.DBTX, id int64, status Status) (time.Time, error)
	ListAll(ctx context.Context, db postgres.DBTX) ([]Order, error)
}

// Service is the order lifecycle engine and the sole caller of the ledger
// and the store. Every mutation runs inside a single transaction, so partial
// work rolls back as a unit and the row locks taken by the ledger and the
// store are held until commit.
type Service struct {
	DB     DB
	Store  OrderStore
	Ledger StockLedger
	Cache  OrderCache

	// OrderTTL is the payment window; zero means DefaultOrderTTL.
	OrderTTL time.Duration

	ProducerCreated   *kafkax.Producer
	ProducerPaid      *kafkax.Producer
	ProducerCancelled *kafkax.Producer
	ServiceName       string
}

// CreateOrder reserves stock for every item, snapshots prices and persists
// the order as CREATED. All-or-nothing: if any reservation fails, the
// transaction rolls back and no stock stays reserved.
func (s *Service) CreateOrder(ctx context.Context, items []ItemInput) (Order, error) {
	if len(items) == 0 {
		return Order{}, fmt.Errorf("%w: no items", ErrInvalidInput)
	}
	for _, it := range items {
		if it.Qty <= 0 {
			return Order{}, fmt.Errorf("%w: qty must be positive for product %d", ErrInvalidInput, it.ProductID)
		}
	}

	now := time.Now().UTC()
	o := Order{
		Status:      StatusCreated,
		TotalAmount: decimal.Zero,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl()),
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Reserve in ascending product-id order so two orders touching the same
	// products cannot lock them in opposite order and deadlock. Line items
	// keep the caller's order.
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return items[idx[a]].ProductID < items[idx[b]].ProductID })

	reserved := make([]Product, len(items))
	for _, i := range idx {
		p, err := s.Ledger.Reserve(ctx, tx, items[i].ProductID, items[i].Qty)
		if err != nil {
			return Order{}, err
		}
		reserved[i] = p
	}

	for i, it := range items {
		p := reserved[i]
		line := p.PricePerUnit.Mul(decimal.NewFromInt(int64(it.Qty)))
		o.Items = append(o.Items, OrderItem{
			ProductID:    p.ID,
			ProductName:  p.Name,
			Quantity:     it.Qty,
			PricePerUnit: p.PricePerUnit,
			TotalPrice:   line,
		})
		o.TotalAmount = o.TotalAmount.Add(line)
	}

	if err := s.Store.Insert(ctx, tx, &o); err != nil {
		return Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}

	s.publish(s.ProducerCreated, EventOrderCreated, &o)
	return o, nil
}

// GetOrder materializes the order aggregate under a read lock.
func (s *Service) GetOrder(ctx context.Context, id int64) (Order, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := s.Store.Get(ctx, tx, id)
	if err != nil {
		return Order{}, err
	}
	return o, tx.Commit(ctx)
}

// PayOrder flips a CREATED order to PAID. Paying a PAID order is a no-op;
// paying past the deadline fails with ErrOrderExpired and leaves the order
// CREATED until the sweeper or an explicit cancel picks it up.
func (s *Service) PayOrder(ctx context.Context, id int64) (Order, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := s.Store.GetForUpdate(ctx, tx, id)
	if err != nil {
		return Order{}, err
	}
	if o.Status == StatusPaid {
		return o, tx.Commit(ctx)
	}
	if !CanTransition(o.Status, StatusPaid) {
		return Order{}, fmt.Errorf("%w: order %d is %s", ErrInvalidTransition, id, o.Status)
	}
	if o.Expired(time.Now().UTC()) {
		return Order{}, fmt.Errorf("%w: %d", ErrOrderExpired, id)
	}

	updated, err := s.Store.SetStatus(ctx, tx, id, StatusPaid)
	if err != nil {
		return Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}

	o.Status = StatusPaid
	o.UpdatedAt = &updated
	s.invalidate(ctx, id)
	s.publish(s.ProducerPaid, EventOrderPaid, &o)
	return o, nil
}

// CancelOrder moves an order to CANCELLED and releases its reserved stock.
// The CANCELLED no-op guard is what makes the release exactly-once: status
// check, release and status write all happen under the same order row lock.
// Cancelling a PAID order releases stock as well (product policy).
func (s *Service) CancelOrder(ctx context.Context, id int64) (Order, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := s.Store.GetForUpdate(ctx, tx, id)
	if err != nil {
		return Order{}, err
	}
	if o.Status == StatusCancelled {
		return o, tx.Commit(ctx)
	}

	// Same lock order as reservation, for the same reason.
	rel := append([]OrderItem(nil), o.Items...)
	sort.Slice(rel, func(a, b int) bool { return rel[a].ProductID < rel[b].ProductID })
	for _, it := range rel {
		if err := s.Ledger.Release(ctx, tx, it.ProductID, it.Quantity); err != nil {
			return Order{}, err
		}
	}
	updated, err := s.Store.SetStatus(ctx, tx, id, StatusCancelled)
	if err != nil {
		return Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}

	o.Status = StatusCancelled
	o.UpdatedAt = &updated
	s.invalidate(ctx, id)
	s.publish(s.ProducerCancelled, EventOrderCancelled, &o)
	return o, nil
}

// ListOrders returns every order in insertion order.
func (s *Service) ListOrders(ctx context.Context) ([]Order, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	out, err := s.Store.ListAll(ctx, tx)
	if err != nil {
		return nil, err
	}
	return out, tx.Commit(ctx)
}

func (s *Service) ttl() time.Duration {
	if s.OrderTTL > 0 {
		return s.OrderTTL
	}
	return DefaultOrderTTL
}

// invalidate drops the cached aggregate so reads cannot see the old status
// for longer than one round trip. Best effort: the cache entry expires anyway.
func (s *Service) invalidate(ctx context.Context, id int64) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Del(ctx, fmt.Sprintf(redisx.KeyOrder, id)).Err(); err != nil {
		log.Printf("cache invalidate order %d: %v", id, err)
	}
}

func (s *Service) publish(p *kafkax.Producer, eventType string, o *Order) {
	if p == nil {
		return
	}
	items := make([]EventItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, EventItem{ProductID: it.ProductID, Qty: it.Quantity})
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		CorrelationID: strconv.FormatInt(o.ID, 10),
		Payload: kafkax.MustMarshal(OrderEventPayload{
			OrderID:     o.ID,
			Status:      o.Status,
			TotalAmount: o.TotalAmount,
			Items:       items,
		}),
	}
	p.Publish(PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
