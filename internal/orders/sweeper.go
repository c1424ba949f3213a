package orders

import (
	"context"
	"log"
	"time"
)

const DefaultSweepInterval = 60 * time.Second

// Lifecycle is the slice of the engine the sweeper drives.
type Lifecycle interface {
	ListOrders(ctx context.Context) ([]Order, error)
	CancelOrder(ctx context.Context, id int64) (Order, error)
}

// Sweeper periodically cancels CREATED orders past their payment deadline,
// releasing their reserved stock through the engine. Cancellation is
// idempotent, so several sweepers may run against the same store.
type Sweeper struct {
	Engine   Lifecycle
	Interval time.Duration
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one scan. Each cancellation is an independent unit of work: a
// failure is logged and does not stop the rest of the sweep.
func (s *Sweeper) Sweep(ctx context.Context) {
	all, err := s.Engine.ListOrders(ctx)
	if err != nil {
		log.Printf("sweeper: list orders: %v", err)
		return
	}
	now := time.Now().UTC()
	for _, o := range all {
		if o.Status != StatusCreated || !o.Expired(now) {
			continue
		}
		if _, err := s.Engine.CancelOrder(ctx, o.ID); err != nil {
			log.Printf("sweeper: cancel order %d: %v", o.ID, err)
			continue
		}
		log.Printf("sweeper: cancelled expired order %d", o.ID)
	}
}
