package redisx

import "time"

const (
	// Cached order aggregate for GET responses: order:{order_id} -> order JSON.
	// Decision-gating reads always go to Postgres; this only shortcuts reads.
	KeyOrder = "order:%d"
)

var TTLOrderCache = 5 * time.Minute
