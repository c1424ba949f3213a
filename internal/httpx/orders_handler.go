package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/jklepek/case-study/internal/catalog"
	"github.com/jklepek/case-study/internal/orders"
	"github.com/jklepek/case-study/internal/redisx"
)

// OrderEngine is the lifecycle surface the handler needs.
type OrderEngine interface {
	CreateOrder(ctx context.Context, items []orders.ItemInput) (orders.Order, error)
	GetOrder(ctx context.Context, id int64) (orders.Order, error)
	PayOrder(ctx context.Context, id int64) (orders.Order, error)
	CancelOrder(ctx context.Context, id int64) (orders.Order, error)
	ListOrders(ctx context.Context) ([]orders.Order, error)
}

type OrdersHandler struct {
	Engine OrderEngine
	Redis  *redis.Client // optional read cache for GET responses
}

type CreateOrderReq struct {
	Items []orders.ItemInput `json:"items"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Put("/{id}/pay", h.pay)
		r.Put("/{id}/cancel", h.cancel)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, orders.ErrOrderNotFound), errors.Is(err, orders.ErrProductNotFound):
		code = http.StatusNotFound
	case errors.Is(err, orders.ErrInsufficientStock),
		errors.Is(err, orders.ErrInvalidTransition),
		errors.Is(err, catalog.ErrProductInUse):
		code = http.StatusConflict
	case errors.Is(err, orders.ErrOrderExpired):
		code = http.StatusGone
	case errors.Is(err, orders.ErrInvalidInput):
		code = http.StatusBadRequest
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func orderID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Engine.CreateOrder(ctx, req.Items)
	if err != nil {
		writeError(w, err)
		return
	}
	h.cacheSet(ctx, &o)
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := orderID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if b, ok := h.cacheGet(ctx, id); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
		return
	}

	o, err := h.Engine.GetOrder(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	h.cacheSet(ctx, &o)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) pay(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Engine.PayOrder)
}

func (h *OrdersHandler) cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Engine.CancelOrder)
}

func (h *OrdersHandler) transition(w http.ResponseWriter, r *http.Request, op func(context.Context, int64) (orders.Order, error)) {
	id, err := orderID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := op(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	h.cacheSet(ctx, &o)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	out, err := h.Engine.ListOrders(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	if out == nil {
		out = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) cacheSet(ctx context.Context, o *orders.Order) {
	if h.Redis == nil {
		return
	}
	b, err := json.Marshal(o)
	if err != nil {
		return
	}
	_ = h.Redis.Set(ctx, fmt.Sprintf(redisx.KeyOrder, o.ID), b, redisx.TTLOrderCache).Err()
}

func (h *OrdersHandler) cacheGet(ctx context.Context, id int64) ([]byte, bool) {
	if h.Redis == nil {
		return nil, false
	}
	s, err := h.Redis.Get(ctx, fmt.Sprintf(redisx.KeyOrder, id)).Result()
	if err != nil || s == "" {
		return nil, false
	}
	return []byte(s), true
}
