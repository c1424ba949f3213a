package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jklepek/case-study/internal/orders"
)

type fakeEngine struct {
	order Order
	err   error
}

type Order = orders.Order

func (f *fakeEngine) CreateOrder(context.Context, []orders.ItemInput) (Order, error) {
	return f.order, f.err
}
func (f *fakeEngine) GetOrder(context.Context, int64) (Order, error)    { return f.order, f.err }
func (f *fakeEngine) PayOrder(context.Context, int64) (Order, error)    { return f.order, f.err }
func (f *fakeEngine) CancelOrder(context.Context, int64) (Order, error) { return f.order, f.err }
func (f *fakeEngine) ListOrders(context.Context) ([]Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []Order{f.order}, nil
}

func newOrdersServer(f *fakeEngine) *httptest.Server {
	r := NewRouter()
	h := &OrdersHandler{Engine: f}
	h.Register(r)
	return httptest.NewServer(r)
}

func TestCreateOrder_Returns201WithBody(t *testing.T) {
	f := &fakeEngine{order: Order{
		ID:          7,
		Status:      orders.StatusCreated,
		TotalAmount: decimal.RequireFromString("499.95"),
	}}
	srv := newOrdersServer(f)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/orders/", "application/json",
		strings.NewReader(`{"items":[{"product_id":1,"qty":5}]}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var got Order
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, orders.StatusCreated, got.Status)
}

func TestCreateOrder_InvalidJSON(t *testing.T) {
	srv := newOrdersServer(&fakeEngine{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/orders/", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"order_not_found", fmt.Errorf("%w: 9", orders.ErrOrderNotFound), http.StatusNotFound},
		{"product_not_found", fmt.Errorf("%w: 9", orders.ErrProductNotFound), http.StatusNotFound},
		{"insufficient_stock", fmt.Errorf("%w for product %q", orders.ErrInsufficientStock, "x"), http.StatusConflict},
		{"invalid_transition", fmt.Errorf("%w: order 9 is CANCELLED", orders.ErrInvalidTransition), http.StatusConflict},
		{"expired", fmt.Errorf("%w: 9", orders.ErrOrderExpired), http.StatusGone},
		{"bad_input", fmt.Errorf("%w: no items", orders.ErrInvalidInput), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newOrdersServer(&fakeEngine{err: tt.err})
			defer srv.Close()

			req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/v1/orders/9/pay", nil)
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestGetOrder_InvalidID(t *testing.T) {
	srv := newOrdersServer(&fakeEngine{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/orders/abc")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListOrders_OK(t *testing.T) {
	f := &fakeEngine{order: Order{ID: 1, Status: orders.StatusPaid}}
	srv := newOrdersServer(f)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/orders/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var got []Order
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, orders.StatusPaid, got[0].Status)
}
