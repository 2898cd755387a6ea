package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/medicines/1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":1,"name":"Aspirin","sku":"ASP","price":"5.50","wholesale_price":null,"stock":7}`))
	})
	mux.HandleFunc("/api/v1/medicines/2", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	})
	mux.HandleFunc("/api/v1/inventory/expired", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("at") == "2027-01-01" {
			_, _ = w.Write([]byte(`[{"id":3,"name":"Old syrup","sku":"OLD","price":"1","stock":1}]`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	})
	mux.HandleFunc("/api/v1/orders/5/receipt", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") == "text" {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte("TOTAL: 30.25\n"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"order_id":5,"subtotal":"27.5","tax":"2.75","grand_total":"30.25","rows":[]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Medicine(t *testing.T) {
	srv := newTestServer(t)
	c := New(srv.URL)
	ctx := context.Background()

	m, err := c.Medicine(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Aspirin", m.Name)
	assert.Equal(t, "5.5", m.Price.String())
	assert.False(t, m.WholesalePrice.Valid)

	_, err = c.Medicine(ctx, 2)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "not found", apiErr.Message)
}

func TestClient_ExpiredMedicines(t *testing.T) {
	srv := newTestServer(t)
	c := New(srv.URL)

	list, err := c.ExpiredMedicines(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = c.ExpiredMedicines(context.Background(), time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "OLD", list[0].SKU)
}

func TestClient_Receipt(t *testing.T) {
	srv := newTestServer(t)
	c := New(srv.URL)

	r, err := c.Receipt(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), r.OrderID)
	assert.Equal(t, "30.25", r.GrandTotal.StringFixed(2))

	text, err := c.ReceiptText(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "TOTAL: 30.25\n", text)
}
