package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pharmacy/internal/cart"
	"pharmacy/internal/domain"
	httpapi "pharmacy/internal/http"
	"pharmacy/internal/receipt"
	"pharmacy/internal/repository"
	"pharmacy/internal/service"
)

func startServer(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	store := repository.NewMemoryStore()
	customers := repository.NewMemoryCustomers(store)
	employees := repository.NewMemoryEmployees(store)
	catalog := service.NewCatalogService(store, customers, employees)
	orders := service.NewOrderService(store, customers, employees, repository.NewMemoryOrders(store),
		repository.NewMemoryTx(store), nil, zap.NewNop())

	past := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	m, err := catalog.CreateMedicine(ctx, domain.Medicine{Name: "Aspirin", SKU: "ASP", Price: decimal.RequireFromString("5.50"), Stock: 10, ExpiryDate: &past})
	require.NoError(t, err)
	cu, err := catalog.CreateCustomer(ctx, domain.Customer{Name: "Layla"})
	require.NoError(t, err)
	e, err := catalog.CreateEmployee(ctx, domain.Employee{Name: "Omar"})
	require.NoError(t, err)

	c := cart.New(store, domain.OrderTypeRetail)
	_, err = c.AddLineItem(ctx, m.ID, 5)
	require.NoError(t, err)
	_, err = orders.CommitOrder(ctx, c, cu.ID, e.ID, domain.OrderTypeRetail)
	require.NoError(t, err)

	srv := httpapi.NewServer(catalog, orders, service.NewSessionManager(store, orders, nil),
		receipt.Header{StoreName: "Al-Khwarizmi Pharmacy"}, nil)
	ts := httptest.NewServer(srv.Engine())
	t.Cleanup(ts.Close)
	return ts.URL
}

func TestRun_Receipt(t *testing.T) {
	url := startServer(t)
	var out bytes.Buffer

	require.NoError(t, run([]string{"-server", url, "receipt", "-order", "1"}, &out))
	assert.Contains(t, out.String(), "Al-Khwarizmi Pharmacy")
	assert.Contains(t, out.String(), "5 x Aspirin @ 5.50 = 27.50")

	out.Reset()
	require.NoError(t, run([]string{"-server", url, "receipt", "-order", "1", "-json"}, &out))
	assert.Equal(t, "order 1: subtotal 27.50 tax 2.75 total 30.25 points 275\n", out.String())
}

func TestRun_MedicineAndExpired(t *testing.T) {
	url := startServer(t)
	var out bytes.Buffer

	require.NoError(t, run([]string{"-server", url, "medicine", "-id", "1"}, &out))
	assert.Contains(t, out.String(), "Aspirin")
	assert.Contains(t, out.String(), "5.50")

	out.Reset()
	require.NoError(t, run([]string{"-server", url, "expired"}, &out))
	assert.Contains(t, out.String(), "ASP")

	out.Reset()
	require.NoError(t, run([]string{"-server", url, "expired", "-at", "2019-01-01"}, &out))
	assert.Equal(t, "no expired medicines\n", out.String())
}

func TestRun_Errors(t *testing.T) {
	url := startServer(t)
	var out bytes.Buffer

	assert.Error(t, run(nil, &out))
	assert.Error(t, run([]string{"-server", url, "refund"}, &out))
	assert.Error(t, run([]string{"-server", url, "receipt"}, &out))
	assert.ErrorContains(t, run([]string{"-server", url, "medicine", "-id", "99"}, &out), "404")
}
