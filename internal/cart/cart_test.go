package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmacy/internal/domain"
	"pharmacy/internal/repository"
)

type stubCatalog map[int64]domain.Medicine

func (s stubCatalog) GetByID(_ context.Context, id int64) (*domain.Medicine, error) {
	m, ok := s[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func catalog() stubCatalog {
	return stubCatalog{
		1: {ID: 1, Name: "Aspirin", Price: dec("5.50"), Stock: 10},
		2: {ID: 2, Name: "Saline", Price: dec("5.00"), WholesalePrice: decimal.NewNullDecimal(dec("4.20")), Stock: 3},
	}
}

func TestAddLineItem(t *testing.T) {
	ctx := context.Background()
	c := New(catalog(), domain.OrderTypeRetail)

	item, err := c.AddLineItem(ctx, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, "Aspirin", item.Name)
	assert.True(t, item.UnitPrice.Equal(dec("5.50")))
	assert.True(t, c.Total().Equal(dec("16.50")))
}

func TestAddLineItem_DuplicatesAreNotMerged(t *testing.T) {
	ctx := context.Background()
	c := New(catalog(), domain.OrderTypeRetail)

	_, err := c.AddLineItem(ctx, 1, 2)
	require.NoError(t, err)
	_, err = c.AddLineItem(ctx, 1, 2)
	require.NoError(t, err)

	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, items[0], items[1])
	assert.True(t, c.Total().Equal(dec("22.00")))
}

func TestAddLineItem_Errors(t *testing.T) {
	ctx := context.Background()
	c := New(catalog(), domain.OrderTypeRetail)
	_, err := c.AddLineItem(ctx, 1, 1)
	require.NoError(t, err)

	_, err = c.AddLineItem(ctx, 1, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = c.AddLineItem(ctx, 1, -2)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = c.AddLineItem(ctx, 99, 1)
	assert.ErrorIs(t, err, ErrMedicineNotFound)

	_, err = c.AddLineItem(ctx, 2, 5)
	require.ErrorIs(t, err, ErrInsufficientStock)
	var se *StockError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, int64(3), se.Available)
	assert.Equal(t, int64(5), se.Requested)
	assert.Contains(t, err.Error(), "only 3 units available")

	// failed adds leave the cart untouched
	assert.Equal(t, 1, c.Len())
	assert.True(t, c.Total().Equal(dec("5.50")))
}

func TestAddLineItem_LookupFailurePassesThrough(t *testing.T) {
	boom := errors.New("catalog offline")
	c := New(failingFinder{boom}, domain.OrderTypeRetail)
	_, err := c.AddLineItem(context.Background(), 1, 1)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrMedicineNotFound)
}

type failingFinder struct{ err error }

func (f failingFinder) GetByID(context.Context, int64) (*domain.Medicine, error) { return nil, f.err }

func TestAddLineItem_WholesalePrice(t *testing.T) {
	c := New(catalog(), domain.OrderTypeWholesale)
	item, err := c.AddLineItem(context.Background(), 2, 2)
	require.NoError(t, err)
	assert.True(t, item.UnitPrice.Equal(dec("4.20")))

	// no wholesale price defined: standard price
	item, err = c.AddLineItem(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.True(t, item.UnitPrice.Equal(dec("5.50")))
}

func TestRemoveLineItem(t *testing.T) {
	ctx := context.Background()
	c := New(catalog(), domain.OrderTypeRetail)
	_, _ = c.AddLineItem(ctx, 1, 1)
	_, _ = c.AddLineItem(ctx, 2, 1)

	assert.ErrorIs(t, c.RemoveLineItem(2), ErrIndexOutOfRange)
	assert.ErrorIs(t, c.RemoveLineItem(-1), ErrIndexOutOfRange)
	assert.Equal(t, 2, c.Len())

	require.NoError(t, c.RemoveLineItem(0))
	require.Equal(t, 1, c.Len())
	assert.Equal(t, int64(2), c.Items()[0].MedicineID)
}

func TestItemsReturnsCopy(t *testing.T) {
	c := New(catalog(), domain.OrderTypeRetail)
	_, _ = c.AddLineItem(context.Background(), 1, 1)

	items := c.Items()
	items[0].Quantity = 100
	assert.Equal(t, int64(1), c.Items()[0].Quantity)
}

func TestEmptyCartTotalIsZero(t *testing.T) {
	c := New(catalog(), domain.OrderTypeRetail)
	assert.True(t, c.Total().IsZero())
	assert.True(t, c.IsEmpty())
}

func TestOrderTypeRules(t *testing.T) {
	c := New(catalog(), domain.OrderType("Bulk"))
	assert.Equal(t, domain.OrderTypeRetail, c.OrderType())

	require.NoError(t, c.SetOrderType(domain.OrderTypeOnline))
	assert.ErrorIs(t, c.SetOrderType("Bulk"), ErrInvalidOrderType)

	_, err := c.AddLineItem(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.ErrorIs(t, c.SetOrderType(domain.OrderTypeWholesale), ErrCartNotEmpty)
	require.NoError(t, c.SetOrderType(domain.OrderTypeOnline))

	c.Reset()
	assert.True(t, c.IsEmpty())
	assert.Equal(t, domain.OrderTypeRetail, c.OrderType())
}
