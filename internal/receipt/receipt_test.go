package receipt

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmacy/internal/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleOrder() domain.Order {
	return domain.Order{
		ID:            12,
		CustomerID:    3,
		EmployeeID:    1,
		Type:          domain.OrderTypeRetail,
		Total:         dec("27.50"),
		LoyaltyPoints: 275,
		CreatedAt:     time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC),
		Items: []domain.LineItem{
			{MedicineID: 1, Name: "Aspirin", Quantity: 3, UnitPrice: dec("5.50")},
			{MedicineID: 2, Name: "Vitamin C", Quantity: 2, UnitPrice: dec("5.50")},
		},
	}
}

func TestProject_Totals(t *testing.T) {
	r := Project(sampleOrder())

	require.Len(t, r.Rows, 2)
	assert.Equal(t, "Aspirin", r.Rows[0].Description)
	assert.True(t, r.Rows[0].Subtotal.Equal(dec("16.50")), r.Rows[0].Subtotal.String())
	assert.True(t, r.Rows[1].Subtotal.Equal(dec("11.00")))
	assert.True(t, r.Subtotal.Equal(dec("27.50")))
	assert.True(t, r.Tax.Equal(dec("2.75")), r.Tax.String())
	assert.True(t, r.GrandTotal.Equal(dec("30.25")), r.GrandTotal.String())
	assert.Equal(t, int64(275), r.LoyaltyPoints)
}

func TestProject_TaxRoundedToCents(t *testing.T) {
	o := sampleOrder()
	o.Total = dec("0.05")
	r := Project(o)
	// 0.005 rounds half away from zero
	assert.True(t, r.Tax.Equal(dec("0.01")), r.Tax.String())
	assert.True(t, r.GrandTotal.Equal(dec("0.06")))
}

func TestProject_Deterministic(t *testing.T) {
	o := sampleOrder()
	first := Project(o)
	second := Project(o)
	assert.Equal(t, first, second)
	assert.Equal(t, Format(first, Header{}), Format(second, Header{}))
}

func TestProject_RowsDoNotAliasOrder(t *testing.T) {
	o := sampleOrder()
	r := Project(o)
	before := Format(r, Header{})

	o.Items[0].UnitPrice = dec("9.99")

	assert.True(t, r.Rows[0].UnitPrice.Equal(dec("5.50")))
	assert.Equal(t, before, Format(r, Header{}))
	assert.NotContains(t, before, "9.99")
}

func TestProjectWithRate(t *testing.T) {
	r := ProjectWithRate(sampleOrder(), dec("0"))
	assert.True(t, r.Tax.IsZero())
	assert.True(t, r.GrandTotal.Equal(dec("27.50")))
}

func TestFormat(t *testing.T) {
	text := Format(Project(sampleOrder()), Header{StoreName: "Al-Khwarizmi Pharmacy", Address: "Baghdad University"})

	assert.True(t, strings.HasPrefix(text, strings.Repeat("═", 40)))
	assert.Contains(t, text, "Al-Khwarizmi Pharmacy\n")
	assert.Contains(t, text, "Address: Baghdad University\n")
	assert.Contains(t, text, "Order: #12 (Retail)\n")
	assert.Contains(t, text, "Date: 2026-05-04 10:30:00\n")
	assert.Contains(t, text, "3 x Aspirin @ 5.50 = 16.50\n")
	assert.Contains(t, text, "2 x Vitamin C @ 5.50 = 11.00\n")
	assert.Contains(t, text, "Tax (10%):")
	assert.Contains(t, text, "TOTAL:                 30.25\n")
	assert.Contains(t, text, "Loyalty Points Earned: 275\n")
	// line items keep order
	assert.Less(t, strings.Index(text, "Aspirin"), strings.Index(text, "Vitamin C"))
}
