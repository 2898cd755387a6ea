// Package receipt projects a committed order into a printable receipt.
//
// A projection reads only the order it is given, so projecting the same order
// twice yields identical receipts no matter how the catalog changed in between.
package receipt

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pharmacy/internal/domain"
)

// DefaultTaxRate 10%
var DefaultTaxRate = decimal.RequireFromString("0.10")

type Row struct {
	Description string          `json:"description"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type Receipt struct {
	OrderID       int64            `json:"order_id"`
	CustomerID    int64            `json:"customer_id"`
	EmployeeID    int64            `json:"employee_id"`
	OrderType     domain.OrderType `json:"order_type"`
	IssuedAt      time.Time        `json:"issued_at"`
	Rows          []Row            `json:"rows"`
	Subtotal      decimal.Decimal  `json:"subtotal"`
	TaxRate       decimal.Decimal  `json:"tax_rate"`
	Tax           decimal.Decimal  `json:"tax"`
	GrandTotal    decimal.Decimal  `json:"grand_total"`
	LoyaltyPoints int64            `json:"loyalty_points"`
}

// Header шапка текстового чека
type Header struct {
	StoreName string
	Address   string
}

func Project(o domain.Order) Receipt {
	return ProjectWithRate(o, DefaultTaxRate)
}

// ProjectWithRate налог округляется до двух знаков, итог = сумма заказа + налог
func ProjectWithRate(o domain.Order, rate decimal.Decimal) Receipt {
	rows := make([]Row, 0, len(o.Items))
	for _, it := range o.Items {
		rows = append(rows, Row{
			Description: it.Name,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Subtotal:    it.Subtotal(),
		})
	}
	tax := o.Total.Mul(rate).Round(2)
	return Receipt{
		OrderID:       o.ID,
		CustomerID:    o.CustomerID,
		EmployeeID:    o.EmployeeID,
		OrderType:     o.Type,
		IssuedAt:      o.CreatedAt,
		Rows:          rows,
		Subtotal:      o.Total,
		TaxRate:       rate,
		Tax:           tax,
		GrandTotal:    o.Total.Add(tax),
		LoyaltyPoints: o.LoyaltyPoints,
	}
}

const width = 40

// Format renders r as fixed-layout plain text.
func Format(r Receipt, h Header) string {
	var lines []string
	lines = append(lines, strings.Repeat("═", width))
	if h.StoreName != "" {
		lines = append(lines, h.StoreName)
	}
	if h.Address != "" {
		lines = append(lines, "Address: "+h.Address)
	}
	lines = append(lines, strings.Repeat("═", width))
	lines = append(lines, fmt.Sprintf("Order: #%d (%s)", r.OrderID, r.OrderType))
	lines = append(lines, fmt.Sprintf("Date: %s", r.IssuedAt.UTC().Format("2006-01-02 15:04:05")))
	lines = append(lines, fmt.Sprintf("Customer: %d  Employee: %d", r.CustomerID, r.EmployeeID))
	lines = append(lines, strings.Repeat("─", width))
	for _, row := range r.Rows {
		lines = append(lines, fmt.Sprintf("%d x %s @ %s = %s",
			row.Quantity, row.Description, row.UnitPrice.StringFixed(2), row.Subtotal.StringFixed(2)))
	}
	lines = append(lines, strings.Repeat("─", width))
	lines = append(lines, fmt.Sprintf("Subtotal:              %s", r.Subtotal.StringFixed(2)))
	lines = append(lines, fmt.Sprintf("Tax (%s%%):            %s", r.TaxRate.Shift(2).String(), r.Tax.StringFixed(2)))
	lines = append(lines, strings.Repeat("─", width))
	lines = append(lines, fmt.Sprintf("TOTAL:                 %s", r.GrandTotal.StringFixed(2)))
	lines = append(lines, fmt.Sprintf("Loyalty Points Earned: %d", r.LoyaltyPoints))
	lines = append(lines, strings.Repeat("═", width))
	return strings.Join(lines, "\n") + "\n"
}
