// Package pricing determines the unit price frozen into a line item.
package pricing

import (
	"github.com/shopspring/decimal"

	"pharmacy/internal/domain"
)

// PriceFor returns the wholesale price for wholesale orders when the medicine
// defines one, and the standard price otherwise.
func PriceFor(m domain.Medicine, t domain.OrderType) decimal.Decimal {
	if t == domain.OrderTypeWholesale && m.WholesalePrice.Valid {
		return m.WholesalePrice.Decimal
	}
	return m.Price
}
