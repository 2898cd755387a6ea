package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Medicine представляет лекарство в каталоге аптеки
type Medicine struct {
	ID             int64               `json:"id"`
	Name           string              `json:"name"`
	SKU            string              `json:"sku"`
	Category       string              `json:"category,omitempty"`
	SupplierName   string              `json:"supplier_name,omitempty"`
	Price          decimal.Decimal     `json:"price"`
	WholesalePrice decimal.NullDecimal `json:"wholesale_price"`
	Stock          int64               `json:"stock"`
	ExpiryDate     *time.Time          `json:"expiry_date,omitempty"`
}

// IsExpired сообщает, истёк ли срок годности на момент now
func (m Medicine) IsExpired(now time.Time) bool {
	return m.ExpiryDate != nil && m.ExpiryDate.Before(now)
}

// VIPPoints порог баллов лояльности для VIP-клиента
const VIPPoints = 1000

// Customer покупатель с балансом баллов лояльности
type Customer struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Phone         string `json:"phone,omitempty"`
	LoyaltyPoints int64  `json:"loyalty_points"`
}

func (c Customer) Tier() string {
	if c.LoyaltyPoints >= VIPPoints {
		return "vip"
	}
	return "regular"
}

// Employee сотрудник, оформляющий заказ
type Employee struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// OrderType тип заказа, влияет на цену позиции
type OrderType string

const (
	OrderTypeRetail    OrderType = "Retail"
	OrderTypeWholesale OrderType = "Wholesale"
	OrderTypeOnline    OrderType = "Online"
)

func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeRetail, OrderTypeWholesale, OrderTypeOnline:
		return true
	}
	return false
}

// LineItem позиция заказа. Цена фиксируется в момент добавления в корзину
type LineItem struct {
	MedicineID int64           `json:"medicine_id"`
	Name       string          `json:"name"`
	Quantity   int64           `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

// Subtotal всегда вычисляется из количества и цены, отдельно не хранится
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(li.Quantity))
}

// Order сущность зафиксированного заказа
type Order struct {
	ID            int64           `json:"id"`
	CustomerID    int64           `json:"customer_id"`
	EmployeeID    int64           `json:"employee_id"`
	Type          OrderType       `json:"order_type"`
	Total         decimal.Decimal `json:"total_amount"`
	LoyaltyPoints int64           `json:"loyalty_points"`
	CreatedAt     time.Time       `json:"created_at"`
	Items         []LineItem      `json:"items"`
}

// PointsPerCurrencyUnit баллов лояльности за единицу суммы заказа
const PointsPerCurrencyUnit = 10

// LoyaltyPointsFor floor(total × 10)
func LoyaltyPointsFor(total decimal.Decimal) int64 {
	return total.Mul(decimal.NewFromInt(PointsPerCurrencyUnit)).Floor().IntPart()
}
