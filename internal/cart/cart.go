// Package cart holds the in-memory line items of an order that is still being built.
package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"pharmacy/internal/domain"
	"pharmacy/internal/pricing"
	"pharmacy/internal/repository"
)

var (
	ErrInvalidQuantity   = errors.New("quantity must be a positive integer")
	ErrMedicineNotFound  = errors.New("medicine not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrIndexOutOfRange   = errors.New("line item index out of range")
	ErrInvalidOrderType  = errors.New("invalid order type")
	ErrCartNotEmpty      = errors.New("order type can only change on an empty cart")
)

// StockError детализирует ErrInsufficientStock
type StockError struct {
	MedicineID int64
	Available  int64
	Requested  int64
}

func (e *StockError) Error() string {
	return fmt.Sprintf("only %d units available (requested %d)", e.Available, e.Requested)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

// MedicineFinder read-only доступ к каталогу лекарств
type MedicineFinder interface {
	GetByID(ctx context.Context, id int64) (*domain.Medicine, error)
}

// Cart is owned by a single order session and is not safe for concurrent use.
type Cart struct {
	medicines MedicineFinder
	orderType domain.OrderType
	items     []domain.LineItem
}

func New(medicines MedicineFinder, orderType domain.OrderType) *Cart {
	if !orderType.Valid() {
		orderType = domain.OrderTypeRetail
	}
	return &Cart{medicines: medicines, orderType: orderType}
}

// AddLineItem проверяет количество и остаток, фиксирует цену и добавляет позицию.
// Одинаковые лекарства не объединяются.
func (c *Cart) AddLineItem(ctx context.Context, medicineID, quantity int64) (domain.LineItem, error) {
	if quantity <= 0 {
		return domain.LineItem{}, ErrInvalidQuantity
	}
	m, err := c.medicines.GetByID(ctx, medicineID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.LineItem{}, fmt.Errorf("%w: id %d", ErrMedicineNotFound, medicineID)
		}
		return domain.LineItem{}, err
	}
	if quantity > m.Stock {
		return domain.LineItem{}, &StockError{MedicineID: m.ID, Available: m.Stock, Requested: quantity}
	}
	item := domain.LineItem{
		MedicineID: m.ID,
		Name:       m.Name,
		Quantity:   quantity,
		UnitPrice:  pricing.PriceFor(*m, c.orderType),
	}
	c.items = append(c.items, item)
	return item, nil
}

func (c *Cart) RemoveLineItem(index int) error {
	if index < 0 || index >= len(c.items) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	c.items = append(c.items[:index], c.items[index+1:]...)
	return nil
}

// Total сумма подытогов; ноль для пустой корзины
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// Items returns a copy of the line items in insertion order.
func (c *Cart) Items() []domain.LineItem {
	out := make([]domain.LineItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Len() int { return len(c.items) }

func (c *Cart) IsEmpty() bool { return len(c.items) == 0 }

func (c *Cart) OrderType() domain.OrderType { return c.orderType }

// SetOrderType меняет тип заказа только для пустой корзины, иначе цены позиций разошлись бы с типом
func (c *Cart) SetOrderType(t domain.OrderType) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidOrderType, t)
	}
	if len(c.items) > 0 && t != c.orderType {
		return ErrCartNotEmpty
	}
	c.orderType = t
	return nil
}

// Reset очищает корзину и возвращает тип заказа по умолчанию
func (c *Cart) Reset() {
	c.items = nil
	c.orderType = domain.OrderTypeRetail
}
