package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"pharmacy/internal/domain"
)

var (
	// ErrNotFound возвращается, когда сущность не найдена
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists нарушение уникальности (SKU лекарства)
	ErrAlreadyExists = errors.New("already exists")
	// ErrStockConflict атомарное списание не прошло: остаток меньше запрошенного
	ErrStockConflict = errors.New("stock conflict")
	// ErrInUse лекарство нельзя удалить: на него ссылаются заказы
	ErrInUse = errors.New("referenced by existing orders")
	// ErrInvalidPoints начисление отрицательного количества баллов
	ErrInvalidPoints = errors.New("loyalty points must not be negative")
)

// MedicineFilter параметры фильтрации списка лекарств
type MedicineFilter struct {
	NameSubstring string
	MinPrice      *decimal.Decimal
	MaxPrice      *decimal.Decimal
}

func (f MedicineFilter) match(m domain.Medicine) bool {
	if !containsIgnoreCase(m.Name, f.NameSubstring) {
		return false
	}
	if f.MinPrice != nil && m.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && m.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	return true
}

// MedicineRepository интерфейс каталога лекарств
type MedicineRepository interface {
	Create(ctx context.Context, m *domain.Medicine) error
	GetByID(ctx context.Context, id int64) (*domain.Medicine, error)
	Update(ctx context.Context, m *domain.Medicine) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f MedicineFilter) ([]domain.Medicine, error)
	// DecrementStock atomically reduces stock by amount and returns the remaining
	// quantity, or ErrStockConflict when fewer than amount units are left.
	DecrementStock(ctx context.Context, id int64, amount int64) (int64, error)
}

// CustomerRepository интерфейс покупателей и их баланса лояльности
type CustomerRepository interface {
	Create(ctx context.Context, c *domain.Customer) error
	GetByID(ctx context.Context, id int64) (*domain.Customer, error)
	List(ctx context.Context, nameSubstring string) ([]domain.Customer, error)
	// CreditLoyalty adds points and returns the new balance.
	CreditLoyalty(ctx context.Context, id int64, points int64) (int64, error)
}

// EmployeeRepository интерфейс сотрудников
type EmployeeRepository interface {
	Create(ctx context.Context, e *domain.Employee) error
	GetByID(ctx context.Context, id int64) (*domain.Employee, error)
	List(ctx context.Context) ([]domain.Employee, error)
}

// OrderRepository интерфейс заказов. Create сохраняет заголовок и позиции одной группой и присваивает ID
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]domain.Order, error)
}

// TxManager абстракция транзакции: fn выполняется целиком или откатывается при ошибке
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// helper: case-insensitive contains
func containsIgnoreCase(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
