package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pharmacy/internal/cart"
	"pharmacy/internal/domain"
	"pharmacy/internal/notify"
	"pharmacy/internal/receipt"
	"pharmacy/internal/repository"
)

// OrderService фиксирует корзину в заказ: заказ, остатки и баллы лояльности меняются вместе или никак
type OrderService struct {
	medicines repository.MedicineRepository
	customers repository.CustomerRepository
	employees repository.EmployeeRepository
	orders    repository.OrderRepository
	tx        repository.TxManager
	hub       *notify.Hub
	log       *zap.Logger

	now     func() time.Time
	taxRate decimal.Decimal
}

type Option func(*OrderService)

// WithClock подменяет источник времени заказа
func WithClock(now func() time.Time) Option {
	return func(s *OrderService) { s.now = now }
}

func WithTaxRate(rate decimal.Decimal) Option {
	return func(s *OrderService) { s.taxRate = rate }
}

func NewOrderService(
	medicines repository.MedicineRepository,
	customers repository.CustomerRepository,
	employees repository.EmployeeRepository,
	orders repository.OrderRepository,
	tx repository.TxManager,
	hub *notify.Hub,
	log *zap.Logger,
	opts ...Option,
) *OrderService {
	if log == nil {
		log = zap.NewNop()
	}
	if hub == nil {
		hub = notify.NewHub(log)
	}
	s := &OrderService{
		medicines: medicines,
		customers: customers,
		employees: employees,
		orders:    orders,
		tx:        tx,
		hub:       hub,
		log:       log,
		now:       time.Now,
		taxRate:   receipt.DefaultTaxRate,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func validationErr(err error) error { return &CommitError{Stage: StageValidation, Err: err} }

// CommitOrder проверяет корзину и в одной транзакции сохраняет заказ, списывает остатки
// и начисляет баллы. Корзина очищается и уведомление публикуется только после фиксации.
func (s *OrderService) CommitOrder(ctx context.Context, c *cart.Cart, customerID, employeeID int64, orderType domain.OrderType) (*domain.Order, error) {
	if c == nil || c.IsEmpty() {
		return nil, validationErr(ErrEmptyOrder)
	}
	if orderType != c.OrderType() {
		return nil, validationErr(fmt.Errorf("%w: cart is %s, requested %s", ErrOrderTypeMismatch, c.OrderType(), orderType))
	}
	if customerID <= 0 {
		return nil, validationErr(ErrInvalidCustomer)
	}
	if employeeID <= 0 {
		return nil, validationErr(ErrInvalidEmployee)
	}

	items := c.Items()
	total := c.Total()
	points := domain.LoyaltyPointsFor(total)

	// once started the commit runs to completion
	ctx = context.WithoutCancel(ctx)

	var (
		order     domain.Order
		balance   int64
		remaining = make(map[int64]int64)
		stage     = StageValidation
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.checkParties(ctx, customerID, employeeID); err != nil {
			return err
		}
		if err := s.checkStock(ctx, items); err != nil {
			return err
		}

		stage = StageCommit
		order = domain.Order{
			CustomerID:    customerID,
			EmployeeID:    employeeID,
			Type:          orderType,
			Total:         total,
			LoyaltyPoints: points,
			CreatedAt:     s.now().UTC(),
			Items:         items,
		}
		if err := s.orders.Create(ctx, &order); err != nil {
			return fmt.Errorf("%w: %w", ErrPersistence, err)
		}
		for _, it := range items {
			left, err := s.medicines.DecrementStock(ctx, it.MedicineID, it.Quantity)
			if err != nil {
				return fmt.Errorf("%w: medicine %d: %w", ErrStockUpdateFailed, it.MedicineID, err)
			}
			remaining[it.MedicineID] = left
		}
		b, err := s.customers.CreditLoyalty(ctx, customerID, points)
		if err != nil {
			return fmt.Errorf("%w: customer %d: %w", ErrLoyaltyUpdateFailed, customerID, err)
		}
		balance = b
		return nil
	})
	if err != nil {
		// сбой самой фиксации транзакции
		if stage == StageCommit && !errors.Is(err, ErrPersistence) &&
			!errors.Is(err, ErrStockUpdateFailed) && !errors.Is(err, ErrLoyaltyUpdateFailed) {
			err = fmt.Errorf("%w: %w", ErrPersistence, err)
		}
		s.log.Warn("order commit failed",
			zap.String("stage", string(stage)),
			zap.Int64("customer_id", customerID),
			zap.Int64("employee_id", employeeID),
			zap.String("total", total.StringFixed(2)),
			zap.Error(err),
		)
		return nil, &CommitError{Stage: stage, Err: err}
	}

	c.Reset()
	s.log.Info("order committed",
		zap.Int64("order_id", order.ID),
		zap.Int64("customer_id", customerID),
		zap.String("order_type", string(orderType)),
		zap.String("total", total.StringFixed(2)),
		zap.Int64("points", points),
	)
	s.hub.Publish(notify.OrderCommitted{
		OrderID:        order.ID,
		CustomerID:     customerID,
		EmployeeID:     employeeID,
		Total:          total,
		PointsCredited: points,
		LoyaltyBalance: balance,
		StockRemaining: remaining,
		CommittedAt:    order.CreatedAt,
	})
	return &order, nil
}

func (s *OrderService) checkParties(ctx context.Context, customerID, employeeID int64) error {
	if _, err := s.customers.GetByID(ctx, customerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: id %d", ErrInvalidCustomer, customerID)
		}
		return err
	}
	if _, err := s.employees.GetByID(ctx, employeeID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: id %d", ErrInvalidEmployee, employeeID)
		}
		return err
	}
	return nil
}

// checkStock повторно читает остатки; одно лекарство может встречаться в нескольких позициях
func (s *OrderService) checkStock(ctx context.Context, items []domain.LineItem) error {
	need := make(map[int64]int64)
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		if _, seen := need[it.MedicineID]; !seen {
			ids = append(ids, it.MedicineID)
		}
		need[it.MedicineID] += it.Quantity
	}
	for _, id := range ids {
		m, err := s.medicines.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: medicine %d no longer exists", ErrStockChanged, id)
			}
			return err
		}
		if m.Stock < need[id] {
			return fmt.Errorf("%w: only %d units of %q available (need %d)", ErrStockChanged, m.Stock, m.Name, need[id])
		}
	}
	return nil
}

// GetOrder возвращает заказ по id
func (s *OrderService) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	return s.orders.GetByID(ctx, id)
}

// ListCustomerOrders история заказов покупателя, новые первыми
func (s *OrderService) ListCustomerOrders(ctx context.Context, customerID int64) ([]domain.Order, error) {
	if customerID <= 0 {
		return nil, ErrInvalidInput
	}
	if _, err := s.customers.GetByID(ctx, customerID); err != nil {
		return nil, err
	}
	return s.orders.ListByCustomer(ctx, customerID)
}

func (s *OrderService) Receipt(ctx context.Context, orderID int64) (receipt.Receipt, error) {
	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return receipt.Receipt{}, err
	}
	return s.ProjectReceipt(*o), nil
}

// ProjectReceipt строит чек по уже загруженному заказу с настроенной ставкой налога
func (s *OrderService) ProjectReceipt(o domain.Order) receipt.Receipt {
	return receipt.ProjectWithRate(o, s.taxRate)
}

// Hub для подписки на зафиксированные заказы
func (s *OrderService) Hub() *notify.Hub { return s.hub }
