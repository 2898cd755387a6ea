package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pharmacy/internal/cart"
	"pharmacy/internal/domain"
)

var ErrInvalidTransition = errors.New("invalid session state transition")

// SessionView снимок сессии для ответа клиенту
type SessionView struct {
	ID          string            `json:"id"`
	State       string            `json:"state"`
	OrderType   domain.OrderType  `json:"order_type"`
	Items       []domain.LineItem `json:"items"`
	Total       decimal.Decimal   `json:"total"`
	LastOrderID int64             `json:"last_order_id,omitempty"`
	LastError   string            `json:"last_error,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

type session struct {
	mu          sync.Mutex
	id          string
	cart        *cart.Cart
	state       domain.SessionState
	lastOrderID int64
	lastErr     string
	createdAt   time.Time
	touchedAt   time.Time
}

func (s *session) moveTo(to domain.SessionState) error {
	if !domain.CanTransitionTo(s.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state, to)
	}
	s.state = to
	return nil
}

// editable возвращает сессию после исхода фиксации в Building перед изменением корзины
func (s *session) editable() error {
	if s.state.IsTerminal() {
		s.lastErr = ""
		return s.moveTo(domain.SessionBuilding)
	}
	if s.state != domain.SessionBuilding {
		return ErrSessionBusy
	}
	return nil
}

func (s *session) view() SessionView {
	return SessionView{
		ID:          s.id,
		State:       s.state.String(),
		OrderType:   s.cart.OrderType(),
		Items:       s.cart.Items(),
		Total:       s.cart.Total(),
		LastOrderID: s.lastOrderID,
		LastError:   s.lastErr,
		CreatedAt:   s.createdAt,
	}
}

// DefaultSessionIdleTTL время простоя, после которого сессия удаляется при очистке
const DefaultSessionIdleTTL = 30 * time.Minute

// SessionManager хранит открытые сессии оформления заказа. Каждая сессия владеет своей корзиной
// и защищена собственным мьютексом
type SessionManager struct {
	mu        sync.RWMutex
	sessions  map[string]*session
	medicines cart.MedicineFinder
	orders    *OrderService
	log       *zap.Logger
	now       func() time.Time
	idleTTL   time.Duration
}

type SessionOption func(*SessionManager)

func WithIdleTTL(d time.Duration) SessionOption {
	return func(m *SessionManager) {
		if d > 0 {
			m.idleTTL = d
		}
	}
}

func WithSessionClock(now func() time.Time) SessionOption {
	return func(m *SessionManager) { m.now = now }
}

func NewSessionManager(medicines cart.MedicineFinder, orders *OrderService, log *zap.Logger, opts ...SessionOption) *SessionManager {
	if log == nil {
		log = zap.NewNop()
	}
	m := &SessionManager{
		sessions:  make(map[string]*session),
		medicines: medicines,
		orders:    orders,
		log:       log,
		now:       time.Now,
		idleTTL:   DefaultSessionIdleTTL,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *SessionManager) Open(orderType domain.OrderType) (SessionView, error) {
	if orderType == "" {
		orderType = domain.OrderTypeRetail
	}
	if !orderType.Valid() {
		return SessionView{}, fmt.Errorf("%w: %q", cart.ErrInvalidOrderType, orderType)
	}
	s := &session{
		id:        uuid.NewString(),
		cart:      cart.New(m.medicines, orderType),
		state:     domain.SessionBuilding,
		createdAt: m.now().UTC(),
	}
	s.touchedAt = s.createdAt
	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()
	m.log.Debug("order session opened", zap.String("session_id", s.id), zap.String("order_type", string(orderType)))
	return s.view(), nil
}

func (m *SessionManager) lookup(id string) (*session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *SessionManager) Get(id string) (SessionView, error) {
	s, err := m.lookup(id)
	if err != nil {
		return SessionView{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view(), nil
}

// Close удаляет сессию вместе с незафиксированной корзиной
func (m *SessionManager) Close(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *SessionManager) AddItem(ctx context.Context, id string, medicineID, quantity int64) (SessionView, error) {
	s, err := m.lookup(id)
	if err != nil {
		return SessionView{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchedAt = m.now().UTC()
	if err := s.editable(); err != nil {
		return SessionView{}, err
	}
	if _, err := s.cart.AddLineItem(ctx, medicineID, quantity); err != nil {
		return SessionView{}, err
	}
	return s.view(), nil
}

func (m *SessionManager) RemoveItem(id string, index int) (SessionView, error) {
	s, err := m.lookup(id)
	if err != nil {
		return SessionView{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchedAt = m.now().UTC()
	if err := s.editable(); err != nil {
		return SessionView{}, err
	}
	if err := s.cart.RemoveLineItem(index); err != nil {
		return SessionView{}, err
	}
	return s.view(), nil
}

// Reset очищает корзину; orderType "" оставляет Retail
func (m *SessionManager) Reset(id string, orderType domain.OrderType) (SessionView, error) {
	s, err := m.lookup(id)
	if err != nil {
		return SessionView{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchedAt = m.now().UTC()
	if orderType != "" && !orderType.Valid() {
		return SessionView{}, fmt.Errorf("%w: %q", cart.ErrInvalidOrderType, orderType)
	}
	if err := s.editable(); err != nil {
		return SessionView{}, err
	}
	s.cart.Reset()
	if orderType != "" {
		if err := s.cart.SetOrderType(orderType); err != nil {
			return SessionView{}, err
		}
	}
	return s.view(), nil
}

// Commit проводит сессию через Validating и Committing. orderType "" означает тип корзины
func (m *SessionManager) Commit(ctx context.Context, id string, customerID, employeeID int64, orderType domain.OrderType) (*domain.Order, SessionView, error) {
	s, err := m.lookup(id)
	if err != nil {
		return nil, SessionView{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchedAt = m.now().UTC()
	if s.state.IsTerminal() {
		if err := s.moveTo(domain.SessionBuilding); err != nil {
			return nil, SessionView{}, err
		}
	}
	if err := s.moveTo(domain.SessionValidating); err != nil {
		return nil, SessionView{}, err
	}
	if orderType == "" {
		orderType = s.cart.OrderType()
	}

	order, err := m.orders.CommitOrder(ctx, s.cart, customerID, employeeID, orderType)
	if err != nil {
		s.lastErr = err.Error()
		var ce *CommitError
		if errors.As(err, &ce) && ce.RolledBack() {
			_ = s.moveTo(domain.SessionCommitting)
			_ = s.moveTo(domain.SessionRolledBack)
		} else {
			_ = s.moveTo(domain.SessionFailed)
		}
		return nil, s.view(), err
	}
	_ = s.moveTo(domain.SessionCommitting)
	_ = s.moveTo(domain.SessionCommitted)
	s.lastOrderID = order.ID
	s.lastErr = ""
	return order, s.view(), nil
}

// Sweep удаляет сессии, простаивающие дольше idleTTL. Сессия, занятая фиксацией, пропускается
func (m *SessionManager) Sweep() int {
	cutoff := m.now().UTC().Add(-m.idleTTL)
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		if !s.mu.TryLock() {
			continue
		}
		idle := s.touchedAt.Before(cutoff)
		s.mu.Unlock()
		if idle {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		m.log.Info("idle order sessions evicted", zap.Int("count", removed), zap.Int("open", len(m.sessions)))
	}
	return removed
}

// RunSweeper периодически вызывает Sweep до отмены ctx
func (m *SessionManager) RunSweeper(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.Sweep()
		case <-ctx.Done():
			return
		}
	}
}

func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
