// Package notify delivers post-commit order notifications to in-process listeners.
package notify

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderCommitted публикуется только после успешной фиксации транзакции
type OrderCommitted struct {
	OrderID        int64
	CustomerID     int64
	EmployeeID     int64
	Total          decimal.Decimal
	PointsCredited int64
	// LoyaltyBalance баланс покупателя после начисления
	LoyaltyBalance int64
	// StockRemaining остаток каждого затронутого лекарства
	StockRemaining map[int64]int64
	CommittedAt    time.Time
}

type Listener func(OrderCommitted)

// Hub рассылает события подписчикам синхронно, в порядке подписки
type Hub struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[int]Listener
	order     []int
	log       *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{listeners: make(map[int]Listener), log: log}
}

// Subscribe регистрирует listener; возвращаемая функция снимает подписку и идемпотентна
func (h *Hub) Subscribe(l Listener) (unsubscribe func()) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = l
	h.order = append(h.order, id)
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.listeners, id)
			for i, v := range h.order {
				if v == id {
					h.order = append(h.order[:i], h.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish вызывает всех подписчиков. Паника подписчика логируется и не мешает остальным
func (h *Hub) Publish(ev OrderCommitted) {
	h.mu.RLock()
	ls := make([]Listener, 0, len(h.order))
	for _, id := range h.order {
		ls = append(ls, h.listeners[id])
	}
	h.mu.RUnlock()

	for _, l := range ls {
		h.deliver(l, ev)
	}
}

func (h *Hub) deliver(l Listener, ev OrderCommitted) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("order listener panicked",
				zap.Int64("order_id", ev.OrderID),
				zap.Any("panic", r),
			)
		}
	}()
	l(ev)
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.order)
}
