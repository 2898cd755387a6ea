package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"pharmacy/internal/domain"
)

// MemoryStore объединённое in-memory хранилище каталога и заказов с простым генератором ID
type MemoryStore struct {
	mu             sync.RWMutex
	nextMedicineID int64
	nextCustomerID int64
	nextEmployeeID int64
	nextOrderID    int64
	medicinesByID  map[int64]domain.Medicine
	customersByID  map[int64]domain.Customer
	employeesByID  map[int64]domain.Employee
	ordersByID     map[int64]domain.Order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextMedicineID: 1,
		nextCustomerID: 1,
		nextEmployeeID: 1,
		nextOrderID:    1,
		medicinesByID:  make(map[int64]domain.Medicine),
		customersByID:  make(map[int64]domain.Customer),
		employeesByID:  make(map[int64]domain.Employee),
		ordersByID:     make(map[int64]domain.Order),
	}
}

// transaction-aware locking helpers
type txKey struct{}

func isTx(ctx context.Context) bool {
	v := ctx.Value(txKey{})
	if v == nil {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func (m *MemoryStore) rlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RLock()
	}
}
func (m *MemoryStore) runlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RUnlock()
	}
}
func (m *MemoryStore) wlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Lock()
	}
}
func (m *MemoryStore) wunlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Unlock()
	}
}

// Ensure interfaces
var _ MedicineRepository = (*MemoryStore)(nil)

// MedicineRepository implementation
func (m *MemoryStore) Create(ctx context.Context, med *domain.Medicine) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	for _, existing := range m.medicinesByID {
		if existing.SKU == med.SKU {
			return ErrAlreadyExists
		}
	}
	med.ID = m.nextMedicineID
	m.nextMedicineID++
	m.medicinesByID[med.ID] = *med
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id int64) (*domain.Medicine, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	med, ok := m.medicinesByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	// return copy
	cp := med
	return &cp, nil
}

func (m *MemoryStore) Update(ctx context.Context, med *domain.Medicine) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.medicinesByID[med.ID]; !ok {
		return ErrNotFound
	}
	for id, existing := range m.medicinesByID {
		if id != med.ID && existing.SKU == med.SKU {
			return ErrAlreadyExists
		}
	}
	m.medicinesByID[med.ID] = *med
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id int64) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.medicinesByID[id]; !ok {
		return ErrNotFound
	}
	for _, o := range m.ordersByID {
		for _, it := range o.Items {
			if it.MedicineID == id {
				return ErrInUse
			}
		}
	}
	delete(m.medicinesByID, id)
	return nil
}

func (m *MemoryStore) List(ctx context.Context, f MedicineFilter) ([]domain.Medicine, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	out := make([]domain.Medicine, 0)
	for _, med := range m.medicinesByID {
		if f.match(med) {
			out = append(out, med)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) DecrementStock(ctx context.Context, id int64, amount int64) (int64, error) {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	med, ok := m.medicinesByID[id]
	if !ok {
		return 0, ErrNotFound
	}
	if amount <= 0 || med.Stock < amount {
		return med.Stock, ErrStockConflict
	}
	med.Stock -= amount
	m.medicinesByID[id] = med
	return med.Stock, nil
}

// CustomerRepository implementation on wrapper type
type MemoryCustomers struct{ store *MemoryStore }

func NewMemoryCustomers(store *MemoryStore) *MemoryCustomers { return &MemoryCustomers{store: store} }

var _ CustomerRepository = (*MemoryCustomers)(nil)

func (mc *MemoryCustomers) Create(ctx context.Context, c *domain.Customer) error {
	mc.store.wlock(ctx)
	defer mc.store.wunlock(ctx)
	c.ID = mc.store.nextCustomerID
	mc.store.nextCustomerID++
	mc.store.customersByID[c.ID] = *c
	return nil
}

func (mc *MemoryCustomers) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	mc.store.rlock(ctx)
	defer mc.store.runlock(ctx)
	c, ok := mc.store.customersByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := c
	return &cp, nil
}

func (mc *MemoryCustomers) List(ctx context.Context, nameSubstring string) ([]domain.Customer, error) {
	mc.store.rlock(ctx)
	defer mc.store.runlock(ctx)
	out := make([]domain.Customer, 0)
	for _, c := range mc.store.customersByID {
		if containsIgnoreCase(c.Name, nameSubstring) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (mc *MemoryCustomers) CreditLoyalty(ctx context.Context, id int64, points int64) (int64, error) {
	if points < 0 {
		return 0, ErrInvalidPoints
	}
	mc.store.wlock(ctx)
	defer mc.store.wunlock(ctx)
	c, ok := mc.store.customersByID[id]
	if !ok {
		return 0, ErrNotFound
	}
	c.LoyaltyPoints += points
	mc.store.customersByID[id] = c
	return c.LoyaltyPoints, nil
}

// EmployeeRepository implementation on wrapper type
type MemoryEmployees struct{ store *MemoryStore }

func NewMemoryEmployees(store *MemoryStore) *MemoryEmployees { return &MemoryEmployees{store: store} }

var _ EmployeeRepository = (*MemoryEmployees)(nil)

func (me *MemoryEmployees) Create(ctx context.Context, e *domain.Employee) error {
	me.store.wlock(ctx)
	defer me.store.wunlock(ctx)
	e.ID = me.store.nextEmployeeID
	me.store.nextEmployeeID++
	me.store.employeesByID[e.ID] = *e
	return nil
}

func (me *MemoryEmployees) GetByID(ctx context.Context, id int64) (*domain.Employee, error) {
	me.store.rlock(ctx)
	defer me.store.runlock(ctx)
	e, ok := me.store.employeesByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := e
	return &cp, nil
}

func (me *MemoryEmployees) List(ctx context.Context) ([]domain.Employee, error) {
	me.store.rlock(ctx)
	defer me.store.runlock(ctx)
	out := make([]domain.Employee, 0, len(me.store.employeesByID))
	for _, e := range me.store.employeesByID {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// OrderRepository implementation on wrapper type
type MemoryOrders struct{ store *MemoryStore }

func NewMemoryOrders(store *MemoryStore) *MemoryOrders { return &MemoryOrders{store: store} }

var _ OrderRepository = (*MemoryOrders)(nil)

func (mo *MemoryOrders) Create(ctx context.Context, o *domain.Order) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	o.ID = mo.store.nextOrderID
	mo.store.nextOrderID++
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	mo.store.ordersByID[o.ID] = cloneOrder(*o)
	return nil
}

func (mo *MemoryOrders) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	o, ok := mo.store.ordersByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := cloneOrder(o)
	return &cp, nil
}

func (mo *MemoryOrders) ListByCustomer(ctx context.Context, customerID int64) ([]domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	out := make([]domain.Order, 0)
	for _, o := range mo.store.ordersByID {
		if o.CustomerID == customerID {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// orders own their line items, callers never share the backing array
func cloneOrder(o domain.Order) domain.Order {
	items := make([]domain.LineItem, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return o
}

// Tx manager using write lock to emulate transaction boundary
type MemoryTx struct{ store *MemoryStore }

func NewMemoryTx(store *MemoryStore) *MemoryTx { return &MemoryTx{store: store} }

// WithTransaction держит блокировку записи на всё время fn и восстанавливает снимок данных
// при ошибке или панике
func (tx *MemoryTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if isTx(ctx) {
		return fn(ctx)
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	snap := tx.store.snapshot()
	defer func() {
		if p := recover(); p != nil {
			tx.store.restore(snap)
			panic(p)
		}
	}()
	ctx = context.WithValue(ctx, txKey{}, true)
	if err = fn(ctx); err != nil {
		tx.store.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	nextMedicineID, nextCustomerID, nextEmployeeID, nextOrderID int64

	medicines map[int64]domain.Medicine
	customers map[int64]domain.Customer
	employees map[int64]domain.Employee
	orders    map[int64]domain.Order
}

// must be called with mu held
func (m *MemoryStore) snapshot() memorySnapshot {
	return memorySnapshot{
		nextMedicineID: m.nextMedicineID,
		nextCustomerID: m.nextCustomerID,
		nextEmployeeID: m.nextEmployeeID,
		nextOrderID:    m.nextOrderID,
		medicines:      copyMap(m.medicinesByID),
		customers:      copyMap(m.customersByID),
		employees:      copyMap(m.employeesByID),
		orders:         copyMap(m.ordersByID),
	}
}

// must be called with mu held
func (m *MemoryStore) restore(s memorySnapshot) {
	m.nextMedicineID = s.nextMedicineID
	m.nextCustomerID = s.nextCustomerID
	m.nextEmployeeID = s.nextEmployeeID
	m.nextOrderID = s.nextOrderID
	m.medicinesByID = s.medicines
	m.customersByID = s.customers
	m.employeesByID = s.employees
	m.ordersByID = s.orders
}

func copyMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
