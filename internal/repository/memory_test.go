package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"pharmacy/internal/domain"
)

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestMemoryStore_MedicineCRUD(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	m := domain.Medicine{Name: "A", SKU: "S1", Price: price("10"), Stock: 5}
	if err := store.Create(ctx, &m); err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.ID == 0 {
		t.Fatalf("no id")
	}

	got, err := store.GetByID(ctx, m.ID)
	if err != nil || got.ID != m.ID {
		t.Fatalf("get: %v", err)
	}

	m.Price = price("12")
	if err := store.Update(ctx, &m); err != nil {
		t.Fatalf("update: %v", err)
	}

	dup := domain.Medicine{Name: "B", SKU: "S1", Price: price("1"), Stock: 1}
	if err := store.Create(ctx, &dup); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}

	if err := store.Delete(ctx, m.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetByID(ctx, m.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found")
	}
}

func TestMemoryStore_DecrementStock(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := domain.Medicine{Name: "A", SKU: "S1", Price: price("10"), Stock: 5}
	if err := store.Create(ctx, &m); err != nil {
		t.Fatal(err)
	}

	left, err := store.DecrementStock(ctx, m.ID, 4)
	if err != nil || left != 1 {
		t.Fatalf("decrement: left=%d err=%v", left, err)
	}
	if _, err := store.DecrementStock(ctx, m.ID, 2); !errors.Is(err, ErrStockConflict) {
		t.Fatalf("expected stock conflict, got %v", err)
	}
	if _, err := store.DecrementStock(ctx, 999, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	got, _ := store.GetByID(ctx, m.ID)
	if got.Stock != 1 {
		t.Fatalf("stock expected 1, got %d", got.Stock)
	}
}

func TestMemoryCustomers_CreditLoyalty(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	customers := NewMemoryCustomers(store)

	c := domain.Customer{Name: "Layla"}
	if err := customers.Create(ctx, &c); err != nil {
		t.Fatal(err)
	}
	balance, err := customers.CreditLoyalty(ctx, c.ID, 275)
	if err != nil || balance != 275 {
		t.Fatalf("credit: balance=%d err=%v", balance, err)
	}
	if _, err := customers.CreditLoyalty(ctx, c.ID, -1); !errors.Is(err, ErrInvalidPoints) {
		t.Fatalf("expected invalid points, got %v", err)
	}
	if _, err := customers.CreditLoyalty(ctx, 42, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryTx_TransactionalUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tx := NewMemoryTx(store)
	orders := NewMemoryOrders(store)

	// seed medicine
	m := domain.Medicine{Name: "A", SKU: "S1", Price: price("10"), Stock: 5}
	if err := store.Create(ctx, &m); err != nil {
		t.Fatal(err)
	}

	// atomic create order with stock decrease
	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := store.DecrementStock(ctx, m.ID, 3); err != nil {
			return err
		}
		o := domain.Order{CustomerID: 1, EmployeeID: 1, Items: []domain.LineItem{{MedicineID: m.ID, Quantity: 3, UnitPrice: m.Price}}}
		return orders.Create(ctx, &o)
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	mm, _ := store.GetByID(context.Background(), m.ID)
	if mm.Stock != 2 {
		t.Fatalf("stock expected 2, got %v", mm.Stock)
	}
	if _, err := orders.GetByID(ctx, 1); err != nil {
		t.Fatalf("order not persisted: %v", err)
	}
}

func TestMemoryTx_RollbackRestoresEverything(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tx := NewMemoryTx(store)
	orders := NewMemoryOrders(store)
	customers := NewMemoryCustomers(store)

	m := domain.Medicine{Name: "A", SKU: "S1", Price: price("10"), Stock: 5}
	if err := store.Create(ctx, &m); err != nil {
		t.Fatal(err)
	}
	c := domain.Customer{Name: "C"}
	if err := customers.Create(ctx, &c); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		o := domain.Order{CustomerID: c.ID, EmployeeID: 1}
		if err := orders.Create(ctx, &o); err != nil {
			return err
		}
		if _, err := store.DecrementStock(ctx, m.ID, 2); err != nil {
			return err
		}
		if _, err := customers.CreditLoyalty(ctx, c.ID, 100); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := orders.GetByID(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("order survived rollback")
	}
	mm, _ := store.GetByID(ctx, m.ID)
	if mm.Stock != 5 {
		t.Fatalf("stock expected 5 after rollback, got %d", mm.Stock)
	}
	cc, _ := customers.GetByID(ctx, c.ID)
	if cc.LoyaltyPoints != 0 {
		t.Fatalf("loyalty expected 0 after rollback, got %d", cc.LoyaltyPoints)
	}

	// the rolled back id is reused by the next committed order
	o := domain.Order{CustomerID: c.ID, EmployeeID: 1}
	if err := orders.Create(ctx, &o); err != nil || o.ID != 1 {
		t.Fatalf("next order id expected 1, got %d (%v)", o.ID, err)
	}
}

func TestList_Filtering(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	add := func(n string, p string) {
		m := domain.Medicine{Name: n, SKU: n, Price: price(p), Stock: 1}
		if err := store.Create(ctx, &m); err != nil {
			t.Fatal(err)
		}
	}
	add("Aspirin", "100")
	add("Paracetamol", "50")
	add("Ibuprofen", "150")

	// name contains
	list, _ := store.List(ctx, MedicineFilter{NameSubstring: "in"})
	if len(list) != 1 || list[0].Name != "Aspirin" {
		t.Fatalf("name filter: %v", list)
	}

	// min
	min := price("100")
	list, _ = store.List(ctx, MedicineFilter{MinPrice: &min})
	for _, m := range list {
		if m.Price.LessThan(min) {
			t.Fatalf("min filter fail")
		}
	}

	// max
	max := price("100")
	list, _ = store.List(ctx, MedicineFilter{MaxPrice: &max})
	for _, m := range list {
		if m.Price.GreaterThan(max) {
			t.Fatalf("max filter fail")
		}
	}
	if len(list) != 2 {
		t.Fatalf("max filter expected 2, got %d", len(list))
	}
}

func TestMemoryTx_PanicRestoresSnapshot(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tx := NewMemoryTx(store)

	m := domain.Medicine{Name: "A", SKU: "S1", Price: price("10"), Stock: 5}
	if err := store.Create(ctx, &m); err != nil {
		t.Fatal(err)
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("panic must propagate")
			}
		}()
		_ = tx.WithTransaction(ctx, func(ctx context.Context) error {
			if _, err := store.DecrementStock(ctx, m.ID, 4); err != nil {
				return err
			}
			panic("listener blew up")
		})
	}()

	// lock released and partial write undone
	got, err := store.GetByID(ctx, m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Stock != 5 {
		t.Fatalf("stock expected 5 after panic, got %d", got.Stock)
	}
	if _, err := store.DecrementStock(ctx, m.ID, 1); err != nil {
		t.Fatalf("store unusable after panic: %v", err)
	}
}
