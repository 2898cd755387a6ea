package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pharmacy/internal/cart"
	"pharmacy/internal/domain"
	"pharmacy/internal/repository"
)

func TestCatalog_MedicineValidation(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	bad := []domain.Medicine{
		{Name: "", SKU: "S", Price: dec("1")},
		{Name: "A", SKU: " ", Price: dec("1")},
		{Name: "A", SKU: "S", Price: dec("-1")},
		{Name: "A", SKU: "S", Price: dec("1"), Stock: -1},
		{Name: "A", SKU: "S", Price: dec("1"), WholesalePrice: decimal.NewNullDecimal(dec("-0.01"))},
	}
	for i, m := range bad {
		if _, err := f.catalog.CreateMedicine(ctx, m); err != ErrInvalidInput {
			t.Fatalf("case %d: expected invalid input, got %v", i, err)
		}
	}
	if _, err := f.catalog.GetMedicine(ctx, 0); err != ErrInvalidInput {
		t.Fatalf("expected invalid input for id 0, got %v", err)
	}
	if _, err := f.catalog.UpdateMedicine(ctx, domain.Medicine{Name: "A", SKU: "S", Price: dec("1")}); err != ErrInvalidInput {
		t.Fatalf("expected invalid input for missing id, got %v", err)
	}
}

func TestCatalog_ListMedicines(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.medicine(t, "Aspirin", "100", 1)
	f.medicine(t, "Paracetamol", "50", 1)

	min, max := dec("60"), dec("10")
	if _, err := f.catalog.ListMedicines(ctx, repository.MedicineFilter{MinPrice: &min, MaxPrice: &max}); err != ErrInvalidInput {
		t.Fatalf("expected invalid input for inverted range, got %v", err)
	}
	list, err := f.catalog.ListMedicines(ctx, repository.MedicineFilter{MinPrice: &min})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Name != "Aspirin" {
		t.Fatalf("unexpected list: %v", list)
	}
}

func TestCatalog_ExpiredMedicines(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	past := now.AddDate(0, -1, 0)
	future := now.AddDate(1, 0, 0)

	for _, m := range []domain.Medicine{
		{Name: "Old syrup", SKU: "OLD", Price: dec("1"), ExpiryDate: &past},
		{Name: "Fresh tabs", SKU: "NEW", Price: dec("1"), ExpiryDate: &future},
		{Name: "Bandage", SKU: "BND", Price: dec("1")},
	} {
		if _, err := f.catalog.CreateMedicine(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	expired, err := f.catalog.ExpiredMedicines(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(expired) != 1 || expired[0].SKU != "OLD" {
		t.Fatalf("unexpected expired list: %v", expired)
	}
}

func TestCatalog_DeleteMedicineInUse(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	used := f.medicine(t, "Aspirin", "1", 5)
	unused := f.medicine(t, "Vitamin C", "1", 5)

	c := cart.New(f.store, domain.OrderTypeRetail)
	if _, err := c.AddLineItem(ctx, used.ID, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.CommitOrder(ctx, c, f.customer.ID, f.employee.ID, domain.OrderTypeRetail); err != nil {
		t.Fatal(err)
	}

	if err := f.catalog.DeleteMedicine(ctx, used.ID); err != repository.ErrInUse {
		t.Fatalf("expected in use, got %v", err)
	}
	if err := f.catalog.DeleteMedicine(ctx, unused.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestCatalog_CustomersAndEmployees(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	if _, err := f.catalog.CreateCustomer(ctx, domain.Customer{Name: "  "}); err != ErrInvalidInput {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := f.catalog.CreateCustomer(ctx, domain.Customer{Name: "X", LoyaltyPoints: -5}); err != ErrInvalidInput {
		t.Fatalf("expected invalid input for negative points, got %v", err)
	}
	if _, err := f.catalog.CreateCustomer(ctx, domain.Customer{Name: "Zainab", LoyaltyPoints: 1200}); err != nil {
		t.Fatal(err)
	}

	found, err := f.catalog.ListCustomers(ctx, "zain")
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 || found[0].Tier() != "vip" {
		t.Fatalf("unexpected customers: %v", found)
	}
	all, _ := f.catalog.ListCustomers(ctx, "")
	if len(all) != 2 {
		t.Fatalf("expected 2 customers, got %d", len(all))
	}

	if _, err := f.catalog.CreateEmployee(ctx, domain.Employee{}); err != ErrInvalidInput {
		t.Fatalf("expected invalid input, got %v", err)
	}
	employees, _ := f.catalog.ListEmployees(ctx)
	if len(employees) != 1 || employees[0].Name != "Omar" {
		t.Fatalf("unexpected employees: %v", employees)
	}
	if _, err := f.catalog.GetEmployee(ctx, 42); err != repository.ErrNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
