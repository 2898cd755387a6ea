package service

import (
	"context"
	"strings"
	"time"

	"pharmacy/internal/domain"
	"pharmacy/internal/repository"
)

// CatalogService инкапсулирует справочники: лекарства, покупатели, сотрудники
type CatalogService struct {
	medicines repository.MedicineRepository
	customers repository.CustomerRepository
	employees repository.EmployeeRepository
}

func NewCatalogService(medicines repository.MedicineRepository, customers repository.CustomerRepository, employees repository.EmployeeRepository) *CatalogService {
	return &CatalogService{medicines: medicines, customers: customers, employees: employees}
}

func validMedicine(m domain.Medicine) bool {
	if strings.TrimSpace(m.Name) == "" || strings.TrimSpace(m.SKU) == "" {
		return false
	}
	if m.Price.IsNegative() || m.Stock < 0 {
		return false
	}
	if m.WholesalePrice.Valid && m.WholesalePrice.Decimal.IsNegative() {
		return false
	}
	return true
}

func (s *CatalogService) CreateMedicine(ctx context.Context, m domain.Medicine) (*domain.Medicine, error) {
	if !validMedicine(m) {
		return nil, ErrInvalidInput
	}
	cp := m
	cp.ID = 0
	if err := s.medicines.Create(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *CatalogService) GetMedicine(ctx context.Context, id int64) (*domain.Medicine, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	return s.medicines.GetByID(ctx, id)
}

func (s *CatalogService) UpdateMedicine(ctx context.Context, m domain.Medicine) (*domain.Medicine, error) {
	if m.ID <= 0 || !validMedicine(m) {
		return nil, ErrInvalidInput
	}
	cp := m
	if err := s.medicines.Update(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

// DeleteMedicine отказывает (repository.ErrInUse), если лекарство уже есть в заказах
func (s *CatalogService) DeleteMedicine(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidInput
	}
	return s.medicines.Delete(ctx, id)
}

func (s *CatalogService) ListMedicines(ctx context.Context, f repository.MedicineFilter) ([]domain.Medicine, error) {
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return nil, ErrInvalidInput
	}
	return s.medicines.List(ctx, f)
}

// ExpiredMedicines лекарства с истёкшим на момент now сроком годности
func (s *CatalogService) ExpiredMedicines(ctx context.Context, now time.Time) ([]domain.Medicine, error) {
	all, err := s.medicines.List(ctx, repository.MedicineFilter{})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Medicine, 0)
	for _, m := range all {
		if m.IsExpired(now) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *CatalogService) CreateCustomer(ctx context.Context, c domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(c.Name) == "" || c.LoyaltyPoints < 0 {
		return nil, ErrInvalidInput
	}
	cp := c
	cp.ID = 0
	if err := s.customers.Create(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *CatalogService) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	return s.customers.GetByID(ctx, id)
}

func (s *CatalogService) ListCustomers(ctx context.Context, nameSubstring string) ([]domain.Customer, error) {
	return s.customers.List(ctx, strings.TrimSpace(nameSubstring))
}

func (s *CatalogService) CreateEmployee(ctx context.Context, e domain.Employee) (*domain.Employee, error) {
	if strings.TrimSpace(e.Name) == "" {
		return nil, ErrInvalidInput
	}
	cp := e
	cp.ID = 0
	if err := s.employees.Create(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *CatalogService) GetEmployee(ctx context.Context, id int64) (*domain.Employee, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	return s.employees.GetByID(ctx, id)
}

func (s *CatalogService) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	return s.employees.List(ctx)
}
