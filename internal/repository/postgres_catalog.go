package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pharmacy/internal/domain"
)

// PostgresMedicines MedicineRepository на таблице medicine
type PostgresMedicines struct{ pg *PostgresDB }

func NewPostgresMedicines(pg *PostgresDB) *PostgresMedicines { return &PostgresMedicines{pg: pg} }

var _ MedicineRepository = (*PostgresMedicines)(nil)

const medicineColumns = "id, name, sku, category, supplier_name, price, wholesale_price, stock, expiry_date"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMedicine(row rowScanner) (domain.Medicine, error) {
	var m domain.Medicine
	var expiry sql.NullTime
	err := row.Scan(&m.ID, &m.Name, &m.SKU, &m.Category, &m.SupplierName,
		&m.Price, &m.WholesalePrice, &m.Stock, &expiry)
	if err != nil {
		return domain.Medicine{}, err
	}
	if expiry.Valid {
		t := expiry.Time
		m.ExpiryDate = &t
	}
	return m, nil
}

func expiryArg(m *domain.Medicine) any {
	if m.ExpiryDate == nil {
		return nil
	}
	return *m.ExpiryDate
}

func (r *PostgresMedicines) Create(ctx context.Context, m *domain.Medicine) error {
	row := r.pg.conn(ctx).QueryRowContext(ctx,
		"INSERT INTO medicine (name, sku, category, supplier_name, price, wholesale_price, stock, expiry_date)"+
			" VALUES ($1, $2, $3, $4, $5, $6, $7, $8)"+
			" RETURNING id",
		m.Name, m.SKU, m.Category, m.SupplierName, m.Price, m.WholesalePrice, m.Stock, expiryArg(m))
	if err := row.Scan(&m.ID); err != nil {
		if pgErrorCode(err) == pgUniqueViolation {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert medicine: %w", err)
	}
	return nil
}

func (r *PostgresMedicines) GetByID(ctx context.Context, id int64) (*domain.Medicine, error) {
	row := r.pg.conn(ctx).QueryRowContext(ctx,
		"SELECT "+medicineColumns+" FROM medicine WHERE id = $1", id)
	m, err := scanMedicine(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query medicine by id: %w", err)
	}
	return &m, nil
}

func (r *PostgresMedicines) Update(ctx context.Context, m *domain.Medicine) error {
	res, err := r.pg.conn(ctx).ExecContext(ctx,
		"UPDATE medicine"+
			" SET name = $1, sku = $2, category = $3, supplier_name = $4,"+
			"     price = $5, wholesale_price = $6, stock = $7, expiry_date = $8"+
			" WHERE id = $9",
		m.Name, m.SKU, m.Category, m.SupplierName, m.Price, m.WholesalePrice, m.Stock, expiryArg(m), m.ID)
	if err != nil {
		if pgErrorCode(err) == pgUniqueViolation {
			return ErrAlreadyExists
		}
		return fmt.Errorf("update medicine: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresMedicines) Delete(ctx context.Context, id int64) error {
	res, err := r.pg.conn(ctx).ExecContext(ctx, "DELETE FROM medicine WHERE id = $1", id)
	if err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			return ErrInUse
		}
		return fmt.Errorf("delete medicine: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresMedicines) List(ctx context.Context, f MedicineFilter) ([]domain.Medicine, error) {
	query := "SELECT " + medicineColumns + " FROM medicine" +
		" WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')" +
		"   AND ($2::numeric IS NULL OR price >= $2)" +
		"   AND ($3::numeric IS NULL OR price <= $3)" +
		" ORDER BY id"
	var minPrice, maxPrice any
	if f.MinPrice != nil {
		minPrice = *f.MinPrice
	}
	if f.MaxPrice != nil {
		maxPrice = *f.MaxPrice
	}
	rows, err := r.pg.conn(ctx).QueryContext(ctx, query, f.NameSubstring, minPrice, maxPrice)
	if err != nil {
		return nil, fmt.Errorf("query medicines: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Medicine, 0)
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan medicine row: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

// DecrementStock списывает остаток одним условным UPDATE, поэтому параллельные списания не уводят его в минус
func (r *PostgresMedicines) DecrementStock(ctx context.Context, id int64, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrStockConflict
	}
	q := r.pg.conn(ctx)
	var left int64
	err := q.QueryRowContext(ctx,
		"UPDATE medicine SET stock = stock - $1"+
			" WHERE id = $2 AND stock >= $1"+
			" RETURNING stock",
		amount, id).Scan(&left)
	if err == nil {
		return left, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		if pgErrorCode(err) == pgCheckViolation {
			return 0, ErrStockConflict
		}
		return 0, fmt.Errorf("decrement stock: %w", err)
	}
	// nothing updated: either the medicine is gone or stock is short
	err = q.QueryRowContext(ctx, "SELECT stock FROM medicine WHERE id = $1", id).Scan(&left)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("query stock: %w", err)
	}
	return left, ErrStockConflict
}

// PostgresCustomers CustomerRepository на таблице customer
type PostgresCustomers struct{ pg *PostgresDB }

func NewPostgresCustomers(pg *PostgresDB) *PostgresCustomers { return &PostgresCustomers{pg: pg} }

var _ CustomerRepository = (*PostgresCustomers)(nil)

func (r *PostgresCustomers) Create(ctx context.Context, c *domain.Customer) error {
	err := r.pg.conn(ctx).QueryRowContext(ctx,
		"INSERT INTO customer (name, phone, loyalty_points) VALUES ($1, $2, $3) RETURNING id",
		c.Name, c.Phone, c.LoyaltyPoints).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

func (r *PostgresCustomers) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	var c domain.Customer
	err := r.pg.conn(ctx).QueryRowContext(ctx,
		"SELECT id, name, phone, loyalty_points FROM customer WHERE id = $1", id).
		Scan(&c.ID, &c.Name, &c.Phone, &c.LoyaltyPoints)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query customer by id: %w", err)
	}
	return &c, nil
}

func (r *PostgresCustomers) List(ctx context.Context, nameSubstring string) ([]domain.Customer, error) {
	rows, err := r.pg.conn(ctx).QueryContext(ctx,
		"SELECT id, name, phone, loyalty_points FROM customer"+
			" WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')"+
			" ORDER BY id",
		nameSubstring)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Customer, 0)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.LoyaltyPoints); err != nil {
			return nil, fmt.Errorf("scan customer row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

func (r *PostgresCustomers) CreditLoyalty(ctx context.Context, id int64, points int64) (int64, error) {
	if points < 0 {
		return 0, ErrInvalidPoints
	}
	var balance int64
	err := r.pg.conn(ctx).QueryRowContext(ctx,
		"UPDATE customer SET loyalty_points = loyalty_points + $1"+
			" WHERE id = $2"+
			" RETURNING loyalty_points",
		points, id).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("credit loyalty: %w", err)
	}
	return balance, nil
}

// PostgresEmployees EmployeeRepository на таблице employee
type PostgresEmployees struct{ pg *PostgresDB }

func NewPostgresEmployees(pg *PostgresDB) *PostgresEmployees { return &PostgresEmployees{pg: pg} }

var _ EmployeeRepository = (*PostgresEmployees)(nil)

func (r *PostgresEmployees) Create(ctx context.Context, e *domain.Employee) error {
	err := r.pg.conn(ctx).QueryRowContext(ctx,
		"INSERT INTO employee (name, role) VALUES ($1, $2) RETURNING id",
		e.Name, e.Role).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert employee: %w", err)
	}
	return nil
}

func (r *PostgresEmployees) GetByID(ctx context.Context, id int64) (*domain.Employee, error) {
	var e domain.Employee
	err := r.pg.conn(ctx).QueryRowContext(ctx,
		"SELECT id, name, role FROM employee WHERE id = $1", id).
		Scan(&e.ID, &e.Name, &e.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query employee by id: %w", err)
	}
	return &e, nil
}

func (r *PostgresEmployees) List(ctx context.Context) ([]domain.Employee, error) {
	rows, err := r.pg.conn(ctx).QueryContext(ctx, "SELECT id, name, role FROM employee ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query employees: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Employee, 0)
	for rows.Next() {
		var e domain.Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.Role); err != nil {
			return nil, fmt.Errorf("scan employee row: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
