package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pharmacy/internal/domain"
)

// PostgresOrders OrderRepository на таблицах purchase_order и order_item
type PostgresOrders struct{ pg *PostgresDB }

func NewPostgresOrders(pg *PostgresDB) *PostgresOrders { return &PostgresOrders{pg: pg} }

var _ OrderRepository = (*PostgresOrders)(nil)

// Create пишет заголовок и все позиции в одной транзакции (или во внешней, если она уже открыта)
func (r *PostgresOrders) Create(ctx context.Context, o *domain.Order) error {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	return r.pg.inTx(ctx, func(ctx context.Context) error {
		q := r.pg.conn(ctx)
		err := q.QueryRowContext(ctx,
			"INSERT INTO purchase_order (customer_id, employee_id, order_type, total_amount, loyalty_points, created_at)"+
				" VALUES ($1, $2, $3, $4, $5, $6)"+
				" RETURNING id",
			o.CustomerID, o.EmployeeID, string(o.Type), o.Total, o.LoyaltyPoints, o.CreatedAt).Scan(&o.ID)
		if err != nil {
			if pgErrorCode(err) == pgForeignKeyViolation {
				return fmt.Errorf("insert order: %w", ErrNotFound)
			}
			return fmt.Errorf("insert order: %w", err)
		}
		for i, it := range o.Items {
			_, err := q.ExecContext(ctx,
				"INSERT INTO order_item (order_id, line_no, medicine_id, name, quantity, unit_price)"+
					" VALUES ($1, $2, $3, $4, $5, $6)",
				o.ID, i+1, it.MedicineID, it.Name, it.Quantity, it.UnitPrice)
			if err != nil {
				if pgErrorCode(err) == pgForeignKeyViolation {
					return fmt.Errorf("insert order item %d: %w", i+1, ErrNotFound)
				}
				return fmt.Errorf("insert order item %d: %w", i+1, err)
			}
		}
		return nil
	})
}

const orderColumns = "id, customer_id, employee_id, order_type, total_amount, loyalty_points, created_at"

func scanOrder(row rowScanner) (domain.Order, error) {
	var o domain.Order
	var orderType string
	err := row.Scan(&o.ID, &o.CustomerID, &o.EmployeeID, &orderType, &o.Total, &o.LoyaltyPoints, &o.CreatedAt)
	if err != nil {
		return domain.Order{}, err
	}
	o.Type = domain.OrderType(orderType)
	o.CreatedAt = o.CreatedAt.UTC()
	return o, nil
}

func (r *PostgresOrders) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	q := r.pg.conn(ctx)
	o, err := scanOrder(q.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM purchase_order WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}
	if o.Items, err = r.loadItems(ctx, q, o.ID); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *PostgresOrders) ListByCustomer(ctx context.Context, customerID int64) ([]domain.Order, error) {
	q := r.pg.conn(ctx)
	rows, err := q.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM purchase_order WHERE customer_id = $1 ORDER BY id DESC", customerID)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	out := make([]domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	// items are loaded after the header cursor is closed, a tx connection runs one query at a time
	for i := range out {
		if out[i].Items, err = r.loadItems(ctx, q, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *PostgresOrders) loadItems(ctx context.Context, q querier, orderID int64) ([]domain.LineItem, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT medicine_id, name, quantity, unit_price FROM order_item WHERE order_id = $1 ORDER BY line_no",
		orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.LineItem, 0)
	for rows.Next() {
		var it domain.LineItem
		if err := rows.Scan(&it.MedicineID, &it.Name, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}
