package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/efreitasn/minibroker/internal/domain"
	"github.com/efreitasn/minibroker/internal/store"
)

// Compile-time check that OrderRepository implements store.OrderRepository
var _ store.OrderRepository = (*OrderRepository)(nil)

const orderColumns = `order_id, account_id, symbol, order_type, side, quantity, limit_price, status,
	filled_quantity, filled_price, reject_reason, created_at, updated_at`

// OrderRepository is the SQL implementation of store.OrderRepository.
type OrderRepository struct {
	s *Store
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(&o.OrderID, &o.AccountID, &o.Symbol, &o.Type, &o.Side, &o.Quantity, &o.LimitPrice, &o.Status,
		&o.FilledQuantity, &o.FilledPrice, &o.RejectReason, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Get loads one order.
func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	return getOrder(ctx, r.s, r.s.db, id)
}

func getOrder(ctx context.Context, s *Store, q queryer, id string) (*domain.Order, error) {
	o, err := scanOrder(q.QueryRowContext(ctx, s.rebind(`SELECT `+orderColumns+` FROM orders WHERE order_id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return o, nil
}

// ListByAccount returns a page of the account's orders, newest first, and
// the total number of matching orders.
func (r *OrderRepository) ListByAccount(ctx context.Context, accountID string, status *domain.OrderStatus, page, limit int) ([]*domain.Order, int, error) {
	where := `WHERE account_id = ?`
	args := []any{accountID}
	if status != nil {
		where += ` AND status = ?`
		args = append(args, string(*status))
	}

	var total int
	if err := r.s.db.QueryRowContext(ctx, r.s.rebind(`SELECT COUNT(*) FROM orders `+where), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	args = append(args, limit, (page-1)*limit)
	orders, err := r.query(ctx,
		`SELECT `+orderColumns+` FROM orders `+where+` ORDER BY created_at DESC, order_id DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ListPending returns all pending orders, oldest first.
func (r *OrderRepository) ListPending(ctx context.Context) ([]*domain.Order, error) {
	return r.query(ctx, `SELECT `+orderColumns+` FROM orders WHERE status = ? ORDER BY created_at, order_id`,
		string(domain.OrderStatusPending))
}

func (r *OrderRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Order, error) {
	rows, err := r.s.db.QueryContext(ctx, r.s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	result := make([]*domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

func saveOrder(ctx context.Context, s *Store, q queryer, o *domain.Order) error {
	_, err := q.ExecContext(ctx, s.rebind(`INSERT INTO orders (`+orderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (order_id) DO UPDATE SET
			status = excluded.status,
			filled_quantity = excluded.filled_quantity,
			filled_price = excluded.filled_price,
			reject_reason = excluded.reject_reason,
			updated_at = excluded.updated_at`),
		o.OrderID, o.AccountID, o.Symbol, string(o.Type), string(o.Side), o.Quantity, o.LimitPrice, string(o.Status),
		o.FilledQuantity, o.FilledPrice, o.RejectReason, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}
