package postgres

import (
	"context"
	"errors"
	"fmt"

	"credit-exchange/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OrderRepo implements ports.OrderRepository.
type OrderRepo struct {
	pool Pool
}

// NewOrderRepo creates a new OrderRepo.
func NewOrderRepo(pool Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

const orderColumns = `id, account_id, credit_type, side, price, quantity, remaining, status, seq, created_at, cancelled_at`

// Create inserts a new order within a transaction.
func (r *OrderRepo) Create(ctx context.Context, tx pgx.Tx, o *domain.Order) error {
	query := `INSERT INTO orders (id, account_id, credit_type, side, price, quantity, remaining, status, seq, created_at, cancelled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := tx.Exec(ctx, query,
		o.ID, o.AccountID, o.CreditType, string(o.Side), o.Price,
		o.Quantity, o.Remaining, string(o.Status), o.Seq, o.CreatedAt, o.CancelledAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetByID fetches an order by its UUID.
func (r *OrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	o, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return o, nil
}

// UpdateFill persists an order's post-fill remaining and status.
func (r *OrderRepo) UpdateFill(ctx context.Context, tx pgx.Tx, o *domain.Order) error {
	query := `UPDATE orders SET remaining = $1, status = $2 WHERE id = $3`

	tag, err := tx.Exec(ctx, query, o.Remaining, string(o.Status), o.ID)
	if err != nil {
		return fmt.Errorf("update order fill: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order not found: %s", o.ID)
	}
	return nil
}

// Cancel marks an order cancelled within a transaction.
func (r *OrderRepo) Cancel(ctx context.Context, tx pgx.Tx, o *domain.Order) error {
	query := `UPDATE orders SET status = $1, cancelled_at = $2 WHERE id = $3`

	tag, err := tx.Exec(ctx, query, string(o.Status), o.CancelledAt, o.ID)
	if err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order not found: %s", o.ID)
	}
	return nil
}

// ListOpen returns open and partially filled orders for a credit type in
// arrival order, for book recovery at startup.
func (r *OrderRepo) ListOpen(ctx context.Context, creditType string) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders
		WHERE credit_type = $1 AND status IN ('open', 'partially_filled')
		ORDER BY seq ASC`

	rows, err := r.pool.Query(ctx, query, creditType)
	if err != nil {
		return nil, fmt.Errorf("query open orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrderFromRows(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// MaxSeq returns the highest arrival sequence ever assigned for a credit
// type, across all order states.
func (r *OrderRepo) MaxSeq(ctx context.Context, creditType string) (int64, error) {
	query := `SELECT COALESCE(MAX(seq), 0) FROM orders WHERE credit_type = $1`

	var seq int64
	if err := r.pool.QueryRow(ctx, query, creditType).Scan(&seq); err != nil {
		return 0, fmt.Errorf("max order seq: %w", err)
	}
	return seq, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	o := &domain.Order{}
	var side, status string
	err := row.Scan(
		&o.ID, &o.AccountID, &o.CreditType, &side, &o.Price,
		&o.Quantity, &o.Remaining, &status, &o.Seq, &o.CreatedAt, &o.CancelledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	o.Side = domain.OrderSide(side)
	o.Status = domain.OrderStatus(status)
	return o, nil
}

func scanOrderFromRows(rows pgx.Rows) (*domain.Order, error) {
	o := &domain.Order{}
	var side, status string
	err := rows.Scan(
		&o.ID, &o.AccountID, &o.CreditType, &side, &o.Price,
		&o.Quantity, &o.Remaining, &status, &o.Seq, &o.CreatedAt, &o.CancelledAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}
	o.Side = domain.OrderSide(side)
	o.Status = domain.OrderStatus(status)
	return o, nil
}
