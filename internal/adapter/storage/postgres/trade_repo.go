package postgres

import (
	"context"
	"fmt"

	"credit-exchange/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TradeRepo implements ports.TradeRepository. Trades are immutable; only
// inserts and reads exist.
type TradeRepo struct {
	pool Pool
}

// NewTradeRepo creates a new TradeRepo.
func NewTradeRepo(pool Pool) *TradeRepo {
	return &TradeRepo{pool: pool}
}

// Create inserts a trade within a settlement transaction.
func (r *TradeRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Trade) error {
	query := `INSERT INTO trades (id, credit_type, buy_order_id, sell_order_id, buyer_id, seller_id, quantity, price, seq, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.CreditType, t.BuyOrderID, t.SellOrderID, t.BuyerID, t.SellerID,
		t.Quantity, t.Price, t.Seq, t.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// ListByCreditType returns recent trades, newest first.
func (r *TradeRepo) ListByCreditType(ctx context.Context, creditType string, limit int) ([]domain.Trade, error) {
	query := `SELECT id, credit_type, buy_order_id, sell_order_id, buyer_id, seller_id, quantity, price, seq, executed_at
		FROM trades WHERE credit_type = $1 ORDER BY seq DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, creditType, limit)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		if err := rows.Scan(&t.ID, &t.CreditType, &t.BuyOrderID, &t.SellOrderID,
			&t.BuyerID, &t.SellerID, &t.Quantity, &t.Price, &t.Seq, &t.ExecutedAt); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// MaxSeq returns the highest execution sequence recorded for a credit
// type, for seeding the shared order/trade counter on recovery.
func (r *TradeRepo) MaxSeq(ctx context.Context, creditType string) (int64, error) {
	query := `SELECT COALESCE(MAX(seq), 0) FROM trades WHERE credit_type = $1`

	var seq int64
	if err := r.pool.QueryRow(ctx, query, creditType).Scan(&seq); err != nil {
		return 0, fmt.Errorf("max trade seq: %w", err)
	}
	return seq, nil
}

// CountByAccount counts trades where the account was buyer or seller.
func (r *TradeRepo) CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM trades WHERE buyer_id = $1 OR seller_id = $1`

	var n int64
	if err := r.pool.QueryRow(ctx, query, accountID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count trades: %w", err)
	}
	return n, nil
}
