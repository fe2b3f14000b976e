package postgres

import (
	"context"
	"errors"
	"fmt"

	"credit-exchange/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// LedgerRepo implements ports.LedgerRepository. The ledger_entries table
// is append-only: no UPDATE or DELETE is ever issued against it.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// AppendEntry inserts a ledger entry and assigns its global sequence
// number from the table's BIGSERIAL.
func (r *LedgerRepo) AppendEntry(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	query := `INSERT INTO ledger_entries (id, account_id, asset, delta, reason, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING seq`

	err := tx.QueryRow(ctx, query,
		e.ID, e.AccountID, e.Asset, e.Delta, string(e.Reason), e.Reference, e.CreatedAt,
	).Scan(&e.Seq)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// GetBalance fetches a balance projection row (non-locking read).
func (r *LedgerRepo) GetBalance(ctx context.Context, accountID uuid.UUID, asset string) (*domain.Balance, error) {
	query := `SELECT account_id, asset, available, reserved, updated_at
		FROM balances WHERE account_id = $1 AND asset = $2`

	b := &domain.Balance{}
	err := r.pool.QueryRow(ctx, query, accountID, asset).Scan(
		&b.AccountID, &b.Asset, &b.Available, &b.Reserved, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return b, nil
}

// GetBalanceForUpdate fetches a balance row with pessimistic locking,
// creating a zero row first if the pair has never been seen. The insert
// makes first-touch appends serialize on the row lock like any other.
// This MUST be called within a transaction.
func (r *LedgerRepo) GetBalanceForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, asset string) (*domain.Balance, error) {
	ensure := `INSERT INTO balances (account_id, asset, available, reserved, updated_at)
		VALUES ($1, $2, 0, 0, NOW())
		ON CONFLICT (account_id, asset) DO NOTHING`
	if _, err := tx.Exec(ctx, ensure, accountID, asset); err != nil {
		return nil, fmt.Errorf("ensure balance row: %w", err)
	}

	query := `SELECT account_id, asset, available, reserved, updated_at
		FROM balances WHERE account_id = $1 AND asset = $2 FOR UPDATE`

	b := &domain.Balance{}
	err := tx.QueryRow(ctx, query, accountID, asset).Scan(
		&b.AccountID, &b.Asset, &b.Available, &b.Reserved, &b.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get balance for update: %w", err)
	}
	return b, nil
}

// UpsertBalance writes the balance projection within a transaction.
func (r *LedgerRepo) UpsertBalance(ctx context.Context, tx pgx.Tx, b *domain.Balance) error {
	query := `INSERT INTO balances (account_id, asset, available, reserved, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account_id, asset)
		DO UPDATE SET available = EXCLUDED.available, reserved = EXCLUDED.reserved, updated_at = EXCLUDED.updated_at`

	_, err := tx.Exec(ctx, query, b.AccountID, b.Asset, b.Available, b.Reserved, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert balance: %w", err)
	}
	return nil
}

// SumDeltas recomputes the ledger total for one (account, asset) pair.
func (r *LedgerRepo) SumDeltas(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, asset string) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(delta), 0) FROM ledger_entries WHERE account_id = $1 AND asset = $2`

	var sum decimal.Decimal
	if err := tx.QueryRow(ctx, query, accountID, asset).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("sum ledger deltas: %w", err)
	}
	return sum, nil
}

// History returns entries after the given sequence number in append order.
func (r *LedgerRepo) History(ctx context.Context, accountID uuid.UUID, asset string, afterSeq int64, limit int) ([]domain.LedgerEntry, error) {
	query := `SELECT seq, id, account_id, asset, delta, reason, reference, created_at
		FROM ledger_entries
		WHERE account_id = $1 AND asset = $2 AND seq > $3
		ORDER BY seq ASC
		LIMIT $4`

	rows, err := r.pool.Query(ctx, query, accountID, asset, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("query ledger history: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var reason string
		if err := rows.Scan(&e.Seq, &e.ID, &e.AccountID, &e.Asset, &e.Delta, &reason, &e.Reference, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.Reason = domain.LedgerReason(reason)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListBalances returns all balance rows for an account.
func (r *LedgerRepo) ListBalances(ctx context.Context, accountID uuid.UUID) ([]domain.Balance, error) {
	query := `SELECT account_id, asset, available, reserved, updated_at
		FROM balances WHERE account_id = $1 ORDER BY asset`

	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("query balances: %w", err)
	}
	defer rows.Close()

	var balances []domain.Balance
	for rows.Next() {
		var b domain.Balance
		if err := rows.Scan(&b.AccountID, &b.Asset, &b.Available, &b.Reserved, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}
