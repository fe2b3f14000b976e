package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Transactor hands out the transactions that multi-leg mutations run
// in: a claim decision plus its mint, or a fill plus its four ledger
// legs. Every leg of one operation shares a single transaction obtained
// here so they commit or roll back together.
type Transactor struct {
	pool Pool
}

// NewTransactor wraps the shared connection pool.
func NewTransactor(pool Pool) *Transactor {
	return &Transactor{pool: pool}
}

// Begin opens a transaction on the pool. Callers defer a rollback
// immediately; rolling back after a successful commit is a no-op.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin settlement tx: %w", err)
	}
	return tx, nil
}
