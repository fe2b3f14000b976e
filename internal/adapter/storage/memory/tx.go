package memory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Transactor implements ports.DBTransactor over the store.
type Transactor struct {
	store *Store
}

// NewTransactor creates a Transactor for the given store.
func NewTransactor(store *Store) *Transactor {
	return &Transactor{store: store}
}

// Begin takes the store mutex and snapshots state for rollback. The
// returned Tx must be committed or rolled back to release the store.
func (t *Transactor) Begin(_ context.Context) (pgx.Tx, error) {
	t.store.mu.Lock()
	return &Tx{store: t.store, snap: t.store.snapshot()}, nil
}

// Tx is an in-memory transaction. It satisfies pgx.Tx so repositories and
// services keep their production signatures; the SQL-level methods are
// unsupported because in-memory repositories never issue SQL.
type Tx struct {
	store *Store
	snap  *snapshot
	done  bool
}

// Commit keeps the mutations made since Begin and releases the store.
func (tx *Tx) Commit(_ context.Context) error {
	if tx.done {
		return pgx.ErrTxClosed
	}
	tx.done = true
	tx.snap = nil
	tx.store.mu.Unlock()
	return nil
}

// Rollback restores the Begin-time snapshot and releases the store.
// Rolling back a finished transaction returns pgx.ErrTxClosed, matching
// the deferred-rollback pattern used by callers.
func (tx *Tx) Rollback(_ context.Context) error {
	if tx.done {
		return pgx.ErrTxClosed
	}
	tx.done = true
	tx.store.restore(tx.snap)
	tx.snap = nil
	tx.store.mu.Unlock()
	return nil
}

var errNotSupported = errors.New("memory: SQL operations not supported")

func (tx *Tx) Begin(_ context.Context) (pgx.Tx, error) {
	return nil, errNotSupported
}

func (tx *Tx) CopyFrom(_ context.Context, _ pgx.Identifier, _ []string, _ pgx.CopyFromSource) (int64, error) {
	return 0, errNotSupported
}

func (tx *Tx) SendBatch(_ context.Context, _ *pgx.Batch) pgx.BatchResults {
	return nil
}

func (tx *Tx) LargeObjects() pgx.LargeObjects {
	return pgx.LargeObjects{}
}

func (tx *Tx) Prepare(_ context.Context, _, _ string) (*pgconn.StatementDescription, error) {
	return nil, errNotSupported
}

func (tx *Tx) Exec(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errNotSupported
}

func (tx *Tx) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	return nil, errNotSupported
}

func (tx *Tx) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	return nil
}

func (tx *Tx) Conn() *pgx.Conn {
	return nil
}
