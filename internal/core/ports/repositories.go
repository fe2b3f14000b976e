package ports

import (
	"context"
	"time"

	"credit-exchange/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=repositories.go -destination=mocks/repositories_mock.go -package=mocks

// ClaimRepository defines persistence operations for verification claims.
// Methods accepting pgx.Tx run inside transaction blocks so that a decision
// and its mint commit or roll back together.
type ClaimRepository interface {
	Create(ctx context.Context, claim *domain.Claim) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Claim, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Claim, error)
	UpdateDecision(ctx context.Context, tx pgx.Tx, claim *domain.Claim) error
	CountVerifiedByAccount(ctx context.Context, accountID uuid.UUID) (int64, error)
}

// LedgerRepository defines persistence for the append-only ledger and the
// balance projection. AppendEntry must assign the global sequence number.
type LedgerRepository interface {
	AppendEntry(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error
	GetBalance(ctx context.Context, accountID uuid.UUID, asset string) (*domain.Balance, error)
	GetBalanceForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, asset string) (*domain.Balance, error)
	UpsertBalance(ctx context.Context, tx pgx.Tx, balance *domain.Balance) error
	// SumDeltas recomputes the ledger total for one (account, asset) pair,
	// inside the same transaction as an append, to verify the projection.
	SumDeltas(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, asset string) (decimal.Decimal, error)
	// History returns entries with Seq > afterSeq in append order, at most
	// limit rows. Keyset pagination keeps the read restartable.
	History(ctx context.Context, accountID uuid.UUID, asset string, afterSeq int64, limit int) ([]domain.LedgerEntry, error)
	ListBalances(ctx context.Context, accountID uuid.UUID) ([]domain.Balance, error)
}

// OrderRepository defines persistence for orders.
type OrderRepository interface {
	Create(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	UpdateFill(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	Cancel(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	// ListOpen returns open and partially filled orders for book recovery,
	// ordered by arrival sequence.
	ListOpen(ctx context.Context, creditType string) ([]domain.Order, error)
	MaxSeq(ctx context.Context, creditType string) (int64, error)
}

// TradeRepository defines persistence for executed trades.
type TradeRepository interface {
	Create(ctx context.Context, tx pgx.Tx, trade *domain.Trade) error
	ListByCreditType(ctx context.Context, creditType string, limit int) ([]domain.Trade, error)
	CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error)
	// MaxSeq returns the highest execution sequence recorded for a credit
	// type. Trades share the per-book counter with orders, so recovery
	// seeds from the larger of the two.
	MaxSeq(ctx context.Context, creditType string) (int64, error)
}

// RateRepository defines persistence for the versioned conversion-rate table.
type RateRepository interface {
	Upsert(ctx context.Context, rate *domain.Rate) error
	// FindEffective returns the newest rate version for (creditType, subtype)
	// whose effective date is at or before the given instant. Falls back to
	// the credit type's default (empty subtype) when no subtype rate exists.
	FindEffective(ctx context.Context, creditType, subtype string, at time.Time) (*domain.Rate, error)
}

// AuditRepository defines persistence for audit logs.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
