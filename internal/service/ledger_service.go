package service

import (
	"fmt"
	"time"

	"context"

	"credit-exchange/internal/core/domain"
	"credit-exchange/internal/core/ports"
	"credit-exchange/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

// LedgerServiceImpl implements ports.Ledger. Every balance mutation in the
// system funnels through ApplyDelta, Hold, or Release, always under the
// balance row lock of the caller's transaction.
type LedgerServiceImpl struct {
	repo ports.LedgerRepository
	log  zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(repo ports.LedgerRepository, log zerolog.Logger) *LedgerServiceImpl {
	return &LedgerServiceImpl{repo: repo, log: log}
}

// ApplyDelta appends one ledger entry and updates the balance projection.
// A negative delta that exceeds the available balance fails with
// InsufficientBalance and writes nothing. After every append the
// projection is verified against the recomputed delta sum; a mismatch is
// escalated as a ledger invariant violation and aborts the transaction.
func (s *LedgerServiceImpl) ApplyDelta(
	ctx context.Context,
	tx pgx.Tx,
	accountID uuid.UUID,
	asset string,
	delta decimal.Decimal,
	reason domain.LedgerReason,
	reference string,
) (*domain.LedgerEntry, error) {
	bal, err := s.repo.GetBalanceForUpdate(ctx, tx, accountID, asset)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock balance: %w", err))
	}

	newAvailable := bal.Available.Add(delta)
	if newAvailable.IsNegative() {
		return nil, apperror.ErrInsufficientBalance()
	}

	entry := &domain.LedgerEntry{
		ID:        uuid.New(),
		AccountID: accountID,
		Asset:     asset,
		Delta:     delta,
		Reason:    reason,
		Reference: reference,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.AppendEntry(ctx, tx, entry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("append ledger entry: %w", err))
	}

	bal.Available = newAvailable
	bal.UpdatedAt = entry.CreatedAt
	if err := s.repo.UpsertBalance(ctx, tx, bal); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}

	// Recompute-or-verify: the cached projection must equal the ledger sum.
	sum, err := s.repo.SumDeltas(ctx, tx, accountID, asset)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("sum deltas: %w", err))
	}
	if !sum.Equal(bal.Total()) {
		s.log.Error().
			Str("account_id", accountID.String()).
			Str("asset", asset).
			Str("ledger_sum", sum.String()).
			Str("projection", bal.Total().String()).
			Msg("balance projection diverged from ledger sum")
		return nil, apperror.ErrLedgerInvariant(
			fmt.Errorf("account %s asset %s: ledger sum %s != projection %s",
				accountID, asset, sum, bal.Total()))
	}

	return entry, nil
}

// Hold moves quantity from available to reserved. Holds back resting
// orders so settlement can never fail for insufficient funds; they are
// not ledger entries because the account's total is unchanged.
func (s *LedgerServiceImpl) Hold(
	ctx context.Context,
	tx pgx.Tx,
	accountID uuid.UUID,
	asset string,
	quantity decimal.Decimal,
) error {
	if !quantity.IsPositive() {
		return apperror.ErrInvalidQuantity()
	}

	bal, err := s.repo.GetBalanceForUpdate(ctx, tx, accountID, asset)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock balance: %w", err))
	}
	if bal.Available.LessThan(quantity) {
		return apperror.ErrInsufficientBalance()
	}

	bal.Available = bal.Available.Sub(quantity)
	bal.Reserved = bal.Reserved.Add(quantity)
	bal.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpsertBalance(ctx, tx, bal); err != nil {
		return apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}
	return nil
}

// Release moves quantity from reserved back to available, on cancel or at
// settlement when the hold is unwound.
func (s *LedgerServiceImpl) Release(
	ctx context.Context,
	tx pgx.Tx,
	accountID uuid.UUID,
	asset string,
	quantity decimal.Decimal,
) error {
	if !quantity.IsPositive() {
		return apperror.ErrInvalidQuantity()
	}

	bal, err := s.repo.GetBalanceForUpdate(ctx, tx, accountID, asset)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock balance: %w", err))
	}
	if bal.Reserved.LessThan(quantity) {
		return apperror.ErrInsufficientReservation()
	}

	bal.Reserved = bal.Reserved.Sub(quantity)
	bal.Available = bal.Available.Add(quantity)
	bal.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpsertBalance(ctx, tx, bal); err != nil {
		return apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}
	return nil
}

// BalanceOf returns the current balance projection. Unknown pairs read as
// zero rather than an error.
func (s *LedgerServiceImpl) BalanceOf(ctx context.Context, accountID uuid.UUID, asset string) (*domain.Balance, error) {
	bal, err := s.repo.GetBalance(ctx, accountID, asset)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get balance: %w", err))
	}
	if bal == nil {
		return &domain.Balance{
			AccountID: accountID,
			Asset:     asset,
			Available: decimal.Zero,
			Reserved:  decimal.Zero,
		}, nil
	}
	return bal, nil
}

// History returns ledger entries after the given sequence number, in
// append order. The keyset cursor makes interrupted reads restartable.
func (s *LedgerServiceImpl) History(ctx context.Context, accountID uuid.UUID, asset string, afterSeq int64, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	entries, err := s.repo.History(ctx, accountID, asset, afterSeq, limit)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("ledger history: %w", err))
	}
	return entries, nil
}
