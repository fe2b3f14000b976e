package postgres

import (
	"context"
	"errors"
	"fmt"

	"credit-exchange/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ClaimRepo implements ports.ClaimRepository.
type ClaimRepo struct {
	pool Pool
}

// NewClaimRepo creates a new ClaimRepo.
func NewClaimRepo(pool Pool) *ClaimRepo {
	return &ClaimRepo{pool: pool}
}

const claimColumns = `id, account_id, credit_type, subtype, raw_quantity, evidence_refs,
	status, minted_quantity, rate_version, decided_by, created_at, decided_at`

// Create inserts a new pending claim.
func (r *ClaimRepo) Create(ctx context.Context, c *domain.Claim) error {
	query := `INSERT INTO claims (id, account_id, credit_type, subtype, raw_quantity, evidence_refs,
			status, minted_quantity, rate_version, decided_by, created_at, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.AccountID, c.CreditType, c.Subtype, c.RawQuantity, c.EvidenceRefs,
		string(c.Status), c.MintedQuantity, c.RateVersion, c.DecidedBy, c.CreatedAt, c.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

// GetByID fetches a claim by its UUID (without locking).
func (r *ClaimRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE id = $1`
	return scanClaim(r.pool.QueryRow(ctx, query, id))
}

// GetByIDForUpdate fetches a claim with pessimistic locking. Concurrent
// decisions for the same claim serialize on this row lock.
// This MUST be called within a transaction.
func (r *ClaimRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE id = $1 FOR UPDATE`
	return scanClaim(tx.QueryRow(ctx, query, id))
}

// UpdateDecision persists the decision fields within a transaction.
func (r *ClaimRepo) UpdateDecision(ctx context.Context, tx pgx.Tx, c *domain.Claim) error {
	query := `UPDATE claims
		SET status = $1, minted_quantity = $2, rate_version = $3, decided_by = $4, decided_at = $5
		WHERE id = $6`

	tag, err := tx.Exec(ctx, query,
		string(c.Status), c.MintedQuantity, c.RateVersion, c.DecidedBy, c.DecidedAt, c.ID,
	)
	if err != nil {
		return fmt.Errorf("update claim decision: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("claim not found: %s", c.ID)
	}
	return nil
}

// CountVerifiedByAccount counts an account's verified claims.
func (r *ClaimRepo) CountVerifiedByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM claims WHERE account_id = $1 AND status = 'verified'`

	var n int64
	if err := r.pool.QueryRow(ctx, query, accountID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count verified claims: %w", err)
	}
	return n, nil
}

func scanClaim(row pgx.Row) (*domain.Claim, error) {
	c := &domain.Claim{}
	var status string
	err := row.Scan(
		&c.ID, &c.AccountID, &c.CreditType, &c.Subtype, &c.RawQuantity, &c.EvidenceRefs,
		&status, &c.MintedQuantity, &c.RateVersion, &c.DecidedBy, &c.CreatedAt, &c.DecidedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan claim: %w", err)
	}
	c.Status = domain.ClaimStatus(status)
	return c, nil
}
