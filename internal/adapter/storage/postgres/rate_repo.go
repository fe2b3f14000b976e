package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"credit-exchange/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// RateRepo implements ports.RateRepository.
type RateRepo struct {
	pool Pool
}

// NewRateRepo creates a new RateRepo.
func NewRateRepo(pool Pool) *RateRepo {
	return &RateRepo{pool: pool}
}

// Upsert writes a rate version. Replays of the same (credit type,
// subtype, version) key overwrite in place, so seeding is idempotent.
func (r *RateRepo) Upsert(ctx context.Context, rate *domain.Rate) error {
	query := `INSERT INTO rates (credit_type, subtype, credits_per_unit, version, effective_from)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (credit_type, subtype, version)
		DO UPDATE SET credits_per_unit = EXCLUDED.credits_per_unit, effective_from = EXCLUDED.effective_from`

	_, err := r.pool.Exec(ctx, query,
		rate.CreditType, rate.Subtype, rate.CreditsPerUnit, rate.Version, rate.EffectiveFrom,
	)
	if err != nil {
		return fmt.Errorf("upsert rate: %w", err)
	}
	return nil
}

// FindEffective returns the newest version effective at the given
// instant, preferring a subtype-specific rate over the default.
func (r *RateRepo) FindEffective(ctx context.Context, creditType, subtype string, at time.Time) (*domain.Rate, error) {
	rate, err := r.findEffective(ctx, creditType, subtype, at)
	if err != nil || rate != nil {
		return rate, err
	}
	if subtype != "" {
		return r.findEffective(ctx, creditType, "", at)
	}
	return nil, nil
}

func (r *RateRepo) findEffective(ctx context.Context, creditType, subtype string, at time.Time) (*domain.Rate, error) {
	query := `SELECT credit_type, subtype, credits_per_unit, version, effective_from
		FROM rates
		WHERE credit_type = $1 AND subtype = $2 AND effective_from <= $3
		ORDER BY version DESC
		LIMIT 1`

	rate := &domain.Rate{}
	err := r.pool.QueryRow(ctx, query, creditType, subtype, at).Scan(
		&rate.CreditType, &rate.Subtype, &rate.CreditsPerUnit, &rate.Version, &rate.EffectiveFrom,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find effective rate: %w", err)
	}
	return rate, nil
}
