package service

import (
	"context"
	"fmt"
	"time"

	"credit-exchange/config"
	"credit-exchange/internal/core/domain"
	"credit-exchange/internal/core/ports"
	"credit-exchange/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RateTableService implements ports.RateTable on top of the persisted rate
// table. The table is owned by an external pricing collaborator; this
// service holds the local copy, seeded from configuration at startup and
// updated through Upsert when new versions arrive.
type RateTableService struct {
	repo ports.RateRepository
	log  zerolog.Logger
}

// NewRateTableService creates a new RateTableService.
func NewRateTableService(repo ports.RateRepository, log zerolog.Logger) *RateTableService {
	return &RateTableService{repo: repo, log: log}
}

// RateFor resolves the newest rate version effective at the given instant.
// A subtype-specific rate wins over the credit type's default; the
// repository handles the fallback.
func (s *RateTableService) RateFor(ctx context.Context, creditType, subtype string, at time.Time) (*domain.Rate, error) {
	rate, err := s.repo.FindEffective(ctx, creditType, subtype, at)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find effective rate: %w", err))
	}
	if rate == nil {
		return nil, apperror.ErrUnknownRate(creditType, subtype)
	}
	return rate, nil
}

// Seed loads configured rates into the table. Existing rows with the same
// (credit type, subtype, version) key keep any runtime-supplied values;
// Upsert is a no-op for them.
func (s *RateTableService) Seed(ctx context.Context, rates []config.RateConfig) error {
	for _, rc := range rates {
		perUnit, err := decimal.NewFromString(rc.CreditsPerUnit)
		if err != nil {
			return fmt.Errorf("rate %s/%s: invalid credits_per_unit %q: %w",
				rc.CreditType, rc.Subtype, rc.CreditsPerUnit, err)
		}
		if !perUnit.IsPositive() {
			return fmt.Errorf("rate %s/%s: credits_per_unit must be positive, got %s",
				rc.CreditType, rc.Subtype, perUnit)
		}

		effective := time.Time{}
		if rc.EffectiveFrom != "" {
			effective, err = time.Parse(time.RFC3339, rc.EffectiveFrom)
			if err != nil {
				return fmt.Errorf("rate %s/%s: invalid effective_from %q: %w",
					rc.CreditType, rc.Subtype, rc.EffectiveFrom, err)
			}
		}

		rate := &domain.Rate{
			CreditType:     rc.CreditType,
			Subtype:        rc.Subtype,
			CreditsPerUnit: perUnit,
			Version:        rc.Version,
			EffectiveFrom:  effective,
		}
		if err := s.repo.Upsert(ctx, rate); err != nil {
			return fmt.Errorf("seed rate %s/%s v%d: %w", rc.CreditType, rc.Subtype, rc.Version, err)
		}
		s.log.Debug().
			Str("credit_type", rc.CreditType).
			Str("subtype", rc.Subtype).
			Int("version", rc.Version).
			Str("credits_per_unit", perUnit.String()).
			Msg("seeded conversion rate")
	}
	return nil
}
