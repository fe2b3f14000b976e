package service

import (
	"context"
	"fmt"
	"time"

	"credit-exchange/internal/core/domain"
	"credit-exchange/internal/core/ports"
	"credit-exchange/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const portfolioCacheTTL = 5 * time.Minute

// ScorePolicy computes an account's impact score from its portfolio. The
// scoring formula changes with program rules, so it is pluggable rather
// than baked into the fold.
type ScorePolicy interface {
	Score(creditsByType map[string]decimal.Decimal, collections, trades int64) decimal.Decimal
}

// WeightedScorePolicy scores holdings with per-credit-type weights plus a
// flat bonus per verified collection. Unknown credit types weigh 1.
type WeightedScorePolicy struct {
	Weights         map[string]decimal.Decimal
	CollectionBonus decimal.Decimal
}

// NewWeightedScorePolicy creates a policy with the given weights and a
// bonus of 10 per verified collection.
func NewWeightedScorePolicy(weights map[string]decimal.Decimal) *WeightedScorePolicy {
	return &WeightedScorePolicy{
		Weights:         weights,
		CollectionBonus: decimal.NewFromInt(10),
	}
}

func (p *WeightedScorePolicy) Score(creditsByType map[string]decimal.Decimal, collections, _ int64) decimal.Decimal {
	score := decimal.Zero
	for creditType, qty := range creditsByType {
		weight, ok := p.Weights[creditType]
		if !ok {
			weight = decimal.NewFromInt(1)
		}
		score = score.Add(qty.Mul(weight))
	}
	return score.Add(p.CollectionBonus.Mul(decimal.NewFromInt(collections)))
}

// PortfolioServiceImpl maintains the derived portfolio read model. Reads
// serve from cache; domain events fold their deltas into the affected
// accounts' cached entries. The model is eventually consistent with the
// ledger and never consulted for balance checks.
type PortfolioServiceImpl struct {
	ledgerRepo ports.LedgerRepository
	tradeRepo  ports.TradeRepository
	claimRepo  ports.ClaimRepository
	cache      ports.PortfolioCache
	policy     ScorePolicy
	currency   string
	log        zerolog.Logger
}

// NewPortfolioService creates a new PortfolioServiceImpl.
func NewPortfolioService(
	ledgerRepo ports.LedgerRepository,
	tradeRepo ports.TradeRepository,
	claimRepo ports.ClaimRepository,
	cache ports.PortfolioCache,
	policy ScorePolicy,
	currency string,
	log zerolog.Logger,
) *PortfolioServiceImpl {
	return &PortfolioServiceImpl{
		ledgerRepo: ledgerRepo,
		tradeRepo:  tradeRepo,
		claimRepo:  claimRepo,
		cache:      cache,
		policy:     policy,
		currency:   currency,
		log:        log,
	}
}

// GetPortfolio returns the cached read model, rebuilding on miss.
func (s *PortfolioServiceImpl) GetPortfolio(ctx context.Context, accountID uuid.UUID) (*domain.Portfolio, error) {
	cached, err := s.cache.Get(ctx, accountID)
	if err != nil {
		s.log.Warn().Err(err).Str("account_id", accountID.String()).Msg("portfolio cache read failed")
	}
	if cached != nil {
		return cached, nil
	}
	return s.refresh(ctx, accountID)
}

// HandleEvent folds a domain event into the cached read model for every
// account it touches. Only a cache miss pays for a full rebuild from
// storage. Failures are logged and dropped; the next read rebuilds.
func (s *PortfolioServiceImpl) HandleEvent(ctx context.Context, event domain.Event) {
	for _, accountID := range affectedAccounts(event) {
		if err := s.fold(ctx, accountID, event); err != nil {
			s.log.Warn().Err(err).
				Str("account_id", accountID.String()).
				Str("event_type", string(event.Type)).
				Msg("portfolio fold failed")
		}
	}
}

// fold applies one event's deltas to the cached portfolio. A missing or
// unreadable cache entry falls back to a rebuild, which also recovers
// entries evicted mid-stream.
func (s *PortfolioServiceImpl) fold(ctx context.Context, accountID uuid.UUID, event domain.Event) error {
	cached, err := s.cache.Get(ctx, accountID)
	if err != nil || cached == nil {
		_, err := s.refresh(ctx, accountID)
		return err
	}
	if cached.CreditsByType == nil {
		cached.CreditsByType = make(map[string]decimal.Decimal)
	}

	switch payload := event.Payload.(type) {
	case domain.ClaimDecidedEvent:
		cached.CreditsByType[payload.CreditType] = cached.CreditsByType[payload.CreditType].Add(payload.MintedQuantity)
		cached.CollectionsCount++
	case domain.TradeExecutedEvent:
		trade := payload.Trade
		cached.TradeCount++
		// A self-trade counts once and moves nothing.
		if trade.BuyerID != trade.SellerID {
			notional := trade.Notional()
			if trade.BuyerID == accountID {
				cached.CreditsByType[trade.CreditType] = cached.CreditsByType[trade.CreditType].Add(trade.Quantity)
				cached.CurrencyValue = cached.CurrencyValue.Sub(notional)
			} else {
				cached.CreditsByType[trade.CreditType] = cached.CreditsByType[trade.CreditType].Sub(trade.Quantity)
				cached.CurrencyValue = cached.CurrencyValue.Add(notional)
			}
		}
	default:
		return nil
	}

	cached.ImpactScore = s.policy.Score(cached.CreditsByType, cached.CollectionsCount, cached.TradeCount)
	cached.UpdatedAt = time.Now().UTC()
	return s.cache.Set(ctx, cached, portfolioCacheTTL)
}

func affectedAccounts(event domain.Event) []uuid.UUID {
	switch payload := event.Payload.(type) {
	case domain.ClaimDecidedEvent:
		if payload.Outcome == domain.ClaimOutcomeVerified {
			return []uuid.UUID{payload.AccountID}
		}
		return nil
	case domain.TradeExecutedEvent:
		if payload.Trade.BuyerID == payload.Trade.SellerID {
			return []uuid.UUID{payload.Trade.BuyerID}
		}
		return []uuid.UUID{payload.Trade.BuyerID, payload.Trade.SellerID}
	default:
		// Order status changes move holds, not totals.
		return nil
	}
}

// refresh folds a fresh portfolio from balances, trades, and verified
// claims, then caches it.
func (s *PortfolioServiceImpl) refresh(ctx context.Context, accountID uuid.UUID) (*domain.Portfolio, error) {
	balances, err := s.ledgerRepo.ListBalances(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list balances: %w", err))
	}
	tradeCount, err := s.tradeRepo.CountByAccount(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("count trades: %w", err))
	}
	collections, err := s.claimRepo.CountVerifiedByAccount(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("count verified claims: %w", err))
	}

	portfolio := &domain.Portfolio{
		AccountID:        accountID,
		CreditsByType:    make(map[string]decimal.Decimal),
		CurrencyValue:    decimal.Zero,
		TradeCount:       tradeCount,
		CollectionsCount: collections,
		UpdatedAt:        time.Now().UTC(),
	}
	for i := range balances {
		bal := &balances[i]
		if bal.Asset == s.currency {
			portfolio.CurrencyValue = bal.Total()
			continue
		}
		portfolio.CreditsByType[bal.Asset] = bal.Total()
	}
	portfolio.ImpactScore = s.policy.Score(portfolio.CreditsByType, collections, tradeCount)

	if err := s.cache.Set(ctx, portfolio, portfolioCacheTTL); err != nil {
		s.log.Warn().Err(err).Str("account_id", accountID.String()).Msg("portfolio cache write failed")
	}
	return portfolio, nil
}
