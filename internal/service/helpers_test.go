package service

import (
	"context"
	"testing"

	"credit-exchange/internal/adapter/storage/memory"
	"credit-exchange/internal/core/domain"
	"credit-exchange/internal/engine"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const testCurrency = "INR"

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// stack wires the full service layer over the in-memory adapter.
type stack struct {
	store      *memory.Store
	transactor *memory.Transactor
	claimRepo  *memory.ClaimRepo
	ledgerRepo *memory.LedgerRepo
	orderRepo  *memory.OrderRepo
	tradeRepo  *memory.TradeRepo
	rateRepo   *memory.RateRepo
	catalog    *domain.Catalog
	dispatcher *EventDispatcher
	ledger     *LedgerServiceImpl
	rates      *RateTableService
	claims     *ClaimServiceImpl
	trading    *TradingServiceImpl
}

func newStack(t *testing.T) *stack {
	t.Helper()
	log := zerolog.Nop()

	s := &stack{store: memory.NewStore()}
	s.transactor = memory.NewTransactor(s.store)
	s.claimRepo = memory.NewClaimRepo(s.store)
	s.ledgerRepo = memory.NewLedgerRepo(s.store)
	s.orderRepo = memory.NewOrderRepo(s.store)
	s.tradeRepo = memory.NewTradeRepo(s.store)
	s.rateRepo = memory.NewRateRepo(s.store)

	s.catalog = domain.NewCatalog([]domain.CreditType{
		{Code: "plastic-pet", Name: "PET Plastic", Unit: "item"},
		{Code: "water", Name: "Water", Unit: "litre"},
	})
	s.dispatcher = NewEventDispatcher(nil)
	audit := NewAuditService(nil, log)

	s.ledger = NewLedgerService(s.ledgerRepo, log)
	s.rates = NewRateTableService(s.rateRepo, log)
	s.claims = NewClaimService(s.claimRepo, s.ledger, s.rates, s.catalog, s.transactor, s.dispatcher, audit, log)
	s.trading = NewTradingService(s.orderRepo, s.tradeRepo, s.ledger, s.catalog, engine.NewBookManager(),
		s.transactor, s.dispatcher, audit, testCurrency, log)
	return s
}

// mint credits an account directly through the ledger, bypassing the
// verification gate, to set up trading scenarios.
func (s *stack) mint(t *testing.T, accountID uuid.UUID, asset, qty string) {
	t.Helper()
	ctx := context.Background()
	tx, err := s.transactor.Begin(ctx)
	require.NoError(t, err)
	_, err = s.ledger.ApplyDelta(ctx, tx, accountID, asset, dec(qty), domain.LedgerReasonMint, "test-seed")
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
}

func (s *stack) balance(t *testing.T, accountID uuid.UUID, asset string) *domain.Balance {
	t.Helper()
	bal, err := s.ledger.BalanceOf(context.Background(), accountID, asset)
	require.NoError(t, err)
	return bal
}
