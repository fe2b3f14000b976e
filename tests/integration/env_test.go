package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"credit-exchange/config"
	"credit-exchange/internal/adapter/http/handler"
	"credit-exchange/internal/adapter/http/middleware"
	"credit-exchange/internal/adapter/storage/memory"
	redisStorage "credit-exchange/internal/adapter/storage/redis"
	"credit-exchange/internal/core/domain"
	"credit-exchange/internal/engine"
	"credit-exchange/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	currency    = "INR"
	eventStream = "credit-exchange:events"
)

// env is a full application instance: in-memory persistence, a real
// miniredis for the cache and event stream, and the production router.
type env struct {
	store      *memory.Store
	transactor *memory.Transactor
	ledger     *service.LedgerServiceImpl
	trading    *service.TradingServiceImpl
	claims     *service.ClaimServiceImpl
	rates      *service.RateTableService
	redis      *goredis.Client
	router     http.Handler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	log := zerolog.Nop()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := memory.NewStore()
	transactor := memory.NewTransactor(store)
	claimRepo := memory.NewClaimRepo(store)
	ledgerRepo := memory.NewLedgerRepo(store)
	orderRepo := memory.NewOrderRepo(store)
	tradeRepo := memory.NewTradeRepo(store)
	rateRepo := memory.NewRateRepo(store)

	catalog := domain.NewCatalog([]domain.CreditType{
		{Code: "plastic-pet", Name: "PET Plastic", Unit: "item"},
		{Code: "water", Name: "Water", Unit: "litre"},
	})

	eventSink := redisStorage.NewEventStream(rdb, config.EventsConfig{
		Stream:     eventStream,
		SigningKey: "integration-test-key",
		MaxLen:     1000,
	})
	dispatcher := service.NewEventDispatcher(eventSink)
	audit := service.NewAuditService(memory.NewAuditRepo(store), log)

	ledgerSvc := service.NewLedgerService(ledgerRepo, log)
	rateSvc := service.NewRateTableService(rateRepo, log)
	claimSvc := service.NewClaimService(claimRepo, ledgerSvc, rateSvc, catalog, transactor, dispatcher, audit, log)
	tradingSvc := service.NewTradingService(orderRepo, tradeRepo, ledgerSvc, catalog, engine.NewBookManager(),
		transactor, dispatcher, audit, currency, log)
	portfolioSvc := service.NewPortfolioService(
		ledgerRepo, tradeRepo, claimRepo,
		redisStorage.NewPortfolioCache(rdb),
		service.NewWeightedScorePolicy(nil),
		currency, log,
	)
	dispatcher.Subscribe(portfolioSvc.HandleEvent)

	router := handler.SetupRouter(handler.RouterDeps{
		ClaimSvc:     claimSvc,
		TradingSvc:   tradingSvc,
		PortfolioSvc: portfolioSvc,
		Ledger:       ledgerSvc,
		Logger:       log,
	})

	return &env{
		store:      store,
		transactor: transactor,
		ledger:     ledgerSvc,
		trading:    tradingSvc,
		claims:     claimSvc,
		rates:      rateSvc,
		redis:      rdb,
		router:     router,
	}
}

// seedRates loads the default PET conversion rate used across scenarios.
func (e *env) seedRates(t *testing.T) {
	t.Helper()
	require.NoError(t, e.rates.Seed(context.Background(), []config.RateConfig{
		{CreditType: "plastic-pet", CreditsPerUnit: "0.2", Version: 1},
		{CreditType: "water", CreditsPerUnit: "0.5", Version: 1},
	}))
}

// fund credits an account directly through the ledger. Currency enters the
// system out of band (a payment processor), so tests seed it the same way.
func (e *env) fund(t *testing.T, accountID uuid.UUID, asset, qty string) {
	t.Helper()
	ctx := context.Background()
	tx, err := e.transactor.Begin(ctx)
	require.NoError(t, err)
	_, err = e.ledger.ApplyDelta(ctx, tx, accountID, asset, dec(qty), domain.LedgerReasonMint, "test-seed")
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
}

// apiResponse is the standard success/error envelope.
type apiResponse struct {
	Data      json.RawMessage `json:"data"`
	ErrorCode string          `json:"error_code"`
	Message   string          `json:"message"`
}

func (e *env) do(t *testing.T, method, path string, accountID *uuid.UUID, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if accountID != nil {
		req.Header.Set(middleware.HeaderAccountID, accountID.String())
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
