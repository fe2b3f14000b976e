package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"credit-exchange/config"
	httpHandler "credit-exchange/internal/adapter/http/handler"
	pgStorage "credit-exchange/internal/adapter/storage/postgres"
	redisStorage "credit-exchange/internal/adapter/storage/redis"
	"credit-exchange/internal/core/domain"
	"credit-exchange/internal/core/ports"
	"credit-exchange/internal/engine"
	"credit-exchange/internal/service"
	"credit-exchange/pkg/logger"

	"github.com/shopspring/decimal"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("currency", cfg.Market.Currency).
		Msg("Starting Credit Exchange")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	claimRepo := pgStorage.NewClaimRepo(pool)
	ledgerRepo := pgStorage.NewLedgerRepo(pool)
	orderRepo := pgStorage.NewOrderRepo(pool)
	tradeRepo := pgStorage.NewTradeRepo(pool)
	rateRepo := pgStorage.NewRateRepo(pool)
	auditRepo := pgStorage.NewAuditRepository(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	portfolioCache := redisStorage.NewPortfolioCache(rdb)
	eventSink := redisStorage.NewEventStream(rdb, cfg.Events)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Seed the credit type catalog from configuration
	creditTypes := make([]domain.CreditType, 0, len(cfg.Market.CreditTypes))
	for _, ct := range cfg.Market.CreditTypes {
		creditTypes = append(creditTypes, domain.CreditType{
			Code: ct.Code,
			Name: ct.Name,
			Unit: ct.Unit,
		})
	}
	catalog := domain.NewCatalog(creditTypes)

	// Event dispatcher: Redis Streams sink + in-process subscribers
	dispatcher := service.NewEventDispatcher(eventSink)

	// Initialize business services
	auditSvc := service.NewAuditService(auditRepo, log)
	ledgerSvc := service.NewLedgerService(ledgerRepo, log)
	rateSvc := service.NewRateTableService(rateRepo, log)
	if err := rateSvc.Seed(ctx, cfg.Market.Rates); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed conversion rates")
	}

	claimSvc := service.NewClaimService(claimRepo, ledgerSvc, rateSvc, catalog, transactor, dispatcher, auditSvc, log)
	tradingSvc := service.NewTradingService(orderRepo, tradeRepo, ledgerSvc, catalog, engine.NewBookManager(), transactor, dispatcher, auditSvc, cfg.Market.Currency, log)
	portfolioSvc := service.NewPortfolioService(
		ledgerRepo,
		tradeRepo,
		claimRepo,
		portfolioCache,
		service.NewWeightedScorePolicy(map[string]decimal.Decimal{}),
		cfg.Market.Currency,
		log,
	)
	dispatcher.Subscribe(portfolioSvc.HandleEvent)

	// Rebuild in-memory order books before accepting traffic
	if err := tradingSvc.RecoverBooks(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to recover order books")
	}
	log.Info().Msg("Order books recovered")

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		ClaimSvc:       claimSvc,
		TradingSvc:     tradingSvc,
		PortfolioSvc:   portfolioSvc,
		Ledger:         ledgerSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
