package handler

import (
	"credit-exchange/internal/adapter/http/middleware"
	redisStore "credit-exchange/internal/adapter/storage/redis"
	"credit-exchange/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	ClaimSvc       ports.ClaimService
	TradingSvc     ports.TradingService
	PortfolioSvc   ports.PortfolioService
	Ledger         ports.Ledger
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep, verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// Write operations carry the caller's identity in the gateway-stamped
	// account header.
	accountAuth := middleware.AccountAuth()

	// API v1 routes
	v1 := r.Group("/api/v1")

	claimHandler := NewClaimHandler(deps.ClaimSvc)
	claims := v1.Group("/claims")
	{
		claims.POST("", accountAuth, rl("claims"), claimHandler.SubmitClaim)
		claims.POST("/:id/decision", rl("claims_decision"), claimHandler.DecideClaim)
		claims.GET("/:id", rl("read"), claimHandler.GetClaim)
	}

	orderHandler := NewOrderHandler(deps.TradingSvc)
	orders := v1.Group("/orders")
	{
		orders.POST("", accountAuth, rl("orders"), orderHandler.PlaceOrder)
		orders.DELETE("/:id", accountAuth, rl("orders_cancel"), orderHandler.CancelOrder)
		orders.GET("/:id", rl("read"), orderHandler.GetOrder)
	}

	v1.GET("/book/:credit_type", rl("read"), orderHandler.GetBook)

	accountHandler := NewAccountHandler(deps.Ledger, deps.PortfolioSvc)
	accounts := v1.Group("/accounts/:id")
	{
		accounts.GET("/balances/:asset", rl("read"), accountHandler.GetBalance)
		accounts.GET("/ledger", rl("read"), accountHandler.GetLedgerHistory)
		accounts.GET("/portfolio", rl("read"), accountHandler.GetPortfolio)
	}

	return r
}
