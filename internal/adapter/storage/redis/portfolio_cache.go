package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"credit-exchange/internal/core/domain"
	"credit-exchange/internal/core/ports"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// PortfolioCache stores computed portfolio read models in Redis.
type PortfolioCache struct {
	client *goredis.Client
	prefix string
}

// NewPortfolioCache creates a Redis-backed portfolio cache.
func NewPortfolioCache(client *goredis.Client) ports.PortfolioCache {
	return &PortfolioCache{
		client: client,
		prefix: "portfolio:",
	}
}

// Get retrieves a cached portfolio. Returns nil, nil on cache miss.
func (c *PortfolioCache) Get(ctx context.Context, accountID uuid.UUID) (*domain.Portfolio, error) {
	data, err := c.client.Get(ctx, c.prefix+accountID.String()).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis portfolio get: %w", err)
	}

	var portfolio domain.Portfolio
	if err := json.Unmarshal(data, &portfolio); err != nil {
		return nil, fmt.Errorf("unmarshaling cached portfolio: %w", err)
	}
	return &portfolio, nil
}

// Set stores a portfolio with the given TTL.
func (c *PortfolioCache) Set(ctx context.Context, portfolio *domain.Portfolio, ttl time.Duration) error {
	data, err := json.Marshal(portfolio)
	if err != nil {
		return fmt.Errorf("marshaling portfolio: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+portfolio.AccountID.String(), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis portfolio set: %w", err)
	}
	return nil
}
