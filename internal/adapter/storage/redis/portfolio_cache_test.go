package redis_test

import (
	"context"
	"testing"
	"time"

	"credit-exchange/internal/adapter/storage/redis"
	"credit-exchange/internal/core/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortfolioCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	cache := redis.NewPortfolioCache(client)
	ctx := context.Background()

	t.Run("miss returns nil without error", func(t *testing.T) {
		got, err := cache.Get(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("set then get round-trips", func(t *testing.T) {
		portfolio := &domain.Portfolio{
			AccountID: uuid.New(),
			CreditsByType: map[string]decimal.Decimal{
				"plastic-pet": decimal.NewFromInt(100),
				"water":       decimal.NewFromInt(50),
			},
			CurrencyValue:    decimal.NewFromInt(7500),
			TradeCount:       3,
			CollectionsCount: 2,
			ImpactScore:      decimal.NewFromInt(250),
			UpdatedAt:        time.Now().UTC().Truncate(time.Second),
		}
		require.NoError(t, cache.Set(ctx, portfolio, time.Minute))

		got, err := cache.Get(ctx, portfolio.AccountID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, portfolio.AccountID, got.AccountID)
		assert.True(t, got.CreditsByType["plastic-pet"].Equal(decimal.NewFromInt(100)))
		assert.True(t, got.CurrencyValue.Equal(portfolio.CurrencyValue))
		assert.Equal(t, int64(3), got.TradeCount)
	})

	t.Run("entries expire after ttl", func(t *testing.T) {
		portfolio := &domain.Portfolio{AccountID: uuid.New()}
		require.NoError(t, cache.Set(ctx, portfolio, time.Minute))

		mr.FastForward(61 * time.Second)

		got, err := cache.Get(ctx, portfolio.AccountID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
