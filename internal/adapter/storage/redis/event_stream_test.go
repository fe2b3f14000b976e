package redis_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"credit-exchange/config"
	"credit-exchange/internal/adapter/storage/redis"
	"credit-exchange/internal/core/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventStream_Publish(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	cfg := config.EventsConfig{
		Stream:     "credit-exchange:events",
		SigningKey: "test-signing-key",
		MaxLen:     1000,
	}
	sink := redis.NewEventStream(client, cfg)
	ctx := context.Background()

	event := domain.NewEvent(domain.EventClaimDecided, domain.ClaimDecidedEvent{
		ClaimID:        uuid.New(),
		AccountID:      uuid.New(),
		CreditType:     "plastic-pet",
		Outcome:        domain.ClaimOutcomeVerified,
		MintedQuantity: decimal.NewFromInt(100),
	})
	require.NoError(t, sink.Publish(ctx, event))

	entries, err := client.XRange(ctx, cfg.Stream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	values := entries[0].Values
	assert.Equal(t, event.ID.String(), values["id"])
	assert.Equal(t, string(domain.EventClaimDecided), values["type"])

	payload, ok := values["payload"].(string)
	require.True(t, ok)
	assert.Contains(t, payload, "plastic-pet")

	// Signature must verify against the stored payload
	mac := hmac.New(sha256.New, []byte(cfg.SigningKey))
	mac.Write([]byte(payload))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), values["signature"])
}

func TestEventStream_Publish_NoSigningKey(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	sink := redis.NewEventStream(client, config.EventsConfig{Stream: "events"})
	ctx := context.Background()

	event := domain.NewEvent(domain.EventOrderStatusChanged, domain.OrderStatusChangedEvent{
		OrderID:    uuid.New(),
		AccountID:  uuid.New(),
		CreditType: "water",
		Status:     domain.OrderStatusCancelled,
		Remaining:  decimal.NewFromInt(40),
	})
	require.NoError(t, sink.Publish(ctx, event))

	entries, err := client.XRange(ctx, "events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	_, hasSignature := entries[0].Values["signature"]
	assert.False(t, hasSignature)
}

func TestEventStream_Publish_MultipleEventsOrdered(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	sink := redis.NewEventStream(client, config.EventsConfig{Stream: "events"})
	ctx := context.Background()

	first := domain.NewEvent(domain.EventTradeExecuted, domain.TradeExecutedEvent{})
	second := domain.NewEvent(domain.EventTradeExecuted, domain.TradeExecutedEvent{})
	require.NoError(t, sink.Publish(ctx, first))
	require.NoError(t, sink.Publish(ctx, second))

	entries, err := client.XRange(ctx, "events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, first.ID.String(), entries[0].Values["id"])
	assert.Equal(t, second.ID.String(), entries[1].Values["id"])
}
