package redis

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"credit-exchange/config"
	"credit-exchange/internal/core/domain"
	"credit-exchange/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
)

// EventStream publishes domain events to a Redis Stream. Each entry
// carries the JSON-encoded event plus an HMAC-SHA256 signature over the
// payload, so downstream consumers can verify integrity without trusting
// the broker. An empty signing key disables signing.
type EventStream struct {
	client     *goredis.Client
	stream     string
	signingKey []byte
	maxLen     int64
}

// NewEventStream creates a Redis Streams event publisher.
func NewEventStream(client *goredis.Client, cfg config.EventsConfig) ports.EventPublisher {
	return &EventStream{
		client:     client,
		stream:     cfg.Stream,
		signingKey: []byte(cfg.SigningKey),
		maxLen:     cfg.MaxLen,
	}
}

// Publish appends the event to the stream. The stream is trimmed
// approximately at the configured max length.
func (s *EventStream) Publish(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event %s: %w", event.Type, err)
	}

	values := map[string]interface{}{
		"id":      event.ID.String(),
		"type":    string(event.Type),
		"payload": string(payload),
	}
	if len(s.signingKey) > 0 {
		values["signature"] = s.sign(payload)
	}

	args := &goredis.XAddArgs{
		Stream: s.stream,
		Values: values,
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("publishing event %s to stream %s: %w", event.Type, s.stream, err)
	}
	return nil
}

func (s *EventStream) sign(payload []byte) string {
	mac := hmac.New(sha256.New, s.signingKey)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
