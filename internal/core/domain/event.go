package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType identifies a published domain event.
type EventType string

const (
	EventClaimDecided       EventType = "claim.decided"
	EventTradeExecuted      EventType = "trade.executed"
	EventOrderStatusChanged EventType = "order.status_changed"
)

// Event is the envelope published to the external event sink after a
// state change commits. Payload is one of the *Event structs below.
type Event struct {
	ID         uuid.UUID   `json:"id"`
	Type       EventType   `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// ClaimDecidedEvent is published when a claim is verified or rejected.
type ClaimDecidedEvent struct {
	ClaimID        uuid.UUID       `json:"claim_id"`
	AccountID      uuid.UUID       `json:"account_id"`
	CreditType     string          `json:"credit_type"`
	Outcome        ClaimOutcome    `json:"outcome"`
	MintedQuantity decimal.Decimal `json:"minted_quantity"`
}

// TradeExecutedEvent is published for every fill.
type TradeExecutedEvent struct {
	Trade Trade `json:"trade"`
}

// OrderStatusChangedEvent is published whenever an order's status moves.
type OrderStatusChangedEvent struct {
	OrderID    uuid.UUID       `json:"order_id"`
	AccountID  uuid.UUID       `json:"account_id"`
	CreditType string          `json:"credit_type"`
	Status     OrderStatus     `json:"status"`
	Remaining  decimal.Decimal `json:"remaining"`
}

// NewEvent wraps a payload in an event envelope.
func NewEvent(eventType EventType, payload interface{}) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}
