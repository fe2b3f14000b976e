package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderSide indicates whether an order buys or sells credits.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusOpen            OrderStatus = "open"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
)

// Order is a limit order for one credit type. Seq is the arrival sequence
// number assigned at placement: strictly increasing per credit type, it is
// the deterministic tie-break for price-time priority.
type Order struct {
	ID          uuid.UUID       `json:"id"`
	AccountID   uuid.UUID       `json:"account_id"`
	CreditType  string          `json:"credit_type"`
	Side        OrderSide       `json:"side"`
	Price       decimal.Decimal `json:"price"` // currency per credit
	Quantity    decimal.Decimal `json:"quantity"`
	Remaining   decimal.Decimal `json:"remaining"`
	Status      OrderStatus     `json:"status"`
	Seq         int64           `json:"seq"`
	CreatedAt   time.Time       `json:"created_at"`
	CancelledAt *time.Time      `json:"cancelled_at,omitempty"`
}

// IsTerminal returns true when no further fills or cancels can apply.
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusFilled || o.Status == OrderStatusCancelled
}

// RequiredHold returns the balance hold a resting order carries: the
// remaining credit quantity for sells, remaining × limit price for buys.
func (o *Order) RequiredHold() decimal.Decimal {
	if o.Side == OrderSideSell {
		return o.Remaining
	}
	return o.Remaining.Mul(o.Price)
}

// HoldAsset returns the asset the order's hold is taken in: the credit
// type for sells, the settlement currency for buys.
func (o *Order) HoldAsset(currency string) string {
	if o.Side == OrderSideSell {
		return o.CreditType
	}
	return currency
}
