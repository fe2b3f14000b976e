package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Trade records a single match between a buy and a sell order. Trades are
// immutable once created. Price is always the resting order's limit price.
// Seq comes from the same per-credit-type counter as order arrivals, so
// trades sort into a total order consistent with the orders that produced
// them, which replay and audit tooling relies on.
type Trade struct {
	ID          uuid.UUID       `json:"id"`
	CreditType  string          `json:"credit_type"`
	BuyOrderID  uuid.UUID       `json:"buy_order_id"`
	SellOrderID uuid.UUID       `json:"sell_order_id"`
	BuyerID     uuid.UUID       `json:"buyer_id"`
	SellerID    uuid.UUID       `json:"seller_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Seq         int64           `json:"seq"`
	ExecutedAt  time.Time       `json:"executed_at"`
}

// Notional returns quantity × price, the currency value of the trade.
func (t *Trade) Notional() decimal.Decimal {
	return t.Quantity.Mul(t.Price)
}
