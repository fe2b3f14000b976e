package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Portfolio is a derived summary of an account's holdings and activity.
// It is a read model folded from ledger entries and trades, never a
// source of truth, and only eventually consistent with the ledger.
type Portfolio struct {
	AccountID        uuid.UUID                  `json:"account_id"`
	CreditsByType    map[string]decimal.Decimal `json:"credits_by_type"`
	CurrencyValue    decimal.Decimal            `json:"currency_value"`
	TradeCount       int64                      `json:"trade_count"`
	CollectionsCount int64                      `json:"collections_count"`
	ImpactScore      decimal.Decimal            `json:"impact_score"`
	UpdatedAt        time.Time                  `json:"updated_at"`
}

// TotalCredits sums holdings across all credit types.
func (p *Portfolio) TotalCredits() decimal.Decimal {
	total := decimal.Zero
	for _, q := range p.CreditsByType {
		total = total.Add(q)
	}
	return total
}
