package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerReason classifies why a ledger entry was written.
type LedgerReason string

const (
	LedgerReasonMint           LedgerReason = "mint"
	LedgerReasonTradeDebit     LedgerReason = "trade_debit"
	LedgerReasonTradeCredit    LedgerReason = "trade_credit"
	LedgerReasonCurrencyDebit  LedgerReason = "currency_debit"
	LedgerReasonCurrencyCredit LedgerReason = "currency_credit"
)

// LedgerEntry is an immutable, append-only record of a balance change.
// Seq is assigned by the store at append time and is globally monotonic,
// which makes per-account history reads restartable by keyset.
type LedgerEntry struct {
	Seq       int64           `json:"seq"`
	ID        uuid.UUID       `json:"id"`
	AccountID uuid.UUID       `json:"account_id"`
	Asset     string          `json:"asset"` // credit type code or currency code
	Delta     decimal.Decimal `json:"delta"` // signed
	Reason    LedgerReason    `json:"reason"`
	Reference string          `json:"reference"` // claim id or trade id
	CreatedAt time.Time       `json:"created_at"`
}

// Balance is the cached projection of an account's holdings in one asset.
// Available is spendable; Reserved is held by resting orders. The ledger
// delta stream tracks the total: sum(deltas) == Available + Reserved.
// Balances are never set directly, only mutated alongside ledger appends
// and hold movements, under the store's row lock.
type Balance struct {
	AccountID uuid.UUID       `json:"account_id"`
	Asset     string          `json:"asset"`
	Available decimal.Decimal `json:"available"`
	Reserved  decimal.Decimal `json:"reserved"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Total returns available plus reserved.
func (b *Balance) Total() decimal.Decimal {
	return b.Available.Add(b.Reserved)
}
