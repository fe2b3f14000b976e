package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ClaimStatus represents the lifecycle state of a verification claim.
type ClaimStatus string

const (
	ClaimStatusPending  ClaimStatus = "pending"
	ClaimStatusVerified ClaimStatus = "verified"
	ClaimStatusRejected ClaimStatus = "rejected"
)

// ClaimOutcome is the decision applied to a pending claim.
type ClaimOutcome string

const (
	ClaimOutcomeVerified ClaimOutcome = "verified"
	ClaimOutcomeRejected ClaimOutcome = "rejected"
)

// Claim is a verification request asserting physical activity (items
// collected, litres treated) that mints credits once verified. A claim is
// immutable after it leaves the pending state.
type Claim struct {
	ID           uuid.UUID       `json:"id"`
	AccountID    uuid.UUID       `json:"account_id"`
	CreditType   string          `json:"credit_type"`
	Subtype      string          `json:"subtype,omitempty"` // rate-table key, e.g. "bottle"
	RawQuantity  decimal.Decimal `json:"raw_quantity"`
	EvidenceRefs []string        `json:"evidence_refs,omitempty"`
	Status       ClaimStatus     `json:"status"`
	// Set on verification only.
	MintedQuantity decimal.Decimal `json:"minted_quantity"`
	RateVersion    int             `json:"rate_version,omitempty"`
	DecidedBy      string          `json:"decided_by,omitempty"` // evaluator reference
	CreatedAt      time.Time       `json:"created_at"`
	DecidedAt      *time.Time      `json:"decided_at,omitempty"`
}

// IsDecided returns true once the claim has left the pending state.
func (c *Claim) IsDecided() bool {
	return c.Status != ClaimStatusPending
}
