package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Rate converts raw claimed activity into credits. Rates are versioned
// with effective dates; the verification gate resolves the newest version
// effective at decision time. The rate table itself is owned by an
// external pricing collaborator; this is only its local representation.
type Rate struct {
	CreditType     string          `json:"credit_type"`
	Subtype        string          `json:"subtype"` // empty = default for the credit type
	CreditsPerUnit decimal.Decimal `json:"credits_per_unit"`
	Version        int             `json:"version"`
	EffectiveFrom  time.Time       `json:"effective_from"`
}
