package ports

import (
	"context"
	"time"

	"credit-exchange/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=services.go -destination=mocks/services_mock.go -package=mocks

// Ledger is the single mutation surface for balances. All delta and hold
// operations run inside a caller-supplied transaction so that claim
// decisions and trade settlements stay atomic with their ledger effects.
type Ledger interface {
	// ApplyDelta appends one ledger entry and updates the balance
	// projection. Negative deltas that would drive the available balance
	// below zero fail with InsufficientBalance and write nothing.
	ApplyDelta(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, asset string, delta decimal.Decimal, reason domain.LedgerReason, reference string) (*domain.LedgerEntry, error)
	// Hold moves quantity from available to reserved. No ledger entry.
	Hold(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, asset string, quantity decimal.Decimal) error
	// Release moves quantity from reserved back to available.
	Release(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, asset string, quantity decimal.Decimal) error
	BalanceOf(ctx context.Context, accountID uuid.UUID, asset string) (*domain.Balance, error)
	History(ctx context.Context, accountID uuid.UUID, asset string, afterSeq int64, limit int) ([]domain.LedgerEntry, error)
}

// RateTable resolves versioned credit conversion rates. The authoritative
// table lives with an external pricing collaborator; implementations may
// cache or seed from configuration.
type RateTable interface {
	RateFor(ctx context.Context, creditType, subtype string, at time.Time) (*domain.Rate, error)
}

// EventPublisher delivers domain events to the external event sink.
// Publishing happens after commit and is best-effort: a failed publish is
// logged, never rolled back into the originating operation.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// PortfolioCache stores computed portfolio read models.
type PortfolioCache interface {
	Get(ctx context.Context, accountID uuid.UUID) (*domain.Portfolio, error) // nil on miss
	Set(ctx context.Context, portfolio *domain.Portfolio, ttl time.Duration) error
}

// --- Service Ports (Business Logic) ---

// ClaimService is the verification gate: it accepts claims and applies
// decisions, minting credits exactly once per verified claim.
type ClaimService interface {
	SubmitClaim(ctx context.Context, req SubmitClaimRequest) (*domain.Claim, error)
	DecideClaim(ctx context.Context, req DecideClaimRequest) (*domain.Claim, error)
	GetClaim(ctx context.Context, id uuid.UUID) (*domain.Claim, error)
}

// SubmitClaimRequest holds validated input for claim submission.
type SubmitClaimRequest struct {
	AccountID    uuid.UUID
	CreditType   string
	Subtype      string
	RawQuantity  decimal.Decimal
	EvidenceRefs []string
}

// DecideClaimRequest holds validated input for a claim decision.
type DecideClaimRequest struct {
	ClaimID   uuid.UUID
	Outcome   domain.ClaimOutcome
	Evaluator string
}

// TradingService owns order placement, cancellation, matching, and
// settlement for all credit types.
type TradingService interface {
	PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error)
	CancelOrder(ctx context.Context, orderID, requesterID uuid.UUID) (*domain.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	BookSnapshot(creditType string, depth int) (*BookSnapshot, error)
}

// PlaceOrderRequest holds validated input for order placement.
type PlaceOrderRequest struct {
	AccountID  uuid.UUID
	CreditType string
	Side       domain.OrderSide
	Price      decimal.Decimal
	Quantity   decimal.Decimal
}

// PlaceOrderResult is the outcome of a placement: the order in its
// post-matching state plus any trades the placement produced.
type PlaceOrderResult struct {
	Order  *domain.Order
	Trades []*domain.Trade
}

// BookLevel is one aggregated price level of an order book side.
type BookLevel struct {
	Price      decimal.Decimal `json:"price"`
	Quantity   decimal.Decimal `json:"quantity"`
	OrderCount int             `json:"order_count"`
}

// BookSnapshot is a point-in-time view of one credit type's book.
type BookSnapshot struct {
	CreditType string           `json:"credit_type"`
	BestBid    *decimal.Decimal `json:"best_bid,omitempty"`
	BestAsk    *decimal.Decimal `json:"best_ask,omitempty"`
	Bids       []BookLevel      `json:"bids"`
	Asks       []BookLevel      `json:"asks"`
}

// PortfolioService maintains the derived portfolio read model.
type PortfolioService interface {
	GetPortfolio(ctx context.Context, accountID uuid.UUID) (*domain.Portfolio, error)
	// HandleEvent folds one domain event into the cached read model.
	HandleEvent(ctx context.Context, event domain.Event)
}

// AuditService defines async audit logging.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
