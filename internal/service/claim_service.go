package service

import (
	"context"
	"fmt"
	"time"

	"credit-exchange/internal/core/domain"
	"credit-exchange/internal/core/ports"
	"credit-exchange/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ClaimServiceImpl is the verification gate. Decisions run under a row
// lock on the claim so that concurrent evaluators serialize: the first
// decision wins and mints at most once, every later attempt sees a
// decided claim and fails with AlreadyDecided.
type ClaimServiceImpl struct {
	claimRepo  ports.ClaimRepository
	ledger     ports.Ledger
	rates      ports.RateTable
	catalog    *domain.Catalog
	transactor ports.DBTransactor
	publisher  ports.EventPublisher
	audit      ports.AuditService
	log        zerolog.Logger
}

// NewClaimService creates a new ClaimServiceImpl.
func NewClaimService(
	claimRepo ports.ClaimRepository,
	ledger ports.Ledger,
	rates ports.RateTable,
	catalog *domain.Catalog,
	transactor ports.DBTransactor,
	publisher ports.EventPublisher,
	audit ports.AuditService,
	log zerolog.Logger,
) *ClaimServiceImpl {
	return &ClaimServiceImpl{
		claimRepo:  claimRepo,
		ledger:     ledger,
		rates:      rates,
		catalog:    catalog,
		transactor: transactor,
		publisher:  publisher,
		audit:      audit,
		log:        log,
	}
}

// SubmitClaim records a pending verification claim. Nothing is minted
// here; credits only exist after a verified decision.
func (s *ClaimServiceImpl) SubmitClaim(ctx context.Context, req ports.SubmitClaimRequest) (*domain.Claim, error) {
	if _, ok := s.catalog.Lookup(req.CreditType); !ok {
		return nil, apperror.ErrUnknownCreditType(req.CreditType)
	}
	if !req.RawQuantity.IsPositive() {
		return nil, apperror.ErrInvalidQuantity()
	}

	claim := &domain.Claim{
		ID:           uuid.New(),
		AccountID:    req.AccountID,
		CreditType:   req.CreditType,
		Subtype:      req.Subtype,
		RawQuantity:  req.RawQuantity,
		EvidenceRefs: req.EvidenceRefs,
		Status:       domain.ClaimStatusPending,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.claimRepo.Create(ctx, claim); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create claim: %w", err))
	}

	s.log.Info().
		Str("claim_id", claim.ID.String()).
		Str("account_id", claim.AccountID.String()).
		Str("credit_type", claim.CreditType).
		Str("raw_quantity", claim.RawQuantity.String()).
		Msg("claim submitted")

	s.audit.Log(ctx, &domain.AuditLog{
		Action:       domain.AuditActionSubmitClaim,
		AccountID:    &claim.AccountID,
		ResourceType: "claim",
		ResourceID:   claim.ID.String(),
		Details:      fmt.Sprintf(`{"credit_type":%q,"raw_quantity":%q}`, claim.CreditType, claim.RawQuantity),
	})

	return claim, nil
}

// DecideClaim applies a verified or rejected decision to a pending claim.
// Verification resolves the conversion rate effective now, computes the
// minted quantity, and appends the mint ledger entry in the same
// transaction as the status flip. Rejection flips the status and mints
// nothing. Both paths are terminal.
func (s *ClaimServiceImpl) DecideClaim(ctx context.Context, req ports.DecideClaimRequest) (*domain.Claim, error) {
	if req.Outcome != domain.ClaimOutcomeVerified && req.Outcome != domain.ClaimOutcomeRejected {
		return nil, apperror.Validation(fmt.Sprintf("unknown outcome: %s", req.Outcome))
	}

	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx)

	claim, err := s.claimRepo.GetByIDForUpdate(ctx, tx, req.ClaimID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock claim: %w", err))
	}
	if claim == nil {
		return nil, apperror.ErrNotFound("Claim")
	}
	if claim.IsDecided() {
		return nil, apperror.ErrAlreadyDecided()
	}

	now := time.Now().UTC()
	claim.DecidedBy = req.Evaluator
	claim.DecidedAt = &now

	if req.Outcome == domain.ClaimOutcomeVerified {
		rate, err := s.rates.RateFor(ctx, claim.CreditType, claim.Subtype, now)
		if err != nil {
			return nil, err
		}

		claim.Status = domain.ClaimStatusVerified
		claim.MintedQuantity = claim.RawQuantity.Mul(rate.CreditsPerUnit)
		claim.RateVersion = rate.Version

		_, err = s.ledger.ApplyDelta(ctx, tx,
			claim.AccountID, claim.CreditType, claim.MintedQuantity,
			domain.LedgerReasonMint, claim.ID.String())
		if err != nil {
			return nil, err
		}
	} else {
		claim.Status = domain.ClaimStatusRejected
	}

	if err := s.claimRepo.UpdateDecision(ctx, tx, claim); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update claim decision: %w", err))
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit claim decision: %w", err))
	}

	s.log.Info().
		Str("claim_id", claim.ID.String()).
		Str("outcome", string(req.Outcome)).
		Str("minted_quantity", claim.MintedQuantity.String()).
		Int("rate_version", claim.RateVersion).
		Str("decided_by", req.Evaluator).
		Msg("claim decided")

	// Post-commit, best-effort. A failed publish never unwinds the decision.
	event := domain.NewEvent(domain.EventClaimDecided, domain.ClaimDecidedEvent{
		ClaimID:        claim.ID,
		AccountID:      claim.AccountID,
		CreditType:     claim.CreditType,
		Outcome:        req.Outcome,
		MintedQuantity: claim.MintedQuantity,
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("claim_id", claim.ID.String()).Msg("failed to publish claim decided event")
	}

	s.audit.Log(ctx, &domain.AuditLog{
		Action:       domain.AuditActionDecideClaim,
		AccountID:    &claim.AccountID,
		ResourceType: "claim",
		ResourceID:   claim.ID.String(),
		Details:      fmt.Sprintf(`{"outcome":%q,"minted":%q,"by":%q}`, req.Outcome, claim.MintedQuantity, req.Evaluator),
	})

	return claim, nil
}

// GetClaim returns a claim by ID.
func (s *ClaimServiceImpl) GetClaim(ctx context.Context, id uuid.UUID) (*domain.Claim, error) {
	claim, err := s.claimRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get claim: %w", err))
	}
	if claim == nil {
		return nil, apperror.ErrNotFound("Claim")
	}
	return claim, nil
}
