package handler

import (
	"time"

	"credit-exchange/internal/adapter/http/dto"
	"credit-exchange/internal/adapter/http/middleware"
	"credit-exchange/internal/core/domain"
	"credit-exchange/internal/core/ports"
	"credit-exchange/pkg/apperror"
	"credit-exchange/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ClaimHandler handles claim submission, decision, and lookup.
type ClaimHandler struct {
	claimSvc ports.ClaimService
}

// NewClaimHandler creates a new ClaimHandler.
func NewClaimHandler(claimSvc ports.ClaimService) *ClaimHandler {
	return &ClaimHandler{claimSvc: claimSvc}
}

// SubmitClaim handles POST /api/v1/claims.
func (h *ClaimHandler) SubmitClaim(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, apperror.Validation("missing account identity"))
		return
	}

	var req dto.SubmitClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	quantity, err := decimal.NewFromString(req.RawQuantity)
	if err != nil {
		response.Error(c, apperror.ErrInvalidQuantity())
		return
	}

	claim, err := h.claimSvc.SubmitClaim(c.Request.Context(), ports.SubmitClaimRequest{
		AccountID:    accountID,
		CreditType:   req.CreditType,
		Subtype:      req.Subtype,
		RawQuantity:  quantity,
		EvidenceRefs: req.EvidenceRefs,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toClaimResponse(claim))
}

// DecideClaim handles POST /api/v1/claims/:id/decision.
func (h *ClaimHandler) DecideClaim(c *gin.Context) {
	claimID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("malformed claim id"))
		return
	}

	var req dto.DecideClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	claim, err := h.claimSvc.DecideClaim(c.Request.Context(), ports.DecideClaimRequest{
		ClaimID:   claimID,
		Outcome:   domain.ClaimOutcome(req.Outcome),
		Evaluator: req.Evaluator,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toClaimResponse(claim))
}

// GetClaim handles GET /api/v1/claims/:id.
func (h *ClaimHandler) GetClaim(c *gin.Context) {
	claimID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("malformed claim id"))
		return
	}

	claim, err := h.claimSvc.GetClaim(c.Request.Context(), claimID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toClaimResponse(claim))
}

// toClaimResponse converts domain.Claim to DTO.
func toClaimResponse(claim *domain.Claim) dto.ClaimResponse {
	resp := dto.ClaimResponse{
		ID:           claim.ID.String(),
		AccountID:    claim.AccountID.String(),
		CreditType:   claim.CreditType,
		Subtype:      claim.Subtype,
		RawQuantity:  claim.RawQuantity.String(),
		EvidenceRefs: claim.EvidenceRefs,
		Status:       string(claim.Status),
		DecidedBy:    claim.DecidedBy,
		CreatedAt:    claim.CreatedAt.Format(time.RFC3339),
	}
	if claim.Status == domain.ClaimStatusVerified {
		resp.MintedQuantity = claim.MintedQuantity.String()
		resp.RateVersion = claim.RateVersion
	}
	if claim.DecidedAt != nil {
		s := claim.DecidedAt.Format(time.RFC3339)
		resp.DecidedAt = &s
	}
	return resp
}
