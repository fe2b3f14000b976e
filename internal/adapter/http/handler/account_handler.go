package handler

import (
	"strconv"
	"time"

	"credit-exchange/internal/adapter/http/dto"
	"credit-exchange/internal/core/ports"
	"credit-exchange/pkg/apperror"
	"credit-exchange/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AccountHandler serves per-account read endpoints: balances, ledger
// history, and the portfolio read model.
type AccountHandler struct {
	ledger       ports.Ledger
	portfolioSvc ports.PortfolioService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(ledger ports.Ledger, portfolioSvc ports.PortfolioService) *AccountHandler {
	return &AccountHandler{ledger: ledger, portfolioSvc: portfolioSvc}
}

// GetBalance handles GET /api/v1/accounts/:id/balances/:asset.
func (h *AccountHandler) GetBalance(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("malformed account id"))
		return
	}

	balance, err := h.ledger.BalanceOf(c.Request.Context(), accountID, c.Param("asset"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		AccountID: balance.AccountID.String(),
		Asset:     balance.Asset,
		Available: balance.Available.String(),
		Reserved:  balance.Reserved.String(),
		Total:     balance.Total().String(),
	})
}

// GetLedgerHistory handles GET /api/v1/accounts/:id/ledger. Pagination is
// keyset-based: pass next_after_seq from the previous page as after_seq.
func (h *AccountHandler) GetLedgerHistory(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("malformed account id"))
		return
	}

	asset := c.Query("asset")
	if asset == "" {
		response.Error(c, apperror.Validation("asset query parameter is required"))
		return
	}

	var afterSeq int64
	if raw := c.Query("after_seq"); raw != "" {
		afterSeq, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || afterSeq < 0 {
			response.Error(c, apperror.Validation("after_seq must be a non-negative integer"))
			return
		}
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			response.Error(c, apperror.Validation("limit must be a non-negative integer"))
			return
		}
	}

	entries, err := h.ledger.History(c.Request.Context(), accountID, asset, afterSeq, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.LedgerHistoryResponse{Entries: make([]dto.LedgerEntryResponse, 0, len(entries))}
	for _, entry := range entries {
		resp.Entries = append(resp.Entries, dto.LedgerEntryResponse{
			Seq:       entry.Seq,
			Asset:     entry.Asset,
			Delta:     entry.Delta.String(),
			Reason:    string(entry.Reason),
			Reference: entry.Reference,
			CreatedAt: entry.CreatedAt.Format(time.RFC3339),
		})
		resp.NextAfterSeq = entry.Seq
	}
	response.OK(c, resp)
}

// GetPortfolio handles GET /api/v1/accounts/:id/portfolio.
func (h *AccountHandler) GetPortfolio(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("malformed account id"))
		return
	}

	portfolio, err := h.portfolioSvc.GetPortfolio(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, portfolio)
}
