package handler

import (
	"strconv"
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

// OrderHandler handles order placement, cancellation, and book queries.
type OrderHandler struct {
	tradingSvc ports.TradingService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(tradingSvc ports.TradingService) *OrderHandler {
	return &OrderHandler{tradingSvc: tradingSvc}
}

// PlaceOrder handles POST /api/v1/orders.
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, apperror.Validation("missing account identity"))
		return
	}

	var req dto.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		response.Error(c, apperror.ErrInvalidPrice())
		return
	}
	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		response.Error(c, apperror.ErrInvalidQuantity())
		return
	}

	result, err := h.tradingSvc.PlaceOrder(c.Request.Context(), ports.PlaceOrderRequest{
		AccountID:  accountID,
		CreditType: req.CreditType,
		Side:       domain.OrderSide(req.Side),
		Price:      price,
		Quantity:   quantity,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.PlaceOrderResponse{
		Order:  toOrderResponse(result.Order),
		Trades: make([]dto.TradeResponse, 0, len(result.Trades)),
	}
	for _, trade := range result.Trades {
		resp.Trades = append(resp.Trades, toTradeResponse(trade))
	}
	response.Created(c, resp)
}

// CancelOrder handles DELETE /api/v1/orders/:id.
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, apperror.Validation("missing account identity"))
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("malformed order id"))
		return
	}

	order, err := h.tradingSvc.CancelOrder(c.Request.Context(), orderID, accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toOrderResponse(order))
}

// GetOrder handles GET /api/v1/orders/:id.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("malformed order id"))
		return
	}

	order, err := h.tradingSvc.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toOrderResponse(order))
}

// GetBook handles GET /api/v1/book/:credit_type.
func (h *OrderHandler) GetBook(c *gin.Context) {
	depth := 0
	if raw := c.Query("depth"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil || d < 0 {
			response.Error(c, apperror.Validation("depth must be a non-negative integer"))
			return
		}
		depth = d
	}

	snapshot, err := h.tradingSvc.BookSnapshot(c.Param("credit_type"), depth)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, snapshot)
}

// toOrderResponse converts domain.Order to DTO.
func toOrderResponse(order *domain.Order) dto.OrderResponse {
	resp := dto.OrderResponse{
		ID:         order.ID.String(),
		AccountID:  order.AccountID.String(),
		CreditType: order.CreditType,
		Side:       string(order.Side),
		Price:      order.Price.String(),
		Quantity:   order.Quantity.String(),
		Remaining:  order.Remaining.String(),
		Status:     string(order.Status),
		CreatedAt:  order.CreatedAt.Format(time.RFC3339),
	}
	if order.CancelledAt != nil {
		s := order.CancelledAt.Format(time.RFC3339)
		resp.CancelledAt = &s
	}
	return resp
}

// toTradeResponse converts domain.Trade to DTO.
func toTradeResponse(trade *domain.Trade) dto.TradeResponse {
	return dto.TradeResponse{
		ID:         trade.ID.String(),
		CreditType: trade.CreditType,
		BuyerID:    trade.BuyerID.String(),
		SellerID:   trade.SellerID.String(),
		Price:      trade.Price.String(),
		Quantity:   trade.Quantity.String(),
		ExecutedAt: trade.ExecutedAt.Format(time.RFC3339),
	}
}
