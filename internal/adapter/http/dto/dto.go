package dto

// SubmitClaimRequest is the request body for claim submission.
type SubmitClaimRequest struct {
	CreditType   string   `json:"credit_type" binding:"required,max=50,safe_id"`
	Subtype      string   `json:"subtype" binding:"omitempty,max=50,safe_id"`
	RawQuantity  string   `json:"raw_quantity" binding:"required,decimal"`
	EvidenceRefs []string `json:"evidence_refs" binding:"omitempty,max=20,dive,max=500"`
}

// DecideClaimRequest is the request body for a claim decision.
type DecideClaimRequest struct {
	Outcome   string `json:"outcome" binding:"required,oneof=verified rejected"`
	Evaluator string `json:"evaluator" binding:"required,max=100"`
}

// ClaimResponse is the response body for claim results.
type ClaimResponse struct {
	ID             string   `json:"id"`
	AccountID      string   `json:"account_id"`
	CreditType     string   `json:"credit_type"`
	Subtype        string   `json:"subtype,omitempty"`
	RawQuantity    string   `json:"raw_quantity"`
	EvidenceRefs   []string `json:"evidence_refs,omitempty"`
	Status         string   `json:"status"`
	MintedQuantity string   `json:"minted_quantity,omitempty"`
	RateVersion    int      `json:"rate_version,omitempty"`
	DecidedBy      string   `json:"decided_by,omitempty"`
	CreatedAt      string   `json:"created_at"`
	DecidedAt      *string  `json:"decided_at,omitempty"`
}

// PlaceOrderRequest is the request body for order placement.
type PlaceOrderRequest struct {
	CreditType string `json:"credit_type" binding:"required,max=50,safe_id"`
	Side       string `json:"side" binding:"required,oneof=buy sell"`
	Price      string `json:"price" binding:"required,decimal"`
	Quantity   string `json:"quantity" binding:"required,decimal"`
}

// OrderResponse is the response body for order state.
type OrderResponse struct {
	ID          string  `json:"id"`
	AccountID   string  `json:"account_id"`
	CreditType  string  `json:"credit_type"`
	Side        string  `json:"side"`
	Price       string  `json:"price"`
	Quantity    string  `json:"quantity"`
	Remaining   string  `json:"remaining"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
	CancelledAt *string `json:"cancelled_at,omitempty"`
}

// TradeResponse is the response body for an executed trade.
type TradeResponse struct {
	ID         string `json:"id"`
	CreditType string `json:"credit_type"`
	BuyerID    string `json:"buyer_id"`
	SellerID   string `json:"seller_id"`
	Price      string `json:"price"`
	Quantity   string `json:"quantity"`
	ExecutedAt string `json:"executed_at"`
}

// PlaceOrderResponse wraps the placed order and any immediate fills.
type PlaceOrderResponse struct {
	Order  OrderResponse   `json:"order"`
	Trades []TradeResponse `json:"trades"`
}

// BalanceResponse is the response for a balance query.
type BalanceResponse struct {
	AccountID string `json:"account_id"`
	Asset     string `json:"asset"`
	Available string `json:"available"`
	Reserved  string `json:"reserved"`
	Total     string `json:"total"`
}

// LedgerEntryResponse is one entry in a ledger history page.
type LedgerEntryResponse struct {
	Seq       int64  `json:"seq"`
	Asset     string `json:"asset"`
	Delta     string `json:"delta"`
	Reason    string `json:"reason"`
	Reference string `json:"reference,omitempty"`
	CreatedAt string `json:"created_at"`
}

// LedgerHistoryResponse wraps a keyset-paginated ledger page. NextAfterSeq
// is the cursor for the next page, 0 when the page was empty.
type LedgerHistoryResponse struct {
	Entries      []LedgerEntryResponse `json:"entries"`
	NextAfterSeq int64                 `json:"next_after_seq"`
}
