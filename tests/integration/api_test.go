package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type claimBody struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	MintedQuantity string `json:"minted_quantity"`
	RateVersion    int    `json:"rate_version"`
}

type orderBody struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Remaining string `json:"remaining"`
}

type placementBody struct {
	Order  orderBody `json:"order"`
	Trades []struct {
		Price    string `json:"price"`
		Quantity string `json:"quantity"`
		BuyerID  string `json:"buyer_id"`
		SellerID string `json:"seller_id"`
	} `json:"trades"`
}

type balanceBody struct {
	Available string `json:"available"`
	Reserved  string `json:"reserved"`
	Total     string `json:"total"`
}

func (e *env) getBalance(t *testing.T, accountID uuid.UUID, asset string) balanceBody {
	t.Helper()
	w, resp := e.do(t, http.MethodGet, "/api/v1/accounts/"+accountID.String()+"/balances/"+asset, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var b balanceBody
	require.NoError(t, json.Unmarshal(resp.Data, &b))
	return b
}

// TestCollectionToTradeLifecycle walks the full flow: a collector submits a
// claim for 500 PET items, verification mints 100 credits at rate 0.2, the
// collector offers them at 125, and a buyer lifts 60 at a 130 limit. The
// single trade executes at the resting price.
func TestCollectionToTradeLifecycle(t *testing.T) {
	e := newEnv(t)
	e.seedRates(t)

	seller := uuid.New()
	buyer := uuid.New()

	// Submit and verify the claim
	w, resp := e.do(t, http.MethodPost, "/api/v1/claims", &seller, map[string]interface{}{
		"credit_type":   "plastic-pet",
		"subtype":       "bottle",
		"raw_quantity":  "500",
		"evidence_refs": []string{"photo://batch-42"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var claim claimBody
	require.NoError(t, json.Unmarshal(resp.Data, &claim))
	assert.Equal(t, "pending", claim.Status)

	w, resp = e.do(t, http.MethodPost, "/api/v1/claims/"+claim.ID+"/decision", nil, map[string]interface{}{
		"outcome":   "verified",
		"evaluator": "evaluator-7",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(resp.Data, &claim))
	assert.Equal(t, "verified", claim.Status)
	assert.Equal(t, "100", claim.MintedQuantity)
	assert.Equal(t, 1, claim.RateVersion)

	sellerCredits := e.getBalance(t, seller, "plastic-pet")
	assert.Equal(t, "100", sellerCredits.Available)

	// A second decision must conflict and must not mint again
	w, resp = e.do(t, http.MethodPost, "/api/v1/claims/"+claim.ID+"/decision", nil, map[string]interface{}{
		"outcome":   "verified",
		"evaluator": "evaluator-8",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "STATE_001", resp.ErrorCode)
	assert.Equal(t, "100", e.getBalance(t, seller, "plastic-pet").Total)

	// Seller offers all 100 credits at 125
	w, resp = e.do(t, http.MethodPost, "/api/v1/orders", &seller, map[string]interface{}{
		"credit_type": "plastic-pet",
		"side":        "sell",
		"price":       "125",
		"quantity":    "100",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var sellPlacement placementBody
	require.NoError(t, json.Unmarshal(resp.Data, &sellPlacement))
	assert.Equal(t, "open", sellPlacement.Order.Status)
	assert.Empty(t, sellPlacement.Trades)

	sellerCredits = e.getBalance(t, seller, "plastic-pet")
	assert.Equal(t, "0", sellerCredits.Available)
	assert.Equal(t, "100", sellerCredits.Reserved)

	// Buyer bids 60 at 130; crosses and fills at the resting 125
	e.fund(t, buyer, currency, "7800")
	w, resp = e.do(t, http.MethodPost, "/api/v1/orders", &buyer, map[string]interface{}{
		"credit_type": "plastic-pet",
		"side":        "buy",
		"price":       "130",
		"quantity":    "60",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var buyPlacement placementBody
	require.NoError(t, json.Unmarshal(resp.Data, &buyPlacement))
	assert.Equal(t, "filled", buyPlacement.Order.Status)
	require.Len(t, buyPlacement.Trades, 1)
	assert.Equal(t, "125", buyPlacement.Trades[0].Price)
	assert.Equal(t, "60", buyPlacement.Trades[0].Quantity)
	assert.Equal(t, buyer.String(), buyPlacement.Trades[0].BuyerID)
	assert.Equal(t, seller.String(), buyPlacement.Trades[0].SellerID)

	// Settlement: buyer holds 60 credits and the 300 price improvement back
	assert.Equal(t, "60", e.getBalance(t, buyer, "plastic-pet").Available)
	assert.Equal(t, "300", e.getBalance(t, buyer, currency).Available)

	// Seller keeps 40 reserved credits and banks 7500
	sellerCredits = e.getBalance(t, seller, "plastic-pet")
	assert.Equal(t, "40", sellerCredits.Reserved)
	assert.Equal(t, "7500", e.getBalance(t, seller, currency).Available)

	// Book shows the 40-credit remainder at 125
	w, resp = e.do(t, http.MethodGet, "/api/v1/book/plastic-pet?depth=5", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var book struct {
		BestAsk string `json:"best_ask"`
		Asks    []struct {
			Price    string `json:"price"`
			Quantity string `json:"quantity"`
		} `json:"asks"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &book))
	assert.Equal(t, "125", book.BestAsk)
	require.Len(t, book.Asks, 1)
	assert.Equal(t, "40", book.Asks[0].Quantity)

	// Cancel the remainder; reservation returns to available
	w, resp = e.do(t, http.MethodDelete, "/api/v1/orders/"+sellPlacement.Order.ID, &seller, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cancelled orderBody
	require.NoError(t, json.Unmarshal(resp.Data, &cancelled))
	assert.Equal(t, "cancelled", cancelled.Status)

	sellerCredits = e.getBalance(t, seller, "plastic-pet")
	assert.Equal(t, "40", sellerCredits.Available)
	assert.Equal(t, "0", sellerCredits.Reserved)

	// Events reached the stream: claim decision, trade, order statuses
	entries, err := e.redis.XRange(context.Background(), eventStream, "-", "+").Result()
	require.NoError(t, err)
	types := make(map[string]int)
	for _, entry := range entries {
		types[entry.Values["type"].(string)]++
	}
	assert.Equal(t, 1, types["claim.decided"])
	assert.Equal(t, 1, types["trade.executed"])
	assert.GreaterOrEqual(t, types["order.status_changed"], 1)
}

func TestPortfolioReflectsActivity(t *testing.T) {
	e := newEnv(t)
	e.seedRates(t)

	collector := uuid.New()

	_, resp := e.do(t, http.MethodPost, "/api/v1/claims", &collector, map[string]interface{}{
		"credit_type":  "water",
		"raw_quantity": "200",
	})
	var claim claimBody
	require.NoError(t, json.Unmarshal(resp.Data, &claim))

	w, _ := e.do(t, http.MethodPost, "/api/v1/claims/"+claim.ID+"/decision", nil, map[string]interface{}{
		"outcome":   "verified",
		"evaluator": "evaluator-7",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = e.do(t, http.MethodGet, "/api/v1/accounts/"+collector.String()+"/portfolio", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var portfolio struct {
		CreditsByType    map[string]string `json:"credits_by_type"`
		CollectionsCount int64             `json:"collections_count"`
		ImpactScore      string            `json:"impact_score"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &portfolio))
	assert.Equal(t, "100", portfolio.CreditsByType["water"])
	assert.Equal(t, int64(1), portfolio.CollectionsCount)
	assert.NotEmpty(t, portfolio.ImpactScore)
}

func TestLedgerHistoryKeysetPagination(t *testing.T) {
	e := newEnv(t)
	account := uuid.New()

	for i := 0; i < 5; i++ {
		e.fund(t, account, "plastic-pet", "10")
	}

	var page struct {
		Entries      []struct{ Seq int64 } `json:"entries"`
		NextAfterSeq int64                 `json:"next_after_seq"`
	}

	w, resp := e.do(t, http.MethodGet,
		"/api/v1/accounts/"+account.String()+"/ledger?asset=plastic-pet&limit=3", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(resp.Data, &page))
	require.Len(t, page.Entries, 3)
	cursor := page.NextAfterSeq

	w, resp = e.do(t, http.MethodGet,
		"/api/v1/accounts/"+account.String()+"/ledger?asset=plastic-pet&limit=3&after_seq="+
			strconv.FormatInt(cursor, 10), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(resp.Data, &page))
	require.Len(t, page.Entries, 2)
	assert.Greater(t, page.Entries[0].Seq, cursor)
}

func TestOverdraftRejectedThroughAPI(t *testing.T) {
	e := newEnv(t)
	seller := uuid.New()
	e.fund(t, seller, "plastic-pet", "50")

	w, resp := e.do(t, http.MethodPost, "/api/v1/orders", &seller, map[string]interface{}{
		"credit_type": "plastic-pet",
		"side":        "sell",
		"price":       "125",
		"quantity":    "100",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "RES_001", resp.ErrorCode)

	// Nothing was reserved or written
	bal := e.getBalance(t, seller, "plastic-pet")
	assert.Equal(t, "50", bal.Available)
	assert.Equal(t, "0", bal.Reserved)
}

