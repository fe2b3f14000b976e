package dto_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"credit-exchange/internal/adapter/http/dto"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bindJSON(t *testing.T, body map[string]interface{}, target interface{}) error {
	t.Helper()
	gin.SetMode(gin.TestMode)

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	c.Request.Header.Set("Content-Type", "application/json")
	return c.ShouldBindJSON(target)
}

func TestPlaceOrderRequest_Validation(t *testing.T) {
	valid := func() map[string]interface{} {
		return map[string]interface{}{
			"credit_type": "plastic-pet",
			"side":        "buy",
			"price":       "130",
			"quantity":    "60",
		}
	}

	t.Run("valid request passes", func(t *testing.T) {
		var req dto.PlaceOrderRequest
		assert.NoError(t, bindJSON(t, valid(), &req))
		assert.Equal(t, "buy", req.Side)
	})

	t.Run("rejects unknown side", func(t *testing.T) {
		body := valid()
		body["side"] = "hold"
		var req dto.PlaceOrderRequest
		assert.Error(t, bindJSON(t, body, &req))
	})

	t.Run("rejects non-decimal price", func(t *testing.T) {
		body := valid()
		body["price"] = "abc"
		var req dto.PlaceOrderRequest
		assert.Error(t, bindJSON(t, body, &req))
	})

	t.Run("rejects zero quantity", func(t *testing.T) {
		body := valid()
		body["quantity"] = "0"
		var req dto.PlaceOrderRequest
		assert.Error(t, bindJSON(t, body, &req))
	})

	t.Run("rejects negative price", func(t *testing.T) {
		body := valid()
		body["price"] = "-5"
		var req dto.PlaceOrderRequest
		assert.Error(t, bindJSON(t, body, &req))
	})

	t.Run("rejects credit type with unsafe characters", func(t *testing.T) {
		body := valid()
		body["credit_type"] = "plastic pet;drop"
		var req dto.PlaceOrderRequest
		assert.Error(t, bindJSON(t, body, &req))
	})
}

func TestSubmitClaimRequest_Validation(t *testing.T) {
	t.Run("valid claim passes", func(t *testing.T) {
		var req dto.SubmitClaimRequest
		assert.NoError(t, bindJSON(t, map[string]interface{}{
			"credit_type":   "plastic-pet",
			"subtype":       "bottle",
			"raw_quantity":  "500",
			"evidence_refs": []string{"photo://batch-42"},
		}, &req))
	})

	t.Run("subtype is optional", func(t *testing.T) {
		var req dto.SubmitClaimRequest
		assert.NoError(t, bindJSON(t, map[string]interface{}{
			"credit_type":  "water",
			"raw_quantity": "10.5",
		}, &req))
	})

	t.Run("rejects missing quantity", func(t *testing.T) {
		var req dto.SubmitClaimRequest
		assert.Error(t, bindJSON(t, map[string]interface{}{
			"credit_type": "water",
		}, &req))
	})
}

func TestDecideClaimRequest_Validation(t *testing.T) {
	t.Run("accepts verified and rejected", func(t *testing.T) {
		var req dto.DecideClaimRequest
		assert.NoError(t, bindJSON(t, map[string]interface{}{"outcome": "verified", "evaluator": "evaluator-7"}, &req))
		assert.NoError(t, bindJSON(t, map[string]interface{}{"outcome": "rejected", "evaluator": "evaluator-7"}, &req))
	})

	t.Run("rejects other outcomes", func(t *testing.T) {
		var req dto.DecideClaimRequest
		assert.Error(t, bindJSON(t, map[string]interface{}{"outcome": "maybe", "evaluator": "evaluator-7"}, &req))
	})

	t.Run("requires evaluator", func(t *testing.T) {
		var req dto.DecideClaimRequest
		assert.Error(t, bindJSON(t, map[string]interface{}{"outcome": "verified"}, &req))
	})
}
