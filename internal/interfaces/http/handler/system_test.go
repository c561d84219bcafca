package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	appbilling "github.com/meterbill/backend/internal/application/billing"
	"github.com/meterbill/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveSystem(t *testing.T, h *SystemHandler, path string, fn gin.HandlerFunc) map[string]any {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, path, nil)
	fn(c)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	return body.Data
}

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	cfg := appbilling.DefaultConfig()
	cfg.Currency = "USD"
	cfg.VATRate = decimal.RequireFromString("0.07")
	cfg.OverpaymentPolicy = billing.OverpaymentReject
	h := NewSystemHandler("", cfg)

	data := serveSystem(t, h, "/system/info", h.GetSystemInfo)
	assert.Equal(t, ServiceName, data["name"])
	assert.Equal(t, "dev", data["version"])
	assert.NotEmpty(t, data["go_version"])

	policies := data["billing"].(map[string]any)
	assert.Equal(t, "USD", policies["currency"])
	assert.Equal(t, "0.07", policies["vat_rate"])
	assert.Equal(t, "reject", policies["overpayment_policy"])
	assert.Equal(t, string(billing.FallbackNone), policies["pricing_fallback"])
}

func TestSystemHandler_Ping(t *testing.T) {
	h := NewSystemHandler("1.0.0", appbilling.DefaultConfig())

	data := serveSystem(t, h, "/system/ping", h.Ping)
	assert.Equal(t, "pong", data["message"])
	_, err := time.Parse(time.RFC3339, data["timestamp"].(string))
	assert.NoError(t, err)
}
