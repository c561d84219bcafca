package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	appbilling "github.com/meterbill/backend/internal/application/billing"
	"github.com/meterbill/backend/internal/interfaces/http/dto"
)

// ServiceName is reported by the system info endpoint
const ServiceName = "MeterBill Billing API"

// SystemHandler serves build and policy information about the running engine
type SystemHandler struct {
	BaseHandler
	version   string
	policies  BillingPolicies
	startedAt time.Time
}

func NewSystemHandler(version string, cfg appbilling.Config) *SystemHandler {
	if version == "" {
		version = "dev"
	}
	return &SystemHandler{
		version: version,
		policies: BillingPolicies{
			Currency:          cfg.Currency,
			VATRate:           cfg.VATRate.String(),
			OverpaymentPolicy: string(cfg.OverpaymentPolicy),
			PricingFallback:   string(cfg.PricingFallback),
			OutlierMultiplier: cfg.OutlierMultiplier.String(),
			TrailingWindow:    cfg.TrailingWindow,
		},
		startedAt: time.Now(),
	}
}

// BillingPolicies are the configured switches that change invoice and payment outcomes
type BillingPolicies struct {
	Currency          string `json:"currency" example:"EUR"`
	VATRate           string `json:"vat_rate" example:"0.2"`
	OverpaymentPolicy string `json:"overpayment_policy" example:"wallet"`
	PricingFallback   string `json:"pricing_fallback" example:"none"`
	OutlierMultiplier string `json:"outlier_multiplier" example:"3"`
	TrailingWindow    int    `json:"trailing_window" example:"6"`
}

type SystemInfoResponse struct {
	Name      string          `json:"name" example:"MeterBill Billing API"`
	Version   string          `json:"version" example:"1.0.0"`
	GoVersion string          `json:"go_version" example:"go1.25.5"`
	Uptime    string          `json:"uptime" example:"1h30m45s"`
	Billing   BillingPolicies `json:"billing"`
}

// GetSystemInfo godoc
// @Summary      Build and billing policy information
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[SystemInfoResponse]
// @Router       /system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(SystemInfoResponse{
		Name:      ServiceName,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
		Billing:   h.policies,
	}))
}

type PingResponse struct {
	Message   string `json:"message" example:"pong"`
	Timestamp string `json:"timestamp" example:"2026-01-23T12:00:00Z"`
}

// Ping godoc
// @Summary      Liveness probe for the API
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[PingResponse]
// @Router       /system/ping [get]
func (h *SystemHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(PingResponse{
		Message:   "pong",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}))
}
