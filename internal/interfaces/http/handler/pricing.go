package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appbilling "github.com/meterbill/backend/internal/application/billing"
	"github.com/meterbill/backend/internal/domain/billing"
)

// PricingHandler handles pricing rule endpoints
type PricingHandler struct {
	BaseHandler
	pricing *appbilling.PricingService
}

// NewPricingHandler creates a new PricingHandler
func NewPricingHandler(pricing *appbilling.PricingService) *PricingHandler {
	return &PricingHandler{pricing: pricing}
}

// Create godoc
// @Summary      Create pricing rule
// @Description  Adds a tariff; an active rule for the same profile is deactivated
// @Tags         billing-pricing
// @Accept       json
// @Produce      json
// @Param        request body CreatePricingRuleRequest true "Rule"
// @Success      201 {object} APIResponse[PricingRuleResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /billing/pricing-rules [post]
func (h *PricingHandler) Create(c *gin.Context) {
	var req CreatePricingRuleRequest
	if !h.bindJSON(c, &req) {
		return
	}

	tiers := make([]billing.PriceTier, 0, len(req.Tiers))
	for _, t := range req.Tiers {
		tier := billing.PriceTier{FromUnit: t.FromUnit, PricePerUnit: t.PricePerUnit}
		if t.ToUnit.Valid {
			to := t.ToUnit.Decimal
			tier.ToUnit = &to
		}
		tiers = append(tiers, tier)
	}

	rule, err := h.pricing.CreateRule(c.Request.Context(), appbilling.CreatePricingRuleInput{
		BusinessID:      uuid.MustParse(req.BusinessID),
		MeterType:       billing.MeterType(req.MeterType),
		UsageType:       billing.UsageType(req.UsageType),
		SubscriptionFee: req.SubscriptionFee,
		Rate:            req.Rate,
		DepositAmount:   req.DepositAmount,
		DepositRequired: req.DepositRequired,
		Tiers:           tiers,
		IsDefault:       req.IsDefault,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toPricingRuleResponse(rule))
}

// List godoc
// @Summary      List pricing rules
// @Tags         billing-pricing
// @Produce      json
// @Param        business_id query string false "Business ID"
// @Param        meter_type query string false "Meter type"
// @Param        usage_type query string false "Usage type"
// @Param        active_only query bool false "Only active rules"
// @Success      200 {object} APIResponse[[]PricingRuleResponse]
// @Router       /billing/pricing-rules [get]
func (h *PricingHandler) List(c *gin.Context) {
	var req ListPricingRulesRequest
	if !h.bindQuery(c, &req) {
		return
	}

	filter := billing.PricingRuleFilter{Filter: toFilter(req.ListRequest), ActiveOnly: req.ActiveOnly}
	filter.BusinessID, _ = parseOptionalUUID(req.BusinessID)
	if req.MeterType != "" {
		mt := billing.MeterType(req.MeterType)
		filter.MeterType = &mt
	}
	if req.UsageType != "" {
		ut := billing.UsageType(req.UsageType)
		filter.UsageType = &ut
	}

	rules, total, err := h.pricing.ListRules(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, mapSlice(rules, toPricingRuleResponse), total, filter.Page, filter.PageSize)
}

// Resolve godoc
// @Summary      Resolve pricing rule
// @Description  Returns the rule that would price a meter with this profile
// @Tags         billing-pricing
// @Produce      json
// @Param        business_id query string true "Business ID"
// @Param        meter_type query string true "Meter type"
// @Param        usage_type query string true "Usage type"
// @Success      200 {object} APIResponse[PricingRuleResponse]
// @Failure      422 {object} ErrorResponse
// @Router       /billing/pricing-rules/resolve [get]
func (h *PricingHandler) Resolve(c *gin.Context) {
	var req ResolvePricingRuleRequest
	if !h.bindQuery(c, &req) {
		return
	}

	rule, err := h.pricing.Resolve(c.Request.Context(),
		uuid.MustParse(req.BusinessID),
		billing.MeterType(req.MeterType),
		billing.UsageType(req.UsageType),
	)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toPricingRuleResponse(rule))
}

// Deactivate godoc
// @Summary      Deactivate pricing rule
// @Tags         billing-pricing
// @Produce      json
// @Param        id path string true "Rule ID"
// @Success      200 {object} APIResponse[PricingRuleResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /billing/pricing-rules/{id}/deactivate [post]
func (h *PricingHandler) Deactivate(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	rule, err := h.pricing.DeactivateRule(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toPricingRuleResponse(rule))
}
