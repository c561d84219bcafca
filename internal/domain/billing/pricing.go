package billing

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// FallbackPolicy decides what Resolve does when no exact rule matches
type FallbackPolicy string

const (
	// FallbackNone fails with RULE_NOT_FOUND
	FallbackNone FallbackPolicy = "none"
	// FallbackBusinessDefault uses the business's rule flagged IsDefault
	FallbackBusinessDefault FallbackPolicy = "business_default"
)

// IsValid checks if the policy is known
func (p FallbackPolicy) IsValid() bool {
	return p == FallbackNone || p == FallbackBusinessDefault
}

// PriceTier is one band of a tiered tariff. ToUnit nil means unbounded.
type PriceTier struct {
	FromUnit     decimal.Decimal  `json:"from_unit"`
	ToUnit       *decimal.Decimal `json:"to_unit,omitempty"`
	PricePerUnit decimal.Decimal  `json:"price_per_unit"`
}

// PricingRule is the tariff for one (business, meter type, usage type) key
type PricingRule struct {
	shared.BaseEntity
	BusinessID      uuid.UUID
	MeterType       MeterType
	UsageType       UsageType
	SubscriptionFee decimal.Decimal
	DepositAmount   decimal.Decimal
	DepositRequired bool
	Rate            decimal.Decimal
	Tiers           []PriceTier
	IsDefault       bool
	Active          bool
}

// NewPricingRule creates an active rule. Prepaid meters never take a deposit.
func NewPricingRule(businessID uuid.UUID, meterType MeterType, usageType UsageType, subscriptionFee, rate, depositAmount decimal.Decimal, depositRequired bool, tiers []PriceTier) (*PricingRule, error) {
	if businessID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Business ID cannot be empty")
	}
	if !meterType.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invalid meter type")
	}
	if !usageType.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invalid usage type")
	}
	if subscriptionFee.IsNegative() || rate.IsNegative() || depositAmount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Fees, rate and deposit cannot be negative")
	}
	if err := validateTiers(tiers); err != nil {
		return nil, err
	}

	if meterType == MeterTypePrepaid {
		depositRequired = false
		depositAmount = decimal.Zero
	}

	return &PricingRule{
		BaseEntity:      shared.NewBaseEntity(),
		BusinessID:      businessID,
		MeterType:       meterType,
		UsageType:       usageType,
		SubscriptionFee: RoundMoney(subscriptionFee),
		DepositAmount:   RoundMoney(depositAmount),
		DepositRequired: depositRequired,
		Rate:            rate,
		Tiers:           tiers,
		Active:          true,
	}, nil
}

// validateTiers requires ascending, non-overlapping bands with only the last
// band unbounded.
func validateTiers(tiers []PriceTier) error {
	for i, t := range tiers {
		if t.FromUnit.IsNegative() || t.PricePerUnit.IsNegative() {
			return shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Tier %d has a negative bound or price", i+1))
		}
		if t.ToUnit == nil {
			if i != len(tiers)-1 {
				return shared.NewDomainError("INVALID_INPUT", "Only the last tier may be unbounded")
			}
		} else if !t.ToUnit.GreaterThan(t.FromUnit) {
			return shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Tier %d upper bound must exceed its lower bound", i+1))
		}
		if i > 0 {
			prev := tiers[i-1]
			if prev.ToUnit == nil || t.FromUnit.LessThan(*prev.ToUnit) {
				return shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Tier %d overlaps the previous tier", i+1))
			}
		}
	}
	return nil
}

// Matches reports whether the rule is active for the given key
func (r *PricingRule) Matches(businessID uuid.UUID, meterType MeterType, usageType UsageType) bool {
	return r.Active && r.BusinessID == businessID && r.MeterType == meterType && r.UsageType == usageType
}

// SameKey reports whether two rules price the same (business, meter, usage) key
func (r *PricingRule) SameKey(other *PricingRule) bool {
	return r.BusinessID == other.BusinessID && r.MeterType == other.MeterType && r.UsageType == other.UsageType
}

// Deactivate retires the rule
func (r *PricingRule) Deactivate() {
	r.Active = false
	r.Touch()
}

// MarkDefault flags the rule as the business-wide fallback
func (r *PricingRule) MarkDefault() {
	r.IsDefault = true
	r.Touch()
}

// ConsumptionCharge prices consumption with the flat rate or, when tiers are
// set, band by band. The result is rounded to money scale.
func (r *PricingRule) ConsumptionCharge(consumption decimal.Decimal) decimal.Decimal {
	if !consumption.IsPositive() {
		return decimal.Zero
	}
	if len(r.Tiers) == 0 {
		return RoundMoney(consumption.Mul(r.Rate))
	}

	tiers := make([]PriceTier, len(r.Tiers))
	copy(tiers, r.Tiers)
	sort.SliceStable(tiers, func(i, j int) bool {
		return tiers[i].FromUnit.LessThan(tiers[j].FromUnit)
	})

	total := decimal.Zero
	for _, t := range tiers {
		total = total.Add(unitsInBand(consumption, t).Mul(t.PricePerUnit))
	}
	return RoundMoney(total)
}

// unitsInBand is clamp(consumption, from, to) - from
func unitsInBand(consumption decimal.Decimal, t PriceTier) decimal.Decimal {
	clamped := consumption
	if clamped.LessThan(t.FromUnit) {
		clamped = t.FromUnit
	}
	if t.ToUnit != nil && clamped.GreaterThan(*t.ToUnit) {
		clamped = *t.ToUnit
	}
	return clamped.Sub(t.FromUnit)
}

// ResolveRule picks the active rule for the key among candidates.
// With FallbackBusinessDefault an unmatched key falls back to the business's
// active default rule. Anything else yields ErrRuleNotFound.
func ResolveRule(candidates []*PricingRule, businessID uuid.UUID, meterType MeterType, usageType UsageType, policy FallbackPolicy) (*PricingRule, error) {
	var fallback *PricingRule
	for _, rule := range candidates {
		if rule == nil {
			continue
		}
		if rule.Matches(businessID, meterType, usageType) {
			return rule, nil
		}
		if fallback == nil && rule.Active && rule.IsDefault && rule.BusinessID == businessID {
			fallback = rule
		}
	}

	if policy == FallbackBusinessDefault && fallback != nil {
		return fallback, nil
	}
	return nil, shared.NewDomainError(CodeRuleNotFound,
		fmt.Sprintf("No active pricing rule for meter type %s and usage type %s", meterType, usageType))
}
