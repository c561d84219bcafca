package billing

import (
	"github.com/meterbill/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
)

// Config holds the policy switches of the billing services
type Config struct {
	VATRate             decimal.Decimal
	OutlierMultiplier   decimal.Decimal
	TrailingWindow      int
	MinApprovedReadings int
	OverpaymentPolicy   billing.OverpaymentPolicy
	PricingFallback     billing.FallbackPolicy
	// MaxRetries bounds retries after an optimistic lock conflict
	MaxRetries int
	Currency   string
}

// DefaultConfig returns the standard billing configuration
func DefaultConfig() Config {
	return Config{
		VATRate:             billing.DefaultVATRate,
		OutlierMultiplier:   decimal.NewFromInt(billing.DefaultOutlierMultiplier),
		TrailingWindow:      billing.DefaultTrailingWindow,
		MinApprovedReadings: 1,
		OverpaymentPolicy:   billing.OverpaymentToWallet,
		PricingFallback:     billing.FallbackNone,
		MaxRetries:          3,
		Currency:            billing.DefaultCurrency,
	}
}

// normalized fills unset or invalid fields with defaults
func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.VATRate.IsNegative() {
		c.VATRate = d.VATRate
	}
	if !c.OutlierMultiplier.IsPositive() {
		c.OutlierMultiplier = d.OutlierMultiplier
	}
	if c.TrailingWindow <= 0 {
		c.TrailingWindow = d.TrailingWindow
	}
	if c.MinApprovedReadings < 0 {
		c.MinApprovedReadings = d.MinApprovedReadings
	}
	if !c.OverpaymentPolicy.IsValid() {
		c.OverpaymentPolicy = d.OverpaymentPolicy
	}
	if !c.PricingFallback.IsValid() {
		c.PricingFallback = d.PricingFallback
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.Currency == "" {
		c.Currency = d.Currency
	}
	return c
}

func (c Config) validatorConfig() billing.ValidatorConfig {
	return billing.ValidatorConfig{OutlierMultiplier: c.OutlierMultiplier}
}
