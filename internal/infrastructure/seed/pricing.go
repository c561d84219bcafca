// Package seed loads startup data for the billing engine from YAML files.
package seed

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	appbilling "github.com/meterbill/backend/internal/application/billing"
	"github.com/meterbill/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// PricingFile is the layout of a pricing seed file. Amounts are strings so
// they are parsed as exact decimals.
type PricingFile struct {
	BusinessID string        `yaml:"business_id"`
	Rules      []PricingRule `yaml:"rules"`
}

// PricingRule is one tariff entry of the seed file
type PricingRule struct {
	BusinessID      string `yaml:"business_id"`
	MeterType       string `yaml:"meter_type"`
	UsageType       string `yaml:"usage_type"`
	SubscriptionFee string `yaml:"subscription_fee"`
	Rate            string `yaml:"rate"`
	DepositAmount   string `yaml:"deposit_amount"`
	DepositRequired bool   `yaml:"deposit_required"`
	IsDefault       bool   `yaml:"is_default"`
	Tiers           []Tier `yaml:"tiers"`
}

// Tier is one consumption band. An empty To means unbounded.
type Tier struct {
	From  string `yaml:"from"`
	To    string `yaml:"to"`
	Price string `yaml:"price"`
}

// PricingSeeder creates rules that do not exist yet
type PricingSeeder interface {
	SeedRules(ctx context.Context, rules []appbilling.CreatePricingRuleInput) (int, error)
}

// LoadPricingRules reads and parses a pricing seed file
func LoadPricingRules(path string) ([]appbilling.CreatePricingRuleInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pricing seed %s: %w", path, err)
	}
	return ParsePricingRules(data)
}

// ParsePricingRules converts seed YAML into pricing rule inputs. The
// file-level business_id applies to rules that do not set their own.
func ParsePricingRules(data []byte) ([]appbilling.CreatePricingRuleInput, error) {
	var file PricingFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse pricing seed: %w", err)
	}

	out := make([]appbilling.CreatePricingRuleInput, 0, len(file.Rules))
	for i, r := range file.Rules {
		in, err := r.toInput(file.BusinessID)
		if err != nil {
			return nil, fmt.Errorf("pricing seed rule %d: %w", i, err)
		}
		out = append(out, in)
	}
	return out, nil
}

func (r PricingRule) toInput(defaultBusiness string) (appbilling.CreatePricingRuleInput, error) {
	var in appbilling.CreatePricingRuleInput

	businessRaw := r.BusinessID
	if businessRaw == "" {
		businessRaw = defaultBusiness
	}
	businessID, err := uuid.Parse(businessRaw)
	if err != nil {
		return in, fmt.Errorf("business_id %q: %w", businessRaw, err)
	}

	meterType := billing.MeterType(r.MeterType)
	if !meterType.IsValid() {
		return in, fmt.Errorf("unknown meter_type %q", r.MeterType)
	}
	usageType := billing.UsageType(r.UsageType)
	if !usageType.IsValid() {
		return in, fmt.Errorf("unknown usage_type %q", r.UsageType)
	}

	fee, err := parseAmount("subscription_fee", r.SubscriptionFee)
	if err != nil {
		return in, err
	}
	rate, err := parseAmount("rate", r.Rate)
	if err != nil {
		return in, err
	}
	deposit, err := parseAmount("deposit_amount", r.DepositAmount)
	if err != nil {
		return in, err
	}

	tiers := make([]billing.PriceTier, 0, len(r.Tiers))
	for j, t := range r.Tiers {
		tier, err := t.toPriceTier()
		if err != nil {
			return in, fmt.Errorf("tier %d: %w", j, err)
		}
		tiers = append(tiers, tier)
	}

	return appbilling.CreatePricingRuleInput{
		BusinessID:      businessID,
		MeterType:       meterType,
		UsageType:       usageType,
		SubscriptionFee: fee,
		Rate:            rate,
		DepositAmount:   deposit,
		DepositRequired: r.DepositRequired,
		Tiers:           tiers,
		IsDefault:       r.IsDefault,
	}, nil
}

func (t Tier) toPriceTier() (billing.PriceTier, error) {
	from, err := parseAmount("from", t.From)
	if err != nil {
		return billing.PriceTier{}, err
	}
	price, err := parseAmount("price", t.Price)
	if err != nil {
		return billing.PriceTier{}, err
	}
	tier := billing.PriceTier{FromUnit: from, PricePerUnit: price}
	if t.To != "" {
		to, err := parseAmount("to", t.To)
		if err != nil {
			return billing.PriceTier{}, err
		}
		tier.ToUnit = &to
	}
	return tier, nil
}

// parseAmount treats an empty value as zero
func parseAmount(field, raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s %q is not a decimal", field, raw)
	}
	return d, nil
}

// SeedPricing loads path and hands the rules to the seeder. An empty path is a no-op.
func SeedPricing(ctx context.Context, seeder PricingSeeder, path string, logger *zap.Logger) (int, error) {
	if path == "" {
		return 0, nil
	}
	rules, err := LoadPricingRules(path)
	if err != nil {
		return 0, err
	}
	created, err := seeder.SeedRules(ctx, rules)
	if err != nil {
		return created, fmt.Errorf("seed pricing rules: %w", err)
	}
	if logger != nil {
		logger.Info("pricing seed applied",
			zap.String("file", path),
			zap.Int("rules", len(rules)),
			zap.Int("created", created),
		)
	}
	return created, nil
}
