package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	appbilling "github.com/meterbill/backend/internal/application/billing"
	"github.com/meterbill/backend/internal/domain/billing"
	"github.com/meterbill/backend/internal/infrastructure/persistence"
	"github.com/meterbill/backend/internal/infrastructure/persistence/persistencetest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const businessID = "7b6b5d4e-3c2a-4f1e-9d8c-1a2b3c4d5e6f"

const sampleSeed = `
business_id: ` + businessID + `
rules:
  - meter_type: smart
    usage_type: residential
    subscription_fee: "10.00"
    rate: "0.5"
    is_default: true
  - meter_type: traditional
    usage_type: commercial
    subscription_fee: "25"
    deposit_amount: "100"
    deposit_required: true
    tiers:
      - {from: "0", to: "100", price: "0.30"}
      - {from: "100", price: "0.45"}
`

func TestParsePricingRules(t *testing.T) {
	rules, err := ParsePricingRules([]byte(sampleSeed))
	require.NoError(t, err)
	require.Len(t, rules, 2)

	first := rules[0]
	assert.Equal(t, uuid.MustParse(businessID), first.BusinessID)
	assert.Equal(t, billing.MeterTypeSmart, first.MeterType)
	assert.True(t, first.SubscriptionFee.Equal(decimal.NewFromInt(10)))
	assert.True(t, first.Rate.Equal(decimal.RequireFromString("0.5")))
	assert.True(t, first.DepositAmount.IsZero())
	assert.True(t, first.IsDefault)
	assert.Empty(t, first.Tiers)

	second := rules[1]
	assert.True(t, second.DepositRequired)
	require.Len(t, second.Tiers, 2)
	require.NotNil(t, second.Tiers[0].ToUnit)
	assert.True(t, second.Tiers[0].ToUnit.Equal(decimal.NewFromInt(100)))
	assert.Nil(t, second.Tiers[1].ToUnit)
	assert.True(t, second.Tiers[1].PricePerUnit.Equal(decimal.RequireFromString("0.45")))
}

func TestParsePricingRules_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"malformed", "rules: [", "parse pricing seed"},
		{"missing business", "rules:\n  - meter_type: smart\n    usage_type: residential\n", "business_id"},
		{"bad meter type", "business_id: " + businessID + "\nrules:\n  - meter_type: analog\n    usage_type: residential\n", "unknown meter_type"},
		{"bad usage type", "business_id: " + businessID + "\nrules:\n  - meter_type: smart\n    usage_type: hotel\n", "unknown usage_type"},
		{"bad rate", "business_id: " + businessID + "\nrules:\n  - meter_type: smart\n    usage_type: residential\n    rate: cheap\n", "rate \"cheap\""},
		{"bad tier", "business_id: " + businessID + "\nrules:\n  - meter_type: smart\n    usage_type: residential\n    tiers:\n      - {from: x, price: '1'}\n", "tier 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePricingRules([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSeedPricing_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing_rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleSeed), 0o600))

	scope := persistence.NewGormTransactionScope(persistencetest.NewSQLiteDB(t))
	svc := appbilling.NewPricingService(scope, appbilling.DefaultConfig())
	ctx := context.Background()

	created, err := SeedPricing(ctx, svc, path, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	created, err = SeedPricing(ctx, svc, path, zap.NewNop())
	require.NoError(t, err)
	assert.Zero(t, created)

	rule, err := svc.Resolve(ctx, uuid.MustParse(businessID), billing.MeterTypeTraditional, billing.UsageTypeCommercial)
	require.NoError(t, err)
	assert.True(t, rule.DepositAmount.Equal(decimal.NewFromInt(100)))
}

func TestSeedPricing_EmptyPathAndMissingFile(t *testing.T) {
	created, err := SeedPricing(context.Background(), nil, "", nil)
	require.NoError(t, err)
	assert.Zero(t, created)

	_, err = SeedPricing(context.Background(), nil, filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read pricing seed")
}
