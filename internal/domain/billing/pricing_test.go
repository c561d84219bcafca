package billing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptrDec(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestNewPricingRule(t *testing.T) {
	businessID := uuid.New()

	t.Run("prepaid never requires deposit", func(t *testing.T) {
		r, err := NewPricingRule(businessID, MeterTypePrepaid, UsageTypeResidential, dec("10"), dec("0.2"), dec("500"), true, nil)
		require.NoError(t, err)
		assert.False(t, r.DepositRequired)
		assert.True(t, r.DepositAmount.IsZero())
		assert.True(t, r.Active)
	})

	t.Run("traditional keeps deposit", func(t *testing.T) {
		r, err := NewPricingRule(businessID, MeterTypeTraditional, UsageTypeCommercial, dec("10"), dec("0.2"), dec("500"), true, nil)
		require.NoError(t, err)
		assert.True(t, r.DepositRequired)
		assert.True(t, r.DepositAmount.Equal(dec("500")))
	})

	invalid := []struct {
		name  string
		mt    MeterType
		ut    UsageType
		rate  string
		tiers []PriceTier
	}{
		{"bad meter type", MeterType("analog"), UsageTypeResidential, "0.3", nil},
		{"bad usage type", MeterTypeSmart, UsageType("mixed"), "0.3", nil},
		{"negative rate", MeterTypeSmart, UsageTypeResidential, "-0.3", nil},
		{"unbounded tier not last", MeterTypeSmart, UsageTypeResidential, "0", []PriceTier{
			{FromUnit: dec("0"), PricePerUnit: dec("0.1")},
			{FromUnit: dec("100"), PricePerUnit: dec("0.2")},
		}},
		{"overlapping tiers", MeterTypeSmart, UsageTypeResidential, "0", []PriceTier{
			{FromUnit: dec("0"), ToUnit: ptrDec("200"), PricePerUnit: dec("0.1")},
			{FromUnit: dec("100"), PricePerUnit: dec("0.2")},
		}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPricingRule(businessID, tt.mt, tt.ut, dec("0"), dec(tt.rate), decimal.Zero, false, tt.tiers)
			assert.ErrorIs(t, err, shared.ErrInvalidInput)
		})
	}
}

func TestPricingRule_ConsumptionCharge(t *testing.T) {
	businessID := uuid.New()
	flat := newFlatRule(t, businessID, "0.30", "50")

	tiered, err := NewPricingRule(businessID, MeterTypeSmart, UsageTypeResidential, dec("0"), dec("0"), decimal.Zero, false, []PriceTier{
		{FromUnit: dec("0"), ToUnit: ptrDec("100"), PricePerUnit: dec("0.10")},
		{FromUnit: dec("100"), ToUnit: ptrDec("500"), PricePerUnit: dec("0.20")},
		{FromUnit: dec("500"), PricePerUnit: dec("0.30")},
	})
	require.NoError(t, err)

	tests := []struct {
		name        string
		rule        *PricingRule
		consumption string
		want        string
	}{
		{"flat", flat, "1000", "300"},
		{"flat zero", flat, "0", "0"},
		{"flat rounds to cents", flat, "0.015", "0"},
		{"flat rounds half up", flat, "0.05", "0.02"},
		{"first band only", tiered, "50", "5"},
		{"band edge", tiered, "100", "10"},
		{"two bands", tiered, "300", "50"},
		{"all bands", tiered, "700", "150"},
		{"tiered zero", tiered, "0", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.rule.ConsumptionCharge(dec(tt.consumption))
			assert.True(t, got.Equal(dec(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestResolveRule(t *testing.T) {
	businessID := uuid.New()
	exact := newFlatRule(t, businessID, "0.30", "50")

	def, err := NewPricingRule(businessID, MeterTypeSmart, UsageTypeCommercial, dec("20"), dec("0.40"), decimal.Zero, false, nil)
	require.NoError(t, err)
	def.MarkDefault()

	retired := newFlatRule(t, businessID, "0.10", "5")
	retired.UsageType = UsageTypeIndustrial
	retired.Deactivate()

	otherBusiness := newFlatRule(t, uuid.New(), "0.99", "99")
	otherBusiness.UsageType = UsageTypeAgricultural
	otherBusiness.MarkDefault()

	candidates := []*PricingRule{otherBusiness, retired, def, exact}

	t.Run("exact match wins", func(t *testing.T) {
		for _, policy := range []FallbackPolicy{FallbackNone, FallbackBusinessDefault} {
			got, err := ResolveRule(candidates, businessID, MeterTypeTraditional, UsageTypeResidential, policy)
			require.NoError(t, err)
			assert.Equal(t, exact.ID, got.ID)
		}
	})

	t.Run("no match without fallback", func(t *testing.T) {
		_, err := ResolveRule(candidates, businessID, MeterTypePrepaid, UsageTypeGovernmental, FallbackNone)
		assert.ErrorIs(t, err, ErrRuleNotFound)
	})

	t.Run("inactive rule does not match", func(t *testing.T) {
		_, err := ResolveRule(candidates, businessID, MeterTypeTraditional, UsageTypeIndustrial, FallbackNone)
		assert.ErrorIs(t, err, ErrRuleNotFound)
	})

	t.Run("business default fallback", func(t *testing.T) {
		got, err := ResolveRule(candidates, businessID, MeterTypePrepaid, UsageTypeGovernmental, FallbackBusinessDefault)
		require.NoError(t, err)
		assert.Equal(t, def.ID, got.ID)
	})

	t.Run("default of another business is ignored", func(t *testing.T) {
		_, err := ResolveRule([]*PricingRule{otherBusiness}, businessID, MeterTypePrepaid, UsageTypeGovernmental, FallbackBusinessDefault)
		assert.ErrorIs(t, err, ErrRuleNotFound)
	})

	t.Run("fallback without default", func(t *testing.T) {
		_, err := ResolveRule([]*PricingRule{exact}, businessID, MeterTypeSmart, UsageTypeIndustrial, FallbackBusinessDefault)
		assert.ErrorIs(t, err, ErrRuleNotFound)
	})
}
