package billing

import "github.com/shopspring/decimal"

// AnomalyKind describes why a reading is suspicious
type AnomalyKind string

const (
	AnomalyNone         AnomalyKind = ""
	AnomalyNonMonotonic AnomalyKind = "non_monotonic"
	AnomalyOutlier      AnomalyKind = "outlier"
)

// DefaultOutlierMultiplier flags consumption above this multiple of the trailing average
const DefaultOutlierMultiplier = 10

// DefaultTrailingWindow is the number of confirmed readings averaged
const DefaultTrailingWindow = 3

// ValidatorConfig tunes anomaly detection
type ValidatorConfig struct {
	OutlierMultiplier decimal.Decimal
}

// DefaultValidatorConfig returns the standard multiplier of 10
func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{OutlierMultiplier: decimal.NewFromInt(DefaultOutlierMultiplier)}
}

// ValidationResult is the outcome of validating a reading pair
type ValidationResult struct {
	Consumption decimal.Decimal
	Anomaly     AnomalyKind
}

// HasAnomaly reports whether the reading needs review
func (r ValidationResult) HasAnomaly() bool {
	return r.Anomaly != AnomalyNone
}

// ValidateReading computes consumption and classifies anomalies.
// A negative delta is reported as non_monotonic with consumption clamped to 0.
// Otherwise consumption above multiplier x trailingAverage is an outlier;
// a zero or negative average disables the outlier check.
func ValidateReading(previous, current, trailingAverage decimal.Decimal, cfg ValidatorConfig) ValidationResult {
	consumption := RoundReading(current.Sub(previous))
	if consumption.IsNegative() {
		return ValidationResult{Consumption: decimal.Zero, Anomaly: AnomalyNonMonotonic}
	}

	multiplier := cfg.OutlierMultiplier
	if !multiplier.IsPositive() {
		multiplier = decimal.NewFromInt(DefaultOutlierMultiplier)
	}
	if trailingAverage.IsPositive() && consumption.GreaterThan(multiplier.Mul(trailingAverage)) {
		return ValidationResult{Consumption: consumption, Anomaly: AnomalyOutlier}
	}
	return ValidationResult{Consumption: consumption, Anomaly: AnomalyNone}
}

// TrailingAverage is the mean of the given consumptions, zero for none
func TrailingAverage(consumptions []decimal.Decimal) decimal.Decimal {
	if len(consumptions) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, c := range consumptions {
		sum = sum.Add(c)
	}
	return RoundReading(sum.Div(decimal.NewFromInt(int64(len(consumptions)))))
}
