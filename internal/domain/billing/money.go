package billing

import "github.com/shopspring/decimal"

const (
	// MoneyScale is the number of decimal places kept for monetary amounts
	MoneyScale = 2
	// ReadingScale is the number of decimal places kept for meter readings
	ReadingScale = 3
)

// RoundMoney rounds an amount to MoneyScale places
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// RoundReading rounds a meter value to ReadingScale places
func RoundReading(d decimal.Decimal) decimal.Decimal {
	return d.Round(ReadingScale)
}

func minDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
