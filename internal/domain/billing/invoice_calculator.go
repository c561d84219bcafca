package billing

import (
	"time"

	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DefaultVATRate is applied to the consumption amount
var DefaultVATRate = decimal.NewFromFloat(0.15)

// ChargeBreakdown is the priced content of one invoice
type ChargeBreakdown struct {
	Consumption       decimal.Decimal
	ConsumptionAmount decimal.Decimal
	FixedCharges      decimal.Decimal
	VATRate           decimal.Decimal
	VATAmount         decimal.Decimal
	TotalAmount       decimal.Decimal
}

// CalculateCharges prices consumption under rule. VAT is levied on the
// consumption amount only; the subscription fee is added untaxed.
func CalculateCharges(rule *PricingRule, consumption, vatRate decimal.Decimal) ChargeBreakdown {
	consumptionAmount := rule.ConsumptionCharge(consumption)
	vat := RoundMoney(consumptionAmount.Mul(vatRate))
	fixed := RoundMoney(rule.SubscriptionFee)
	return ChargeBreakdown{
		Consumption:       consumption,
		ConsumptionAmount: consumptionAmount,
		FixedCharges:      fixed,
		VATRate:           vatRate,
		VATAmount:         vat,
		TotalAmount:       consumptionAmount.Add(fixed).Add(vat),
	}
}

// InvoiceInput bundles everything needed to bill one reading
type InvoiceInput struct {
	Period  *BillingPeriod
	Meter   *Meter
	Account *SubscriptionAccount
	Reading *MeterReading
	Rule    *PricingRule
	VATRate decimal.Decimal
	Now     time.Time
}

// GenerateInvoice builds the invoice for a reading and charges the account
// and meter ledgers. The account's balance before charging is kept on the
// invoice for display; it is not part of the total.
func GenerateInvoice(in InvoiceInput) (*Invoice, error) {
	if in.Period == nil || in.Meter == nil || in.Account == nil || in.Reading == nil || in.Rule == nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Period, meter, account, reading and rule are required")
	}
	if err := in.Period.EnsureBillingPhase(); err != nil {
		return nil, err
	}
	if !in.Reading.IsEligibleForInvoicing() {
		return nil, ErrReadingNotInvoiceable
	}
	if in.Reading.MeterID != in.Meter.ID || in.Reading.PeriodID != in.Period.ID {
		return nil, shared.NewDomainError("INVALID_INPUT", "Reading does not belong to this meter and period")
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	charges := CalculateCharges(in.Rule, in.Reading.Consumption, in.VATRate)

	inv := &Invoice{
		BaseAggregateRoot:  shared.NewBaseAggregateRoot(),
		InvoiceNumber:      InvoiceNumber(in.Period.Code, in.Meter.MeterNumber),
		CustomerID:         in.Meter.CustomerID,
		AccountID:          in.Account.ID,
		MeterID:            in.Meter.ID,
		ReadingID:          in.Reading.ID,
		PeriodID:           in.Period.ID,
		InvoiceDate:        now,
		DueDate:            in.Period.DueDate,
		PeriodStart:        in.Period.StartDate,
		PeriodEnd:          in.Period.EndDate,
		PreviousReading:    in.Reading.PreviousReading,
		CurrentReading:     in.Reading.CurrentReading,
		Consumption:        charges.Consumption,
		ConsumptionAmount:  charges.ConsumptionAmount,
		FixedCharges:       charges.FixedCharges,
		VATRate:            charges.VATRate,
		VATAmount:          charges.VATAmount,
		PreviousBalanceDue: in.Account.BalanceDue,
		TotalAmount:        charges.TotalAmount,
		PaidAmount:         decimal.Zero,
		BalanceDue:         charges.TotalAmount,
		Status:             InvoiceStatusGenerated,
	}

	in.Account.Charge(inv.BalanceDue)
	in.Meter.AddBalance(inv.BalanceDue)
	in.Period.RecordInvoice(inv.TotalAmount)
	inv.AddDomainEvent(NewInvoiceGeneratedEvent(inv))
	return inv, nil
}
