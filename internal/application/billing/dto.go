package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
)

// CreatePeriodInput carries the fields of a new billing period
type CreatePeriodInput struct {
	BusinessID uuid.UUID
	Code       string
	Name       string
	StartDate  time.Time
	EndDate    time.Time
	DueDate    time.Time
}

// SubmitReadingInput carries a captured meter value
type SubmitReadingInput struct {
	PeriodID       uuid.UUID
	MeterID        uuid.UUID
	CurrentReading decimal.Decimal
	ReadingType    billing.ReadingType
	ReadingDate    time.Time
	Notes          string
}

// GenerateInvoicesResult reports a generation run
type GenerateInvoicesResult struct {
	PeriodID   uuid.UUID   `json:"period_id"`
	Created    int         `json:"created"`
	Skipped    int         `json:"skipped"`
	InvoiceIDs []uuid.UUID `json:"invoice_ids"`
}

// RecordPaymentInput carries a received payment. InvoiceID nil means the
// payment is spread over open invoices oldest first.
type RecordPaymentInput struct {
	CustomerID      uuid.UUID
	Amount          decimal.Decimal
	Method          billing.PaymentMethod
	PaymentDate     time.Time
	InvoiceID       *uuid.UUID
	ReferenceNumber string
	IdempotencyKey  string
}

// PaymentResult is the recorded payment and any wallet entry it produced
type PaymentResult struct {
	Payment           *billing.Payment
	WalletTransaction *billing.WalletTransaction
	// Replayed is true when an earlier payment with the same idempotency key was returned
	Replayed bool
}

// WalletChargeInput tops up a wallet
type WalletChargeInput struct {
	CustomerID  uuid.UUID
	Amount      decimal.Decimal
	Description string
	CreatedBy   *uuid.UUID
}

// WalletWithdrawInput takes money out of a wallet, optionally for a meter
type WalletWithdrawInput struct {
	CustomerID  uuid.UUID
	Amount      decimal.Decimal
	MeterID     *uuid.UUID
	Description string
	CreatedBy   *uuid.UUID
}

// WalletResult is the wallet after a movement and the entry written
type WalletResult struct {
	Wallet      *billing.Wallet
	Transaction *billing.WalletTransaction
}

// CreatePricingRuleInput carries a new tariff
type CreatePricingRuleInput struct {
	BusinessID      uuid.UUID
	MeterType       billing.MeterType
	UsageType       billing.UsageType
	SubscriptionFee decimal.Decimal
	Rate            decimal.Decimal
	DepositAmount   decimal.Decimal
	DepositRequired bool
	Tiers           []billing.PriceTier
	IsDefault       bool
}

// CreateAccountInput carries a new subscription account
type CreateAccountInput struct {
	CustomerID    uuid.UUID
	AccountNumber string
}

// CreateMeterInput carries a new meter
type CreateMeterInput struct {
	AccountID      uuid.UUID
	BusinessID     uuid.UUID
	MeterNumber    string
	MeterType      billing.MeterType
	Phase          billing.Phase
	UsageType      billing.UsageType
	InitialReading decimal.Decimal
}
