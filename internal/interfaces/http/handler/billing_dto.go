package handler

import (
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/billing"
	"github.com/meterbill/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
)

// ===================== Requests =====================

// CreatePeriodRequest represents a request to open a billing period
type CreatePeriodRequest struct {
	BusinessID string `json:"business_id" binding:"required,uuid"`
	Code       string `json:"code" binding:"required,min=1,max=50"`
	Name       string `json:"name" binding:"max=200"`
	StartDate  string `json:"start_date" binding:"required"`
	EndDate    string `json:"end_date" binding:"required"`
	DueDate    string `json:"due_date" binding:"required"`
}

// ReschedulePeriodRequest moves the dates of a period that has not started
type ReschedulePeriodRequest struct {
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
	DueDate   string `json:"due_date" binding:"required"`
}

// TransitionPeriodRequest names the target lifecycle status
type TransitionPeriodRequest struct {
	Status string `json:"status" binding:"required,oneof=active reading_phase billing_phase closed"`
}

// ListPeriodsRequest represents period list query parameters
type ListPeriodsRequest struct {
	dto.ListRequest
	BusinessID string `form:"business_id" binding:"omitempty,uuid"`
	Status     string `form:"status" binding:"omitempty,oneof=pending active reading_phase billing_phase closed"`
}

// SubmitReadingRequest represents a captured meter value
type SubmitReadingRequest struct {
	PeriodID       string          `json:"period_id" binding:"required,uuid"`
	MeterID        string          `json:"meter_id" binding:"required,uuid"`
	CurrentReading decimal.Decimal `json:"current_reading" binding:"decimal_gte0"`
	ReadingType    string          `json:"reading_type" binding:"omitempty,oneof=manual automatic estimated"`
	ReadingDate    string          `json:"reading_date"`
	Notes          string          `json:"notes" binding:"max=500"`
}

// ApproveReadingRequest confirms a reading; Override accepts an anomaly
type ApproveReadingRequest struct {
	Override bool `json:"override"`
}

// RejectReadingRequest rejects a reading with a reason
type RejectReadingRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// ListReadingsRequest represents reading list query parameters
type ListReadingsRequest struct {
	dto.ListRequest
	PeriodID string `form:"period_id" binding:"omitempty,uuid"`
	MeterID  string `form:"meter_id" binding:"omitempty,uuid"`
	Status   string `form:"status" binding:"omitempty,oneof=pending confirmed estimated anomaly rejected"`
}

// RecordPaymentRequest represents a received payment. The idempotency key
// may come from the Idempotency-Key header or the body; the header wins.
type RecordPaymentRequest struct {
	CustomerID      string          `json:"customer_id" binding:"required,uuid"`
	Amount          decimal.Decimal `json:"amount" binding:"decimal_gt0"`
	Method          string          `json:"method" binding:"required,oneof=cash bank_transfer card online wallet cheque"`
	PaymentDate     string          `json:"payment_date"`
	InvoiceID       string          `json:"invoice_id" binding:"omitempty,uuid"`
	ReferenceNumber string          `json:"reference_number" binding:"max=100"`
	IdempotencyKey  string          `json:"idempotency_key" binding:"max=128"`
}

// WalletMovementRequest represents a wallet charge or withdrawal
type WalletMovementRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"decimal_gt0"`
	Description string          `json:"description" binding:"max=500"`
	MeterID     string          `json:"meter_id" binding:"omitempty,uuid"`
}

// CancelInvoiceRequest cancels an unpaid invoice
type CancelInvoiceRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// ListInvoicesRequest represents invoice list query parameters
type ListInvoicesRequest struct {
	dto.ListRequest
	CustomerID string `form:"customer_id" binding:"omitempty,uuid"`
	PeriodID   string `form:"period_id" binding:"omitempty,uuid"`
	MeterID    string `form:"meter_id" binding:"omitempty,uuid"`
	Status     string `form:"status" binding:"omitempty,oneof=generated partial paid overdue cancelled"`
}

// OverdueRequest represents overdue report query parameters
type OverdueRequest struct {
	Status     string `form:"status" binding:"omitempty,oneof=generated partial overdue"`
	DaysRange  string `form:"days_range" binding:"omitempty,oneof=0-30 31-60 61-90 90+"`
	CustomerID string `form:"customer_id" binding:"omitempty,uuid"`
	AsOf       string `form:"as_of"`
}

// PriceTierRequest is one consumption band of a tiered rule
type PriceTierRequest struct {
	FromUnit     decimal.Decimal     `json:"from_unit" binding:"decimal_gte0"`
	ToUnit       decimal.NullDecimal `json:"to_unit" binding:"omitempty,decimal_gt0"`
	PricePerUnit decimal.Decimal     `json:"price_per_unit" binding:"decimal_gte0"`
}

// CreatePricingRuleRequest represents a new tariff
type CreatePricingRuleRequest struct {
	BusinessID      string             `json:"business_id" binding:"required,uuid"`
	MeterType       string             `json:"meter_type" binding:"required,oneof=traditional smart prepaid"`
	UsageType       string             `json:"usage_type" binding:"required,oneof=residential commercial industrial governmental agricultural"`
	SubscriptionFee decimal.Decimal    `json:"subscription_fee" binding:"decimal_gte0"`
	Rate            decimal.Decimal    `json:"rate" binding:"decimal_gte0"`
	DepositAmount   decimal.Decimal    `json:"deposit_amount" binding:"decimal_gte0"`
	DepositRequired bool               `json:"deposit_required"`
	Tiers           []PriceTierRequest `json:"tiers" binding:"omitempty,dive"`
	IsDefault       bool               `json:"is_default"`
}

// ListPricingRulesRequest represents pricing rule list query parameters
type ListPricingRulesRequest struct {
	dto.ListRequest
	BusinessID string `form:"business_id" binding:"omitempty,uuid"`
	MeterType  string `form:"meter_type" binding:"omitempty,oneof=traditional smart prepaid"`
	UsageType  string `form:"usage_type" binding:"omitempty,oneof=residential commercial industrial governmental agricultural"`
	ActiveOnly bool   `form:"active_only"`
}

// ResolvePricingRuleRequest selects the rule applying to a meter profile
type ResolvePricingRuleRequest struct {
	BusinessID string `form:"business_id" binding:"required,uuid"`
	MeterType  string `form:"meter_type" binding:"required,oneof=traditional smart prepaid"`
	UsageType  string `form:"usage_type" binding:"required,oneof=residential commercial industrial governmental agricultural"`
}

// CreateAccountRequest represents a new subscription account
type CreateAccountRequest struct {
	CustomerID    string `json:"customer_id" binding:"required,uuid"`
	AccountNumber string `json:"account_number" binding:"required,max=50"`
}

// CreateMeterRequest represents a new meter
type CreateMeterRequest struct {
	AccountID      string          `json:"account_id" binding:"required,uuid"`
	BusinessID     string          `json:"business_id" binding:"required,uuid"`
	MeterNumber    string          `json:"meter_number" binding:"required,max=50"`
	MeterType      string          `json:"meter_type" binding:"required,oneof=traditional smart prepaid"`
	Phase          string          `json:"phase" binding:"omitempty,oneof=single three"`
	UsageType      string          `json:"usage_type" binding:"required,oneof=residential commercial industrial governmental agricultural"`
	InitialReading decimal.Decimal `json:"initial_reading" binding:"decimal_gte0"`
}

// ===================== Responses =====================

// PeriodResponse represents a billing period
type PeriodResponse struct {
	ID                    uuid.UUID       `json:"id"`
	BusinessID            uuid.UUID       `json:"business_id"`
	Code                  string          `json:"code"`
	Name                  string          `json:"name"`
	StartDate             time.Time       `json:"start_date"`
	EndDate               time.Time       `json:"end_date"`
	DueDate               time.Time       `json:"due_date"`
	Status                string          `json:"status"`
	TotalMeters           int             `json:"total_meters"`
	ReadingsCount         int             `json:"readings_count"`
	ApprovedReadingsCount int             `json:"approved_readings_count"`
	InvoiceCount          int             `json:"invoice_count"`
	TotalAmount           decimal.Decimal `json:"total_amount"`
	CollectedAmount       decimal.Decimal `json:"collected_amount"`
	InvoiceRuns           int             `json:"invoice_runs"`
	ClosedAt              *time.Time      `json:"closed_at,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
	Version               int             `json:"version"`
}

// ReadingResponse represents a meter reading
type ReadingResponse struct {
	ID              uuid.UUID       `json:"id"`
	MeterID         uuid.UUID       `json:"meter_id"`
	PeriodID        uuid.UUID       `json:"period_id"`
	ReadingDate     time.Time       `json:"reading_date"`
	PreviousReading decimal.Decimal `json:"previous_reading"`
	CurrentReading  decimal.Decimal `json:"current_reading"`
	Consumption     decimal.Decimal `json:"consumption"`
	ReadingType     string          `json:"reading_type"`
	Status          string          `json:"status"`
	AnomalyKind     string          `json:"anomaly_kind,omitempty"`
	TrailingAverage decimal.Decimal `json:"trailing_average"`
	Overridden      bool            `json:"overridden"`
	ApprovedAt      *time.Time      `json:"approved_at,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// InvoiceResponse represents an invoice
type InvoiceResponse struct {
	ID                 uuid.UUID       `json:"id"`
	InvoiceNumber      string          `json:"invoice_number"`
	CustomerID         uuid.UUID       `json:"customer_id"`
	AccountID          uuid.UUID       `json:"account_id"`
	MeterID            uuid.UUID       `json:"meter_id"`
	ReadingID          uuid.UUID       `json:"reading_id"`
	PeriodID           uuid.UUID       `json:"period_id"`
	InvoiceDate        time.Time       `json:"invoice_date"`
	DueDate            time.Time       `json:"due_date"`
	PeriodStart        time.Time       `json:"period_start"`
	PeriodEnd          time.Time       `json:"period_end"`
	PreviousReading    decimal.Decimal `json:"previous_reading"`
	CurrentReading     decimal.Decimal `json:"current_reading"`
	Consumption        decimal.Decimal `json:"consumption"`
	ConsumptionAmount  decimal.Decimal `json:"consumption_amount"`
	FixedCharges       decimal.Decimal `json:"fixed_charges"`
	VATRate            decimal.Decimal `json:"vat_rate"`
	VATAmount          decimal.Decimal `json:"vat_amount"`
	PreviousBalanceDue decimal.Decimal `json:"previous_balance_due"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	PaidAmount         decimal.Decimal `json:"paid_amount"`
	BalanceDue         decimal.Decimal `json:"balance_due"`
	Status             string          `json:"status"`
	CancelledAt        *time.Time      `json:"cancelled_at,omitempty"`
	CancelReason       string          `json:"cancel_reason,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	Version            int             `json:"version"`
}

// PaymentResponse represents a recorded payment
type PaymentResponse struct {
	ID                uuid.UUID                   `json:"id"`
	ReceiptNumber     string                      `json:"receipt_number"`
	CustomerID        uuid.UUID                   `json:"customer_id"`
	AccountID         *uuid.UUID                  `json:"account_id,omitempty"`
	InvoiceID         *uuid.UUID                  `json:"invoice_id,omitempty"`
	Amount            decimal.Decimal             `json:"amount"`
	AllocatedAmount   decimal.Decimal             `json:"allocated_amount"`
	WalletAmount      decimal.Decimal             `json:"wallet_amount"`
	Method            string                      `json:"method"`
	PaymentDate       time.Time                   `json:"payment_date"`
	ReferenceNumber   string                      `json:"reference_number,omitempty"`
	Status            string                      `json:"status"`
	Allocations       []billing.PaymentAllocation `json:"allocations"`
	WalletTransaction *WalletTransactionResponse  `json:"wallet_transaction,omitempty"`
	Replayed          bool                        `json:"replayed"`
	CreatedAt         time.Time                   `json:"created_at"`
}

// WalletResponse represents a customer wallet
type WalletResponse struct {
	ID                  uuid.UUID       `json:"id"`
	CustomerID          uuid.UUID       `json:"customer_id"`
	Balance             decimal.Decimal `json:"balance"`
	Currency            string          `json:"currency"`
	LastTransactionDate *time.Time      `json:"last_transaction_date,omitempty"`
	Version             int             `json:"version"`
}

// WalletTransactionResponse represents one wallet ledger entry
type WalletTransactionResponse struct {
	ID            uuid.UUID       `json:"id"`
	WalletID      uuid.UUID       `json:"wallet_id"`
	Sequence      int64           `json:"sequence"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	ReferenceType string          `json:"reference_type,omitempty"`
	ReferenceID   *uuid.UUID      `json:"reference_id,omitempty"`
	Description   string          `json:"description,omitempty"`
	CreatedBy     *uuid.UUID      `json:"created_by,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// WalletMovementResponse is the wallet after a movement and the entry written
type WalletMovementResponse struct {
	Wallet      WalletResponse            `json:"wallet"`
	Transaction WalletTransactionResponse `json:"transaction"`
}

// ReconciliationResponse compares the cached balance against the ledger
type ReconciliationResponse struct {
	CustomerID       uuid.UUID       `json:"customer_id"`
	CachedBalance    decimal.Decimal `json:"cached_balance"`
	LedgerBalance    decimal.Decimal `json:"ledger_balance"`
	TransactionCount int             `json:"transaction_count"`
	Consistent       bool            `json:"consistent"`
	BrokenAt         *uuid.UUID      `json:"broken_at,omitempty"`
}

// PricingRuleResponse represents a tariff
type PricingRuleResponse struct {
	ID              uuid.UUID           `json:"id"`
	BusinessID      uuid.UUID           `json:"business_id"`
	MeterType       string              `json:"meter_type"`
	UsageType       string              `json:"usage_type"`
	SubscriptionFee decimal.Decimal     `json:"subscription_fee"`
	DepositAmount   decimal.Decimal     `json:"deposit_amount"`
	DepositRequired bool                `json:"deposit_required"`
	Rate            decimal.Decimal     `json:"rate"`
	Tiers           []billing.PriceTier `json:"tiers,omitempty"`
	IsDefault       bool                `json:"is_default"`
	Active          bool                `json:"active"`
	CreatedAt       time.Time           `json:"created_at"`
}

// AccountResponse represents a subscription account
type AccountResponse struct {
	ID            uuid.UUID       `json:"id"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	AccountNumber string          `json:"account_number"`
	BalanceDue    decimal.Decimal `json:"balance_due"`
}

// MeterResponse represents a meter
type MeterResponse struct {
	ID              uuid.UUID       `json:"id"`
	AccountID       uuid.UUID       `json:"account_id"`
	CustomerID      uuid.UUID       `json:"customer_id"`
	BusinessID      uuid.UUID       `json:"business_id"`
	MeterNumber     string          `json:"meter_number"`
	MeterType       string          `json:"meter_type"`
	Phase           string          `json:"phase"`
	UsageType       string          `json:"usage_type"`
	CurrentReading  decimal.Decimal `json:"current_reading"`
	PreviousReading decimal.Decimal `json:"previous_reading"`
	LastReadingDate *time.Time      `json:"last_reading_date,omitempty"`
	BalanceDue      decimal.Decimal `json:"balance_due"`
	Status          string          `json:"status"`
}

// ===================== Converters =====================

func toPeriodResponse(p *billing.BillingPeriod) PeriodResponse {
	return PeriodResponse{
		ID:                    p.ID,
		BusinessID:            p.BusinessID,
		Code:                  p.Code,
		Name:                  p.Name,
		StartDate:             p.StartDate,
		EndDate:               p.EndDate,
		DueDate:               p.DueDate,
		Status:                string(p.Status),
		TotalMeters:           p.TotalMeters,
		ReadingsCount:         p.ReadingsCount,
		ApprovedReadingsCount: p.ApprovedReadingsCount,
		InvoiceCount:          p.InvoiceCount,
		TotalAmount:           p.TotalAmount,
		CollectedAmount:       p.CollectedAmount,
		InvoiceRuns:           p.InvoiceRuns,
		ClosedAt:              p.ClosedAt,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
		Version:               p.Version,
	}
}

func toReadingResponse(r *billing.MeterReading) ReadingResponse {
	return ReadingResponse{
		ID:              r.ID,
		MeterID:         r.MeterID,
		PeriodID:        r.PeriodID,
		ReadingDate:     r.ReadingDate,
		PreviousReading: r.PreviousReading,
		CurrentReading:  r.CurrentReading,
		Consumption:     r.Consumption,
		ReadingType:     string(r.ReadingType),
		Status:          string(r.Status),
		AnomalyKind:     string(r.AnomalyKind),
		TrailingAverage: r.TrailingAverage,
		Overridden:      r.Overridden,
		ApprovedAt:      r.ApprovedAt,
		Notes:           r.Notes,
		CreatedAt:       r.CreatedAt,
	}
}

func toInvoiceResponse(inv *billing.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:                 inv.ID,
		InvoiceNumber:      inv.InvoiceNumber,
		CustomerID:         inv.CustomerID,
		AccountID:          inv.AccountID,
		MeterID:            inv.MeterID,
		ReadingID:          inv.ReadingID,
		PeriodID:           inv.PeriodID,
		InvoiceDate:        inv.InvoiceDate,
		DueDate:            inv.DueDate,
		PeriodStart:        inv.PeriodStart,
		PeriodEnd:          inv.PeriodEnd,
		PreviousReading:    inv.PreviousReading,
		CurrentReading:     inv.CurrentReading,
		Consumption:        inv.Consumption,
		ConsumptionAmount:  inv.ConsumptionAmount,
		FixedCharges:       inv.FixedCharges,
		VATRate:            inv.VATRate,
		VATAmount:          inv.VATAmount,
		PreviousBalanceDue: inv.PreviousBalanceDue,
		TotalAmount:        inv.TotalAmount,
		PaidAmount:         inv.PaidAmount,
		BalanceDue:         inv.BalanceDue,
		Status:             string(inv.Status),
		CancelledAt:        inv.CancelledAt,
		CancelReason:       inv.CancelReason,
		CreatedAt:          inv.CreatedAt,
		Version:            inv.Version,
	}
}

func toPaymentResponse(p *billing.Payment) PaymentResponse {
	allocations := p.Allocations
	if allocations == nil {
		allocations = []billing.PaymentAllocation{}
	}
	return PaymentResponse{
		ID:              p.ID,
		ReceiptNumber:   p.ReceiptNumber,
		CustomerID:      p.CustomerID,
		AccountID:       p.AccountID,
		InvoiceID:       p.InvoiceID,
		Amount:          p.Amount,
		AllocatedAmount: p.AllocatedAmount,
		WalletAmount:    p.WalletAmount,
		Method:          string(p.Method),
		PaymentDate:     p.PaymentDate,
		ReferenceNumber: p.ReferenceNumber,
		Status:          string(p.Status),
		Allocations:     allocations,
		CreatedAt:       p.CreatedAt,
	}
}

func toWalletResponse(w *billing.Wallet) WalletResponse {
	return WalletResponse{
		ID:                  w.ID,
		CustomerID:          w.CustomerID,
		Balance:             w.Balance,
		Currency:            w.Currency,
		LastTransactionDate: w.LastTransactionDate,
		Version:             w.Version,
	}
}

func toWalletTransactionResponse(tx *billing.WalletTransaction) WalletTransactionResponse {
	return WalletTransactionResponse{
		ID:            tx.ID,
		WalletID:      tx.WalletID,
		Sequence:      tx.Sequence,
		CustomerID:    tx.CustomerID,
		Type:          string(tx.Type),
		Amount:        tx.Amount,
		BalanceBefore: tx.BalanceBefore,
		BalanceAfter:  tx.BalanceAfter,
		ReferenceType: string(tx.ReferenceType),
		ReferenceID:   tx.ReferenceID,
		Description:   tx.Description,
		CreatedBy:     tx.CreatedBy,
		CreatedAt:     tx.CreatedAt,
	}
}

func toReconciliationResponse(r *billing.ReconciliationResult) ReconciliationResponse {
	return ReconciliationResponse{
		CustomerID:       r.CustomerID,
		CachedBalance:    r.CachedBalance,
		LedgerBalance:    r.LedgerBalance,
		TransactionCount: r.TransactionCount,
		Consistent:       r.Consistent,
		BrokenAt:         r.BrokenAt,
	}
}

func toPricingRuleResponse(r *billing.PricingRule) PricingRuleResponse {
	return PricingRuleResponse{
		ID:              r.ID,
		BusinessID:      r.BusinessID,
		MeterType:       string(r.MeterType),
		UsageType:       string(r.UsageType),
		SubscriptionFee: r.SubscriptionFee,
		DepositAmount:   r.DepositAmount,
		DepositRequired: r.DepositRequired,
		Rate:            r.Rate,
		Tiers:           r.Tiers,
		IsDefault:       r.IsDefault,
		Active:          r.Active,
		CreatedAt:       r.CreatedAt,
	}
}

func toAccountResponse(a *billing.SubscriptionAccount) AccountResponse {
	return AccountResponse{
		ID:            a.ID,
		CustomerID:    a.CustomerID,
		AccountNumber: a.AccountNumber,
		BalanceDue:    a.BalanceDue,
	}
}

func toMeterResponse(m *billing.Meter) MeterResponse {
	return MeterResponse{
		ID:              m.ID,
		AccountID:       m.AccountID,
		CustomerID:      m.CustomerID,
		BusinessID:      m.BusinessID,
		MeterNumber:     m.MeterNumber,
		MeterType:       string(m.MeterType),
		Phase:           string(m.Phase),
		UsageType:       string(m.UsageType),
		CurrentReading:  m.CurrentReading,
		PreviousReading: m.PreviousReading,
		LastReadingDate: m.LastReadingDate,
		BalanceDue:      m.BalanceDue,
		Status:          string(m.Status),
	}
}

func mapSlice[T any, R any](items []T, fn func(T) R) []R {
	out := make([]R, 0, len(items))
	for _, item := range items {
		out = append(out, fn(item))
	}
	return out
}
