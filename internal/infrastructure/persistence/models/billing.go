package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
)

// BillingPeriodModel is the persistence model for the BillingPeriod aggregate
type BillingPeriodModel struct {
	VersionedRow
	BusinessID            uuid.UUID            `gorm:"type:uuid;not null;index"`
	Code                  string               `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name                  string               `gorm:"type:varchar(200);not null"`
	StartDate             time.Time            `gorm:"not null"`
	EndDate               time.Time            `gorm:"not null"`
	DueDate               time.Time            `gorm:"not null"`
	Status                billing.PeriodStatus `gorm:"type:varchar(20);not null;index"`
	TotalMeters           int                  `gorm:"not null"`
	ReadingsCount         int                  `gorm:"not null"`
	ApprovedReadingsCount int                  `gorm:"not null"`
	InvoiceCount          int                  `gorm:"not null"`
	TotalAmount           decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	CollectedAmount       decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	InvoiceRuns           int                  `gorm:"not null"`
	ClosedAt              *time.Time
}

// TableName returns the table name for GORM
func (BillingPeriodModel) TableName() string {
	return "billing_periods"
}

// ToDomain converts the model to a domain BillingPeriod
func (m *BillingPeriodModel) ToDomain() *billing.BillingPeriod {
	return &billing.BillingPeriod{
		BaseAggregateRoot:     m.Root(),
		BusinessID:            m.BusinessID,
		Code:                  m.Code,
		Name:                  m.Name,
		StartDate:             m.StartDate,
		EndDate:               m.EndDate,
		DueDate:               m.DueDate,
		Status:                m.Status,
		TotalMeters:           m.TotalMeters,
		ReadingsCount:         m.ReadingsCount,
		ApprovedReadingsCount: m.ApprovedReadingsCount,
		InvoiceCount:          m.InvoiceCount,
		TotalAmount:           m.TotalAmount,
		CollectedAmount:       m.CollectedAmount,
		InvoiceRuns:           m.InvoiceRuns,
		ClosedAt:              m.ClosedAt,
	}
}

// BillingPeriodModelFromDomain creates a model from a domain BillingPeriod
func BillingPeriodModelFromDomain(p *billing.BillingPeriod) *BillingPeriodModel {
	m := &BillingPeriodModel{
		BusinessID:            p.BusinessID,
		Code:                  p.Code,
		Name:                  p.Name,
		StartDate:             p.StartDate,
		EndDate:               p.EndDate,
		DueDate:               p.DueDate,
		Status:                p.Status,
		TotalMeters:           p.TotalMeters,
		ReadingsCount:         p.ReadingsCount,
		ApprovedReadingsCount: p.ApprovedReadingsCount,
		InvoiceCount:          p.InvoiceCount,
		TotalAmount:           p.TotalAmount,
		CollectedAmount:       p.CollectedAmount,
		InvoiceRuns:           p.InvoiceRuns,
		ClosedAt:              p.ClosedAt,
	}
	m.SetRoot(p.BaseAggregateRoot)
	return m
}

// SubscriptionAccountModel is the persistence model for SubscriptionAccount
type SubscriptionAccountModel struct {
	VersionedRow
	CustomerID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	AccountNumber string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	BalanceDue    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (SubscriptionAccountModel) TableName() string {
	return "subscription_accounts"
}

// ToDomain converts the model to a domain SubscriptionAccount
func (m *SubscriptionAccountModel) ToDomain() *billing.SubscriptionAccount {
	return &billing.SubscriptionAccount{
		BaseAggregateRoot: m.Root(),
		CustomerID:        m.CustomerID,
		AccountNumber:     m.AccountNumber,
		BalanceDue:        m.BalanceDue,
	}
}

// SubscriptionAccountModelFromDomain creates a model from a domain SubscriptionAccount
func SubscriptionAccountModelFromDomain(a *billing.SubscriptionAccount) *SubscriptionAccountModel {
	m := &SubscriptionAccountModel{
		CustomerID:    a.CustomerID,
		AccountNumber: a.AccountNumber,
		BalanceDue:    a.BalanceDue,
	}
	m.SetRoot(a.BaseAggregateRoot)
	return m
}

// MeterModel is the persistence model for the Meter aggregate
type MeterModel struct {
	VersionedRow
	AccountID       uuid.UUID           `gorm:"type:uuid;not null;index"`
	CustomerID      uuid.UUID           `gorm:"type:uuid;not null;index"`
	BusinessID      uuid.UUID           `gorm:"type:uuid;not null;index"`
	MeterNumber     string              `gorm:"type:varchar(50);not null;uniqueIndex"`
	MeterType       billing.MeterType   `gorm:"type:varchar(20);not null"`
	Phase           billing.Phase       `gorm:"type:varchar(20);not null"`
	UsageType       billing.UsageType   `gorm:"type:varchar(20);not null"`
	CurrentReading  decimal.Decimal     `gorm:"type:decimal(15,3);not null"`
	PreviousReading decimal.Decimal     `gorm:"type:decimal(15,3);not null"`
	LastReadingDate *time.Time
	BalanceDue      decimal.Decimal     `gorm:"type:decimal(18,2);not null"`
	Status          billing.MeterStatus `gorm:"type:varchar(20);not null;index"`
}

// TableName returns the table name for GORM
func (MeterModel) TableName() string {
	return "meters"
}

// ToDomain converts the model to a domain Meter
func (m *MeterModel) ToDomain() *billing.Meter {
	return &billing.Meter{
		BaseAggregateRoot: m.Root(),
		AccountID:         m.AccountID,
		CustomerID:        m.CustomerID,
		BusinessID:        m.BusinessID,
		MeterNumber:       m.MeterNumber,
		MeterType:         m.MeterType,
		Phase:             m.Phase,
		UsageType:         m.UsageType,
		CurrentReading:    m.CurrentReading,
		PreviousReading:   m.PreviousReading,
		LastReadingDate:   m.LastReadingDate,
		BalanceDue:        m.BalanceDue,
		Status:            m.Status,
	}
}

// MeterModelFromDomain creates a model from a domain Meter
func MeterModelFromDomain(mt *billing.Meter) *MeterModel {
	m := &MeterModel{
		AccountID:       mt.AccountID,
		CustomerID:      mt.CustomerID,
		BusinessID:      mt.BusinessID,
		MeterNumber:     mt.MeterNumber,
		MeterType:       mt.MeterType,
		Phase:           mt.Phase,
		UsageType:       mt.UsageType,
		CurrentReading:  mt.CurrentReading,
		PreviousReading: mt.PreviousReading,
		LastReadingDate: mt.LastReadingDate,
		BalanceDue:      mt.BalanceDue,
		Status:          mt.Status,
	}
	m.SetRoot(mt.BaseAggregateRoot)
	return m
}

// MeterReadingModel is the persistence model for MeterReading. At most one
// non-rejected reading exists per period and meter.
type MeterReadingModel struct {
	VersionedRow
	MeterID         uuid.UUID             `gorm:"type:uuid;not null;index;uniqueIndex:idx_meter_readings_live,where:status <> 'rejected'"`
	PeriodID        uuid.UUID             `gorm:"type:uuid;not null;index;uniqueIndex:idx_meter_readings_live,where:status <> 'rejected'"`
	ReadingDate     time.Time             `gorm:"not null"`
	PreviousReading decimal.Decimal       `gorm:"type:decimal(15,3);not null"`
	CurrentReading  decimal.Decimal       `gorm:"type:decimal(15,3);not null"`
	Consumption     decimal.Decimal       `gorm:"type:decimal(15,3);not null"`
	ReadingType     billing.ReadingType   `gorm:"type:varchar(20);not null"`
	Status          billing.ReadingStatus `gorm:"type:varchar(20);not null;index"`
	AnomalyKind     billing.AnomalyKind   `gorm:"type:varchar(20);not null"`
	TrailingAverage decimal.Decimal       `gorm:"type:decimal(15,3);not null"`
	Overridden      bool                  `gorm:"not null"`
	ApprovedAt      *time.Time
	Notes           string                `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (MeterReadingModel) TableName() string {
	return "meter_readings"
}

// ToDomain converts the model to a domain MeterReading
func (m *MeterReadingModel) ToDomain() *billing.MeterReading {
	return &billing.MeterReading{
		BaseAggregateRoot: m.Root(),
		MeterID:           m.MeterID,
		PeriodID:          m.PeriodID,
		ReadingDate:       m.ReadingDate,
		PreviousReading:   m.PreviousReading,
		CurrentReading:    m.CurrentReading,
		Consumption:       m.Consumption,
		ReadingType:       m.ReadingType,
		Status:            m.Status,
		AnomalyKind:       m.AnomalyKind,
		TrailingAverage:   m.TrailingAverage,
		Overridden:        m.Overridden,
		ApprovedAt:        m.ApprovedAt,
		Notes:             m.Notes,
	}
}

// MeterReadingModelFromDomain creates a model from a domain MeterReading
func MeterReadingModelFromDomain(r *billing.MeterReading) *MeterReadingModel {
	m := &MeterReadingModel{
		MeterID:         r.MeterID,
		PeriodID:        r.PeriodID,
		ReadingDate:     r.ReadingDate,
		PreviousReading: r.PreviousReading,
		CurrentReading:  r.CurrentReading,
		Consumption:     r.Consumption,
		ReadingType:     r.ReadingType,
		Status:          r.Status,
		AnomalyKind:     r.AnomalyKind,
		TrailingAverage: r.TrailingAverage,
		Overridden:      r.Overridden,
		ApprovedAt:      r.ApprovedAt,
		Notes:           r.Notes,
	}
	m.SetRoot(r.BaseAggregateRoot)
	return m
}

// PricingRuleModel is the persistence model for PricingRule. Only one rule is
// active per business, meter type and usage type.
type PricingRuleModel struct {
	Row
	BusinessID      uuid.UUID         `gorm:"type:uuid;not null;index;uniqueIndex:idx_pricing_rules_active_key,where:active"`
	MeterType       billing.MeterType `gorm:"type:varchar(20);not null;uniqueIndex:idx_pricing_rules_active_key,where:active"`
	UsageType       billing.UsageType `gorm:"type:varchar(20);not null;uniqueIndex:idx_pricing_rules_active_key,where:active"`
	SubscriptionFee decimal.Decimal   `gorm:"type:decimal(18,2);not null"`
	DepositAmount   decimal.Decimal   `gorm:"type:decimal(18,2);not null"`
	DepositRequired bool              `gorm:"not null"`
	Rate            decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	Tiers           PriceTiers        `gorm:"type:jsonb;not null"`
	IsDefault       bool              `gorm:"not null"`
	Active          bool              `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (PricingRuleModel) TableName() string {
	return "pricing_rules"
}

// ToDomain converts the model to a domain PricingRule
func (m *PricingRuleModel) ToDomain() *billing.PricingRule {
	return &billing.PricingRule{
		BaseEntity:      m.Entity(),
		BusinessID:      m.BusinessID,
		MeterType:       m.MeterType,
		UsageType:       m.UsageType,
		SubscriptionFee: m.SubscriptionFee,
		DepositAmount:   m.DepositAmount,
		DepositRequired: m.DepositRequired,
		Rate:            m.Rate,
		Tiers:           []billing.PriceTier(m.Tiers),
		IsDefault:       m.IsDefault,
		Active:          m.Active,
	}
}

// PricingRuleModelFromDomain creates a model from a domain PricingRule
func PricingRuleModelFromDomain(r *billing.PricingRule) *PricingRuleModel {
	m := &PricingRuleModel{
		BusinessID:      r.BusinessID,
		MeterType:       r.MeterType,
		UsageType:       r.UsageType,
		SubscriptionFee: r.SubscriptionFee,
		DepositAmount:   r.DepositAmount,
		DepositRequired: r.DepositRequired,
		Rate:            r.Rate,
		Tiers:           PriceTiers(r.Tiers),
		IsDefault:       r.IsDefault,
		Active:          r.Active,
	}
	m.SetEntity(r.BaseEntity)
	return m
}

// InvoiceModel is the persistence model for the Invoice aggregate. A period
// and meter have at most one invoice that is not cancelled.
type InvoiceModel struct {
	VersionedRow
	InvoiceNumber      string                `gorm:"type:varchar(100);not null;uniqueIndex:idx_invoices_live_number,where:status <> 'cancelled'"`
	CustomerID         uuid.UUID             `gorm:"type:uuid;not null;index"`
	AccountID          uuid.UUID             `gorm:"type:uuid;not null;index"`
	MeterID            uuid.UUID             `gorm:"type:uuid;not null;index;uniqueIndex:idx_invoices_live_period_meter,where:status <> 'cancelled'"`
	ReadingID          uuid.UUID             `gorm:"type:uuid;not null"`
	PeriodID           uuid.UUID             `gorm:"type:uuid;not null;index;uniqueIndex:idx_invoices_live_period_meter,where:status <> 'cancelled'"`
	InvoiceDate        time.Time             `gorm:"not null"`
	DueDate            time.Time             `gorm:"not null;index"`
	PeriodStart        time.Time             `gorm:"not null"`
	PeriodEnd          time.Time             `gorm:"not null"`
	PreviousReading    decimal.Decimal       `gorm:"type:decimal(15,3);not null"`
	CurrentReading     decimal.Decimal       `gorm:"type:decimal(15,3);not null"`
	Consumption        decimal.Decimal       `gorm:"type:decimal(15,3);not null"`
	ConsumptionAmount  decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	FixedCharges       decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	VATRate            decimal.Decimal       `gorm:"column:vat_rate;type:decimal(5,4);not null"`
	VATAmount          decimal.Decimal       `gorm:"column:vat_amount;type:decimal(18,2);not null"`
	PreviousBalanceDue decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	TotalAmount        decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	PaidAmount         decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	BalanceDue         decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	Status             billing.InvoiceStatus `gorm:"type:varchar(20);not null;index"`
	CancelledAt        *time.Time
	CancelReason       string                `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the model to a domain Invoice
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	return &billing.Invoice{
		BaseAggregateRoot:  m.Root(),
		InvoiceNumber:      m.InvoiceNumber,
		CustomerID:         m.CustomerID,
		AccountID:          m.AccountID,
		MeterID:            m.MeterID,
		ReadingID:          m.ReadingID,
		PeriodID:           m.PeriodID,
		InvoiceDate:        m.InvoiceDate,
		DueDate:            m.DueDate,
		PeriodStart:        m.PeriodStart,
		PeriodEnd:          m.PeriodEnd,
		PreviousReading:    m.PreviousReading,
		CurrentReading:     m.CurrentReading,
		Consumption:        m.Consumption,
		ConsumptionAmount:  m.ConsumptionAmount,
		FixedCharges:       m.FixedCharges,
		VATRate:            m.VATRate,
		VATAmount:          m.VATAmount,
		PreviousBalanceDue: m.PreviousBalanceDue,
		TotalAmount:        m.TotalAmount,
		PaidAmount:         m.PaidAmount,
		BalanceDue:         m.BalanceDue,
		Status:             m.Status,
		CancelledAt:        m.CancelledAt,
		CancelReason:       m.CancelReason,
	}
}

// InvoiceModelFromDomain creates a model from a domain Invoice
func InvoiceModelFromDomain(inv *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{
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
		Status:             inv.Status,
		CancelledAt:        inv.CancelledAt,
		CancelReason:       inv.CancelReason,
	}
	m.SetRoot(inv.BaseAggregateRoot)
	return m
}

// PaymentModel is the persistence model for Payment
type PaymentModel struct {
	VersionedRow
	ReceiptNumber   string                `gorm:"type:varchar(50);not null;uniqueIndex"`
	CustomerID      uuid.UUID             `gorm:"type:uuid;not null;index"`
	AccountID       *uuid.UUID            `gorm:"type:uuid;index"`
	InvoiceID       *uuid.UUID            `gorm:"type:uuid;index"`
	Amount          decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	AllocatedAmount decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	WalletAmount    decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	Method          billing.PaymentMethod `gorm:"type:varchar(20);not null"`
	PaymentDate     time.Time             `gorm:"not null"`
	ReferenceNumber string                `gorm:"type:varchar(100)"`
	IdempotencyKey  *string               `gorm:"type:varchar(100);uniqueIndex"`
	Status          billing.PaymentStatus `gorm:"type:varchar(20);not null"`
	Allocations     Allocations           `gorm:"type:jsonb;not null"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the model to a domain Payment
func (m *PaymentModel) ToDomain() *billing.Payment {
	return &billing.Payment{
		BaseAggregateRoot: m.Root(),
		ReceiptNumber:     m.ReceiptNumber,
		CustomerID:        m.CustomerID,
		AccountID:         m.AccountID,
		InvoiceID:         m.InvoiceID,
		Amount:            m.Amount,
		AllocatedAmount:   m.AllocatedAmount,
		WalletAmount:      m.WalletAmount,
		Method:            m.Method,
		PaymentDate:       m.PaymentDate,
		ReferenceNumber:   m.ReferenceNumber,
		IdempotencyKey:    m.IdempotencyKey,
		Status:            m.Status,
		Allocations:       []billing.PaymentAllocation(m.Allocations),
	}
}

// PaymentModelFromDomain creates a model from a domain Payment
func PaymentModelFromDomain(p *billing.Payment) *PaymentModel {
	m := &PaymentModel{
		ReceiptNumber:   p.ReceiptNumber,
		CustomerID:      p.CustomerID,
		AccountID:       p.AccountID,
		InvoiceID:       p.InvoiceID,
		Amount:          p.Amount,
		AllocatedAmount: p.AllocatedAmount,
		WalletAmount:    p.WalletAmount,
		Method:          p.Method,
		PaymentDate:     p.PaymentDate,
		ReferenceNumber: p.ReferenceNumber,
		IdempotencyKey:  p.IdempotencyKey,
		Status:          p.Status,
		Allocations:     Allocations(p.Allocations),
	}
	m.SetRoot(p.BaseAggregateRoot)
	return m
}

// WalletModel is the persistence model for Wallet, one per customer
type WalletModel struct {
	VersionedRow
	CustomerID          uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	Balance             decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Currency            string          `gorm:"type:varchar(3);not null"`
	Sequence            int64           `gorm:"not null;default:0"`
	LastTransactionDate *time.Time
}

// TableName returns the table name for GORM
func (WalletModel) TableName() string {
	return "wallets"
}

// ToDomain converts the model to a domain Wallet
func (m *WalletModel) ToDomain() *billing.Wallet {
	return &billing.Wallet{
		BaseAggregateRoot:   m.Root(),
		CustomerID:          m.CustomerID,
		Balance:             m.Balance,
		Currency:            m.Currency,
		Sequence:            m.Sequence,
		LastTransactionDate: m.LastTransactionDate,
	}
}

// WalletModelFromDomain creates a model from a domain Wallet
func WalletModelFromDomain(w *billing.Wallet) *WalletModel {
	m := &WalletModel{
		CustomerID:          w.CustomerID,
		Balance:             w.Balance,
		Currency:            w.Currency,
		Sequence:            w.Sequence,
		LastTransactionDate: w.LastTransactionDate,
	}
	m.SetRoot(w.BaseAggregateRoot)
	return m
}

// WalletTransactionModel is an append-only wallet ledger entry
type WalletTransactionModel struct {
	Row
	WalletID      uuid.UUID                     `gorm:"type:uuid;not null;index;uniqueIndex:idx_wallet_transactions_sequence,priority:1"`
	Sequence      int64                         `gorm:"not null;uniqueIndex:idx_wallet_transactions_sequence,priority:2"`
	CustomerID    uuid.UUID                     `gorm:"type:uuid;not null;index"`
	Type          billing.WalletTransactionType `gorm:"type:varchar(20);not null"`
	Amount        decimal.Decimal               `gorm:"type:decimal(18,2);not null"`
	BalanceBefore decimal.Decimal               `gorm:"type:decimal(18,2);not null"`
	BalanceAfter  decimal.Decimal               `gorm:"type:decimal(18,2);not null"`
	ReferenceType billing.ReferenceType         `gorm:"type:varchar(20);not null"`
	ReferenceID   *uuid.UUID                    `gorm:"type:uuid"`
	Description   string                        `gorm:"type:varchar(500)"`
	CreatedBy     *uuid.UUID                    `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (WalletTransactionModel) TableName() string {
	return "wallet_transactions"
}

// ToDomain converts the model to a domain WalletTransaction
func (m *WalletTransactionModel) ToDomain() *billing.WalletTransaction {
	return &billing.WalletTransaction{
		BaseEntity:    m.Entity(),
		WalletID:      m.WalletID,
		Sequence:      m.Sequence,
		CustomerID:    m.CustomerID,
		Type:          m.Type,
		Amount:        m.Amount,
		BalanceBefore: m.BalanceBefore,
		BalanceAfter:  m.BalanceAfter,
		ReferenceType: m.ReferenceType,
		ReferenceID:   m.ReferenceID,
		Description:   m.Description,
		CreatedBy:     m.CreatedBy,
	}
}

// WalletTransactionModelFromDomain creates a model from a domain WalletTransaction
func WalletTransactionModelFromDomain(tx *billing.WalletTransaction) *WalletTransactionModel {
	m := &WalletTransactionModel{
		WalletID:      tx.WalletID,
		Sequence:      tx.Sequence,
		CustomerID:    tx.CustomerID,
		Type:          tx.Type,
		Amount:        tx.Amount,
		BalanceBefore: tx.BalanceBefore,
		BalanceAfter:  tx.BalanceAfter,
		ReferenceType: tx.ReferenceType,
		ReferenceID:   tx.ReferenceID,
		Description:   tx.Description,
		CreatedBy:     tx.CreatedBy,
	}
	m.SetEntity(tx.BaseEntity)
	return m
}

// All returns one instance of every billing model, in dependency order
func All() []any {
	return []any{
		&BillingPeriodModel{},
		&SubscriptionAccountModel{},
		&MeterModel{},
		&MeterReadingModel{},
		&PricingRuleModel{},
		&InvoiceModel{},
		&PaymentModel{},
		&WalletModel{},
		&WalletTransactionModel{},
	}
}
