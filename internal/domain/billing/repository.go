package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PeriodFilter defines filtering options for billing period queries
type PeriodFilter struct {
	shared.Filter
	BusinessID *uuid.UUID    // Filter by business
	Status     *PeriodStatus // Filter by status
}

// PeriodRepository defines the interface for billing period persistence
type PeriodRepository interface {
	// FindByID finds a billing period by ID
	FindByID(ctx context.Context, id uuid.UUID) (*BillingPeriod, error)

	// FindByCode finds a billing period by its unique code
	FindByCode(ctx context.Context, code string) (*BillingPeriod, error)

	// FindAll lists billing periods
	FindAll(ctx context.Context, filter PeriodFilter) ([]*BillingPeriod, int64, error)

	// Create inserts a new billing period
	Create(ctx context.Context, period *BillingPeriod) error

	// SaveWithLock saves with optimistic locking (version check). The
	// collected amount is left to AddCollection.
	SaveWithLock(ctx context.Context, period *BillingPeriod) error

	// AddCollection atomically adds collected money to an open period without
	// a version check. A closed period keeps its totals.
	AddCollection(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error

	// Delete removes a pending billing period
	Delete(ctx context.Context, id uuid.UUID) error
}

// AccountRepository defines the interface for subscription account persistence
type AccountRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*SubscriptionAccount, error)
	// FindByCustomer returns the customer's accounts, oldest first
	FindByCustomer(ctx context.Context, customerID uuid.UUID) ([]*SubscriptionAccount, error)
	Create(ctx context.Context, account *SubscriptionAccount) error
	SaveWithLock(ctx context.Context, account *SubscriptionAccount) error
}

// MeterRepository defines the interface for meter persistence
type MeterRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Meter, error)
	FindByNumber(ctx context.Context, meterNumber string) (*Meter, error)
	// CountActiveByBusiness counts meters in active status for a business
	CountActiveByBusiness(ctx context.Context, businessID uuid.UUID) (int64, error)
	Create(ctx context.Context, meter *Meter) error
	SaveWithLock(ctx context.Context, meter *Meter) error
}

// ReadingFilter defines filtering options for meter reading queries
type ReadingFilter struct {
	shared.Filter
	PeriodID *uuid.UUID
	MeterID  *uuid.UUID
	Status   *ReadingStatus
}

// ReadingRepository defines the interface for meter reading persistence
type ReadingRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*MeterReading, error)

	// FindActiveByPeriodAndMeter returns the non-rejected reading, if any
	FindActiveByPeriodAndMeter(ctx context.Context, periodID, meterID uuid.UUID) (*MeterReading, error)

	// FindEligibleByPeriod returns confirmed and estimated readings of a period
	FindEligibleByPeriod(ctx context.Context, periodID uuid.UUID) ([]*MeterReading, error)

	// RecentConfirmedConsumptions returns up to limit consumptions of the
	// meter's latest confirmed readings
	RecentConfirmedConsumptions(ctx context.Context, meterID uuid.UUID, limit int) ([]decimal.Decimal, error)

	FindAll(ctx context.Context, filter ReadingFilter) ([]*MeterReading, int64, error)
	Create(ctx context.Context, reading *MeterReading) error
	SaveWithLock(ctx context.Context, reading *MeterReading) error
}

// PricingRuleFilter defines filtering options for pricing rule queries
type PricingRuleFilter struct {
	shared.Filter
	BusinessID *uuid.UUID
	MeterType  *MeterType
	UsageType  *UsageType
	ActiveOnly bool
}

// PricingRuleRepository defines the interface for pricing rule persistence
type PricingRuleRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*PricingRule, error)

	// FindActiveByBusiness returns every active rule of a business
	FindActiveByBusiness(ctx context.Context, businessID uuid.UUID) ([]*PricingRule, error)

	FindAll(ctx context.Context, filter PricingRuleFilter) ([]*PricingRule, int64, error)
	Create(ctx context.Context, rule *PricingRule) error
	Save(ctx context.Context, rule *PricingRule) error

	// DeactivateMatching retires active rules for the rule's key, except the rule itself
	DeactivateMatching(ctx context.Context, rule *PricingRule) (int64, error)

	// ClearDefault unflags any default rule of the business
	ClearDefault(ctx context.Context, businessID uuid.UUID) error
}

// InvoiceFilter defines filtering options for invoice queries
type InvoiceFilter struct {
	shared.Filter
	CustomerID *uuid.UUID
	PeriodID   *uuid.UUID
	MeterID    *uuid.UUID
	Status     *InvoiceStatus
}

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByIDForUpdate loads the invoice with a row lock
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByPeriodAndMeter returns the non-cancelled invoice, if any
	FindByPeriodAndMeter(ctx context.Context, periodID, meterID uuid.UUID) (*Invoice, error)

	// FindOpenByCustomerForUpdate locks the customer's open invoices, oldest due first
	FindOpenByCustomerForUpdate(ctx context.Context, customerID uuid.UUID) ([]*Invoice, error)

	// FindOverdueCandidates returns non-cancelled invoices with a balance due before asOf
	FindOverdueCandidates(ctx context.Context, asOf time.Time, customerID *uuid.UUID) ([]*Invoice, error)

	// FindPastDueOpen returns generated or partial invoices due before asOf
	FindPastDueOpen(ctx context.Context, asOf time.Time, limit int) ([]*Invoice, error)

	FindAll(ctx context.Context, filter InvoiceFilter) ([]*Invoice, int64, error)

	// Create inserts an invoice. A second live invoice for the same period
	// and meter fails with ErrDuplicateInvoice.
	Create(ctx context.Context, invoice *Invoice) error

	SaveWithLock(ctx context.Context, invoice *Invoice) error
}

// PaymentRepository defines the interface for payment persistence
type PaymentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*Payment, error)
	FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]*Payment, int64, error)
	Create(ctx context.Context, payment *Payment) error
}

// WalletRepository defines the interface for wallet persistence
type WalletRepository interface {
	FindByCustomer(ctx context.Context, customerID uuid.UUID) (*Wallet, error)

	// FindByCustomerForUpdate loads the wallet with a row lock
	FindByCustomerForUpdate(ctx context.Context, customerID uuid.UUID) (*Wallet, error)

	Create(ctx context.Context, wallet *Wallet) error
	SaveWithLock(ctx context.Context, wallet *Wallet) error
}

// WalletTransactionRepository defines the interface for the wallet ledger.
// Entries are never updated or deleted.
type WalletTransactionRepository interface {
	Create(ctx context.Context, tx *WalletTransaction) error

	// FindByWallet pages through entries, newest first
	FindByWallet(ctx context.Context, walletID uuid.UUID, filter shared.Filter) ([]*WalletTransaction, int64, error)

	// FindAllByWalletOrdered returns every entry in posting order
	FindAllByWalletOrdered(ctx context.Context, walletID uuid.UUID) ([]*WalletTransaction, error)
}
