package persistence

import (
	"context"

	appbilling "github.com/meterbill/backend/internal/application/billing"
	"github.com/meterbill/backend/internal/domain/billing"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// Every repository handed to fn shares the same transaction.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction. An error from fn rolls
// the transaction back; otherwise it commits.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appbilling.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepositories{tx: tx})
	})
}

// gormRepositories builds repositories bound to one transaction
type gormRepositories struct {
	tx *gorm.DB
}

func (r *gormRepositories) Periods() billing.PeriodRepository {
	return NewGormPeriodRepository(r.tx)
}

func (r *gormRepositories) Accounts() billing.AccountRepository {
	return NewGormAccountRepository(r.tx)
}

func (r *gormRepositories) Meters() billing.MeterRepository {
	return NewGormMeterRepository(r.tx)
}

func (r *gormRepositories) Readings() billing.ReadingRepository {
	return NewGormReadingRepository(r.tx)
}

func (r *gormRepositories) PricingRules() billing.PricingRuleRepository {
	return NewGormPricingRuleRepository(r.tx)
}

func (r *gormRepositories) Invoices() billing.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

func (r *gormRepositories) Payments() billing.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

func (r *gormRepositories) Wallets() billing.WalletRepository {
	return NewGormWalletRepository(r.tx)
}

func (r *gormRepositories) WalletTransactions() billing.WalletTransactionRepository {
	return NewGormWalletTransactionRepository(r.tx)
}

var (
	_ appbilling.TransactionScope = (*GormTransactionScope)(nil)
	_ appbilling.Repositories     = (*gormRepositories)(nil)
)
