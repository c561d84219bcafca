package billing

import (
	"context"

	"github.com/meterbill/backend/internal/domain/billing"
)

// TransactionScope provides transactional access to billing repositories.
// All repository calls made inside fn commit or roll back together.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// Repositories provides access to the billing repositories. Inside
// TransactionScope.Execute they all share one database transaction.
type Repositories interface {
	Periods() billing.PeriodRepository
	Accounts() billing.AccountRepository
	Meters() billing.MeterRepository
	Readings() billing.ReadingRepository
	PricingRules() billing.PricingRuleRepository
	Invoices() billing.InvoiceRepository
	Payments() billing.PaymentRepository
	Wallets() billing.WalletRepository
	WalletTransactions() billing.WalletTransactionRepository
}

// StaticRepositories is a fixed set of repositories
type StaticRepositories struct {
	PeriodRepo            billing.PeriodRepository
	AccountRepo           billing.AccountRepository
	MeterRepo             billing.MeterRepository
	ReadingRepo           billing.ReadingRepository
	PricingRuleRepo       billing.PricingRuleRepository
	InvoiceRepo           billing.InvoiceRepository
	PaymentRepo           billing.PaymentRepository
	WalletRepo            billing.WalletRepository
	WalletTransactionRepo billing.WalletTransactionRepository
}

func (r *StaticRepositories) Periods() billing.PeriodRepository {
	return r.PeriodRepo
}

func (r *StaticRepositories) Accounts() billing.AccountRepository {
	return r.AccountRepo
}

func (r *StaticRepositories) Meters() billing.MeterRepository {
	return r.MeterRepo
}

func (r *StaticRepositories) Readings() billing.ReadingRepository {
	return r.ReadingRepo
}

func (r *StaticRepositories) PricingRules() billing.PricingRuleRepository {
	return r.PricingRuleRepo
}

func (r *StaticRepositories) Invoices() billing.InvoiceRepository {
	return r.InvoiceRepo
}

func (r *StaticRepositories) Payments() billing.PaymentRepository {
	return r.PaymentRepo
}

func (r *StaticRepositories) Wallets() billing.WalletRepository {
	return r.WalletRepo
}

func (r *StaticRepositories) WalletTransactions() billing.WalletTransactionRepository {
	return r.WalletTransactionRepo
}

// NoOpTransactionScope runs fn against fixed repositories without a
// transaction. Useful for tests with mocked repositories.
type NoOpTransactionScope struct {
	repos *StaticRepositories
}

// NewNoOpTransactionScope creates a NoOpTransactionScope
func NewNoOpTransactionScope(repos *StaticRepositories) *NoOpTransactionScope {
	return &NoOpTransactionScope{repos: repos}
}

// Execute runs fn without a transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos Repositories) error) error {
	return fn(s.repos)
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ Repositories = (*StaticRepositories)(nil)
