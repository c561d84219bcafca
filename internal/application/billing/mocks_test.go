package billing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/billing"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// Mock repositories
// =============================================================================

type MockPeriodRepository struct {
	mock.Mock
}

func (m *MockPeriodRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.BillingPeriod, error) {
	args := m.Called(ctx, id)
	if fn, ok := args.Get(0).(func(context.Context, uuid.UUID) *billing.BillingPeriod); ok {
		return fn(ctx, id), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.BillingPeriod), args.Error(1)
}

func (m *MockPeriodRepository) FindByCode(ctx context.Context, code string) (*billing.BillingPeriod, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.BillingPeriod), args.Error(1)
}

func (m *MockPeriodRepository) FindAll(ctx context.Context, filter billing.PeriodFilter) ([]*billing.BillingPeriod, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*billing.BillingPeriod), args.Get(1).(int64), args.Error(2)
}

func (m *MockPeriodRepository) Create(ctx context.Context, period *billing.BillingPeriod) error {
	args := m.Called(ctx, period)
	return args.Error(0)
}

func (m *MockPeriodRepository) SaveWithLock(ctx context.Context, period *billing.BillingPeriod) error {
	args := m.Called(ctx, period)
	return args.Error(0)
}

func (m *MockPeriodRepository) AddCollection(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	args := m.Called(ctx, id, amount)
	return args.Error(0)
}

func (m *MockPeriodRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.SubscriptionAccount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.SubscriptionAccount), args.Error(1)
}

func (m *MockAccountRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID) ([]*billing.SubscriptionAccount, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).([]*billing.SubscriptionAccount), args.Error(1)
}

func (m *MockAccountRepository) Create(ctx context.Context, account *billing.SubscriptionAccount) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) SaveWithLock(ctx context.Context, account *billing.SubscriptionAccount) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

type MockMeterRepository struct {
	mock.Mock
}

func (m *MockMeterRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Meter, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Meter), args.Error(1)
}

func (m *MockMeterRepository) FindByNumber(ctx context.Context, meterNumber string) (*billing.Meter, error) {
	args := m.Called(ctx, meterNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Meter), args.Error(1)
}

func (m *MockMeterRepository) CountActiveByBusiness(ctx context.Context, businessID uuid.UUID) (int64, error) {
	args := m.Called(ctx, businessID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMeterRepository) Create(ctx context.Context, meter *billing.Meter) error {
	args := m.Called(ctx, meter)
	return args.Error(0)
}

func (m *MockMeterRepository) SaveWithLock(ctx context.Context, meter *billing.Meter) error {
	args := m.Called(ctx, meter)
	return args.Error(0)
}

type MockReadingRepository struct {
	mock.Mock
}

func (m *MockReadingRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.MeterReading, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.MeterReading), args.Error(1)
}

func (m *MockReadingRepository) FindActiveByPeriodAndMeter(ctx context.Context, periodID, meterID uuid.UUID) (*billing.MeterReading, error) {
	args := m.Called(ctx, periodID, meterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.MeterReading), args.Error(1)
}

func (m *MockReadingRepository) FindEligibleByPeriod(ctx context.Context, periodID uuid.UUID) ([]*billing.MeterReading, error) {
	args := m.Called(ctx, periodID)
	return args.Get(0).([]*billing.MeterReading), args.Error(1)
}

func (m *MockReadingRepository) RecentConfirmedConsumptions(ctx context.Context, meterID uuid.UUID, limit int) ([]decimal.Decimal, error) {
	args := m.Called(ctx, meterID, limit)
	return args.Get(0).([]decimal.Decimal), args.Error(1)
}

func (m *MockReadingRepository) FindAll(ctx context.Context, filter billing.ReadingFilter) ([]*billing.MeterReading, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*billing.MeterReading), args.Get(1).(int64), args.Error(2)
}

func (m *MockReadingRepository) Create(ctx context.Context, reading *billing.MeterReading) error {
	args := m.Called(ctx, reading)
	return args.Error(0)
}

func (m *MockReadingRepository) SaveWithLock(ctx context.Context, reading *billing.MeterReading) error {
	args := m.Called(ctx, reading)
	return args.Error(0)
}

type MockPricingRuleRepository struct {
	mock.Mock
}

func (m *MockPricingRuleRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.PricingRule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PricingRule), args.Error(1)
}

func (m *MockPricingRuleRepository) FindActiveByBusiness(ctx context.Context, businessID uuid.UUID) ([]*billing.PricingRule, error) {
	args := m.Called(ctx, businessID)
	return args.Get(0).([]*billing.PricingRule), args.Error(1)
}

func (m *MockPricingRuleRepository) FindAll(ctx context.Context, filter billing.PricingRuleFilter) ([]*billing.PricingRule, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*billing.PricingRule), args.Get(1).(int64), args.Error(2)
}

func (m *MockPricingRuleRepository) Create(ctx context.Context, rule *billing.PricingRule) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}

func (m *MockPricingRuleRepository) Save(ctx context.Context, rule *billing.PricingRule) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}

func (m *MockPricingRuleRepository) DeactivateMatching(ctx context.Context, rule *billing.PricingRule) (int64, error) {
	args := m.Called(ctx, rule)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPricingRuleRepository) ClearDefault(ctx context.Context, businessID uuid.UUID) error {
	args := m.Called(ctx, businessID)
	return args.Error(0)
}

type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByPeriodAndMeter(ctx context.Context, periodID, meterID uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, periodID, meterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindOpenByCustomerForUpdate(ctx context.Context, customerID uuid.UUID) ([]*billing.Invoice, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).([]*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindOverdueCandidates(ctx context.Context, asOf time.Time, customerID *uuid.UUID) ([]*billing.Invoice, error) {
	args := m.Called(ctx, asOf, customerID)
	return args.Get(0).([]*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindPastDueOpen(ctx context.Context, asOf time.Time, limit int) ([]*billing.Invoice, error) {
	args := m.Called(ctx, asOf, limit)
	return args.Get(0).([]*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindAll(ctx context.Context, filter billing.InvoiceFilter) ([]*billing.Invoice, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*billing.Invoice), args.Get(1).(int64), args.Error(2)
}

func (m *MockInvoiceRepository) Create(ctx context.Context, invoice *billing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) SaveWithLock(ctx context.Context, invoice *billing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindByIdempotencyKey(ctx context.Context, key string) (*billing.Payment, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]*billing.Payment, int64, error) {
	args := m.Called(ctx, customerID, filter)
	return args.Get(0).([]*billing.Payment), args.Get(1).(int64), args.Error(2)
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *billing.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

// =============================================================================
// Test collaborators
// =============================================================================

// recordingMetrics counts calls so tests can assert what was reported
type recordingMetrics struct {
	NoopMetrics
	mu          sync.Mutex
	transitions []string
	created     int
	skipped     int
}

func (r *recordingMetrics) PeriodTransitioned(from, to string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, from+"->"+to)
}

func (r *recordingMetrics) InvoicesGenerated(created, skipped int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created += created
	r.skipped += skipped
}

// capturePublisher keeps published events
type capturePublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *capturePublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *capturePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

// countingLocker records which keys were locked
type countingLocker struct {
	mu   sync.Mutex
	keys []string
}

func (l *countingLocker) Lock(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = append(l.keys, key)
	return func() {}, nil
}

func fixedClock() time.Time {
	return time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
}
