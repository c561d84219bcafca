package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/billing"
	"github.com/meterbill/backend/internal/infrastructure/persistence"
	"github.com/meterbill/backend/internal/infrastructure/persistence/persistencetest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

// billingDB bundles a fresh SQLite schema with one account and meter
type billingDB struct {
	db       *gorm.DB
	ctx      context.Context
	business uuid.UUID
	account  *billing.SubscriptionAccount
	meter    *billing.Meter
}

func newBillingDB(t *testing.T) *billingDB {
	t.Helper()
	return newBillingFixture(t, persistencetest.NewSQLiteDB(t))
}

func newBillingFixture(t *testing.T, db *gorm.DB) *billingDB {
	t.Helper()
	f := &billingDB{
		db:       db,
		ctx:      context.Background(),
		business: uuid.New(),
	}

	var err error
	f.account, err = billing.NewSubscriptionAccount(uuid.New(), "ACC-"+uuid.NewString()[:8])
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormAccountRepository(f.db).Create(f.ctx, f.account))

	f.meter = f.newMeter(t, "M-"+uuid.NewString()[:8])
	return f
}

func (f *billingDB) newMeter(t *testing.T, number string) *billing.Meter {
	t.Helper()
	m, err := billing.NewMeter(f.account, f.business, number, billing.MeterTypeTraditional,
		billing.PhaseSingle, billing.UsageTypeResidential, dec("100"))
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormMeterRepository(f.db).Create(f.ctx, m))
	return m
}

func (f *billingDB) newPeriod(t *testing.T, code string) *billing.BillingPeriod {
	t.Helper()
	p, err := billing.NewBillingPeriod(f.business, code, "Period "+code,
		day(2026, 1, 1), day(2026, 1, 31), day(2026, 2, 15))
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormPeriodRepository(f.db).Create(f.ctx, p))
	return p
}

func (f *billingDB) newReading(t *testing.T, periodID uuid.UUID, meter *billing.Meter, current string) *billing.MeterReading {
	t.Helper()
	r, err := billing.NewMeterReading(meter, periodID, billing.ReadingTypeManual, dec(current),
		day(2026, 1, 31), decimal.Zero, billing.DefaultValidatorConfig())
	require.NoError(t, err)
	return r
}

// newInvoice builds an unsaved invoice for meter in period, due on due
func (f *billingDB) newInvoice(t *testing.T, period *billing.BillingPeriod, meter *billing.Meter, due time.Time) *billing.Invoice {
	t.Helper()
	rule, err := billing.NewPricingRule(f.business, meter.MeterType, meter.UsageType,
		dec("10"), dec("0.5"), decimal.Zero, false, nil)
	require.NoError(t, err)

	reading := f.newReading(t, period.ID, meter, "300")
	require.NoError(t, reading.Approve(false, day(2026, 2, 1)))

	period.Status = billing.PeriodStatusBillingPhase
	inv, err := billing.GenerateInvoice(billing.InvoiceInput{
		Period:  period,
		Meter:   meter,
		Account: f.account,
		Reading: reading,
		Rule:    rule,
		VATRate: dec("0.15"),
		Now:     day(2026, 2, 1),
	})
	require.NoError(t, err)
	inv.DueDate = due
	return inv
}
