package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestPeriod(t *testing.T) *BillingPeriod {
	t.Helper()
	p, err := NewBillingPeriod(uuid.New(), "2024-01", "January 2024",
		day(2024, 1, 1), day(2024, 1, 31), day(2024, 2, 15))
	require.NoError(t, err)
	return p
}

// periodIn drives a fresh period forward to status
func periodIn(t *testing.T, status PeriodStatus) *BillingPeriod {
	t.Helper()
	p := newTestPeriod(t)
	for p.Status != status {
		next, ok := p.Status.Next()
		require.True(t, ok)
		switch next {
		case PeriodStatusBillingPhase:
			p.ApprovedReadingsCount = 1
		case PeriodStatusClosed:
			p.InvoiceRuns = 1
		}
		require.NoError(t, p.Transition(next, TransitionGuard{ActiveMeters: 1, MinApprovedReadings: 1}))
	}
	return p
}

func newTestAccount(t *testing.T) *SubscriptionAccount {
	t.Helper()
	a, err := NewSubscriptionAccount(uuid.New(), "ACC-0001")
	require.NoError(t, err)
	return a
}

func newTestMeter(t *testing.T, account *SubscriptionAccount, initial string) *Meter {
	t.Helper()
	m, err := NewMeter(account, uuid.New(), "M-100", MeterTypeTraditional, PhaseSingle, UsageTypeResidential, dec(initial))
	require.NoError(t, err)
	return m
}

func newFlatRule(t *testing.T, businessID uuid.UUID, rate, fee string) *PricingRule {
	t.Helper()
	r, err := NewPricingRule(businessID, MeterTypeTraditional, UsageTypeResidential, dec(fee), dec(rate), decimal.Zero, false, nil)
	require.NoError(t, err)
	return r
}

func newTestInvoice(total string, due time.Time) *Invoice {
	inv := &Invoice{
		TotalAmount: dec(total),
		PaidAmount:  decimal.Zero,
		BalanceDue:  dec(total),
		Status:      InvoiceStatusGenerated,
		DueDate:     due,
		InvoiceDate: due.AddDate(0, 0, -15),
		CustomerID:  uuid.New(),
	}
	inv.ID = uuid.New()
	inv.CreatedAt = inv.InvoiceDate
	inv.Version = 1
	return inv
}
