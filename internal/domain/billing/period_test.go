package billing

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodStatus_IsValid(t *testing.T) {
	tests := []struct {
		status  PeriodStatus
		isValid bool
	}{
		{PeriodStatusPending, true},
		{PeriodStatusActive, true},
		{PeriodStatusReadingPhase, true},
		{PeriodStatusBillingPhase, true},
		{PeriodStatusClosed, true},
		{PeriodStatus("archived"), false},
		{PeriodStatus(""), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.isValid, tt.status.IsValid())
		})
	}
}

func TestPeriodStatus_CanTransitionTo(t *testing.T) {
	all := []PeriodStatus{
		PeriodStatusPending, PeriodStatusActive, PeriodStatusReadingPhase,
		PeriodStatusBillingPhase, PeriodStatusClosed,
	}
	for i, from := range all {
		for j, to := range all {
			want := j == i+1
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestNewBillingPeriod(t *testing.T) {
	t.Run("creates pending period", func(t *testing.T) {
		p := newTestPeriod(t)
		assert.Equal(t, PeriodStatusPending, p.Status)
		assert.Equal(t, 1, p.Version)
		assert.True(t, p.TotalAmount.IsZero())
		assert.Len(t, p.GetDomainEvents(), 1)
	})

	t.Run("rejects empty code", func(t *testing.T) {
		_, err := NewBillingPeriod(uuid.New(), " ", "Name", time.Time{}, time.Time{}, time.Time{})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("rejects end before start", func(t *testing.T) {
		_, err := NewBillingPeriod(uuid.New(), "P1", "Name", day(2024, 2, 1), day(2024, 1, 1), time.Time{})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("rejects due before end", func(t *testing.T) {
		_, err := NewBillingPeriod(uuid.New(), "P1", "Name", day(2024, 1, 1), day(2024, 1, 31), day(2024, 1, 15))
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("allows missing dates", func(t *testing.T) {
		p, err := NewBillingPeriod(uuid.New(), "P1", "Name", time.Time{}, time.Time{}, time.Time{})
		require.NoError(t, err)
		assert.False(t, p.HasSchedule())
	})
}

func TestBillingPeriod_Transition(t *testing.T) {
	guard := TransitionGuard{ActiveMeters: 12, MinApprovedReadings: 1}

	t.Run("full forward lifecycle", func(t *testing.T) {
		p := newTestPeriod(t)
		require.NoError(t, p.Transition(PeriodStatusActive, guard))
		require.NoError(t, p.Transition(PeriodStatusReadingPhase, guard))
		assert.Equal(t, 12, p.TotalMeters)

		p.RecordReadingSubmitted(true)
		require.NoError(t, p.Transition(PeriodStatusBillingPhase, guard))

		p.RecordInvoiceRun()
		closeAt := day(2024, 2, 20)
		require.NoError(t, p.Transition(PeriodStatusClosed, TransitionGuard{Now: closeAt}))
		assert.Equal(t, PeriodStatusClosed, p.Status)
		require.NotNil(t, p.ClosedAt)
		assert.Equal(t, closeAt, *p.ClosedAt)
	})

	t.Run("activation requires dates", func(t *testing.T) {
		p, err := NewBillingPeriod(uuid.New(), "P2", "No dates", time.Time{}, time.Time{}, time.Time{})
		require.NoError(t, err)
		err = p.Transition(PeriodStatusActive, guard)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, PeriodStatusPending, p.Status)
	})

	t.Run("cannot skip a state", func(t *testing.T) {
		p := newTestPeriod(t)
		err := p.Transition(PeriodStatusReadingPhase, guard)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, PeriodStatusPending, p.Status)
	})

	t.Run("cannot move backward", func(t *testing.T) {
		p := periodIn(t, PeriodStatusReadingPhase)
		err := p.Transition(PeriodStatusActive, guard)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, PeriodStatusReadingPhase, p.Status)
	})

	t.Run("closed is terminal", func(t *testing.T) {
		p := periodIn(t, PeriodStatusClosed)
		for _, target := range []PeriodStatus{PeriodStatusPending, PeriodStatusActive, PeriodStatusBillingPhase, PeriodStatusClosed} {
			assert.ErrorIs(t, p.Transition(target, guard), ErrInvalidTransition)
		}
	})

	t.Run("billing phase needs approved readings", func(t *testing.T) {
		p := periodIn(t, PeriodStatusReadingPhase)
		p.ApprovedReadingsCount = 2
		err := p.Transition(PeriodStatusBillingPhase, TransitionGuard{MinApprovedReadings: 3})
		assert.ErrorIs(t, err, ErrInsufficientReadings)
		assert.Equal(t, PeriodStatusReadingPhase, p.Status)
	})

	t.Run("close needs an invoice run", func(t *testing.T) {
		p := periodIn(t, PeriodStatusBillingPhase)
		err := p.Transition(PeriodStatusClosed, guard)
		assert.True(t, errors.Is(err, ErrInvoicesNotGenerated))
		assert.Nil(t, p.ClosedAt)
	})

	t.Run("unknown target", func(t *testing.T) {
		p := newTestPeriod(t)
		assert.ErrorIs(t, p.Transition(PeriodStatus("archived"), guard), ErrInvalidTransition)
	})
}

func TestBillingPeriod_CountersFrozenAfterClose(t *testing.T) {
	p := periodIn(t, PeriodStatusClosed)
	before := *p

	p.RecordReadingSubmitted(true)
	p.RecordReadingApproved()
	p.RecordInvoice(dec("100"))
	p.RecordInvoiceRun()

	assert.Equal(t, before.ReadingsCount, p.ReadingsCount)
	assert.Equal(t, before.ApprovedReadingsCount, p.ApprovedReadingsCount)
	assert.Equal(t, before.InvoiceCount, p.InvoiceCount)
	assert.Equal(t, before.InvoiceRuns, p.InvoiceRuns)
	assert.True(t, p.CollectedAmount.IsZero())
}

func TestBillingPeriod_Counters(t *testing.T) {
	p := periodIn(t, PeriodStatusBillingPhase)
	p.RecordInvoice(dec("395"))
	p.RecordInvoice(dec("100"))
	p.RecordInvoiceCancelled(dec("100"))

	assert.Equal(t, 1, p.InvoiceCount)
	assert.True(t, p.TotalAmount.Equal(dec("395")))
}

func TestBillingPeriod_Guards(t *testing.T) {
	p := newTestPeriod(t)
	assert.True(t, p.CanDelete())
	assert.ErrorIs(t, p.EnsureBillingPhase(), ErrPeriodNotBillable)
	assert.ErrorIs(t, p.EnsureReadingPhase(), shared.ErrInvalidState)

	p = periodIn(t, PeriodStatusReadingPhase)
	assert.False(t, p.CanDelete())
	assert.NoError(t, p.EnsureReadingPhase())

	p = periodIn(t, PeriodStatusBillingPhase)
	assert.NoError(t, p.EnsureBillingPhase())
}

func TestBillingPeriod_Reschedule(t *testing.T) {
	p := newTestPeriod(t)
	require.NoError(t, p.Reschedule(day(2024, 3, 1), day(2024, 3, 31), day(2024, 4, 10)))
	assert.Equal(t, day(2024, 4, 10), p.DueDate)

	p = periodIn(t, PeriodStatusActive)
	assert.ErrorIs(t, p.Reschedule(day(2024, 3, 1), day(2024, 3, 31), day(2024, 4, 10)), shared.ErrInvalidState)
}
