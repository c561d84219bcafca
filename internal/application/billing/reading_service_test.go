package billing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/billing"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type readingFixture struct {
	periods  *MockPeriodRepository
	meters   *MockMeterRepository
	readings *MockReadingRepository
	invoices *MockInvoiceRepository
	period   *billing.BillingPeriod
	meter    *billing.Meter
	svc      *ReadingService
}

func newReadingFixture(t *testing.T) *readingFixture {
	t.Helper()
	p := newPeriod(t, uuid.New())
	require.NoError(t, p.Transition(billing.PeriodStatusActive, billing.TransitionGuard{}))
	require.NoError(t, p.Transition(billing.PeriodStatusReadingPhase, billing.TransitionGuard{ActiveMeters: 1}))

	account, err := billing.NewSubscriptionAccount(uuid.New(), "ACC-7")
	require.NoError(t, err)
	meter, err := billing.NewMeter(account, p.BusinessID, "M-7", billing.MeterTypeSmart, billing.PhaseThree, billing.UsageTypeCommercial, decimal.NewFromInt(500))
	require.NoError(t, err)

	f := &readingFixture{
		periods:  new(MockPeriodRepository),
		meters:   new(MockMeterRepository),
		readings: new(MockReadingRepository),
		invoices: new(MockInvoiceRepository),
		period:   p,
		meter:    meter,
	}
	scope := NewNoOpTransactionScope(&StaticRepositories{
		PeriodRepo:  f.periods,
		MeterRepo:   f.meters,
		ReadingRepo: f.readings,
		InvoiceRepo: f.invoices,
	})
	f.svc = NewReadingService(scope, DefaultConfig(), WithClock(fixedClock))

	f.periods.On("FindByID", mock.Anything, p.ID).Return(p, nil)
	f.meters.On("FindByID", mock.Anything, meter.ID).Return(meter, nil)
	return f
}

func TestReadingService_SubmitReading(t *testing.T) {
	t.Run("automatic reading is confirmed and advances the meter", func(t *testing.T) {
		f := newReadingFixture(t)
		f.readings.On("FindActiveByPeriodAndMeter", mock.Anything, f.period.ID, f.meter.ID).Return(nil, shared.ErrNotFound)
		f.readings.On("RecentConfirmedConsumptions", mock.Anything, f.meter.ID, billing.DefaultTrailingWindow).
			Return([]decimal.Decimal{decimal.NewFromInt(100), decimal.NewFromInt(120)}, nil)
		f.readings.On("Create", mock.Anything, mock.AnythingOfType("*billing.MeterReading")).Return(nil)
		f.meters.On("SaveWithLock", mock.Anything, f.meter).Return(nil)
		f.periods.On("SaveWithLock", mock.Anything, f.period).Return(nil)

		r, err := f.svc.SubmitReading(context.Background(), SubmitReadingInput{
			PeriodID:       f.period.ID,
			MeterID:        f.meter.ID,
			CurrentReading: decimal.NewFromInt(610),
			ReadingType:    billing.ReadingTypeAutomatic,
		})

		require.NoError(t, err)
		assert.Equal(t, billing.ReadingStatusConfirmed, r.Status)
		assert.True(t, r.Consumption.Equal(decimal.NewFromInt(110)))
		assert.True(t, r.TrailingAverage.Equal(decimal.NewFromInt(110)))
		assert.True(t, f.meter.CurrentReading.Equal(decimal.NewFromInt(610)))
		assert.True(t, f.meter.PreviousReading.Equal(decimal.NewFromInt(500)))
		assert.Equal(t, 1, f.period.ReadingsCount)
		assert.Equal(t, 1, f.period.ApprovedReadingsCount)
		assert.Equal(t, fixedClock(), r.ReadingDate)
	})

	t.Run("outlier is flagged and leaves the meter alone", func(t *testing.T) {
		f := newReadingFixture(t)
		f.readings.On("FindActiveByPeriodAndMeter", mock.Anything, f.period.ID, f.meter.ID).Return(nil, shared.ErrNotFound)
		f.readings.On("RecentConfirmedConsumptions", mock.Anything, f.meter.ID, billing.DefaultTrailingWindow).
			Return([]decimal.Decimal{decimal.NewFromInt(10)}, nil)
		f.readings.On("Create", mock.Anything, mock.AnythingOfType("*billing.MeterReading")).Return(nil)
		f.periods.On("SaveWithLock", mock.Anything, f.period).Return(nil)

		r, err := f.svc.SubmitReading(context.Background(), SubmitReadingInput{
			PeriodID:       f.period.ID,
			MeterID:        f.meter.ID,
			CurrentReading: decimal.NewFromInt(700),
			ReadingType:    billing.ReadingTypeAutomatic,
		})

		require.NoError(t, err)
		assert.Equal(t, billing.ReadingStatusAnomaly, r.Status)
		assert.Equal(t, billing.AnomalyOutlier, r.AnomalyKind)
		assert.True(t, f.meter.CurrentReading.Equal(decimal.NewFromInt(500)))
		assert.Equal(t, 0, f.period.ApprovedReadingsCount)
		f.meters.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("second reading for the meter is refused", func(t *testing.T) {
		f := newReadingFixture(t)
		existing := &billing.MeterReading{MeterID: f.meter.ID, PeriodID: f.period.ID, Status: billing.ReadingStatusPending}
		f.readings.On("FindActiveByPeriodAndMeter", mock.Anything, f.period.ID, f.meter.ID).Return(existing, nil)

		_, err := f.svc.SubmitReading(context.Background(), SubmitReadingInput{
			PeriodID:       f.period.ID,
			MeterID:        f.meter.ID,
			CurrentReading: decimal.NewFromInt(600),
		})

		assert.ErrorIs(t, err, billing.ErrDuplicateReading)
		f.readings.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("meter of another business", func(t *testing.T) {
		f := newReadingFixture(t)
		f.meter.BusinessID = uuid.New()

		_, err := f.svc.SubmitReading(context.Background(), SubmitReadingInput{
			PeriodID:       f.period.ID,
			MeterID:        f.meter.ID,
			CurrentReading: decimal.NewFromInt(600),
		})

		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestReadingService_ApproveReading(t *testing.T) {
	newReading := func(t *testing.T, f *readingFixture, readingType billing.ReadingType, current int64, trailing int64) *billing.MeterReading {
		t.Helper()
		r, err := billing.NewMeterReading(f.meter, f.period.ID, readingType, decimal.NewFromInt(current),
			date(2024, 1, 31), decimal.NewFromInt(trailing), billing.DefaultValidatorConfig())
		require.NoError(t, err)
		f.readings.On("FindByID", mock.Anything, r.ID).Return(r, nil)
		f.readings.On("SaveWithLock", mock.Anything, r).Return(nil)
		f.meters.On("SaveWithLock", mock.Anything, f.meter).Return(nil)
		f.periods.On("SaveWithLock", mock.Anything, f.period).Return(nil)
		return r
	}

	t.Run("outlier needs override and then advances the meter", func(t *testing.T) {
		f := newReadingFixture(t)
		r := newReading(t, f, billing.ReadingTypeManual, 2500, 10)
		require.Equal(t, billing.AnomalyOutlier, r.AnomalyKind)

		_, err := f.svc.ApproveReading(context.Background(), r.ID, false)
		assert.ErrorIs(t, err, billing.ErrOutlierReading)
		assert.Equal(t, 0, f.period.ApprovedReadingsCount)

		approved, err := f.svc.ApproveReading(context.Background(), r.ID, true)
		require.NoError(t, err)
		assert.Equal(t, billing.ReadingStatusConfirmed, approved.Status)
		assert.True(t, approved.Overridden)
		assert.Equal(t, 1, f.period.ApprovedReadingsCount)
		assert.True(t, f.meter.CurrentReading.Equal(decimal.NewFromInt(2500)))
	})

	t.Run("reading below the meter is refused even with override", func(t *testing.T) {
		f := newReadingFixture(t)
		r := newReading(t, f, billing.ReadingTypeManual, 450, 0)
		require.Equal(t, billing.AnomalyNonMonotonic, r.AnomalyKind)

		for _, override := range []bool{false, true} {
			_, err := f.svc.ApproveReading(context.Background(), r.ID, override)
			assert.ErrorIs(t, err, billing.ErrNonMonotonicReading)
		}
		assert.Equal(t, billing.ReadingStatusAnomaly, r.Status)
		assert.Equal(t, 0, f.period.ApprovedReadingsCount)
		assert.True(t, f.meter.CurrentReading.Equal(decimal.NewFromInt(500)))
		f.meters.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("confirming an estimate does not move the meter twice", func(t *testing.T) {
		f := newReadingFixture(t)
		r := newReading(t, f, billing.ReadingTypeEstimated, 600, 0)
		f.meter.AdvanceReading(r.PreviousReading, r.CurrentReading, r.ReadingDate)
		f.period.RecordReadingSubmitted(true)

		approved, err := f.svc.ApproveReading(context.Background(), r.ID, false)
		require.NoError(t, err)
		assert.Equal(t, billing.ReadingStatusConfirmed, approved.Status)
		assert.Equal(t, 1, f.period.ApprovedReadingsCount)
		assert.True(t, f.meter.CurrentReading.Equal(decimal.NewFromInt(600)))
		assert.True(t, f.meter.PreviousReading.Equal(decimal.NewFromInt(500)))
		f.meters.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})
}

func TestReadingService_RejectEstimateRollsBackMeter(t *testing.T) {
	f := newReadingFixture(t)
	r, err := billing.NewMeterReading(f.meter, f.period.ID, billing.ReadingTypeEstimated, decimal.NewFromInt(640),
		date(2024, 1, 31), decimal.Zero, billing.DefaultValidatorConfig())
	require.NoError(t, err)
	f.meter.AdvanceReading(r.PreviousReading, r.CurrentReading, r.ReadingDate)
	f.period.RecordReadingSubmitted(true)

	f.readings.On("FindByID", mock.Anything, r.ID).Return(r, nil)
	f.readings.On("SaveWithLock", mock.Anything, r).Return(nil)
	f.invoices.On("FindByPeriodAndMeter", mock.Anything, f.period.ID, f.meter.ID).Return(nil, shared.ErrNotFound)
	f.meters.On("SaveWithLock", mock.Anything, f.meter).Return(nil)
	f.periods.On("SaveWithLock", mock.Anything, f.period).Return(nil)

	rejected, err := f.svc.RejectReading(context.Background(), r.ID, "meter was read on site")
	require.NoError(t, err)
	assert.Equal(t, billing.ReadingStatusRejected, rejected.Status)
	assert.True(t, f.meter.CurrentReading.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, 0, f.period.ApprovedReadingsCount)
	f.meters.AssertCalled(t, "SaveWithLock", mock.Anything, f.meter)
}
