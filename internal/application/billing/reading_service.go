package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/billing"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/meterbill/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ReadingService captures and reviews meter readings
type ReadingService struct {
	deps
}

// NewReadingService creates a new ReadingService
func NewReadingService(scope TransactionScope, cfg Config, opts ...Option) *ReadingService {
	return &ReadingService{deps: newDeps(scope, cfg, opts)}
}

// SubmitReading validates and stores a reading for a meter in a period that
// is capturing readings. Only one non-rejected reading per period and meter
// is accepted.
func (s *ReadingService) SubmitReading(ctx context.Context, in SubmitReadingInput) (reading *billing.MeterReading, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "meter_reading", "submit")
	defer span.End()
	defer s.observe("reading.submit", time.Now(), &err)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrPeriodID, in.PeriodID.String(),
		telemetry.SpanAttrMeterID, in.MeterID.String(),
	)

	if in.ReadingType == "" {
		in.ReadingType = billing.ReadingTypeManual
	}
	if in.ReadingDate.IsZero() {
		in.ReadingDate = s.now()
	}

	unlock, err := s.locker.Lock(ctx, PeriodLockKey(in.PeriodID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var period *billing.BillingPeriod
	err = withRetry(ctx, s.logger, "reading.submit", s.cfg.MaxRetries, func(int) error {
		return s.scope.Execute(ctx, func(repos Repositories) error {
			p, err := repos.Periods().FindByID(ctx, in.PeriodID)
			if err != nil {
				return err
			}
			if err := p.EnsureReadingPhase(); err != nil {
				return err
			}

			meter, err := repos.Meters().FindByID(ctx, in.MeterID)
			if err != nil {
				return err
			}
			if !meter.IsActive() {
				return shared.NewDomainError(shared.ErrInvalidState.Code, "Meter is not active")
			}
			if meter.BusinessID != p.BusinessID {
				return shared.NewDomainError(shared.ErrInvalidInput.Code, "Meter does not belong to the period's business")
			}

			existing, err := repos.Readings().FindActiveByPeriodAndMeter(ctx, p.ID, meter.ID)
			if err != nil && !errors.Is(err, shared.ErrNotFound) {
				return err
			}
			if existing != nil {
				return billing.ErrDuplicateReading
			}

			history, err := repos.Readings().RecentConfirmedConsumptions(ctx, meter.ID, s.cfg.TrailingWindow)
			if err != nil {
				return err
			}

			r, err := billing.NewMeterReading(meter, p.ID, in.ReadingType, in.CurrentReading, in.ReadingDate,
				billing.TrailingAverage(history), s.cfg.validatorConfig())
			if err != nil {
				return err
			}
			r.Notes = in.Notes
			if err := repos.Readings().Create(ctx, r); err != nil {
				return err
			}

			if r.AdvancesMeter() {
				meter.AdvanceReading(r.PreviousReading, r.CurrentReading, r.ReadingDate)
				if err := repos.Meters().SaveWithLock(ctx, meter); err != nil {
					return err
				}
			}

			p.RecordReadingSubmitted(r.CountsAsApproved())
			if err := repos.Periods().SaveWithLock(ctx, p); err != nil {
				return err
			}
			reading, period = r, p
			return nil
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrReadingID, reading.ID.String())
	if reading.AnomalyKind != billing.AnomalyNone {
		s.logger.Warn("meter reading flagged",
			zap.String("reading_id", reading.ID.String()),
			zap.String("meter_id", reading.MeterID.String()),
			zap.String("anomaly", string(reading.AnomalyKind)),
			zap.String("consumption", reading.Consumption.String()),
			zap.String("trailing_average", reading.TrailingAverage.String()))
	}
	s.metrics.ReadingSubmitted(string(reading.Status))
	s.publish(ctx, reading, period)
	return reading, nil
}

// ApproveReading confirms a reading. Anomalous readings need override.
func (s *ReadingService) ApproveReading(ctx context.Context, id uuid.UUID, override bool) (*billing.MeterReading, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "meter_reading", "approve")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrReadingID, id.String(), "override", override)

	reading, period, err := s.review(ctx, id, func(repos Repositories, r *billing.MeterReading, p *billing.BillingPeriod) error {
		if p.Status != billing.PeriodStatusReadingPhase && p.Status != billing.PeriodStatusBillingPhase {
			return shared.NewDomainError(shared.ErrInvalidState.Code, "Readings can only be approved before the period closes")
		}
		wasCounted := r.CountsAsApproved()
		if err := r.Approve(override, s.now()); err != nil {
			return err
		}
		if !wasCounted && r.AdvancesMeter() {
			meter, err := repos.Meters().FindByID(ctx, r.MeterID)
			if err != nil {
				return err
			}
			meter.AdvanceReading(r.PreviousReading, r.CurrentReading, r.ReadingDate)
			if err := repos.Meters().SaveWithLock(ctx, meter); err != nil {
				return err
			}
		}
		if !wasCounted {
			p.RecordReadingApproved()
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if reading.Overridden {
		s.logger.Info("anomalous meter reading approved with override",
			zap.String("reading_id", reading.ID.String()),
			zap.String("anomaly", string(reading.AnomalyKind)))
	}
	s.publish(ctx, reading, period)
	return reading, nil
}

// RejectReading discards a reading that has not been billed
func (s *ReadingService) RejectReading(ctx context.Context, id uuid.UUID, reason string) (*billing.MeterReading, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "meter_reading", "reject")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrReadingID, id.String())

	reading, period, err := s.review(ctx, id, func(repos Repositories, r *billing.MeterReading, p *billing.BillingPeriod) error {
		if p.IsClosed() {
			return shared.NewDomainError(shared.ErrInvalidState.Code, "Readings of a closed period cannot be rejected")
		}
		inv, err := repos.Invoices().FindByPeriodAndMeter(ctx, r.PeriodID, r.MeterID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if inv != nil && inv.ReadingID == r.ID {
			return shared.NewDomainError(shared.ErrInvalidState.Code, "Reading has already been invoiced")
		}
		wasCounted := r.CountsAsApproved()
		advanced := r.AdvancesMeter()
		if err := r.Reject(reason); err != nil {
			return err
		}
		if advanced {
			meter, err := repos.Meters().FindByID(ctx, r.MeterID)
			if err != nil {
				return err
			}
			if meter.RollbackReading(r.PreviousReading, r.CurrentReading) {
				if err := repos.Meters().SaveWithLock(ctx, meter); err != nil {
					return err
				}
			}
		}
		p.RecordReadingRejected(wasCounted)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.publish(ctx, reading, period)
	return reading, nil
}

// review loads a reading and its period under the period lock, applies fn
// and saves both.
func (s *ReadingService) review(ctx context.Context, id uuid.UUID, fn func(Repositories, *billing.MeterReading, *billing.BillingPeriod) error) (*billing.MeterReading, *billing.BillingPeriod, error) {
	var periodID uuid.UUID
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		r, err := repos.Readings().FindByID(ctx, id)
		if err != nil {
			return err
		}
		periodID = r.PeriodID
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	unlock, err := s.locker.Lock(ctx, PeriodLockKey(periodID))
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	var (
		reading *billing.MeterReading
		period  *billing.BillingPeriod
	)
	err = withRetry(ctx, s.logger, "reading.review", s.cfg.MaxRetries, func(int) error {
		return s.scope.Execute(ctx, func(repos Repositories) error {
			r, err := repos.Readings().FindByID(ctx, id)
			if err != nil {
				return err
			}
			p, err := repos.Periods().FindByID(ctx, r.PeriodID)
			if err != nil {
				return err
			}
			if err := fn(repos, r, p); err != nil {
				return err
			}
			if err := repos.Readings().SaveWithLock(ctx, r); err != nil {
				return err
			}
			if err := repos.Periods().SaveWithLock(ctx, p); err != nil {
				return err
			}
			reading, period = r, p
			return nil
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return reading, period, nil
}

// GetReading returns a reading by ID
func (s *ReadingService) GetReading(ctx context.Context, id uuid.UUID) (*billing.MeterReading, error) {
	var reading *billing.MeterReading
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		reading, err = repos.Readings().FindByID(ctx, id)
		return err
	})
	return reading, err
}

// ListReadings lists readings
func (s *ReadingService) ListReadings(ctx context.Context, filter billing.ReadingFilter) ([]*billing.MeterReading, int64, error) {
	var (
		readings []*billing.MeterReading
		total    int64
	)
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		readings, total, err = repos.Readings().FindAll(ctx, filter)
		return err
	})
	return readings, total, err
}
