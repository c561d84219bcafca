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

// PeriodService drives billing periods through their lifecycle
type PeriodService struct {
	deps
}

// NewPeriodService creates a new PeriodService
func NewPeriodService(scope TransactionScope, cfg Config, opts ...Option) *PeriodService {
	return &PeriodService{deps: newDeps(scope, cfg, opts)}
}

// CreatePeriod creates a pending billing period with a unique code
func (s *PeriodService) CreatePeriod(ctx context.Context, in CreatePeriodInput) (period *billing.BillingPeriod, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing_period", "create")
	defer span.End()
	defer s.observe("period.create", time.Now(), &err)

	period, err = billing.NewBillingPeriod(in.BusinessID, in.Code, in.Name, in.StartDate, in.EndDate, in.DueDate)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	err = s.scope.Execute(ctx, func(repos Repositories) error {
		existing, err := repos.Periods().FindByCode(ctx, period.Code)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if existing != nil {
			return shared.NewDomainError(shared.ErrAlreadyExists.Code, "A billing period with this code already exists")
		}
		return repos.Periods().Create(ctx, period)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrPeriodID, period.ID.String())
	s.logger.Info("billing period created",
		zap.String("period_id", period.ID.String()),
		zap.String("code", period.Code))
	s.publish(ctx, period)
	return period, nil
}

// ReschedulePeriod replaces the dates of a pending period
func (s *PeriodService) ReschedulePeriod(ctx context.Context, id uuid.UUID, startDate, endDate, dueDate time.Time) (*billing.BillingPeriod, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing_period", "reschedule")
	defer span.End()

	unlock, err := s.locker.Lock(ctx, PeriodLockKey(id))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var period *billing.BillingPeriod
	err = withRetry(ctx, s.logger, "period.reschedule", s.cfg.MaxRetries, func(int) error {
		return s.scope.Execute(ctx, func(repos Repositories) error {
			p, err := repos.Periods().FindByID(ctx, id)
			if err != nil {
				return err
			}
			if err := p.Reschedule(startDate, endDate, dueDate); err != nil {
				return err
			}
			period = p
			return repos.Periods().SaveWithLock(ctx, p)
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return period, nil
}

// TransitionPeriod moves a period to target. Transitions on one period are
// serialized by the period lock and the aggregate version.
func (s *PeriodService) TransitionPeriod(ctx context.Context, id uuid.UUID, target billing.PeriodStatus) (period *billing.BillingPeriod, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing_period", "transition")
	defer span.End()
	defer s.observe("period.transition", time.Now(), &err)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrPeriodID, id.String(),
		telemetry.SpanAttrPeriodStatus, string(target),
	)

	unlock, err := s.locker.Lock(ctx, PeriodLockKey(id))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer unlock()

	var from billing.PeriodStatus
	err = withRetry(ctx, s.logger, "period.transition", s.cfg.MaxRetries, func(int) error {
		return s.scope.Execute(ctx, func(repos Repositories) error {
			p, err := repos.Periods().FindByID(ctx, id)
			if err != nil {
				return err
			}
			from = p.Status

			guard := billing.TransitionGuard{
				MinApprovedReadings: s.cfg.MinApprovedReadings,
				Now:                 s.now(),
			}
			if target == billing.PeriodStatusReadingPhase {
				active, err := repos.Meters().CountActiveByBusiness(ctx, p.BusinessID)
				if err != nil {
					return err
				}
				guard.ActiveMeters = int(active)
			}

			if err := p.Transition(target, guard); err != nil {
				return err
			}
			period = p
			return repos.Periods().SaveWithLock(ctx, p)
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Warn("billing period transition refused",
			zap.String("period_id", id.String()),
			zap.String("target", string(target)),
			zap.Error(err))
		return nil, err
	}

	s.metrics.PeriodTransitioned(string(from), string(target))
	s.logger.Info("billing period transitioned",
		zap.String("period_id", id.String()),
		zap.String("from", string(from)),
		zap.String("to", string(target)))
	s.publish(ctx, period)
	return period, nil
}

// GetPeriod returns a billing period by ID
func (s *PeriodService) GetPeriod(ctx context.Context, id uuid.UUID) (*billing.BillingPeriod, error) {
	var period *billing.BillingPeriod
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		period, err = repos.Periods().FindByID(ctx, id)
		return err
	})
	return period, err
}

// ListPeriods lists billing periods
func (s *PeriodService) ListPeriods(ctx context.Context, filter billing.PeriodFilter) ([]*billing.BillingPeriod, int64, error) {
	var (
		periods []*billing.BillingPeriod
		total   int64
	)
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		periods, total, err = repos.Periods().FindAll(ctx, filter)
		return err
	})
	return periods, total, err
}

// DeletePeriod removes a period that never left pending
func (s *PeriodService) DeletePeriod(ctx context.Context, id uuid.UUID) error {
	unlock, err := s.locker.Lock(ctx, PeriodLockKey(id))
	if err != nil {
		return err
	}
	defer unlock()

	return s.scope.Execute(ctx, func(repos Repositories) error {
		p, err := repos.Periods().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !p.CanDelete() {
			return shared.NewDomainError(shared.ErrInvalidState.Code, "Only pending billing periods can be deleted")
		}
		return repos.Periods().Delete(ctx, id)
	})
}
