package billing

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/billing"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/meterbill/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// overdueSweepBatch bounds how many invoices one MarkOverdue call touches
const overdueSweepBatch = 500

// InvoiceRenderer writes a printable invoice
type InvoiceRenderer interface {
	RenderInvoice(w io.Writer, inv *billing.Invoice) error
}

// InvoiceService generates and maintains invoices
type InvoiceService struct {
	deps
	renderer InvoiceRenderer
}

// NewInvoiceService creates a new InvoiceService. renderer may be nil when
// PDF output is not needed.
func NewInvoiceService(scope TransactionScope, cfg Config, renderer InvoiceRenderer, opts ...Option) *InvoiceService {
	return &InvoiceService{deps: newDeps(scope, cfg, opts), renderer: renderer}
}

type invoiceJob struct {
	reading *billing.MeterReading
	meter   *billing.Meter
	rule    *billing.PricingRule
}

// GenerateInvoices bills every eligible reading of a period in billing_phase.
// Readings that already have a live invoice are skipped, so the run can be
// repeated safely. Rules are resolved for all readings before anything is
// written; one missing rule fails the whole run. Each meter is then billed
// in its own transaction.
func (s *InvoiceService) GenerateInvoices(ctx context.Context, periodID uuid.UUID) (result *GenerateInvoicesResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "generate")
	defer span.End()
	defer s.observe("invoice.generate", time.Now(), &err)
	telemetry.SetAttribute(span, telemetry.SpanAttrPeriodID, periodID.String())

	unlock, err := s.locker.Lock(ctx, PeriodLockKey(periodID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	defer func() {
		if err != nil {
			telemetry.RecordError(span, err)
			s.logger.Warn("invoice generation failed",
				zap.String("period_id", periodID.String()),
				zap.Error(err))
		}
	}()

	jobs, err := s.planInvoices(ctx, periodID)
	if err != nil {
		return nil, err
	}

	result = &GenerateInvoicesResult{PeriodID: periodID, InvoiceIDs: []uuid.UUID{}}
	invoices := make([]*billing.Invoice, 0, len(jobs))
	for _, job := range jobs {
		inv, err := s.billMeter(ctx, periodID, job)
		if err != nil {
			return nil, err
		}
		if inv == nil {
			result.Skipped++
			continue
		}
		invoices = append(invoices, inv)
		result.Created++
		result.InvoiceIDs = append(result.InvoiceIDs, inv.ID)
	}

	var period *billing.BillingPeriod
	err = withRetry(ctx, s.logger, "invoice.generate", s.cfg.MaxRetries, func(int) error {
		return s.scope.Execute(ctx, func(repos Repositories) error {
			p, err := repos.Periods().FindByID(ctx, periodID)
			if err != nil {
				return err
			}
			p.RecordInvoiceRun()
			if err := repos.Periods().SaveWithLock(ctx, p); err != nil {
				return err
			}
			period = p
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	telemetry.SetAttributes(span, "invoices.created", result.Created, "invoices.skipped", result.Skipped)
	s.metrics.InvoicesGenerated(result.Created, result.Skipped)
	s.logger.Info("invoices generated",
		zap.String("period_id", periodID.String()),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped))

	sources := make([]shared.EventSource, 0, len(invoices)+1)
	for _, inv := range invoices {
		sources = append(sources, inv)
	}
	s.publish(ctx, append(sources, period)...)
	return result, nil
}

// planInvoices checks the period and pairs every eligible reading with its
// pricing rule
func (s *InvoiceService) planInvoices(ctx context.Context, periodID uuid.UUID) ([]invoiceJob, error) {
	var jobs []invoiceJob
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		p, err := repos.Periods().FindByID(ctx, periodID)
		if err != nil {
			return err
		}
		if err := p.EnsureBillingPhase(); err != nil {
			return err
		}

		readings, err := repos.Readings().FindEligibleByPeriod(ctx, p.ID)
		if err != nil {
			return err
		}
		rules, err := repos.PricingRules().FindActiveByBusiness(ctx, p.BusinessID)
		if err != nil {
			return err
		}

		meters := make(map[uuid.UUID]*billing.Meter)
		jobs = make([]invoiceJob, 0, len(readings))
		for _, r := range readings {
			meter, ok := meters[r.MeterID]
			if !ok {
				meter, err = repos.Meters().FindByID(ctx, r.MeterID)
				if err != nil {
					return err
				}
				meters[meter.ID] = meter
			}
			rule, err := billing.ResolveRule(rules, p.BusinessID, meter.MeterType, meter.UsageType, s.cfg.PricingFallback)
			if err != nil {
				return err
			}
			jobs = append(jobs, invoiceJob{reading: r, meter: meter, rule: rule})
		}
		return nil
	})
	return jobs, err
}

// billMeter writes the invoice of one reading together with the account,
// meter and period charges. A nil invoice means the meter was already billed.
func (s *InvoiceService) billMeter(ctx context.Context, periodID uuid.UUID, job invoiceJob) (*billing.Invoice, error) {
	var created *billing.Invoice
	err := withRetry(ctx, s.logger, "invoice.generate", s.cfg.MaxRetries, func(int) error {
		created = nil
		return s.scope.Execute(ctx, func(repos Repositories) error {
			existing, err := repos.Invoices().FindByPeriodAndMeter(ctx, periodID, job.meter.ID)
			if err != nil && !errors.Is(err, shared.ErrNotFound) {
				return err
			}
			if existing != nil {
				return nil
			}

			p, err := repos.Periods().FindByID(ctx, periodID)
			if err != nil {
				return err
			}
			meter, err := repos.Meters().FindByID(ctx, job.meter.ID)
			if err != nil {
				return err
			}
			account, err := repos.Accounts().FindByID(ctx, meter.AccountID)
			if err != nil {
				return err
			}

			inv, err := billing.GenerateInvoice(billing.InvoiceInput{
				Period:  p,
				Meter:   meter,
				Account: account,
				Reading: job.reading,
				Rule:    job.rule,
				VATRate: s.cfg.VATRate,
				Now:     s.now(),
			})
			if err != nil {
				return err
			}
			if err := repos.Invoices().Create(ctx, inv); err != nil {
				if errors.Is(err, billing.ErrDuplicateInvoice) {
					return nil
				}
				return err
			}

			if err := repos.Accounts().SaveWithLock(ctx, account); err != nil {
				return err
			}
			if err := repos.Meters().SaveWithLock(ctx, meter); err != nil {
				return err
			}
			if err := repos.Periods().SaveWithLock(ctx, p); err != nil {
				return err
			}
			created = inv
			return nil
		})
	})
	if err != nil {
		s.logger.Warn("meter billing failed",
			zap.String("period_id", periodID.String()),
			zap.String("meter_id", job.meter.ID.String()),
			zap.Error(err))
		return nil, err
	}
	return created, nil
}

// CancelInvoice voids an unpaid invoice and reverses its charge on the
// account and meter ledgers
func (s *InvoiceService) CancelInvoice(ctx context.Context, id uuid.UUID, reason string) (*billing.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "cancel")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrInvoiceID, id.String())

	inv, err := s.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, CustomerLockKey(inv.CustomerID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var cancelled *billing.Invoice
	err = withRetry(ctx, s.logger, "invoice.cancel", s.cfg.MaxRetries, func(int) error {
		return s.scope.Execute(ctx, func(repos Repositories) error {
			inv, err := repos.Invoices().FindByIDForUpdate(ctx, id)
			if err != nil {
				return err
			}
			reversed, err := inv.Cancel(reason, s.now())
			if err != nil {
				return err
			}
			if err := repos.Invoices().SaveWithLock(ctx, inv); err != nil {
				return err
			}

			account, err := repos.Accounts().FindByID(ctx, inv.AccountID)
			if err != nil {
				return err
			}
			account.Settle(reversed)
			if err := repos.Accounts().SaveWithLock(ctx, account); err != nil {
				return err
			}

			meter, err := repos.Meters().FindByID(ctx, inv.MeterID)
			if err != nil {
				return err
			}
			meter.AddBalance(reversed.Neg())
			if err := repos.Meters().SaveWithLock(ctx, meter); err != nil {
				return err
			}

			period, err := repos.Periods().FindByID(ctx, inv.PeriodID)
			if err != nil {
				return err
			}
			if !period.IsClosed() {
				period.RecordInvoiceCancelled(inv.TotalAmount)
				if err := repos.Periods().SaveWithLock(ctx, period); err != nil {
					return err
				}
			}
			cancelled = inv
			return nil
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("invoice cancelled",
		zap.String("invoice_id", id.String()),
		zap.String("invoice_number", cancelled.InvoiceNumber))
	s.publish(ctx, cancelled)
	return cancelled, nil
}

// MarkOverdue flags open invoices whose due date has passed. Each invoice is
// updated in its own transaction; an invoice changed concurrently is left for
// the next sweep.
func (s *InvoiceService) MarkOverdue(ctx context.Context, now time.Time) (int, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "mark_overdue")
	defer span.End()

	var candidates []*billing.Invoice
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		candidates, err = repos.Invoices().FindPastDueOpen(ctx, now, overdueSweepBatch)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, err
	}

	marked := 0
	for _, candidate := range candidates {
		var flagged *billing.Invoice
		err := s.scope.Execute(ctx, func(repos Repositories) error {
			inv, err := repos.Invoices().FindByIDForUpdate(ctx, candidate.ID)
			if err != nil {
				return err
			}
			if !inv.MarkOverdue(now) {
				return nil
			}
			if err := repos.Invoices().SaveWithLock(ctx, inv); err != nil {
				return err
			}
			flagged = inv
			return nil
		})
		if err != nil {
			if errors.Is(err, shared.ErrConcurrencyConflict) {
				continue
			}
			telemetry.RecordError(span, err)
			return marked, err
		}
		if flagged != nil {
			marked++
			s.publish(ctx, flagged)
		}
	}

	telemetry.SetAttribute(span, "invoices.marked_overdue", marked)
	if marked > 0 {
		s.logger.Info("invoices marked overdue", zap.Int("count", marked))
	}
	return marked, nil
}

// GetInvoice returns an invoice by ID
func (s *InvoiceService) GetInvoice(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var inv *billing.Invoice
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		inv, err = repos.Invoices().FindByID(ctx, id)
		return err
	})
	return inv, err
}

// ListInvoices lists invoices
func (s *InvoiceService) ListInvoices(ctx context.Context, filter billing.InvoiceFilter) ([]*billing.Invoice, int64, error) {
	var (
		invoices []*billing.Invoice
		total    int64
	)
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		invoices, total, err = repos.Invoices().FindAll(ctx, filter)
		return err
	})
	return invoices, total, err
}

// RenderInvoicePDF writes the invoice as a PDF document to w
func (s *InvoiceService) RenderInvoicePDF(ctx context.Context, id uuid.UUID, w io.Writer) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "render_pdf")
	defer span.End()

	if s.renderer == nil {
		return shared.NewDomainError(shared.ErrInvalidState.Code, "Invoice rendering is not configured")
	}
	inv, err := s.GetInvoice(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if err := s.renderer.RenderInvoice(w, inv); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	return nil
}
