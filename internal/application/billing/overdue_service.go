package billing

import (
	"context"
	"io"
	"time"

	"github.com/meterbill/backend/internal/domain/billing"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/meterbill/backend/internal/infrastructure/telemetry"
)

// OverdueReportWriter writes an overdue summary as a spreadsheet
type OverdueReportWriter interface {
	WriteOverdueReport(w io.Writer, summary billing.OverdueSummary) error
}

// OverdueService answers aging questions over unpaid invoices. It never
// takes locks.
type OverdueService struct {
	deps
	writer OverdueReportWriter
}

// NewOverdueService creates a new OverdueService
func NewOverdueService(scope TransactionScope, cfg Config, writer OverdueReportWriter, opts ...Option) *OverdueService {
	return &OverdueService{deps: newDeps(scope, cfg, opts), writer: writer}
}

// GetOverdueSummary buckets past-due invoices by age as of now. A zero now
// means the service clock.
func (s *OverdueService) GetOverdueSummary(ctx context.Context, filter billing.OverdueFilter, now time.Time) (*billing.OverdueSummary, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "overdue", "summary")
	defer span.End()

	if now.IsZero() {
		now = s.now()
	}
	var candidates []*billing.Invoice
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		candidates, err = repos.Invoices().FindOverdueCandidates(ctx, now, filter.CustomerID)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	summary := billing.SummarizeOverdue(candidates, filter, now)
	telemetry.SetAttributes(span,
		"overdue.count", summary.Stats.Count,
		"overdue.critical", summary.Stats.CriticalCount,
	)
	return &summary, nil
}

// ExportOverdueReport writes the summary for filter to w
func (s *OverdueService) ExportOverdueReport(ctx context.Context, filter billing.OverdueFilter, now time.Time, w io.Writer) error {
	if s.writer == nil {
		return shared.NewDomainError(shared.ErrInvalidState.Code, "Overdue export is not configured")
	}
	summary, err := s.GetOverdueSummary(ctx, filter, now)
	if err != nil {
		return err
	}
	return s.writer.WriteOverdueReport(w, *summary)
}
