package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PeriodStatus represents the lifecycle state of a billing period
type PeriodStatus string

const (
	PeriodStatusPending      PeriodStatus = "pending"
	PeriodStatusActive       PeriodStatus = "active"
	PeriodStatusReadingPhase PeriodStatus = "reading_phase"
	PeriodStatusBillingPhase PeriodStatus = "billing_phase"
	PeriodStatusClosed       PeriodStatus = "closed"
)

// periodTransitions is the complete transition table. Each status has exactly
// one successor; closed has none.
var periodTransitions = map[PeriodStatus]PeriodStatus{
	PeriodStatusPending:      PeriodStatusActive,
	PeriodStatusActive:       PeriodStatusReadingPhase,
	PeriodStatusReadingPhase: PeriodStatusBillingPhase,
	PeriodStatusBillingPhase: PeriodStatusClosed,
}

// IsValid checks if the status is a known PeriodStatus
func (s PeriodStatus) IsValid() bool {
	switch s {
	case PeriodStatusPending, PeriodStatusActive, PeriodStatusReadingPhase,
		PeriodStatusBillingPhase, PeriodStatusClosed:
		return true
	}
	return false
}

// String returns the string representation of PeriodStatus
func (s PeriodStatus) String() string {
	return string(s)
}

// Next returns the only status this one may move to
func (s PeriodStatus) Next() (PeriodStatus, bool) {
	next, ok := periodTransitions[s]
	return next, ok
}

// CanTransitionTo reports whether target is the adjacent forward status
func (s PeriodStatus) CanTransitionTo(target PeriodStatus) bool {
	next, ok := periodTransitions[s]
	return ok && next == target
}

// TransitionGuard carries the facts a transition may depend on.
// The period itself does not look them up.
type TransitionGuard struct {
	// ActiveMeters is snapshotted into TotalMeters when reading opens
	ActiveMeters int
	// MinApprovedReadings gates reading_phase -> billing_phase
	MinApprovedReadings int
	Now                 time.Time
}

// BillingPeriod is the aggregate root for one billing cycle
type BillingPeriod struct {
	shared.BaseAggregateRoot
	BusinessID            uuid.UUID
	Code                  string
	Name                  string
	StartDate             time.Time
	EndDate               time.Time
	DueDate               time.Time
	Status                PeriodStatus
	TotalMeters           int
	ReadingsCount         int
	ApprovedReadingsCount int
	InvoiceCount          int
	TotalAmount           decimal.Decimal
	CollectedAmount       decimal.Decimal
	InvoiceRuns           int
	ClosedAt              *time.Time
}

// NewBillingPeriod creates a pending billing period. Dates may be left zero
// and set later with Reschedule, but activation requires all three.
func NewBillingPeriod(businessID uuid.UUID, code, name string, startDate, endDate, dueDate time.Time) (*BillingPeriod, error) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	if code == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Period code cannot be empty")
	}
	if len(code) > 50 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Period code cannot exceed 50 characters")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Period name cannot be empty")
	}
	if err := validateSchedule(startDate, endDate, dueDate); err != nil {
		return nil, err
	}

	p := &BillingPeriod{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		BusinessID:        businessID,
		Code:              code,
		Name:              name,
		StartDate:         startDate,
		EndDate:           endDate,
		DueDate:           dueDate,
		Status:            PeriodStatusPending,
		TotalAmount:       decimal.Zero,
		CollectedAmount:   decimal.Zero,
	}
	p.AddDomainEvent(NewPeriodCreatedEvent(p))
	return p, nil
}

func validateSchedule(startDate, endDate, dueDate time.Time) error {
	if !startDate.IsZero() && !endDate.IsZero() && endDate.Before(startDate) {
		return shared.NewDomainError("INVALID_INPUT", "Period end date cannot be before start date")
	}
	if !endDate.IsZero() && !dueDate.IsZero() && dueDate.Before(endDate) {
		return shared.NewDomainError("INVALID_INPUT", "Period due date cannot be before end date")
	}
	return nil
}

// Reschedule replaces the period dates. Only allowed while pending.
func (p *BillingPeriod) Reschedule(startDate, endDate, dueDate time.Time) error {
	if p.Status != PeriodStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Period dates can only be changed while pending")
	}
	if err := validateSchedule(startDate, endDate, dueDate); err != nil {
		return err
	}
	p.StartDate = startDate
	p.EndDate = endDate
	p.DueDate = dueDate
	p.Touch()
	return nil
}

// HasSchedule reports whether all three dates are set
func (p *BillingPeriod) HasSchedule() bool {
	return !p.StartDate.IsZero() && !p.EndDate.IsZero() && !p.DueDate.IsZero()
}

// Transition moves the period to target. Only the adjacent forward status is
// accepted; each step checks its own guard.
func (p *BillingPeriod) Transition(target PeriodStatus, guard TransitionGuard) error {
	if !target.IsValid() {
		return shared.NewDomainError(CodeInvalidTransition, fmt.Sprintf("Unknown period status %q", target))
	}
	if !p.Status.CanTransitionTo(target) {
		return shared.NewDomainError(CodeInvalidTransition,
			fmt.Sprintf("Cannot move billing period from %s to %s", p.Status, target))
	}

	switch target {
	case PeriodStatusActive:
		if !p.HasSchedule() {
			return shared.NewDomainError(CodeInvalidTransition, "Start, end and due dates must be set before activation")
		}
	case PeriodStatusReadingPhase:
		p.TotalMeters = guard.ActiveMeters
	case PeriodStatusBillingPhase:
		if p.ApprovedReadingsCount < guard.MinApprovedReadings {
			return shared.NewDomainError(CodeInsufficientReadings,
				fmt.Sprintf("Period has %d approved readings, at least %d required", p.ApprovedReadingsCount, guard.MinApprovedReadings))
		}
	case PeriodStatusClosed:
		if p.InvoiceRuns == 0 {
			return ErrInvoicesNotGenerated
		}
		now := guard.Now
		if now.IsZero() {
			now = time.Now()
		}
		p.ClosedAt = &now
	}

	from := p.Status
	p.Status = target
	p.Touch()
	p.AddDomainEvent(NewPeriodTransitionedEvent(p, from))
	return nil
}

// IsClosed reports whether counters are frozen
func (p *BillingPeriod) IsClosed() bool {
	return p.Status == PeriodStatusClosed
}

// EnsureReadingPhase fails unless readings are being captured
func (p *BillingPeriod) EnsureReadingPhase() error {
	if p.Status != PeriodStatusReadingPhase {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Readings can only be captured during reading_phase, period is %s", p.Status))
	}
	return nil
}

// EnsureBillingPhase fails unless invoices may be generated
func (p *BillingPeriod) EnsureBillingPhase() error {
	if p.Status != PeriodStatusBillingPhase {
		return shared.NewDomainError(CodePeriodNotBillable,
			fmt.Sprintf("Invoices can only be generated during billing_phase, period is %s", p.Status))
	}
	return nil
}

// CanDelete reports whether the period may be removed. Financial history
// must stay addressable once the period left pending.
func (p *BillingPeriod) CanDelete() bool {
	return p.Status == PeriodStatusPending
}

// RecordReadingSubmitted counts a captured reading
func (p *BillingPeriod) RecordReadingSubmitted(approved bool) {
	if p.IsClosed() {
		return
	}
	p.ReadingsCount++
	if approved {
		p.ApprovedReadingsCount++
	}
	p.Touch()
}

// RecordReadingApproved counts a reading that became eligible for invoicing
func (p *BillingPeriod) RecordReadingApproved() {
	if p.IsClosed() {
		return
	}
	p.ApprovedReadingsCount++
	p.Touch()
}

// RecordReadingRejected takes a rejected reading out of the approved count
// when it had been counted there
func (p *BillingPeriod) RecordReadingRejected(wasApproved bool) {
	if p.IsClosed() || !wasApproved {
		return
	}
	if p.ApprovedReadingsCount > 0 {
		p.ApprovedReadingsCount--
	}
	p.Touch()
}

// RecordInvoice adds a generated invoice to the period totals
func (p *BillingPeriod) RecordInvoice(total decimal.Decimal) {
	if p.IsClosed() {
		return
	}
	p.InvoiceCount++
	p.TotalAmount = p.TotalAmount.Add(total)
	p.Touch()
}

// RecordInvoiceCancelled removes a cancelled invoice from the period totals
func (p *BillingPeriod) RecordInvoiceCancelled(total decimal.Decimal) {
	if p.IsClosed() {
		return
	}
	if p.InvoiceCount > 0 {
		p.InvoiceCount--
	}
	p.TotalAmount = p.TotalAmount.Sub(total)
	p.Touch()
}

// RecordInvoiceRun marks that a generation run completed
func (p *BillingPeriod) RecordInvoiceRun() {
	if p.IsClosed() {
		return
	}
	p.InvoiceRuns++
	p.Touch()
}

