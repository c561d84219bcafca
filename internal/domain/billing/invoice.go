package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the payment status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusGenerated InvoiceStatus = "generated"
	InvoiceStatusPartial   InvoiceStatus = "partial"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// IsValid checks if the status is valid
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusGenerated, InvoiceStatusPartial, InvoiceStatusPaid,
		InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	}
	return false
}

// IsOpen reports whether an invoice in this status can still take payments
func (s InvoiceStatus) IsOpen() bool {
	return s == InvoiceStatusGenerated || s == InvoiceStatusPartial || s == InvoiceStatusOverdue
}

// OpenInvoiceStatuses lists the statuses that accept payments
func OpenInvoiceStatuses() []InvoiceStatus {
	return []InvoiceStatus{InvoiceStatusGenerated, InvoiceStatusPartial, InvoiceStatusOverdue}
}

// InvoiceNumber formats the invoice number for a period and meter
func InvoiceNumber(periodCode, meterNumber string) string {
	return fmt.Sprintf("INV-%s-%s", periodCode, meterNumber)
}

// Invoice is the bill for one meter in one period
type Invoice struct {
	shared.BaseAggregateRoot
	InvoiceNumber      string
	CustomerID         uuid.UUID
	AccountID          uuid.UUID
	MeterID            uuid.UUID
	ReadingID          uuid.UUID
	PeriodID           uuid.UUID
	InvoiceDate        time.Time
	DueDate            time.Time
	PeriodStart        time.Time
	PeriodEnd          time.Time
	PreviousReading    decimal.Decimal
	CurrentReading     decimal.Decimal
	Consumption        decimal.Decimal
	ConsumptionAmount  decimal.Decimal
	FixedCharges       decimal.Decimal
	VATRate            decimal.Decimal
	VATAmount          decimal.Decimal
	PreviousBalanceDue decimal.Decimal
	TotalAmount        decimal.Decimal
	PaidAmount         decimal.Decimal
	BalanceDue         decimal.Decimal
	Status             InvoiceStatus
	CancelledAt        *time.Time
	CancelReason       string
}

// IsOpen reports whether the invoice still takes payments
func (i *Invoice) IsOpen() bool {
	return i.Status.IsOpen() && i.BalanceDue.IsPositive()
}

// ApplyPayment allocates up to amount against the balance and returns the
// applied part. The caller decides what happens to any excess.
func (i *Invoice) ApplyPayment(amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	if i.Status == InvoiceStatusCancelled {
		return decimal.Zero, shared.NewDomainError("INVALID_STATE", "Cannot pay a cancelled invoice")
	}
	if i.Status == InvoiceStatusPaid || !i.BalanceDue.IsPositive() {
		return decimal.Zero, shared.NewDomainError("INVALID_STATE", "Invoice is already paid")
	}

	applied := minDecimal(amount, i.BalanceDue)
	i.PaidAmount = i.PaidAmount.Add(applied)
	i.BalanceDue = i.TotalAmount.Sub(i.PaidAmount)

	switch {
	case i.BalanceDue.IsZero():
		i.Status = InvoiceStatusPaid
	case i.Status != InvoiceStatusOverdue:
		i.Status = InvoiceStatusPartial
	}
	i.Touch()
	return applied, nil
}

// Cancel voids an unpaid invoice and returns the balance that must be
// reversed from the account and meter ledgers.
func (i *Invoice) Cancel(reason string, now time.Time) (decimal.Decimal, error) {
	if i.Status != InvoiceStatusGenerated && i.Status != InvoiceStatusOverdue {
		return decimal.Zero, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot cancel invoice in %s status", i.Status))
	}
	if i.PaidAmount.IsPositive() {
		return decimal.Zero, shared.NewDomainError("INVALID_STATE", "Cannot cancel an invoice with payments applied")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return decimal.Zero, shared.NewDomainError("INVALID_INPUT", "Cancel reason is required")
	}

	reversed := i.BalanceDue
	i.Status = InvoiceStatusCancelled
	i.BalanceDue = decimal.Zero
	i.CancelledAt = &now
	i.CancelReason = reason
	i.Touch()
	i.AddDomainEvent(newInvoiceStatusEvent(EventTypeInvoiceCancelled, i, reason))
	return reversed, nil
}

// MarkOverdue flags an unpaid invoice whose due date has passed.
// It returns false when nothing changed.
func (i *Invoice) MarkOverdue(now time.Time) bool {
	if i.Status != InvoiceStatusGenerated && i.Status != InvoiceStatusPartial {
		return false
	}
	if !i.BalanceDue.IsPositive() || !i.DueDate.Before(now) {
		return false
	}
	i.Status = InvoiceStatusOverdue
	i.Touch()
	i.AddDomainEvent(newInvoiceStatusEvent(EventTypeInvoiceOverdue, i, ""))
	return true
}
