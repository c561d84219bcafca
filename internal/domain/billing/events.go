package billing

import (
	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type names
const (
	AggregateTypePeriod  = "BillingPeriod"
	AggregateTypeInvoice = "Invoice"
	AggregateTypePayment = "Payment"
	AggregateTypeWallet  = "Wallet"
	AggregateTypeReading = "MeterReading"
)

// Event types
const (
	EventTypePeriodCreated      = "billing.period.created"
	EventTypePeriodTransitioned = "billing.period.transitioned"
	EventTypeReadingSubmitted   = "billing.reading.submitted"
	EventTypeReadingApproved    = "billing.reading.approved"
	EventTypeReadingRejected    = "billing.reading.rejected"
	EventTypeInvoiceGenerated   = "billing.invoice.generated"
	EventTypeInvoiceCancelled   = "billing.invoice.cancelled"
	EventTypeInvoiceOverdue     = "billing.invoice.overdue"
	EventTypePaymentRecorded    = "billing.payment.recorded"
	EventTypeWalletCredited     = "billing.wallet.credited"
	EventTypeWalletDebited      = "billing.wallet.debited"
)

// PeriodCreatedEvent is raised when a billing period is created
type PeriodCreatedEvent struct {
	shared.BaseDomainEvent
	Code       string    `json:"code"`
	BusinessID uuid.UUID `json:"business_id"`
}

// NewPeriodCreatedEvent creates a PeriodCreatedEvent
func NewPeriodCreatedEvent(p *BillingPeriod) *PeriodCreatedEvent {
	return &PeriodCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePeriodCreated, AggregateTypePeriod, p.ID),
		Code:            p.Code,
		BusinessID:      p.BusinessID,
	}
}

// PeriodTransitionedEvent is raised when a period changes status
type PeriodTransitionedEvent struct {
	shared.BaseDomainEvent
	Code string       `json:"code"`
	From PeriodStatus `json:"from"`
	To   PeriodStatus `json:"to"`
}

// NewPeriodTransitionedEvent creates a PeriodTransitionedEvent
func NewPeriodTransitionedEvent(p *BillingPeriod, from PeriodStatus) *PeriodTransitionedEvent {
	return &PeriodTransitionedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePeriodTransitioned, AggregateTypePeriod, p.ID),
		Code:            p.Code,
		From:            from,
		To:              p.Status,
	}
}

// ReadingEvent covers submit, approve and reject of a meter reading
type ReadingEvent struct {
	shared.BaseDomainEvent
	MeterID     uuid.UUID       `json:"meter_id"`
	PeriodID    uuid.UUID       `json:"period_id"`
	Status      ReadingStatus   `json:"status"`
	Consumption decimal.Decimal `json:"consumption"`
}

func newReadingEvent(eventType string, r *MeterReading) *ReadingEvent {
	return &ReadingEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeReading, r.ID),
		MeterID:         r.MeterID,
		PeriodID:        r.PeriodID,
		Status:          r.Status,
		Consumption:     r.Consumption,
	}
}

// InvoiceGeneratedEvent is raised for every newly created invoice
type InvoiceGeneratedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	PeriodID      uuid.UUID       `json:"period_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// NewInvoiceGeneratedEvent creates an InvoiceGeneratedEvent
func NewInvoiceGeneratedEvent(inv *Invoice) *InvoiceGeneratedEvent {
	return &InvoiceGeneratedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceGenerated, AggregateTypeInvoice, inv.ID),
		InvoiceNumber:   inv.InvoiceNumber,
		CustomerID:      inv.CustomerID,
		PeriodID:        inv.PeriodID,
		TotalAmount:     inv.TotalAmount,
	}
}

// InvoiceStatusEvent is raised on cancellation and when an invoice turns overdue
type InvoiceStatusEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	Status        InvoiceStatus   `json:"status"`
	BalanceDue    decimal.Decimal `json:"balance_due"`
	Reason        string          `json:"reason,omitempty"`
}

func newInvoiceStatusEvent(eventType string, inv *Invoice, reason string) *InvoiceStatusEvent {
	return &InvoiceStatusEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeInvoice, inv.ID),
		InvoiceNumber:   inv.InvoiceNumber,
		Status:          inv.Status,
		BalanceDue:      inv.BalanceDue,
		Reason:          reason,
	}
}

// PaymentRecordedEvent is raised once a payment has been allocated
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	ReceiptNumber   string          `json:"receipt_number"`
	CustomerID      uuid.UUID       `json:"customer_id"`
	Amount          decimal.Decimal `json:"amount"`
	AllocatedAmount decimal.Decimal `json:"allocated_amount"`
	WalletAmount    decimal.Decimal `json:"wallet_amount"`
}

// NewPaymentRecordedEvent creates a PaymentRecordedEvent
func NewPaymentRecordedEvent(p *Payment) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRecorded, AggregateTypePayment, p.ID),
		ReceiptNumber:   p.ReceiptNumber,
		CustomerID:      p.CustomerID,
		Amount:          p.Amount,
		AllocatedAmount: p.AllocatedAmount,
		WalletAmount:    p.WalletAmount,
	}
}

// WalletMovementEvent is raised for every ledger entry
type WalletMovementEvent struct {
	shared.BaseDomainEvent
	CustomerID    uuid.UUID             `json:"customer_id"`
	TxType        WalletTransactionType `json:"tx_type"`
	Amount        decimal.Decimal       `json:"amount"`
	BalanceAfter  decimal.Decimal       `json:"balance_after"`
	TransactionID uuid.UUID             `json:"transaction_id"`
}

func newWalletMovementEvent(w *Wallet, tx *WalletTransaction) *WalletMovementEvent {
	eventType := EventTypeWalletCredited
	if tx.Amount.IsNegative() {
		eventType = EventTypeWalletDebited
	}
	return &WalletMovementEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeWallet, w.ID),
		CustomerID:      w.CustomerID,
		TxType:          tx.Type,
		Amount:          tx.Amount,
		BalanceAfter:    tx.BalanceAfter,
		TransactionID:   tx.ID,
	}
}
