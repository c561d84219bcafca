package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PaymentMethod is how the customer paid
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodOnline       PaymentMethod = "online"
	PaymentMethodWallet       PaymentMethod = "wallet"
	PaymentMethodCheque       PaymentMethod = "cheque"
)

// IsValid checks if the method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCard,
		PaymentMethodOnline, PaymentMethodWallet, PaymentMethodCheque:
		return true
	}
	return false
}

// PaymentStatus is the processing status of a payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
	PaymentStatusRejected  PaymentStatus = "rejected"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// IsValid checks if the status is valid
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusConfirmed, PaymentStatusRejected, PaymentStatusCancelled:
		return true
	}
	return false
}

// PaymentAllocation is the part of a payment applied to one invoice
type PaymentAllocation struct {
	InvoiceID uuid.UUID       `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// ReceiptNumber formats a receipt number as RCP-YYYYMMDD-XXXXXX
func ReceiptNumber(date time.Time, id uuid.UUID) string {
	suffix := strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))[:6]
	return fmt.Sprintf("RCP-%s-%s", date.Format("20060102"), suffix)
}

// Payment is money received from a customer
type Payment struct {
	shared.BaseAggregateRoot
	ReceiptNumber   string
	CustomerID      uuid.UUID
	AccountID       *uuid.UUID
	InvoiceID       *uuid.UUID
	Amount          decimal.Decimal
	AllocatedAmount decimal.Decimal
	WalletAmount    decimal.Decimal
	Method          PaymentMethod
	PaymentDate     time.Time
	ReferenceNumber string
	IdempotencyKey  *string
	Status          PaymentStatus
	Allocations     []PaymentAllocation
}

// NewPayment creates a pending payment
func NewPayment(customerID uuid.UUID, amount decimal.Decimal, method PaymentMethod, paymentDate time.Time, invoiceID *uuid.UUID, referenceNumber, idempotencyKey string) (*Payment, error) {
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Customer ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invalid payment method")
	}
	if paymentDate.IsZero() {
		paymentDate = time.Now()
	}

	p := &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CustomerID:        customerID,
		InvoiceID:         invoiceID,
		Amount:            RoundMoney(amount),
		AllocatedAmount:   decimal.Zero,
		WalletAmount:      decimal.Zero,
		Method:            method,
		PaymentDate:       paymentDate,
		ReferenceNumber:   strings.TrimSpace(referenceNumber),
		Status:            PaymentStatusPending,
	}
	p.ReceiptNumber = ReceiptNumber(paymentDate, p.ID)
	if key := strings.TrimSpace(idempotencyKey); key != "" {
		p.IdempotencyKey = &key
	}
	return p, nil
}

// IsTargeted reports whether the payment names a specific invoice
func (p *Payment) IsTargeted() bool {
	return p.InvoiceID != nil && *p.InvoiceID != uuid.Nil
}

// Confirm records the allocation outcome
func (p *Payment) Confirm(plan AllocationPlan, accountID *uuid.UUID) error {
	if p.Status != PaymentStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Only pending payments can be confirmed")
	}
	if !plan.Allocated.Add(plan.Remainder).Equal(p.Amount) {
		return shared.NewDomainError("INVALID_STATE", "Allocation does not add up to the payment amount")
	}
	p.Allocations = plan.Allocations
	p.AllocatedAmount = plan.Allocated
	p.WalletAmount = plan.Remainder
	p.AccountID = accountID
	p.Status = PaymentStatusConfirmed
	p.Touch()
	p.AddDomainEvent(NewPaymentRecordedEvent(p))
	return nil
}
