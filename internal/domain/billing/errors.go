package billing

import "github.com/meterbill/backend/internal/domain/shared"

// Billing error codes
const (
	CodeInvalidTransition     = "INVALID_TRANSITION"
	CodeDuplicateInvoice      = "DUPLICATE_INVOICE"
	CodeNonMonotonicReading   = "NON_MONOTONIC_READING"
	CodeOutlierReading        = "OUTLIER_READING"
	CodeOverpaymentRejected   = "OVERPAYMENT_REJECTED"
	CodeRuleNotFound          = "RULE_NOT_FOUND"
	CodeInsufficientReadings  = "INSUFFICIENT_READINGS"
	CodeInvoicesNotGenerated  = "INVOICES_NOT_GENERATED"
	CodeDuplicateReading      = "DUPLICATE_READING"
	CodeInvalidAmount         = "INVALID_AMOUNT"
	CodePeriodNotBillable     = "PERIOD_NOT_BILLABLE"
	CodeReadingNotInvoiceable = "READING_NOT_INVOICEABLE"
)

// Billing domain errors
var (
	ErrInvalidTransition     = shared.NewDomainError(CodeInvalidTransition, "Billing period transition is not allowed")
	ErrDuplicateInvoice      = shared.NewDomainError(CodeDuplicateInvoice, "An invoice already exists for this period and meter")
	ErrNonMonotonicReading   = shared.NewDomainError(CodeNonMonotonicReading, "Current reading is lower than the previous reading")
	ErrOutlierReading        = shared.NewDomainError(CodeOutlierReading, "Consumption is far above the meter's trailing average")
	ErrOverpaymentRejected   = shared.NewDomainError(CodeOverpaymentRejected, "Payment exceeds the invoice balance due")
	ErrRuleNotFound          = shared.NewDomainError(CodeRuleNotFound, "No active pricing rule matches the meter")
	ErrInsufficientReadings  = shared.NewDomainError(CodeInsufficientReadings, "Not enough approved readings to start billing")
	ErrInvoicesNotGenerated  = shared.NewDomainError(CodeInvoicesNotGenerated, "Invoices have not been generated for this period")
	ErrDuplicateReading      = shared.NewDomainError(CodeDuplicateReading, "A reading already exists for this meter in this period")
	ErrInvalidAmount         = shared.NewDomainError(CodeInvalidAmount, "Amount must be greater than zero")
	ErrPeriodNotBillable     = shared.NewDomainError(CodePeriodNotBillable, "Invoices can only be generated during the billing phase")
	ErrReadingNotInvoiceable = shared.NewDomainError(CodeReadingNotInvoiceable, "Reading is not eligible for invoicing")
)
