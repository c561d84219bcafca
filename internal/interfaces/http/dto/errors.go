package dto

import (
	"net/http"
	"strings"
)

// API error codes. Each domain error code CODE is exposed as ERR_CODE.
const (
	ErrCodeInternal         = "ERR_INTERNAL"
	ErrCodeBadRequest       = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput     = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON      = "ERR_INVALID_JSON"
	ErrCodeValidation       = "ERR_VALIDATION"
	ErrCodeValidationFormat = "ERR_VALIDATION_FORMAT"

	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENT_MODIFICATION"
	ErrCodeDuplicateReading    = "ERR_DUPLICATE_READING"
	ErrCodeDuplicateInvoice    = "ERR_DUPLICATE_INVOICE"

	ErrCodeInvalidState          = "ERR_INVALID_STATE"
	ErrCodeInvalidTransition     = "ERR_INVALID_TRANSITION"
	ErrCodeInsufficientBalance   = "ERR_INSUFFICIENT_BALANCE"
	ErrCodeNonMonotonicReading   = "ERR_NON_MONOTONIC_READING"
	ErrCodeOutlierReading        = "ERR_OUTLIER_READING"
	ErrCodeOverpaymentRejected   = "ERR_OVERPAYMENT_REJECTED"
	ErrCodeRuleNotFound          = "ERR_RULE_NOT_FOUND"
	ErrCodeInsufficientReadings  = "ERR_INSUFFICIENT_READINGS"
	ErrCodeInvoicesNotGenerated  = "ERR_INVOICES_NOT_GENERATED"
	ErrCodeInvalidAmount         = "ERR_INVALID_AMOUNT"
	ErrCodePeriodNotBillable     = "ERR_PERIOD_NOT_BILLABLE"
	ErrCodeReadingNotInvoiceable = "ERR_READING_NOT_INVOICEABLE"

	// ErrCodeLedgerIntegrity means a wallet balance disagrees with its
	// ledger. It is reported as a server fault.
	ErrCodeLedgerIntegrity = "ERR_LEDGER_INTEGRITY_VIOLATION"
)

const apiCodePrefix = "ERR_"

var statusByGroup = []struct {
	status int
	codes  []string
}{
	{http.StatusBadRequest, []string{
		ErrCodeBadRequest, ErrCodeInvalidInput, ErrCodeInvalidJSON,
		ErrCodeValidation, ErrCodeValidationFormat,
	}},
	{http.StatusNotFound, []string{ErrCodeNotFound}},
	{http.StatusConflict, []string{
		ErrCodeAlreadyExists, ErrCodeConcurrencyConflict,
		ErrCodeDuplicateReading, ErrCodeDuplicateInvoice,
	}},
	{http.StatusUnprocessableEntity, []string{
		ErrCodeInvalidState, ErrCodeInvalidTransition, ErrCodeInsufficientBalance,
		ErrCodeNonMonotonicReading, ErrCodeOutlierReading, ErrCodeOverpaymentRejected,
		ErrCodeRuleNotFound, ErrCodeInsufficientReadings, ErrCodeInvoicesNotGenerated,
		ErrCodeInvalidAmount, ErrCodePeriodNotBillable, ErrCodeReadingNotInvoiceable,
	}},
	{http.StatusInternalServerError, []string{ErrCodeInternal, ErrCodeLedgerIntegrity}},
}

var httpStatus = func() map[string]int {
	m := make(map[string]int)
	for _, g := range statusByGroup {
		for _, code := range g.codes {
			m[code] = g.status
		}
	}
	return m
}()

// domain codes whose API code is not simply ERR_ + code
var codeAliases = map[string]string{
	"VALIDATION_ERROR": ErrCodeValidation,
	"INTERNAL_ERROR":   ErrCodeInternal,
}

// GetHTTPStatus returns the status for an API error code, 500 when unknown
func GetHTTPStatus(code string) int {
	if status, ok := httpStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// NormalizeErrorCode turns a domain error code into its API code. API codes
// and codes with no API counterpart are returned unchanged.
func NormalizeErrorCode(code string) string {
	if strings.HasPrefix(code, apiCodePrefix) {
		return code
	}
	if alias, ok := codeAliases[code]; ok {
		return alias
	}
	if _, ok := httpStatus[apiCodePrefix+code]; ok {
		return apiCodePrefix + code
	}
	return code
}
