package persistence

import (
	"strings"

	"github.com/meterbill/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// PeriodSortFields contains allowed sort fields for billing periods
var PeriodSortFields = map[string]bool{
	"created_at": true,
	"code":       true,
	"start_date": true,
	"end_date":   true,
	"due_date":   true,
	"status":     true,
}

// ReadingSortFields contains allowed sort fields for meter readings
var ReadingSortFields = map[string]bool{
	"created_at":   true,
	"reading_date": true,
	"consumption":  true,
	"status":       true,
}

// PricingRuleSortFields contains allowed sort fields for pricing rules
var PricingRuleSortFields = map[string]bool{
	"created_at": true,
	"meter_type": true,
	"usage_type": true,
	"rate":       true,
}

// InvoiceSortFields contains allowed sort fields for invoices
var InvoiceSortFields = map[string]bool{
	"created_at":     true,
	"invoice_number": true,
	"invoice_date":   true,
	"due_date":       true,
	"total_amount":   true,
	"balance_due":    true,
	"status":         true,
}

// PaymentSortFields contains allowed sort fields for payments
var PaymentSortFields = map[string]bool{
	"created_at":   true,
	"payment_date": true,
	"amount":       true,
}

// applyPage adds a whitelisted ORDER BY, OFFSET and LIMIT. id breaks ties so
// pages are stable.
func applyPage(query *gorm.DB, filter shared.Filter, allowed map[string]bool) *gorm.DB {
	field := ValidateSortField(filter.OrderBy, allowed, "created_at")
	dir := ValidateSortOrder(filter.OrderDir)
	return query.
		Order(field + " " + dir).
		Order("id " + dir).
		Offset(filter.Offset()).
		Limit(filter.Limit())
}
