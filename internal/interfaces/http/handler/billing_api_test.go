package handler

import (
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	appbilling "github.com/meterbill/backend/internal/application/billing"
	"github.com/meterbill/backend/internal/domain/billing"
	"github.com/meterbill/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestBillingAPI_InvoiceCycle(t *testing.T) {
	s := newServer(t)
	f := s.billedFixture(t)

	res := s.do(t, http.MethodGet, "/invoices/"+f.invoiceID.String(), nil)
	s.mustStatus(t, res, http.StatusOK)
	var inv InvoiceResponse
	res.decode(t, &inv)
	assert.Equal(t, "generated", inv.Status)
	assertDecimal(t, "200", inv.Consumption)
	assertDecimal(t, "125", inv.TotalAmount)
	assertDecimal(t, "125", inv.BalanceDue)
	assert.Equal(t, f.readingID, inv.ReadingID)

	// a second run skips the meter that already has an invoice
	res = s.do(t, http.MethodPost, "/periods/"+f.periodID.String()+"/invoices/generate", nil)
	s.mustStatus(t, res, http.StatusOK)
	var again appbilling.GenerateInvoicesResult
	res.decode(t, &again)
	assert.Zero(t, again.Created)
	assert.Equal(t, 1, again.Skipped)

	res = s.do(t, http.MethodGet, "/invoices?period_id="+f.periodID.String(), nil)
	s.mustStatus(t, res, http.StatusOK)
	require.NotNil(t, res.Resp.Meta)
	assert.Equal(t, int64(1), res.Resp.Meta.Total)

	res = s.do(t, http.MethodGet, "/periods/"+f.periodID.String(), nil)
	s.mustStatus(t, res, http.StatusOK)
	var period PeriodResponse
	res.decode(t, &period)
	assert.Equal(t, "billing_phase", period.Status)
	assert.Equal(t, 1, period.InvoiceCount)
	assert.Equal(t, 2, period.InvoiceRuns)
	assertDecimal(t, "125", period.TotalAmount)

	s.mustStatus(t, s.transition(t, f.periodID, "closed"), http.StatusOK)
}

func TestBillingAPI_InvoicePDF(t *testing.T) {
	s := newServer(t)
	f := s.billedFixture(t)

	res := s.do(t, http.MethodGet, "/invoices/"+f.invoiceID.String()+"/pdf", nil)
	s.mustStatus(t, res, http.StatusOK)
	assert.True(t, strings.HasPrefix(string(res.Body), "%PDF-"))

	res = s.do(t, http.MethodGet, "/invoices/"+uuid.NewString()+"/pdf", nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, dto.ErrCodeNotFound, res.errCode())
}

func TestBillingAPI_PaymentAndWallet(t *testing.T) {
	s := newServer(t)
	f := s.billedFixture(t)

	body := map[string]any{
		"customer_id": s.customer,
		"amount":      "145.00",
		"method":      "cash",
	}
	res := s.do(t, http.MethodPost, "/payments", body, IdempotencyKeyHeader, "pay-0001")
	s.mustStatus(t, res, http.StatusCreated)
	var payment PaymentResponse
	res.decode(t, &payment)
	assertDecimal(t, "125", payment.AllocatedAmount)
	assertDecimal(t, "20", payment.WalletAmount)
	require.NotNil(t, payment.WalletTransaction)
	assert.Equal(t, "deposit", payment.WalletTransaction.Type)
	require.Len(t, payment.Allocations, 1)
	assert.Equal(t, f.invoiceID, payment.Allocations[0].InvoiceID)
	assert.False(t, payment.Replayed)

	// same key: the original payment comes back and nothing is applied twice
	res = s.do(t, http.MethodPost, "/payments", body, IdempotencyKeyHeader, "pay-0001")
	s.mustStatus(t, res, http.StatusOK)
	var replay PaymentResponse
	res.decode(t, &replay)
	assert.True(t, replay.Replayed)
	assert.Equal(t, payment.ID, replay.ID)

	res = s.do(t, http.MethodGet, "/invoices/"+f.invoiceID.String(), nil)
	var inv InvoiceResponse
	res.decode(t, &inv)
	assert.Equal(t, "paid", inv.Status)
	assert.True(t, inv.BalanceDue.IsZero())

	customer := s.customer.String()
	res = s.do(t, http.MethodGet, "/wallets/"+customer, nil)
	s.mustStatus(t, res, http.StatusOK)
	var wallet WalletResponse
	res.decode(t, &wallet)
	assertDecimal(t, "20", wallet.Balance)
	assert.Equal(t, billing.DefaultCurrency, wallet.Currency)

	operator := uuid.New()
	res = s.do(t, http.MethodPost, "/wallets/"+customer+"/withdraw",
		map[string]any{"amount": "5", "meter_id": f.meterID}, ActorHeader, operator.String())
	s.mustStatus(t, res, http.StatusOK)
	var moved WalletMovementResponse
	res.decode(t, &moved)
	assertDecimal(t, "15", moved.Wallet.Balance)
	assertDecimal(t, "20", moved.Transaction.BalanceBefore)
	assertDecimal(t, "15", moved.Transaction.BalanceAfter)
	require.NotNil(t, moved.Transaction.CreatedBy)
	assert.Equal(t, operator, *moved.Transaction.CreatedBy)

	res = s.do(t, http.MethodPost, "/wallets/"+customer+"/withdraw", map[string]any{"amount": "100"})
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)
	assert.Equal(t, dto.ErrCodeInsufficientBalance, res.errCode())

	res = s.do(t, http.MethodPost, "/wallets/"+customer+"/charge", map[string]any{"amount": "30", "description": "top up"})
	s.mustStatus(t, res, http.StatusOK)
	res.decode(t, &moved)
	assertDecimal(t, "45", moved.Wallet.Balance)

	res = s.do(t, http.MethodGet, "/wallets/"+customer+"/transactions", nil)
	s.mustStatus(t, res, http.StatusOK)
	assert.Equal(t, int64(3), res.Resp.Meta.Total)

	res = s.do(t, http.MethodGet, "/wallets/"+customer+"/reconcile", nil)
	s.mustStatus(t, res, http.StatusOK)
	var rec ReconciliationResponse
	res.decode(t, &rec)
	assert.True(t, rec.Consistent)
	assertDecimal(t, "45", rec.LedgerBalance)
	assert.Equal(t, 3, rec.TransactionCount)

	res = s.do(t, http.MethodGet, "/customers/"+customer+"/payments", nil)
	s.mustStatus(t, res, http.StatusOK)
	assert.Equal(t, int64(1), res.Resp.Meta.Total)

	// a paid invoice keeps its history
	res = s.do(t, http.MethodPost, "/invoices/"+f.invoiceID.String()+"/cancel", map[string]any{"reason": "duplicate"})
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)
	assert.Equal(t, dto.ErrCodeInvalidState, res.errCode())
}

func TestBillingAPI_PaymentIdempotencyKeyFromBody(t *testing.T) {
	s := newServer(t)
	s.billedFixture(t)

	body := map[string]any{
		"customer_id":     s.customer,
		"amount":          "25",
		"method":          "card",
		"payment_date":    "2026-02-03",
		"idempotency_key": "body-key",
	}
	first := s.do(t, http.MethodPost, "/payments", body)
	s.mustStatus(t, first, http.StatusCreated)
	second := s.do(t, http.MethodPost, "/payments", body)
	s.mustStatus(t, second, http.StatusOK)

	var a, b PaymentResponse
	first.decode(t, &a)
	second.decode(t, &b)
	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, "2026-02-03", a.PaymentDate.Format(dateLayout))
}

func TestBillingAPI_CancelInvoice(t *testing.T) {
	s := newServer(t)
	f := s.billedFixture(t)

	res := s.do(t, http.MethodPost, "/invoices/"+f.invoiceID.String()+"/cancel", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, dto.ErrCodeValidation, res.errCode())

	res = s.do(t, http.MethodPost, "/invoices/"+f.invoiceID.String()+"/cancel", map[string]any{"reason": "meter swapped"})
	s.mustStatus(t, res, http.StatusOK)
	var inv InvoiceResponse
	res.decode(t, &inv)
	assert.Equal(t, "cancelled", inv.Status)
	assert.Equal(t, "meter swapped", inv.CancelReason)
	assert.True(t, inv.BalanceDue.IsZero())

	res = s.do(t, http.MethodGet, "/meters/"+f.meterID.String(), nil)
	var meter MeterResponse
	res.decode(t, &meter)
	assert.True(t, meter.BalanceDue.IsZero(), meter.BalanceDue.String())
}

func TestBillingAPI_Overdue(t *testing.T) {
	s := newServer(t)
	f := s.billedFixture(t)

	res := s.do(t, http.MethodGet, "/overdue?as_of=2026-03-01", nil)
	s.mustStatus(t, res, http.StatusOK)
	var summary billing.OverdueSummary
	res.decode(t, &summary)
	require.Len(t, summary.Invoices, 1)
	assert.Equal(t, f.invoiceID, summary.Invoices[0].InvoiceID)
	assert.Equal(t, 14, summary.Invoices[0].DaysOverdue)
	assert.Equal(t, billing.Bucket0To30, summary.Invoices[0].Bucket)
	assertDecimal(t, "125", summary.Stats.TotalOverdue)

	res = s.do(t, http.MethodGet, "/overdue?as_of=2026-03-01&days_range=31-60", nil)
	s.mustStatus(t, res, http.StatusOK)
	res.decode(t, &summary)
	assert.Empty(t, summary.Invoices)

	res = s.do(t, http.MethodGet, "/overdue?days_range=120%2B", nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = s.do(t, http.MethodGet, "/overdue/export?as_of=2026-03-01", nil)
	s.mustStatus(t, res, http.StatusOK)
	// xlsx is a zip container
	assert.True(t, strings.HasPrefix(string(res.Body), "PK"))
}

func TestBillingAPI_Readings(t *testing.T) {
	s := newServer(t)
	f := s.setupMeter(t)
	s.openReadingPhase(t, &f)
	period := f.periodID.String()

	// below the meter's current value
	res := s.do(t, http.MethodPost, "/readings", map[string]any{
		"period_id":       f.periodID,
		"meter_id":        f.meterID,
		"current_reading": "50",
		"reading_date":    "2026-01-31",
	})
	s.mustStatus(t, res, http.StatusCreated)
	var reading ReadingResponse
	res.decode(t, &reading)
	assert.Equal(t, "anomaly", reading.Status)
	assert.Equal(t, "non_monotonic", reading.AnomalyKind)

	res = s.do(t, http.MethodPost, "/readings", map[string]any{
		"period_id":       f.periodID,
		"meter_id":        f.meterID,
		"current_reading": "150",
	})
	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Equal(t, dto.ErrCodeDuplicateReading, res.errCode())

	res = s.do(t, http.MethodPost, "/readings/"+reading.ID.String()+"/approve", map[string]any{"override": false})
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)
	assert.Equal(t, dto.ErrCodeNonMonotonicReading, res.errCode())

	res = s.do(t, http.MethodPost, "/readings/"+reading.ID.String()+"/reject", map[string]any{"reason": "misread dial"})
	s.mustStatus(t, res, http.StatusOK)
	res.decode(t, &reading)
	assert.Equal(t, "rejected", reading.Status)

	// rejection frees the meter for a new reading
	res = s.do(t, http.MethodPost, "/readings", map[string]any{
		"period_id":       f.periodID,
		"meter_id":        f.meterID,
		"current_reading": "180.5",
		"reading_type":    "automatic",
	})
	s.mustStatus(t, res, http.StatusCreated)
	res.decode(t, &reading)
	assert.Equal(t, "confirmed", reading.Status)
	assertDecimal(t, "80.5", reading.Consumption)

	res = s.do(t, http.MethodGet, "/readings?period_id="+period+"&status=rejected", nil)
	s.mustStatus(t, res, http.StatusOK)
	assert.Equal(t, int64(1), res.Resp.Meta.Total)

	res = s.do(t, http.MethodGet, "/readings/"+reading.ID.String(), nil)
	s.mustStatus(t, res, http.StatusOK)
}

func TestBillingAPI_PeriodLifecycleErrors(t *testing.T) {
	s := newServer(t)
	f := s.setupMeter(t)
	s.openReadingPhase(t, &f)

	res := s.do(t, http.MethodPost, "/periods/"+f.periodID.String()+"/invoices/generate", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)
	assert.Equal(t, dto.ErrCodePeriodNotBillable, res.errCode())

	res = s.transition(t, f.periodID, "billing_phase")
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)
	assert.Equal(t, dto.ErrCodeInsufficientReadings, res.errCode())

	res = s.transition(t, f.periodID, "active")
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)
	assert.Equal(t, dto.ErrCodeInvalidTransition, res.errCode())

	res = s.transition(t, f.periodID, "archived")
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = s.do(t, http.MethodDelete, "/periods/"+f.periodID.String(), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)

	res = s.do(t, http.MethodGet, "/periods?status=reading_phase&business_id="+s.business.String(), nil)
	s.mustStatus(t, res, http.StatusOK)
	assert.Equal(t, int64(1), res.Resp.Meta.Total)
}

func TestBillingAPI_PendingPeriod(t *testing.T) {
	s := newServer(t)

	res := s.do(t, http.MethodPost, "/periods", map[string]any{
		"business_id": s.business,
		"code":        "2026-02",
		"start_date":  "2026-02-01",
		"end_date":    "2026-02-28",
		"due_date":    "2026-03-15",
	})
	s.mustStatus(t, res, http.StatusCreated)
	var period PeriodResponse
	res.decode(t, &period)
	assert.Equal(t, "pending", period.Status)

	res = s.do(t, http.MethodPut, "/periods/"+period.ID.String(), map[string]any{
		"start_date": "2026-02-01",
		"end_date":   "2026-02-28",
		"due_date":   "2026-03-20T00:00:00Z",
	})
	s.mustStatus(t, res, http.StatusOK)
	res.decode(t, &period)
	assert.Equal(t, "2026-03-20", period.DueDate.Format(dateLayout))

	res = s.do(t, http.MethodDelete, "/periods/"+period.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, res.Code)

	res = s.do(t, http.MethodGet, "/periods/"+period.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestBillingAPI_Pricing(t *testing.T) {
	s := newServer(t)
	business := s.business.String()

	res := s.do(t, http.MethodGet, "/pricing-rules/resolve?business_id="+business+"&meter_type=smart&usage_type=commercial", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)
	assert.Equal(t, dto.ErrCodeRuleNotFound, res.errCode())

	res = s.do(t, http.MethodPost, "/pricing-rules", map[string]any{
		"business_id":      s.business,
		"meter_type":       "smart",
		"usage_type":       "commercial",
		"subscription_fee": "25",
		"deposit_amount":   "100",
		"deposit_required": true,
		"tiers": []map[string]any{
			{"from_unit": "0", "to_unit": "100", "price_per_unit": "0.2"},
			{"from_unit": "100", "price_per_unit": "0.3"},
		},
	})
	s.mustStatus(t, res, http.StatusCreated)
	var rule PricingRuleResponse
	res.decode(t, &rule)
	require.Len(t, rule.Tiers, 2)
	assert.Nil(t, rule.Tiers[1].ToUnit)
	assert.True(t, rule.Active)

	res = s.do(t, http.MethodGet, "/pricing-rules/resolve?business_id="+business+"&meter_type=smart&usage_type=commercial", nil)
	s.mustStatus(t, res, http.StatusOK)
	var resolved PricingRuleResponse
	res.decode(t, &resolved)
	assert.Equal(t, rule.ID, resolved.ID)
	assertDecimal(t, "100", resolved.DepositAmount)

	res = s.do(t, http.MethodGet, "/pricing-rules?active_only=true&business_id="+business, nil)
	s.mustStatus(t, res, http.StatusOK)
	assert.Equal(t, int64(1), res.Resp.Meta.Total)

	res = s.do(t, http.MethodPost, "/pricing-rules/"+rule.ID.String()+"/deactivate", nil)
	s.mustStatus(t, res, http.StatusOK)
	res.decode(t, &rule)
	assert.False(t, rule.Active)

	res = s.do(t, http.MethodPost, "/pricing-rules", map[string]any{
		"business_id": s.business,
		"meter_type":  "smart",
		"usage_type":  "commercial",
		"rate":        "-1",
	})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, dto.ErrCodeValidation, res.errCode())
}

func TestBillingAPI_RequestErrors(t *testing.T) {
	s := newServer(t)

	tests := []struct {
		name     string
		method   string
		path     string
		body     any
		wantCode int
		wantErr  string
	}{
		{"malformed id", http.MethodGet, "/invoices/42", nil, http.StatusBadRequest, dto.ErrCodeValidationFormat},
		{"unknown invoice", http.MethodGet, "/invoices/" + uuid.NewString(), nil, http.StatusNotFound, dto.ErrCodeNotFound},
		{"unknown wallet", http.MethodGet, "/wallets/" + uuid.NewString(), nil, http.StatusNotFound, dto.ErrCodeNotFound},
		{"malformed json", http.MethodPost, "/payments", `{"amount":`, http.StatusBadRequest, dto.ErrCodeInvalidJSON},
		{"zero payment", http.MethodPost, "/payments", map[string]any{
			"customer_id": uuid.New(), "amount": "0", "method": "cash",
		}, http.StatusBadRequest, dto.ErrCodeValidation},
		{"unknown payment method", http.MethodPost, "/payments", map[string]any{
			"customer_id": uuid.New(), "amount": "10", "method": "barter",
		}, http.StatusBadRequest, dto.ErrCodeValidation},
		{"bad payment date", http.MethodPost, "/payments", map[string]any{
			"customer_id": uuid.New(), "amount": "10", "method": "cash", "payment_date": "03/02/2026",
		}, http.StatusBadRequest, dto.ErrCodeValidationFormat},
		{"negative wallet charge", http.MethodPost, "/wallets/" + uuid.NewString() + "/charge", map[string]any{
			"amount": "-5",
		}, http.StatusBadRequest, dto.ErrCodeValidation},
		{"bad period date", http.MethodPost, "/periods", map[string]any{
			"business_id": uuid.New(), "code": "X", "start_date": "yesterday", "end_date": "2026-01-31", "due_date": "2026-02-15",
		}, http.StatusBadRequest, dto.ErrCodeValidationFormat},
		{"meter for unknown account", http.MethodPost, "/meters", map[string]any{
			"account_id": uuid.New(), "business_id": uuid.New(), "meter_number": "M-9",
			"meter_type": "prepaid", "usage_type": "industrial", "initial_reading": "0",
		}, http.StatusNotFound, dto.ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantCode, res.Code, string(res.Body))
			assert.Equal(t, tt.wantErr, res.errCode())
			assert.False(t, res.Resp.Success)
		})
	}
}
