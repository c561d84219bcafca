package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appbilling "github.com/meterbill/backend/internal/application/billing"
	"github.com/meterbill/backend/internal/infrastructure/lock"
	"github.com/meterbill/backend/internal/infrastructure/persistence"
	"github.com/meterbill/backend/internal/infrastructure/persistence/persistencetest"
	"github.com/meterbill/backend/internal/infrastructure/printing"
	"github.com/meterbill/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// clock advances one second per call so ledger entries keep their order
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type server struct {
	engine   *gin.Engine
	business uuid.UUID
	customer uuid.UUID
}

func newServer(t *testing.T) *server {
	t.Helper()

	scope := persistence.NewGormTransactionScope(persistencetest.NewSQLiteDB(t))
	clk := &clock{now: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)}
	opts := []appbilling.Option{
		appbilling.WithLocker(lock.NewMemoryLocker(5 * time.Second)),
		appbilling.WithClock(clk.Now),
	}
	cfg := appbilling.DefaultConfig()
	cfg.VATRate = decimal.RequireFromString("0.15")

	invoices := appbilling.NewInvoiceService(scope, cfg, printing.NewInvoicePDF(printing.InvoicePDFConfig{}), opts...)
	periods := NewPeriodHandler(appbilling.NewPeriodService(scope, cfg, opts...), invoices)
	readings := NewReadingHandler(appbilling.NewReadingService(scope, cfg, opts...))
	invoiceH := NewInvoiceHandler(invoices)
	payments := NewPaymentHandler(appbilling.NewPaymentService(scope, cfg, opts...))
	wallets := NewWalletHandler(appbilling.NewWalletService(scope, cfg, opts...))
	overdue := NewOverdueHandler(appbilling.NewOverdueService(scope, cfg, printing.NewOverdueXLSX(), opts...))
	pricing := NewPricingHandler(appbilling.NewPricingService(scope, cfg, opts...))
	master := NewMasterDataHandler(appbilling.NewMasterDataService(scope, cfg, opts...))

	engine := gin.New()
	g := engine.Group("/api/v1/billing")
	g.POST("/periods", periods.Create)
	g.GET("/periods", periods.List)
	g.GET("/periods/:id", periods.GetByID)
	g.PUT("/periods/:id", periods.Reschedule)
	g.DELETE("/periods/:id", periods.Delete)
	g.POST("/periods/:id/transition", periods.Transition)
	g.POST("/periods/:id/invoices/generate", periods.GenerateInvoices)
	g.POST("/readings", readings.Submit)
	g.GET("/readings", readings.List)
	g.GET("/readings/:id", readings.GetByID)
	g.POST("/readings/:id/approve", readings.Approve)
	g.POST("/readings/:id/reject", readings.Reject)
	g.GET("/invoices", invoiceH.List)
	g.GET("/invoices/:id", invoiceH.GetByID)
	g.GET("/invoices/:id/pdf", invoiceH.DownloadPDF)
	g.POST("/invoices/:id/cancel", invoiceH.Cancel)
	g.POST("/payments", payments.Record)
	g.GET("/payments/:id", payments.GetByID)
	g.GET("/customers/:customerId/payments", payments.ListByCustomer)
	g.GET("/wallets/:customerId", wallets.Get)
	g.POST("/wallets/:customerId/charge", wallets.Charge)
	g.POST("/wallets/:customerId/withdraw", wallets.Withdraw)
	g.GET("/wallets/:customerId/transactions", wallets.ListTransactions)
	g.GET("/wallets/:customerId/reconcile", wallets.Reconcile)
	g.GET("/overdue", overdue.Summary)
	g.GET("/overdue/export", overdue.Export)
	g.POST("/pricing-rules", pricing.Create)
	g.GET("/pricing-rules", pricing.List)
	g.GET("/pricing-rules/resolve", pricing.Resolve)
	g.POST("/pricing-rules/:id/deactivate", pricing.Deactivate)
	g.POST("/accounts", master.CreateAccount)
	g.GET("/accounts/:id", master.GetAccount)
	g.POST("/meters", master.CreateMeter)
	g.GET("/meters/:id", master.GetMeter)

	return &server{engine: engine, business: uuid.New(), customer: uuid.New()}
}

type result struct {
	Code int
	Body []byte
	Resp envelope
}

// envelope mirrors dto.Response with raw data for typed decoding
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

func (s *server) do(t *testing.T, method, path string, body any, headers ...string) result {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequestWithContext(context.Background(), method, "/api/v1/billing"+path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	res := result{Code: w.Code, Body: w.Body.Bytes()}
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(res.Body, &res.Resp), string(res.Body))
	}
	return res
}

func (r result) decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Resp.Data, v), string(r.Body))
}

func (r result) errCode() string {
	if r.Resp.Error == nil {
		return ""
	}
	return r.Resp.Error.Code
}

type fixture struct {
	accountID uuid.UUID
	meterID   uuid.UUID
	periodID  uuid.UUID
	readingID uuid.UUID
	invoiceID uuid.UUID
}

func (s *server) mustStatus(t *testing.T, res result, code int) {
	t.Helper()
	require.Equal(t, code, res.Code, string(res.Body))
}

// setupMeter registers an account, a meter reading 100 and a flat tariff
func (s *server) setupMeter(t *testing.T) fixture {
	t.Helper()
	var f fixture

	res := s.do(t, http.MethodPost, "/accounts", map[string]any{
		"customer_id":    s.customer,
		"account_number": "ACC-0001",
	})
	s.mustStatus(t, res, http.StatusCreated)
	var account AccountResponse
	res.decode(t, &account)
	f.accountID = account.ID

	res = s.do(t, http.MethodPost, "/meters", map[string]any{
		"account_id":      f.accountID,
		"business_id":     s.business,
		"meter_number":    "M-0001",
		"meter_type":      "traditional",
		"usage_type":      "residential",
		"initial_reading": "100",
	})
	s.mustStatus(t, res, http.StatusCreated)
	var meter MeterResponse
	res.decode(t, &meter)
	f.meterID = meter.ID

	res = s.do(t, http.MethodPost, "/pricing-rules", map[string]any{
		"business_id":      s.business,
		"meter_type":       "traditional",
		"usage_type":       "residential",
		"subscription_fee": "10",
		"rate":             "0.5",
	})
	s.mustStatus(t, res, http.StatusCreated)
	return f
}

// openReadingPhase creates January 2026 and moves it to the reading phase
func (s *server) openReadingPhase(t *testing.T, f *fixture) {
	t.Helper()

	res := s.do(t, http.MethodPost, "/periods", map[string]any{
		"business_id": s.business,
		"code":        "2026-01",
		"name":        "January 2026",
		"start_date":  "2026-01-01",
		"end_date":    "2026-01-31",
		"due_date":    "2026-02-15",
	})
	s.mustStatus(t, res, http.StatusCreated)
	var period PeriodResponse
	res.decode(t, &period)
	f.periodID = period.ID

	for _, status := range []string{"active", "reading_phase"} {
		res = s.transition(t, f.periodID, status)
		s.mustStatus(t, res, http.StatusOK)
	}
}

func (s *server) transition(t *testing.T, periodID uuid.UUID, status string) result {
	return s.do(t, http.MethodPost, "/periods/"+periodID.String()+"/transition", map[string]any{"status": status})
}

// billedFixture runs a meter through one billed period: 200 units consumed,
// one invoice of 125.00
func (s *server) billedFixture(t *testing.T) fixture {
	t.Helper()
	f := s.setupMeter(t)
	s.openReadingPhase(t, &f)

	res := s.do(t, http.MethodPost, "/readings", map[string]any{
		"period_id":       f.periodID,
		"meter_id":        f.meterID,
		"current_reading": "300",
	})
	s.mustStatus(t, res, http.StatusCreated)
	var reading ReadingResponse
	res.decode(t, &reading)
	f.readingID = reading.ID

	res = s.do(t, http.MethodPost, "/readings/"+f.readingID.String()+"/approve", nil)
	s.mustStatus(t, res, http.StatusOK)

	s.mustStatus(t, s.transition(t, f.periodID, "billing_phase"), http.StatusOK)

	res = s.do(t, http.MethodPost, "/periods/"+f.periodID.String()+"/invoices/generate", nil)
	s.mustStatus(t, res, http.StatusOK)
	var gen appbilling.GenerateInvoicesResult
	res.decode(t, &gen)
	require.Len(t, gen.InvoiceIDs, 1)
	f.invoiceID = gen.InvoiceIDs[0]
	return f
}
