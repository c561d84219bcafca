package handler

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appbilling "github.com/meterbill/backend/internal/application/billing"
	"github.com/meterbill/backend/internal/domain/billing"
	"github.com/meterbill/backend/internal/interfaces/http/dto"
)

// IdempotencyKeyHeader carries the client's deduplication key for payments
const IdempotencyKeyHeader = "Idempotency-Key"

// PaymentHandler handles payment endpoints
type PaymentHandler struct {
	BaseHandler
	payments *appbilling.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(payments *appbilling.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// Record godoc
// @Summary      Record payment
// @Description  Allocates a payment to one invoice or to open invoices oldest first.
// @Description  Any remainder is credited to the customer's wallet.
// @Description  Retrying with the same Idempotency-Key returns the original payment with 200.
// @Tags         billing-payments
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Idempotency key"
// @Param        request body RecordPaymentRequest true "Payment"
// @Success      201 {object} APIResponse[PaymentResponse]
// @Success      200 {object} APIResponse[PaymentResponse] "Replayed"
// @Failure      422 {object} ErrorResponse
// @Router       /billing/payments [post]
func (h *PaymentHandler) Record(c *gin.Context) {
	var req RecordPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	paymentDate, err := parseOptionalTime(req.PaymentDate, time.Now().UTC())
	if err != nil {
		h.invalidField(c, "payment_date", err)
		return
	}
	invoiceID, _ := parseOptionalUUID(req.InvoiceID)

	key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	if key == "" {
		key = req.IdempotencyKey
	}

	result, err := h.payments.RecordPayment(c.Request.Context(), appbilling.RecordPaymentInput{
		CustomerID:      uuid.MustParse(req.CustomerID),
		Amount:          req.Amount,
		Method:          billing.PaymentMethod(req.Method),
		PaymentDate:     paymentDate,
		InvoiceID:       invoiceID,
		ReferenceNumber: req.ReferenceNumber,
		IdempotencyKey:  key,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := toPaymentResponse(result.Payment)
	resp.Replayed = result.Replayed
	if result.WalletTransaction != nil {
		tx := toWalletTransactionResponse(result.WalletTransaction)
		resp.WalletTransaction = &tx
	}
	if result.Replayed {
		h.Success(c, resp)
		return
	}
	h.Created(c, resp)
}

// GetByID godoc
// @Summary      Get payment
// @Tags         billing-payments
// @Produce      json
// @Param        id path string true "Payment ID"
// @Success      200 {object} APIResponse[PaymentResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /billing/payments/{id} [get]
func (h *PaymentHandler) GetByID(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	payment, err := h.payments.GetPayment(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toPaymentResponse(payment))
}

// ListByCustomer godoc
// @Summary      List customer payments
// @Tags         billing-payments
// @Produce      json
// @Param        customerId path string true "Customer ID"
// @Success      200 {object} APIResponse[[]PaymentResponse]
// @Router       /billing/customers/{customerId}/payments [get]
func (h *PaymentHandler) ListByCustomer(c *gin.Context) {
	customerID, ok := h.uuidParam(c, "customerId")
	if !ok {
		return
	}
	var req dto.ListRequest
	if !h.bindQuery(c, &req) {
		return
	}

	filter := toFilter(req)
	payments, total, err := h.payments.ListPayments(c.Request.Context(), customerID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, mapSlice(payments, toPaymentResponse), total, filter.Page, filter.PageSize)
}
