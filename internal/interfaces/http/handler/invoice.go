package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	appbilling "github.com/meterbill/backend/internal/application/billing"
	"github.com/meterbill/backend/internal/domain/billing"
)

// InvoiceHandler handles invoice endpoints
type InvoiceHandler struct {
	BaseHandler
	invoices *appbilling.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoices *appbilling.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

// GetByID godoc
// @Summary      Get invoice
// @Tags         billing-invoices
// @Produce      json
// @Param        id path string true "Invoice ID"
// @Success      200 {object} APIResponse[InvoiceResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /billing/invoices/{id} [get]
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	inv, err := h.invoices.GetInvoice(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toInvoiceResponse(inv))
}

// List godoc
// @Summary      List invoices
// @Tags         billing-invoices
// @Produce      json
// @Param        customer_id query string false "Customer ID"
// @Param        period_id query string false "Period ID"
// @Param        meter_id query string false "Meter ID"
// @Param        status query string false "Status"
// @Success      200 {object} APIResponse[[]InvoiceResponse]
// @Router       /billing/invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	var req ListInvoicesRequest
	if !h.bindQuery(c, &req) {
		return
	}

	filter := billing.InvoiceFilter{Filter: toFilter(req.ListRequest)}
	filter.CustomerID, _ = parseOptionalUUID(req.CustomerID)
	filter.PeriodID, _ = parseOptionalUUID(req.PeriodID)
	filter.MeterID, _ = parseOptionalUUID(req.MeterID)
	if req.Status != "" {
		status := billing.InvoiceStatus(req.Status)
		filter.Status = &status
	}

	invoices, total, err := h.invoices.ListInvoices(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, mapSlice(invoices, toInvoiceResponse), total, filter.Page, filter.PageSize)
}

// Cancel godoc
// @Summary      Cancel invoice
// @Description  Cancels an invoice with no payments and reverses its charge on the meter and account
// @Tags         billing-invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID"
// @Param        request body CancelInvoiceRequest true "Reason"
// @Success      200 {object} APIResponse[InvoiceResponse]
// @Failure      422 {object} ErrorResponse
// @Router       /billing/invoices/{id}/cancel [post]
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req CancelInvoiceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	inv, err := h.invoices.CancelInvoice(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toInvoiceResponse(inv))
}

// DownloadPDF godoc
// @Summary      Download invoice PDF
// @Tags         billing-invoices
// @Produce      application/pdf
// @Param        id path string true "Invoice ID"
// @Success      200 {file} binary
// @Failure      404 {object} ErrorResponse
// @Router       /billing/invoices/{id}/pdf [get]
func (h *InvoiceHandler) DownloadPDF(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	// Nothing reaches the client until rendering succeeds
	var buf bytes.Buffer
	if err := h.invoices.RenderInvoicePDF(c.Request.Context(), id, &buf); err != nil {
		h.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="invoice-%s.pdf"`, id))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
