package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appbilling "github.com/meterbill/backend/internal/application/billing"
	"github.com/meterbill/backend/internal/domain/billing"
)

// PeriodHandler handles billing period endpoints
type PeriodHandler struct {
	BaseHandler
	periods  *appbilling.PeriodService
	invoices *appbilling.InvoiceService
}

// NewPeriodHandler creates a new PeriodHandler
func NewPeriodHandler(periods *appbilling.PeriodService, invoices *appbilling.InvoiceService) *PeriodHandler {
	return &PeriodHandler{periods: periods, invoices: invoices}
}

// Create godoc
// @Summary      Create billing period
// @Description  Opens a pending billing period for a business
// @Tags         billing-periods
// @Accept       json
// @Produce      json
// @Param        request body CreatePeriodRequest true "Period"
// @Success      201 {object} APIResponse[PeriodResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /billing/periods [post]
func (h *PeriodHandler) Create(c *gin.Context) {
	var req CreatePeriodRequest
	if !h.bindJSON(c, &req) {
		return
	}

	start, end, due, ok := h.parsePeriodDates(c, req.StartDate, req.EndDate, req.DueDate)
	if !ok {
		return
	}

	period, err := h.periods.CreatePeriod(c.Request.Context(), appbilling.CreatePeriodInput{
		BusinessID: uuid.MustParse(req.BusinessID),
		Code:       req.Code,
		Name:       req.Name,
		StartDate:  start,
		EndDate:    end,
		DueDate:    due,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toPeriodResponse(period))
}

// Reschedule godoc
// @Summary      Reschedule billing period
// @Tags         billing-periods
// @Accept       json
// @Produce      json
// @Param        id path string true "Period ID"
// @Param        request body ReschedulePeriodRequest true "Dates"
// @Success      200 {object} APIResponse[PeriodResponse]
// @Failure      422 {object} ErrorResponse
// @Router       /billing/periods/{id} [put]
func (h *PeriodHandler) Reschedule(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req ReschedulePeriodRequest
	if !h.bindJSON(c, &req) {
		return
	}
	start, end, due, ok := h.parsePeriodDates(c, req.StartDate, req.EndDate, req.DueDate)
	if !ok {
		return
	}

	period, err := h.periods.ReschedulePeriod(c.Request.Context(), id, start, end, due)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toPeriodResponse(period))
}

// Transition godoc
// @Summary      Transition billing period
// @Description  Moves a period along pending, active, reading_phase, billing_phase, closed
// @Tags         billing-periods
// @Accept       json
// @Produce      json
// @Param        id path string true "Period ID"
// @Param        request body TransitionPeriodRequest true "Target status"
// @Success      200 {object} APIResponse[PeriodResponse]
// @Failure      422 {object} ErrorResponse
// @Router       /billing/periods/{id}/transition [post]
func (h *PeriodHandler) Transition(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req TransitionPeriodRequest
	if !h.bindJSON(c, &req) {
		return
	}

	period, err := h.periods.TransitionPeriod(c.Request.Context(), id, billing.PeriodStatus(req.Status))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toPeriodResponse(period))
}

// GenerateInvoices godoc
// @Summary      Generate invoices for a period
// @Description  Creates one invoice per eligible reading; meters already invoiced are skipped
// @Tags         billing-periods
// @Produce      json
// @Param        id path string true "Period ID"
// @Success      200 {object} APIResponse[appbilling.GenerateInvoicesResult]
// @Failure      422 {object} ErrorResponse
// @Router       /billing/periods/{id}/invoices/generate [post]
func (h *PeriodHandler) GenerateInvoices(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	result, err := h.invoices.GenerateInvoices(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// GetByID godoc
// @Summary      Get billing period
// @Tags         billing-periods
// @Produce      json
// @Param        id path string true "Period ID"
// @Success      200 {object} APIResponse[PeriodResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /billing/periods/{id} [get]
func (h *PeriodHandler) GetByID(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	period, err := h.periods.GetPeriod(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toPeriodResponse(period))
}

// List godoc
// @Summary      List billing periods
// @Tags         billing-periods
// @Produce      json
// @Param        business_id query string false "Business ID"
// @Param        status query string false "Status"
// @Success      200 {object} APIResponse[[]PeriodResponse]
// @Router       /billing/periods [get]
func (h *PeriodHandler) List(c *gin.Context) {
	var req ListPeriodsRequest
	if !h.bindQuery(c, &req) {
		return
	}

	filter := billing.PeriodFilter{Filter: toFilter(req.ListRequest)}
	if req.BusinessID != "" {
		id := uuid.MustParse(req.BusinessID)
		filter.BusinessID = &id
	}
	if req.Status != "" {
		status := billing.PeriodStatus(req.Status)
		filter.Status = &status
	}

	periods, total, err := h.periods.ListPeriods(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, mapSlice(periods, toPeriodResponse), total, filter.Page, filter.PageSize)
}

// Delete godoc
// @Summary      Delete billing period
// @Description  Only pending periods can be deleted
// @Tags         billing-periods
// @Param        id path string true "Period ID"
// @Success      204
// @Failure      422 {object} ErrorResponse
// @Router       /billing/periods/{id} [delete]
func (h *PeriodHandler) Delete(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.periods.DeletePeriod(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PeriodHandler) parsePeriodDates(c *gin.Context, startRaw, endRaw, dueRaw string) (start, end, due time.Time, ok bool) {
	var err error
	if start, err = parseTime(startRaw); err != nil {
		h.invalidField(c, "start_date", err)
		return
	}
	if end, err = parseTime(endRaw); err != nil {
		h.invalidField(c, "end_date", err)
		return
	}
	if due, err = parseTime(dueRaw); err != nil {
		h.invalidField(c, "due_date", err)
		return
	}
	return start, end, due, true
}
