package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	appbilling "github.com/meterbill/backend/internal/application/billing"
	"github.com/meterbill/backend/internal/domain/billing"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// OverdueHandler handles the overdue invoice report
type OverdueHandler struct {
	BaseHandler
	overdue *appbilling.OverdueService
}

// NewOverdueHandler creates a new OverdueHandler
func NewOverdueHandler(overdue *appbilling.OverdueService) *OverdueHandler {
	return &OverdueHandler{overdue: overdue}
}

// Summary godoc
// @Summary      Overdue invoice summary
// @Description  Lists open invoices past their due date with aging bucket statistics
// @Tags         billing-overdue
// @Produce      json
// @Param        status query string false "Invoice status"
// @Param        days_range query string false "Aging bucket" Enums(0-30, 31-60, 61-90, 90+)
// @Param        customer_id query string false "Customer ID"
// @Param        as_of query string false "Report date, defaults to now"
// @Success      200 {object} APIResponse[billing.OverdueSummary]
// @Router       /billing/overdue [get]
func (h *OverdueHandler) Summary(c *gin.Context) {
	filter, now, ok := h.parseRequest(c)
	if !ok {
		return
	}

	summary, err := h.overdue.GetOverdueSummary(c.Request.Context(), filter, now)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// Export godoc
// @Summary      Export overdue report
// @Tags         billing-overdue
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        status query string false "Invoice status"
// @Param        days_range query string false "Aging bucket"
// @Param        customer_id query string false "Customer ID"
// @Param        as_of query string false "Report date, defaults to now"
// @Success      200 {file} binary
// @Router       /billing/overdue/export [get]
func (h *OverdueHandler) Export(c *gin.Context) {
	filter, now, ok := h.parseRequest(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.overdue.ExportOverdueReport(c.Request.Context(), filter, now, &buf); err != nil {
		h.HandleError(c, err)
		return
	}

	if now.IsZero() {
		now = time.Now().UTC()
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="overdue-%s.xlsx"`, now.Format(dateLayout)))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *OverdueHandler) parseRequest(c *gin.Context) (billing.OverdueFilter, time.Time, bool) {
	var req OverdueRequest
	if !h.bindQuery(c, &req) {
		return billing.OverdueFilter{}, time.Time{}, false
	}

	// zero lets the service use its own clock
	now, err := parseOptionalTime(req.AsOf, time.Time{})
	if err != nil {
		h.invalidField(c, "as_of", err)
		return billing.OverdueFilter{}, time.Time{}, false
	}

	filter := billing.OverdueFilter{
		Status:    billing.InvoiceStatus(req.Status),
		DaysRange: billing.AgingBucket(req.DaysRange),
	}
	filter.CustomerID, _ = parseOptionalUUID(req.CustomerID)
	return filter, now, true
}
