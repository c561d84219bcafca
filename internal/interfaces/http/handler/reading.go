package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appbilling "github.com/meterbill/backend/internal/application/billing"
	"github.com/meterbill/backend/internal/domain/billing"
)

// ReadingHandler handles meter reading endpoints
type ReadingHandler struct {
	BaseHandler
	readings *appbilling.ReadingService
}

// NewReadingHandler creates a new ReadingHandler
func NewReadingHandler(readings *appbilling.ReadingService) *ReadingHandler {
	return &ReadingHandler{readings: readings}
}

// Submit godoc
// @Summary      Submit meter reading
// @Description  Validates the reading against the meter's previous value and trailing average
// @Tags         billing-readings
// @Accept       json
// @Produce      json
// @Param        request body SubmitReadingRequest true "Reading"
// @Success      201 {object} APIResponse[ReadingResponse]
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /billing/readings [post]
func (h *ReadingHandler) Submit(c *gin.Context) {
	var req SubmitReadingRequest
	if !h.bindJSON(c, &req) {
		return
	}

	readingDate, err := parseOptionalTime(req.ReadingDate, time.Time{})
	if err != nil {
		h.invalidField(c, "reading_date", err)
		return
	}

	reading, err := h.readings.SubmitReading(c.Request.Context(), appbilling.SubmitReadingInput{
		PeriodID:       uuid.MustParse(req.PeriodID),
		MeterID:        uuid.MustParse(req.MeterID),
		CurrentReading: req.CurrentReading,
		ReadingType:    billing.ReadingType(req.ReadingType),
		ReadingDate:    readingDate,
		Notes:          req.Notes,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toReadingResponse(reading))
}

// Approve godoc
// @Summary      Approve meter reading
// @Description  Confirms a pending reading; anomalies need override=true
// @Tags         billing-readings
// @Accept       json
// @Produce      json
// @Param        id path string true "Reading ID"
// @Param        request body ApproveReadingRequest false "Override"
// @Success      200 {object} APIResponse[ReadingResponse]
// @Failure      422 {object} ErrorResponse
// @Router       /billing/readings/{id}/approve [post]
func (h *ReadingHandler) Approve(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req ApproveReadingRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}

	reading, err := h.readings.ApproveReading(c.Request.Context(), id, req.Override)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toReadingResponse(reading))
}

// Reject godoc
// @Summary      Reject meter reading
// @Tags         billing-readings
// @Accept       json
// @Produce      json
// @Param        id path string true "Reading ID"
// @Param        request body RejectReadingRequest true "Reason"
// @Success      200 {object} APIResponse[ReadingResponse]
// @Failure      422 {object} ErrorResponse
// @Router       /billing/readings/{id}/reject [post]
func (h *ReadingHandler) Reject(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req RejectReadingRequest
	if !h.bindJSON(c, &req) {
		return
	}

	reading, err := h.readings.RejectReading(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toReadingResponse(reading))
}

// GetByID godoc
// @Summary      Get meter reading
// @Tags         billing-readings
// @Produce      json
// @Param        id path string true "Reading ID"
// @Success      200 {object} APIResponse[ReadingResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /billing/readings/{id} [get]
func (h *ReadingHandler) GetByID(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	reading, err := h.readings.GetReading(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toReadingResponse(reading))
}

// List godoc
// @Summary      List meter readings
// @Tags         billing-readings
// @Produce      json
// @Param        period_id query string false "Period ID"
// @Param        meter_id query string false "Meter ID"
// @Param        status query string false "Status"
// @Success      200 {object} APIResponse[[]ReadingResponse]
// @Router       /billing/readings [get]
func (h *ReadingHandler) List(c *gin.Context) {
	var req ListReadingsRequest
	if !h.bindQuery(c, &req) {
		return
	}

	filter := billing.ReadingFilter{Filter: toFilter(req.ListRequest)}
	filter.PeriodID, _ = parseOptionalUUID(req.PeriodID)
	filter.MeterID, _ = parseOptionalUUID(req.MeterID)
	if req.Status != "" {
		status := billing.ReadingStatus(req.Status)
		filter.Status = &status
	}

	readings, total, err := h.readings.ListReadings(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, mapSlice(readings, toReadingResponse), total, filter.Page, filter.PageSize)
}
