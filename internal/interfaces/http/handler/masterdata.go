package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appbilling "github.com/meterbill/backend/internal/application/billing"
	"github.com/meterbill/backend/internal/domain/billing"
)

// MasterDataHandler registers the accounts and meters billing works on
type MasterDataHandler struct {
	BaseHandler
	master *appbilling.MasterDataService
}

// NewMasterDataHandler creates a new MasterDataHandler
func NewMasterDataHandler(master *appbilling.MasterDataService) *MasterDataHandler {
	return &MasterDataHandler{master: master}
}

// CreateAccount godoc
// @Summary      Create subscription account
// @Tags         billing-master-data
// @Accept       json
// @Produce      json
// @Param        request body CreateAccountRequest true "Account"
// @Success      201 {object} APIResponse[AccountResponse]
// @Failure      409 {object} ErrorResponse
// @Router       /billing/accounts [post]
func (h *MasterDataHandler) CreateAccount(c *gin.Context) {
	var req CreateAccountRequest
	if !h.bindJSON(c, &req) {
		return
	}
	account, err := h.master.CreateAccount(c.Request.Context(), appbilling.CreateAccountInput{
		CustomerID:    uuid.MustParse(req.CustomerID),
		AccountNumber: req.AccountNumber,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toAccountResponse(account))
}

// GetAccount godoc
// @Summary      Get subscription account
// @Tags         billing-master-data
// @Produce      json
// @Param        id path string true "Account ID"
// @Success      200 {object} APIResponse[AccountResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /billing/accounts/{id} [get]
func (h *MasterDataHandler) GetAccount(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	account, err := h.master.GetAccount(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toAccountResponse(account))
}

// CreateMeter godoc
// @Summary      Create meter
// @Tags         billing-master-data
// @Accept       json
// @Produce      json
// @Param        request body CreateMeterRequest true "Meter"
// @Success      201 {object} APIResponse[MeterResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /billing/meters [post]
func (h *MasterDataHandler) CreateMeter(c *gin.Context) {
	var req CreateMeterRequest
	if !h.bindJSON(c, &req) {
		return
	}
	meter, err := h.master.CreateMeter(c.Request.Context(), appbilling.CreateMeterInput{
		AccountID:      uuid.MustParse(req.AccountID),
		BusinessID:     uuid.MustParse(req.BusinessID),
		MeterNumber:    req.MeterNumber,
		MeterType:      billing.MeterType(req.MeterType),
		Phase:          billing.Phase(req.Phase),
		UsageType:      billing.UsageType(req.UsageType),
		InitialReading: req.InitialReading,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toMeterResponse(meter))
}

// GetMeter godoc
// @Summary      Get meter
// @Tags         billing-master-data
// @Produce      json
// @Param        id path string true "Meter ID"
// @Success      200 {object} APIResponse[MeterResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /billing/meters/{id} [get]
func (h *MasterDataHandler) GetMeter(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	meter, err := h.master.GetMeter(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toMeterResponse(meter))
}
