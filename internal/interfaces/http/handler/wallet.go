package handler

import (
	"github.com/gin-gonic/gin"
	appbilling "github.com/meterbill/backend/internal/application/billing"
	"github.com/meterbill/backend/internal/interfaces/http/dto"
)

// WalletHandler handles customer wallet endpoints
type WalletHandler struct {
	BaseHandler
	wallets *appbilling.WalletService
}

// NewWalletHandler creates a new WalletHandler
func NewWalletHandler(wallets *appbilling.WalletService) *WalletHandler {
	return &WalletHandler{wallets: wallets}
}

// Charge godoc
// @Summary      Charge wallet
// @Description  Credits the customer's wallet, creating it on first use
// @Tags         billing-wallets
// @Accept       json
// @Produce      json
// @Param        customerId path string true "Customer ID"
// @Param        X-User-ID header string false "Operator ID"
// @Param        request body WalletMovementRequest true "Amount"
// @Success      200 {object} APIResponse[WalletMovementResponse]
// @Failure      422 {object} ErrorResponse
// @Router       /billing/wallets/{customerId}/charge [post]
func (h *WalletHandler) Charge(c *gin.Context) {
	customerID, ok := h.uuidParam(c, "customerId")
	if !ok {
		return
	}
	var req WalletMovementRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.wallets.ChargeWallet(c.Request.Context(), appbilling.WalletChargeInput{
		CustomerID:  customerID,
		Amount:      req.Amount,
		Description: req.Description,
		CreatedBy:   getActorID(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toWalletMovementResponse(result))
}

// Withdraw godoc
// @Summary      Withdraw from wallet
// @Description  Debits the wallet; fails with insufficient balance rather than going negative
// @Tags         billing-wallets
// @Accept       json
// @Produce      json
// @Param        customerId path string true "Customer ID"
// @Param        X-User-ID header string false "Operator ID"
// @Param        request body WalletMovementRequest true "Amount"
// @Success      200 {object} APIResponse[WalletMovementResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /billing/wallets/{customerId}/withdraw [post]
func (h *WalletHandler) Withdraw(c *gin.Context) {
	customerID, ok := h.uuidParam(c, "customerId")
	if !ok {
		return
	}
	var req WalletMovementRequest
	if !h.bindJSON(c, &req) {
		return
	}
	meterID, _ := parseOptionalUUID(req.MeterID)

	result, err := h.wallets.WithdrawWallet(c.Request.Context(), appbilling.WalletWithdrawInput{
		CustomerID:  customerID,
		Amount:      req.Amount,
		MeterID:     meterID,
		Description: req.Description,
		CreatedBy:   getActorID(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toWalletMovementResponse(result))
}

// Get godoc
// @Summary      Get wallet
// @Tags         billing-wallets
// @Produce      json
// @Param        customerId path string true "Customer ID"
// @Success      200 {object} APIResponse[WalletResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /billing/wallets/{customerId} [get]
func (h *WalletHandler) Get(c *gin.Context) {
	customerID, ok := h.uuidParam(c, "customerId")
	if !ok {
		return
	}
	wallet, err := h.wallets.GetWallet(c.Request.Context(), customerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toWalletResponse(wallet))
}

// ListTransactions godoc
// @Summary      List wallet transactions
// @Tags         billing-wallets
// @Produce      json
// @Param        customerId path string true "Customer ID"
// @Success      200 {object} APIResponse[[]WalletTransactionResponse]
// @Router       /billing/wallets/{customerId}/transactions [get]
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	customerID, ok := h.uuidParam(c, "customerId")
	if !ok {
		return
	}
	var req dto.ListRequest
	if !h.bindQuery(c, &req) {
		return
	}

	filter := toFilter(req)
	txs, total, err := h.wallets.ListTransactions(c.Request.Context(), customerID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, mapSlice(txs, toWalletTransactionResponse), total, filter.Page, filter.PageSize)
}

// Reconcile godoc
// @Summary      Reconcile wallet
// @Description  Replays the ledger and compares it with the cached balance
// @Tags         billing-wallets
// @Produce      json
// @Param        customerId path string true "Customer ID"
// @Success      200 {object} APIResponse[ReconciliationResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      500 {object} APIResponse[ReconciliationResponse] "Ledger mismatch"
// @Router       /billing/wallets/{customerId}/reconcile [get]
func (h *WalletHandler) Reconcile(c *gin.Context) {
	customerID, ok := h.uuidParam(c, "customerId")
	if !ok {
		return
	}
	result, err := h.wallets.ReconcileWallet(c.Request.Context(), customerID)
	if err != nil && result != nil {
		// A broken ledger still reports the comparison alongside the error
		resp := dto.NewErrorResponseWithRequestID(dto.ErrCodeLedgerIntegrity, err.Error(), getRequestID(c))
		resp.Data = toReconciliationResponse(result)
		c.JSON(dto.GetHTTPStatus(dto.ErrCodeLedgerIntegrity), resp)
		return
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toReconciliationResponse(result))
}

func toWalletMovementResponse(r *appbilling.WalletResult) WalletMovementResponse {
	return WalletMovementResponse{
		Wallet:      toWalletResponse(r.Wallet),
		Transaction: toWalletTransactionResponse(r.Transaction),
	}
}
