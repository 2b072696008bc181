package handler

import (
	"encoding/json"
	"net/http"

	"pesaflow/internal/middleware"
	"pesaflow/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type WithdrawalHandler struct {
	withdrawals *service.WithdrawalService
}

func NewWithdrawalHandler(withdrawals *service.WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawals: withdrawals}
}

// Create requests a withdrawal. Funds are reserved immediately; small
// amounts may be paid out in the same call when the user has auto-approval.
func (h *WithdrawalHandler) Create(c *gin.Context) {
	var req struct {
		Amount             decimal.Decimal `json:"amount" binding:"required"`
		ToWallet           string          `json:"to_wallet" binding:"required"`
		Currency           string          `json:"currency"`
		WithdrawalMethod   string          `json:"withdrawal_method"`
		DestinationDetails json.RawMessage `json:"destination_details"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.withdrawals.Request(c.Request.Context(), service.WithdrawalInput{
		UserID:             middleware.GetUserID(c),
		Amount:             req.Amount,
		ToWallet:           req.ToWallet,
		Currency:           req.Currency,
		Method:             req.WithdrawalMethod,
		DestinationDetails: req.DestinationDetails,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	resp := gin.H{
		"success":       true,
		"withdrawal_id": res.WithdrawalID,
		"status":        res.Status,
		"auto_approved": res.AutoApproved,
		"fee_amount":    res.FeeAmount,
		"net_amount":    res.NetAmount,
	}
	if res.ProcessingWindow != "" {
		resp["processing_window"] = res.ProcessingWindow
	}
	c.JSON(http.StatusOK, resp)
}

// Get returns one of the caller's withdrawal requests.
func (h *WithdrawalHandler) Get(c *gin.Context) {
	w, err := h.withdrawals.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if w.UserID != middleware.GetUserID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, w)
}

// ListMine returns the caller's withdrawal history.
func (h *WithdrawalHandler) ListMine(c *gin.Context) {
	list, err := h.withdrawals.ListForUser(c.Request.Context(), middleware.GetUserID(c), 50)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": list})
}
