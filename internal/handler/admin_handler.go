package handler

import (
	"errors"
	"net/http"

	"pesaflow/internal/middleware"
	"pesaflow/internal/models"
	"pesaflow/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminHandler exposes the manual withdrawal review queue.
type AdminHandler struct {
	withdrawals *service.WithdrawalService
}

func NewAdminHandler(withdrawals *service.WithdrawalService) *AdminHandler {
	return &AdminHandler{withdrawals: withdrawals}
}

// ListPendingWithdrawals returns requests awaiting a decision.
func (h *AdminHandler) ListPendingWithdrawals(c *gin.Context) {
	list, err := h.withdrawals.ListPending(c.Request.Context(), 100)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": list})
}

// Decide approves or rejects a pending withdrawal. One decision per request;
// a second attempt gets 409.
func (h *AdminHandler) Decide(c *gin.Context) {
	var req struct {
		Action string `json:"action" binding:"required,oneof=approve reject"`
		Notes  string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	withdrawalID := c.Param("id")
	adminID := middleware.GetUserID(c)

	var err error
	var w *models.WithdrawalRequest
	if req.Action == "approve" {
		w, err = h.withdrawals.Approve(c.Request.Context(), withdrawalID, adminID, req.Notes)
	} else {
		w, err = h.withdrawals.Reject(c.Request.Context(), withdrawalID, adminID, req.Notes)
	}
	if err != nil {
		// An approved payout can still fail at the processor. The decision is
		// recorded and the funds refunded, so report the outcome, not a 5xx.
		if w != nil && errors.Is(err, service.ErrExternalService) {
			c.JSON(http.StatusOK, gin.H{"success": false, "withdrawal": w, "error": "payout failed, funds refunded"})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "withdrawal": w})
}
