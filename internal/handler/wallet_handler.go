package handler

import (
	"net/http"
	"strings"

	"pesaflow/internal/middleware"
	"pesaflow/internal/repository"

	"github.com/gin-gonic/gin"
)

type WalletHandler struct {
	wallets repository.WalletRepository
}

func NewWalletHandler(wallets repository.WalletRepository) *WalletHandler {
	return &WalletHandler{wallets: wallets}
}

// GetBalance returns the caller's wallet for the requested currency,
// creating it on first touch.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	currency := strings.ToUpper(c.DefaultQuery("currency", "USD"))
	w, err := h.wallets.GetOrCreate(c.Request.Context(), middleware.GetUserID(c), currency)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "wallet error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"wallet_id": w.ID,
		"balance":   w.Balance,
		"currency":  w.Currency,
		"is_active": w.IsActive,
	})
}

// ListTransactions returns the caller's ledger entries, newest first.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	txns, err := h.wallets.ListTransactions(c.Request.Context(), middleware.GetUserID(c), 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "wallet error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txns})
}
