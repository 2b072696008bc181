package handler

import (
	"net/http"

	"pesaflow/internal/middleware"
	"pesaflow/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type PaymentHandler struct {
	payments *service.PaymentService
}

func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// Initiate starts a mobile-money collection. Guests may pay without a token;
// authenticated requests attach the user so confirmation credits their wallet.
func (h *PaymentHandler) Initiate(c *gin.Context) {
	var req struct {
		Phone    string          `json:"phone" binding:"required"`
		Amount   decimal.Decimal `json:"amount" binding:"required"`
		Country  string          `json:"country" binding:"required"`
		Provider string          `json:"provider" binding:"required"`
		Currency string          `json:"currency"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var userID *string
	if id := middleware.GetUserID(c); id != "" {
		userID = &id
	}
	res, err := h.payments.Initiate(c.Request.Context(), service.InitiatePaymentInput{
		Phone:    req.Phone,
		Amount:   req.Amount,
		Country:  req.Country,
		Provider: req.Provider,
		Currency: req.Currency,
		UserID:   userID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"transaction_id": res.TransactionID,
		"reference":      res.Reference,
		"redirect_url":   res.RedirectURL,
		"instructions":   res.Instructions,
	})
}

// Get returns a payment intent by ID or reference.
func (h *PaymentHandler) Get(c *gin.Context) {
	p, err := h.payments.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// ListMine returns the authenticated user's payment intents.
func (h *PaymentHandler) ListMine(c *gin.Context) {
	userID := middleware.GetUserID(c)
	payments, err := h.payments.ListForUser(c.Request.Context(), userID, 50)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}
