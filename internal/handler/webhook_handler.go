package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"pesaflow/internal/models"
	"pesaflow/internal/repository"
	"pesaflow/internal/service"
	"pesaflow/internal/webhook"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	headerSignature = "X-Webhook-Signature"
	headerTimestamp = "X-Webhook-Timestamp"
)

// WebhookHandler terminates processor callbacks. The raw body is read once,
// verified against the shared-secret HMAC, and only then parsed.
type WebhookHandler struct {
	verifier    *webhook.Verifier
	reconciler  *service.ReconcileService
	withdrawals *service.WithdrawalService
	logs        repository.WebhookLogRepository
	logger      *zap.Logger
}

func NewWebhookHandler(
	verifier *webhook.Verifier,
	reconciler *service.ReconcileService,
	withdrawals *service.WithdrawalService,
	logs repository.WebhookLogRepository,
	logger *zap.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		verifier:    verifier,
		reconciler:  reconciler,
		withdrawals: withdrawals,
		logs:        logs,
		logger:      logger,
	}
}

// HandlePayment applies a collection callback to its payment intent.
func (h *WebhookHandler) HandlePayment(c *gin.Context) {
	body, ok := h.verifiedBody(c)
	if !ok {
		return
	}
	var payload service.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	res, err := h.reconciler.Reconcile(c.Request.Context(), payload)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"payment_id":      res.PaymentID,
		"status":          res.Status,
		"wallet_credited": res.WalletCredited,
	})
}

// HandlePayout settles a processing withdrawal from the processor's B2C
// callback.
func (h *WebhookHandler) HandlePayout(c *gin.Context) {
	body, ok := h.verifiedBody(c)
	if !ok {
		return
	}
	var payload struct {
		Reference       string `json:"reference"`
		Status          string `json:"status"`
		TransactionHash string `json:"transaction_hash,omitempty"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if payload.Reference == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reference required"})
		return
	}
	w, err := h.withdrawals.ResolvePayout(c.Request.Context(), payload.Reference, payload.Status, payload.TransactionHash)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.logs.Create(c.Request.Context(), &models.WebhookLog{
		ID:          uuid.New().String(),
		WebhookType: "payout",
		Status:      w.Status,
		Payload:     string(body),
		ProcessedAt: time.Now(),
	}); err != nil {
		h.logger.Error("payout webhook audit failed", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"withdrawal_id": w.ID,
		"status":        w.Status,
	})
}

// verifiedBody reads the body and rejects the request unless the signature
// and timestamp check out. A failed check is a hard 401 before any parsing.
func (h *WebhookHandler) verifiedBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return nil, false
	}
	if !h.verifier.Verify(body, c.GetHeader(headerSignature), c.GetHeader(headerTimestamp)) {
		h.logger.Warn("webhook signature rejected", zap.String("ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return nil, false
	}
	return body, true
}
