package service

import (
	"context"
	"encoding/json"

	"pesaflow/internal/models"
	"pesaflow/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// NotificationService writes durable notification rows. Delivery (push,
// email) is an external collaborator; a failed write is logged and dropped,
// never propagated into the money path.
type NotificationService struct {
	repo   repository.NotificationRepository
	logger *zap.Logger
}

func NewNotificationService(repo repository.NotificationRepository, logger *zap.Logger) *NotificationService {
	return &NotificationService{repo: repo, logger: logger}
}

func (s *NotificationService) notify(ctx context.Context, userID *string, notifType, title, body string, data map[string]interface{}) {
	var dataJSON string
	if data != nil {
		b, _ := json.Marshal(data)
		dataJSON = string(b)
	}
	err := s.repo.Create(ctx, &models.Notification{
		UserID: userID,
		Type:   notifType,
		Title:  title,
		Body:   body,
		Data:   dataJSON,
	})
	if err != nil {
		s.logger.Warn("notification write failed",
			zap.String("type", notifType), zap.Error(err))
	}
}

func (s *NotificationService) NotifyPaymentConfirmed(ctx context.Context, userID string, amount decimal.Decimal, currency, reference string) {
	s.notify(ctx, &userID, "PAYMENT_CONFIRMED", "Payment confirmed",
		"Your payment of "+amount.StringFixed(2)+" "+currency+" was successful.",
		map[string]interface{}{"amount": amount.StringFixed(2), "currency": currency, "reference": reference})
}

// NotifyAdminWithdrawalReview queues a manual withdrawal on the admin channel.
func (s *NotificationService) NotifyAdminWithdrawalReview(ctx context.Context, withdrawalID, userID string, amount decimal.Decimal, currency string) {
	s.notify(ctx, nil, "WITHDRAWAL_REVIEW", "Withdrawal awaiting review",
		"A withdrawal of "+amount.StringFixed(2)+" "+currency+" requires manual approval.",
		map[string]interface{}{"withdrawal_id": withdrawalID, "user_id": userID})
}

func (s *NotificationService) NotifyWithdrawalDecision(ctx context.Context, userID, withdrawalID, status, notes string) {
	s.notify(ctx, &userID, "WITHDRAWAL_"+status, "Withdrawal "+status,
		"Your withdrawal request is now "+status+".",
		map[string]interface{}{"withdrawal_id": withdrawalID, "notes": notes})
}
