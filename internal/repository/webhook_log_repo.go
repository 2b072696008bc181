package repository

import (
	"context"

	"pesaflow/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WebhookLogRepository appends to the webhook audit trail.
type WebhookLogRepository interface {
	Create(ctx context.Context, l *models.WebhookLog) error
	ListByIntent(ctx context.Context, paymentIntentID string) ([]models.WebhookLog, error)
}

type gormWebhookLogRepo struct {
	db *gorm.DB
}

func NewWebhookLogRepository(db *gorm.DB) WebhookLogRepository {
	return &gormWebhookLogRepo{db: db}
}

func (r *gormWebhookLogRepo) Create(ctx context.Context, l *models.WebhookLog) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *gormWebhookLogRepo) ListByIntent(ctx context.Context, paymentIntentID string) ([]models.WebhookLog, error) {
	var logs []models.WebhookLog
	err := r.db.WithContext(ctx).
		Where("payment_intent_id = ?", paymentIntentID).
		Order("processed_at ASC").
		Find(&logs).Error
	return logs, err
}
