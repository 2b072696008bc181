package repository

import (
	"context"

	"pesaflow/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	ListAdmin(ctx context.Context, limit int) ([]models.Notification, error)
}

type gormNotificationRepo struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &gormNotificationRepo{db: db}
}

func (r *gormNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *gormNotificationRepo) ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var ns []models.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&ns).Error
	return ns, err
}

// ListAdmin returns the admin channel (rows with no user).
func (r *gormNotificationRepo) ListAdmin(ctx context.Context, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var ns []models.Notification
	err := r.db.WithContext(ctx).
		Where("user_id IS NULL").
		Order("created_at DESC").
		Limit(limit).
		Find(&ns).Error
	return ns, err
}
