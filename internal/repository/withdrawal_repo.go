package repository

import (
	"context"
	"time"

	"pesaflow/internal/domain"
	"pesaflow/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WithdrawalRepository persists withdrawal requests. TransitionStatus is a
// guarded UPDATE from an expected state; a false return means the request was
// already decided, which callers surface as a conflict, not a double-apply.
type WithdrawalRepository interface {
	Create(ctx context.Context, w *models.WithdrawalRequest) error
	GetByID(ctx context.Context, id string) (*models.WithdrawalRequest, error)
	TransitionStatus(ctx context.Context, id, from, to string, updates map[string]interface{}) (bool, error)
	RollingTotal(ctx context.Context, userID string, since time.Time) (decimal.Decimal, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.WithdrawalRequest, error)
	ListByStatus(ctx context.Context, status string, limit int) ([]models.WithdrawalRequest, error)
}

type gormWithdrawalRepo struct {
	db *gorm.DB
}

func NewWithdrawalRepository(db *gorm.DB) WithdrawalRepository {
	return &gormWithdrawalRepo{db: db}
}

func (r *gormWithdrawalRepo) Create(ctx context.Context, w *models.WithdrawalRequest) error {
	return r.db.WithContext(ctx).Create(w).Error
}

func (r *gormWithdrawalRepo) GetByID(ctx context.Context, id string) (*models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *gormWithdrawalRepo) TransitionStatus(ctx context.Context, id, from, to string, updates map[string]interface{}) (bool, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to
	res := r.db.WithContext(ctx).Model(&models.WithdrawalRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

// RollingTotal sums requests since the cutoff that still count against the
// user's limit. Rejected and failed requests returned the funds, so they do
// not count.
func (r *gormWithdrawalRepo) RollingTotal(ctx context.Context, userID string, since time.Time) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).Model(&models.WithdrawalRequest{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("user_id = ? AND created_at >= ? AND status NOT IN ?",
			userID, since, []string{domain.WithdrawalRejected, domain.WithdrawalFailed}).
		Scan(&result).Error
	return result.Total, err
}

func (r *gormWithdrawalRepo) ListByUser(ctx context.Context, userID string, limit int) ([]models.WithdrawalRequest, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var ws []models.WithdrawalRequest
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&ws).Error
	return ws, err
}

func (r *gormWithdrawalRepo) ListByStatus(ctx context.Context, status string, limit int) ([]models.WithdrawalRequest, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var ws []models.WithdrawalRequest
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Limit(limit).
		Find(&ws).Error
	return ws, err
}
