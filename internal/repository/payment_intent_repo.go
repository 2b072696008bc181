package repository

import (
	"context"

	"pesaflow/internal/domain"
	"pesaflow/internal/models"

	"gorm.io/gorm"
)

// PaymentIntentRepository persists payment attempts. The conditional
// transitions (MarkPending, ConfirmIfNotTerminal, FailIfNotTerminal) are
// guarded UPDATEs: RowsAffected == 0 means the intent already moved on, which
// callers treat as "already handled" rather than an error.
type PaymentIntentRepository interface {
	Create(ctx context.Context, p *models.PaymentIntent) error
	GetByID(ctx context.Context, id string) (*models.PaymentIntent, error)
	GetByAnyReference(ctx context.Context, ref string) (*models.PaymentIntent, error)
	MarkPending(ctx context.Context, id, externalRef string) (bool, error)
	ConfirmIfNotTerminal(ctx context.Context, id, externalRef string) (bool, error)
	FailIfNotTerminal(ctx context.Context, id string) (bool, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.PaymentIntent, error)
}

type gormPaymentIntentRepo struct {
	db *gorm.DB
}

func NewPaymentIntentRepository(db *gorm.DB) PaymentIntentRepository {
	return &gormPaymentIntentRepo{db: db}
}

func (r *gormPaymentIntentRepo) Create(ctx context.Context, p *models.PaymentIntent) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *gormPaymentIntentRepo) GetByID(ctx context.Context, id string) (*models.PaymentIntent, error) {
	var p models.PaymentIntent
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByAnyReference resolves an intent by its id, human reference or the
// processor's external reference, in that order. Webhooks may carry any of
// the three.
func (r *gormPaymentIntentRepo) GetByAnyReference(ctx context.Context, ref string) (*models.PaymentIntent, error) {
	var p models.PaymentIntent
	err := r.db.WithContext(ctx).
		Where("id = ? OR reference = ? OR (external_reference = ? AND external_reference <> '')", ref, ref, ref).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormPaymentIntentRepo) MarkPending(ctx context.Context, id, externalRef string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.PaymentIntent{}).
		Where("id = ? AND status = ?", id, domain.PaymentInitiated).
		Updates(map[string]interface{}{
			"status":             domain.PaymentPending,
			"external_reference": externalRef,
		})
	return res.RowsAffected > 0, res.Error
}

// ConfirmIfNotTerminal is the compare-and-swap at the core of exactly-once
// crediting: only the first confirmation flips the row.
func (r *gormPaymentIntentRepo) ConfirmIfNotTerminal(ctx context.Context, id, externalRef string) (bool, error) {
	updates := map[string]interface{}{"status": domain.PaymentConfirmed}
	if externalRef != "" {
		updates["external_reference"] = externalRef
	}
	res := r.db.WithContext(ctx).Model(&models.PaymentIntent{}).
		Where("id = ? AND status NOT IN ?", id, []string{domain.PaymentConfirmed, domain.PaymentFailed}).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

func (r *gormPaymentIntentRepo) FailIfNotTerminal(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.PaymentIntent{}).
		Where("id = ? AND status NOT IN ?", id, []string{domain.PaymentConfirmed, domain.PaymentFailed}).
		Update("status", domain.PaymentFailed)
	return res.RowsAffected > 0, res.Error
}

func (r *gormPaymentIntentRepo) ListByUser(ctx context.Context, userID string, limit int) ([]models.PaymentIntent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var intents []models.PaymentIntent
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&intents).Error
	return intents, err
}
