package models

import "time"

// WebhookLog is the append-only audit trail of webhook deliveries. It is never
// read on the reconciliation path and never mutated after insert.
type WebhookLog struct {
	ID              string    `gorm:"type:char(36);primaryKey" json:"id"`
	PaymentIntentID *string   `gorm:"type:char(36);index" json:"payment_intent_id,omitempty"`
	WebhookType     string    `gorm:"size:30;not null" json:"webhook_type"`
	Status          string    `gorm:"size:30;not null" json:"status"`
	Payload         string    `gorm:"type:text" json:"payload"`
	WalletCredited  bool      `gorm:"not null;default:false" json:"wallet_credited"`
	WalletID        *string   `gorm:"type:char(36)" json:"wallet_id,omitempty"`
	ProcessedAt     time.Time `json:"processed_at"`
}

func (WebhookLog) TableName() string {
	return "webhook_logs"
}
