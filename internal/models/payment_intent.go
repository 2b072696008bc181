package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentIntent records one attempted mobile-money payment. Status moves
// initiated -> pending -> confirmed|failed (or initiated -> failed directly)
// and never leaves a terminal state. Rows are never deleted.
type PaymentIntent struct {
	ID                string          `gorm:"type:char(36);primaryKey" json:"id"`
	UserID            *string         `gorm:"type:char(36);index" json:"user_id,omitempty"` // nil for guest payments
	Amount            decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Currency          string          `gorm:"size:3;not null" json:"currency"`
	Country           string          `gorm:"size:2;not null" json:"country"`
	Provider          string          `gorm:"size:30;not null" json:"provider"`
	PhoneNumber       string          `gorm:"size:20;not null" json:"phone_number"`
	Status            string          `gorm:"size:20;not null;index" json:"status"`
	Reference         string          `gorm:"size:64;uniqueIndex;not null" json:"reference"`
	ExternalReference string          `gorm:"size:128;index" json:"external_reference"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	DeletedAt         gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (PaymentIntent) TableName() string {
	return "payment_intents"
}
