package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WalletTransaction is one ledger entry. Amount is signed by type (DEPOSIT and
// REFUND positive, WITHDRAWAL negative); the sum of COMPLETED entries for a
// wallet reconciles to its balance. The unique (reference, type) index is the
// storage-level guarantee that the same economic event is never booked twice.
type WalletTransaction struct {
	ID          string          `gorm:"type:char(36);primaryKey" json:"id"`
	WalletID    string          `gorm:"type:char(36);not null;index" json:"wallet_id"`
	UserID      string          `gorm:"type:char(36);not null;index" json:"user_id"`
	Type        string          `gorm:"size:20;not null;uniqueIndex:idx_wallet_txns_reference_type" json:"type"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Currency    string          `gorm:"size:3;not null" json:"currency"`
	Description string          `gorm:"size:255" json:"description"`
	Reference   string          `gorm:"size:64;not null;uniqueIndex:idx_wallet_txns_reference_type" json:"reference"`
	Status      string          `gorm:"size:20;not null;index" json:"status"`
	Metadata    string          `gorm:"type:text" json:"metadata"` // JSON
	CreatedAt   time.Time       `json:"created_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}
