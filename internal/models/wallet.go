package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Wallet is a per-user, per-currency balance backed by the append-only
// wallet_transactions ledger. Balance is only ever mutated alongside a ledger
// row, inside one database transaction, and never goes negative.
type Wallet struct {
	ID        string          `gorm:"type:char(36);primaryKey" json:"id"`
	UserID    string          `gorm:"type:char(36);not null;uniqueIndex:idx_wallets_user_currency" json:"user_id"`
	Currency  string          `gorm:"size:3;not null;uniqueIndex:idx_wallets_user_currency" json:"currency"`
	Balance   decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"balance"`
	IsActive  bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (Wallet) TableName() string {
	return "wallets"
}
