package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// User mirrors the identity managed by the external auth collaborator. Only
// the fields the payment core reads are modelled here: role, the auto-approval
// opt-in and optional per-user withdrawal limit overrides.
type User struct {
	ID                     string           `gorm:"type:char(36);primaryKey" json:"id"`
	Email                  string           `gorm:"size:255;uniqueIndex" json:"email"`
	Role                   string           `gorm:"size:20;not null;default:'CUSTOMER'" json:"role"`
	AutoApproveWithdrawals bool             `gorm:"not null;default:false" json:"auto_approve_withdrawals"`
	DailyWithdrawalLimit   *decimal.Decimal `gorm:"type:decimal(20,2)" json:"daily_withdrawal_limit,omitempty"`
	MonthlyWithdrawalLimit *decimal.Decimal `gorm:"type:decimal(20,2)" json:"monthly_withdrawal_limit,omitempty"`
	CreatedAt              time.Time        `json:"created_at"`
	UpdatedAt              time.Time        `json:"updated_at"`
	DeletedAt              gorm.DeletedAt   `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}
