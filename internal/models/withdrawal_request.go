package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WithdrawalRequest tracks a request to move funds out of a wallet.
// Transitions: requested -> approved -> processing -> completed|failed,
// requested -> rejected. Funds are reserved (debited) at creation; rejection
// and failure restore them through a REFUND ledger entry. NetAmount is always
// Amount - FeeAmount, derived by the service.
type WithdrawalRequest struct {
	ID                 string          `gorm:"type:char(36);primaryKey" json:"id"`
	UserID             string          `gorm:"type:char(36);not null;index" json:"user_id"`
	Amount             decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	ToWallet           string          `gorm:"size:255;not null" json:"to_wallet"`
	Currency           string          `gorm:"size:3;not null" json:"currency"`
	WithdrawalMethod   string          `gorm:"size:20;not null" json:"withdrawal_method"`
	DestinationDetails string          `gorm:"type:text" json:"destination_details"` // JSON, shape depends on method
	FeeAmount          decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"fee_amount"`
	NetAmount          decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"net_amount"`
	Status             string          `gorm:"size:20;not null;index" json:"status"`
	AutoApproved       bool            `gorm:"not null;default:false" json:"auto_approved"`
	AdminNotes         string          `gorm:"type:text" json:"admin_notes"`
	ProcessedAt        *time.Time      `json:"processed_at"`
	ProcessedBy        *string         `gorm:"type:char(36)" json:"processed_by,omitempty"`
	TransactionHash    string          `gorm:"size:128" json:"transaction_hash"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	DeletedAt          gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (WithdrawalRequest) TableName() string {
	return "withdrawal_requests"
}

// CryptoDestination, MobileMoneyDestination and BankDestination are the
// per-method shapes accepted in destination_details.
type CryptoDestination struct {
	Address string `json:"address"`
	Network string `json:"network,omitempty"`
}

type MobileMoneyDestination struct {
	PhoneNumber string `json:"phone_number"`
	Provider    string `json:"provider"`
	Country     string `json:"country,omitempty"`
}

type BankDestination struct {
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	BankName      string `json:"bank_name"`
	BankCode      string `json:"bank_code,omitempty"`
}
