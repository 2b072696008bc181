package models

import (
	"time"

	"gorm.io/gorm"
)

// Notification is a durable in-app notification row. The admin review queue
// and payment confirmations are written here; push/email delivery is an
// external collaborator.
type Notification struct {
	ID        string         `gorm:"type:char(36);primaryKey" json:"id"`
	UserID    *string        `gorm:"type:char(36);index" json:"user_id,omitempty"` // nil = admin channel
	Type      string         `gorm:"size:40;not null" json:"type"`
	Title     string         `gorm:"size:255;not null" json:"title"`
	Body      string         `gorm:"type:text" json:"body"`
	Data      string         `gorm:"type:text" json:"data"` // JSON
	Read      bool           `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Notification) TableName() string {
	return "notifications"
}
