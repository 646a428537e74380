package models

import (
	"time"

	"gorm.io/gorm"
)

type Payment struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	UserID            uint           `gorm:"not null;index" json:"user_id"`
	CourseID          uint           `gorm:"not null;index" json:"course_id"`
	AmountCents       int64          `gorm:"not null" json:"amount_cents"`
	Currency          string         `gorm:"size:3;default:'INR'" json:"currency"`
	Provider          string         `gorm:"size:50;not null" json:"provider"`
	Receipt           string         `gorm:"size:64;uniqueIndex" json:"receipt"`
	ProviderOrderID   string         `gorm:"size:255;uniqueIndex" json:"provider_order_id"`
	ProviderPaymentID *string        `gorm:"size:255;uniqueIndex" json:"provider_payment_id"`
	Status            string         `gorm:"size:20;not null;index" json:"status"` // PENDING, COMPLETED, FAILED
	FailureReason     string         `gorm:"size:255" json:"failure_reason,omitempty"`
	CompletedAt       *time.Time     `json:"completed_at"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`

	User   *User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Course *Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

func (Payment) TableName() string {
	return "payments"
}
