package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Payment statuses.
const (
	PaymentStatusPaid    = "paid"
	PaymentStatusPending = "pending"
	PaymentStatusVoided  = "voided"
)

// Payment records money received against a membership.
type Payment struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TenantID     uint      `gorm:"index;not null" json:"tenant_id"`
	MemberID     uint      `gorm:"index;not null" json:"member_id"`
	MembershipID *uint     `gorm:"index" json:"membership_id"`
	ReceiptNo    string    `gorm:"size:40;uniqueIndex" json:"receipt_no"`
	Amount       float64   `gorm:"not null" json:"amount"`
	Method       string    `gorm:"size:32" json:"method"`
	Status       string    `gorm:"size:16;default:'paid'" json:"status"`
	PaidAt       time.Time `json:"paid_at"`
	Notes        string    `gorm:"size:255" json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BeforeCreate assigns a receipt number and defaults PaidAt.
func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ReceiptNo == "" {
		p.ReceiptNo = "RCPT-" + uuid.NewString()
	}
	if p.PaidAt.IsZero() {
		p.PaidAt = time.Now()
	}
	return nil
}
