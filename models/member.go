package models

import (
	"time"

	"gorm.io/gorm"
)

// Member is a gym member. DeviceUserMappings link device-local ids back to this row.
type Member struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	TenantID    uint           `gorm:"index:idx_members_tenant;not null" json:"tenant_id"`
	FullName    string         `gorm:"size:128;not null" json:"full_name"`
	Email       string         `gorm:"size:255" json:"email"`
	Phone       string         `gorm:"size:32" json:"phone"`
	Gender      string         `gorm:"size:16" json:"gender"`
	BirthDate   *time.Time     `json:"birth_date"`
	Notes       string         `gorm:"type:text" json:"notes"`
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	JoinedAt    time.Time      `json:"joined_at"`
	TrainerID   *uint          `gorm:"index" json:"trainer_id"`
	Trainer     *Trainer       `gorm:"foreignKey:TrainerID" json:"trainer,omitempty"`
	Memberships []Membership   `json:"memberships,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate defaults JoinedAt to the creation instant.
func (m *Member) BeforeCreate(tx *gorm.DB) error {
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now()
	}
	return nil
}
