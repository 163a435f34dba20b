package models

import (
	"time"

	"gorm.io/gorm"
)

// Trainer is a coach employed by a tenant.
type Trainer struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	TenantID  uint           `gorm:"index;not null" json:"tenant_id"`
	FullName  string         `gorm:"size:128;not null" json:"full_name"`
	Email     string         `gorm:"size:255" json:"email"`
	Phone     string         `gorm:"size:32" json:"phone"`
	Specialty string         `gorm:"size:128" json:"specialty"`
	Bio       string         `gorm:"type:text" json:"bio"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
