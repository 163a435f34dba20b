package models

import (
	"time"

	"gorm.io/gorm"
)

// GymPackage is a sellable plan (monthly, quarterly, per-session bundles).
type GymPackage struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	TenantID     uint           `gorm:"index;not null" json:"tenant_id"`
	Name         string         `gorm:"size:128;not null" json:"name"`
	Description  string         `gorm:"type:text" json:"description"`
	DurationDays int            `gorm:"not null" json:"duration_days"`
	Price        float64        `gorm:"not null" json:"price"`
	IsActive     bool           `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// Membership assigns a package to a member for a validity window.
type Membership struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	TenantID     uint       `gorm:"index;not null" json:"tenant_id"`
	MemberID     uint       `gorm:"index;not null" json:"member_id"`
	GymPackageID uint       `gorm:"index;not null" json:"package_id"`
	GymPackage   GymPackage `json:"package,omitempty"`
	StartDate    time.Time  `gorm:"not null" json:"start_date"`
	EndDate      time.Time  `gorm:"not null" json:"end_date"`
	IsActive     bool       `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
