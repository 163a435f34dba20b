package models

import "time"

// Device is a configured fingerprint/RFID punch clock endpoint.
type Device struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	TenantID     uint       `gorm:"index;not null" json:"tenant_id"`
	Name         string     `gorm:"size:128" json:"name"`
	IP           string     `gorm:"size:64;not null" json:"ip"`
	Port         int        `gorm:"default:4370" json:"port"`
	SerialNumber string     `gorm:"size:64" json:"serial_number"`
	IsActive     bool       `gorm:"default:true" json:"is_active"`
	LastSyncAt   *time.Time `json:"last_sync_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// DeviceUserMapping links a device-local user id to exactly one member.
// Read-only to the sync pipeline; the mapping workflow maintains it.
type DeviceUserMapping struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TenantID     uint      `gorm:"index;not null" json:"tenant_id"`
	DeviceID     uint      `gorm:"uniqueIndex:idx_device_user,priority:1;not null" json:"device_id"`
	DeviceUserID string    `gorm:"uniqueIndex:idx_device_user,priority:2;size:64;not null" json:"device_user_id"`
	MemberID     uint      `gorm:"index;not null" json:"member_id"`
	Member       *Member   `json:"member,omitempty"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
