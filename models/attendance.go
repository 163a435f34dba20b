package models

import "time"

// Attendance statuses.
const (
	AttendanceStatusPresent = "present"
	AttendanceStatusAbsent  = "absent"
	AttendanceStatusLate    = "late"
)

// AttendanceRecord is the durable outcome of one member's gym day.
// At most one row exists per (tenant_id, member_id, date); the device sync
// pipeline owns these rows and only ever widens the check-in/check-out bounds.
type AttendanceRecord struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	TenantID           uint       `gorm:"uniqueIndex:idx_attendance_day,priority:1;not null" json:"tenant_id"`
	MemberID           uint       `gorm:"uniqueIndex:idx_attendance_day,priority:2;not null" json:"member_id"`
	Date               time.Time  `gorm:"uniqueIndex:idx_attendance_day,priority:3;not null" json:"date"`
	Status             string     `gorm:"size:16;default:'present'" json:"status"`
	CheckInTime        *time.Time `json:"check_in_time"`
	CheckOutTime       *time.Time `json:"check_out_time"`
	DeviceUserID       string     `gorm:"size:64" json:"device_user_id,omitempty"`
	DeviceSerialNumber string     `gorm:"size:64" json:"device_serial_number,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`

	Member *Member `gorm:"foreignKey:MemberID" json:"member,omitempty"`
}
