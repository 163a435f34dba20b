// Package devicesync turns raw punch-clock logs into attendance records:
// normalize device entries, pair check-ins with check-outs per member per
// day, and reconcile the result against the persisted attendance table.
package devicesync

import "time"

// PunchKind classifies one device event.
type PunchKind int

const (
	KindUnknown PunchKind = iota
	KindCheckIn
	KindCheckOut
)

func (k PunchKind) String() string {
	switch k {
	case KindCheckIn:
		return "CHECK_IN"
	case KindCheckOut:
		return "CHECK_OUT"
	default:
		return "UNKNOWN"
	}
}

// RawPunch is one normalized device event. Purely transient per sync run.
type RawPunch struct {
	DeviceUserID string
	MemberID     uint
	MemberName   string
	Timestamp    time.Time
	Kind         PunchKind
}

// DailySession is the candidate attendance outcome for one member-day.
// Date is always the UTC calendar date of the final check-in (or check-out
// when no check-in exists), never the grouping date of the punches.
type DailySession struct {
	MemberID     uint
	MemberName   string
	DeviceUserID string
	Date         time.Time
	CheckIn      *time.Time
	CheckOut     *time.Time
	// Punches holds the group's events with their resolved kinds, for the
	// sync report.
	Punches []RawPunch
}

// dateOnly truncates t to its UTC calendar date.
func dateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
