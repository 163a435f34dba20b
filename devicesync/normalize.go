package devicesync

import (
	"time"

	"github.com/cppla/gymkit/zkproto"
)

// Device generations disagree on field names; resolution order is fixed.
var (
	userIDFields    = []string{"deviceUserId", "id", "uid", "userId", "userSn"}
	recordTimeForms = []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}
)

// MappedMember is the member a device-local user id resolves to.
type MappedMember struct {
	MemberID uint
	Name     string
}

// SkipCounters tracks why entries were dropped during normalization.
// All four categories are reported in the sync summary.
type SkipCounters struct {
	Total        int `json:"total"`
	NoTimestamp  int `json:"noTimestamp"`
	DateFiltered int `json:"dateFiltered"`
	NoUserID     int `json:"noUserId"`
	Unmapped     int `json:"unmapped"`
}

// Window bounds the punches a run considers. Start is exclusive (strictly
// after the device's last sync), End inclusive. Nil means unbounded.
type Window struct {
	Start *time.Time
	End   *time.Time
}

func (w Window) contains(t time.Time) bool {
	if w.Start != nil && !t.After(*w.Start) {
		return false
	}
	if w.End != nil && t.After(*w.End) {
		return false
	}
	return true
}

// Normalizer converts raw device records into RawPunches against the active
// mapping set of one device.
type Normalizer struct {
	Mappings map[string]MappedMember
	Window   Window
	Counters SkipCounters
}

// Normalize resolves one record. The second return is false when the entry
// was skipped; the reason is accumulated in Counters.
func (n *Normalizer) Normalize(rec zkproto.Record) (RawPunch, bool) {
	n.Counters.Total++

	ts, ok := resolveTimestamp(rec)
	if !ok {
		n.Counters.NoTimestamp++
		return RawPunch{}, false
	}
	if !n.Window.contains(ts) {
		n.Counters.DateFiltered++
		return RawPunch{}, false
	}

	userID, ok := resolveUserID(rec)
	if !ok {
		n.Counters.NoUserID++
		return RawPunch{}, false
	}

	mapped, ok := n.Mappings[userID]
	if !ok {
		n.Counters.Unmapped++
		return RawPunch{}, false
	}

	return RawPunch{
		DeviceUserID: userID,
		MemberID:     mapped.MemberID,
		MemberName:   mapped.Name,
		Timestamp:    ts,
		Kind:         resolveKind(rec),
	}, true
}

// resolveTimestamp prefers the ISO-like recordTime field, then epoch seconds.
func resolveTimestamp(rec zkproto.Record) (time.Time, bool) {
	if s, ok := rec.String("recordTime"); ok {
		for _, layout := range recordTimeForms {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
	}
	if epoch, ok := rec.Int("timestamp"); ok && epoch > 0 {
		return time.Unix(epoch, 0).UTC(), true
	}
	return time.Time{}, false
}

func resolveUserID(rec zkproto.Record) (string, bool) {
	for _, field := range userIDFields {
		if s, ok := rec.String(field); ok {
			return s, true
		}
	}
	return "", false
}

// resolveKind reads the explicit type/state field: 0 means check-in,
// anything else check-out. Firmware that omits both leaves the kind unknown
// for the aggregator to infer from arrival order.
func resolveKind(rec zkproto.Record) PunchKind {
	if v, ok := rec.Int("type"); ok {
		if v == 0 {
			return KindCheckIn
		}
		return KindCheckOut
	}
	if v, ok := rec.Int("state"); ok {
		if v == 0 {
			return KindCheckIn
		}
		return KindCheckOut
	}
	return KindUnknown
}
