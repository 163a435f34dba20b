package devicesync

import (
	"sort"
	"time"
)

// fallbackDuration is assumed when a session has only one bound: a lone
// check-in gets a one hour visit, a lone check-out a one hour lead-in.
const fallbackDuration = time.Hour

type groupKey struct {
	memberID uint
	day      time.Time
}

// Aggregate groups punches by member and calendar day of the punch, resolves
// unknown kinds, and emits one session per group. Sessions always carry both
// bounds; the missing side is synthesized.
func Aggregate(punches []RawPunch) []DailySession {
	groups := make(map[groupKey][]RawPunch)
	for _, p := range punches {
		k := groupKey{memberID: p.MemberID, day: dateOnly(p.Timestamp)}
		groups[k] = append(groups[k], p)
	}

	sessions := make([]DailySession, 0, len(groups))
	for _, group := range groups {
		if s, ok := buildSession(group); ok {
			sessions = append(sessions, s)
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].MemberID != sessions[j].MemberID {
			return sessions[i].MemberID < sessions[j].MemberID
		}
		return sessions[i].Date.Before(sessions[j].Date)
	})
	return sessions
}

// buildSession resolves one group into a session. Unknown kinds are decided
// by a fold over the chronologically sorted punches, so each decision sees
// every punch classified before it.
func buildSession(group []RawPunch) (DailySession, bool) {
	if len(group) == 0 {
		return DailySession{}, false
	}

	sort.Slice(group, func(i, j int) bool {
		return group[i].Timestamp.Before(group[j].Timestamp)
	})

	var checkIns, checkOuts []time.Time
	resolved := make([]RawPunch, 0, len(group))
	for _, p := range group {
		kind := p.Kind
		if kind == KindUnknown {
			kind = inferKind(p.Timestamp, checkIns, checkOuts)
		}
		if kind == KindCheckIn {
			checkIns = append(checkIns, p.Timestamp)
		} else {
			checkOuts = append(checkOuts, p.Timestamp)
		}
		p.Kind = kind
		resolved = append(resolved, p)
	}

	// Devices log duplicate/retry punches: keep the earliest check-in and
	// the latest check-out, not the first encountered.
	var checkIn, checkOut *time.Time
	if len(checkIns) > 0 {
		t := earliest(checkIns)
		checkIn = &t
	}
	if len(checkOuts) > 0 {
		t := latest(checkOuts)
		checkOut = &t
	}
	if checkIn == nil && checkOut == nil {
		return DailySession{}, false
	}

	// The session date is fixed by the chosen check-in (check-out when no
	// check-in was punched), before any synthesis shifts an instant across
	// midnight.
	var date time.Time
	if checkIn != nil {
		date = dateOnly(*checkIn)
	} else {
		date = dateOnly(*checkOut)
	}

	if checkOut == nil {
		t := checkIn.Add(fallbackDuration)
		checkOut = &t
	}
	if checkIn == nil {
		t := checkOut.Add(-fallbackDuration)
		checkIn = &t
	}
	if !checkOut.After(*checkIn) {
		t := checkIn.Add(fallbackDuration)
		checkOut = &t
	}

	first := resolved[0]
	return DailySession{
		MemberID:     first.MemberID,
		MemberName:   first.MemberName,
		DeviceUserID: first.DeviceUserID,
		Date:         date,
		CheckIn:      checkIn,
		CheckOut:     checkOut,
		Punches:      resolved,
	}, true
}

// inferKind applies the tie-break rules for a punch without an explicit
// type, against the punches classified so far:
//  1. earlier than every known check-in: check-in
//  2. later than every known check-out: check-out
//  3. both sides known: nearest boundary wins (check-in on a tie)
//  4. only check-ins known: after the latest one means check-out
//  5. only check-outs known: before the earliest one means check-in
//  6. nothing known yet: check-in
//
// Note a day consisting of exactly two check-in-type punches still collapses
// to in/out under rule 4; that matches the deployed behavior and is accepted
// as a known limitation for glitching devices.
func inferKind(t time.Time, checkIns, checkOuts []time.Time) PunchKind {
	switch {
	case len(checkIns) > 0 && t.Before(earliest(checkIns)):
		return KindCheckIn
	case len(checkOuts) > 0 && t.After(latest(checkOuts)):
		return KindCheckOut
	case len(checkIns) > 0 && len(checkOuts) > 0:
		toIn := absDuration(t.Sub(earliest(checkIns)))
		toOut := absDuration(latest(checkOuts).Sub(t))
		if toIn <= toOut {
			return KindCheckIn
		}
		return KindCheckOut
	case len(checkIns) > 0:
		if t.After(latest(checkIns)) {
			return KindCheckOut
		}
		return KindCheckIn
	case len(checkOuts) > 0:
		if t.Before(earliest(checkOuts)) {
			return KindCheckIn
		}
		return KindCheckOut
	default:
		return KindCheckIn
	}
}

func earliest(ts []time.Time) time.Time {
	min := ts[0]
	for _, t := range ts[1:] {
		if t.Before(min) {
			min = t
		}
	}
	return min
}

func latest(ts []time.Time) time.Time {
	max := ts[0]
	for _, t := range ts[1:] {
		if t.After(max) {
			max = t
		}
	}
	return max
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
