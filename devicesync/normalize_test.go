package devicesync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/gymkit/zkproto"
)

func testMappings() map[string]MappedMember {
	return map[string]MappedMember{
		"101": {MemberID: 1, Name: "Ada Lovelace"},
		"102": {MemberID: 2, Name: "Alan Turing"},
	}
}

func TestNormalizeResolvesFields(t *testing.T) {
	n := &Normalizer{Mappings: testMappings()}

	p, ok := n.Normalize(zkproto.Record{
		"deviceUserId": "101",
		"recordTime":   "2026-08-27 08:15:00",
		"type":         float64(0),
	})
	require.True(t, ok)
	assert.Equal(t, "101", p.DeviceUserID)
	assert.Equal(t, uint(1), p.MemberID)
	assert.Equal(t, "Ada Lovelace", p.MemberName)
	assert.Equal(t, KindCheckIn, p.Kind)
	assert.Equal(t, time.Date(2026, 8, 27, 8, 15, 0, 0, time.UTC), p.Timestamp)
}

func TestNormalizeUserIDFieldOrder(t *testing.T) {
	n := &Normalizer{Mappings: testMappings()}

	// deviceUserId wins over id when both are present
	p, ok := n.Normalize(zkproto.Record{
		"deviceUserId": "101",
		"id":           "102",
		"recordTime":   "2026-08-27 08:00:00",
	})
	require.True(t, ok)
	assert.Equal(t, uint(1), p.MemberID)

	// numeric ids resolve through the same lookup
	p, ok = n.Normalize(zkproto.Record{
		"uid":        float64(102),
		"recordTime": "2026-08-27 09:00:00",
	})
	require.True(t, ok)
	assert.Equal(t, uint(2), p.MemberID)
}

func TestNormalizeTimestampForms(t *testing.T) {
	n := &Normalizer{Mappings: testMappings()}
	want := time.Date(2026, 8, 27, 18, 30, 0, 0, time.UTC)

	forms := []zkproto.Record{
		{"id": "101", "recordTime": "2026-08-27T18:30:00Z"},
		{"id": "101", "recordTime": "2026-08-27T18:30:00"},
		{"id": "101", "recordTime": "2026-08-27 18:30:00"},
		{"id": "101", "timestamp": float64(want.Unix())},
	}
	for _, rec := range forms {
		p, ok := n.Normalize(rec)
		require.True(t, ok, "record %v", rec)
		assert.True(t, p.Timestamp.Equal(want), "record %v yielded %v", rec, p.Timestamp)
	}
}

func TestNormalizeKindResolution(t *testing.T) {
	n := &Normalizer{Mappings: testMappings()}

	cases := []struct {
		rec  zkproto.Record
		want PunchKind
	}{
		{zkproto.Record{"id": "101", "recordTime": "2026-08-27 08:00:00", "type": float64(0)}, KindCheckIn},
		{zkproto.Record{"id": "101", "recordTime": "2026-08-27 08:00:00", "type": float64(1)}, KindCheckOut},
		{zkproto.Record{"id": "101", "recordTime": "2026-08-27 08:00:00", "state": float64(0)}, KindCheckIn},
		{zkproto.Record{"id": "101", "recordTime": "2026-08-27 08:00:00", "state": float64(4)}, KindCheckOut},
		{zkproto.Record{"id": "101", "recordTime": "2026-08-27 08:00:00"}, KindUnknown},
	}
	for _, tc := range cases {
		p, ok := n.Normalize(tc.rec)
		require.True(t, ok)
		assert.Equal(t, tc.want, p.Kind, "record %v", tc.rec)
	}
}

func TestNormalizeSkipCounters(t *testing.T) {
	start := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)
	n := &Normalizer{
		Mappings: testMappings(),
		Window:   Window{Start: &start},
	}

	records := []zkproto.Record{
		{"id": "101"},                                          // no timestamp
		{"id": "101", "recordTime": "99-99"},                   // unparseable timestamp
		{"id": "101", "recordTime": "2026-08-20 08:00:00"},     // before window
		{"recordTime": "2026-08-27 08:00:00"},                  // no user id
		{"id": "999", "recordTime": "2026-08-27 08:00:00"},     // unmapped
		{"id": "101", "recordTime": "2026-08-27 08:00:00"},     // kept
	}
	kept := 0
	for _, rec := range records {
		if _, ok := n.Normalize(rec); ok {
			kept++
		}
	}

	assert.Equal(t, 1, kept)
	assert.Equal(t, 6, n.Counters.Total)
	assert.Equal(t, 2, n.Counters.NoTimestamp)
	assert.Equal(t, 1, n.Counters.DateFiltered)
	assert.Equal(t, 1, n.Counters.NoUserID)
	assert.Equal(t, 1, n.Counters.Unmapped)
}

func TestWindowBounds(t *testing.T) {
	start := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	w := Window{Start: &start, End: &end}

	// start is exclusive, end inclusive
	assert.False(t, w.contains(start))
	assert.True(t, w.contains(start.Add(time.Second)))
	assert.True(t, w.contains(end))
	assert.False(t, w.contains(end.Add(time.Second)))

	assert.True(t, Window{}.contains(time.Now()))
}
