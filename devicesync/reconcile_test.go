package devicesync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cppla/gymkit/models"
)

func testWriter(db *gorm.DB) *Writer {
	return &Writer{DB: db, TenantID: 1, SerialNumber: "ZK-TEST-01"}
}

func session(memberID uint, checkIn, checkOut time.Time) DailySession {
	return DailySession{
		MemberID:     memberID,
		DeviceUserID: "101",
		Date:         dateOnly(checkIn),
		CheckIn:      &checkIn,
		CheckOut:     &checkOut,
	}
}

func countRecords(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.AttendanceRecord{}).Count(&n).Error)
	return n
}

func TestWriteCreatesRecord(t *testing.T) {
	db := testDB(t)
	w := testWriter(db)

	sess := session(1, at(8, 0), at(17, 0))
	outcome, deleted, err := w.Write(sess)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)
	assert.Zero(t, deleted)

	var rec models.AttendanceRecord
	require.NoError(t, db.First(&rec).Error)
	assert.Equal(t, uint(1), rec.TenantID)
	assert.Equal(t, uint(1), rec.MemberID)
	assert.Equal(t, models.AttendanceStatusPresent, rec.Status)
	assert.Equal(t, "101", rec.DeviceUserID)
	assert.Equal(t, "ZK-TEST-01", rec.DeviceSerialNumber)
	assert.True(t, rec.CheckInTime.Equal(at(8, 0)))
	assert.True(t, rec.CheckOutTime.Equal(at(17, 0)))
}

func TestWriteIsIdempotent(t *testing.T) {
	db := testDB(t)
	w := testWriter(db)
	sess := session(1, at(8, 0), at(17, 0))

	outcome, _, err := w.Write(sess)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)

	// same session again: nothing created, nothing updated
	outcome, deleted, err := w.Write(sess)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, outcome)
	assert.Zero(t, deleted)
	assert.EqualValues(t, 1, countRecords(t, db))
}

func TestWriteWidensBoundsOnly(t *testing.T) {
	db := testDB(t)
	w := testWriter(db)

	_, _, err := w.Write(session(1, at(9, 0), at(16, 0)))
	require.NoError(t, err)

	// wider bounds win
	outcome, _, err := w.Write(session(1, at(8, 0), at(17, 0)))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, outcome)

	// narrower bounds never shrink the stored record
	outcome, _, err = w.Write(session(1, at(10, 0), at(15, 0)))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, outcome)

	var rec models.AttendanceRecord
	require.NoError(t, db.First(&rec).Error)
	assert.True(t, rec.CheckInTime.Equal(at(8, 0)))
	assert.True(t, rec.CheckOutTime.Equal(at(17, 0)))
}

func TestWriteRejectsEmptySession(t *testing.T) {
	db := testDB(t)
	w := testWriter(db)

	_, _, err := w.Write(DailySession{MemberID: 1, Date: dateOnly(at(8, 0))})
	require.Error(t, err)
	assert.Zero(t, countRecords(t, db))
}

func TestWriteRepairsMismatchedDate(t *testing.T) {
	db := testDB(t)
	w := testWriter(db)

	// a row stored under the wrong day, as the old grouping logic produced:
	// timestamps belong to the 27th but the row says the 28th
	in, out := at(23, 30), at(23, 45)
	wrongDate := dateOnly(in).AddDate(0, 0, 1)
	require.NoError(t, db.Create(&models.AttendanceRecord{
		TenantID:     1,
		MemberID:     1,
		Date:         wrongDate,
		Status:       models.AttendanceStatusPresent,
		CheckInTime:  &in,
		CheckOutTime: &out,
	}).Error)

	outcome, deleted, err := w.Write(session(1, in, out))
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.Equal(t, OutcomeCreated, outcome)

	var recs []models.AttendanceRecord
	require.NoError(t, db.Find(&recs).Error)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].Date.Equal(dateOnly(in)))
}

func TestWriteLeavesOtherDaysAlone(t *testing.T) {
	db := testDB(t)
	w := testWriter(db)

	// a legitimate row on another day must survive reconciliation
	prevIn, prevOut := at(8, 0).AddDate(0, 0, -1), at(9, 0).AddDate(0, 0, -1)
	require.NoError(t, db.Create(&models.AttendanceRecord{
		TenantID:     1,
		MemberID:     1,
		Date:         dateOnly(prevIn),
		Status:       models.AttendanceStatusPresent,
		CheckInTime:  &prevIn,
		CheckOutTime: &prevOut,
	}).Error)

	_, deleted, err := w.Write(session(1, at(8, 0), at(17, 0)))
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.EqualValues(t, 2, countRecords(t, db))
}

func TestWriteScopedToTenant(t *testing.T) {
	db := testDB(t)

	// same member id under another tenant must not collide
	w1 := &Writer{DB: db, TenantID: 1}
	w2 := &Writer{DB: db, TenantID: 2}

	_, _, err := w1.Write(session(1, at(8, 0), at(17, 0)))
	require.NoError(t, err)
	outcome, _, err := w2.Write(session(1, at(9, 0), at(18, 0)))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)
	assert.EqualValues(t, 2, countRecords(t, db))
}

func TestWipeTenant(t *testing.T) {
	db := testDB(t)
	w := testWriter(db)

	_, _, err := w.Write(session(1, at(8, 0), at(17, 0)))
	require.NoError(t, err)
	other := &Writer{DB: db, TenantID: 2}
	_, _, err = other.Write(session(1, at(8, 0), at(17, 0)))
	require.NoError(t, err)

	wiped, err := w.WipeTenant()
	require.NoError(t, err)
	assert.EqualValues(t, 1, wiped)

	// the other tenant's data survives
	assert.EqualValues(t, 1, countRecords(t, db))
}

func TestWidenBackfillsDeviceFields(t *testing.T) {
	db := testDB(t)

	// a manually entered row has no device provenance
	require.NoError(t, db.Create(&models.AttendanceRecord{
		TenantID: 1,
		MemberID: 1,
		Date:     dateOnly(at(8, 0)),
		Status:   models.AttendanceStatusPresent,
	}).Error)

	w := testWriter(db)
	outcome, _, err := w.Write(session(1, at(8, 0), at(17, 0)))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, outcome)

	var rec models.AttendanceRecord
	require.NoError(t, db.First(&rec).Error)
	assert.Equal(t, "101", rec.DeviceUserID)
	assert.Equal(t, "ZK-TEST-01", rec.DeviceSerialNumber)
}
