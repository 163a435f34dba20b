package devicesync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cppla/gymkit/models"
	"github.com/cppla/gymkit/zkproto"
)

type fakeTransport struct {
	records  []zkproto.Record
	fetchErr error
	closed   bool
}

func (f *fakeTransport) FetchUsers() ([]zkproto.Record, error) { return f.records, nil }
func (f *fakeTransport) FetchLogs(retries int) ([]zkproto.Record, error) {
	return f.records, f.fetchErr
}
func (f *fakeTransport) ClearLogs() error            { return nil }
func (f *fakeTransport) GetTime() (time.Time, error) { return time.Now(), nil }
func (f *fakeTransport) SetTime(t time.Time) error   { return nil }
func (f *fakeTransport) Close() error                { f.closed = true; return nil }

func testService(t *testing.T, db *gorm.DB, transport *fakeTransport) *Service {
	t.Helper()
	svc := NewService(db, nil, nil, Options{})
	svc.SetDialer(func(addr string, opts zkproto.Options) (Transport, error) {
		return transport, nil
	})
	return svc
}

// seedDevice creates a device with one mapped member, device user id "101".
func seedDevice(t *testing.T, db *gorm.DB) *models.Device {
	t.Helper()
	member := models.Member{TenantID: 1, FullName: "Ada Lovelace", IsActive: true}
	require.NoError(t, db.Create(&member).Error)

	device := models.Device{TenantID: 1, Name: "front door", IP: "192.0.2.10", Port: 4370, SerialNumber: "ZK-TEST-01", IsActive: true}
	require.NoError(t, db.Create(&device).Error)

	require.NoError(t, db.Create(&models.DeviceUserMapping{
		TenantID:     1,
		DeviceID:     device.ID,
		DeviceUserID: "101",
		MemberID:     member.ID,
		IsActive:     true,
	}).Error)
	return &device
}

func logRecord(id, recordTime string, kind int) zkproto.Record {
	return zkproto.Record{"deviceUserId": id, "recordTime": recordTime, "type": float64(kind)}
}

func TestServiceRunCreatesAttendance(t *testing.T) {
	db := testDB(t)
	device := seedDevice(t, db)
	transport := &fakeTransport{records: []zkproto.Record{
		logRecord("101", "2026-08-27 08:00:00", 0),
		logRecord("101", "2026-08-27 17:00:00", 1),
		logRecord("999", "2026-08-27 08:30:00", 0), // nobody mapped
	}}
	svc := testService(t, db, transport)

	res, err := svc.Run(context.Background(), device, RunOptions{})
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 1, res.CheckIns)
	assert.Equal(t, 1, res.CheckOuts)
	assert.Equal(t, 1, res.Synced)
	assert.Zero(t, res.Errors)
	assert.Equal(t, 1, res.Summary.Skipped.Unmapped)
	require.Len(t, res.Logs, 2)
	assert.Equal(t, "CHECK_IN", res.Logs[0].EventType)
	assert.Equal(t, "Ada Lovelace", res.Logs[0].Member)

	var rec models.AttendanceRecord
	require.NoError(t, db.First(&rec).Error)
	assert.True(t, rec.CheckInTime.Equal(time.Date(2026, 8, 27, 8, 0, 0, 0, time.UTC)))
	assert.True(t, rec.CheckOutTime.Equal(time.Date(2026, 8, 27, 17, 0, 0, 0, time.UTC)))

	// connection released, last sync advanced
	assert.True(t, transport.closed)
	var reloaded models.Device
	require.NoError(t, db.First(&reloaded, device.ID).Error)
	assert.NotNil(t, reloaded.LastSyncAt)
}

func TestServiceRunIsIdempotent(t *testing.T) {
	db := testDB(t)
	device := seedDevice(t, db)
	transport := &fakeTransport{records: []zkproto.Record{
		logRecord("101", "2026-08-27 08:00:00", 0),
		logRecord("101", "2026-08-27 17:00:00", 1),
	}}
	svc := testService(t, db, transport)

	res, err := svc.Run(context.Background(), device, RunOptions{FullSync: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Synced)

	// a second full run over the same logs changes nothing
	res, err = svc.Run(context.Background(), device, RunOptions{FullSync: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Synced) // the wipe forces a clean re-create

	res, err = svc.Run(context.Background(), device, RunOptions{
		FullSync: false,
		StartDate: func() *time.Time {
			d := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
			return &d
		}(),
	})
	require.NoError(t, err)
	assert.Zero(t, res.Synced)

	var n int64
	require.NoError(t, db.Model(&models.AttendanceRecord{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestServiceIncrementalWindow(t *testing.T) {
	db := testDB(t)
	device := seedDevice(t, db)
	last := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	device.LastSyncAt = &last
	require.NoError(t, db.Save(device).Error)

	transport := &fakeTransport{records: []zkproto.Record{
		logRecord("101", "2026-08-27 08:00:00", 0), // before last sync
		logRecord("101", "2026-08-27 17:00:00", 1),
	}}
	svc := testService(t, db, transport)

	res, err := svc.Run(context.Background(), device, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.Skipped.DateFiltered)
	assert.Equal(t, 1, res.Synced)
	assert.Equal(t, "2026-08-27", res.Summary.DateRange.Start)
	assert.NotNil(t, res.Summary.PreviousSyncAt)

	// only the in-window check-out landed; the check-in was synthesized
	var rec models.AttendanceRecord
	require.NoError(t, db.First(&rec).Error)
	assert.True(t, rec.CheckOutTime.Equal(time.Date(2026, 8, 27, 17, 0, 0, 0, time.UTC)))
	assert.True(t, rec.CheckInTime.Equal(time.Date(2026, 8, 27, 16, 0, 0, 0, time.UTC)))
}

func TestServiceFullResyncWipesTenant(t *testing.T) {
	db := testDB(t)
	device := seedDevice(t, db)

	// stale row from an earlier, buggy run
	staleIn := time.Date(2026, 8, 20, 8, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&models.AttendanceRecord{
		TenantID:    1,
		MemberID:    42,
		Date:        dateOnly(staleIn),
		Status:      models.AttendanceStatusPresent,
		CheckInTime: &staleIn,
	}).Error)

	transport := &fakeTransport{records: []zkproto.Record{
		logRecord("101", "2026-08-27 08:00:00", 0),
		logRecord("101", "2026-08-27 17:00:00", 1),
	}}
	svc := testService(t, db, transport)

	res, err := svc.Run(context.Background(), device, RunOptions{FullSync: true})
	require.NoError(t, err)
	assert.True(t, res.Summary.IsFullSync)
	assert.Equal(t, 1, res.Deleted)

	var recs []models.AttendanceRecord
	require.NoError(t, db.Find(&recs).Error)
	require.Len(t, recs, 1)
	assert.NotEqual(t, uint(42), recs[0].MemberID)
}

func TestServiceClosesStaleSessionsDuringRun(t *testing.T) {
	db := testDB(t)
	device := seedDevice(t, db)

	yesterdayIn := time.Now().UTC().AddDate(0, 0, -1).Truncate(time.Hour)
	require.NoError(t, db.Create(&models.AttendanceRecord{
		TenantID:    1,
		MemberID:    7,
		Date:        dateOnly(yesterdayIn),
		Status:      models.AttendanceStatusPresent,
		CheckInTime: &yesterdayIn,
	}).Error)

	// a run with an empty log still sweeps open sessions
	svc := testService(t, db, &fakeTransport{})
	_, err := svc.Run(context.Background(), device, RunOptions{})
	require.NoError(t, err)

	var rec models.AttendanceRecord
	require.NoError(t, db.Where("member_id = ?", 7).First(&rec).Error)
	require.NotNil(t, rec.CheckOutTime)
	assert.True(t, rec.CheckOutTime.Equal(yesterdayIn.Add(time.Hour)))
}

func TestServiceRejectsConcurrentRuns(t *testing.T) {
	db := testDB(t)
	device := seedDevice(t, db)
	svc := testService(t, db, &fakeTransport{})

	// hold the device's slot the way a running sync would
	unlock, err := svc.lockDevice(context.Background(), device.ID)
	require.NoError(t, err)
	defer unlock()

	_, err = svc.Run(context.Background(), device, RunOptions{})
	assert.ErrorIs(t, err, ErrSyncInProgress)
}

func TestServiceDialFailureAborts(t *testing.T) {
	db := testDB(t)
	device := seedDevice(t, db)

	svc := NewService(db, nil, nil, Options{})
	svc.SetDialer(func(addr string, opts zkproto.Options) (Transport, error) {
		return nil, &zkproto.ConnectionError{Addr: addr}
	})

	_, err := svc.Run(context.Background(), device, RunOptions{})
	require.Error(t, err)
	var cerr *zkproto.ConnectionError
	assert.ErrorAs(t, err, &cerr)

	// last sync must not advance on a failed run
	var reloaded models.Device
	require.NoError(t, db.First(&reloaded, device.ID).Error)
	assert.Nil(t, reloaded.LastSyncAt)
}
