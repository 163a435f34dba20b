package devicesync

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/cppla/gymkit/models"
)

// Writer merges finalized sessions into the attendance table. Writes are
// per-record; a failed session is counted and the batch continues.
type Writer struct {
	DB           *gorm.DB
	TenantID     uint
	SerialNumber string
}

// WriteStats accumulates reconciliation outcomes for the sync summary.
type WriteStats struct {
	Created int
	Updated int
	Deleted int
	Errors  int
}

// WriteOutcome says what the upsert did to the member-day row.
type WriteOutcome int

const (
	OutcomeUnchanged WriteOutcome = iota
	OutcomeCreated
	OutcomeUpdated
)

// WipeTenant deletes every attendance row of the tenant. Full resync only.
func (w *Writer) WipeTenant() (int64, error) {
	res := w.DB.Where("tenant_id = ?", w.TenantID).Delete(&models.AttendanceRecord{})
	return res.RowsAffected, res.Error
}

// Write reconciles one session: repair rows dated under the wrong day, then
// create or widen the row for the target date. Returns what happened to the
// row and how many stale rows were removed.
func (w *Writer) Write(sess DailySession) (outcome WriteOutcome, deleted int, err error) {
	if sess.CheckIn == nil && sess.CheckOut == nil {
		// device sync never writes a record without timestamps
		return OutcomeUnchanged, 0, errors.New("session has no timestamps")
	}

	deleted, err = w.repairMismatchedDates(sess)
	if err != nil {
		return OutcomeUnchanged, deleted, fmt.Errorf("mismatch repair: %w", err)
	}

	outcome, err = w.upsert(sess)
	return outcome, deleted, err
}

// repairMismatchedDates removes the member's rows whose stored date disagrees
// with the UTC calendar date of their own timestamps when that real date is
// the session's target. Such rows were written by the old grouping-date
// logic and would otherwise duplicate the corrected session.
func (w *Writer) repairMismatchedDates(sess DailySession) (int, error) {
	var stale []models.AttendanceRecord
	err := w.DB.
		Where("tenant_id = ? AND member_id = ? AND date <> ?", w.TenantID, sess.MemberID, sess.Date).
		Where("check_in_time IS NOT NULL OR check_out_time IS NOT NULL").
		Find(&stale).Error
	if err != nil {
		return 0, err
	}

	// Date arithmetic differs across SQL dialects, so the UTC-date check
	// happens here rather than in the query.
	ids := make([]uint, 0, len(stale))
	for _, rec := range stale {
		if rec.CheckInTime != nil && dateOnly(*rec.CheckInTime).Equal(sess.Date) {
			ids = append(ids, rec.ID)
			continue
		}
		if rec.CheckOutTime != nil && dateOnly(*rec.CheckOutTime).Equal(sess.Date) {
			ids = append(ids, rec.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := w.DB.Delete(&models.AttendanceRecord{}, ids)
	return len(ids), res.Error
}

// upsert creates the member-day row or widens its bounds. Stored bounds are
// never narrowed: a new check-in only wins when earlier, a new check-out
// only when later.
func (w *Writer) upsert(sess DailySession) (WriteOutcome, error) {
	var existing models.AttendanceRecord
	err := w.DB.
		Where("tenant_id = ? AND member_id = ? AND date = ?", w.TenantID, sess.MemberID, sess.Date).
		First(&existing).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		rec := models.AttendanceRecord{
			TenantID:           w.TenantID,
			MemberID:           sess.MemberID,
			Date:               sess.Date,
			Status:             models.AttendanceStatusPresent,
			CheckInTime:        sess.CheckIn,
			CheckOutTime:       sess.CheckOut,
			DeviceUserID:       sess.DeviceUserID,
			DeviceSerialNumber: w.SerialNumber,
		}
		if createErr := w.DB.Create(&rec).Error; createErr != nil {
			// benign create race: another sync inserted the same key first,
			// fall back to widening that row
			if findErr := w.DB.
				Where("tenant_id = ? AND member_id = ? AND date = ?", w.TenantID, sess.MemberID, sess.Date).
				First(&existing).Error; findErr != nil {
				return OutcomeUnchanged, createErr
			}
			return w.widen(&existing, sess)
		}
		return OutcomeCreated, nil
	}
	if err != nil {
		return OutcomeUnchanged, err
	}

	return w.widen(&existing, sess)
}

func (w *Writer) widen(rec *models.AttendanceRecord, sess DailySession) (WriteOutcome, error) {
	changed := false
	if sess.CheckIn != nil && (rec.CheckInTime == nil || sess.CheckIn.Before(*rec.CheckInTime)) {
		rec.CheckInTime = sess.CheckIn
		changed = true
	}
	if sess.CheckOut != nil && (rec.CheckOutTime == nil || sess.CheckOut.After(*rec.CheckOutTime)) {
		rec.CheckOutTime = sess.CheckOut
		changed = true
	}
	if !changed {
		return OutcomeUnchanged, nil
	}
	if rec.DeviceUserID == "" {
		rec.DeviceUserID = sess.DeviceUserID
	}
	if rec.DeviceSerialNumber == "" {
		rec.DeviceSerialNumber = w.SerialNumber
	}
	if err := w.DB.Save(rec).Error; err != nil {
		return OutcomeUnchanged, err
	}
	return OutcomeUpdated, nil
}
