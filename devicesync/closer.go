package devicesync

import (
	"time"

	"gorm.io/gorm"

	"github.com/cppla/gymkit/models"
)

// CloseStaleOpenSessions closes attendance rows that still have a check-in
// but no check-out once their day has fully elapsed, assuming the fallback
// visit duration. A member who forgot to punch out must not stay "in the
// gym" forever. tenantID 0 sweeps all tenants (nightly maintenance).
func CloseStaleOpenSessions(db *gorm.DB, tenantID uint, now time.Time) (int64, error) {
	today := dateOnly(now)

	q := db.Where("check_in_time IS NOT NULL AND check_out_time IS NULL AND date < ?", today)
	if tenantID != 0 {
		q = q.Where("tenant_id = ?", tenantID)
	}

	var open []models.AttendanceRecord
	if err := q.Find(&open).Error; err != nil {
		return 0, err
	}

	var closed int64
	for i := range open {
		rec := &open[i]
		out := rec.CheckInTime.Add(fallbackDuration)
		res := db.Model(rec).Update("check_out_time", out)
		if res.Error != nil {
			return closed, res.Error
		}
		closed += res.RowsAffected
	}
	return closed, nil
}
