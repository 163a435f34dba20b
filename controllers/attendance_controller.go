package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/gymkit/models"
	"github.com/cppla/gymkit/utils"
)

// AttendanceController serves attendance queries and manual entries. Manual
// entries write into the same table as the device sync under the same
// one-row-per-member-day invariant.
type AttendanceController struct {
	db *gorm.DB
}

// NewAttendanceController creates a new controller instance.
func NewAttendanceController(db *gorm.DB) *AttendanceController {
	return &AttendanceController{db: db}
}

// ListAttendance returns records filtered by member and day range.
func (a *AttendanceController) ListAttendance(ctx *gin.Context) {
	tenantID, ok := tenantScope(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	page, pageSize := pageParams(ctx)

	q := a.db.Model(&models.AttendanceRecord{}).Where("tenant_id = ?", tenantID)
	if memberID := ctx.Query("member_id"); memberID != "" {
		q = q.Where("member_id = ?", memberID)
	}
	if from, ok := parseDate(ctx.Query("from")); ok {
		q = q.Where("date >= ?", from)
	}
	if to, ok := parseDate(ctx.Query("to")); ok {
		q = q.Where("date <= ?", to)
	}

	var total int64
	q.Count(&total)

	var records []models.AttendanceRecord
	if err := q.Order("date DESC, member_id").Offset((page - 1) * pageSize).Limit(pageSize).Find(&records).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to list attendance")
		return
	}
	utils.Success(ctx, gin.H{"items": records, "total": total, "page": page, "page_size": pageSize})
}

type manualAttendancePayload struct {
	MemberID     uint       `json:"member_id" binding:"required"`
	Date         string     `json:"date" binding:"required"`
	Status       string     `json:"status" binding:"omitempty,oneof=present absent late"`
	CheckInTime  *time.Time `json:"check_in_time"`
	CheckOutTime *time.Time `json:"check_out_time"`
}

// CreateManual records attendance by hand (front desk). If the member-day
// row already exists the entry is rejected rather than silently merged; the
// device pipeline owns merging semantics.
func (a *AttendanceController) CreateManual(ctx *gin.Context) {
	tenantID, ok := tenantScope(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req manualAttendancePayload
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40051, "invalid attendance payload")
		return
	}
	date, ok := parseDate(req.Date)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40052, "date must be YYYY-MM-DD")
		return
	}

	var member models.Member
	if err := a.db.Where("tenant_id = ?", tenantID).First(&member, req.MemberID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40410, "member not found")
		return
	}

	var existing models.AttendanceRecord
	err := a.db.Where("tenant_id = ? AND member_id = ? AND date = ?", tenantID, req.MemberID, date).
		First(&existing).Error
	if err == nil {
		utils.Error(ctx, http.StatusConflict, 40950, "attendance already recorded for this day")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to check attendance")
		return
	}

	status := req.Status
	if status == "" {
		status = models.AttendanceStatusPresent
	}
	record := models.AttendanceRecord{
		TenantID:     tenantID,
		MemberID:     req.MemberID,
		Date:         date,
		Status:       status,
		CheckInTime:  req.CheckInTime,
		CheckOutTime: req.CheckOutTime,
	}
	if err := a.db.Create(&record).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50052, "failed to create attendance")
		return
	}
	utils.Success(ctx, record)
}

// DeleteAttendance removes one record.
func (a *AttendanceController) DeleteAttendance(ctx *gin.Context) {
	tenantID, ok := tenantScope(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid attendance id")
		return
	}

	res := a.db.Where("tenant_id = ?", tenantID).Delete(&models.AttendanceRecord{}, id)
	if res.Error != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50053, "failed to delete attendance")
		return
	}
	if res.RowsAffected == 0 {
		utils.Error(ctx, http.StatusNotFound, 40450, "attendance record not found")
		return
	}
	utils.Success(ctx, gin.H{"deleted": id})
}
