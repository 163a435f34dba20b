package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/gymkit/models"
	"github.com/cppla/gymkit/utils"
)

// DashboardController serves aggregate stats for the front page.
type DashboardController struct {
	db *gorm.DB
}

// NewDashboardController creates a new controller instance.
func NewDashboardController(db *gorm.DB) *DashboardController {
	return &DashboardController{db: db}
}

type dashboardStats struct {
	TotalMembers      int64   `json:"total_members"`
	ActiveMembers     int64   `json:"active_members"`
	CheckInsToday     int64   `json:"check_ins_today"`
	CheckInsThisMonth int64   `json:"check_ins_this_month"`
	RevenueThisMonth  float64 `json:"revenue_this_month"`
	ActiveDevices     int64   `json:"active_devices"`
}

// Stats returns tenant-wide counters, cached for a minute to keep the
// front page off the database.
func (d *DashboardController) Stats(ctx *gin.Context) {
	tenantID, ok := tenantScope(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	cacheKey := fmt.Sprintf("gymkit:dashboard:stats:%d", tenantID)
	var stats dashboardStats
	if utils.CacheGetJSON(cacheKey, &stats) {
		utils.Success(ctx, stats)
		return
	}

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	d.db.Model(&models.Member{}).Where("tenant_id = ?", tenantID).Count(&stats.TotalMembers)
	d.db.Model(&models.Member{}).Where("tenant_id = ? AND is_active = ?", tenantID, true).Count(&stats.ActiveMembers)
	d.db.Model(&models.AttendanceRecord{}).
		Where("tenant_id = ? AND date = ?", tenantID, today).
		Count(&stats.CheckInsToday)
	d.db.Model(&models.AttendanceRecord{}).
		Where("tenant_id = ? AND date >= ?", tenantID, monthStart).
		Count(&stats.CheckInsThisMonth)
	d.db.Model(&models.Payment{}).
		Where("tenant_id = ? AND status = ? AND created_at >= ?", tenantID, models.PaymentStatusPaid, monthStart).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&stats.RevenueThisMonth)
	d.db.Model(&models.Device{}).Where("tenant_id = ? AND is_active = ?", tenantID, true).Count(&stats.ActiveDevices)

	utils.CacheSetJSON(cacheKey, stats, time.Minute)
	utils.Success(ctx, stats)
}

// RecentAttendance returns the tenant's latest attendance records.
func (d *DashboardController) RecentAttendance(ctx *gin.Context) {
	tenantID, ok := tenantScope(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	limit := 20
	var records []models.AttendanceRecord
	if err := d.db.Preload("Member").
		Where("tenant_id = ?", tenantID).
		Order("date DESC, check_in_time DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50070, "failed to load recent attendance")
		return
	}
	utils.Success(ctx, records)
}
