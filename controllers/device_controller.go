package controllers

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/gymkit/config"
	"github.com/cppla/gymkit/devicesync"
	"github.com/cppla/gymkit/models"
	"github.com/cppla/gymkit/utils"
	"github.com/cppla/gymkit/zkproto"
)

// DeviceController manages punch clock endpoints: device CRUD, user id
// mappings, clock maintenance, and the attendance sync trigger.
type DeviceController struct {
	db   *gorm.DB
	sync *devicesync.Service
}

// NewDeviceController creates a new controller instance.
func NewDeviceController(db *gorm.DB, sync *devicesync.Service) *DeviceController {
	return &DeviceController{db: db, sync: sync}
}

type devicePayload struct {
	Name         string `json:"name" binding:"omitempty,max=128"`
	IP           string `json:"ip" binding:"required,ip"`
	Port         int    `json:"port" binding:"omitempty,min=1,max=65535"`
	SerialNumber string `json:"serial_number" binding:"omitempty,max=64"`
	IsActive     *bool  `json:"is_active"`
}

// ListDevices returns the tenant's configured devices.
func (d *DeviceController) ListDevices(ctx *gin.Context) {
	tenantID, ok := tenantScope(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var devices []models.Device
	if err := d.db.Where("tenant_id = ?", tenantID).Order("id").Find(&devices).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to list devices")
		return
	}
	utils.Success(ctx, devices)
}

// CreateDevice registers a punch clock. Port defaults to the protocol's 4370.
func (d *DeviceController) CreateDevice(ctx *gin.Context) {
	tenantID, ok := tenantScope(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req devicePayload
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40061, "invalid device payload")
		return
	}
	if req.Port == 0 {
		req.Port = 4370
	}

	device := models.Device{
		TenantID:     tenantID,
		Name:         req.Name,
		IP:           req.IP,
		Port:         req.Port,
		SerialNumber: req.SerialNumber,
		IsActive:     true,
	}
	if err := d.db.Create(&device).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to create device")
		return
	}
	utils.Success(ctx, device)
}

// UpdateDevice updates device configuration.
func (d *DeviceController) UpdateDevice(ctx *gin.Context) {
	device, ok := d.loadDevice(ctx)
	if !ok {
		return
	}

	var req devicePayload
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40061, "invalid device payload")
		return
	}

	device.Name = req.Name
	device.IP = req.IP
	if req.Port != 0 {
		device.Port = req.Port
	}
	device.SerialNumber = req.SerialNumber
	if req.IsActive != nil {
		device.IsActive = *req.IsActive
	}

	if err := d.db.Save(device).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50062, "failed to update device")
		return
	}
	utils.Success(ctx, device)
}

// ListMappings returns the device's user id mappings.
func (d *DeviceController) ListMappings(ctx *gin.Context) {
	device, ok := d.loadDevice(ctx)
	if !ok {
		return
	}

	var mappings []models.DeviceUserMapping
	if err := d.db.Preload("Member").Where("device_id = ?", device.ID).Find(&mappings).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50063, "failed to list mappings")
		return
	}
	utils.Success(ctx, mappings)
}

type mappingPayload struct {
	DeviceUserID string `json:"device_user_id" binding:"required,max=64"`
	MemberID     uint   `json:"member_id" binding:"required"`
	IsActive     *bool  `json:"is_active"`
}

// UpsertMapping links a device-local user id to a member, or reactivates /
// repoints an existing link. History rows survive via the is_active flag.
func (d *DeviceController) UpsertMapping(ctx *gin.Context) {
	device, ok := d.loadDevice(ctx)
	if !ok {
		return
	}

	var req mappingPayload
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40062, "invalid mapping payload")
		return
	}

	var member models.Member
	if err := d.db.Where("tenant_id = ?", device.TenantID).First(&member, req.MemberID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40410, "member not found")
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	var mapping models.DeviceUserMapping
	err := d.db.Where("device_id = ? AND device_user_id = ?", device.ID, req.DeviceUserID).First(&mapping).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		mapping = models.DeviceUserMapping{
			TenantID:     device.TenantID,
			DeviceID:     device.ID,
			DeviceUserID: req.DeviceUserID,
			MemberID:     req.MemberID,
			IsActive:     active,
		}
		if err := d.db.Create(&mapping).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50064, "failed to create mapping")
			return
		}
		utils.Success(ctx, mapping)
		return
	}
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50064, "failed to load mapping")
		return
	}

	mapping.MemberID = req.MemberID
	mapping.IsActive = active
	if err := d.db.Save(&mapping).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50064, "failed to update mapping")
		return
	}
	utils.Success(ctx, mapping)
}

// SyncAttendance runs the reconciliation pipeline against the device.
// Query params: full_sync, start_date, end_date (YYYY-MM-DD).
func (d *DeviceController) SyncAttendance(ctx *gin.Context) {
	device, ok := d.loadDevice(ctx)
	if !ok {
		return
	}

	opt := devicesync.RunOptions{
		FullSync: ctx.Query("full_sync") == "true",
	}
	if start, ok := parseDate(ctx.Query("start_date")); ok {
		opt.StartDate = &start
	}
	if end, ok := parseDate(ctx.Query("end_date")); ok {
		endOfDay := end.AddDate(0, 0, 1).Add(-time.Nanosecond)
		opt.EndDate = &endOfDay
	}

	result, err := d.sync.Run(ctx.Request.Context(), device, opt)
	if err != nil {
		d.deviceError(ctx, err)
		return
	}
	utils.Success(ctx, result)
}

// ListDeviceUsers enumerates users registered on the physical device.
func (d *DeviceController) ListDeviceUsers(ctx *gin.Context) {
	device, ok := d.loadDevice(ctx)
	if !ok {
		return
	}

	client, err := d.dial(device)
	if err != nil {
		d.deviceError(ctx, err)
		return
	}
	defer client.Close()

	users, err := client.FetchUsers()
	if err != nil {
		d.deviceError(ctx, err)
		return
	}
	utils.Success(ctx, users)
}

// ClearDeviceLogs wipes the attendance log on the physical device. Operators
// run this when the clock accumulates too many logs to answer fetches.
func (d *DeviceController) ClearDeviceLogs(ctx *gin.Context) {
	device, ok := d.loadDevice(ctx)
	if !ok {
		return
	}

	client, err := d.dial(device)
	if err != nil {
		d.deviceError(ctx, err)
		return
	}
	defer client.Close()

	if err := client.ClearLogs(); err != nil {
		d.deviceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "device logs cleared"})
}

// GetDeviceTime reads the device clock.
func (d *DeviceController) GetDeviceTime(ctx *gin.Context) {
	device, ok := d.loadDevice(ctx)
	if !ok {
		return
	}

	client, err := d.dial(device)
	if err != nil {
		d.deviceError(ctx, err)
		return
	}
	defer client.Close()

	t, err := client.GetTime()
	if err != nil {
		d.deviceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"device_time": t})
}

// SetDeviceTime aligns the device clock with the server.
func (d *DeviceController) SetDeviceTime(ctx *gin.Context) {
	device, ok := d.loadDevice(ctx)
	if !ok {
		return
	}

	client, err := d.dial(device)
	if err != nil {
		d.deviceError(ctx, err)
		return
	}
	defer client.Close()

	now := time.Now()
	if err := client.SetTime(now); err != nil {
		d.deviceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"device_time": now})
}

func (d *DeviceController) dial(device *models.Device) (*zkproto.Client, error) {
	cfg := config.Get()
	addr := net.JoinHostPort(device.IP, strconv.Itoa(device.Port))
	return zkproto.Dial(addr, zkproto.Options{
		DialTimeout: time.Duration(cfg.DeviceDialTimeoutSec) * time.Second,
		ReadTimeout: time.Duration(cfg.DeviceReadTimeoutSec) * time.Second,
	})
}

func (d *DeviceController) loadDevice(ctx *gin.Context) (*models.Device, bool) {
	tenantID, ok := tenantScope(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return nil, false
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40060, "invalid device id")
		return nil, false
	}

	var device models.Device
	if err := d.db.Where("tenant_id = ?", tenantID).First(&device, id).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40460, "device not found")
		return nil, false
	}
	return &device, true
}

// deviceError maps the transport error taxonomy onto HTTP responses with the
// operator guidance intact.
func (d *DeviceController) deviceError(ctx *gin.Context, err error) {
	var connErr *zkproto.ConnectionError
	var timeoutErr *zkproto.TimeoutError
	var formatErr *zkproto.UnexpectedResponseError
	switch {
	case errors.Is(err, devicesync.ErrSyncInProgress):
		utils.Error(ctx, http.StatusConflict, 40960, err.Error())
	case errors.As(err, &connErr):
		utils.Error(ctx, http.StatusBadGateway, 50260, err.Error())
	case errors.As(err, &timeoutErr):
		utils.Error(ctx, http.StatusGatewayTimeout, 50460, err.Error())
	case errors.As(err, &formatErr):
		utils.Error(ctx, http.StatusBadGateway, 50261, err.Error())
	default:
		utils.Error(ctx, http.StatusInternalServerError, 50065, err.Error())
	}
}
