package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/gymkit/models"
	"github.com/cppla/gymkit/utils"
)

// PackageController handles plans and their assignment to members.
type PackageController struct {
	db *gorm.DB
}

// NewPackageController creates a new controller instance.
func NewPackageController(db *gorm.DB) *PackageController {
	return &PackageController{db: db}
}

type packagePayload struct {
	Name         string  `json:"name" binding:"required,min=2,max=128"`
	Description  string  `json:"description"`
	DurationDays int     `json:"duration_days" binding:"required,min=1"`
	Price        float64 `json:"price" binding:"required,min=0"`
	IsActive     *bool   `json:"is_active"`
}

// ListPackages returns the tenant's plans.
func (p *PackageController) ListPackages(ctx *gin.Context) {
	tenantID, ok := tenantScope(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var packages []models.GymPackage
	if err := p.db.Where("tenant_id = ?", tenantID).Order("id").Find(&packages).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to list packages")
		return
	}
	utils.Success(ctx, packages)
}

// CreatePackage adds a plan.
func (p *PackageController) CreatePackage(ctx *gin.Context) {
	tenantID, ok := tenantScope(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req packagePayload
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40031, "invalid package payload")
		return
	}

	pkg := models.GymPackage{
		TenantID:     tenantID,
		Name:         req.Name,
		Description:  utils.SanitizeNotes(req.Description),
		DurationDays: req.DurationDays,
		Price:        req.Price,
		IsActive:     true,
	}
	if err := p.db.Create(&pkg).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to create package")
		return
	}
	utils.Success(ctx, pkg)
}

// UpdatePackage updates a plan.
func (p *PackageController) UpdatePackage(ctx *gin.Context) {
	tenantID, ok := tenantScope(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid package id")
		return
	}

	var pkg models.GymPackage
	if err := p.db.Where("tenant_id = ?", tenantID).First(&pkg, id).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40430, "package not found")
		return
	}

	var req packagePayload
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40031, "invalid package payload")
		return
	}

	pkg.Name = req.Name
	pkg.Description = utils.SanitizeNotes(req.Description)
	pkg.DurationDays = req.DurationDays
	pkg.Price = req.Price
	if req.IsActive != nil {
		pkg.IsActive = *req.IsActive
	}

	if err := p.db.Save(&pkg).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to update package")
		return
	}
	utils.Success(ctx, pkg)
}

type assignPayload struct {
	MemberID  uint       `json:"member_id" binding:"required"`
	StartDate *time.Time `json:"start_date"`
}

// AssignPackage creates a membership for a member, starting today unless an
// explicit start date is given. EndDate follows the plan duration.
func (p *PackageController) AssignPackage(ctx *gin.Context) {
	tenantID, ok := tenantScope(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid package id")
		return
	}

	var req assignPayload
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40032, "invalid assignment payload")
		return
	}

	var pkg models.GymPackage
	if err := p.db.Where("tenant_id = ? AND is_active = ?", tenantID, true).First(&pkg, id).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40430, "package not found")
		return
	}
	var member models.Member
	if err := p.db.Where("tenant_id = ?", tenantID).First(&member, req.MemberID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40410, "member not found")
		return
	}

	start := time.Now().UTC()
	if req.StartDate != nil {
		start = req.StartDate.UTC()
	}
	membership := models.Membership{
		TenantID:     tenantID,
		MemberID:     member.ID,
		GymPackageID: pkg.ID,
		StartDate:    start,
		EndDate:      start.AddDate(0, 0, pkg.DurationDays),
		IsActive:     true,
	}
	if err := p.db.Create(&membership).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50033, "failed to assign package")
		return
	}
	utils.Success(ctx, membership)
}
