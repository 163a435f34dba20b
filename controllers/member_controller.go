package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/gymkit/models"
	"github.com/cppla/gymkit/utils"
)

// MemberController handles member CRUD.
type MemberController struct {
	db *gorm.DB
}

// NewMemberController creates a new controller instance.
func NewMemberController(db *gorm.DB) *MemberController {
	return &MemberController{db: db}
}

type memberPayload struct {
	FullName  string     `json:"full_name" binding:"required,min=2,max=128"`
	Email     string     `json:"email" binding:"omitempty,email"`
	Phone     string     `json:"phone" binding:"omitempty,max=32"`
	Gender    string     `json:"gender" binding:"omitempty,oneof=male female other"`
	BirthDate *time.Time `json:"birth_date"`
	Notes     string     `json:"notes"`
	TrainerID *uint      `json:"trainer_id"`
	IsActive  *bool      `json:"is_active"`
}

// ListMembers returns a paginated, optionally filtered member list.
func (m *MemberController) ListMembers(ctx *gin.Context) {
	tenantID, ok := tenantScope(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	page, pageSize := pageParams(ctx)

	q := m.db.Model(&models.Member{}).Where("tenant_id = ?", tenantID)
	if search := ctx.Query("search"); search != "" {
		q = q.Where("full_name LIKE ? OR phone LIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if ctx.Query("active") == "true" {
		q = q.Where("is_active = ?", true)
	}

	var total int64
	q.Count(&total)

	var members []models.Member
	if err := q.Preload("Trainer").
		Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&members).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to list members")
		return
	}

	utils.Success(ctx, gin.H{"items": members, "total": total, "page": page, "page_size": pageSize})
}

// GetMember returns one member with active memberships.
func (m *MemberController) GetMember(ctx *gin.Context) {
	tenantID, ok := tenantScope(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid member id")
		return
	}

	var member models.Member
	err := m.db.Preload("Trainer").Preload("Memberships.GymPackage").
		Where("tenant_id = ?", tenantID).
		First(&member, id).Error
	if err != nil {
		utils.Error(ctx, http.StatusNotFound, 40410, "member not found")
		return
	}
	utils.Success(ctx, member)
}

// CreateMember registers a new member.
func (m *MemberController) CreateMember(ctx *gin.Context) {
	tenantID, ok := tenantScope(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req memberPayload
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40011, "invalid member payload")
		return
	}

	member := models.Member{
		TenantID:  tenantID,
		FullName:  req.FullName,
		Email:     req.Email,
		Phone:     req.Phone,
		Gender:    req.Gender,
		BirthDate: req.BirthDate,
		Notes:     utils.SanitizeNotes(req.Notes),
		TrainerID: req.TrainerID,
		IsActive:  true,
	}
	if err := m.db.Create(&member).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to create member")
		return
	}
	utils.Success(ctx, member)
}

// UpdateMember updates mutable member fields.
func (m *MemberController) UpdateMember(ctx *gin.Context) {
	tenantID, ok := tenantScope(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid member id")
		return
	}

	var member models.Member
	if err := m.db.Where("tenant_id = ?", tenantID).First(&member, id).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40410, "member not found")
		return
	}

	var req memberPayload
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40011, "invalid member payload")
		return
	}

	member.FullName = req.FullName
	member.Email = req.Email
	member.Phone = req.Phone
	member.Gender = req.Gender
	member.BirthDate = req.BirthDate
	member.Notes = utils.SanitizeNotes(req.Notes)
	member.TrainerID = req.TrainerID
	if req.IsActive != nil {
		member.IsActive = *req.IsActive
	}

	if err := m.db.Save(&member).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50012, "failed to update member")
		return
	}
	utils.Success(ctx, member)
}

// DeleteMember soft-deletes a member; history rows stay.
func (m *MemberController) DeleteMember(ctx *gin.Context) {
	tenantID, ok := tenantScope(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid member id")
		return
	}

	res := m.db.Where("tenant_id = ?", tenantID).Delete(&models.Member{}, id)
	if res.Error != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50013, "failed to delete member")
		return
	}
	if res.RowsAffected == 0 {
		utils.Error(ctx, http.StatusNotFound, 40410, "member not found")
		return
	}
	utils.Success(ctx, gin.H{"deleted": id})
}
