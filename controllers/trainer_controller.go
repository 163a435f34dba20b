package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/gymkit/models"
	"github.com/cppla/gymkit/utils"
)

// TrainerController handles trainer CRUD.
type TrainerController struct {
	db *gorm.DB
}

// NewTrainerController creates a new controller instance.
func NewTrainerController(db *gorm.DB) *TrainerController {
	return &TrainerController{db: db}
}

type trainerPayload struct {
	FullName  string `json:"full_name" binding:"required,min=2,max=128"`
	Email     string `json:"email" binding:"omitempty,email"`
	Phone     string `json:"phone" binding:"omitempty,max=32"`
	Specialty string `json:"specialty" binding:"omitempty,max=128"`
	Bio       string `json:"bio"`
	IsActive  *bool  `json:"is_active"`
}

// ListTrainers returns the tenant's trainers.
func (t *TrainerController) ListTrainers(ctx *gin.Context) {
	tenantID, ok := tenantScope(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	page, pageSize := pageParams(ctx)

	q := t.db.Model(&models.Trainer{}).Where("tenant_id = ?", tenantID)
	var total int64
	q.Count(&total)

	var trainers []models.Trainer
	if err := q.Order("id DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&trainers).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to list trainers")
		return
	}
	utils.Success(ctx, gin.H{"items": trainers, "total": total, "page": page, "page_size": pageSize})
}

// CreateTrainer adds a trainer.
func (t *TrainerController) CreateTrainer(ctx *gin.Context) {
	tenantID, ok := tenantScope(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req trainerPayload
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40021, "invalid trainer payload")
		return
	}

	trainer := models.Trainer{
		TenantID:  tenantID,
		FullName:  req.FullName,
		Email:     req.Email,
		Phone:     req.Phone,
		Specialty: req.Specialty,
		Bio:       utils.SanitizeNotes(req.Bio),
		IsActive:  true,
	}
	if err := t.db.Create(&trainer).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to create trainer")
		return
	}
	utils.Success(ctx, trainer)
}

// UpdateTrainer updates mutable trainer fields.
func (t *TrainerController) UpdateTrainer(ctx *gin.Context) {
	tenantID, ok := tenantScope(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid trainer id")
		return
	}

	var trainer models.Trainer
	if err := t.db.Where("tenant_id = ?", tenantID).First(&trainer, id).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40420, "trainer not found")
		return
	}

	var req trainerPayload
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40021, "invalid trainer payload")
		return
	}

	trainer.FullName = req.FullName
	trainer.Email = req.Email
	trainer.Phone = req.Phone
	trainer.Specialty = req.Specialty
	trainer.Bio = utils.SanitizeNotes(req.Bio)
	if req.IsActive != nil {
		trainer.IsActive = *req.IsActive
	}

	if err := t.db.Save(&trainer).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to update trainer")
		return
	}
	utils.Success(ctx, trainer)
}

// DeleteTrainer soft-deletes a trainer.
func (t *TrainerController) DeleteTrainer(ctx *gin.Context) {
	tenantID, ok := tenantScope(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid trainer id")
		return
	}

	res := t.db.Where("tenant_id = ?", tenantID).Delete(&models.Trainer{}, id)
	if res.Error != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to delete trainer")
		return
	}
	if res.RowsAffected == 0 {
		utils.Error(ctx, http.StatusNotFound, 40420, "trainer not found")
		return
	}
	utils.Success(ctx, gin.H{"deleted": id})
}
