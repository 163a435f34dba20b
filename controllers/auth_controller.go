package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/gymkit/middleware"
	"github.com/cppla/gymkit/models"
	"github.com/cppla/gymkit/utils"
)

const tokenLifetime = 24 * time.Hour

// AuthController handles staff registration and login.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates a new controller instance.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

type registerRequest struct {
	TenantName string `json:"tenant_name" binding:"required,min=2,max=128"`
	Username   string `json:"username" binding:"required,min=3,max=64"`
	Email      string `json:"email" binding:"omitempty,email"`
	Password   string `json:"password" binding:"required,min=8,max=72"`
}

// Register creates a tenant and its owner account in one step.
func (a *AuthController) Register(ctx *gin.Context) {
	var req registerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid register payload")
		return
	}

	var count int64
	a.db.Model(&models.StaffUser{}).Where("username = ?", req.Username).Count(&count)
	if count > 0 {
		utils.Error(ctx, http.StatusConflict, 40901, "username already taken")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to hash password")
		return
	}

	var user models.StaffUser
	err = a.db.Transaction(func(tx *gorm.DB) error {
		tenant := models.Tenant{Name: strings.TrimSpace(req.TenantName)}
		if err := tx.Create(&tenant).Error; err != nil {
			return err
		}
		user = models.StaffUser{
			TenantID:     tenant.ID,
			Username:     req.Username,
			Email:        req.Email,
			PasswordHash: hash,
			Role:         "owner",
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to create account")
		return
	}

	utils.Success(ctx, gin.H{"id": user.ID, "tenant_id": user.TenantID, "username": user.Username})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login verifies credentials and issues a tenant-scoped JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	var req loginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40002, "invalid login payload")
		return
	}

	var user models.StaffUser
	if err := a.db.Where("username = ?", req.Username).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.TenantID, user.Username, user.Role, tokenLifetime)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to issue token")
		return
	}

	now := time.Now()
	a.db.Model(&user).Update("last_login_at", now)

	utils.Success(ctx, gin.H{
		"token":     token,
		"tenant_id": user.TenantID,
		"username":  user.Username,
		"role":      user.Role,
	})
}

// Logout revokes the presented token until its natural expiry.
func (a *AuthController) Logout(ctx *gin.Context) {
	authHeader := ctx.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 {
		utils.BlacklistToken(strings.TrimSpace(parts[1]), tokenLifetime)
	}
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the authenticated staff profile.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var user models.StaffUser
	if err := a.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}
	utils.Success(ctx, user)
}
