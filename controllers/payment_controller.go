package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/gymkit/models"
	"github.com/cppla/gymkit/utils"
)

// PaymentController handles payment records.
type PaymentController struct {
	db *gorm.DB
}

// NewPaymentController creates a new controller instance.
func NewPaymentController(db *gorm.DB) *PaymentController {
	return &PaymentController{db: db}
}

// ListPayments returns payments, optionally filtered by member and day range.
func (p *PaymentController) ListPayments(ctx *gin.Context) {
	tenantID, ok := tenantScope(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	page, pageSize := pageParams(ctx)

	q := p.db.Model(&models.Payment{}).Where("tenant_id = ?", tenantID)
	if memberID := ctx.Query("member_id"); memberID != "" {
		q = q.Where("member_id = ?", memberID)
	}
	if from, ok := parseDate(ctx.Query("from")); ok {
		q = q.Where("paid_at >= ?", from)
	}
	if to, ok := parseDate(ctx.Query("to")); ok {
		q = q.Where("paid_at < ?", to.AddDate(0, 0, 1))
	}

	var total int64
	q.Count(&total)

	var payments []models.Payment
	if err := q.Order("paid_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&payments).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to list payments")
		return
	}
	utils.Success(ctx, gin.H{"items": payments, "total": total, "page": page, "page_size": pageSize})
}

type paymentPayload struct {
	MemberID     uint    `json:"member_id" binding:"required"`
	MembershipID *uint   `json:"membership_id"`
	Amount       float64 `json:"amount" binding:"required,gt=0"`
	Method       string  `json:"method" binding:"omitempty,oneof=cash card transfer"`
	Notes        string  `json:"notes" binding:"omitempty,max=255"`
}

// CreatePayment records money received. Receipt numbers are generated.
func (p *PaymentController) CreatePayment(ctx *gin.Context) {
	tenantID, ok := tenantScope(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req paymentPayload
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40041, "invalid payment payload")
		return
	}

	var member models.Member
	if err := p.db.Where("tenant_id = ?", tenantID).First(&member, req.MemberID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40410, "member not found")
		return
	}

	payment := models.Payment{
		TenantID:     tenantID,
		MemberID:     req.MemberID,
		MembershipID: req.MembershipID,
		Amount:       req.Amount,
		Method:       req.Method,
		Status:       models.PaymentStatusPaid,
		Notes:        req.Notes,
	}
	if err := p.db.Create(&payment).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to record payment")
		return
	}
	utils.Success(ctx, payment)
}

// VoidPayment marks a payment voided; rows are never deleted.
func (p *PaymentController) VoidPayment(ctx *gin.Context) {
	tenantID, ok := tenantScope(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid payment id")
		return
	}

	res := p.db.Model(&models.Payment{}).
		Where("tenant_id = ? AND id = ? AND status = ?", tenantID, id, models.PaymentStatusPaid).
		Update("status", models.PaymentStatusVoided)
	if res.Error != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to void payment")
		return
	}
	if res.RowsAffected == 0 {
		utils.Error(ctx, http.StatusNotFound, 40440, "payment not found or already voided")
		return
	}
	utils.Success(ctx, gin.H{"voided": id})
}
