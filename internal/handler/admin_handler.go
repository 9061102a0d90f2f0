package handler

import (
	"errors"
	"net/http"
	"strings"

	"affily/internal/repository"
	"affily/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AdminHandler struct {
	conversionRepo *repository.ConversionRepository
	userRepo       *repository.UserRepository
	errorRepo      *repository.ErrorLogRepository
	payoutSvc      *service.PayoutService
	engagementSvc  *service.EngagementService
}

func NewAdminHandler(
	conversionRepo *repository.ConversionRepository,
	userRepo *repository.UserRepository,
	errorRepo *repository.ErrorLogRepository,
	payoutSvc *service.PayoutService,
	engagementSvc *service.EngagementService,
) *AdminHandler {
	return &AdminHandler{
		conversionRepo: conversionRepo,
		userRepo:       userRepo,
		errorRepo:      errorRepo,
		payoutSvc:      payoutSvc,
		engagementSvc:  engagementSvc,
	}
}

// ListUnpaidConversions handles GET /admin/conversions/unpaid — the pending
// queue plus the per-token outstanding summary, both derived from the store
// on every call rather than cached.
func (h *AdminHandler) ListUnpaidConversions(c *gin.Context) {
	logs, err := h.conversionRepo.ListUnpaid()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch unpaid conversion logs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":          logs,
		"token_summary": service.SummarizeTokens(logs),
	})
}

// Pay handles POST /admin/conversions/:logId/pay — runs the payout workflow
// for one unpaid log.
func (h *AdminHandler) Pay(c *gin.Context) {
	logID := c.Param("logId")
	result, err := h.payoutSvc.Pay(c.Request.Context(), logID)
	if err != nil {
		var stageErr *service.StageError
		switch {
		case errors.Is(err, service.ErrLogNotPayable):
			c.JSON(http.StatusNotFound, gin.H{"error": "conversion log not found or already paid"})
		case errors.Is(err, service.ErrAlreadyClaimed):
			c.JSON(http.StatusConflict, gin.H{"error": "conversion log already claimed by another admin"})
		case errors.As(err, &stageErr):
			c.JSON(http.StatusBadGateway, gin.H{"error": stageErr.Err.Error(), "stage": stageErr.Stage})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process payment"})
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListUnapprovedUsers handles GET /admin/users/unapproved.
func (h *AdminHandler) ListUnapprovedUsers(c *gin.Context) {
	users, err := h.userRepo.ListUnapproved()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch unapproved users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": users})
}

// ApproveUser handles POST /admin/users/:wallet/approve — one-way transition.
func (h *AdminHandler) ApproveUser(c *gin.Context) {
	wallet := c.Param("wallet")
	if err := h.userRepo.Approve(wallet); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to approve user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// UpdateEngagement handles POST /admin/engagement/update — comma-separated
// referral ids in, persisted engagement snapshots out.
func (h *AdminHandler) UpdateEngagement(c *gin.Context) {
	var req struct {
		ReferralIDs string `json:"referral_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var ids []string
	for _, id := range strings.Split(req.ReferralIDs, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no referral ids provided"})
		return
	}
	snapshots, err := h.engagementSvc.UpdateFromReferrals(c.Request.Context(), ids)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update engagement data"})
		return
	}
	if len(snapshots) == 0 {
		c.JSON(http.StatusOK, gin.H{"data": snapshots, "message": "no engagement data found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": snapshots})
}

// ListErrorLogs handles GET /admin/errors?type= — the reconciliation trail
// from failed user transfers and ledger updates.
func (h *AdminHandler) ListErrorLogs(c *gin.Context) {
	logs, err := h.errorRepo.ListByType(c.Query("type"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch error logs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": logs})
}
