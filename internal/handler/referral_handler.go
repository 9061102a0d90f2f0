package handler

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"affily/internal/middleware"
	"affily/internal/models"
	"affily/internal/repository"
	"affily/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ReferralHandler struct {
	referralRepo *repository.ReferralRepository
	projectRepo  *repository.ProjectRepository
	statsSvc     *service.StatsService
}

func NewReferralHandler(
	referralRepo *repository.ReferralRepository,
	projectRepo *repository.ProjectRepository,
	statsSvc *service.StatsService,
) *ReferralHandler {
	return &ReferralHandler{
		referralRepo: referralRepo,
		projectRepo:  projectRepo,
		statsSvc:     statsSvc,
	}
}

// Stats handles GET /referrals/:id/stats — the affiliate dashboard view.
func (h *ReferralHandler) Stats(c *gin.Context) {
	stats, err := h.statsSvc.ForReferral(c.Param("id"), time.Now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "referral not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load referral stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// SetTweetURL handles PATCH /referrals/:id/tweet — the affiliate registers
// the post they shared so engagement can be tracked.
func (h *ReferralHandler) SetTweetURL(c *gin.Context) {
	referral, err := h.referralRepo.GetByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "referral not found"})
		return
	}
	if !strings.EqualFold(referral.AffiliateWallet, middleware.GetWallet(c)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your referral"})
		return
	}
	var req struct {
		TweetURL string `json:"tweet_url" binding:"required,url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.referralRepo.UpdateTweetURL(referral.ID, req.TweetURL); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Click handles GET /click?r=<referralId> — records the click and redirects
// to the project's destination. Unknown referrals still get a redirect home
// so shared links never dead-end.
func (h *ReferralHandler) Click(c *gin.Context) {
	referralID := c.Query("r")
	if referralID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing referral id"})
		return
	}
	referral, err := h.referralRepo.GetByID(referralID)
	if err != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}
	project, err := h.projectRepo.GetByID(referral.ProjectID)
	if err != nil || project.RedirectURL == "" {
		c.Redirect(http.StatusFound, "/")
		return
	}
	if err := h.referralRepo.RecordClick(&models.Click{
		ReferralID: referral.ID,
		IPAddress:  c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	}); err != nil {
		// A lost click must not break the redirect.
		log.Printf("[click] record failed for %s: %v", referral.ID, err)
	}
	c.Redirect(http.StatusFound, project.RedirectURL)
}
