package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"affily/internal/models"
	"affily/internal/repository"
	"affily/internal/ws"
	"affily/pkg/chain"
	"affily/pkg/rewards"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// One integrator predates conversion point ids in the query string; their
// project is pinned to its single conversion point.
const (
	legacyProjectID    = "FX26BxKbDVuJvaCtcTDf"
	legacyConversionID = "L1TDOEA4"
)

type ConversionHandler struct {
	projectRepo    *repository.ProjectRepository
	referralRepo   *repository.ReferralRepository
	conversionRepo *repository.ConversionRepository
	adminHub       *ws.Hub
}

func NewConversionHandler(
	projectRepo *repository.ProjectRepository,
	referralRepo *repository.ReferralRepository,
	conversionRepo *repository.ConversionRepository,
	adminHub *ws.Hub,
) *ConversionHandler {
	return &ConversionHandler{
		projectRepo:    projectRepo,
		referralRepo:   referralRepo,
		conversionRepo: conversionRepo,
		adminHub:       adminHub,
	}
}

// Log handles POST /api/v1/conversions — validates an inbound conversion
// notification and appends exactly one unpaid log entry. Funds never move
// here; payment happens later from the admin console.
func (h *ConversionHandler) Log(c *gin.Context) {
	apiKey := c.GetHeader("x-api-key")
	if apiKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "API key is missing"})
		return
	}

	referralID := c.Query("referral")
	if referralID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Referral ID is missing"})
		return
	}

	referral, err := h.referralRepo.GetByID(referralID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Referral data not found"})
			return
		}
		log.Printf("[conversion] referral lookup: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An unexpected error occurred"})
		return
	}

	conversionID := c.Query("conversionId")
	if referral.ProjectID == legacyProjectID {
		conversionID = legacyConversionID
	}
	if conversionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Conversion ID is missing"})
		return
	}

	if err := h.projectRepo.ValidateAPIKey(referral.ProjectID, apiKey); err != nil {
		if errors.Is(err, repository.ErrInvalidAPIKey) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Invalid API key or access denied"})
			return
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project data not found"})
			return
		}
		log.Printf("[conversion] api key check: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An unexpected error occurred"})
		return
	}

	project, err := h.projectRepo.GetByID(referral.ProjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project data not found"})
			return
		}
		log.Printf("[conversion] project lookup: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An unexpected error occurred"})
		return
	}
	if project.ProjectType != models.ProjectTypeEscrowPayment {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project type"})
		return
	}

	point, err := h.projectRepo.GetConversionPoint(project.ID, conversionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Conversion point not found"})
		return
	}

	// Inactive points acknowledge the request without logging anything so
	// integrators do not retry a deliberately disabled point.
	if !point.IsActive {
		c.JSON(http.StatusOK, gin.H{"message": "Conversion point is inactive"})
		return
	}

	var revenue float64
	if point.PaymentType == models.PaymentTypeRevenueShare {
		revenue, err = strconv.ParseFloat(c.Query("revenue"), 64)
		if err != nil || revenue <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or missing revenue parameter for RevenueShare"})
			return
		}
	}

	var priorConversions int64
	if point.PaymentType == models.PaymentTypeTiered {
		priorConversions, err = h.conversionRepo.CountForPoint(referral.ID, point.PointID)
		if err != nil {
			log.Printf("[conversion] tier count: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "An unexpected error occurred"})
			return
		}
	}

	rewardAmount, err := rewards.Amount(point, revenue, int(priorConversions))
	if err != nil {
		if errors.Is(err, rewards.ErrNoTier) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No appropriate tier found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var userWalletAddress *string
	if project.IsReferralEnabled {
		addr := c.Query("userWalletAddress")
		if addr == "" || !chain.IsValidAddress(addr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or missing user wallet address"})
			return
		}
		userWalletAddress = &addr
	}

	entry := &models.ConversionLog{
		ID:                uuid.NewString(),
		ReferralID:        referral.ID,
		ConversionPointID: point.PointID,
		Amount:            rewardAmount,
		UserWalletAddress: userWalletAddress,
		IsPaid:            false,
		Timestamp:         time.Now(),
	}
	if err := h.conversionRepo.Create(entry); err != nil {
		log.Printf("[conversion] log write: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An unexpected error occurred"})
		return
	}

	h.adminHub.Broadcast("conversion", models.UnpaidConversionLog{
		LogID:                entry.ID,
		ReferralID:           referral.ID,
		ProjectID:            project.ID,
		Timestamp:            entry.Timestamp,
		Amount:               entry.Amount,
		AffiliateWallet:      referral.AffiliateWallet,
		UserWalletAddress:    userWalletAddress,
		SelectedTokenAddress: project.SelectedTokenAddress,
		SelectedChainID:      project.SelectedChainID,
	})

	c.JSON(http.StatusOK, gin.H{"message": "Conversion successful", "referralId": referral.ID})
}
