package handler

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"affily/config"
	"affily/internal/middleware"
	"affily/internal/models"
	"affily/internal/repository"
	"affily/internal/service"
	"affily/pkg/chain"
	"affily/pkg/cloudinary"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProjectHandler struct {
	cfg          *config.Config
	projectRepo  *repository.ProjectRepository
	referralRepo *repository.ReferralRepository
	statsSvc     *service.StatsService
	symbols      chain.SymbolReader
	cloud        cloudinary.Client
}

func NewProjectHandler(
	cfg *config.Config,
	projectRepo *repository.ProjectRepository,
	referralRepo *repository.ReferralRepository,
	statsSvc *service.StatsService,
	symbols chain.SymbolReader,
	cloud cloudinary.Client,
) *ProjectHandler {
	return &ProjectHandler{
		cfg:          cfg,
		projectRepo:  projectRepo,
		referralRepo: referralRepo,
		statsSvc:     statsSvc,
		symbols:      symbols,
		cloud:        cloud,
	}
}

type conversionPointReq struct {
	Title        string  `json:"title"`
	PaymentType  string  `json:"payment_type" binding:"required,oneof=FixedAmount RevenueShare Tiered"`
	RewardAmount float64 `json:"reward_amount"`
	Percentage   float64 `json:"percentage"`
	Tiers        []struct {
		ConversionsRequired int     `json:"conversions_required" binding:"required,min=1"`
		RewardAmount        float64 `json:"reward_amount" binding:"required"`
	} `json:"tiers"`
}

type whitelistEntryReq struct {
	WalletAddress string  `json:"wallet_address" binding:"required"`
	RewardAmount  float64 `json:"reward_amount" binding:"required"`
	RedirectURL   string  `json:"redirect_url"`
}

// Create handles POST /projects. The generated API key is returned exactly
// once; only its hash is stored.
func (h *ProjectHandler) Create(c *gin.Context) {
	var req struct {
		ProjectName          string               `json:"project_name" binding:"required"`
		Description          string               `json:"description"`
		WebsiteURL           string               `json:"website_url"`
		ProjectType          string               `json:"project_type" binding:"required,oneof=DirectPayment EscrowPayment"`
		SelectedChainID      int64                `json:"selected_chain_id" binding:"required"`
		SelectedTokenAddress string               `json:"selected_token_address" binding:"required"`
		RedirectURL          string               `json:"redirect_url"`
		IsReferralEnabled    bool                 `json:"is_referral_enabled"`
		TotalSlots           int                  `json:"total_slots"`
		TotalBudget          float64              `json:"total_budget"`
		Deadline             *time.Time           `json:"deadline"`
		WhitelistEntries     []whitelistEntryReq  `json:"whitelist_entries"`
		ConversionPoints     []conversionPointReq `json:"conversion_points"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !chain.IsValidAddress(req.SelectedTokenAddress) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token address"})
		return
	}
	if req.ProjectType == models.ProjectTypeEscrowPayment && len(req.ConversionPoints) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "escrow projects need at least one conversion point"})
		return
	}

	project := &models.Project{
		ID:                   uuid.NewString(),
		ProjectName:          req.ProjectName,
		Description:          req.Description,
		WebsiteURL:           req.WebsiteURL,
		ProjectType:          req.ProjectType,
		OwnerAddress:         middleware.GetWallet(c),
		SelectedChainID:      req.SelectedChainID,
		SelectedTokenAddress: req.SelectedTokenAddress,
		RedirectURL:          req.RedirectURL,
		IsReferralEnabled:    req.IsReferralEnabled,
		TotalSlots:           req.TotalSlots,
		RemainingSlots:       req.TotalSlots,
		TotalBudget:          req.TotalBudget,
		RemainingBudget:      req.TotalBudget,
		Deadline:             req.Deadline,
	}
	for _, entry := range req.WhitelistEntries {
		if !chain.IsValidAddress(entry.WalletAddress) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid whitelist address: " + entry.WalletAddress})
			return
		}
		project.WhitelistEntries = append(project.WhitelistEntries, models.WhitelistEntry{
			ProjectID:     project.ID,
			WalletAddress: entry.WalletAddress,
			RewardAmount:  entry.RewardAmount,
			RedirectURL:   entry.RedirectURL,
		})
	}
	for _, point := range req.ConversionPoints {
		cp := models.ConversionPoint{
			ProjectID:    project.ID,
			PointID:      newPointID(),
			Title:        point.Title,
			PaymentType:  point.PaymentType,
			RewardAmount: point.RewardAmount,
			Percentage:   point.Percentage,
			IsActive:     true,
		}
		for _, tier := range point.Tiers {
			cp.Tiers = append(cp.Tiers, models.RewardTier{
				ConversionsRequired: tier.ConversionsRequired,
				RewardAmount:        tier.RewardAmount,
			})
		}
		project.ConversionPoints = append(project.ConversionPoints, cp)
	}

	apiKey := strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := h.projectRepo.Create(project, apiKey); err != nil {
		log.Printf("[project] create: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create project"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"project": project, "api_key": apiKey})
}

// newPointID generates the short public id embedded in integrator requests.
func newPointID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// Get handles GET /projects/:id. The reward token symbol is resolved
// on-chain so campaign pages can label amounts.
func (h *ProjectHandler) Get(c *gin.Context) {
	project, err := h.projectRepo.GetByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch project"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": project, "token_symbol": h.tokenSymbol(c, project)})
}

// tokenSymbol is best-effort: native tokens and lookup failures yield "".
func (h *ProjectHandler) tokenSymbol(c *gin.Context, project *models.Project) string {
	if h.symbols == nil || strings.EqualFold(project.SelectedTokenAddress, chain.ZeroAddress) {
		return ""
	}
	symbol, err := h.symbols.TokenSymbol(c.Request.Context(), project.SelectedChainID, project.SelectedTokenAddress)
	if err != nil {
		log.Printf("[project] token symbol lookup for %s: %v", project.ID, err)
		return ""
	}
	return symbol
}

// List handles GET /projects?owner=0x.. — all projects, or one owner's.
func (h *ProjectHandler) List(c *gin.Context) {
	owner := c.Query("owner")
	var (
		projects []models.Project
		err      error
	)
	if owner != "" {
		projects, err = h.projectRepo.ListByOwner(owner)
	} else {
		projects, err = h.projectRepo.List()
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list projects"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": projects})
}

// UpdateSettings handles PATCH /projects/:id/settings — owner-only targeted
// field updates.
func (h *ProjectHandler) UpdateSettings(c *gin.Context) {
	project, err := h.projectRepo.GetByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	if !strings.EqualFold(project.OwnerAddress, middleware.GetWallet(c)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the project owner can update settings"})
		return
	}
	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// Only allow safe fields
	allowed := map[string]bool{
		"project_name": true, "description": true, "website_url": true,
		"redirect_url": true, "is_referral_enabled": true,
	}
	safe := make(map[string]interface{})
	for k, v := range updates {
		if allowed[k] {
			safe[k] = v
		}
	}
	if len(safe) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no valid fields to update"})
		return
	}
	if err := h.projectRepo.UpdateSettings(project.ID, safe); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// UploadBranding handles POST /projects/:id/branding — multipart logo and/or
// cover upload to Cloudinary.
func (h *ProjectHandler) UploadBranding(c *gin.Context) {
	project, err := h.projectRepo.GetByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	if !strings.EqualFold(project.OwnerAddress, middleware.GetWallet(c)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the project owner can update branding"})
		return
	}
	if h.cloud == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image uploads are not configured"})
		return
	}
	updates := make(map[string]interface{})
	for field, column := range map[string]string{"logo": "logo_url", "cover": "cover_url"} {
		file, err := c.FormFile(field)
		if err != nil {
			continue
		}
		f, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read " + field})
			return
		}
		url, err := h.cloud.UploadImage(c.Request.Context(), f, "projects/"+project.ID, field)
		f.Close()
		if err != nil {
			log.Printf("[project] %s upload: %v", field, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to upload " + field})
			return
		}
		updates[column] = url
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no logo or cover file provided"})
		return
	}
	if err := h.projectRepo.UpdateSettings(project.ID, updates); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "updates": updates})
}

// Join handles POST /projects/:id/join — enrolls the authenticated wallet as
// an affiliate and returns the referral link to share.
func (h *ProjectHandler) Join(c *gin.Context) {
	project, err := h.projectRepo.GetByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	wallet := middleware.GetWallet(c)

	// DirectPayment projects have fixed terms: the link comes straight from
	// the whitelist and no referral record is needed.
	if project.ProjectType == models.ProjectTypeDirectPayment {
		for _, entry := range project.WhitelistEntries {
			if strings.EqualFold(entry.WalletAddress, wallet) {
				c.JSON(http.StatusOK, gin.H{
					"referral_link": entry.RedirectURL,
					"reward_amount": entry.RewardAmount,
				})
				return
			}
		}
		c.JSON(http.StatusForbidden, gin.H{"error": "wallet is not whitelisted for this project"})
		return
	}

	referral, err := h.referralRepo.GetOrCreate(project.ID, wallet)
	if err != nil {
		log.Printf("[project] join: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to join project"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"referral_id":   referral.ID,
		"referral_link": h.cfg.Server.BaseURL + "/api/v1/click?r=" + referral.ID,
	})
}

// Performance handles GET /projects/:id/referrals — the owner's affiliate
// performance list with recomputed totals.
func (h *ProjectHandler) Performance(c *gin.Context) {
	project, err := h.projectRepo.GetByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	if !strings.EqualFold(project.OwnerAddress, middleware.GetWallet(c)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the project owner can view performance"})
		return
	}
	rows, err := h.statsSvc.ForProject(project.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to aggregate referral data"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows})
}
