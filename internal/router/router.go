package router

import (
	"time"

	"affily/config"
	"affily/internal/handler"
	"affily/internal/middleware"
	"affily/internal/repository"
	"affily/internal/service"
	"affily/internal/ws"
	"affily/pkg/chain"
	"affily/pkg/cloudinary"
	"affily/pkg/xapi"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Setup(cfg *config.Config, db *gorm.DB, transferer chain.Transferer, cloud cloudinary.Client) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	// Skip gin.Logger() to reduce log noise; use gin.Default() if you need request logging
	r.Use(middleware.RateLimit(middleware.NewInMemoryRateLimiter(100, 60*time.Second)))

	// Repositories
	projectRepo := repository.NewProjectRepository(db)
	referralRepo := repository.NewReferralRepository(db)
	conversionRepo := repository.NewConversionRepository(db)
	userRepo := repository.NewUserRepository(db)
	errorRepo := repository.NewErrorLogRepository(db)

	adminHub := ws.NewHub()
	xClient := xapi.NewClient(cfg.XAPI.BaseURL, cfg.XAPI.BearerToken)

	// Services
	payoutSvc := service.NewPayoutService(conversionRepo, errorRepo, transferer)
	statsSvc := service.NewStatsService(referralRepo, conversionRepo)
	engagementSvc := service.NewEngagementService(referralRepo, xClient)

	// Handlers
	authHandler := handler.NewAuthHandler(cfg, userRepo)
	conversionHandler := handler.NewConversionHandler(projectRepo, referralRepo, conversionRepo, adminHub)
	adminHandler := handler.NewAdminHandler(conversionRepo, userRepo, errorRepo, payoutSvc, engagementSvc)
	symbols, _ := transferer.(chain.SymbolReader)
	projectHandler := handler.NewProjectHandler(cfg, projectRepo, referralRepo, statsSvc, symbols, cloud)
	referralHandler := handler.NewReferralHandler(referralRepo, projectRepo, statsSvc)
	engagementHandler := handler.NewEngagementHandler(&cfg.XAPI, xClient)

	authMw := middleware.AuthRequired(&cfg.JWT)
	adminMw := middleware.AdminRequired(&cfg.Admin)
	conversionLimiter := middleware.RateLimitByAPIKey(middleware.NewInMemoryRateLimiter(60, time.Minute))

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/challenge", authHandler.Challenge)
			authGroup.POST("/verify", authHandler.Verify)
			authGroup.POST("/refresh", authHandler.Refresh)
		}

		// Integrator-facing: api-key validated inside the handler.
		api.POST("/conversions", conversionLimiter, conversionHandler.Log)
		api.GET("/click", referralHandler.Click)
		api.GET("/engagement", engagementHandler.Fetch)

		projects := api.Group("/projects")
		{
			projects.GET("/:id", projectHandler.Get)
			projects.GET("", projectHandler.List)
			projects.POST("", authMw, projectHandler.Create)
			projects.PATCH("/:id/settings", authMw, projectHandler.UpdateSettings)
			projects.POST("/:id/branding", authMw, projectHandler.UploadBranding)
			projects.POST("/:id/join", authMw, projectHandler.Join)
			projects.GET("/:id/referrals", authMw, projectHandler.Performance)
		}

		referrals := api.Group("/referrals")
		referrals.Use(authMw)
		{
			referrals.GET("/:id/stats", referralHandler.Stats)
			referrals.PATCH("/:id/tweet", referralHandler.SetTweetURL)
		}

		admin := api.Group("/admin")
		admin.Use(authMw, adminMw)
		{
			admin.GET("/conversions/unpaid", adminHandler.ListUnpaidConversions)
			admin.POST("/conversions/:logId/pay", adminHandler.Pay)
			admin.GET("/users/unapproved", adminHandler.ListUnapprovedUsers)
			admin.POST("/users/:wallet/approve", adminHandler.ApproveUser)
			admin.POST("/engagement/update", adminHandler.UpdateEngagement)
			admin.GET("/errors", adminHandler.ListErrorLogs)
		}
	}

	r.GET("/ws/admin", ws.UpgradeAdminWS(&cfg.JWT, &cfg.Admin, adminHub))

	return r
}
