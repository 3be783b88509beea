package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"battsim/internal/auth"
	"battsim/internal/config"
	"battsim/internal/database"
	"battsim/internal/middleware"
)

// SetupRouter configures the HTTP routes
func SetupRouter(
	cfg *config.Config,
	logger *zap.Logger,
	handler *Handler,
	authSvc *auth.Service,
	usage *database.UsageRepository,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logging(logger))
	router.Use(middleware.Metrics())

	router.GET("/health", handler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", handler.Register)
			authGroup.POST("/login", handler.Login)
			authGroup.POST("/refresh", handler.Refresh)
			authGroup.POST("/request-password-reset-otp", handler.RequestPasswordResetOTP)
			authGroup.POST("/reset-password", handler.ResetPassword)
		}

		v1.GET("/shared/:token", handler.GetShared)

		protected := v1.Group("")
		protected.Use(middleware.Auth(authSvc))
		if usage != nil {
			protected.Use(middleware.UsageTracking(usage, logger))
		}
		{
			protected.POST("/simulate", handler.Simulate)
			protected.POST("/chat", handler.Chat)
			protected.GET("/battery-types", handler.BatteryTypes)
			protected.GET("/simulations", handler.ListSimulations)
			protected.GET("/simulations/:id", handler.GetSimulation)
			protected.POST("/simulations/:id/share", handler.ShareSimulation)
			protected.GET("/templates", handler.ListTemplates)
			protected.POST("/templates", handler.CreateTemplate)
			protected.GET("/profile", handler.GetProfile)
		}
	}

	return router
}
