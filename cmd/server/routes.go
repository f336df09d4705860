package main

import (
	"github.com/gin-gonic/gin"
	"github.com/nutrilens/backend/internal/middleware"
	"github.com/nutrilens/backend/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	// IP throttle for the upload route; the per-user daily quota is
	// enforced separately inside the admission pipeline.
	analyzeLimiter := middleware.NewRateLimiter(2, 5)

	// Health check
	r.GET("/health", svc.healthHandler.CheckHealth)

	// API routes (all authenticated)
	api := r.Group("/api")
	api.Use(middleware.AuthRequired(svc.verifier, svc.quota))
	api.Use(middleware.AuditLog())
	{
		api.POST("/analyze-image", analyzeLimiter.Middleware(), svc.analysisHandler.AnalyzeImage)
		api.GET("/analyses/:id/report", svc.analysisHandler.DownloadReport)

		api.GET("/user/profile", svc.userHandler.GetProfile)
		api.GET("/user/history", svc.userHandler.GetHistory)

		admin := api.Group("/admin")
		admin.Use(middleware.AdminRequired())
		{
			admin.GET("/stats", svc.adminHandler.GetStats)
		}
	}
}
