package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"stock_pattern_dashboard/config"
	"stock_pattern_dashboard/controllers"
	"stock_pattern_dashboard/middleware"
	"stock_pattern_dashboard/scheduler"
	"stock_pattern_dashboard/services/checker"
	"stock_pattern_dashboard/services/health"
	"stock_pattern_dashboard/services/notifications"
)

// SetupRoutes sets up all API routes
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config,
	queue *notifications.Queue, chk *checker.Controller, monitor *health.Monitor,
	sched *scheduler.Scheduler) {

	// Initialize controllers
	patternController := controllers.NewPatternController(db, cfg)
	dashboardController := controllers.NewDashboardController(cfg.Symbols, queue, chk, monitor)
	authController := controllers.NewAuthController()
	adminController := controllers.NewAdminController(db, cfg, sched.Fetcher())

	// Pattern service routes (/health is registered at startup in main)
	router.GET("/symbols", patternController.GetSymbols)
	router.GET("/pattern/:symbol", patternController.CheckPattern)
	router.GET("/patterns", patternController.GetPatterns)
	router.GET("/patterns/:symbol", patternController.CheckAllPatterns)
	router.GET("/api/pattern", patternController.CheckPatternQuery)
	router.GET("/api/detections", patternController.RecentDetections)
	router.GET("/api/detections/:symbol", patternController.DetectionHistory)

	// API v1 group
	api := router.Group("/api/v1")
	{
		// Dashboard routes
		dashboard := api.Group("/dashboard")
		{
			dashboard.GET("/symbols", dashboardController.GetSymbols)
			dashboard.POST("/checks/:symbol", dashboardController.TriggerCheck)
			dashboard.GET("/notifications", dashboardController.GetNotifications)
			dashboard.GET("/backend-health", dashboardController.GetBackendHealth)
			dashboard.POST("/backend-health/dismiss", dashboardController.DismissBackendHealth)
			dashboard.GET("/ws", dashboardController.HandleWebSocket)
		}

		// Auth routes
		auth := api.Group("/auth")
		auth.Use(middleware.LoginRateLimitMiddleware())
		{
			auth.POST("/login", authController.Login)
		}

		// Admin routes
		admin := api.Group("/admin")
		admin.Use(middleware.JWTAuthMiddleware(), middleware.AdminRoleMiddleware())
		{
			admin.GET("/status", adminController.Status)
			admin.POST("/collect-historical", adminController.CollectHistorical)
			admin.POST("/cleanup", adminController.Cleanup)
		}
	}
}
