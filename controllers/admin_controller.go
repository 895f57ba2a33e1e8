package controllers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"stock_pattern_dashboard/config"
	"stock_pattern_dashboard/middleware"
	"stock_pattern_dashboard/services"
	"stock_pattern_dashboard/services/datafetcher"
	"stock_pattern_dashboard/services/pricestore"
)

// AdminController handles privileged maintenance operations
type AdminController struct {
	store         *pricestore.Store
	fetcher       *datafetcher.DataFetcher
	retentionDays int
}

// NewAdminController creates a new admin controller sharing the
// scheduler's data fetcher
func NewAdminController(db *gorm.DB, cfg *config.Config, fetcher *datafetcher.DataFetcher) *AdminController {
	return &AdminController{
		store:         pricestore.NewStore(db),
		fetcher:       fetcher,
		retentionDays: cfg.RetentionDays,
	}
}

// CollectHistoricalRequest is the backfill payload
type CollectHistoricalRequest struct {
	Days int `json:"days"`
}

// CollectHistorical backfills price data for all tracked symbols
// POST /api/v1/admin/collect-historical
func (ac *AdminController) CollectHistorical(c *gin.Context) {
	var req CollectHistoricalRequest
	// Body is optional; default to the retention window
	c.ShouldBindJSON(&req)
	if req.Days <= 0 {
		req.Days = ac.retentionDays
	}

	saved := ac.fetcher.CollectHistorical(req.Days)

	c.JSON(http.StatusOK, gin.H{
		"days":  req.Days,
		"saved": saved,
	})
}

// Status reports the health of the auxiliary services
// GET /api/v1/admin/status
func (ac *AdminController) Status(c *gin.Context) {
	status := gin.H{}

	if services.GlobalStreamService != nil {
		status["stream"] = services.GlobalStreamService.GetStatus()
	}

	if archive := services.GlobalMongoArchive; archive != nil {
		mongoStatus := archive.GetConnectionStatus()
		if archive.IsURISet() && archive.IsConfigured() {
			if count, err := archive.GetDetectionCount(); err == nil {
				mongoStatus["detections"] = count
			}
		} else if lastErr := archive.GetLastError(); lastErr != "" {
			log.Printf("MongoDB archive unavailable: %s", lastErr)
		}
		status["mongodb"] = mongoStatus
	}

	status["login_attempts_remaining"] = middleware.GetLoginRateLimiter().GetRemainingAttempts(c.ClientIP())

	c.JSON(http.StatusOK, status)
}

// Cleanup removes price data older than the retention window
// POST /api/v1/admin/cleanup
func (ac *AdminController) Cleanup(c *gin.Context) {
	deleted, err := ac.store.DeleteOlderThan(ac.retentionDays)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clean up old data"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"retention_days": ac.retentionDays,
		"deleted":        deleted,
	})
}
