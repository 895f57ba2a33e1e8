package controllers

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"stock_pattern_dashboard/services"
	"stock_pattern_dashboard/services/checker"
	"stock_pattern_dashboard/services/health"
	"stock_pattern_dashboard/services/notifications"
)

// DashboardController exposes the dashboard state (per-symbol check
// statuses, notifications, backend health) to the browser
type DashboardController struct {
	symbols []string
	queue   *notifications.Queue
	checker *checker.Controller
	monitor *health.Monitor
}

// NewDashboardController creates a new dashboard controller
func NewDashboardController(symbols []string, queue *notifications.Queue, chk *checker.Controller, monitor *health.Monitor) *DashboardController {
	return &DashboardController{
		symbols: symbols,
		queue:   queue,
		checker: chk,
		monitor: monitor,
	}
}

// GetSymbols returns tracked symbols with their current check status
// GET /api/v1/dashboard/symbols
func (dc *DashboardController) GetSymbols(c *gin.Context) {
	statuses := dc.checker.Statuses()

	// Preserve configured order for stable rendering
	entries := make([]gin.H, 0, len(dc.symbols))
	for _, symbol := range dc.symbols {
		entries = append(entries, gin.H{
			"symbol": symbol,
			"status": statuses[symbol],
		})
	}

	c.JSON(http.StatusOK, gin.H{"symbols": entries})
}

// TriggerCheck starts an asynchronous pattern check for one symbol
// POST /api/v1/dashboard/checks/:symbol
func (dc *DashboardController) TriggerCheck(c *gin.Context) {
	symbol := c.Param("symbol")

	if dc.checker.Status(symbol) == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Symbol not tracked"})
		return
	}

	// The request context ends with the 202 response, so the check
	// runs against the background context.
	go func() {
		if err := dc.checker.TriggerCheck(context.Background(), symbol); err != nil {
			log.Printf("Check failed to start for %s: %v", symbol, err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"symbol": symbol,
		"status": checker.StatusInFlight,
	})
}

// GetNotifications returns the currently live notifications
// GET /api/v1/dashboard/notifications
func (dc *DashboardController) GetNotifications(c *gin.Context) {
	entries := dc.queue.List()
	c.JSON(http.StatusOK, gin.H{
		"notifications": entries,
		"count":         len(entries),
	})
}

// GetBackendHealth returns the backend health state
// GET /api/v1/dashboard/backend-health
func (dc *DashboardController) GetBackendHealth(c *gin.Context) {
	c.JSON(http.StatusOK, dc.monitor.State())
}

// DismissBackendHealth hides the backend health alert
// POST /api/v1/dashboard/backend-health/dismiss
func (dc *DashboardController) DismissBackendHealth(c *gin.Context) {
	dc.monitor.Dismiss()
	c.JSON(http.StatusOK, dc.monitor.State())
}

// HandleWebSocket upgrades the connection to the event stream
// GET /api/v1/dashboard/ws
func (dc *DashboardController) HandleWebSocket(c *gin.Context) {
	if services.GlobalStreamService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Stream service not available"})
		return
	}
	services.GlobalStreamService.HandleWebSocket(c.Writer, c.Request)
}
