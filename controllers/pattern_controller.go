package controllers

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"stock_pattern_dashboard/config"
	"stock_pattern_dashboard/models"
	"stock_pattern_dashboard/services"
	"stock_pattern_dashboard/services/patterns"
	"stock_pattern_dashboard/services/pricestore"
)

// PatternController handles pattern detection requests
type PatternController struct {
	store    *pricestore.Store
	detector *patterns.Detector
	symbols  []string
}

// NewPatternController creates a new pattern controller
func NewPatternController(db *gorm.DB, cfg *config.Config) *PatternController {
	store := pricestore.NewStore(db)
	return &PatternController{
		store:    store,
		detector: patterns.NewDetector(store),
		symbols:  cfg.Symbols,
	}
}

// GetSymbols returns the list of supported stock symbols
// GET /symbols
func (pc *PatternController) GetSymbols(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"symbols": pc.symbols})
}

// CheckPattern checks whether the pattern exists for a stock symbol
// GET /pattern/:symbol
func (pc *PatternController) CheckPattern(c *gin.Context) {
	symbol := c.Param("symbol")
	pc.checkPattern(c, symbol)
}

// CheckPatternQuery checks for the pattern using a query parameter
// GET /api/pattern?symbol=AAPL
func (pc *PatternController) CheckPatternQuery(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		log.Println("Symbol parameter missing in request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Symbol parameter is required"})
		return
	}

	pc.checkPattern(c, strings.ToUpper(symbol))
}

// GetPatterns returns the registered pattern type names
// GET /patterns
func (pc *PatternController) GetPatterns(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"patterns": pc.detector.AvailablePatterns()})
}

// CheckAllPatterns runs every registered pattern against one symbol
// GET /patterns/:symbol
func (pc *PatternController) CheckAllPatterns(c *gin.Context) {
	symbol := c.Param("symbol")

	if !pc.supported(symbol) {
		log.Printf("Invalid symbol requested: %s", symbol)
		c.JSON(http.StatusNotFound, gin.H{"error": "Symbol not supported"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":  symbol,
		"results": pc.detector.DetectAllPatterns(symbol),
	})
}

// DetectionHistory returns past detection results for one symbol, served
// from the MongoDB archive when configured and the local store otherwise
// GET /api/detections/:symbol
func (pc *PatternController) DetectionHistory(c *gin.Context) {
	symbol := c.Param("symbol")

	if !pc.supported(symbol) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Symbol not supported"})
		return
	}

	if services.GlobalMongoArchive != nil && services.GlobalMongoArchive.IsConfigured() {
		history, err := services.GlobalMongoArchive.LoadDetectionHistory(symbol, 50)
		if err != nil {
			log.Printf("Error loading archived detections for %s: %v", symbol, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch detection history"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"source": "archive",
			"data":   history,
			"count":  len(history),
		})
		return
	}

	detections, err := pc.store.DetectionsForSymbol(symbol, 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch detection history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"source": "local",
		"data":   detections,
		"count":  len(detections),
	})
}

// RecentDetections returns the latest stored detection results
// GET /api/detections
func (pc *PatternController) RecentDetections(c *gin.Context) {
	detections, err := pc.store.RecentDetections(50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch detections"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  detections,
		"count": len(detections),
	})
}

func (pc *PatternController) checkPattern(c *gin.Context, symbol string) {
	log.Printf("Pattern check requested for symbol: %s", symbol)

	if !pc.supported(symbol) {
		log.Printf("Invalid symbol requested: %s", symbol)
		c.JSON(http.StatusNotFound, gin.H{"error": "Symbol not supported"})
		return
	}

	detected, err := pc.detector.DetectPattern(symbol, patterns.DefaultPatternType)
	if err != nil {
		log.Printf("Error detecting pattern for %s: %v", symbol, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to detect pattern",
			"message": err.Error(),
		})
		return
	}

	pc.recordDetection(symbol, detected)

	log.Printf("Pattern detection for %s: %v", symbol, detected)
	c.JSON(http.StatusOK, gin.H{"pattern_detected": detected})
}

// recordDetection stores the detection result and mirrors it to the
// archive when configured. Failures here never fail the request.
func (pc *PatternController) recordDetection(symbol string, detected bool) {
	detection := &models.PatternDetection{
		Symbol:      symbol,
		PatternType: patterns.DefaultPatternType,
		Detected:    detected,
		CheckedAt:   time.Now().UTC(),
	}

	if err := pc.store.SaveDetection(detection); err != nil {
		log.Printf("Error saving detection for %s: %v", symbol, err)
		return
	}

	if services.GlobalMongoArchive != nil && services.GlobalMongoArchive.IsConfigured() {
		go func() {
			if err := services.GlobalMongoArchive.ArchiveDetection(detection); err != nil {
				log.Printf("Error archiving detection for %s: %v", symbol, err)
			}
		}()
	}
}

func (pc *PatternController) supported(symbol string) bool {
	for _, s := range pc.symbols {
		if s == symbol {
			return true
		}
	}
	return false
}
