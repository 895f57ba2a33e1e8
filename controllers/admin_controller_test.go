package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"stock_pattern_dashboard/config"
	"stock_pattern_dashboard/models"
	"stock_pattern_dashboard/scheduler"
	"stock_pattern_dashboard/services"
	"stock_pattern_dashboard/services/pricestore"
)

func samplePriceAt(symbol string, ts time.Time, close float64) *models.StockPrice {
	return &models.StockPrice{
		Symbol:    symbol,
		Timestamp: ts,
		Open:      decimal.NewFromFloat(close),
		High:      decimal.NewFromFloat(close + 1),
		Low:       decimal.NewFromFloat(close - 1),
		Close:     decimal.NewFromFloat(close),
		Volume:    10000,
	}
}

// newAdminRouter wires the admin controller the way main does: the
// scheduler owns the fetcher and the controller borrows it
func newAdminRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	t.Helper()

	cfg := &config.Config{
		Symbols:                   []string{"AAPL"},
		RetentionDays:             3,
		CollectionIntervalMinutes: 5,
		TradingHoursStart:         "16:30",
		TradingHoursEnd:           "23:00",
		Timezone:                  "Asia/Jerusalem",
	}
	sched := scheduler.NewScheduler(db, cfg)
	ac := NewAdminController(db, cfg, sched.Fetcher())

	router := gin.New()
	router.GET("/status", ac.Status)
	router.POST("/cleanup", ac.Cleanup)
	return router
}

func TestAdminCleanupDeletesOldRows(t *testing.T) {
	db := newTestDB(t)
	store := pricestore.NewStore(db)
	now := time.Now().UTC()

	require.NoError(t, store.InsertPrice(samplePriceAt("AAPL", now.Add(-5*24*time.Hour), 140)))
	require.NoError(t, store.InsertPrice(samplePriceAt("AAPL", now.Add(-time.Hour), 150)))

	router := newAdminRouter(t, db)
	w := doRequest(router, http.MethodPost, "/cleanup")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		RetentionDays int   `json:"retention_days"`
		Deleted       int64 `json:"deleted"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 3, body.RetentionDays)
	assert.Equal(t, int64(1), body.Deleted)

	candles, err := store.GetCandles("AAPL", now.Add(-30*24*time.Hour), now)
	require.NoError(t, err)
	assert.Len(t, candles, 1)
}

func TestAdminStatusReportsServices(t *testing.T) {
	prevArchive := services.GlobalMongoArchive
	prevStream := services.GlobalStreamService
	t.Cleanup(func() {
		services.GlobalMongoArchive = prevArchive
		services.GlobalStreamService = prevStream
	})

	services.GlobalMongoArchive = &services.MongoArchive{}
	require.NoError(t, services.InitStreamService())
	t.Cleanup(services.GlobalStreamService.Shutdown)

	router := newAdminRouter(t, newTestDB(t))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.RemoteAddr = "203.0.113.9:51234"
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Stream struct {
			ClientCount int `json:"client_count"`
			MaxClients  int `json:"max_clients"`
		} `json:"stream"`
		Mongo struct {
			URISet    bool `json:"uri_set"`
			Connected bool `json:"connected"`
		} `json:"mongodb"`
		LoginAttemptsRemaining int `json:"login_attempts_remaining"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	assert.Equal(t, 0, body.Stream.ClientCount)
	assert.Equal(t, 100, body.Stream.MaxClients)
	assert.False(t, body.Mongo.URISet)
	assert.False(t, body.Mongo.Connected)
	assert.Equal(t, 5, body.LoginAttemptsRemaining)
}
