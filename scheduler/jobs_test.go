package scheduler

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"stock_pattern_dashboard/config"
	"stock_pattern_dashboard/models"
	"stock_pattern_dashboard/services/pricestore"
)

func newTestScheduler(t *testing.T) (*Scheduler, *pricestore.Store) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.sqlite")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.MigratePriceModels(db))
	require.NoError(t, models.MigrateDetectionModels(db))

	cfg := &config.Config{
		Symbols:                   []string{"AAPL"},
		RetentionDays:             3,
		CollectionIntervalMinutes: 5,
		TradingHoursStart:         "16:30",
		TradingHoursEnd:           "23:00",
		Timezone:                  "Asia/Jerusalem",
	}
	return NewScheduler(db, cfg), pricestore.NewStore(db)
}

func priceAt(symbol string, ts time.Time, close float64) *models.StockPrice {
	return &models.StockPrice{
		Symbol:    symbol,
		Timestamp: ts,
		Open:      decimal.NewFromFloat(close - 1),
		High:      decimal.NewFromFloat(close + 2),
		Low:       decimal.NewFromFloat(close - 2),
		Close:     decimal.NewFromFloat(close),
		Volume:    1_000_000,
	}
}

func TestCleanupOldDataRespectsRetention(t *testing.T) {
	s, store := newTestScheduler(t)
	now := time.Now().UTC()

	require.NoError(t, store.InsertPrice(priceAt("AAPL", now.Add(-5*24*time.Hour), 140)))
	require.NoError(t, store.InsertPrice(priceAt("AAPL", now.Add(-4*24*time.Hour), 141)))
	require.NoError(t, store.InsertPrice(priceAt("AAPL", now.Add(-time.Hour), 150)))

	s.cleanupOldData()

	candles, err := store.GetCandles("AAPL", now.Add(-30*24*time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.InDelta(t, 150, candles[0].Close, 1e-9)
}

func TestCleanupOldDataKeepsRecentRows(t *testing.T) {
	s, store := newTestScheduler(t)
	now := time.Now().UTC()

	require.NoError(t, store.InsertPrice(priceAt("AAPL", now.Add(-time.Hour), 150)))
	require.NoError(t, store.InsertPrice(priceAt("MSFT", now.Add(-2*time.Hour), 400)))

	s.cleanupOldData()

	aapl, err := store.GetCandles("AAPL", now.Add(-24*time.Hour), now)
	require.NoError(t, err)
	assert.Len(t, aapl, 1)

	msft, err := store.GetCandles("MSFT", now.Add(-24*time.Hour), now)
	require.NoError(t, err)
	assert.Len(t, msft, 1)
}

func TestFetcherIsShared(t *testing.T) {
	s, _ := newTestScheduler(t)

	require.NotNil(t, s.Fetcher())
	// Same instance on every call so callers reuse the scheduler's fetcher
	assert.Same(t, s.Fetcher(), s.Fetcher())
}
