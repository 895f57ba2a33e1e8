package pricestore

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"stock_pattern_dashboard/models"
	"stock_pattern_dashboard/services/patterns"
)

// Store handles persistence of collected prices and detection results
type Store struct {
	db *gorm.DB
}

// NewStore creates a store backed by the given database
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// InsertPrice saves one collected price sample
func (s *Store) InsertPrice(price *models.StockPrice) error {
	if err := s.db.Create(price).Error; err != nil {
		return fmt.Errorf("failed to insert price for %s: %w", price.Symbol, err)
	}
	return nil
}

// GetCandles returns a symbol's price samples in the given range in
// chronological order, converted for pattern analysis
func (s *Store) GetCandles(symbol string, start, end time.Time) ([]patterns.Candle, error) {
	var prices []models.StockPrice
	err := s.db.
		Where("symbol = ? AND timestamp >= ? AND timestamp <= ?", symbol, start, end).
		Order("timestamp ASC").
		Find(&prices).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query prices for %s: %w", symbol, err)
	}

	candles := make([]patterns.Candle, len(prices))
	for i, p := range prices {
		candles[i] = patterns.Candle{
			Timestamp: p.Timestamp,
			Open:      p.Open.InexactFloat64(),
			High:      p.High.InexactFloat64(),
			Low:       p.Low.InexactFloat64(),
			Close:     p.Close.InexactFloat64(),
			Volume:    p.Volume,
		}
	}
	return candles, nil
}

// DeleteOlderThan removes price samples beyond the retention period and
// returns the number of deleted records
func (s *Store) DeleteOlderThan(retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result := s.db.Where("timestamp < ?", cutoff).Delete(&models.StockPrice{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete old prices: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// SaveDetection records the outcome of one pattern check
func (s *Store) SaveDetection(detection *models.PatternDetection) error {
	if err := s.db.Create(detection).Error; err != nil {
		return fmt.Errorf("failed to save detection for %s: %w", detection.Symbol, err)
	}
	return nil
}

// RecentDetections returns the most recent detection records, newest first
func (s *Store) RecentDetections(limit int) ([]models.PatternDetection, error) {
	if limit <= 0 {
		limit = 50
	}
	var detections []models.PatternDetection
	err := s.db.Order("checked_at DESC, id DESC").Limit(limit).Find(&detections).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	return detections, nil
}

// DetectionsForSymbol returns detection records for one symbol, newest first
func (s *Store) DetectionsForSymbol(symbol string, limit int) ([]models.PatternDetection, error) {
	if limit <= 0 {
		limit = 50
	}
	var detections []models.PatternDetection
	err := s.db.Where("symbol = ?", symbol).
		Order("checked_at DESC, id DESC").Limit(limit).Find(&detections).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query detections for %s: %w", symbol, err)
	}
	return detections, nil
}
