package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockPrice represents one collected OHLCV sample for a tracked symbol
type StockPrice struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Symbol    string          `gorm:"index:idx_symbol_timestamp;not null" json:"symbol"`
	Timestamp time.Time       `gorm:"index:idx_symbol_timestamp;index:idx_timestamp;not null" json:"timestamp"`
	Open      decimal.Decimal `gorm:"type:decimal(15,4)" json:"open"`
	High      decimal.Decimal `gorm:"type:decimal(15,4)" json:"high"`
	Low       decimal.Decimal `gorm:"type:decimal(15,4)" json:"low"`
	Close     decimal.Decimal `gorm:"type:decimal(15,4)" json:"close"`
	Volume    int64           `json:"volume"`
	CreatedAt time.Time       `json:"created_at"`
}

// MigratePriceModels runs database migrations for price-related models
func MigratePriceModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&StockPrice{},
	)
}
