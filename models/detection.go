package models

import (
	"time"

	"gorm.io/gorm"
)

// PatternDetection records the outcome of one pattern check so results can be
// reviewed after the fact (and optionally archived to MongoDB)
type PatternDetection struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Symbol      string    `gorm:"index:idx_detection_symbol" json:"symbol"`
	PatternType string    `json:"pattern_type"` // e.g. cup_and_handle
	Detected    bool      `json:"detected"`
	CheckedAt   time.Time `gorm:"index" json:"checked_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// MigrateDetectionModels runs database migrations for detection models
func MigrateDetectionModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&PatternDetection{},
	)
}
