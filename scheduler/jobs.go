package scheduler

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"
	"gorm.io/gorm"

	"stock_pattern_dashboard/config"
	"stock_pattern_dashboard/services/datafetcher"
	"stock_pattern_dashboard/services/pricestore"
)

// Scheduler manages scheduled jobs
type Scheduler struct {
	cron          *gocron.Scheduler
	store         *pricestore.Store
	dataFetcher   *datafetcher.DataFetcher
	retentionDays int
	intervalMin   int
}

// NewScheduler creates a new scheduler instance
func NewScheduler(db *gorm.DB, cfg *config.Config) *Scheduler {
	store := pricestore.NewStore(db)
	return &Scheduler{
		cron:          gocron.NewScheduler(time.UTC),
		store:         store,
		dataFetcher:   datafetcher.NewDataFetcher(store, cfg),
		retentionDays: cfg.RetentionDays,
		intervalMin:   cfg.CollectionIntervalMinutes,
	}
}

// Fetcher exposes the scheduler's data fetcher for on-demand collection
func (s *Scheduler) Fetcher() *datafetcher.DataFetcher {
	return s.dataFetcher
}

// Start starts all scheduled jobs
func (s *Scheduler) Start() {
	log.Println("Starting scheduler...")

	// Collect price data every few minutes during trading hours
	s.cron.Every(s.intervalMin).Minutes().Do(func() {
		s.collectPrices()
	})

	// Cleanup old data daily at midnight
	s.cron.Every(1).Day().At("00:00").Do(func() {
		s.cleanupOldData()
	})

	s.cron.StartAsync()
	log.Println("Scheduler started successfully")
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("Scheduler stopped")
}

// collectPrices collects the latest candle for all tracked symbols
func (s *Scheduler) collectPrices() {
	s.dataFetcher.CollectIfTradingHours()
}

// cleanupOldData removes price data beyond the retention window
func (s *Scheduler) cleanupOldData() {
	log.Println("Cleaning up old data...")

	deleted, err := s.store.DeleteOlderThan(s.retentionDays)
	if err != nil {
		log.Printf("Error cleaning up old prices: %v", err)
		return
	}

	log.Printf("Cleanup completed: %d old records deleted", deleted)
}
