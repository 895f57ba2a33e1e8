package datafetcher

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"stock_pattern_dashboard/config"
	"stock_pattern_dashboard/models"
	"stock_pattern_dashboard/services/pricestore"
)

// YahooChartBaseURL is the endpoint for fetching intraday candles
const YahooChartBaseURL = "https://query1.finance.yahoo.com"

// requestTimeout bounds one chart API call
const requestTimeout = 10 * time.Second

// chartResponse represents the Yahoo Finance chart API response.
// Value arrays may contain nulls for missing samples.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// DataFetcher collects intraday price data for the tracked symbols and
// stores it for pattern analysis
type DataFetcher struct {
	store      *pricestore.Store
	httpClient *http.Client

	// BaseURL of the chart API; overridable for tests
	BaseURL string

	symbols         []string
	tradingStart    string
	tradingEnd      string
	location        *time.Location
	intervalMinutes int
}

// NewDataFetcher creates a fetcher configured from the application config
func NewDataFetcher(store *pricestore.Store, cfg *config.Config) *DataFetcher {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Printf("Timezone load failed (%v); using UTC", err)
		loc = time.UTC
	}

	return &DataFetcher{
		store:           store,
		httpClient:      &http.Client{Timeout: requestTimeout},
		BaseURL:         YahooChartBaseURL,
		symbols:         cfg.Symbols,
		tradingStart:    cfg.TradingHoursStart,
		tradingEnd:      cfg.TradingHoursEnd,
		location:        loc,
		intervalMinutes: cfg.CollectionIntervalMinutes,
	}
}

// IsTradingHours reports whether the given time falls inside the configured
// trading window on a weekday
func (df *DataFetcher) IsTradingHours(now time.Time) bool {
	local := now.In(df.location)

	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return false
	}

	// HH:MM strings compare correctly lexicographically
	current := local.Format("15:04")
	return df.tradingStart <= current && current <= df.tradingEnd
}

// CollectLatest fetches the most recent candle for every tracked symbol and
// saves it. Returns the number of symbols successfully collected.
func (df *DataFetcher) CollectLatest() int {
	log.Printf("Starting collection for %d symbols", len(df.symbols))
	successful := 0

	end := time.Now()
	start := end.Add(-24 * time.Hour)

	for _, symbol := range df.symbols {
		candles, err := df.FetchCandles(symbol, start, end)
		if err != nil {
			log.Printf("Error fetching data for %s: %v", symbol, err)
			continue
		}
		if len(candles) == 0 {
			log.Printf("No data returned for %s", symbol)
			continue
		}

		latest := candles[len(candles)-1]
		if err := df.store.InsertPrice(latest); err != nil {
			log.Printf("Error saving data for %s: %v", symbol, err)
			continue
		}

		log.Printf("Saved latest price for %s: %s", symbol, latest.Close)
		successful++
	}

	log.Printf("Collection completed: %d out of %d symbols successful", successful, len(df.symbols))
	return successful
}

// CollectIfTradingHours collects only inside the trading window
func (df *DataFetcher) CollectIfTradingHours() int {
	if !df.IsTradingHours(time.Now()) {
		log.Println("Outside trading hours, skipping collection")
		return 0
	}
	log.Println("Within trading hours, collecting data")
	return df.CollectLatest()
}

// CollectHistorical backfills candles for the given number of days for all
// tracked symbols. Returns the number of data points saved.
func (df *DataFetcher) CollectHistorical(days int) int {
	log.Printf("Starting historical data collection for %d symbols, %d days", len(df.symbols), days)
	total := 0

	end := time.Now()
	start := end.AddDate(0, 0, -days)

	for _, symbol := range df.symbols {
		candles, err := df.FetchCandles(symbol, start, end)
		if err != nil {
			log.Printf("Error collecting historical data for %s: %v", symbol, err)
			continue
		}

		saved := 0
		for _, candle := range candles {
			if err := df.store.InsertPrice(candle); err != nil {
				log.Printf("Error saving data point for %s: %v", symbol, err)
				continue
			}
			saved++
		}

		log.Printf("Saved %d/%d historical data points for %s", saved, len(candles), symbol)
		total += saved
	}

	log.Printf("Historical collection completed: %d data points saved", total)
	return total
}

// FetchCandles fetches candles for one symbol over a time range from the
// chart API at the configured collection interval
func (df *DataFetcher) FetchCandles(symbol string, start, end time.Time) ([]*models.StockPrice, error) {
	url := fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=%dm",
		df.BaseURL, symbol, start.Unix(), end.Unix(), df.intervalMinutes)

	resp, err := df.httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chart data: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chart API returned status %d", resp.StatusCode)
	}

	var chart chartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, nil
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	var candles []*models.StockPrice
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue // missing sample
		}

		candle := &models.StockPrice{
			Symbol:    symbol,
			Timestamp: time.Unix(ts, 0).UTC(),
			Close:     decimal.NewFromFloat(*quote.Close[i]),
		}
		if i < len(quote.Open) && quote.Open[i] != nil {
			candle.Open = decimal.NewFromFloat(*quote.Open[i])
		}
		if i < len(quote.High) && quote.High[i] != nil {
			candle.High = decimal.NewFromFloat(*quote.High[i])
		}
		if i < len(quote.Low) && quote.Low[i] != nil {
			candle.Low = decimal.NewFromFloat(*quote.Low[i])
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			candle.Volume = *quote.Volume[i]
		}
		candles = append(candles, candle)
	}
	return candles, nil
}
