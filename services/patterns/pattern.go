package patterns

import "time"

// Candle is one OHLCV sample used for pattern analysis
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// Pattern detects a specific chart formation in a price series
type Pattern interface {
	// Detect reports whether the pattern exists in the provided candles.
	// Candles must be in chronological order.
	Detect(candles []Candle) bool
	// Name returns the human-readable pattern name
	Name() string
}

// closes extracts the close price series from candles
func closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}
