package patterns

import (
	"fmt"
	"log"
	"sort"
	"time"
)

// DefaultPatternType is checked when no explicit type is requested
const DefaultPatternType = "cup_and_handle"

// defaultLookbackDays is how far back price data is analyzed
const defaultLookbackDays = 3

// PriceSource supplies candles for a symbol over a time range
type PriceSource interface {
	GetCandles(symbol string, start, end time.Time) ([]Candle, error)
}

// Detector coordinates pattern detection across registered pattern types,
// pulling price data from the store
type Detector struct {
	patterns     map[string]Pattern
	source       PriceSource
	lookbackDays int
	now          func() time.Time
}

// NewDetector creates a detector with the built-in patterns registered
func NewDetector(source PriceSource) *Detector {
	d := &Detector{
		patterns:     make(map[string]Pattern),
		source:       source,
		lookbackDays: defaultLookbackDays,
		now:          time.Now,
	}
	d.Register(DefaultPatternType, NewCupAndHandle())
	return d
}

// Register adds a pattern detector under the given type name
func (d *Detector) Register(patternType string, p Pattern) {
	d.patterns[patternType] = p
	log.Printf("Registered pattern detector for %q", patternType)
}

// AvailablePatterns lists the registered pattern type names, sorted
func (d *Detector) AvailablePatterns() []string {
	out := make([]string, 0, len(d.patterns))
	for name := range d.patterns {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// DetectPattern checks whether the given pattern exists for a symbol using
// the last few days of stored data. An unknown pattern type is an error; a
// data lookup failure or an empty series reads as "not detected".
func (d *Detector) DetectPattern(symbol, patternType string) (bool, error) {
	pattern, ok := d.patterns[patternType]
	if !ok {
		return false, fmt.Errorf("unsupported pattern type %q", patternType)
	}

	end := d.now()
	start := end.AddDate(0, 0, -d.lookbackDays)

	candles, err := d.source.GetCandles(symbol, start, end)
	if err != nil {
		log.Printf("Error retrieving data for %s: %v", symbol, err)
		return false, nil
	}
	if len(candles) == 0 {
		log.Printf("No data available for %s", symbol)
		return false, nil
	}

	detected := pattern.Detect(candles)
	if detected {
		log.Printf("Pattern %q detected for %s", patternType, symbol)
	} else {
		log.Printf("Pattern %q not detected for %s", patternType, symbol)
	}
	return detected, nil
}

// DetectAllPatterns runs every registered pattern against a symbol
func (d *Detector) DetectAllPatterns(symbol string) map[string]bool {
	results := make(map[string]bool, len(d.patterns))

	end := d.now()
	start := end.AddDate(0, 0, -d.lookbackDays)

	candles, err := d.source.GetCandles(symbol, start, end)
	if err != nil || len(candles) == 0 {
		if err != nil {
			log.Printf("Error retrieving data for %s: %v", symbol, err)
		}
		for name := range d.patterns {
			results[name] = false
		}
		return results
	}

	for name, pattern := range d.patterns {
		results[name] = pattern.Detect(candles)
	}
	return results
}
