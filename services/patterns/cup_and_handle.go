package patterns

import (
	"log"
	"math"
	"sort"
)

// Default Cup and Handle proportions. Depths are fractions of the reference
// price range, lengths are relative to the cup length.
const (
	DefaultCupDepthMin     = 0.10
	DefaultCupDepthMax     = 0.60
	DefaultHandleDepthMin  = 0.10
	DefaultHandleDepthMax  = 0.60
	DefaultHandleLengthMax = 0.70
)

// minPatternSamples is the minimum number of candles needed to even attempt
// detection
const minPatternSamples = 10

// CupAndHandle detects the bullish continuation pattern where price falls
// (left side of cup), bottoms out, recovers to near the prior peak, pulls
// back into a shallower handle, and then resumes upward.
type CupAndHandle struct {
	CupDepthMin     float64
	CupDepthMax     float64
	HandleDepthMin  float64
	HandleDepthMax  float64
	HandleLengthMax float64

	cupLeft      int
	cupBottom    int
	cupRight     int
	handleBottom int
}

// NewCupAndHandle creates a detector with the default proportions
func NewCupAndHandle() *CupAndHandle {
	return &CupAndHandle{
		CupDepthMin:     DefaultCupDepthMin,
		CupDepthMax:     DefaultCupDepthMax,
		HandleDepthMin:  DefaultHandleDepthMin,
		HandleDepthMax:  DefaultHandleDepthMax,
		HandleLengthMax: DefaultHandleLengthMax,
	}
}

// Name returns the pattern name
func (p *CupAndHandle) Name() string {
	return "Cup and Handle"
}

// Detect reports whether a Cup and Handle formation exists in the candles
func (p *CupAndHandle) Detect(candles []Candle) bool {
	p.cupLeft, p.cupBottom, p.cupRight, p.handleBottom = -1, -1, -1, -1

	if len(candles) < minPatternSamples {
		log.Println("Insufficient data points for Cup and Handle detection")
		return false
	}

	prices := closes(candles)
	if len(prices) > 5 {
		prices = smooth(prices, 3)
	}

	peaks, troughs := p.identifyPeaksAndTroughs(prices)

	if !p.identifyCupFormation(prices, peaks, troughs) {
		return false
	}
	if !p.identifyHandleFormation(prices, troughs) {
		return false
	}

	log.Printf("Cup and Handle pattern detected. Cup: %d-%d-%d, Handle: %d",
		p.cupLeft, p.cupBottom, p.cupRight, p.handleBottom)
	return true
}

// identifyPeaksAndTroughs locates significant turning points, falling back to
// a halves-based search when the series is too smooth to yield enough of them
func (p *CupAndHandle) identifyPeaksAndTroughs(prices []float64) ([]int, []int) {
	peaks := findPeaks(prices, peakMinDistance, peakMinProminence)
	troughs := findTroughs(prices, peakMinDistance, peakMinProminence)

	if len(peaks) < 2 || len(troughs) < 1 {
		mid := len(prices) / 2

		if mid > 0 {
			peaks = append(peaks, maxIndex(prices[:mid]))
		}

		lo := mid - mid/2
		hi := mid + mid/2
		if hi > len(prices) {
			hi = len(prices)
		}
		if hi > lo {
			troughs = append(troughs, minIndex(prices[lo:hi])+lo)
		}

		if mid < len(prices) {
			peaks = append(peaks, maxIndex(prices[mid:])+mid)
		}

		sort.Ints(peaks)
		sort.Ints(troughs)
	}

	return peaks, troughs
}

// identifyCupFormation looks for a rounded U: an early peak, a low trough
// after it, and a recovery peak near the height of the first
func (p *CupAndHandle) identifyCupFormation(prices []float64, peaks, troughs []int) bool {
	if len(peaks) < 2 || len(troughs) < 1 {
		return false
	}

	// Prefer the highest peak in the first third for the cup's left rim
	leftPeak := -1
	for _, idx := range peaks {
		if idx < len(prices)/3 && (leftPeak < 0 || prices[idx] > prices[leftPeak]) {
			leftPeak = idx
		}
	}
	if leftPeak < 0 {
		leftPeak = peaks[0]
	}

	// Cup bottom is the lowest trough after the left rim
	cupBottom := -1
	for _, idx := range troughs {
		if idx > leftPeak && (cupBottom < 0 || prices[idx] < prices[cupBottom]) {
			cupBottom = idx
		}
	}
	if cupBottom < 0 {
		return false
	}

	// Reject V-shaped reversals: a genuine cup has a flat-ish bottom
	lo := cupBottom - 2
	if lo < 0 {
		lo = 0
	}
	hi := cupBottom + 2
	if hi > len(prices)-1 {
		hi = len(prices) - 1
	}
	bottomStd := stddev(prices[lo : hi+1])
	cupDepth := prices[leftPeak] - prices[cupBottom]
	if cupDepth > 0 && bottomStd/cupDepth > 0.05 {
		return false
	}

	// Right rim: first peak after the bottom within 15% of the left rim height
	var rightCandidates []int
	for _, idx := range peaks {
		if idx > cupBottom {
			rightCandidates = append(rightCandidates, idx)
		}
	}
	if len(rightCandidates) == 0 {
		return false
	}

	for _, idx := range rightCandidates {
		diff := math.Abs(prices[idx]-prices[leftPeak]) / prices[leftPeak]
		if diff <= 0.15 {
			p.cupLeft = leftPeak
			p.cupBottom = cupBottom
			p.cupRight = idx
			return true
		}
	}

	// Fallback: the highest peak after the bottom, with a looser 20% bound
	highest := rightCandidates[0]
	for _, idx := range rightCandidates[1:] {
		if prices[idx] > prices[highest] {
			highest = idx
		}
	}
	diff := math.Abs(prices[highest]-prices[leftPeak]) / prices[leftPeak]
	if diff <= 0.20 {
		p.cupLeft = leftPeak
		p.cupBottom = cupBottom
		p.cupRight = highest
		return true
	}

	return false
}

// identifyHandleFormation looks for a shallow pullback after the cup's right
// rim followed by a recovery to near the rim level
func (p *CupAndHandle) identifyHandleFormation(prices []float64, troughs []int) bool {
	if p.cupRight < 0 {
		return false
	}

	cupRightPrice := prices[p.cupRight]
	cupDepth := cupRightPrice - prices[p.cupBottom]
	cupLength := p.cupRight - p.cupLeft
	if cupDepth <= 0 || cupLength <= 0 {
		return false
	}

	for _, troughIdx := range troughs {
		if troughIdx <= p.cupRight {
			continue
		}

		depthRatio := (cupRightPrice - prices[troughIdx]) / cupDepth
		if depthRatio > 0.5 {
			continue
		}
		if depthRatio < p.HandleDepthMin || depthRatio > p.HandleDepthMax {
			continue
		}

		handleLength := troughIdx - p.cupRight
		if float64(handleLength)/float64(cupLength) > p.HandleLengthMax {
			continue
		}

		// Price must recover to at least 95% of the rim after the handle
		if troughIdx >= len(prices)-1 {
			continue
		}
		postMax := prices[troughIdx+1]
		for _, v := range prices[troughIdx+1:] {
			if v > postMax {
				postMax = v
			}
		}
		if postMax >= cupRightPrice*0.95 {
			p.handleBottom = troughIdx
			return true
		}
	}

	return false
}

// stddev returns the population standard deviation
func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}
