package patterns

import "sort"

// Peak detection parameters. Minor fluctuations below these thresholds are
// ignored so only significant turning points shape the pattern.
const (
	peakMinDistance   = 3
	peakMinProminence = 1.0
)

// smooth applies a moving-average of the given window. The result is shorter
// than the input by window-1 samples.
func smooth(prices []float64, window int) []float64 {
	if window <= 1 || len(prices) < window {
		return prices
	}
	out := make([]float64, 0, len(prices)-window+1)
	var sum float64
	for i, p := range prices {
		sum += p
		if i >= window {
			sum -= prices[i-window]
		}
		if i >= window-1 {
			out = append(out, sum/float64(window))
		}
	}
	return out
}

// findPeaks returns indices of local maxima, at least minDistance apart and
// with prominence of at least minProminence
func findPeaks(prices []float64, minDistance int, minProminence float64) []int {
	var candidates []int
	for i := 1; i < len(prices)-1; i++ {
		if prices[i] > prices[i-1] && prices[i] >= prices[i+1] {
			candidates = append(candidates, i)
		}
	}

	var prominent []int
	for _, idx := range candidates {
		if prominence(prices, idx) >= minProminence {
			prominent = append(prominent, idx)
		}
	}

	// Enforce minimum distance, keeping the higher peak on conflicts
	sort.Slice(prominent, func(a, b int) bool {
		return prices[prominent[a]] > prices[prominent[b]]
	})
	var kept []int
	for _, idx := range prominent {
		ok := true
		for _, k := range kept {
			if abs(idx-k) < minDistance {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, idx)
		}
	}
	sort.Ints(kept)
	return kept
}

// findTroughs finds local minima by inverting the series
func findTroughs(prices []float64, minDistance int, minProminence float64) []int {
	inverted := make([]float64, len(prices))
	for i, p := range prices {
		inverted[i] = -p
	}
	return findPeaks(inverted, minDistance, minProminence)
}

// prominence measures how much a peak stands out: its height above the
// higher of the two valley floors reached before a taller sample is met
// on each side.
func prominence(prices []float64, idx int) float64 {
	peak := prices[idx]

	leftMin := peak
	for i := idx - 1; i >= 0; i-- {
		if prices[i] > peak {
			break
		}
		if prices[i] < leftMin {
			leftMin = prices[i]
		}
	}

	rightMin := peak
	for i := idx + 1; i < len(prices); i++ {
		if prices[i] > peak {
			break
		}
		if prices[i] < rightMin {
			rightMin = prices[i]
		}
	}

	base := leftMin
	if rightMin > base {
		base = rightMin
	}
	return peak - base
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func maxIndex(prices []float64) int {
	best := 0
	for i := 1; i < len(prices); i++ {
		if prices[i] > prices[best] {
			best = i
		}
	}
	return best
}

func minIndex(prices []float64) int {
	best := 0
	for i := 1; i < len(prices); i++ {
		if prices[i] < prices[best] {
			best = i
		}
	}
	return best
}
