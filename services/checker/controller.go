package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"stock_pattern_dashboard/services/notifications"
)

// DefaultTimeout is the client-side deadline for one pattern check,
// independent of whatever timeout the remote service applies
const DefaultTimeout = 3000 * time.Millisecond

// Check statuses for a tracked symbol
const (
	StatusUnchecked   = "unchecked"
	StatusInFlight    = "in_flight"
	StatusDetected    = "detected"
	StatusNotDetected = "not_detected"
	StatusError       = "error"
)

// patternResponse is the success body of GET /api/pattern.
// PatternDetected is a pointer so a 200 with a missing field is rejected
// instead of silently reading as false.
type patternResponse struct {
	PatternDetected *bool `json:"pattern_detected"`
}

// Controller runs one independent pattern check workflow per tracked symbol
// against the remote pattern API and reports outcomes through the
// notification queue. The tracked set is fixed at construction; only the
// per-symbol status mutates.
//
// Overlapping checks for the same symbol are not serialized: whichever
// response settles last determines the final status.
type Controller struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	queue   *notifications.Queue

	mu       sync.RWMutex
	statuses map[string]string

	onResult func(symbol string, detected bool)
}

// NewController creates a controller for the given tracked symbols
func NewController(baseURL string, symbols []string, queue *notifications.Queue) *Controller {
	statuses := make(map[string]string, len(symbols))
	for _, s := range symbols {
		statuses[s] = StatusUnchecked
	}

	return &Controller{
		baseURL:  baseURL,
		client:   &http.Client{},
		timeout:  DefaultTimeout,
		queue:    queue,
		statuses: statuses,
	}
}

// SetTimeout overrides the per-check deadline; used by tests
func (c *Controller) SetTimeout(d time.Duration) {
	if d > 0 {
		c.timeout = d
	}
}

// OnResult registers a callback invoked after every settled successful check,
// e.g. to archive the detection outcome
func (c *Controller) OnResult(fn func(symbol string, detected bool)) {
	c.onResult = fn
}

// TriggerCheck runs one pattern check for the given symbol. The symbol is
// marked in-flight for the duration of the request and the marker is cleared
// on every exit path. Any failure (transport error, timeout, non-2xx status,
// malformed body) resets the symbol to unchecked and surfaces an
// alert-severity notification; there is no automatic retry.
func (c *Controller) TriggerCheck(ctx context.Context, symbol string) error {
	if !c.tracked(symbol) {
		return fmt.Errorf("symbol %s is not tracked", symbol)
	}

	c.setStatus(symbol, StatusInFlight)

	detected, err := c.checkPattern(ctx, symbol)
	if err != nil {
		log.Printf("Pattern check failed for %s: %v", symbol, err)
		c.setStatus(symbol, StatusUnchecked)
		c.queue.Enqueue(
			"Check failed",
			fmt.Sprintf("Could not complete pattern check for %s", symbol),
			notifications.SeverityAlert,
		)
		return nil
	}

	if detected {
		c.setStatus(symbol, StatusDetected)
		c.queue.Enqueue(
			"Pattern detected",
			fmt.Sprintf("Pattern detected for %s", symbol),
			notifications.SeverityNormal,
		)
	} else {
		c.setStatus(symbol, StatusNotDetected)
		c.queue.Enqueue(
			"No pattern",
			fmt.Sprintf("No pattern detected for %s", symbol),
			notifications.SeverityAlert,
		)
	}

	if c.onResult != nil {
		c.onResult(symbol, detected)
	}
	return nil
}

// Statuses returns a snapshot of the per-symbol status mapping
func (c *Controller) Statuses() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]string, len(c.statuses))
	for k, v := range c.statuses {
		out[k] = v
	}
	return out
}

// Status returns the current status for one symbol, or "" if untracked
func (c *Controller) Status(symbol string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.statuses[symbol]
}

// checkPattern issues the bounded-time request and extracts the decision
func (c *Controller) checkPattern(ctx context.Context, symbol string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/api/pattern?symbol=%s", c.baseURL, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body patternResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}
	if body.PatternDetected == nil {
		return false, fmt.Errorf("response missing pattern_detected field")
	}
	return *body.PatternDetected, nil
}

func (c *Controller) tracked(symbol string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.statuses[symbol]
	return ok
}

// setStatus replaces a symbol's status as a whole value
func (c *Controller) setStatus(symbol, status string) {
	c.mu.Lock()
	c.statuses[symbol] = status
	c.mu.Unlock()
}
