package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

// Poll settings. Each poll gets its own deadline; a slow poll may overlap the
// next tick, which is tolerated rather than guarded against.
const (
	DefaultPollInterval = 10 * time.Second
	DefaultPollTimeout  = 10 * time.Second
)

// State is the two-flag backend status exposed to the dashboard
type State struct {
	IsHealthy    bool `json:"is_healthy"`
	AlertVisible bool `json:"alert_visible"`
}

type healthResponse struct {
	Status string `json:"status"`
}

// Monitor periodically probes the backend liveness endpoint and keeps a
// sticky, dismissible alert state. It starts Healthy/Hidden; a failed poll
// surfaces the alert, a successful poll clears everything, and a dismissal
// hides the alert until the next failure re-surfaces it.
type Monitor struct {
	baseURL  string
	client   *http.Client
	interval time.Duration
	timeout  time.Duration
	cron     *gocron.Scheduler

	mu       sync.RWMutex
	state    State
	onChange func(State)
}

// NewMonitor creates a monitor for the given backend base URL
func NewMonitor(baseURL string) *Monitor {
	return &Monitor{
		baseURL:  baseURL,
		client:   &http.Client{},
		interval: DefaultPollInterval,
		timeout:  DefaultPollTimeout,
		cron:     gocron.NewScheduler(time.UTC),
		state:    State{IsHealthy: true, AlertVisible: false},
	}
}

// SetInterval overrides the poll period; used by tests
func (m *Monitor) SetInterval(d time.Duration) {
	if d > 0 {
		m.interval = d
	}
}

// SetTimeout overrides the per-poll deadline; used by tests
func (m *Monitor) SetTimeout(d time.Duration) {
	if d > 0 {
		m.timeout = d
	}
}

// OnChange registers a callback invoked whenever the state changes.
// Used to push health updates to connected websocket clients.
func (m *Monitor) OnChange(fn func(State)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// Start begins polling on the configured period. Monitoring runs for the
// lifetime of the application; there is no terminal state.
func (m *Monitor) Start() {
	log.Printf("Starting health monitor for %s (every %v)", m.baseURL, m.interval)
	m.cron.Every(m.interval).Do(m.Poll)
	m.cron.StartAsync()
}

// Stop halts the poll timer
func (m *Monitor) Stop() {
	m.cron.Stop()
	log.Println("Health monitor stopped")
}

// Poll probes the backend once and applies the resulting transition
func (m *Monitor) Poll() {
	if err := m.probe(); err != nil {
		log.Printf("Health poll failed: %v", err)
		m.apply(false)
		return
	}
	m.apply(true)
}

// Dismiss hides a visible alert without changing the health flag.
// No-op in any other state.
func (m *Monitor) Dismiss() {
	m.mu.Lock()
	if m.state.IsHealthy || !m.state.AlertVisible {
		m.mu.Unlock()
		return
	}
	m.state = State{IsHealthy: false, AlertVisible: false}
	state := m.state
	callback := m.onChange
	m.mu.Unlock()

	if callback != nil {
		callback(state)
	}
}

// State returns a snapshot of the current health state
func (m *Monitor) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// apply replaces the state as a whole value based on the poll outcome.
// A fresh failure re-surfaces the alert even after a dismissal.
func (m *Monitor) apply(healthy bool) {
	next := State{IsHealthy: true, AlertVisible: false}
	if !healthy {
		next = State{IsHealthy: false, AlertVisible: true}
	}

	m.mu.Lock()
	changed := next != m.state
	m.state = next
	callback := m.onChange
	m.mu.Unlock()

	if changed && callback != nil {
		callback(next)
	}
}

// probe performs one bounded liveness request. Non-2xx responses, transport
// errors, timeouts and malformed bodies all count as unreachable.
func (m *Monitor) probe() error {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if body.Status != "ok" {
		return fmt.Errorf("unexpected health status %q", body.Status)
	}
	return nil
}
