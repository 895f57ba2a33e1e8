package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock_pattern_dashboard/services/checker"
	"stock_pattern_dashboard/services/health"
	"stock_pattern_dashboard/services/notifications"
)

func newDashboardRouter(t *testing.T, backendURL string) (*gin.Engine, *notifications.Queue, *checker.Controller, *health.Monitor) {
	t.Helper()

	symbols := []string{"AAPL", "MSFT"}
	queue := notifications.NewQueueWithTTL(time.Minute)
	t.Cleanup(queue.Stop)

	chk := checker.NewController(backendURL, symbols, queue)
	monitor := health.NewMonitor(backendURL)

	dc := NewDashboardController(symbols, queue, chk, monitor)

	router := gin.New()
	router.GET("/api/v1/dashboard/symbols", dc.GetSymbols)
	router.POST("/api/v1/dashboard/checks/:symbol", dc.TriggerCheck)
	router.GET("/api/v1/dashboard/notifications", dc.GetNotifications)
	router.GET("/api/v1/dashboard/backend-health", dc.GetBackendHealth)
	router.POST("/api/v1/dashboard/backend-health/dismiss", dc.DismissBackendHealth)

	return router, queue, chk, monitor
}

func newBackendStub(t *testing.T, detected bool) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.Write([]byte(`{"status":"ok"}`))
		case "/api/pattern":
			if detected {
				w.Write([]byte(`{"pattern_detected":true}`))
			} else {
				w.Write([]byte(`{"pattern_detected":false}`))
			}
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestDashboardSymbolsStartUnchecked(t *testing.T) {
	backend := newBackendStub(t, false)
	router, _, _, _ := newDashboardRouter(t, backend.URL)

	w := doRequest(router, http.MethodGet, "/api/v1/dashboard/symbols")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Symbols []struct {
			Symbol string `json:"symbol"`
			Status string `json:"status"`
		} `json:"symbols"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Symbols, 2)

	// Configured order, all unchecked
	assert.Equal(t, "AAPL", body.Symbols[0].Symbol)
	assert.Equal(t, checker.StatusUnchecked, body.Symbols[0].Status)
	assert.Equal(t, "MSFT", body.Symbols[1].Symbol)
	assert.Equal(t, checker.StatusUnchecked, body.Symbols[1].Status)
}

func TestTriggerCheckUnknownSymbol(t *testing.T) {
	backend := newBackendStub(t, false)
	router, _, _, _ := newDashboardRouter(t, backend.URL)

	w := doRequest(router, http.MethodPost, "/api/v1/dashboard/checks/TSLA")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Symbol not tracked")
}

func TestTriggerCheckRunsAsync(t *testing.T) {
	backend := newBackendStub(t, true)
	router, _, chk, _ := newDashboardRouter(t, backend.URL)

	w := doRequest(router, http.MethodPost, "/api/v1/dashboard/checks/AAPL")
	require.Equal(t, http.StatusAccepted, w.Code)

	assert.Eventually(t, func() bool {
		return chk.Status("AAPL") == checker.StatusDetected
	}, 2*time.Second, 10*time.Millisecond)
}

func TestGetNotificationsReflectsQueue(t *testing.T) {
	backend := newBackendStub(t, false)
	router, queue, _, _ := newDashboardRouter(t, backend.URL)

	queue.Enqueue("Pattern detected", "Cup and Handle pattern found for AAPL", notifications.SeverityNormal)

	w := doRequest(router, http.MethodGet, "/api/v1/dashboard/notifications")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Count         int `json:"count"`
		Notifications []struct {
			Title    string `json:"title"`
			Severity string `json:"severity"`
		} `json:"notifications"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "Pattern detected", body.Notifications[0].Title)
	assert.Equal(t, notifications.SeverityNormal, body.Notifications[0].Severity)
}

func TestBackendHealthAndDismiss(t *testing.T) {
	// Backend that always fails its health check
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(backend.Close)

	router, _, _, monitor := newDashboardRouter(t, backend.URL)

	monitor.Poll()

	w := doRequest(router, http.MethodGet, "/api/v1/dashboard/backend-health")
	require.Equal(t, http.StatusOK, w.Code)

	var state struct {
		IsHealthy    bool `json:"is_healthy"`
		AlertVisible bool `json:"alert_visible"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.False(t, state.IsHealthy)
	assert.True(t, state.AlertVisible)

	w = doRequest(router, http.MethodPost, "/api/v1/dashboard/backend-health/dismiss")
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.False(t, state.IsHealthy)
	assert.False(t, state.AlertVisible)
}
