package checker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock_pattern_dashboard/services/notifications"
)

var testSymbols = []string{"AAPL", "MSFT", "GOOGL"}

func newTestController(t *testing.T, handler http.HandlerFunc) (*Controller, *notifications.Queue) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	queue := notifications.NewQueueWithTTL(time.Minute)
	t.Cleanup(queue.Stop)

	return NewController(srv.URL, testSymbols, queue), queue
}

func TestTriggerCheckDetected(t *testing.T) {
	c, queue := newTestController(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/pattern", r.URL.Path)
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"pattern_detected": true}`))
	})

	require.NoError(t, c.TriggerCheck(context.Background(), "AAPL"))

	assert.Equal(t, StatusDetected, c.Status("AAPL"))

	entries := queue.List()
	require.Len(t, entries, 1)
	assert.Equal(t, "Pattern detected", entries[0].Title)
	assert.Equal(t, notifications.SeverityNormal, entries[0].Severity)
}

func TestTriggerCheckNotDetected(t *testing.T) {
	c, queue := newTestController(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pattern_detected": false}`))
	})

	require.NoError(t, c.TriggerCheck(context.Background(), "MSFT"))

	assert.Equal(t, StatusNotDetected, c.Status("MSFT"))

	entries := queue.List()
	require.Len(t, entries, 1)
	assert.Equal(t, notifications.SeverityAlert, entries[0].Severity)
}

func TestTriggerCheckServerError(t *testing.T) {
	c, queue := newTestController(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "Failed to detect pattern"}`, http.StatusInternalServerError)
	})

	require.NoError(t, c.TriggerCheck(context.Background(), "AAPL"))

	// Failures reset the symbol to unchecked, not error
	assert.Equal(t, StatusUnchecked, c.Status("AAPL"))

	entries := queue.List()
	require.Len(t, entries, 1)
	assert.Equal(t, "Check failed", entries[0].Title)
	assert.Equal(t, notifications.SeverityAlert, entries[0].Severity)
}

func TestTriggerCheckMalformedBody(t *testing.T) {
	c, _ := newTestController(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"unexpected": 1}`))
	})

	require.NoError(t, c.TriggerCheck(context.Background(), "AAPL"))
	assert.Equal(t, StatusUnchecked, c.Status("AAPL"))
}

func TestTriggerCheckTimeout(t *testing.T) {
	release := make(chan struct{})
	c, queue := newTestController(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	})
	defer close(release)
	c.SetTimeout(50 * time.Millisecond)

	start := time.Now()
	require.NoError(t, c.TriggerCheck(context.Background(), "MSFT"))
	assert.Less(t, time.Since(start), time.Second)

	assert.Equal(t, StatusUnchecked, c.Status("MSFT"))

	entries := queue.List()
	require.Len(t, entries, 1)
	assert.Equal(t, notifications.SeverityAlert, entries[0].Severity)
}

func TestTriggerCheckUntrackedSymbol(t *testing.T) {
	c, queue := newTestController(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pattern_detected": true}`))
	})

	err := c.TriggerCheck(context.Background(), "ZZZZ")
	require.Error(t, err)
	assert.Empty(t, queue.List())
	assert.Empty(t, c.Status("ZZZZ"))
}

func TestInFlightMarkerClearedOnEveryPath(t *testing.T) {
	responses := []http.HandlerFunc{
		func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"pattern_detected": true}`)) },
		func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"pattern_detected": false}`)) },
		func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) },
		func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`not json`)) },
	}

	for _, handler := range responses {
		c, _ := newTestController(t, handler)
		require.NoError(t, c.TriggerCheck(context.Background(), "GOOGL"))
		assert.NotEqual(t, StatusInFlight, c.Status("GOOGL"))
	}
}

func TestStatusIsInFlightDuringCheck(t *testing.T) {
	inHandler := make(chan struct{})
	release := make(chan struct{})
	c, _ := newTestController(t, func(w http.ResponseWriter, r *http.Request) {
		close(inHandler)
		<-release
		w.Write([]byte(`{"pattern_detected": true}`))
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.TriggerCheck(context.Background(), "AAPL")
	}()

	<-inHandler
	assert.Equal(t, StatusInFlight, c.Status("AAPL"))

	close(release)
	<-done
	assert.Equal(t, StatusDetected, c.Status("AAPL"))
}

// Overlapping checks for one symbol are not serialized: the response that
// settles last wins, even if it belongs to the earlier trigger.
func TestOverlappingChecksLastSettlingWins(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	firstRelease := make(chan struct{})
	secondDone := make(chan struct{})

	c, _ := newTestController(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()

		if n == 1 {
			// First request parks until the second has fully settled
			<-firstRelease
			w.Write([]byte(`{"pattern_detected": true}`))
			return
		}
		w.Write([]byte(`{"pattern_detected": false}`))
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.TriggerCheck(context.Background(), "GOOGL")
	}()

	// Wait for the first request to reach the handler before triggering again
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 1
	}, time.Second, 5*time.Millisecond)

	go func() {
		defer wg.Done()
		c.TriggerCheck(context.Background(), "GOOGL")
		close(secondDone)
	}()

	<-secondDone
	assert.Equal(t, StatusNotDetected, c.Status("GOOGL"))

	// Now let the first, earlier-triggered check settle: its result overwrites
	close(firstRelease)
	wg.Wait()
	assert.Equal(t, StatusDetected, c.Status("GOOGL"))
}

func TestStatusesSnapshot(t *testing.T) {
	c, _ := newTestController(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pattern_detected": true}`))
	})

	statuses := c.Statuses()
	require.Len(t, statuses, len(testSymbols))
	for _, s := range testSymbols {
		assert.Equal(t, StatusUnchecked, statuses[s])
	}

	require.NoError(t, c.TriggerCheck(context.Background(), "AAPL"))

	// The earlier snapshot is unaffected
	assert.Equal(t, StatusUnchecked, statuses["AAPL"])
	assert.Equal(t, StatusDetected, c.Statuses()["AAPL"])
}

func TestOnResultCallback(t *testing.T) {
	c, _ := newTestController(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pattern_detected": true}`))
	})

	var gotSymbol string
	var gotDetected bool
	c.OnResult(func(symbol string, detected bool) {
		gotSymbol = symbol
		gotDetected = detected
	})

	require.NoError(t, c.TriggerCheck(context.Background(), "AAPL"))
	assert.Equal(t, "AAPL", gotSymbol)
	assert.True(t, gotDetected)
}
