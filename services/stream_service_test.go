package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStream(t *testing.T) (*StreamService, string) {
	t.Helper()

	s := &StreamService{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan WebSocketMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		shutdown:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	go s.run()
	t.Cleanup(s.Shutdown)

	server := httptest.NewServer(http.HandlerFunc(s.HandleWebSocket))
	t.Cleanup(server.Close)

	return s, "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestStreamBroadcastReachesClient(t *testing.T) {
	s, wsURL := newTestStream(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Wait for the hub to register the client
	require.Eventually(t, func() bool {
		return s.GetClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	s.BroadcastMessage("notification", map[string]string{"title": "Pattern detected"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg WebSocketMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "notification", msg.Type)
	assert.NotEmpty(t, msg.Time)
}

func TestStreamClientCountTracksConnections(t *testing.T) {
	s, wsURL := newTestStream(t)

	conn1, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	conn2, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn2.Close()

	require.Eventually(t, func() bool {
		return s.GetClientCount() == 2
	}, time.Second, 10*time.Millisecond)

	conn1.Close()

	require.Eventually(t, func() bool {
		return s.GetClientCount() == 1
	}, time.Second, 10*time.Millisecond)
}
