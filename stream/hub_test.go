package stream

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"algo-trading-engine/trader"
)

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d clients, have %d", n, hub.ClientCount())
}

func TestHubBroadcastsEvents(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dialHub(t, srv)
	waitClients(t, hub, 1)

	hub.OnEvent(trader.Event{
		Type:      trader.EventSignal,
		Trader:    "t1",
		Symbol:    "BTCUSDT",
		Timestamp: time.Now(),
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev trader.Event
	require.NoError(t, json.Unmarshal(payload, &ev))
	assert.Equal(t, trader.EventSignal, ev.Type)
	assert.Equal(t, "t1", ev.Trader)
	assert.Equal(t, "BTCUSDT", ev.Symbol)
}

func TestHubMultipleClients(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	c1 := dialHub(t, srv)
	c2 := dialHub(t, srv)
	waitClients(t, hub, 2)

	hub.OnEvent(trader.Event{Type: trader.EventHeartbeat, Trader: "t1"})

	for _, conn := range []*websocket.Conn{c1, c2} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, payload, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Contains(t, string(payload), "heartbeat")
	}
}

func TestHubClientDisconnect(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dialHub(t, srv)
	waitClients(t, hub, 1)

	conn.Close()
	waitClients(t, hub, 0)

	// Broadcasting into an empty hub is a no-op.
	hub.OnEvent(trader.Event{Type: trader.EventStopped})
}

func TestHubClose(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	dialHub(t, srv)
	waitClients(t, hub, 1)

	hub.Close()
	assert.Equal(t, 0, hub.ClientCount())
}
