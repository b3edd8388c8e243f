package connection

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/market-alerts/internal/auth"
)

// mockWSServer creates a test WebSocket server.
func mockWSServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))

	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func testClientConfig(server *httptest.Server) ClientConfig {
	return ClientConfig{
		URL:          wsURL(server),
		PingInterval: time.Second,
		PingTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   100,
	}
}

func readUntilClosed(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestClient_Connect(t *testing.T) {
	server := mockWSServer(t, readUntilClosed)
	defer server.Close()

	client := NewClient(testClientConfig(server), nil)

	require.NoError(t, client.Connect(context.Background()))
	assert.True(t, client.IsConnected())

	require.NoError(t, client.Close())
	assert.False(t, client.IsConnected())

	assert.ErrorIs(t, client.Connect(context.Background()), ErrAlreadyClosed)
}

func TestClient_ConnectSendsBearerToken(t *testing.T) {
	gotAuth := make(chan string, 1)
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth <- r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		readUntilClosed(conn)
	}))
	defer server.Close()

	cfg := testClientConfig(server)
	cfg.Tokens = auth.Static("stream-token")
	client := NewClient(cfg, nil)

	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()
	assert.Equal(t, "Bearer stream-token", <-gotAuth)
}

func TestClient_ConnectRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server), nil)
	err := client.Connect(context.Background())
	assert.ErrorContains(t, err, "status 401")
	assert.False(t, client.IsConnected())
}

func TestClient_Send(t *testing.T) {
	received := make(chan []byte, 1)
	server := mockWSServer(t, func(conn *websocket.Conn) {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		received <- msg
		readUntilClosed(conn)
	})
	defer server.Close()

	client := NewClient(testClientConfig(server), nil)
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	testMsg := []byte(`{"test": "message"}`)
	require.NoError(t, client.Send(testMsg))

	select {
	case got := <-received:
		assert.Equal(t, testMsg, got)
	case <-time.After(time.Second):
		t.Fatal("server did not receive message")
	}
}

func TestClient_Messages(t *testing.T) {
	testMessages := []string{
		`{"action": "snapshot", "alerts": []}`,
		`{"action": "canceled", "uuid": "a-1"}`,
		`{"action": "canceled", "uuid": "a-2"}`,
	}

	server := mockWSServer(t, func(conn *websocket.Conn) {
		for _, msg := range testMessages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		readUntilClosed(conn)
	})
	defer server.Close()

	client := NewClient(testClientConfig(server), nil)
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	var received []string
	timeout := time.After(time.Second)

	for i := 0; i < len(testMessages); i++ {
		select {
		case msg := <-client.Messages():
			received = append(received, string(msg.Data))
			assert.False(t, msg.ReceivedAt.IsZero())
		case <-timeout:
			t.Fatalf("timeout waiting for messages, received %d of %d", len(received), len(testMessages))
		}
	}

	assert.Equal(t, testMessages, received)
}

func TestClient_ServerCloseReportsError(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"snapshot"}`))
	})
	defer server.Close()

	client := NewClient(testClientConfig(server), nil)
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	select {
	case err := <-client.Errors():
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("expected connection error")
	}
	assert.False(t, client.IsConnected())

	select {
	case msg := <-client.Messages():
		assert.Equal(t, `{"action":"snapshot"}`, string(msg.Data), "frames before the error are kept")
	default:
		t.Fatal("expected buffered frame")
	}
}

func TestClient_SendNotConnected(t *testing.T) {
	client := NewClient(ClientConfig{URL: "ws://localhost:12345", BufferSize: 100}, nil)

	assert.ErrorIs(t, client.Send([]byte("test")), ErrNotConnected)
}

func TestClient_DoubleClose(t *testing.T) {
	server := mockWSServer(t, readUntilClosed)
	defer server.Close()

	client := NewClient(testClientConfig(server), nil)
	require.NoError(t, client.Connect(context.Background()))

	assert.NoError(t, client.Close())
	assert.NoError(t, client.Close())
}

func TestClient_PingHandler(t *testing.T) {
	var mu sync.Mutex
	var pong string

	server := mockWSServer(t, func(conn *websocket.Conn) {
		conn.SetPongHandler(func(data string) error {
			mu.Lock()
			pong = data
			mu.Unlock()
			return nil
		})
		if err := conn.WriteControl(websocket.PingMessage, []byte("heartbeat"), time.Now().Add(time.Second)); err != nil {
			return
		}
		readUntilClosed(conn)
	})
	defer server.Close()

	client := NewClient(testClientConfig(server), nil)
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return pong == "heartbeat"
	}, time.Second, 10*time.Millisecond)
	assert.True(t, client.IsConnected())
}

func TestClient_StaleConnection(t *testing.T) {
	// Server never reads, so our pings get no pong.
	server := mockWSServer(t, func(conn *websocket.Conn) {
		time.Sleep(2 * time.Second)
	})
	defer server.Close()

	cfg := testClientConfig(server)
	cfg.PingInterval = 20 * time.Millisecond
	cfg.PingTimeout = 50 * time.Millisecond
	client := NewClient(cfg, nil)
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	select {
	case err := <-client.Errors():
		assert.ErrorIs(t, err, ErrStaleConnection)
	case <-time.After(time.Second):
		t.Fatal("expected stale connection error")
	}
}

func TestDefaultConfigs(t *testing.T) {
	clientCfg := DefaultClientConfig()
	assert.Equal(t, 30*time.Second, clientCfg.PingInterval)
	assert.Equal(t, 90*time.Second, clientCfg.PingTimeout)
	assert.Equal(t, 1000, clientCfg.BufferSize)

	supCfg := DefaultSupervisorConfig()
	assert.Equal(t, time.Second, supCfg.ReconnectBaseWait)
	assert.Equal(t, time.Minute, supCfg.ReconnectMaxWait)
	assert.Equal(t, 10000, supCfg.MessageBufferSize)
}
