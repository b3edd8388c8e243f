package connection

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSupervisorConfig(server *httptest.Server) SupervisorConfig {
	return SupervisorConfig{
		Client:            testClientConfig(server),
		ReconnectBaseWait: 10 * time.Millisecond,
		ReconnectMaxWait:  50 * time.Millisecond,
		MessageBufferSize: 100,
	}
}

func nextMessage(t *testing.T, s *Supervisor) RawMessage {
	t.Helper()
	select {
	case msg := <-s.Messages():
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for message")
		return RawMessage{}
	}
}

func TestSupervisor_ReconnectsAfterDrop(t *testing.T) {
	var sessions atomic.Int32
	server := mockWSServer(t, func(conn *websocket.Conn) {
		n := sessions.Add(1)
		_ = conn.WriteMessage(websocket.TextMessage, []byte(fmt.Sprintf(`{"session": %d}`, n)))
		if n == 1 {
			// Drop the first session.
			return
		}
		readUntilClosed(conn)
	})
	defer server.Close()

	s := NewSupervisor(testSupervisorConfig(server), nil)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	first := nextMessage(t, s)
	assert.Equal(t, `{"session": 1}`, string(first.Data))
	assert.Equal(t, int64(1), first.Session)

	second := nextMessage(t, s)
	assert.Equal(t, `{"session": 2}`, string(second.Data))
	assert.Equal(t, int64(2), second.Session)

	assert.Eventually(t, func() bool {
		return s.IsConnected() && s.Stats().Messages == 2
	}, time.Second, 10*time.Millisecond)
	st := s.Stats()
	assert.Equal(t, int64(2), st.Connects)
	assert.Equal(t, int64(1), st.Disconnects)
	assert.False(t, st.LastMessageAt.IsZero())
}

func TestSupervisor_RetriesFailedConnect(t *testing.T) {
	var attempts atomic.Int32
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"snapshot","alerts":[]}`))
		readUntilClosed(conn)
	}))
	defer server.Close()

	s := NewSupervisor(testSupervisorConfig(server), nil)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	msg := nextMessage(t, s)
	assert.Equal(t, int64(1), msg.Session)
	assert.Equal(t, int64(2), s.Stats().ConnectErrors)
}

func TestSupervisor_StopWhileDisconnected(t *testing.T) {
	s := NewSupervisor(SupervisorConfig{
		Client:            ClientConfig{URL: "ws://127.0.0.1:1", BufferSize: 1},
		ReconnectBaseWait: time.Hour,
	}, nil)
	require.NoError(t, s.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
	assert.False(t, s.IsConnected())
}

func TestNewSupervisor_Defaults(t *testing.T) {
	s := NewSupervisor(SupervisorConfig{ReconnectMaxWait: time.Millisecond}, nil)

	assert.Equal(t, time.Second, s.cfg.ReconnectBaseWait)
	assert.Equal(t, time.Second, s.cfg.ReconnectMaxWait)
	assert.Equal(t, 10000, cap(s.out))

	b := s.newBackoff()
	assert.Equal(t, time.Duration(0), b.MaxElapsedTime)
	assert.LessOrEqual(t, b.NextBackOff(), 2*time.Second)
}
