package connection

import (
	"errors"
	"time"

	"github.com/rickgao/market-alerts/internal/auth"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
)

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// RawMessage is a message from the Supervisor to the Message Router.
type RawMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	Session    int64     // Connection generation, incremented on every connect
	ReceivedAt time.Time // Local timestamp when WS Client received message
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL          string             // Stream URL (e.g., wss://alerts.example.com/v1/stream)
	Tokens       auth.TokenProvider // Bearer token source (nil = no auth)
	PingInterval time.Duration      // Interval between keepalive pings
	PingTimeout  time.Duration      // Max time without ping/pong before considering connection stale
	WriteTimeout time.Duration      // Write deadline for sends
	BufferSize   int                // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PingInterval: 30 * time.Second,
		PingTimeout:  90 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   1000,
	}
}

// SupervisorConfig configures the Supervisor.
type SupervisorConfig struct {
	Client            ClientConfig
	ReconnectBaseWait time.Duration // Base wait time for reconnection
	ReconnectMaxWait  time.Duration // Max wait time for reconnection
	MessageBufferSize int           // Buffer size for output message channel
}

// DefaultSupervisorConfig returns sensible defaults.
func DefaultSupervisorConfig() SupervisorConfig {
	return SupervisorConfig{
		Client:            DefaultClientConfig(),
		ReconnectBaseWait: time.Second,
		ReconnectMaxWait:  time.Minute,
		MessageBufferSize: 10000,
	}
}

// SupervisorStats are connection counters.
type SupervisorStats struct {
	Connected     bool
	Connects      int64
	ConnectErrors int64
	Disconnects   int64
	Messages      int64
	LastMessageAt time.Time
}
