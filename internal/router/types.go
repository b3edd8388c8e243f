package router

import (
	"time"

	"github.com/rickgao/market-alerts/internal/alert"
)

// RouterConfig holds configuration for the Message Router.
type RouterConfig struct {
	QueueSize int // Initial dispatch queue capacity. Default: 1000
}

// DefaultRouterConfig returns default configuration.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		QueueSize: 1000,
	}
}

// Handler applies a decoded message. It runs on the executor.
type Handler func(alert.Message)

// Inbound is a decoded stream message waiting for dispatch.
type Inbound struct {
	Message    alert.Message
	Session    int64
	ReceivedAt time.Time
}

// RouterStats contains runtime statistics.
type RouterStats struct {
	MessagesReceived   int64
	MessagesDispatched int64
	ParseErrors        int64
	UnknownActions     int64
	ByAction           map[alert.Action]int64 // known actions only; the rest count as UnknownActions
	Session            int64
	Queue              QueueStats
}
