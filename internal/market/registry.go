package market

import (
	"context"

	"github.com/rickgao/market-alerts/internal/model"
)

// ChangeBufferSize is the capacity of the MarketChange channel.
const ChangeBufferSize = 1000

// Change event types.
const (
	EventCreated      = "created"
	EventRemoved      = "removed"
	EventStatusChange = "status_change"
)

// Registry manages market discovery and lifecycle.
type Registry interface {
	// Start performs the initial load, then reconciles in the background.
	Start(ctx context.Context) error

	// Stop gracefully shuts down.
	Stop(ctx context.Context) error

	// Find resolves a market. The returned pointer is shared and must not be
	// modified; it stays the same until the market's definition changes.
	Find(exchange, symbol string) (*model.Market, bool)

	// Markets returns a copy of every known market.
	Markets() []model.Market

	// SubscribeChanges returns the channel of market changes detected after
	// the initial load.
	SubscribeChanges() <-chan MarketChange

	// Stats returns catalog counters.
	Stats() Stats
}

// Lister fetches the full market catalog.
type Lister interface {
	GetAllMarkets(ctx context.Context) ([]model.Market, error)
}

// MarketChange represents a market state transition.
type MarketChange struct {
	Key       model.MarketKey
	EventType string        // "created", "removed", "status_change"
	Market    *model.Market // nil for "removed"
}

// Stats are registry counters.
type Stats struct {
	Markets int
	Active  int
	Dropped int64 // changes discarded because the channel was full
}
