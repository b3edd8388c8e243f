package model

import (
	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------
// Market Types
// -----------------------------------------------------------------------------

// Exchange identifies a trading venue.
type Exchange struct {
	ID   string `json:"id"`   // Stable identifier sent to the alerts API (e.g. "coinbase")
	Name string `json:"name"` // Display name
}

// Precision is the number of decimal places a market quotes in.
type Precision struct {
	Price  int32 `json:"price"`  // Places for prices
	Amount int32 `json:"amount"` // Places for base amounts and volumes
}

// Market represents a tradable instrument on an exchange.
type Market struct {
	ID        string    `json:"id"`       // Market id sent to the alerts API
	Exchange  Exchange  `json:"exchange"` // Owning exchange
	Symbol    string    `json:"symbol"`   // Exchange-local symbol (e.g. "BTC-USD")
	Base      string    `json:"base"`     // Base asset
	Quote     string    `json:"quote"`    // Quote asset
	Precision Precision `json:"precision"`
	Active    bool      `json:"active"`
}

// MarketKey is the resolvable identity of a market.
type MarketKey struct {
	Exchange string `json:"exchange"`
	Symbol   string `json:"symbol"`
}

// String renders the key as "exchange:symbol".
func (k MarketKey) String() string {
	return k.Exchange + ":" + k.Symbol
}

// IsZero reports whether the key has neither exchange nor symbol.
func (k MarketKey) IsZero() bool {
	return k.Exchange == "" && k.Symbol == ""
}

// Key returns the market's exchange+symbol identity.
func (m *Market) Key() MarketKey {
	return MarketKey{Exchange: m.Exchange.ID, Symbol: m.Symbol}
}

// Title is the user-facing market label, e.g. "BTC-USD (Coinbase)".
func (m *Market) Title() string {
	name := m.Exchange.Name
	if name == "" {
		name = m.Exchange.ID
	}
	return m.Symbol + " (" + name + ")"
}

// -----------------------------------------------------------------------------
// Trigger Types
// -----------------------------------------------------------------------------

// TriggerEvent is a server notification that an alert's condition was met.
type TriggerEvent struct {
	UUID    string          `json:"uuid"`    // Event id
	Alert   string          `json:"alert"`   // Alert uuid
	Value   decimal.Decimal `json:"value"`   // Threshold at the time of the trigger
	Price   decimal.Decimal `json:"price"`   // Observed market value
	Created Timestamp       `json:"created"` // Server trigger time
}
