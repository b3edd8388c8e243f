package api

import (
	"github.com/rickgao/market-alerts/internal/alert"
	"github.com/rickgao/market-alerts/internal/model"
)

// MarketsResponse is the response from GET /markets.
type MarketsResponse struct {
	Markets []APIMarket `json:"markets"`
	Cursor  string      `json:"cursor"`
}

// APIMarket is the wire form of a market.
type APIMarket struct {
	ID              string `json:"id"`
	Exchange        string `json:"exchange"`
	ExchangeName    string `json:"exchange_name"`
	Symbol          string `json:"symbol"`
	Base            string `json:"base"`
	Quote           string `json:"quote"`
	PricePrecision  int32  `json:"price_precision"`
	AmountPrecision int32  `json:"amount_precision"`
	Status          string `json:"status"`
}

// ToModel converts to the shared market type.
func (m APIMarket) ToModel() model.Market {
	name := m.ExchangeName
	if name == "" {
		name = m.Exchange
	}
	return model.Market{
		ID:       m.ID,
		Exchange: model.Exchange{ID: m.Exchange, Name: name},
		Symbol:   m.Symbol,
		Base:     m.Base,
		Quote:    m.Quote,
		Precision: model.Precision{
			Price:  m.PricePrecision,
			Amount: m.AmountPrecision,
		},
		Active: m.Status == "" || m.Status == "active" || m.Status == "online",
	}
}

// GetMarketsOptions filters GET /markets.
type GetMarketsOptions struct {
	Limit    int
	Cursor   string
	Exchange string
}

// AlertsResponse is the response from GET /alerts.
type AlertsResponse struct {
	Alerts []alert.Descriptor `json:"alerts"`
}
