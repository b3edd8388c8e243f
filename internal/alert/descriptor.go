package alert

import (
	"github.com/shopspring/decimal"

	"github.com/rickgao/market-alerts/internal/model"
)

// Descriptor is the wire form of an alert. A nil field was absent from the
// payload; JSON keys not listed here are ignored.
type Descriptor struct {
	UUID       string           `json:"uuid"`
	Market     *model.MarketKey `json:"market,omitempty"`
	Type       *Type            `json:"type,omitempty"`
	Direction  *Direction       `json:"direction,omitempty"`
	Value      *decimal.Decimal `json:"value,omitempty"`
	Status     *Status          `json:"status,omitempty"`
	Created    *model.Timestamp `json:"created,omitempty"`
	Updated    *model.Timestamp `json:"updated,omitempty"`
	Expiration *model.Timestamp `json:"expiration,omitempty"`
	Cooldown   *model.Millis    `json:"cooldown,omitempty"`
	Kill       *bool            `json:"kill,omitempty"`
	Email      *bool            `json:"email,omitempty"`
	SMS        *bool            `json:"sms,omitempty"`
	Expires    *Expires         `json:"expires,omitempty"`
}

// MarketKey returns the referenced market, or the zero key.
func (d Descriptor) MarketKey() model.MarketKey {
	if d.Market == nil {
		return model.MarketKey{}
	}
	return *d.Market
}

// Merge returns d with every field present in next laid over it.
func (d Descriptor) Merge(next Descriptor) Descriptor {
	out := d
	if next.UUID != "" {
		out.UUID = next.UUID
	}
	if next.Market != nil {
		out.Market = next.Market
	}
	if next.Type != nil {
		out.Type = next.Type
	}
	if next.Direction != nil {
		out.Direction = next.Direction
	}
	if next.Value != nil {
		out.Value = next.Value
	}
	if next.Status != nil {
		out.Status = next.Status
	}
	if next.Created != nil {
		out.Created = next.Created
	}
	if next.Updated != nil {
		out.Updated = next.Updated
	}
	if next.Expiration != nil {
		out.Expiration = next.Expiration
	}
	if next.Cooldown != nil {
		out.Cooldown = next.Cooldown
	}
	if next.Kill != nil {
		out.Kill = next.Kill
	}
	if next.Email != nil {
		out.Email = next.Email
	}
	if next.SMS != nil {
		out.SMS = next.SMS
	}
	if next.Expires != nil {
		out.Expires = next.Expires
	}
	return out
}
