package alert

import "time"

// Type is the market value an alert watches.
type Type string

const (
	TypeLastPrice Type = "last-price"
	TypeVolume24h Type = "86400-volume"
)

// Valid reports whether t is a known alert type.
func (t Type) Valid() bool {
	return t == TypeLastPrice || t == TypeVolume24h
}

// Label is the display name.
func (t Type) Label() string {
	switch t {
	case TypeLastPrice:
		return "Last Price"
	case TypeVolume24h:
		return "24h Volume"
	}
	return string(t)
}

// Direction is the crossing condition.
type Direction string

const (
	DirectionAbove Direction = "above"
	DirectionBelow Direction = "below"
	DirectionCross Direction = "cross"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionAbove || d == DirectionBelow || d == DirectionCross
}

// Expires is the server-side lifetime code of an alert.
type Expires string

const (
	ExpiresNever Expires = "never"
	Expires1h    Expires = "1h"
	Expires24h   Expires = "24h"
	Expires7d    Expires = "7d"
	Expires30d   Expires = "30d"
)

var expiresDurations = map[Expires]time.Duration{
	ExpiresNever: 0,
	Expires1h:    time.Hour,
	Expires24h:   24 * time.Hour,
	Expires7d:    7 * 24 * time.Hour,
	Expires30d:   30 * 24 * time.Hour,
}

// Valid reports whether e is a known code.
func (e Expires) Valid() bool {
	_, ok := expiresDurations[e]
	return ok
}

// Duration is the lifetime e stands for; zero for never.
func (e Expires) Duration() time.Duration {
	return expiresDurations[e]
}
