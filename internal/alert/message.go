package alert

import (
	"encoding/json"
	"fmt"

	"github.com/rickgao/market-alerts/internal/model"
)

// Action is the discriminator of a stream message.
type Action string

const (
	ActionSnapshot  Action = "snapshot"
	ActionCreated   Action = "created"
	ActionUpdated   Action = "updated"
	ActionCanceled  Action = "canceled"
	ActionTriggered Action = "triggered"
)

// Known reports whether the Manager handles a.
func (a Action) Known() bool {
	switch a {
	case ActionSnapshot, ActionCreated, ActionUpdated, ActionCanceled, ActionTriggered:
		return true
	}
	return false
}

// Message is one inbound stream event.
type Message struct {
	Action Action              `json:"action"`
	Alerts []Descriptor        `json:"alerts,omitempty"` // snapshot
	Alert  *Descriptor         `json:"alert,omitempty"`  // created, updated
	UUID   string              `json:"uuid,omitempty"`   // canceled
	Event  *model.TriggerEvent `json:"event,omitempty"`  // triggered
}

// DecodeMessage parses and validates a raw stream frame. Unknown actions
// decode without error; the Manager ignores them.
func DecodeMessage(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if err := msg.Validate(); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// Validate checks that the payload required by the action is present.
func (m Message) Validate() error {
	switch m.Action {
	case "":
		return fmt.Errorf("%w: missing action", ErrMalformedMessage)
	case ActionCreated, ActionUpdated:
		if m.Alert == nil || m.Alert.UUID == "" {
			return fmt.Errorf("%w: %s without alert uuid", ErrMalformedMessage, m.Action)
		}
	case ActionCanceled:
		if m.UUID == "" {
			return fmt.Errorf("%w: canceled without uuid", ErrMalformedMessage)
		}
	case ActionTriggered:
		if m.Event == nil || m.Event.Alert == "" {
			return fmt.Errorf("%w: triggered without event alert", ErrMalformedMessage)
		}
	case ActionSnapshot:
		for i, d := range m.Alerts {
			if d.UUID == "" {
				return fmt.Errorf("%w: snapshot entry %d without uuid", ErrMalformedMessage, i)
			}
		}
	}
	return nil
}
