package alert

import "github.com/rickgao/market-alerts/internal/model"

// Field names an Alert attribute in AlertUpdated events.
type Field string

const (
	FieldUUID       Field = "uuid"
	FieldMarket     Field = "market"
	FieldType       Field = "type"
	FieldDirection  Field = "direction"
	FieldValue      Field = "value"
	FieldStatus     Field = "status"
	FieldCreated    Field = "created"
	FieldUpdated    Field = "updated"
	FieldExpiration Field = "expiration"
	FieldCooldown   Field = "cooldown"
	FieldKill       Field = "kill"
	FieldEmail      Field = "email"
	FieldSMS        Field = "sms"
	FieldExpires    Field = "expires"
	FieldLast       Field = "last"
)

// Observer receives lifecycle events. Calls happen on the executor goroutine
// and must not block.
type Observer interface {
	AlertCreated(a *Alert)
	AlertUpdated(a *Alert, field Field)
	AlertDestroyed(a *Alert)
	AlertTriggered(a *Alert, ev model.TriggerEvent)
	WillTransmit(a *Alert)
	DidTransmit(a *Alert)
	DidTransmitError(a *Alert, err error)
	WillCancel(a *Alert)
	DidCancel(a *Alert)
}

// NopObserver implements Observer with no-ops. Embed it to handle a subset.
type NopObserver struct{}

func (NopObserver) AlertCreated(*Alert)                       {}
func (NopObserver) AlertUpdated(*Alert, Field)                {}
func (NopObserver) AlertDestroyed(*Alert)                     {}
func (NopObserver) AlertTriggered(*Alert, model.TriggerEvent) {}
func (NopObserver) WillTransmit(*Alert)                       {}
func (NopObserver) DidTransmit(*Alert)                        {}
func (NopObserver) DidTransmitError(*Alert, error)            {}
func (NopObserver) WillCancel(*Alert)                         {}
func (NopObserver) DidCancel(*Alert)                          {}

type observerEntry struct {
	id int
	o  Observer
}

// observers is a subscription list. Iteration works on a copy so observers
// may unsubscribe from inside a callback.
type observers struct {
	next    int
	entries []observerEntry
}

func (s *observers) add(o Observer) func() {
	s.next++
	id := s.next
	s.entries = append(s.entries, observerEntry{id: id, o: o})
	return func() {
		for i, e := range s.entries {
			if e.id == id {
				s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
				return
			}
		}
	}
}

func (s *observers) each(fn func(Observer)) {
	if len(s.entries) == 0 {
		return
	}
	snapshot := make([]observerEntry, len(s.entries))
	copy(snapshot, s.entries)
	for _, e := range snapshot {
		fn(e.o)
	}
}

func (s *observers) clear() {
	s.entries = nil
}
